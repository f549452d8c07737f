package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/seungjae8520/hjjtest/internal/notify"
	"github.com/seungjae8520/hjjtest/internal/orderform"
	"github.com/seungjae8520/hjjtest/internal/platform/httpx"
	"github.com/seungjae8520/hjjtest/internal/platform/observability"
	"github.com/seungjae8520/hjjtest/internal/quote"
	"github.com/seungjae8520/hjjtest/internal/selection"
	"github.com/seungjae8520/hjjtest/internal/services"

	"go.uber.org/zap"
)

// writeServiceError maps a service error onto the JSON envelope. Toasts raised by the
// service and an optional redirect ride along as extra members.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error, redirect *notify.Redirect) {
	herr := mapError(err)
	if herr.Status >= http.StatusInternalServerError {
		observability.FromContext(ctx).Error("request failed", zap.Error(err))
	}
	details := map[string]any{}
	if toasts := notify.BufferFrom(ctx).Drain(); len(toasts) > 0 {
		details["toasts"] = toasts
	}
	if redirect != nil {
		details["redirect"] = redirectPayload(redirect)
	}
	httpx.WriteError(ctx, w, herr.WithDetails(details))
}

func mapError(err error) httpx.Error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return httpx.NewError("validation_failed", verr.Message, http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"field": verr.Field})
	}
	switch {
	case errors.Is(err, orderform.ErrNoSnapshot):
		return httpx.NewError("order_snapshot_missing", orderform.MsgNoSnapshot, http.StatusNotFound)
	case errors.Is(err, orderform.ErrUnreadableSnapshot):
		return httpx.NewError("order_snapshot_unreadable", orderform.MsgUnreadableSnapshot, http.StatusUnprocessableEntity)
	case errors.Is(err, orderform.ErrUnknownField):
		return httpx.NewError("unknown_field", err.Error(), http.StatusBadRequest)
	case errors.Is(err, orderform.ErrSubmitInProgress):
		return httpx.NewError("submission_in_progress", "이미 처리 중인 요청입니다. 잠시만 기다려주세요.", http.StatusConflict)
	case errors.Is(err, selection.ErrNothingSelected):
		return httpx.NewError("nothing_selected", selection.MsgNothingSelected, http.StatusUnprocessableEntity)
	case errors.Is(err, selection.ErrRestaurantIncomplete):
		return httpx.NewError("restaurant_incomplete", selection.MsgRestaurantIncomplete, http.StatusUnprocessableEntity)
	case errors.Is(err, selection.ErrStepLocked):
		return httpx.NewError("step_locked", selection.MsgStepLocked, http.StatusUnprocessableEntity)
	case errors.Is(err, selection.ErrCountOutOfRange):
		return httpx.NewError("count_out_of_range", selection.MsgCountOutOfRange, http.StatusUnprocessableEntity)
	case errors.Is(err, selection.ErrPriceOutOfRange):
		return httpx.NewError("price_out_of_range", err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, selection.ErrUnknownBusinessType):
		return httpx.NewError("invalid_business_type", err.Error(), http.StatusBadRequest)
	case errors.Is(err, selection.ErrUnknownItem):
		return httpx.NewError("unknown_item", err.Error(), http.StatusNotFound)
	case errors.Is(err, selection.ErrWrongTrack):
		return httpx.NewError("wrong_track", err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrCartItemNotFound):
		return httpx.NewError("cart_item_not_found", err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrCartInvalidInput), errors.Is(err, services.ErrProfileInvalidInput), errors.Is(err, quote.ErrInvalidQuote):
		return httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrOrderRejected), errors.Is(err, services.ErrLeadRejected):
		return httpx.NewError("intake_rejected", "submission was declined", http.StatusUnprocessableEntity)
	case errors.Is(err, services.ErrOrderIntakeFailed), errors.Is(err, services.ErrLeadIntakeFailed):
		return httpx.NewError("intake_unavailable", "intake endpoint is unavailable", http.StatusBadGateway)
	case errors.Is(err, services.ErrCartUnavailable), errors.Is(err, services.ErrProfileUnavailable),
		errors.Is(err, services.ErrSelectionUnavailable), errors.Is(err, services.ErrOrderUnavailable):
		return httpx.NewError("storage_unavailable", "storage is unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		return httpx.NewError("timeout", "request timed out", http.StatusGatewayTimeout)
	default:
		return httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError)
	}
}
