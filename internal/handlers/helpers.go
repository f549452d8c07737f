package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/seungjae8520/hjjtest/internal/fieldcheck"
	"github.com/seungjae8520/hjjtest/internal/notify"
	"github.com/seungjae8520/hjjtest/internal/platform/httpx"
	"github.com/seungjae8520/hjjtest/internal/platform/session"
)

const defaultBodyLimit = 16 * 1024

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body exceeds allowed size")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultBodyLimit
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// decodeBody reads a JSON body into dst and runs its validate tags. Unknown fields are
// rejected.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	data, err := readLimitedBody(r, defaultBodyLimit)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", err.Error(), http.StatusRequestEntityTooLarge))
			return false
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return false
	}
	if err := fieldcheck.Validator().Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := verrs[0].Field()
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("%s failed %s", field, verrs[0].Tag()), http.StatusBadRequest).
				WithDetails(map[string]any{"field": field}))
			return false
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return false
	}
	return true
}

func identity(w http.ResponseWriter, r *http.Request) (session.Identity, bool) {
	id, ok := session.FromContext(r.Context())
	if !ok || strings.TrimSpace(id.VisitorID) == "" || strings.TrimSpace(id.SessionID) == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("session_required", "visitor session cookie is required", http.StatusBadRequest))
		return session.Identity{}, false
	}
	return id, true
}

// respond writes payload with the toasts raised while serving the request.
func respond(ctx context.Context, w http.ResponseWriter, status int, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	if toasts := notify.BufferFrom(ctx).Drain(); len(toasts) > 0 {
		payload["toasts"] = toasts
	}
	httpx.WriteJSON(w, status, payload)
}

func redirectPayload(r *notify.Redirect) map[string]any {
	if r == nil {
		return nil
	}
	return map[string]any{"url": r.URL, "delay_ms": r.DelayMillis()}
}

// ToastMiddleware gives every request a toast buffer.
func ToastMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := notify.WithBuffer(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
