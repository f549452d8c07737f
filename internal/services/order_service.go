package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/metric"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/notify"
	"github.com/seungjae8520/hjjtest/internal/orderform"
	"github.com/seungjae8520/hjjtest/internal/platform/events"
	"github.com/seungjae8520/hjjtest/internal/repositories"
)

const (
	MsgOrderSuccess   = "주문이 성공적으로 접수되었습니다."
	MsgOrderRejected  = "주문 처리 중 오류가 발생했습니다."
	MsgOrderTransport = "주문 처리 중 오류가 발생했습니다. 다시 시도해주세요."

	CompletePagePath      = "/complete"
	CompleteRedirectDelay = 1500 * time.Millisecond
)

var (
	errOrderWorkspacesRequired = errors.New("order service: workspaces are required")
	errOrderSnapshotsRequired  = errors.New("order service: snapshot repository is required")
	errOrderIntakeRequired     = errors.New("order service: intake client is required")
	errOrderClockRequired      = errors.New("order service: clock is required")
)

var (
	// ErrOrderRejected indicates the intake endpoint answered success:false.
	ErrOrderRejected = errors.New("order service: rejected by intake")
	// ErrOrderIntakeFailed indicates the intake endpoint could not be reached or answered badly.
	ErrOrderIntakeFailed = errors.New("order service: intake failed")
	// ErrOrderUnavailable indicates the snapshot repository failed.
	ErrOrderUnavailable = errors.New("order service: unavailable")
)

type OrderServiceDeps struct {
	Workspaces *Workspaces
	Snapshots  repositories.SnapshotRepository
	Intake     IntakeClient
	Publisher  events.Publisher
	Notifier   notify.Notifier
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
	Meter      metric.Meter
	// OptimisticFallback reports a simulated success when the intake endpoint is unreachable.
	OptimisticFallback bool
	IDGenerator        func() string
}

type orderService struct {
	workspaces *Workspaces
	snapshots  repositories.SnapshotRepository
	intake     IntakeClient
	publisher  events.Publisher
	notifier   notify.Notifier
	now        func() time.Time
	logger     func(context.Context, string, map[string]any)
	counter    submissionCounter
	fallback   bool
	newID      func() string
}

func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	switch {
	case deps.Workspaces == nil:
		return nil, errOrderWorkspacesRequired
	case deps.Snapshots == nil:
		return nil, errOrderSnapshotsRequired
	case deps.Intake == nil:
		return nil, errOrderIntakeRequired
	case deps.Clock == nil:
		return nil, errOrderClockRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &orderService{
		workspaces: deps.Workspaces,
		snapshots:  deps.Snapshots,
		intake:     deps.Intake,
		publisher:  publisher,
		notifier:   deps.Notifier,
		now:        func() time.Time { return deps.Clock().UTC() },
		logger:     logger,
		counter:    newSubmissionCounter(deps.Meter, "order"),
		fallback:   deps.OptimisticFallback,
		newID:      idGen,
	}, nil
}

// Load reads the session's snapshot into its form. A missing snapshot raises a toast and a
// delayed redirect to the product page; an unreadable one only the toast.
func (s *orderService) Load(ctx context.Context, sessionID string) (OrderLoad, error) {
	form := s.workspaces.Get(sessionID).Form
	raw, err := s.snapshots.GetSnapshot(ctx, sessionID)
	if err != nil && !repositories.IsNotFound(err) {
		return OrderLoad{View: form.View()}, translateRepoError(ErrOrderUnavailable, err)
	}

	err = form.Load(raw)
	switch {
	case errors.Is(err, orderform.ErrNoSnapshot):
		notify.Error(ctx, s.notifier, orderform.MsgNoSnapshot)
		return OrderLoad{View: form.View(), Redirect: noSnapshotRedirect()}, err
	case errors.Is(err, orderform.ErrUnreadableSnapshot):
		s.logger(ctx, "order.snapshot.rejected", map[string]any{"sessionId": sessionID, "error": err.Error()})
		notify.Error(ctx, s.notifier, orderform.MsgUnreadableSnapshot)
		return OrderLoad{View: form.View()}, err
	case err != nil:
		return OrderLoad{View: form.View()}, err
	}
	return OrderLoad{View: form.View()}, nil
}

func (s *orderService) SetField(_ context.Context, sessionID, name, value string) (string, error) {
	return s.workspaces.Get(sessionID).Form.SetField(name, value)
}

func (s *orderService) SetAddress(_ context.Context, sessionID, postalCode, address string) (orderform.View, error) {
	form := s.workspaces.Get(sessionID).Form
	form.SetAddress(strings.TrimSpace(postalCode), strings.TrimSpace(address))
	return form.View(), nil
}

func (s *orderService) SetAgreement(_ context.Context, sessionID, name string, checked bool) (orderform.View, error) {
	form := s.workspaces.Get(sessionID).Form
	if err := form.SetAgreement(name, checked); err != nil {
		return form.View(), err
	}
	return form.View(), nil
}

func (s *orderService) ToggleAll(_ context.Context, sessionID string, checked bool) (orderform.View, error) {
	form := s.workspaces.Get(sessionID).Form
	form.ToggleAll(checked)
	return form.View(), nil
}

// Submit validates the form and posts it to the intake endpoint. Nothing is sent when
// validation fails, and only one submission per session may be in flight.
func (s *orderService) Submit(ctx context.Context, sessionID string) (OrderSubmission, error) {
	form := s.workspaces.Get(sessionID).Form
	if _, ok := form.Snapshot(); !ok {
		if load, err := s.Load(ctx, sessionID); err != nil {
			return OrderSubmission{Redirect: load.Redirect}, err
		}
	}

	payload, err := form.BeginSubmit(s.now())
	if err != nil {
		var verr *orderform.ValidationError
		if errors.As(err, &verr) {
			s.counter.record(ctx, outcomeInvalid)
			notify.Error(ctx, s.notifier, verr.Message)
			return OrderSubmission{}, &ValidationError{Field: verr.Field, Message: verr.Message}
		}
		return OrderSubmission{}, err
	}
	defer form.EndSubmit()

	result, err := s.intake.SubmitOrder(ctx, payload)
	if err != nil {
		if !s.fallback {
			s.counter.record(ctx, outcomeFailed)
			s.logger(ctx, "order.submit.failed", map[string]any{"sessionId": sessionID, "error": err.Error()})
			notify.Error(ctx, s.notifier, MsgOrderTransport)
			return OrderSubmission{}, fmt.Errorf("%w: %v", ErrOrderIntakeFailed, err)
		}
		s.logger(ctx, "order.submit.fallback", map[string]any{"sessionId": sessionID, "error": err.Error()})
		result = domain.SubmitResult{Success: true, OrderID: s.newID(), Simulated: true}
	}

	if !result.Success {
		s.counter.record(ctx, outcomeRejected)
		message := strings.TrimSpace(result.Message)
		if message == "" {
			message = MsgOrderRejected
		}
		s.logger(ctx, "order.submit.rejected", map[string]any{"sessionId": sessionID, "message": message})
		notify.Error(ctx, s.notifier, message)
		result.Message = message
		return OrderSubmission{Result: result}, ErrOrderRejected
	}

	if result.Simulated {
		s.counter.record(ctx, outcomeSimulated)
	} else {
		s.counter.record(ctx, outcomeSucceeded)
	}
	notify.Success(ctx, s.notifier, MsgOrderSuccess)
	if err := s.snapshots.DeleteSnapshot(ctx, sessionID); err != nil {
		s.logger(ctx, "order.snapshot.delete.failed", map[string]any{"sessionId": sessionID, "error": err.Error()})
	}
	form.Reset()
	s.publish(ctx, payload, result)
	s.logger(ctx, "order.submitted", map[string]any{
		"sessionId":  sessionID,
		"orderId":    result.OrderID,
		"totalPrice": payload.Marketing.TotalPrice(),
		"simulated":  result.Simulated,
	})

	return OrderSubmission{Result: result, Redirect: completeRedirect(result.OrderID)}, nil
}

func (s *orderService) publish(ctx context.Context, payload domain.OrderPayload, result domain.SubmitResult) {
	event := events.Event{
		ID:         s.newID(),
		Type:       events.TypeOrderSubmitted,
		OccurredAt: s.now(),
		Simulated:  result.Simulated,
		Attributes: map[string]string{
			"orderId":      result.OrderID,
			"businessType": string(payload.Marketing.BusinessType),
		},
		Payload: payload,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger(ctx, "order.event.failed", map[string]any{"orderId": result.OrderID, "error": err.Error()})
	}
}

func noSnapshotRedirect() *notify.Redirect {
	return &notify.Redirect{URL: orderform.NoSnapshotRedirect, Delay: orderform.NoSnapshotRedirectDelay}
}

func completeRedirect(orderID string) *notify.Redirect {
	target := CompletePagePath
	if orderID != "" {
		target += "?orderId=" + url.QueryEscape(orderID)
	}
	return &notify.Redirect{URL: target, Delay: CompleteRedirectDelay}
}
