package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/notify"
	"github.com/seungjae8520/hjjtest/internal/orderform"
	"github.com/seungjae8520/hjjtest/internal/platform/events"
	"github.com/seungjae8520/hjjtest/internal/repositories/memory"
	"github.com/seungjae8520/hjjtest/internal/selection"
)

type stubIntake struct {
	leadFunc  func(ctx context.Context, lead domain.Lead) (domain.SubmitResult, error)
	orderFunc func(ctx context.Context, payload domain.OrderPayload) (domain.SubmitResult, error)
	leads     atomic.Int32
	orders    atomic.Int32
}

func (s *stubIntake) SubmitLead(ctx context.Context, lead domain.Lead) (domain.SubmitResult, error) {
	s.leads.Add(1)
	return s.leadFunc(ctx, lead)
}

func (s *stubIntake) SubmitOrder(ctx context.Context, payload domain.OrderPayload) (domain.SubmitResult, error) {
	s.orders.Add(1)
	return s.orderFunc(ctx, payload)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Ping(context.Context) error { return nil }
func (p *recordingPublisher) Close() error               { return nil }

type orderFixture struct {
	registry   *memory.Registry
	workspaces *Workspaces
	selection  SelectionService
	orders     OrderService
	intake     *stubIntake
	publisher  *recordingPublisher
}

func newOrderFixture(t *testing.T, fallback bool, submit func(context.Context, domain.OrderPayload) (domain.SubmitResult, error)) *orderFixture {
	t.Helper()
	f := &orderFixture{
		registry:   memory.New(),
		workspaces: NewWorkspaces(nil, time.Hour, func() time.Time { return testNow }),
		intake:     &stubIntake{orderFunc: submit},
		publisher:  &recordingPublisher{},
	}
	var err error
	f.selection, err = NewSelectionService(SelectionServiceDeps{
		Workspaces: f.workspaces,
		Snapshots:  f.registry.Snapshots(),
		Notifier:   notify.RequestNotifier{},
	})
	if err != nil {
		t.Fatalf("NewSelectionService: %v", err)
	}
	f.orders, err = NewOrderService(OrderServiceDeps{
		Workspaces:         f.workspaces,
		Snapshots:          f.registry.Snapshots(),
		Intake:             f.intake,
		Publisher:          f.publisher,
		Notifier:           notify.RequestNotifier{},
		Clock:              func() time.Time { return testNow },
		OptimisticFallback: fallback,
		IDGenerator:        func() string { return "01JSIMULATED" },
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return f
}

// handOff selects a product and proceeds so the session has a snapshot.
func (f *orderFixture) handOff(t *testing.T, sessionID string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.selection.Apply(ctx, sessionID, func(s *selection.State) error {
		if err := s.SelectBusinessType(domain.BusinessTypeGeneral); err != nil {
			return err
		}
		_, err := s.ToggleProduct("test", 0)
		return err
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := f.selection.Proceed(ctx, sessionID); err != nil {
		t.Fatalf("Proceed: %v", err)
	}
}

func (f *orderFixture) fill(t *testing.T, sessionID string) {
	t.Helper()
	ctx := context.Background()
	for name, value := range map[string]string{
		orderform.FieldBusinessName: "내가올려 식당",
		orderform.FieldOwnerName:    "김대표",
		orderform.FieldPhone:        "01012345678",
		orderform.FieldPostalCode:   "06236",
		orderform.FieldAddress:      "서울 강남구 테헤란로 1",
	} {
		if _, err := f.orders.SetField(ctx, sessionID, name, value); err != nil {
			t.Fatalf("SetField(%s): %v", name, err)
		}
	}
	if _, err := f.orders.ToggleAll(ctx, sessionID, true); err != nil {
		t.Fatalf("ToggleAll: %v", err)
	}
}

func succeed(orderID string) func(context.Context, domain.OrderPayload) (domain.SubmitResult, error) {
	return func(context.Context, domain.OrderPayload) (domain.SubmitResult, error) {
		return domain.SubmitResult{Success: true, OrderID: orderID}, nil
	}
}

func TestOrderServiceLoadWithoutSnapshotRedirects(t *testing.T) {
	f := newOrderFixture(t, false, succeed("ORD-1"))
	ctx, buf := notify.WithBuffer(context.Background())

	load, err := f.orders.Load(ctx, "s1")
	if !errors.Is(err, orderform.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	if load.Redirect == nil || load.Redirect.URL != "/products" || load.Redirect.DelayMillis() != 2000 {
		t.Fatalf("unexpected redirect %+v", load.Redirect)
	}
	toasts := buf.Drain()
	if len(toasts) != 1 || toasts[0].Message != orderform.MsgNoSnapshot || toasts[0].Kind != notify.KindError {
		t.Fatalf("unexpected toasts %+v", toasts)
	}
}

func TestOrderServiceLoadUnreadableSnapshot(t *testing.T) {
	f := newOrderFixture(t, false, succeed("ORD-1"))
	_ = f.registry.PutSnapshot(context.Background(), "s1", []byte("{broken"))
	ctx, buf := notify.WithBuffer(context.Background())

	load, err := f.orders.Load(ctx, "s1")
	if !errors.Is(err, orderform.ErrUnreadableSnapshot) {
		t.Fatalf("expected ErrUnreadableSnapshot, got %v", err)
	}
	if load.Redirect != nil {
		t.Fatalf("unreadable snapshot must not redirect, got %+v", load.Redirect)
	}
	if toasts := buf.Drain(); len(toasts) != 1 || toasts[0].Message != orderform.MsgUnreadableSnapshot {
		t.Fatalf("unexpected toasts %+v", toasts)
	}
}

func TestOrderServiceSubmitSucceeds(t *testing.T) {
	f := newOrderFixture(t, false, succeed("ORD 7"))
	f.handOff(t, "s1")
	f.fill(t, "s1")
	ctx, buf := notify.WithBuffer(context.Background())

	sub, err := f.orders.Submit(ctx, "s1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !sub.Result.Success || sub.Result.Simulated {
		t.Fatalf("unexpected result %+v", sub.Result)
	}
	if sub.Redirect == nil || sub.Redirect.URL != "/complete?orderId=ORD+7" || sub.Redirect.DelayMillis() != 1500 {
		t.Fatalf("unexpected redirect %+v", sub.Redirect)
	}
	if toasts := buf.Drain(); len(toasts) != 1 || toasts[0].Message != MsgOrderSuccess {
		t.Fatalf("unexpected toasts %+v", toasts)
	}
	if _, err := f.registry.GetSnapshot(context.Background(), "s1"); err == nil {
		t.Fatal("snapshot should be deleted after a successful order")
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Type != events.TypeOrderSubmitted {
		t.Fatalf("expected one order event, got %+v", f.publisher.events)
	}
}

func TestOrderServiceSubmitRequiresFieldsBeforeNetwork(t *testing.T) {
	f := newOrderFixture(t, false, succeed("ORD-1"))
	f.handOff(t, "s1")
	f.fill(t, "s1")
	_, _ = f.orders.SetField(context.Background(), "s1", orderform.FieldOwnerName, "  ")
	ctx, buf := notify.WithBuffer(context.Background())

	_, err := f.orders.Submit(ctx, "s1")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != orderform.FieldOwnerName {
		t.Fatalf("expected owner name validation error, got %v", err)
	}
	if n := f.intake.orders.Load(); n != 0 {
		t.Fatalf("intake must not be called, got %d calls", n)
	}
	if toasts := buf.Drain(); len(toasts) != 1 || toasts[0].Message != "대표자명을(를) 입력해주세요." {
		t.Fatalf("unexpected toasts %+v", toasts)
	}
}

func TestOrderServiceSubmitFailures(t *testing.T) {
	cases := []struct {
		name      string
		fallback  bool
		result    domain.SubmitResult
		err       error
		wantErr   error
		wantToast string
		simulated bool
	}{
		{name: "rejected with message", result: domain.SubmitResult{Message: "재고가 없습니다."}, wantErr: ErrOrderRejected, wantToast: "재고가 없습니다."},
		{name: "rejected without message", result: domain.SubmitResult{}, wantErr: ErrOrderRejected, wantToast: MsgOrderRejected},
		{name: "transport without fallback", err: errors.New("dial tcp: refused"), wantErr: ErrOrderIntakeFailed, wantToast: MsgOrderTransport},
		{name: "transport with fallback", fallback: true, err: errors.New("dial tcp: refused"), wantToast: MsgOrderSuccess, simulated: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newOrderFixture(t, tc.fallback, func(context.Context, domain.OrderPayload) (domain.SubmitResult, error) {
				return tc.result, tc.err
			})
			f.handOff(t, "s1")
			f.fill(t, "s1")
			ctx, buf := notify.WithBuffer(context.Background())

			sub, err := f.orders.Submit(ctx, "s1")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if _, err := f.registry.GetSnapshot(context.Background(), "s1"); err != nil {
					t.Fatalf("snapshot must survive a failed submit: %v", err)
				}
			} else if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if sub.Result.Simulated != tc.simulated {
				t.Fatalf("simulated = %v, want %v", sub.Result.Simulated, tc.simulated)
			}
			if tc.simulated && sub.Result.OrderID != "01JSIMULATED" {
				t.Fatalf("expected generated order id, got %q", sub.Result.OrderID)
			}
			toasts := buf.Drain()
			if len(toasts) != 1 || toasts[0].Message != tc.wantToast {
				t.Fatalf("unexpected toasts %+v", toasts)
			}
		})
	}
}

func TestOrderServiceConcurrentSubmitRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f := newOrderFixture(t, false, func(context.Context, domain.OrderPayload) (domain.SubmitResult, error) {
		once.Do(func() { close(entered) })
		<-release
		return domain.SubmitResult{Success: true, OrderID: "ORD-1"}, nil
	})
	f.handOff(t, "s1")
	f.fill(t, "s1")

	done := make(chan error, 1)
	go func() {
		_, err := f.orders.Submit(context.Background(), "s1")
		done <- err
	}()
	<-entered

	if _, err := f.orders.Submit(context.Background(), "s1"); !errors.Is(err, orderform.ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if n := f.intake.orders.Load(); n != 1 {
		t.Fatalf("expected exactly one intake call, got %d", n)
	}
}

func TestSelectionServiceProceedRequiresSelection(t *testing.T) {
	f := newOrderFixture(t, false, succeed("ORD-1"))
	ctx, buf := notify.WithBuffer(context.Background())

	if _, err := f.selection.Proceed(ctx, "s1"); !errors.Is(err, selection.ErrNothingSelected) {
		t.Fatalf("expected ErrNothingSelected, got %v", err)
	}
	if toasts := buf.Drain(); len(toasts) != 1 || toasts[0].Message != selection.MsgNothingSelected {
		t.Fatalf("unexpected toasts %+v", toasts)
	}

	f.handOff(t, "s1")
	load, err := f.orders.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if load.View.TotalPrice != 99000 || load.View.Order == nil {
		t.Fatalf("unexpected order view %+v", load.View)
	}
}

func TestSelectionServiceSubmitRestaurant(t *testing.T) {
	f := newOrderFixture(t, false, succeed("ORD-1"))
	ctx := context.Background()
	view, err := f.selection.Apply(ctx, "s1", func(s *selection.State) error {
		if err := s.SelectBusinessType(domain.BusinessTypeRestaurant); err != nil {
			return err
		}
		if _, err := s.ToggleRestaurantProduct("traffic"); err != nil {
			return err
		}
		s.UpdateRestaurant(selection.RestaurantPatch{BusinessName: strPtr("내가올려 식당"), Phone: strPtr("010-1234-5678")})
		return nil
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if view.TotalPrice != 65000 {
		t.Fatalf("unexpected total %d", view.TotalPrice)
	}

	handoff, err := f.selection.SubmitRestaurant(ctx, "s1")
	if err != nil {
		t.Fatalf("SubmitRestaurant: %v", err)
	}
	if handoff.Redirect.URL != OrderPagePath || handoff.Order.BusinessType != domain.BusinessTypeRestaurant {
		t.Fatalf("unexpected handoff %+v", handoff)
	}
	if raw, err := f.registry.GetSnapshot(ctx, "s1"); err != nil || len(raw) == 0 {
		t.Fatalf("snapshot not stored: %v", err)
	}
}

func TestWorkspacesSweepIdle(t *testing.T) {
	now := testNow
	ws := NewWorkspaces(nil, time.Hour, func() time.Time { return now })
	ws.Get("old")
	now = now.Add(30 * time.Minute)
	ws.Get("fresh")
	now = now.Add(45 * time.Minute)

	if removed := ws.Sweep(); removed != 1 {
		t.Fatalf("expected one idle workspace removed, got %d", removed)
	}
	if ws.Len() != 1 {
		t.Fatalf("expected fresh workspace to remain, have %d", ws.Len())
	}
}

func TestOrderServiceSubmitSendsOnlyValidatedFields(t *testing.T) {
	f := newOrderFixture(t, false, succeed("ORD-9"))
	f.handOff(t, "s1")
	f.fill(t, "s1")

	var blanked atomic.Bool
	orders, err := NewOrderService(OrderServiceDeps{
		Workspaces: f.workspaces,
		Snapshots:  f.registry.Snapshots(),
		Intake:     f.intake,
		Notifier:   notify.RequestNotifier{},
		Clock: func() time.Time {
			// An edit arriving while the submission is being prepared.
			if blanked.CompareAndSwap(false, true) {
				_, _ = f.orders.SetField(context.Background(), "s1", orderform.FieldBusinessName, "")
			}
			return testNow
		},
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}

	_, err = orders.Submit(context.Background(), "s1")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != orderform.FieldBusinessName {
		t.Fatalf("expected business name validation error, got %v", err)
	}
	if calls := f.intake.orders.Load(); calls != 0 {
		t.Fatalf("expected no intake call, got %d", calls)
	}
	if f.workspaces.Get("s1").Form.Submitting() {
		t.Fatal("form must not stay in flight after a refused submission")
	}
}
