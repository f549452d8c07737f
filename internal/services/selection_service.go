package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/notify"
	"github.com/seungjae8520/hjjtest/internal/repositories"
	"github.com/seungjae8520/hjjtest/internal/selection"
)

// OrderPagePath is where a completed selection continues.
const OrderPagePath = "/order"

var (
	errSelectionWorkspacesRequired = errors.New("selection service: workspaces are required")
	errSelectionSnapshotsRequired  = errors.New("selection service: snapshot repository is required")
)

// ErrSelectionUnavailable indicates the snapshot could not be stored.
var ErrSelectionUnavailable = errors.New("selection service: unavailable")

type SelectionServiceDeps struct {
	Workspaces *Workspaces
	Snapshots  repositories.SnapshotRepository
	Notifier   notify.Notifier
	Logger     func(context.Context, string, map[string]any)
}

type selectionService struct {
	workspaces *Workspaces
	snapshots  repositories.SnapshotRepository
	notifier   notify.Notifier
	logger     func(context.Context, string, map[string]any)
}

func NewSelectionService(deps SelectionServiceDeps) (SelectionService, error) {
	if deps.Workspaces == nil {
		return nil, errSelectionWorkspacesRequired
	}
	if deps.Snapshots == nil {
		return nil, errSelectionSnapshotsRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &selectionService{
		workspaces: deps.Workspaces,
		snapshots:  deps.Snapshots,
		notifier:   deps.Notifier,
		logger:     logger,
	}, nil
}

func (s *selectionService) View(_ context.Context, sessionID string) selection.View {
	var view selection.View
	_ = s.workspaces.Get(sessionID).WithSelection(func(state *selection.State) error {
		view = state.View()
		return nil
	})
	return view
}

// Apply runs fn against the session's selection and returns the resulting view. The view is
// returned even when fn fails so the client can re-render.
func (s *selectionService) Apply(_ context.Context, sessionID string, fn func(*selection.State) error) (selection.View, error) {
	var view selection.View
	err := s.workspaces.Get(sessionID).WithSelection(func(state *selection.State) error {
		err := fn(state)
		view = state.View()
		return err
	})
	return view, err
}

// Proceed hands the general selection over to the order form.
func (s *selectionService) Proceed(ctx context.Context, sessionID string) (Handoff, error) {
	return s.handoff(ctx, sessionID, "selection.proceeded", (*selection.State).Proceed)
}

// SubmitRestaurant hands the restaurant selection over to the order form.
func (s *selectionService) SubmitRestaurant(ctx context.Context, sessionID string) (Handoff, error) {
	return s.handoff(ctx, sessionID, "selection.restaurant_submitted", (*selection.State).SubmitRestaurant)
}

func (s *selectionService) handoff(ctx context.Context, sessionID, event string, build func(*selection.State) (domain.OrderData, error)) (Handoff, error) {
	ws := s.workspaces.Get(sessionID)
	var order domain.OrderData
	err := ws.WithSelection(func(state *selection.State) error {
		var err error
		order, err = build(state)
		return err
	})
	switch {
	case errors.Is(err, selection.ErrNothingSelected):
		notify.Error(ctx, s.notifier, selection.MsgNothingSelected)
		return Handoff{}, err
	case errors.Is(err, selection.ErrRestaurantIncomplete):
		notify.Error(ctx, s.notifier, selection.MsgRestaurantIncomplete)
		return Handoff{}, err
	case err != nil:
		return Handoff{}, err
	}

	raw, err := json.Marshal(order)
	if err != nil {
		return Handoff{}, fmt.Errorf("selection service: encode snapshot: %w", err)
	}
	if err := s.snapshots.PutSnapshot(ctx, sessionID, raw); err != nil {
		s.logger(ctx, "selection.snapshot.failed", map[string]any{"sessionId": sessionID, "error": err.Error()})
		return Handoff{}, translateRepoError(ErrSelectionUnavailable, err)
	}
	_ = ws.Form.Load(raw)

	s.logger(ctx, event, map[string]any{
		"sessionId":    sessionID,
		"businessType": string(order.BusinessType),
		"totalPrice":   order.TotalPrice(),
	})
	return Handoff{Order: order, Redirect: notify.Redirect{URL: OrderPagePath}}, nil
}
