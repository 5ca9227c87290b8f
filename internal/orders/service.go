package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
	"github.com/imrishuroy/go-marketplace-api/internal/events"
	"github.com/imrishuroy/go-marketplace-api/internal/metrics"
)

// Actor is the authenticated caller performing a lifecycle action.
type Actor struct {
	Email   string
	IsAdmin bool
}

// Service owns order status transitions and tracking. Events and metrics are best-effort.
type Service struct {
	store   *Store
	events  events.Publisher
	metrics metrics.Recorder
	log     *slog.Logger
}

// NewService falls back to no-op events and metrics when pub or rec is nil.
func NewService(store *Store, pub events.Publisher, rec metrics.Recorder, log *slog.Logger) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, events: pub, metrics: rec, log: log}
}

func (s *Service) Store() *Store { return s.store }

// Get returns the order or a NotFound error.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, notFound(id)
	}
	return o, nil
}

// Approve moves the order to approved whatever its current status.
func (s *Service) Approve(ctx context.Context, id string) error {
	return s.force(ctx, id, StatusApproved, "approved_at")
}

// Reject moves the order to rejected whatever its current status.
func (s *Service) Reject(ctx context.Context, id string) error {
	return s.force(ctx, id, StatusRejected, "rejected_at")
}

func (s *Service) force(ctx context.Context, id, status, stampAttr string) error {
	prev, err := s.store.SetStatus(ctx, id, status, stampAttr)
	if err != nil {
		return err
	}
	if prev != StatusPending {
		s.log.WarnContext(ctx, "order transition from non-pending status",
			"order_id", id, "from", prev, "to", status)
	}
	s.transitioned(ctx, id, prev, status)
	return nil
}

// Cancel moves a pending order to Cancelled. Only the buyer or an admin may cancel.
func (s *Service) Cancel(ctx context.Context, id string, actor Actor) error {
	o, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin && !strings.EqualFold(o.Customer.Email, actor.Email) {
		return fmt.Errorf("cancel order %s: %w", id, apperr.ErrAuthorizationDenied)
	}
	if err := s.store.UpdateStatus(ctx, id, StatusPending, StatusCancelled, "cancelled_at"); err != nil {
		return err
	}
	s.transitioned(ctx, id, StatusPending, StatusCancelled)
	return nil
}

// AppendTracking adds a delivery update. Tracking is independent of status.
func (s *Service) AppendTracking(ctx context.Context, id string, entry TrackingEntry) (*Order, error) {
	o, err := s.store.AppendTracking(ctx, id, entry)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.TypeOrderTracking,
		OrderID:  id,
		Status:   entry.Status,
		Location: entry.Location,
		Note:     entry.Note,
	})
	return o, nil
}

func (s *Service) transitioned(ctx context.Context, id, from, to string) {
	s.publish(ctx, events.Event{
		Type:           events.TypeOrderStatusChanged,
		OrderID:        id,
		Status:         to,
		PreviousStatus: from,
	})
	if err := s.metrics.Count(ctx, metrics.StatusTransitions, map[string]string{"Status": to}); err != nil {
		s.log.WarnContext(ctx, "record metric failed", "metric", metrics.StatusTransitions, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.WarnContext(ctx, "publish event failed", "type", e.Type, "order_id", e.OrderID, "error", err)
	}
}
