// Package paymentstest provides an in-memory payments.Gateway.
package paymentstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
	"github.com/imrishuroy/go-marketplace-api/internal/payments"
)

// Gateway records created sessions and serves seeded ones.
type Gateway struct {
	mu       sync.Mutex
	sessions map[string]*payments.Session
	Created  []payments.SessionSpec

	// Err, when set, is returned by every call.
	Err error
}

func New() *Gateway {
	return &Gateway{sessions: map[string]*payments.Session{}}
}

// Seed makes s retrievable by its ID.
func (g *Gateway) Seed(s payments.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[s.ID] = &s
}

func (g *Gateway) CreateSession(ctx context.Context, spec payments.SessionSpec) (*payments.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.Created = append(g.Created, spec)
	id := fmt.Sprintf("cs_test_%d", len(g.Created))
	s := &payments.Session{
		ID:          id,
		URL:         "https://checkout.test/" + id,
		Status:      "open",
		AmountTotal: spec.Item.UnitAmount * spec.Item.Quantity,
		Metadata:    spec.Metadata,
	}
	g.sessions[id] = s
	return s, nil
}

func (g *Gateway) RetrieveSession(ctx context.Context, id string) (*payments.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	s, ok := g.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no such checkout session %s: %w", id, apperr.ErrValidationFailed)
	}
	cp := *s
	return &cp, nil
}
