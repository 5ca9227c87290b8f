// Package checkout creates payment sessions and reconciles completed ones into orders.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
	"github.com/imrishuroy/go-marketplace-api/internal/events"
	"github.com/imrishuroy/go-marketplace-api/internal/idempotency"
	"github.com/imrishuroy/go-marketplace-api/internal/metrics"
	"github.com/imrishuroy/go-marketplace-api/internal/money"
	"github.com/imrishuroy/go-marketplace-api/internal/orders"
	"github.com/imrishuroy/go-marketplace-api/internal/payments"
	"github.com/imrishuroy/go-marketplace-api/internal/products"
)

// Outcome says which branch a reconciliation took.
type Outcome string

const (
	// OutcomeCreated: this call created the order and decremented stock.
	OutcomeCreated Outcome = "created"
	// OutcomeExisting: an order for the transaction already existed.
	OutcomeExisting Outcome = "existing"
	// OutcomePending: the session is not complete (or has no payment yet); no order.
	OutcomePending Outcome = "pending"
	// OutcomeProductUnavailable: the paid product no longer exists; no order.
	OutcomeProductUnavailable Outcome = "product_unavailable"
)

// Result is the reconciliation reply. OrderID is empty when no order exists.
type Result struct {
	TransactionID string  `json:"transactionId"`
	OrderID       string  `json:"orderId,omitempty"`
	Outcome       Outcome `json:"outcome"`
}

// HasOrder reports whether an order exists for the transaction.
func (r Result) HasOrder() bool { return r.OrderID != "" }

// SessionRequest is a buyer's request to pay for one unit of a product.
type SessionRequest struct {
	ProductID string
	Price     money.Amount // price the buyer was shown
	Buyer     orders.Buyer
}

// Deps are the collaborators of Service.
type Deps struct {
	Gateway  payments.Gateway
	Products *products.Store
	Orders   *orders.Store
	Guards   *idempotency.Store
	Events   events.Publisher
	Metrics  metrics.Recorder
	Log      *slog.Logger

	ClientDomain string
	Currency     string
}

// Service runs checkout and reconciliation.
type Service struct {
	Deps
}

func NewService(d Deps) *Service {
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Noop{}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Currency == "" {
		d.Currency = "usd"
	}
	return &Service{Deps: d}
}

// CreateSession checks the request against the stored product and opens a hosted checkout
// session for one unit. It returns the session URL.
func (s *Service) CreateSession(ctx context.Context, req SessionRequest) (string, error) {
	p, err := s.Products.Get(ctx, req.ProductID)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", fmt.Errorf("product %s: %w", req.ProductID, apperr.ErrNotFound)
	}
	if p.Quantity < 1 {
		return "", fmt.Errorf("product %s is out of stock: %w", p.ProductID, apperr.ErrValidationFailed)
	}
	if !req.Price.Equal(p.Price) {
		return "", fmt.Errorf("price %s does not match current price %s: %w", req.Price, p.Price, apperr.ErrValidationFailed)
	}

	sess, err := s.Gateway.CreateSession(ctx, payments.SessionSpec{
		Item: payments.LineItem{
			Name:        p.Title,
			Description: p.Description,
			Images:      p.Images,
			UnitAmount:  p.Price.Minor(),
			Quantity:    1,
		},
		Currency:      s.Currency,
		CustomerEmail: req.Buyer.Email,
		Metadata: map[string]string{
			payments.MetaProductID: p.ProductID,
			payments.MetaCustomer:  req.Buyer.Email,
			payments.MetaName:      req.Buyer.Name,
			payments.MetaPhone:     req.Buyer.Phone,
			payments.MetaAddress:   req.Buyer.Address,
			payments.MetaNotes:     req.Buyer.Notes,
		},
		SuccessURL: s.ClientDomain + "/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.ClientDomain + "/product/" + p.ProductID,
	})
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// Reconcile turns a completed checkout session into exactly one order and one stock decrement,
// however many times it is called for the same session.
func (s *Service) Reconcile(ctx context.Context, sessionID string) (*Result, error) {
	sess, err := s.Gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	txID := sess.PaymentIntent
	res := &Result{TransactionID: txID}

	if txID != "" {
		rec, err := s.Guards.Get(ctx, txID)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			res.OrderID, res.Outcome = rec.OrderID, OutcomeExisting
			return s.done(ctx, res), nil
		}
	}

	if sess.Status != payments.StatusComplete || txID == "" {
		res.Outcome = OutcomePending
		return s.done(ctx, res), nil
	}

	productID := sess.Metadata[payments.MetaProductID]
	var p *products.Product
	if productID != "" {
		if p, err = s.Products.Get(ctx, productID); err != nil {
			return nil, err
		}
	}
	if p == nil {
		s.Log.WarnContext(ctx, "paid session references a missing product",
			"session_id", sess.ID, "transaction_id", txID, "product_id", productID)
		res.Outcome = OutcomeProductUnavailable
		return s.done(ctx, res), nil
	}

	orderID := s.Orders.NewID()
	guard, err := s.Guards.GuardPut(s.Guards.NewRecord(txID, orderID, sess.ID))
	if err != nil {
		return nil, err
	}
	created, err := s.Orders.CreateWithTransactionGuard(ctx, guard, orders.Order{
		OrderID:       orderID,
		ProductID:     p.ProductID,
		TransactionID: txID,
		Customer: orders.Buyer{
			Email:   sess.Metadata[payments.MetaCustomer],
			Name:    sess.Metadata[payments.MetaName],
			Phone:   sess.Metadata[payments.MetaPhone],
			Address: sess.Metadata[payments.MetaAddress],
			Notes:   sess.Metadata[payments.MetaNotes],
		},
		Status:   orders.StatusPending,
		Manager:  p.Manager,
		Title:    p.Title,
		Category: p.Category,
		Image:    p.FirstImage(),
		Quantity: 1,
		Price:    money.FromMinor(sess.AmountTotal),
	})
	if errors.Is(err, orders.ErrDuplicateTransaction) {
		// lost the race to a concurrent reconciliation of the same payment
		rec, getErr := s.Guards.Get(ctx, txID)
		if getErr != nil {
			return nil, getErr
		}
		if rec == nil {
			return nil, fmt.Errorf("guard for %s vanished after conflict: %w", txID, err)
		}
		res.OrderID, res.Outcome = rec.OrderID, OutcomeExisting
		return s.done(ctx, res), nil
	}
	if err != nil {
		return nil, err
	}

	s.decrement(ctx, created)

	if err := s.Events.Publish(ctx, events.Event{
		Type:          events.TypeOrderCreated,
		OrderID:       created.OrderID,
		TransactionID: txID,
		ProductID:     created.ProductID,
		Status:        created.Status,
	}); err != nil {
		s.Log.WarnContext(ctx, "publish event failed", "type", events.TypeOrderCreated, "order_id", created.OrderID, "error", err)
	}

	res.OrderID, res.Outcome = created.OrderID, OutcomeCreated
	return s.done(ctx, res), nil
}

// decrement applies the post-hoc stock decrement and finalizes the guard. The order stays
// in place when the decrement fails; the guard records why.
func (s *Service) decrement(ctx context.Context, o *orders.Order) {
	if err := s.Products.DecrementQuantity(ctx, o.ProductID, o.Quantity); err != nil {
		s.Log.ErrorContext(ctx, "inventory decrement failed after order was created",
			"order_id", o.OrderID, "product_id", o.ProductID, "transaction_id", o.TransactionID, "error", err)
		s.count(ctx, metrics.InventoryFailures, nil)
		if markErr := s.Guards.MarkFailed(ctx, o.TransactionID, "decrement: "+err.Error()); markErr != nil {
			s.Log.ErrorContext(ctx, "mark guard failed", "transaction_id", o.TransactionID, "error", markErr)
		}
		return
	}
	if err := s.Guards.MarkDone(ctx, o.TransactionID); err != nil {
		s.Log.ErrorContext(ctx, "mark guard done", "transaction_id", o.TransactionID, "error", err)
	}
}

func (s *Service) done(ctx context.Context, res *Result) *Result {
	s.count(ctx, metrics.ReconcileOutcome, map[string]string{"Outcome": string(res.Outcome)})
	s.Log.InfoContext(ctx, "reconciled checkout session",
		"transaction_id", res.TransactionID, "order_id", res.OrderID, "outcome", res.Outcome)
	return res
}

func (s *Service) count(ctx context.Context, name string, dims map[string]string) {
	if err := s.Metrics.Count(ctx, name, dims); err != nil {
		s.Log.WarnContext(ctx, "record metric failed", "metric", name, "error", err)
	}
}
