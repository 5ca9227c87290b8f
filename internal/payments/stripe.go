package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
)

// Stripe implements Gateway with Stripe Checkout.
type Stripe struct {
	sc *client.API
}

// NewStripe returns a gateway using secretKey and the default backends.
func NewStripe(secretKey string) *Stripe {
	return &Stripe{sc: client.New(secretKey, nil)}
}

func (s *Stripe) CreateSession(ctx context.Context, spec SessionSpec) (*Session, error) {
	params := sessionParams(spec)
	params.Context = ctx
	cs, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, classify("create checkout session", err)
	}
	return fromStripe(cs), nil
}

func (s *Stripe) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := s.sc.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, classify("retrieve checkout session "+id, err)
	}
	return fromStripe(cs), nil
}

func sessionParams(spec SessionSpec) *stripe.CheckoutSessionParams {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name:   stripe.String(spec.Item.Name),
		Images: stripe.StringSlice(spec.Item.Images),
	}
	if spec.Item.Description != "" {
		product.Description = stripe.String(spec.Item.Description)
	}
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(spec.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(spec.Item.UnitAmount),
			},
			Quantity: stripe.Int64(spec.Item.Quantity),
		}},
		SuccessURL: stripe.String(spec.SuccessURL),
		CancelURL:  stripe.String(spec.CancelURL),
	}
	if spec.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(spec.CustomerEmail)
	}
	for k, v := range spec.Metadata {
		if v != "" {
			params.AddMetadata(k, v)
		}
	}
	return params
}

func fromStripe(cs *stripe.CheckoutSession) *Session {
	s := &Session{
		ID:          cs.ID,
		URL:         cs.URL,
		Status:      string(cs.Status),
		AmountTotal: cs.AmountTotal,
		Metadata:    cs.Metadata,
	}
	if cs.PaymentIntent != nil {
		s.PaymentIntent = cs.PaymentIntent.ID
	}
	if s.Metadata == nil {
		s.Metadata = map[string]string{}
	}
	return s
}

// classify maps gateway errors onto the shared taxonomy.
func classify(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		switch {
		case se.Code == stripe.ErrorCodeResourceMissing, se.HTTPStatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %s: %w", op, se.Msg, apperr.ErrValidationFailed)
		case se.Type == stripe.ErrorTypeInvalidRequest && se.HTTPStatusCode == http.StatusBadRequest:
			return fmt.Errorf("%s: %s: %w", op, se.Msg, apperr.ErrValidationFailed)
		}
	}
	return fmt.Errorf("%s: %v: %w", op, err, apperr.ErrUpstreamFailure)
}
