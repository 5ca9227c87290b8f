package payments

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
)

func TestSessionParams(t *testing.T) {
	p := sessionParams(SessionSpec{
		Item: LineItem{
			Name:       "Desk lamp",
			Images:     []string{"https://img.example/lamp.png"},
			UnitAmount: 1999,
			Quantity:   1,
		},
		Currency:      "usd",
		CustomerEmail: "b@example.com",
		Metadata:      map[string]string{MetaProductID: "p1", MetaNotes: ""},
		SuccessURL:    "https://shop.example/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     "https://shop.example/product/p1",
	})

	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *p.Mode)
	require.Len(t, p.LineItems, 1)
	li := p.LineItems[0]
	assert.Equal(t, int64(1999), *li.PriceData.UnitAmount)
	assert.Equal(t, "usd", *li.PriceData.Currency)
	assert.Equal(t, "Desk lamp", *li.PriceData.ProductData.Name)
	assert.Nil(t, li.PriceData.ProductData.Description)
	assert.Equal(t, int64(1), *li.Quantity)
	assert.Equal(t, "b@example.com", *p.CustomerEmail)
	assert.Equal(t, "p1", p.Metadata[MetaProductID])
	assert.NotContains(t, p.Metadata, MetaNotes)
	assert.Contains(t, *p.SuccessURL, "{CHECKOUT_SESSION_ID}")
}

func TestFromStripe(t *testing.T) {
	s := fromStripe(&stripe.CheckoutSession{
		ID:            "cs_1",
		URL:           "https://checkout.example/cs_1",
		Status:        stripe.CheckoutSessionStatusComplete,
		AmountTotal:   1999,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_1"},
		Metadata:      map[string]string{MetaProductID: "p1"},
	})
	assert.Equal(t, StatusComplete, s.Status)
	assert.Equal(t, "pi_1", s.PaymentIntent)
	assert.Equal(t, int64(1999), s.AmountTotal)
	assert.Equal(t, "p1", s.Metadata[MetaProductID])

	open := fromStripe(&stripe.CheckoutSession{ID: "cs_2", Status: stripe.CheckoutSessionStatusOpen})
	assert.Empty(t, open.PaymentIntent)
	assert.NotNil(t, open.Metadata)
}

func TestClassify(t *testing.T) {
	missing := &stripe.Error{Code: stripe.ErrorCodeResourceMissing, HTTPStatusCode: http.StatusNotFound, Msg: "No such checkout.session"}
	assert.ErrorIs(t, classify("retrieve", missing), apperr.ErrValidationFailed)

	badReq := &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: http.StatusBadRequest, Msg: "Invalid id"}
	assert.ErrorIs(t, classify("retrieve", badReq), apperr.ErrValidationFailed)

	auth := &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: http.StatusUnauthorized, Msg: "Invalid API Key"}
	assert.ErrorIs(t, classify("retrieve", auth), apperr.ErrUpstreamFailure)

	assert.ErrorIs(t, classify("retrieve", errors.New("dial tcp: timeout")), apperr.ErrUpstreamFailure)
}
