// Package payments talks to the payment gateway's hosted checkout sessions.
package payments

import "context"

// Session status reported once the buyer has paid.
const StatusComplete = "complete"

// Checkout metadata keys. The session carries the buyer snapshot from checkout to reconciliation.
const (
	MetaProductID = "productId"
	MetaCustomer  = "customer"
	MetaName      = "name"
	MetaPhone     = "phone"
	MetaAddress   = "address"
	MetaNotes     = "notes"
)

// LineItem is a single purchasable line. UnitAmount is in minor units.
type LineItem struct {
	Name        string
	Description string
	Images      []string
	UnitAmount  int64
	Quantity    int64
}

// SessionSpec describes a hosted checkout session to create.
type SessionSpec struct {
	Item          LineItem
	Currency      string
	CustomerEmail string
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

// Session is the gateway's view of a checkout session.
type Session struct {
	ID            string
	URL           string
	Status        string
	PaymentIntent string
	AmountTotal   int64 // minor units
	Metadata      map[string]string
}

// Gateway creates and retrieves checkout sessions.
//
// RetrieveSession returns an apperr.ErrValidationFailed error for an unknown or malformed session
// id and an apperr.ErrUpstreamFailure error for anything else the gateway rejects.
type Gateway interface {
	CreateSession(ctx context.Context, spec SessionSpec) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
}
