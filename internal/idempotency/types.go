package idempotency

import "time"

// Status values for transaction guard entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// Record is the guard item persisted in the transactions table. Exactly one exists per
// payment-gateway transaction id; it is written in the same transaction as the order it points to.
type Record struct {
	TransactionID string    `dynamodbav:"transaction_id"` // PK
	Status        string    `dynamodbav:"status"`
	OrderID       string    `dynamodbav:"order_id"`
	SessionID     string    `dynamodbav:"session_id,omitempty"`
	CreatedAt     time.Time `dynamodbav:"created_at"`
	UpdatedAt     time.Time `dynamodbav:"updated_at"`
	Note          string    `dynamodbav:"note,omitempty"`
}
