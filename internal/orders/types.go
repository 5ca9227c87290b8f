package orders

import (
	"time"

	"github.com/imrishuroy/go-marketplace-api/internal/money"
	"github.com/imrishuroy/go-marketplace-api/internal/products"
)

// Order statuses. Cancelled is capitalized to match existing stored data.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "Cancelled"
)

// Buyer is the customer snapshot taken from checkout metadata.
type Buyer struct {
	Email   string `dynamodbav:"email" json:"email"`
	Name    string `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Phone   string `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
	Address string `dynamodbav:"address,omitempty" json:"address,omitempty"`
	Notes   string `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
}

// TrackingEntry is one append-only delivery update.
type TrackingEntry struct {
	Status   string    `dynamodbav:"status" json:"status"`
	Location string    `dynamodbav:"location,omitempty" json:"location,omitempty"`
	Note     string    `dynamodbav:"note,omitempty" json:"note,omitempty"`
	At       time.Time `dynamodbav:"at" json:"at"`
}

// Order represents the item stored in the Orders DynamoDB table.
type Order struct {
	OrderID       string           `dynamodbav:"order_id" json:"id"` // PK
	ProductID     string           `dynamodbav:"product_id" json:"productId"`
	TransactionID string           `dynamodbav:"transaction_id" json:"transactionId"` // payment intent id
	Customer      Buyer            `dynamodbav:"customer" json:"customer"`
	Status        string           `dynamodbav:"status" json:"status"`
	Manager       products.Manager `dynamodbav:"manager" json:"manager"`
	Title         string           `dynamodbav:"title" json:"title"`
	Category      string           `dynamodbav:"category,omitempty" json:"category,omitempty"`
	Image         string           `dynamodbav:"image,omitempty" json:"image,omitempty"`
	Quantity      int              `dynamodbav:"quantity" json:"quantity"`
	Price         money.Amount     `dynamodbav:"price" json:"price"`
	Tracking      []TrackingEntry  `dynamodbav:"tracking" json:"tracking"`
	CreatedAt     time.Time        `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt     time.Time        `dynamodbav:"updated_at" json:"updatedAt"`
	ApprovedAt    *time.Time       `dynamodbav:"approved_at,omitempty" json:"approvedAt,omitempty"`
	RejectedAt    *time.Time       `dynamodbav:"rejected_at,omitempty" json:"rejectedAt,omitempty"`
	CancelledAt   *time.Time       `dynamodbav:"cancelled_at,omitempty" json:"cancelledAt,omitempty"`
}

