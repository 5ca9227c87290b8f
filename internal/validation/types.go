package validation

import "github.com/imrishuroy/go-marketplace-api/internal/money"

// ProductRequest is the payload for POST /products and PUT /product/:id.
type ProductRequest struct {
	Title         string       `json:"title" validate:"required,max=200"`
	Description   string       `json:"description" validate:"max=5000"`
	Category      string       `json:"category" validate:"required"`
	Price         money.Amount `json:"price" validate:"gt=0"`
	Quantity      int          `json:"quantity" validate:"min=0"`
	MOQ           int          `json:"moq" validate:"min=0"`
	Images        []string     `json:"images" validate:"omitempty,dive,url"`
	Video         string       `json:"video" validate:"omitempty,url"`
	PaymentOption string       `json:"paymentOption"`
	ShowOnHome    bool         `json:"showOnHome"`
}

// ProductPatchRequest is the payload for PATCH /products/update/:id. Absent fields are left as is.
type ProductPatchRequest struct {
	Title         *string       `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string       `json:"description" validate:"omitempty,max=5000"`
	Category      *string       `json:"category" validate:"omitempty,min=1"`
	Price         *money.Amount `json:"price" validate:"omitempty,gt=0"`
	Quantity      *int          `json:"quantity" validate:"omitempty,min=0"`
	MOQ           *int          `json:"moq" validate:"omitempty,min=0"`
	Images        []string      `json:"images" validate:"omitempty,dive,url"`
	Video         *string       `json:"video" validate:"omitempty,url"`
	PaymentOption *string       `json:"paymentOption"`
}

// ShowHomeRequest is the payload for PATCH /products/show-home/:id.
type ShowHomeRequest struct {
	ShowOnHome *bool `json:"showOnHome" validate:"required"`
}

// BuyerInfo is the delivery snapshot collected at checkout.
type BuyerInfo struct {
	Name    string `json:"name" validate:"max=200"`
	Phone   string `json:"phone" validate:"max=40"`
	Address string `json:"address" validate:"required,max=500"`
	Notes   string `json:"notes" validate:"max=500"`
}

// CheckoutRequest is the payload for POST /create-checkout-session.
// Price is what the client displayed; it must match the stored price.
type CheckoutRequest struct {
	ProductID string       `json:"productId" validate:"required"`
	Price     money.Amount `json:"price" validate:"gt=0"`
	Buyer     BuyerInfo    `json:"buyer"`
}

// PaymentSuccessRequest is the payload for POST /payment-success.
type PaymentSuccessRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// TrackingRequest is the payload for PATCH /orders/tracking/:id.
type TrackingRequest struct {
	Status   string `json:"status" validate:"required,max=100"`
	Location string `json:"location" validate:"max=200"`
	Note     string `json:"note" validate:"max=500"`
}

// RoleRequest is the payload for PATCH /users/role/:id.
type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=customer manager admin"`
}

// SuspendRequest is the payload for PATCH /users/suspend/:id.
type SuspendRequest struct {
	Feedback string `json:"feedback" validate:"required,max=1000"`
}

// UpsertUserRequest is the payload for POST /user.
type UpsertUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"max=200"`
	Image string `json:"image" validate:"omitempty,url"`
}
