package products

import (
	"time"

	"github.com/imrishuroy/go-marketplace-api/internal/money"
)

// Manager is the denormalized owner copied onto products and, later, onto orders.
type Manager struct {
	ID    string `dynamodbav:"id" json:"id"`
	Email string `dynamodbav:"email" json:"email"`
	Name  string `dynamodbav:"name,omitempty" json:"name,omitempty"`
}

// Product represents the item stored in the Products DynamoDB table.
type Product struct {
	ProductID     string       `dynamodbav:"product_id" json:"id"` // PK
	Title         string       `dynamodbav:"title" json:"title"`
	Description   string       `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Category      string       `dynamodbav:"category" json:"category"`
	Price         money.Amount `dynamodbav:"price" json:"price"`
	Quantity      int          `dynamodbav:"quantity" json:"quantity"`
	MOQ           int          `dynamodbav:"moq,omitempty" json:"moq,omitempty"` // minimum order quantity
	Images        []string     `dynamodbav:"images" json:"images"`
	Video         string       `dynamodbav:"video,omitempty" json:"video,omitempty"`
	PaymentOption string       `dynamodbav:"payment_option,omitempty" json:"paymentOption,omitempty"`
	Manager       Manager      `dynamodbav:"manager" json:"manager"`
	ShowOnHome    bool         `dynamodbav:"show_on_home" json:"showOnHome"`
	CreatedAt     time.Time    `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt     time.Time    `dynamodbav:"updated_at" json:"updatedAt"`
}

// FirstImage is the snapshot image recorded on orders.
func (p Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Fields are the manager-editable attributes. PUT replaces all of them; PATCH applies only
// the non-nil ones.
type Fields struct {
	Title         *string
	Description   *string
	Category      *string
	Price         *money.Amount
	Quantity      *int
	MOQ           *int
	Images        []string
	Video         *string
	PaymentOption *string
	ShowOnHome    *bool
}

// Page is one slice of the product listing.
type Page struct {
	Products      []Product `json:"products"`
	TotalProducts int       `json:"totalProducts"`
	TotalPages    int       `json:"totalPages"`
	Page          int       `json:"page"`
	Limit         int       `json:"limit"`
}

func (f Fields) withZeroDefaults() Fields {
	if f.Title == nil {
		f.Title = new(string)
	}
	if f.Description == nil {
		f.Description = new(string)
	}
	if f.Category == nil {
		f.Category = new(string)
	}
	if f.Price == nil {
		f.Price = &money.Amount{}
	}
	if f.Quantity == nil {
		f.Quantity = new(int)
	}
	if f.MOQ == nil {
		f.MOQ = new(int)
	}
	if f.Images == nil {
		f.Images = []string{}
	}
	if f.Video == nil {
		f.Video = new(string)
	}
	if f.PaymentOption == nil {
		f.PaymentOption = new(string)
	}
	if f.ShowOnHome == nil {
		f.ShowOnHome = new(bool)
	}
	return f
}
