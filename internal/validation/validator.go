package validation

import (
	"fmt"
	"reflect"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-marketplace-api/internal/money"
)

// New returns a configured validator with the money type and struct-level rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// money.Amount validates as its float value so numeric tags (gt, min) apply.
	v.RegisterCustomTypeFunc(amountValue, money.Amount{})

	// a product cannot require more per order than it has in stock.
	v.RegisterStructValidation(productStructValidation, ProductRequest{})

	return v
}

func amountValue(field reflect.Value) interface{} {
	a, ok := field.Interface().(money.Amount)
	if !ok {
		return nil
	}
	f, _ := a.Float64()
	return f
}

// productStructValidation rejects a minimum order quantity above the stock on hand.
func productStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(ProductRequest)
	if req.MOQ > 0 && req.MOQ > req.Quantity {
		sl.ReportError(req.MOQ, "moq", "MOQ", "moq_within_stock", fmt.Sprintf("moq %d > quantity %d", req.MOQ, req.Quantity))
	}
}
