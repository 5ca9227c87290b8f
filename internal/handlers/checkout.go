package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-marketplace-api/internal/checkout"
	"github.com/imrishuroy/go-marketplace-api/internal/middleware"
	"github.com/imrishuroy/go-marketplace-api/internal/orders"
	"github.com/imrishuroy/go-marketplace-api/internal/validation"
)

func (h *handler) createCheckoutSession(c *gin.Context) {
	var req validation.CheckoutRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	url, err := h.Checkout.CreateSession(c.Request.Context(), checkout.SessionRequest{
		ProductID: req.ProductID,
		Price:     req.Price,
		Buyer: orders.Buyer{
			// the buyer is always the authenticated caller
			Email:   principal(c).Email,
			Name:    req.Buyer.Name,
			Phone:   req.Buyer.Phone,
			Address: req.Buyer.Address,
			Notes:   req.Buyer.Notes,
		},
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// paymentSuccess replies 200 when an order exists for the payment and 202 when none does yet.
func (h *handler) paymentSuccess(c *gin.Context) {
	var req validation.PaymentSuccessRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	res, err := h.Checkout.Reconcile(c.Request.Context(), req.SessionID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	status := http.StatusOK
	if !res.HasOrder() {
		status = http.StatusAccepted
	}
	c.JSON(status, res)
}
