package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
	"github.com/imrishuroy/go-marketplace-api/internal/middleware"
	"github.com/imrishuroy/go-marketplace-api/internal/orders"
	"github.com/imrishuroy/go-marketplace-api/internal/validation"
)

func (h *handler) listOrders(c *gin.Context) {
	list, err := h.Orders.Store().ListAll(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) ordersByStatus(status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.Orders.Store().ListByStatus(c.Request.Context(), status)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		caller := principal(c)
		if !caller.IsAdmin() {
			list = managedBy(list, caller.Email)
		}
		c.JSON(http.StatusOK, list)
	}
}

func managedBy(list []orders.Order, email string) []orders.Order {
	out := make([]orders.Order, 0, len(list))
	for _, o := range list {
		if strings.EqualFold(o.Manager.Email, email) {
			out = append(out, o)
		}
	}
	return out
}

func (h *handler) getOrder(c *gin.Context) {
	o, err := h.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	caller := principal(c)
	if !caller.IsAdmin() &&
		!strings.EqualFold(o.Customer.Email, caller.Email) &&
		!strings.EqualFold(o.Manager.Email, caller.Email) {
		middleware.AbortWithError(c, fmt.Errorf("order %s: %w", o.OrderID, apperr.ErrAuthorizationDenied))
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handler) ordersByCustomer(c *gin.Context) {
	email := strings.ToLower(c.Param("email"))
	if !selfOrAdmin(c, email) {
		return
	}
	list, err := h.Orders.Store().ListByCustomer(c.Request.Context(), email)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) ordersByManager(c *gin.Context) {
	email := strings.ToLower(c.Param("email"))
	if !selfOrAdmin(c, email) {
		return
	}
	list, err := h.Orders.Store().ListByManager(c.Request.Context(), email)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// managedOrder checks that a manager caller manages the order. Admins manage every order.
func (h *handler) managedOrder(c *gin.Context) (string, bool) {
	id := c.Param("id")
	caller := principal(c)
	if caller.IsAdmin() {
		return id, true
	}
	o, err := h.Orders.Get(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return "", false
	}
	if !strings.EqualFold(o.Manager.Email, caller.Email) {
		middleware.AbortWithError(c, fmt.Errorf("order %s belongs to another manager: %w", id, apperr.ErrAuthorizationDenied))
		return "", false
	}
	return id, true
}

func (h *handler) approveOrder(c *gin.Context) {
	id, ok := h.managedOrder(c)
	if !ok {
		return
	}
	if err := h.Orders.Approve(c.Request.Context(), id); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, modifiedOne)
}

func (h *handler) rejectOrder(c *gin.Context) {
	id, ok := h.managedOrder(c)
	if !ok {
		return
	}
	if err := h.Orders.Reject(c.Request.Context(), id); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, modifiedOne)
}

func (h *handler) cancelOrder(c *gin.Context) {
	caller := principal(c)
	err := h.Orders.Cancel(c.Request.Context(), c.Param("id"), orders.Actor{Email: caller.Email, IsAdmin: caller.IsAdmin()})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, modifiedOne)
}

func (h *handler) appendTracking(c *gin.Context) {
	var req validation.TrackingRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	id, ok := h.managedOrder(c)
	if !ok {
		return
	}
	_, err := h.Orders.AppendTracking(c.Request.Context(), id, orders.TrackingEntry{
		Status:   req.Status,
		Location: req.Location,
		Note:     req.Note,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, modifiedOne)
}
