package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
	"github.com/imrishuroy/go-marketplace-api/internal/middleware"
	"github.com/imrishuroy/go-marketplace-api/internal/products"
	"github.com/imrishuroy/go-marketplace-api/internal/validation"
)

const defaultPageLimit = 10

func (h *handler) listProducts(c *gin.Context) {
	list, err := h.Products.List(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) getProduct(c *gin.Context) {
	id := c.Param("id")
	p, err := h.Products.Get(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	if p == nil {
		middleware.AbortWithError(c, fmt.Errorf("product %s: %w", id, apperr.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) homeProducts(c *gin.Context) {
	list, err := h.Products.ListHome(c.Request.Context(), h.HomeProductsLimit)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) paginateProducts(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", defaultPageLimit)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	res, err := h.Products.Paginate(c.Request.Context(), page, limit)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q: %w", name, raw, apperr.ErrValidationFailed)
	}
	return n, nil
}

func (h *handler) createProduct(c *gin.Context) {
	var req validation.ProductRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	ctx := c.Request.Context()
	caller := principal(c)
	u, err := h.Users.GetByEmail(ctx, caller.Email)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	manager := products.Manager{Email: caller.Email}
	if u != nil {
		manager.ID, manager.Name = u.UserID, u.Name
	}

	p, err := h.Products.Create(ctx, products.Product{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		Quantity:      req.Quantity,
		MOQ:           req.MOQ,
		Images:        req.Images,
		Video:         req.Video,
		PaymentOption: req.PaymentOption,
		ShowOnHome:    req.ShowOnHome && caller.IsAdmin(),
		Manager:       manager,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Header("Location", "/products/"+p.ProductID)
	c.JSON(http.StatusCreated, p)
}

// ownedProduct loads the product and checks that a manager caller owns it. Admins may act on any product.
func (h *handler) ownedProduct(c *gin.Context) (*products.Product, bool) {
	id := c.Param("id")
	p, err := h.Products.Get(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return nil, false
	}
	if p == nil {
		middleware.AbortWithError(c, fmt.Errorf("product %s: %w", id, apperr.ErrNotFound))
		return nil, false
	}
	caller := principal(c)
	if !caller.IsAdmin() && !strings.EqualFold(p.Manager.Email, caller.Email) {
		middleware.AbortWithError(c, fmt.Errorf("product %s belongs to another manager: %w", id, apperr.ErrAuthorizationDenied))
		return nil, false
	}
	return p, true
}

func (h *handler) replaceProduct(c *gin.Context) {
	var req validation.ProductRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	p, ok := h.ownedProduct(c)
	if !ok {
		return
	}
	f := products.Fields{
		Title:         &req.Title,
		Description:   &req.Description,
		Category:      &req.Category,
		Price:         &req.Price,
		Quantity:      &req.Quantity,
		MOQ:           &req.MOQ,
		Images:        req.Images,
		Video:         &req.Video,
		PaymentOption: &req.PaymentOption,
	}
	if principal(c).IsAdmin() {
		f.ShowOnHome = &req.ShowOnHome
	} else {
		// only admins curate the homepage
		f.ShowOnHome = &p.ShowOnHome
	}
	if _, err := h.Products.Replace(c.Request.Context(), p.ProductID, f); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, modifiedOne)
}

func (h *handler) patchProduct(c *gin.Context) {
	var req validation.ProductPatchRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	p, ok := h.ownedProduct(c)
	if !ok {
		return
	}
	f := products.Fields{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		Quantity:      req.Quantity,
		MOQ:           req.MOQ,
		Images:        req.Images,
		Video:         req.Video,
		PaymentOption: req.PaymentOption,
	}
	if _, err := h.Products.Patch(c.Request.Context(), p.ProductID, f); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, modifiedOne)
}

func (h *handler) deleteProduct(c *gin.Context) {
	p, ok := h.ownedProduct(c)
	if !ok {
		return
	}
	if err := h.Products.Delete(c.Request.Context(), p.ProductID); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedCount": 1})
}

func (h *handler) showOnHome(c *gin.Context) {
	var req validation.ShowHomeRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	if _, err := h.Products.SetShowOnHome(c.Request.Context(), c.Param("id"), *req.ShowOnHome); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, modifiedOne)
}

func (h *handler) productsByManager(c *gin.Context) {
	email := strings.ToLower(c.Param("email"))
	if !selfOrAdmin(c, email) {
		return
	}
	list, err := h.Products.ListByManager(c.Request.Context(), email)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// selfOrAdmin allows the caller to read data keyed by their own email; admins may read anyone's.
func selfOrAdmin(c *gin.Context, email string) bool {
	caller := principal(c)
	if caller.IsAdmin() || strings.EqualFold(caller.Email, email) {
		return true
	}
	middleware.AbortWithError(c, fmt.Errorf("%s may not read data of %s: %w", caller.Email, email, apperr.ErrAuthorizationDenied))
	return false
}
