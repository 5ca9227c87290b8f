package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
	"github.com/imrishuroy/go-marketplace-api/internal/middleware"
	"github.com/imrishuroy/go-marketplace-api/internal/users"
	"github.com/imrishuroy/go-marketplace-api/internal/validation"
)

func (h *handler) upsertUser(c *gin.Context) {
	var req validation.UpsertUserRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	caller := principal(c)
	if !strings.EqualFold(req.Email, caller.Email) {
		middleware.AbortWithError(c, fmt.Errorf("cannot register %s as %s: %w", req.Email, caller.Email, apperr.ErrAuthorizationDenied))
		return
	}
	u, created, err := h.Users.Upsert(c.Request.Context(), users.User{
		Email: req.Email,
		Name:  req.Name,
		Image: req.Image,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, u)
}

// userRole answers with the implicit customer role for emails that never registered.
func (h *handler) userRole(c *gin.Context) {
	u, err := h.Users.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	role := users.RoleCustomer
	if u != nil {
		role = u.EffectiveRole()
	}
	c.JSON(http.StatusOK, gin.H{"role": role})
}

func (h *handler) listUsers(c *gin.Context) {
	list, err := h.Users.List(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) setRole(c *gin.Context) {
	var req validation.RoleRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	if err := h.Users.SetRole(c.Request.Context(), c.Param("id"), req.Role); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, modifiedOne)
}

func (h *handler) suspendUser(c *gin.Context) {
	var req validation.SuspendRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	id := c.Param("id")
	if id == users.IDForEmail(principal(c).Email) {
		middleware.AbortWithError(c, fmt.Errorf("admins cannot suspend themselves: %w", apperr.ErrValidationFailed))
		return
	}
	if err := h.Users.Suspend(c.Request.Context(), id, req.Feedback); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, modifiedOne)
}

func (h *handler) activateUser(c *gin.Context) {
	if err := h.Users.Activate(c.Request.Context(), c.Param("id")); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, modifiedOne)
}
