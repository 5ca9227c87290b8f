// Package middleware holds the gin middleware shared by every route: request logging,
// authentication, role checks and rate limiting.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
)

const genericMessage = "something went wrong, please try again later"

// AbortWithError writes the error response for err and records err on the context so the
// request logger can report it. Upstream and unexpected failures get a generic message.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	msg := genericMessage
	if apperr.Exposable(err) {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{
		"error":   apperr.Code(err),
		"message": msg,
	})
}
