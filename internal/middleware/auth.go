package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
	"github.com/imrishuroy/go-marketplace-api/internal/auth"
	"github.com/imrishuroy/go-marketplace-api/internal/users"
)

const principalKey = "principal"

// Principal is the authenticated caller.
type Principal struct {
	Email string
	Role  string
}

func (p Principal) IsAdmin() bool { return p.Role == users.RoleAdmin }

// HasRole reports whether the caller holds any of roles.
func (p Principal) HasRole(roles ...string) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// UserLookup resolves the stored account behind a verified email.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*users.User, error)
}

// RequireAuth verifies the bearer token and loads the caller's role. Callers without a stored
// account act as customers; suspended accounts are refused.
func RequireAuth(verifier auth.Verifier, lookup UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, apperr.ErrAuthenticationMissing)
			return
		}
		email, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		u, err := lookup.GetByEmail(c.Request.Context(), email)
		if err != nil {
			AbortWithError(c, fmt.Errorf("load caller: %w", err))
			return
		}
		p := Principal{Email: email, Role: users.RoleCustomer}
		if u != nil {
			if u.Suspended() {
				AbortWithError(c, fmt.Errorf("account %s is suspended: %w", email, apperr.ErrAuthorizationDenied))
				return
			}
			p.Role = u.EffectiveRole()
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			AbortWithError(c, apperr.ErrAuthenticationMissing)
			return
		}
		if !p.HasRole(roles...) {
			AbortWithError(c, fmt.Errorf("role %s may not %s %s: %w", p.Role, c.Request.Method, c.FullPath(), apperr.ErrAuthorizationDenied))
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the caller set by RequireAuth.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
