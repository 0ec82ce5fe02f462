package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"donationhub/pkg/errutil"
	"donationhub/pkg/identity"
)

const principalKey = "auth.principal"

// Authenticate resolves the bearer credential through the identity verifier
// and stores the principal in the request context. No resource is looked up
// before the credential is verified.
func Authenticate(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			_ = c.Error(errutil.Unauthorized("authorization denied, no token provided", nil))
			c.Abort()
			return
		}

		principal, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireKind gates a route group to a single principal population.
func RequireKind(kind identity.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c)
		if p == nil || p.Kind != kind {
			_ = c.Error(errutil.Forbidden("this operation is not available to your account type", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal, or nil when the route is
// not behind Authenticate.
func PrincipalFrom(c *gin.Context) *identity.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*identity.Principal)
	return p
}
