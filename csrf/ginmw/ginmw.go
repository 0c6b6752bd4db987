// Package ginmw adapts the net/http CSRF stages to Gin.
package ginmw

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Wrap runs a net/http middleware (Issuer.Protect, Firewall.Protect, or
// csrf.Chain) inside a Gin chain. The request the middleware passes on,
// carrying the token in its context, replaces c.Request. When the middleware
// answers on its own (412, 500) the Gin chain is aborted.
func Wrap(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		reached := false
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			// keep gin context in sync with the modified *http.Request
			c.Request = r
			c.Next()
		}))
		h.ServeHTTP(c.Writer, c.Request)
		if !reached {
			c.Abort()
		}
	}
}
