package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireSharedSecret guards service-to-service endpoints. The request must carry
// secret() in header; while no secret is configured every request is refused.
func RequireSharedSecret(header string, secret func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := secret()
		if expected == "" {
			abortWithAuthError(c, http.StatusForbidden, "ENDPOINT_DISABLED", "This endpoint is not enabled")
			return
		}

		if subtle.ConstantTimeCompare([]byte(c.GetHeader(header)), []byte(expected)) != 1 {
			log.Printf("[AUTH] %s %s rejected: bad %s header", c.Request.Method, c.FullPath(), header)
			abortWithAuthError(c, http.StatusUnauthorized, "INVALID_SECRET", "Missing or invalid "+header+" header")
			return
		}

		c.Next()
	}
}
