package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/bitecraft/storefront-api/config"
	"github.com/gin-gonic/gin"
)

// Gin context keys set by EnsureValidToken
const (
	UserIDKey = "user_id"
	ClaimsKey = "validated_claims"
)

const invalidTokenBody = `{"success":false,"error":{"code":"INVALID_TOKEN","message":"Missing or invalid bearer token"}}`

// CustomClaims holds the non-registered claims staff tokens carry. Roles live
// under a namespaced claim added by the identity provider.
type CustomClaims struct {
	Scope string   `json:"scope"`
	Roles []string `json:"https://bitecraft.com/roles"`
}

// Validate satisfies validator.CustomClaims; roles are checked per route.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// HasRole checks whether the token carries a role, case-insensitively.
func (c CustomClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}

// newTokenValidator builds an RS256 validator against the tenant's JWKS
func newTokenValidator(cfg *config.Config) (*validator.Validator, error) {
	issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	return validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Auth0Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
}

func writeInvalidToken(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("[AUTH] rejected token for %s %s: %v", r.Method, r.URL.Path, err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if _, writeErr := w.Write([]byte(invalidTokenBody)); writeErr != nil {
		log.Printf("[AUTH] failed to write error response: %v", writeErr)
	}
}

// EnsureValidToken validates the bearer token and stores the subject and claims
// in the gin context. Requests without a valid token get a 401 and stop here.
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	tokenValidator, err := newTokenValidator(cfg)
	if err != nil {
		log.Fatalf("Failed to set up the jwt validator: %v", err)
	}

	checker := jwtmiddleware.New(
		tokenValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(writeInvalidToken),
	)

	return func(c *gin.Context) {
		passed := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true

			claims := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			c.Set(UserIDKey, claims.RegisteredClaims.Subject)
			c.Set(ClaimsKey, claims)
			c.Request = r

			c.Next()
		})

		checker.CheckJWT(next).ServeHTTP(c.Writer, c.Request)

		// writeInvalidToken already answered
		if !passed {
			c.Abort()
		}
	}
}

// GetUserID returns the token subject of the authenticated staff member
func GetUserID(c *gin.Context) (string, error) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userID, ok := value.(string)
	if !ok || userID == "" {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}
	return userID, nil
}

// GetClaims returns the validated JWT claims stored by EnsureValidToken
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	value, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	claims, ok := value.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}
	return claims, nil
}

// RequireRole only lets tokens carrying role through. It must run after
// EnsureValidToken.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := GetClaims(c)
		if err != nil {
			abortWithAuthError(c, http.StatusUnauthorized, "MISSING_CLAIMS", "Could not retrieve token claims")
			return
		}

		custom, ok := claims.CustomClaims.(*CustomClaims)
		if !ok || !custom.HasRole(role) {
			log.Printf("[AUTH] %s denied: missing role %q", claims.RegisteredClaims.Subject, role)
			abortWithAuthError(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions to access this resource")
			return
		}

		c.Next()
	}
}

func abortWithAuthError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// AuthError is returned by the context accessors
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
