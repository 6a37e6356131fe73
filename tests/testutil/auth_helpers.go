package testutil

import (
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/bitecraft/storefront-api/middleware"
	"github.com/gin-gonic/gin"
)

// AdminSubject is the token subject used for staff in tests
const AdminSubject = "auth0|staff-admin"

// MockValidatedClaims creates ValidatedClaims carrying the given roles
func MockValidatedClaims(subject string, roles ...string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  "https://bitecraft.test.auth0.com/",
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{
			Roles: roles,
		},
	}
}

// MockAuthMiddleware stands in for EnsureValidToken: it marks every request as
// authenticated with the given subject and roles
func MockAuthMiddleware(subject string, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, subject)
		c.Set(middleware.ClaimsKey, MockValidatedClaims(subject, roles...))
		c.Next()
	}
}

// MockAdminAuth authenticates every request as a staff admin
func MockAdminAuth() gin.HandlerFunc {
	return MockAuthMiddleware(AdminSubject, "admin")
}
