package middleware

import (
	"net/http" // HTTP status codes

	"billing_system/internal/authz"  // Authorization policies
	"billing_system/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
)

// RequireStaff lets only administrators through. Must run after Authenticate.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Anonymous callers and non-staff identities are both refused
		if err := authz.Staff(CurrentUser(c)); err != nil {
			abort(c, http.StatusForbidden, domain.KindPermission, err.Error())
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
