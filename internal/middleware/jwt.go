package middleware

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"billing_system/internal/domain" // Importing domain models
	"billing_system/internal/utils"  // JWT utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

const userKey = "user" // Context key of the authenticated identity

// Authenticate resolves an optional bearer token to the calling identity.
// Requests without an Authorization header continue anonymously.
func Authenticate(secret string, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// No credentials, the handler decides what anonymous callers may do
		if authHeader == "" {
			c.Next()
			return
		}
		// Reject malformed headers rather than silently ignoring them
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abort(c, http.StatusUnauthorized, domain.KindUnauthenticated, "authorization header must be a bearer token")
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			abort(c, http.StatusUnauthorized, domain.KindUnauthenticated, "invalid or expired token")
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).Take(&user, claims.UserID).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				logrus.WithFields(logrus.Fields{
					"user_id": claims.UserID, // Token subject
					"error":   err.Error(),   // Error message
				}).Error("Failed to load token subject")
			}
			abort(c, http.StatusUnauthorized, domain.KindUnauthenticated, "user not found")
			return
		}
		// Deactivated identities keep valid tokens until expiry; refuse them here
		if !user.IsActive {
			abort(c, http.StatusUnauthorized, domain.KindUnauthenticated, "user is inactive")
			return
		}
		c.Set(userKey, &user) // Store the identity in context
		c.Next()              // Proceed to the next handler
	}
}

// CurrentUser returns the authenticated identity, or nil for anonymous requests
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*domain.User); ok {
			return user
		}
	}
	return nil
}

// abort writes the error body shared with the handlers
func abort(c *gin.Context, status int, kind domain.ErrorKind, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"error": kind, "detail": detail})
}
