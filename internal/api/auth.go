package api

import (
	"net/http" // HTTP status codes
	"time"     // Token lifetime

	"billing_system/internal/domain"   // Domain errors
	"billing_system/internal/identity" // Credential verification
	"billing_system/internal/utils"    // Utility functions

	"github.com/gin-gonic/gin"         // Gin web framework
	"github.com/gin-gonic/gin/binding" // Body binding shared with the rate limiter
	"github.com/sirupsen/logrus"       // Logging library
)

// TokenRequest carries the credentials exchanged for a token
type TokenRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// TokenResponse holds the issued access token
type TokenResponse struct {
	Token string `json:"token"` // JWT token
}

// TokenHandler verifies credentials and returns a signed access token
func TokenHandler(ids *identity.Service, jwtSecret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TokenRequest // Bind JSON request to struct
		// The rate limiter may already have read the body, so bind from the cached copy
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
			respondError(c, domain.Validation("username and password are required"))
			return
		}
		user, err := ids.VerifyCredential(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, user.Username, jwtSecret, ttl)
		if err != nil {
			respondError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":  user.ID,       // User ID
			"username": user.Username, // Username
		}).Info("Token issued")
		// Return the token in the response
		c.JSON(http.StatusOK, TokenResponse{Token: token})
	}
}
