package api

import (
	"net/http" // HTTP status codes
	"strconv"  // Path parameter parsing

	"billing_system/internal/domain"     // Domain error taxonomy
	"billing_system/internal/middleware" // Request id for error logs

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// StatusOf maps a domain error kind to its HTTP status
func StatusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case domain.KindPermission:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindThrottled:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": kind, "detail": message}; unknown errors are logged and hidden
func respondError(c *gin.Context, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"request_id": middleware.GetRequestID(c), // Request id
			"path":       c.Request.URL.Path,         // Request path
			"error":      err.Error(),                // Error message
		}).Error("Request failed")
		c.JSON(status, gin.H{"error": "internal_error", "detail": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": domain.KindOf(err), "detail": err.Error()})
}

// idParam parses a numeric path parameter; anything else does not name a resource
func idParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, domain.NotFound("no resource matches %q", c.Param(name))
	}
	return uint(v), nil
}

// pagination reads page and page_size with the listing defaults
func pagination(c *gin.Context) (int, int) {
	page := 1      // Default page
	pageSize := 20 // Default page size
	// If page exists in query
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// Check and set page size within limits
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size
		}
	}
	return page, pageSize
}
