package api

import (
	"fmt"      // Response formatting
	"net/http" // HTTP status codes
	"strconv"  // Path parameter parsing

	"billing_system/internal/domain"     // Domain errors
	"billing_system/internal/middleware" // Caller resolution
	"billing_system/internal/purchase"   // Purchase service

	"github.com/gin-gonic/gin" // Gin web framework
)

// PurchaseHandler charges the calling customer and credits the merchant named in the path
func PurchaseHandler(svc *purchase.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID, err := idParam(c, "merchantId")
		if err != nil {
			respondError(c, err)
			return
		}
		// Only integers route here; the sign is checked by the service
		price, err := strconv.ParseInt(c.Param("price"), 10, 64)
		if err != nil {
			respondError(c, domain.NotFound("no resource matches %q", c.Param("price")))
			return
		}
		// The paying account is always the caller's own
		res, err := svc.Purchase(c.Request.Context(), middleware.CurrentUser(c), 0, merchantID, price)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"detail": fmt.Sprintf("Transaction Successful, Your Remaining Balance %d", res.CustomerBalance),
		})
	}
}
