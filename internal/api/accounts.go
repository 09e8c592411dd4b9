package api

import (
	"net/http" // HTTP status codes

	"billing_system/internal/account"    // Account service
	"billing_system/internal/authz"      // Authorization policies
	"billing_system/internal/domain"     // Importing domain models
	"billing_system/internal/middleware" // Caller resolution

	"github.com/gin-gonic/gin" // Gin web framework
)

// CreateAccountRequest represents an account creation request
type CreateAccountRequest struct {
	Username string `json:"username"` // New identity username
	Password string `json:"password"` // New identity password
}

// UpdateAccountRequest represents an account update; read-only fields are ignored
type UpdateAccountRequest struct {
	Balance *int64 `json:"balance"` // Required new balance
	User    *struct {
		IsActive *bool `json:"is_active"` // Administrators only
	} `json:"user"`
}

// ListAccountsHandler returns every account of the kind, or 204 when there are none
func ListAccountsHandler(svc *account.Service, kind domain.AccountKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		views, err := svc.List(c.Request.Context(), kind)
		if err != nil {
			respondError(c, err)
			return
		}
		// An empty listing is still a success
		if len(views) == 0 {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

// CreateAccountHandler provisions an identity and its account (administrators only)
func CreateAccountHandler(svc *account.Service, kind domain.AccountKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := middleware.CurrentUser(c)
		// Role-based refusal comes before looking at the body
		if err := authz.StaffOrReadOnly(caller, false); err != nil {
			respondError(c, err)
			return
		}
		var req CreateAccountRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, domain.Validation("invalid request body: %v", err))
			return
		}
		view, err := svc.Create(c.Request.Context(), caller, kind, req.Username, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

// GetAccountHandler returns one account to any authenticated caller
func GetAccountHandler(svc *account.Service, kind domain.AccountKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authenticated(middleware.CurrentUser(c)); err != nil {
			respondError(c, err)
			return
		}
		id, err := idParam(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		view, err := svc.Get(c.Request.Context(), kind, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// UpdateAccountHandler replaces the writable fields of an account (owner or administrator)
func UpdateAccountHandler(svc *account.Service, kind domain.AccountKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := middleware.CurrentUser(c)
		id, err := idParam(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		// Not found and permission errors take precedence over a malformed body
		if err := svc.Authorize(c.Request.Context(), caller, kind, id); err != nil {
			respondError(c, err)
			return
		}
		var req UpdateAccountRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, domain.Validation("invalid request body: %v", err))
			return
		}
		in := account.UpdateInput{Balance: req.Balance}
		if req.User != nil {
			in.IsActive = req.User.IsActive
		}
		view, err := svc.Update(c.Request.Context(), caller, kind, id, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// DeleteAccountHandler removes an account together with its identity (owner or administrator)
func DeleteAccountHandler(svc *account.Service, kind domain.AccountKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		if err := svc.Delete(c.Request.Context(), middleware.CurrentUser(c), kind, id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
