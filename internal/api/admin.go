package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Cache lifetime

	"billing_system/internal/account"  // Account projections and cache invalidation
	"billing_system/internal/domain"   // Importing domain models
	"billing_system/internal/events"   // Domain events
	"billing_system/internal/identity" // Identity service
	"billing_system/internal/utils"    // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// AccountSummary is the account owned by a listed user
type AccountSummary struct {
	Kind    domain.AccountKind `json:"kind"`    // merchant or customer
	ID      uint               `json:"id"`      // Account ID
	Balance int64              `json:"balance"` // Current balance
}

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	account.UserView                 // Identity projection
	Account          *AccountSummary `json:"account"` // Owned account, null for administrators
}

type usersPage struct {
	Users      []UserAdminResponse `json:"users"`       // List of users
	Page       int                 `json:"page"`        // Current page
	PageSize   int                 `json:"page_size"`   // Page size
	Total      int64               `json:"total"`       // Total number of users
	TotalPages int                 `json:"total_pages"` // Total pages
	Cached     bool                `json:"cached"`      // Whether the page came from the cache
}

type transactionsPage struct {
	Transactions []domain.Transaction `json:"transactions"` // List of transactions
	Page         int                  `json:"page"`         // Current page
	PageSize     int                  `json:"page_size"`    // Page size
	Total        int64                `json:"total"`        // Total number of transactions
	TotalPages   int                  `json:"total_pages"`  // Total pages
	Cached       bool                 `json:"cached"`       // Whether the page came from the cache
}

// ListUsersHandler returns all users with their account info
func ListUsersHandler(ids *identity.Service, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := pagination(c)
		// Create a cache key based on pagination parameters
		cacheKey := utils.AdminUsersPrefix + "page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached usersPage
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}
		users, total, err := ids.List(ctx, page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := usersPage{
			Users:      make([]UserAdminResponse, len(users)),
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: (int(total) + pageSize - 1) / pageSize, // Calculate total pages
		}
		// Map users to response format
		for i := range users {
			u := &users[i]
			resp.Users[i] = UserAdminResponse{UserView: account.NewUserView(u)}
			switch {
			case u.Merchant != nil:
				resp.Users[i].Account = &AccountSummary{Kind: domain.KindMerchant, ID: u.Merchant.ID, Balance: u.Merchant.Balance}
			case u.Customer != nil:
				resp.Users[i].Account = &AccountSummary{Kind: domain.KindCustomer, ID: u.Customer.ID, Balance: u.Customer.Balance}
			}
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, ttl)
		c.JSON(http.StatusOK, resp)
	}
}

// DeleteUserHandler removes an identity and whichever account it owns
func DeleteUserHandler(ids *identity.Service, rdb *redis.Client, publisher events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := idParam(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		user, err := ids.Delete(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		// Drop cached projections of the removed account
		switch {
		case user.Merchant != nil:
			account.Invalidate(ctx, rdb, domain.KindMerchant, user.Merchant.ID)
		case user.Customer != nil:
			account.Invalidate(ctx, rdb, domain.KindCustomer, user.Customer.ID)
		default:
			_ = utils.DeletePrefix(ctx, rdb, utils.AdminUsersPrefix)
		}
		events.Emit(ctx, publisher, events.IdentityDeleted, account.NewUserView(user))
		c.Status(http.StatusNoContent)
	}
}

// ListTransactionsHandler returns purchase records, optionally filtered by account
func ListTransactionsHandler(db *gorm.DB, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := pagination(c)
		// Build cache key from all query params
		keyParts := []string{
			"customer_id=" + c.Query("customer_id"),
			"merchant_id=" + c.Query("merchant_id"),
			"page=" + strconv.Itoa(page),
			"size=" + strconv.Itoa(pageSize),
		}
		cacheKey := utils.AdminTransactionsPrefix + strings.Join(keyParts, ":")
		var cached transactionsPage
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}
		query := db.WithContext(ctx).Model(&domain.Transaction{}) // Start building the query
		for _, filter := range []string{"customer_id", "merchant_id"} {
			v := c.Query(filter)
			if v == "" {
				continue
			}
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				respondError(c, domain.Validation("%s must be a positive integer", filter))
				return
			}
			query = query.Where(filter+" = ?", id) // Filter by account
		}
		query = query.Session(&gorm.Session{}) // Share the filters between count and fetch
		var total int64                          // Total transaction count
		if err := query.Count(&total).Error; err != nil {
			logrus.WithField("error", err.Error()).Error("Failed to count transactions")
			respondError(c, err)
			return
		}
		txs := []domain.Transaction{} // Slice to hold transactions
		// Fetch paginated transactions, newest first
		if err := query.Order("id desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&txs).Error; err != nil {
			logrus.WithField("error", err.Error()).Error("Failed to fetch transactions")
			respondError(c, err)
			return
		}
		resp := transactionsPage{
			Transactions: txs,
			Page:         page,
			PageSize:     pageSize,
			Total:        total,
			TotalPages:   (int(total) + pageSize - 1) / pageSize,
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, ttl)
		c.JSON(http.StatusOK, resp)
	}
}
