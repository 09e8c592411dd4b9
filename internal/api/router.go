package api

import (
	"strings" // Path manipulation
	"time"    // Durations

	"billing_system/internal/account"    // Account service
	"billing_system/internal/domain"     // Account kinds
	"billing_system/internal/events"     // Domain events
	"billing_system/internal/identity"   // Identity service
	"billing_system/internal/middleware" // Custom middleware
	"billing_system/internal/purchase"   // Purchase service

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// Deps are the collaborators the HTTP surface is built from
type Deps struct {
	DB             *gorm.DB         // Database handle
	Redis          *redis.Client    // Optional cache, nil disables caching and rate limiting
	Publisher      events.Publisher // Domain event sink
	JWTSecret      string           // HS256 signing secret
	JWTTTL         time.Duration    // Access token lifetime
	CacheTTL       time.Duration    // Cached projection lifetime
	LoginRateLimit int              // Token requests per minute per username
}

// NewRouter wires services, middleware and routes
func NewRouter(d Deps) *gin.Engine {
	ids := identity.NewService(d.DB)
	accounts := account.NewService(d.DB, d.Redis, d.CacheTTL, d.Publisher)
	purchases := purchase.NewService(d.DB, d.Redis, d.Publisher)

	r := gin.New() // Gin router instance
	r.RedirectTrailingSlash = false
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())

	r.GET("/healthz", HealthHandler(d.DB, d.Redis)) // Liveness and dependency check

	// Every API route accepts an optional bearer token
	apiGroup := r.Group("/api")
	apiGroup.Use(middleware.Authenticate(d.JWTSecret, d.DB))

	// Merchant and customer routes share handlers parameterised by kind
	for _, kind := range []domain.AccountKind{domain.KindMerchant, domain.KindCustomer} {
		base := "/" + kind.Table()
		handle(apiGroup, "GET", base, ListAccountsHandler(accounts, kind))
		handle(apiGroup, "POST", base, CreateAccountHandler(accounts, kind))
		handle(apiGroup, "GET", base+"/:id", GetAccountHandler(accounts, kind))
		handle(apiGroup, "PUT", base+"/:id", UpdateAccountHandler(accounts, kind))
		handle(apiGroup, "DELETE", base+"/:id", DeleteAccountHandler(accounts, kind))
	}

	handle(apiGroup, "POST", "/transaction/:merchantId/:price", PurchaseHandler(purchases)) // Purchase endpoint
	handle(apiGroup, "POST", "/auth/token",
		middleware.LoginRateLimit(d.Redis, d.LoginRateLimit),
		TokenHandler(ids, d.JWTSecret, d.JWTTTL)) // Token endpoint

	// Admin routes (administrators only)
	adminGroup := apiGroup.Group("/admin")
	adminGroup.Use(middleware.RequireStaff())
	handle(adminGroup, "GET", "/users", ListUsersHandler(ids, d.Redis, d.CacheTTL))                // List users endpoint
	handle(adminGroup, "DELETE", "/users/:id", DeleteUserHandler(ids, d.Redis, d.Publisher))       // Delete user endpoint
	handle(adminGroup, "GET", "/transactions", ListTransactionsHandler(d.DB, d.Redis, d.CacheTTL)) // List transactions endpoint

	return r
}

// handle registers a route both with and without the trailing slash
func handle(g *gin.RouterGroup, method, path string, handlers ...gin.HandlerFunc) {
	path = strings.TrimSuffix(path, "/")
	g.Handle(method, path, handlers...)
	g.Handle(method, path+"/", handlers...)
}
