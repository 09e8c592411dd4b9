package config

import (
	"fmt"     // For error formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort        string        // Application port
	DBDriver       string        // Database driver: mysql, postgres or sqlite
	DBUser         string        // Database user
	DBPassword     string        // Database password
	DBHost         string        // Database host
	DBPort         string        // Database port
	DBName         string        // Database name
	DBDSN          string        // Raw DSN, used as the file path for sqlite
	JWTSecret      string        // JWT secret key
	JWTTTL         time.Duration // Access token lifetime
	RedisAddr      string        // Redis server address, empty disables caching
	RedisPass      string        // Redis password
	RedisDB        int           // Redis database number
	CacheTTL       time.Duration // Lifetime of cached account projections
	RabbitMQURL    string        // AMQP broker URL, empty logs events instead
	EventsExchange string        // Topic exchange for domain events
	LoginRateLimit int           // Token requests allowed per minute per username
	LogLevel       string        // logrus level name
	IsProd         bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	rateLimit, err := intEnv("LOGIN_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	jwtTTL, err := durationEnv("JWT_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := durationEnv("CACHE_TTL", 60*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppPort:        getEnv("APP_PORT", "8000"),
		DBDriver:       getEnv("DB_DRIVER", "mysql"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBHost:         getEnv("DB_HOST", "127.0.0.1"),
		DBPort:         os.Getenv("DB_PORT"),
		DBName:         os.Getenv("DB_NAME"),
		DBDSN:          os.Getenv("DB_DSN"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTTTL:         jwtTTL,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPass:      os.Getenv("REDIS_PASS"),
		RedisDB:        redisDB,
		CacheTTL:       cacheTTL,
		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		EventsExchange: getEnv("EVENTS_EXCHANGE", "billing.events"),
		LoginRateLimit: rateLimit,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		IsProd:         os.Getenv("IS_PROD") == "true",
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	switch cfg.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want mysql, postgres or sqlite", cfg.DBDriver)
	}
	return cfg, nil
}

// DatabaseDSN builds the driver specific data source name
func (c *Config) DatabaseDSN() string {
	switch c.DBDriver {
	case "postgres":
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, port)
	case "sqlite":
		if c.DBDSN == "" {
			return "billing.db"
		}
		return c.DBDSN
	default:
		port := c.DBPort
		if port == "" {
			port = "3306"
		}
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + c.DBName + "?parseTime=true"
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// durationEnv accepts either a Go duration ("90s") or a plain number of seconds.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
