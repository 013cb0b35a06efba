package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	SessionStoreCookie = "cookie"
	SessionStoreRedis  = "redis"

	defaultSessionSecret = "change-me"
)

type Config struct {
	AppPort string
	AppMode string

	DatabaseURL    string
	DBHost         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBPort         string
	DBMaxOpenConns int
	DBMaxIdleConns int

	SessionSecret        string
	SessionStore         string
	SessionMaxAgeSeconds int
	HomePath             string
	BcryptCost           int

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	RateLimitEnabled      bool
	AuthRateLimit         int
	AuthRateWindowSeconds int

	CORSAllowedOrigins []string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		AppPort:        getEnv("APP_PORT", "8080"),
		AppMode:        getEnv("APP_MODE", "debug"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "gatekeeper"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),

		SessionSecret:        getEnv("SESSION_SECRET", defaultSessionSecret),
		SessionStore:         getEnv("SESSION_STORE", SessionStoreCookie),
		SessionMaxAgeSeconds: getEnvAsInt("SESSION_MAX_AGE_SECONDS", 12*60*60),
		HomePath:             getEnv("HOME_PATH", "/"),
		BcryptCost:           getEnvAsInt("BCRYPT_COST", 10),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		RateLimitEnabled:      getEnvAsBool("RATE_LIMIT_ENABLED", false),
		AuthRateLimit:         getEnvAsInt("AUTH_RATE_LIMIT", 5),
		AuthRateWindowSeconds: getEnvAsInt("AUTH_RATE_WINDOW_SECONDS", 60),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = cfg.PostgresDSN()
	}

	return cfg
}

// PostgresDSN builds a keyword/value DSN from the DB_* settings.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// RedisAddr returns host:port for the redis client and session store.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// UsesRedis reports whether any component needs a redis connection.
func (c *Config) UsesRedis() bool {
	return c.SessionStore == SessionStoreRedis || c.RateLimitEnabled
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	switch c.SessionStore {
	case SessionStoreCookie, SessionStoreRedis:
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreCookie, SessionStoreRedis, c.SessionStore)
	}

	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if c.AppMode == "release" && c.SessionSecret == defaultSessionSecret {
		return errors.New("SESSION_SECRET must be changed in release mode")
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}

	if !strings.HasPrefix(c.HomePath, "/") {
		return fmt.Errorf("HOME_PATH must be an absolute path, got %q", c.HomePath)
	}

	if c.RateLimitEnabled && (c.AuthRateLimit <= 0 || c.AuthRateWindowSeconds <= 0) {
		return errors.New("AUTH_RATE_LIMIT and AUTH_RATE_WINDOW_SECONDS must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
