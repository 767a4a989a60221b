/**
 * @description
 * Configuration loader for the Faredown hotels backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 * - standard "fmt": For error reporting
 *
 * @notes
 * - Fails fast if critical variables (Database URL, TBO credentials) are missing.
 * - TBO requires all outbound traffic to originate from an allowlisted IP, so the
 *   supplier section carries both the egress proxy URL and the EndUserIp the
 *   supplier expects to see echoed in every request.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	TBO    TBOConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development", "staging" or "production"
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// TBOConfig holds the hotel supplier endpoints and credentials.
// The dynamic API (search/block/book) authenticates with ClientId/UserName/Password
// via the Authenticate call; the static-data API (country and city lists) uses a
// separate UserName/Password pair passed on every request.
type TBOConfig struct {
	AuthURL    string
	SearchURL  string
	BookingURL string
	StaticURL  string

	ClientID string
	UserName string
	Password string

	StaticUserName string
	StaticPassword string

	// EndUserIp must match an IP on TBO's allowlist; requests are routed through
	// the egress proxy so the source IP is stable.
	EndUserIP string
	ProxyURL  string

	RequestTimeout time.Duration
	MaxRetries     int
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (prod injects env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		TBO: TBOConfig{
			AuthURL:        getEnv("TBO_AUTH_URL", "https://api.tbotechnology.in/SharedServices/SharedData.svc/rest/Authenticate"),
			SearchURL:      getEnv("TBO_SEARCH_URL", "https://tbo.hotelapi.travel/HotelAPI_V10/HotelService.svc/rest"),
			BookingURL:     getEnv("TBO_BOOKING_URL", "https://tbo.hotelapi.travel/HotelAPI_V10/HotelService.svc/rest"),
			StaticURL:      getEnv("TBO_STATIC_URL", "https://api.tbotechnology.in/TBOHolidays_HotelAPI"),
			ClientID:       sanitizeCredential(getEnv("TBO_CLIENT_ID", "")),
			UserName:       sanitizeCredential(getEnv("TBO_USERNAME", "")),
			Password:       sanitizeCredential(getEnv("TBO_PASSWORD", "")),
			StaticUserName: sanitizeCredential(getEnv("TBO_STATIC_USERNAME", "")),
			StaticPassword: sanitizeCredential(getEnv("TBO_STATIC_PASSWORD", "")),
			EndUserIP:      getEnv("TBO_END_USER_IP", ""),
			ProxyURL:       getEnv("TBO_PROXY_URL", ""),
			RequestTimeout: time.Duration(getEnvAsInt("TBO_REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
			MaxRetries:     getEnvAsInt("TBO_MAX_RETRIES", 3),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Server.Env != "test" {
		if cfg.TBO.ClientID == "" || cfg.TBO.UserName == "" || cfg.TBO.Password == "" {
			return fmt.Errorf("TBO_CLIENT_ID, TBO_USERNAME and TBO_PASSWORD are required")
		}
		if cfg.TBO.EndUserIP == "" {
			fmt.Println("Warning: TBO_END_USER_IP is missing. Supplier calls will be rejected unless the source IP is allowlisted.")
		}
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
