package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultMaxLatitude is the northern cut-off applied to external search results.
// Results above it belong to the Iberian coast across the strait and bleed into
// radius searches around Tangier and Tetouan. Observed deployments used values
// between 35.92 and 36.05; 35.92 keeps Ceuta and drops Tarifa.
const DefaultMaxLatitude = 35.92

// Default public Overpass mirrors, tried in rotation.
var DefaultOverpassEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
}

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Search   SearchConfig
	OTEL     OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MinIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectAttempts int
	AutoMigrate     bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// SearchConfig holds the external place search configuration
type SearchConfig struct {
	Provider          string
	GoogleAPIKey      string
	GoogleBaseURL     string
	Region            string
	OverpassEndpoints []string

	LatitudeFilter    bool
	MaxLatitude       float64
	DedupRadiusMeters float64
	MaxRadiusMeters   float64

	MaxPages       int
	PageTokenDelay time.Duration
	RequestTimeout time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Concurrency    int
	RateLimitRPS   float64

	CacheTTLSeconds int
	KeywordsFile    string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", getEnvAsInt("PORT", 5000)),
			Env:  getEnv("APP_ENV", "development"),
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			}),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "hospital_map"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_POOL_MAX", 10),
			MinIdleConns:    getEnvAsInt("DB_POOL_MIN", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnectAttempts: getEnvAsInt("DB_CONNECT_ATTEMPTS", 5),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Search: SearchConfig{
			Provider:          strings.ToLower(getEnv("SEARCH_PROVIDER", "overpass")),
			GoogleAPIKey:      getEnv("GOOGLE_MAPS_API_KEY", ""),
			GoogleBaseURL:     getEnv("GOOGLE_PLACES_URL", ""),
			Region:            getEnv("SEARCH_REGION", "ma"),
			OverpassEndpoints: getEnvAsSlice("OVERPASS_ENDPOINTS", DefaultOverpassEndpoints),
			LatitudeFilter:    getEnvAsBool("SEARCH_LATITUDE_FILTER", true),
			MaxLatitude:       getEnvAsFloat("SEARCH_MAX_LATITUDE", DefaultMaxLatitude),
			DedupRadiusMeters: getEnvAsFloat("SEARCH_DEDUP_RADIUS_METERS", 30),
			MaxRadiusMeters:   getEnvAsFloat("SEARCH_MAX_RADIUS_METERS", 50000),
			MaxPages:          getEnvAsInt("SEARCH_MAX_PAGES", 3),
			PageTokenDelay:    getEnvAsDuration("SEARCH_PAGE_TOKEN_DELAY", 2*time.Second),
			RequestTimeout:    getEnvAsDuration("SEARCH_REQUEST_TIMEOUT", 30*time.Second),
			MaxAttempts:       getEnvAsInt("SEARCH_MAX_ATTEMPTS", 3),
			InitialBackoff:    getEnvAsDuration("SEARCH_INITIAL_BACKOFF", time.Second),
			MaxBackoff:        getEnvAsDuration("SEARCH_MAX_BACKOFF", 8*time.Second),
			Concurrency:       getEnvAsInt("SEARCH_CONCURRENCY", 4),
			RateLimitRPS:      getEnvAsFloat("SEARCH_RATE_LIMIT_RPS", 4),
			CacheTTLSeconds:   getEnvAsInt("SEARCH_CACHE_TTL", 300),
			KeywordsFile:      getEnv("CLASSIFIER_KEYWORDS_FILE", ""),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "hospital-map-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Search.Provider {
	case "overpass":
		if len(c.Search.OverpassEndpoints) == 0 {
			return fmt.Errorf("OVERPASS_ENDPOINTS must list at least one endpoint")
		}
	case "google":
		if c.Search.GoogleAPIKey == "" {
			return fmt.Errorf("GOOGLE_MAPS_API_KEY is required when SEARCH_PROVIDER=google")
		}
	default:
		return fmt.Errorf("unknown SEARCH_PROVIDER %q (want overpass or google)", c.Search.Provider)
	}

	if c.Search.MaxPages < 1 {
		return fmt.Errorf("SEARCH_MAX_PAGES must be at least 1")
	}
	if c.Search.MaxAttempts < 1 {
		return fmt.Errorf("SEARCH_MAX_ATTEMPTS must be at least 1")
	}
	if c.Database.MaxOpenConns < 1 || c.Database.MinIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("invalid pool bounds: min %d, max %d", c.Database.MinIdleConns, c.Database.MaxOpenConns)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string. DATABASE_URL wins over the
// individual DB_* settings.
func (c *DatabaseConfig) DatabaseDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment reports whether the server runs in development mode.
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
