package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Upstreams UpstreamConfig
	Locator   LocatorConfig
	Redis     RedisConfig
	Mongo     MongoConfig
	Auth      AuthConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

// UpstreamConfig holds the external services the locator and the prediction gateway talk to.
type UpstreamConfig struct {
	NominatimURL      string
	OverpassURL       string
	PredictionBaseURL string
	UserAgent         string
	GeocoderRPS       float64
	HTTPTimeout       time.Duration
}

// LocatorConfig tunes the doctor search flow.
type LocatorConfig struct {
	RadiiMeters []int
	TopN        int
	RankBy      string
	RatingMode  string
	SessionTTL  time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// MongoConfig holds MongoDB configuration
type MongoConfig struct {
	Enabled  bool
	URI      string
	Database string
}

// AuthConfig holds JWT configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// Load reads an optional .env file, then builds the configuration from the environment.
func Load() (*Config, error) {
	// Missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Env:            getEnv("ENV", "development"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		},
		Upstreams: UpstreamConfig{
			NominatimURL:      getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
			OverpassURL:       getEnv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
			PredictionBaseURL: getEnv("PREDICTION_BASE_URL", "https://healthcureai.onrender.com"),
			UserAgent:         getEnv("HTTP_USER_AGENT", "healthcure-server/1.0"),
			GeocoderRPS:       getEnvAsFloat("GEOCODER_RPS", 1),
			HTTPTimeout:       getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		},
		Locator: LocatorConfig{
			TopN:       getEnvAsInt("TOP_N", 5),
			RankBy:     getEnv("RANK_BY", "insertion"),
			RatingMode: getEnv("RATING_MODE", "random"),
			SessionTTL: getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Mongo: MongoConfig{
			Enabled:  getEnvAsBool("MONGODB_ENABLED", true),
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "healthcure"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvAsDuration("JWT_TTL", 24*time.Hour),
		},
	}

	radii, err := parseRadii(getEnv("SEARCH_RADII_M", "5000,10000,20000"))
	if err != nil {
		return nil, err
	}
	cfg.Locator.RadiiMeters = radii

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the locator cannot run with.
func (c *Config) Validate() error {
	if len(c.Locator.RadiiMeters) == 0 {
		return fmt.Errorf("SEARCH_RADII_M must list at least one radius")
	}
	for i, r := range c.Locator.RadiiMeters {
		if r <= 0 {
			return fmt.Errorf("SEARCH_RADII_M: radius %d must be positive", r)
		}
		if i > 0 && r <= c.Locator.RadiiMeters[i-1] {
			return fmt.Errorf("SEARCH_RADII_M must be strictly increasing, got %v", c.Locator.RadiiMeters)
		}
	}
	if c.Locator.TopN < 1 {
		return fmt.Errorf("TOP_N must be at least 1")
	}
	switch c.Locator.RankBy {
	case "insertion", "distance", "rating":
	default:
		return fmt.Errorf("RANK_BY %q is not one of insertion, distance, rating", c.Locator.RankBy)
	}
	switch c.Locator.RatingMode {
	case "random", "stable":
	default:
		return fmt.Errorf("RATING_MODE %q is not one of random, stable", c.Locator.RatingMode)
	}
	if c.Upstreams.GeocoderRPS <= 0 {
		return fmt.Errorf("GEOCODER_RPS must be positive")
	}
	if c.Mongo.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	return nil
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func parseRadii(value string) ([]int, error) {
	var radii []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("SEARCH_RADII_M: invalid radius %q: %w", part, err)
		}
		radii = append(radii, r)
	}
	return radii, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
