package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the service configuration
type Config struct {
	HTTPAddr    string `validate:"required"`
	Environment string `validate:"required"`

	Inference InferenceConfig
	Camera    CameraConfig
	Loop      LoopConfig
	Log       LogConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig

	DBPath string `validate:"required"`
}

// InferenceConfig describes the remote emotion inference service
type InferenceConfig struct {
	BaseURL        string        `validate:"required,url"`
	Timeout        time.Duration `validate:"gt=0"`
	HealthInterval time.Duration `validate:"gt=0"`
	HealthGRPCAddr string        // optional gRPC health endpoint (host:port)
}

// CameraConfig describes the capture source
type CameraConfig struct {
	Device string `validate:"required"`
	Width  int    `validate:"gt=0"`
	Height int    `validate:"gt=0"`
	FPS    int    `validate:"gt=0,lte=60"`
}

// LoopConfig holds the detection loop policy constants
type LoopConfig struct {
	DeferDelay    time.Duration `validate:"gt=0"`
	TickInterval  time.Duration `validate:"gte=0"`
	InferenceSize int           `validate:"gt=0"`
	JPEGQuality   int           `validate:"gte=1,lte=100"`
	FallbackSize  int           `validate:"gt=0"`
	StreamQuality int           `validate:"gte=1,lte=100"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level string `validate:"oneof=trace debug info warn warning error fatal panic"`
	File  string
}

// AuthConfig configures control API authentication
type AuthConfig struct {
	Enabled   bool
	Username  string
	Password  string
	JWTSecret string
	JWTExpiry time.Duration `validate:"gt=0"`
}

// RateLimitConfig configures the per-client rate limiter on control routes
type RateLimitConfig struct {
	RPS   float64 `validate:"gt=0"`
	Burst int     `validate:"gt=0"`

	// TrustProxy keys clients on X-Forwarded-For / X-Real-IP. Enable only
	// behind a reverse proxy that overwrites those headers.
	TrustProxy bool
}

// DefaultLoopConfig returns the loop policy constants
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		DeferDelay:    120 * time.Millisecond,
		TickInterval:  60 * time.Millisecond,
		InferenceSize: 160,
		JPEGQuality:   50,
		FallbackSize:  480,
		StreamQuality: 85,
	}
}

// Load reads configuration from an optional .env file and the environment.
// A missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	loop := DefaultLoopConfig()

	cfg := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		Environment: getEnv("APP_ENV", "development"),
		Inference: InferenceConfig{
			BaseURL:        strings.TrimRight(getEnv("INFERENCE_BASE_URL", "http://localhost:5000"), "/"),
			Timeout:        getEnvDuration("INFERENCE_TIMEOUT", 10*time.Second),
			HealthInterval: getEnvDuration("HEALTH_INTERVAL", 5*time.Second),
			HealthGRPCAddr: getEnv("HEALTH_GRPC_ADDR", ""),
		},
		Camera: CameraConfig{
			Device: getEnv("CAMERA_DEVICE", "/dev/video0"),
			Width:  getEnvInt("CAMERA_WIDTH", 640),
			Height: getEnvInt("CAMERA_HEIGHT", 640),
			FPS:    getEnvInt("CAMERA_FPS", 15),
		},
		Loop: LoopConfig{
			DeferDelay:    getEnvDuration("DEFER_DELAY", loop.DeferDelay),
			TickInterval:  getEnvDuration("TICK_INTERVAL", loop.TickInterval),
			InferenceSize: getEnvInt("INFERENCE_SIZE", loop.InferenceSize),
			JPEGQuality:   getEnvInt("JPEG_QUALITY", loop.JPEGQuality),
			FallbackSize:  getEnvInt("FALLBACK_SIZE", loop.FallbackSize),
			StreamQuality: getEnvInt("STREAM_QUALITY", loop.StreamQuality),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
			File:  getEnv("LOG_FILE", ""),
		},
		Auth: AuthConfig{
			Enabled:   getEnvBool("AUTH_ENABLED", false),
			Username:  getEnv("AUTH_USERNAME", "admin"),
			Password:  getEnv("AUTH_PASSWORD", ""),
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWTExpiry: getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
			Burst: getEnvInt("RATE_LIMIT_BURST", 10),

			TrustProxy: getEnvBool("TRUST_PROXY", false),
		},
		DBPath: getEnv("DB_PATH", "./data/emolens.db"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Auth.Enabled && c.Auth.Password == "" {
		return fmt.Errorf("invalid configuration: AUTH_PASSWORD is required when AUTH_ENABLED=true")
	}
	return nil
}

// Validate checks the loop policy on its own, for runtime overrides
func (l LoopConfig) Validate() error {
	if err := validator.New().Struct(l); err != nil {
		return fmt.Errorf("invalid loop configuration: %w", err)
	}
	return nil
}

// IsDev reports whether the service runs in a development environment
func (c *Config) IsDev() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("120ms") or bare integers in milliseconds
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}
