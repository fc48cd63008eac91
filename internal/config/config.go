// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/campuscart/backend/internal/validate"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// JWT Authentication. JWTSecretPrevious accepts tokens signed with the
	// prior secret during rotation.
	JWTSecret         string `koanf:"jwt_secret"`
	JWTSecretPrevious string `koanf:"jwt_secret_previous"`

	// Redis (rate limiting)
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`

	// CORS
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Ranking calibration file (optional JSON overrides)
	RankingCalibrationPath string `koanf:"ranking_calibration_path"`

	// S3 (listing photo storage)
	S3BucketName      string `koanf:"s3_bucket_name"`
	S3Region          string `koanf:"s3_region"`
	S3AccessKeyID     string `koanf:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key"`
	S3Endpoint        string `koanf:"s3_endpoint"`
	S3MaxUploadSizeMB int    `koanf:"s3_max_upload_size_mb"`

	// SES (notification email). Email delivery is disabled when the from
	// address is empty.
	SESRegion      string `koanf:"ses_region"`
	SESFromAddress string `koanf:"ses_from_address"`

	// OpenTelemetry tracing
	TracingEnabled  bool   `koanf:"tracing_enabled"`
	TracingEndpoint string `koanf:"tracing_endpoint"`
	TracingProtocol string `koanf:"tracing_protocol"`

	// Canary deployment routing
	CanaryEnabled        bool   `koanf:"canary_enabled"`
	CanaryTrafficPercent int    `koanf:"canary_traffic_percent"`
	CanaryVersion        string `koanf:"canary_version"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL       = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret         = errors.New("JWT_SECRET is required")
	ErrMissingS3BucketName      = errors.New("S3_BUCKET_NAME is required")
	ErrMissingS3Region          = errors.New("S3_REGION is required")
	ErrMissingS3AccessKeyID     = errors.New("S3_ACCESS_KEY_ID is required")
	ErrMissingS3SecretAccessKey = errors.New("S3_SECRET_ACCESS_KEY is required")
	ErrMissingSESRegion         = errors.New("SES_REGION is required when SES_FROM_ADDRESS is set")
	ErrInvalidSESFromAddress    = errors.New("SES_FROM_ADDRESS must be a valid email address")
	ErrInvalidCORSOrigin        = errors.New("CORS_ALLOWED_ORIGINS entries must be absolute http(s) origins")
	ErrInvalidPort              = errors.New("PORT must be a valid integer")
)

// Default values for non-secret configuration.
const (
	DefaultPort              = 8080
	DefaultEnv               = "development"
	DefaultS3MaxUploadSizeMB = 10
	DefaultTracingProtocol   = "grpc"

	// DefaultCanaryTrafficPercent is the share of traffic routed to a canary
	// deployment when one is enabled without an explicit percentage.
	DefaultCanaryTrafficPercent = 5
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Parse port from env, collecting error if invalid.
	// Try CAMPUSCART_PORT first, then PORT.
	port, portErr := getEnvIntOrDefaultMulti([]string{"CAMPUSCART_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	maxUploadSize, uploadSizeErr := getEnvIntOrDefault("S3_MAX_UPLOAD_SIZE_MB", k.Int("s3_max_upload_size_mb"), DefaultS3MaxUploadSizeMB)
	if uploadSizeErr != nil {
		loadErrs = append(loadErrs, uploadSizeErr)
	}

	tracingEnabled := getEnvBoolOrKoanf("TRACING_ENABLED", k, "tracing_enabled")
	canaryEnabled := getEnvBoolOrKoanf("CANARY_ENABLED", k, "canary_enabled")

	canaryPercent, canaryErr := getEnvIntOrDefault("CANARY_TRAFFIC_PERCENT", k.Int("canary_traffic_percent"), DefaultCanaryTrafficPercent)
	if canaryErr != nil {
		loadErrs = append(loadErrs, canaryErr)
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                   port,
		Env:                    getEnvOrDefaultMulti([]string{"CAMPUSCART_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:            getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		JWTSecret:              getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTSecretPrevious:      getEnvOrKoanf("JWT_SECRET_PREVIOUS", k, "jwt_secret_previous"),
		RedisAddr:              getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		RedisPassword:          getEnvOrKoanf("REDIS_PASSWORD", k, "redis_password"),
		CORSAllowedOrigins:     getEnvListOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
		RankingCalibrationPath: getEnvOrKoanf("RANKING_CALIBRATION_PATH", k, "ranking_calibration_path"),
		S3BucketName:           getEnvOrKoanf("S3_BUCKET_NAME", k, "s3_bucket_name"),
		S3Region:               getEnvOrKoanf("S3_REGION", k, "s3_region"),
		S3AccessKeyID:          getEnvOrKoanf("S3_ACCESS_KEY_ID", k, "s3_access_key_id"),
		S3SecretAccessKey:      getEnvOrKoanf("S3_SECRET_ACCESS_KEY", k, "s3_secret_access_key"),
		S3Endpoint:             getEnvOrKoanf("S3_ENDPOINT", k, "s3_endpoint"),
		S3MaxUploadSizeMB:      maxUploadSize,
		SESRegion:              getEnvOrKoanf("SES_REGION", k, "ses_region"),
		SESFromAddress:         getEnvOrKoanf("SES_FROM_ADDRESS", k, "ses_from_address"),
		TracingEnabled:         tracingEnabled,
		TracingEndpoint:        getEnvOrKoanf("TRACING_ENDPOINT", k, "tracing_endpoint"),
		TracingProtocol:        getEnvOrDefault("TRACING_PROTOCOL", k.String("tracing_protocol"), DefaultTracingProtocol),
		CanaryEnabled:          canaryEnabled,
		CanaryTrafficPercent:   canaryPercent,
		CanaryVersion:          getEnvOrKoanf("CANARY_VERSION", k, "canary_version"),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvBoolOrKoanf returns the environment variable parsed as a bool if set,
// otherwise the koanf value. Unrecognized env values fall through to the file value.
func getEnvBoolOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) bool {
	val := k.Bool(koanfKey)
	if env := os.Getenv(envKey); env != "" {
		switch strings.ToLower(env) {
		case "true", "1", "yes", "on":
			val = true
		case "false", "0", "no", "off":
			val = false
		}
	}
	return val
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvListOrKoanf returns a comma-separated environment variable as a list
// if set, otherwise the koanf list value.
func getEnvListOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) []string {
	if val := os.Getenv(envKey); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return k.Strings(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}

	// S3 configuration is optional. Only validate fields if any S3 value is set.
	if c.S3BucketName != "" || c.S3AccessKeyID != "" || c.S3SecretAccessKey != "" || c.S3Region != "" {
		if c.S3BucketName == "" {
			errs = append(errs, ErrMissingS3BucketName)
		}
		if c.S3Region == "" {
			errs = append(errs, ErrMissingS3Region)
		}
		if c.S3AccessKeyID == "" {
			errs = append(errs, ErrMissingS3AccessKeyID)
		}
		if c.S3SecretAccessKey == "" {
			errs = append(errs, ErrMissingS3SecretAccessKey)
		}
	}

	// CORS origins must parse as web URLs. Private hosts stay legal so a
	// localhost frontend works in development.
	corsConstraints := validate.URLConstraints{
		AllowedSchemes: []string{"https", "http"},
		MaxLength:      2048,
	}
	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			continue
		}
		if _, err := validate.URL(origin, corsConstraints); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidCORSOrigin, origin))
		}
	}

	// SES settings are only checked once a from address enables email.
	if c.SESFromAddress != "" {
		if _, err := validate.Email(c.SESFromAddress); err != nil {
			errs = append(errs, ErrInvalidSESFromAddress)
		}
		if c.SESRegion == "" {
			errs = append(errs, ErrMissingSESRegion)
		}
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                     fmt.Sprintf("%d", c.Port),
		"env":                      c.Env,
		"database_url":             maskDatabaseURL(c.DatabaseURL),
		"jwt_secret":               maskSecret(c.JWTSecret),
		"jwt_secret_previous":      maskSecret(c.JWTSecretPrevious),
		"redis_addr":               c.RedisAddr,
		"redis_password":           maskSecret(c.RedisPassword),
		"cors_allowed_origins":     strings.Join(c.CORSAllowedOrigins, ","),
		"ranking_calibration_path": c.RankingCalibrationPath,
		"s3_bucket_name":           c.S3BucketName,
		"s3_region":                c.S3Region,
		"s3_access_key_id":         maskSecret(c.S3AccessKeyID),
		"s3_secret_access_key":     maskSecret(c.S3SecretAccessKey),
		"s3_endpoint":              c.S3Endpoint,
		"s3_max_upload_size_mb":    fmt.Sprintf("%d", c.S3MaxUploadSizeMB),
		"ses_region":               c.SESRegion,
		"ses_from_address":         c.SESFromAddress,
		"tracing_enabled":          fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_endpoint":         c.TracingEndpoint,
		"tracing_protocol":         c.TracingProtocol,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	// Simple approach: find :// and then mask between : and @
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
