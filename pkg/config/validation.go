package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	errs "club-overview-console/pkg/errors"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error for field '%s' with value '%s': %s", e.Field, e.Value, e.Message)
}

// ConfigValidator collects every problem instead of stopping at the first one.
type ConfigValidator struct {
	errors []ValidationError
}

func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{errors: make([]ValidationError, 0)}
}

func (cv *ConfigValidator) AddError(field, value, message string) {
	cv.errors = append(cv.errors, ValidationError{Field: field, Value: value, Message: message})
}

func (cv *ConfigValidator) HasErrors() bool { return len(cv.errors) > 0 }

func (cv *ConfigValidator) GetErrors() []ValidationError { return cv.errors }

func (cv *ConfigValidator) GetErrorsAsString() string {
	lines := make([]string, 0, len(cv.errors))
	for _, err := range cv.errors {
		lines = append(lines, err.Error())
	}
	return strings.Join(lines, "\n")
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	validator := NewConfigValidator()

	c.validateDrivers(validator)
	c.validateFormats(validator)
	c.validateRanges(validator)

	if validator.HasErrors() {
		return errs.NewValidation("config.Validate", fmt.Sprintf("configuration validation failed:\n%s", validator.GetErrorsAsString()), nil)
	}
	return nil
}

// validateDrivers checks that each selected backend has what it needs.
func (c *Config) validateDrivers(validator *ConfigValidator) {
	switch c.RecordStoreDriver {
	case "memory":
	case "mysql":
		if c.DatabaseURL == "" {
			validator.AddError("DATABASE_URL", c.DatabaseURL, "database URL is required for the mysql driver")
		} else if !strings.Contains(c.DatabaseURL, "@") || !strings.Contains(c.DatabaseURL, "/") {
			validator.AddError("DATABASE_URL", c.DatabaseURL, "invalid database URL format")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			validator.AddError("SQLITE_PATH", c.SQLitePath, "sqlite path is required for the sqlite driver")
		}
	default:
		validator.AddError("RECORD_STORE_DRIVER", c.RecordStoreDriver, "must be one of: memory, mysql, sqlite")
	}

	switch c.BlobDriver {
	case "memory":
	case "fs":
		if c.BlobDir == "" {
			validator.AddError("BLOB_DIR", c.BlobDir, "blob directory is required for the fs driver")
		}
	case "s3":
		if c.S3Bucket == "" {
			validator.AddError("S3_BUCKET", c.S3Bucket, "bucket is required for the s3 driver")
		}
		if (c.S3AccessKey == "") != (c.S3SecretKey == "") {
			validator.AddError("S3_ACCESS_KEY", maskString(c.S3AccessKey, 4), "access key and secret key must be set together")
		}
	default:
		validator.AddError("BLOB_DRIVER", c.BlobDriver, "must be one of: memory, fs, s3")
	}
}

func (c *Config) validateFormats(validator *ConfigValidator) {
	for name, port := range map[string]string{"PORT": c.Port, "PROFILING_PORT": c.ProfilingPort} {
		if port == "" {
			validator.AddError(name, port, "port is required")
			continue
		}
		if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
			validator.AddError(name, port, "invalid port number (must be 1-65535)")
		}
	}
	if (c.ProfilingEnabled || c.MetricsEnabled) && c.Port == c.ProfilingPort {
		validator.AddError("PROFILING_PORT", c.ProfilingPort, "port conflict with PORT")
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	if c.LogLevel != "" && !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		validator.AddError("LOG_LEVEL", c.LogLevel, "invalid log level (must be one of: trace, debug, info, warn, error, fatal)")
	}
	if c.LogFormat != "" && c.LogFormat != "json" && c.LogFormat != "text" {
		validator.AddError("LOG_FORMAT", c.LogFormat, "invalid log format (must be 'json' or 'text')")
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		validator.AddError("METRICS_PATH", c.MetricsPath, "metrics path must start with '/'")
	}
	if c.ClubImagesPrefix == "" || c.LogosPrefix == "" || c.ClubOffersDir == "" {
		validator.AddError("CLUB_IMAGES_PREFIX", c.ClubImagesPrefix, "storage layout prefixes must not be empty")
	}
}

func (c *Config) validateRanges(validator *ConfigValidator) {
	if c.UploadConcurrency < 1 || c.UploadConcurrency > 64 {
		validator.AddError("UPLOAD_CONCURRENCY", strconv.Itoa(c.UploadConcurrency), "upload concurrency must be between 1 and 64")
	}
	if c.MaxAllocationAttempts < 1 {
		validator.AddError("MAX_ALLOCATION_ATTEMPTS", strconv.Itoa(c.MaxAllocationAttempts), "allocation attempt cap must be positive")
	}
	if c.BlobFailureRate < 0 || c.BlobFailureRate > 1 {
		validator.AddError("BLOB_FAILURE_RATE", strconv.FormatFloat(c.BlobFailureRate, 'f', -1, 64), "failure rate must be between 0 and 1")
	}
	if c.RecordStoreDriver == "mysql" {
		if c.DBMaxOpenConns < 1 || c.DBMaxOpenConns > 1000 {
			validator.AddError("DB_MAX_OPEN_CONNS", strconv.Itoa(c.DBMaxOpenConns), "max open connections must be between 1 and 1000")
		}
		if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
			validator.AddError("DB_MAX_IDLE_CONNS", strconv.Itoa(c.DBMaxIdleConns), "max idle connections must be between 0 and max open connections")
		}
	}
	if c.DBReadTimeout <= 0 || c.DBWriteTimeout <= 0 {
		validator.AddError("DB_READ_TIMEOUT", c.DBReadTimeout.String(), "database timeouts must be positive")
	}
	if c.ConfigReloadIntervalSeconds < 1 {
		validator.AddError("CONFIG_RELOAD_INTERVAL_SECONDS", strconv.Itoa(c.ConfigReloadIntervalSeconds), "reload interval must be at least 1 second")
	}
}

// GetConfigSummary returns a summary of the configuration with secrets masked.
func (c *Config) GetConfigSummary() map[string]interface{} {
	return map[string]interface{}{
		"port":                c.Port,
		"record_store_driver": c.RecordStoreDriver,
		"database_url":        maskString(c.DatabaseURL, 12),
		"redis_addr":          c.RedisAddr,
		"blob_driver":         c.BlobDriver,
		"s3_bucket":           c.S3Bucket,
		"s3_endpoint":         c.S3Endpoint,
		"s3_secret_key":       maskString(c.S3SecretKey, 0),
		"google_maps_api_key": maskString(c.GoogleMapsAPIKey, 6),
		"upload_concurrency":  c.UploadConcurrency,
		"log_level":           c.LogLevel,
		"log_format":          c.LogFormat,
		"metrics_enabled":     c.MetricsEnabled,
		"env":                 c.Env,
	}
}

// maskString masks sensitive strings for logging/display
func maskString(s string, keepFirst int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keepFirst {
		return strings.Repeat("*", len(s))
	}
	return s[:keepFirst] + strings.Repeat("*", len(s)-keepFirst)
}
