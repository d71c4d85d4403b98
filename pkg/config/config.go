package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port     string
	BasePath string

	// Record store
	RecordStoreDriver string // memory, mysql, sqlite
	DatabaseURL       string // mysql DSN
	SQLitePath        string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime int // minutes
	DBConnMaxIdleTime int // minutes
	DBReadTimeout     time.Duration
	DBWriteTimeout    time.Duration

	// Optional list cache in front of the record store
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Blob store
	BlobDriver        string // memory, fs, s3
	BlobDir           string
	BlobBaseURL       string // public URL prefix for the fs driver
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKey       string
	S3SecretKey       string
	S3UsePathStyle    bool
	PresignTTL        time.Duration
	BlobTimeout       time.Duration
	BlobOpenFor       time.Duration
	BlobFailureRate   float64
	UploadConcurrency int

	// Storage layout
	LogosPrefix      string
	ClubImagesPrefix string
	ClubOffersDir    string

	// Preview fallbacks used when a stored image cannot be resolved
	DefaultLogoURL      string
	DefaultBannerURL    string
	DefaultMoodImageURL string
	DefaultOfferURL     string

	// Identifier allocation
	MaxAllocationAttempts int

	// Location lookup
	GoogleMapsAPIKey string

	// Session provider
	AdminsYAMLPath string

	// Logging
	LogLevel  string
	LogFormat string // "json" or "text"
	LogFile   string // empty = stdout

	// Health check
	HealthCheckPath string

	// Environment & profiling/metrics
	Env              string // development, staging, production
	ProfilingEnabled bool
	ProfilingPort    string // also used as admin port
	MetricsEnabled   bool
	MetricsPath      string

	ConfigReloadIntervalSeconds int
}

func Load() *Config {
	dbMaxOpenConns, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "20"))
	dbMaxIdleConns, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))
	dbConnMaxLifetime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_LIFETIME_MINUTES", "10"))
	dbConnMaxIdleTime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_IDLE_TIME_MINUTES", "5"))
	dbReadTO, _ := time.ParseDuration(getEnv("DB_READ_TIMEOUT", "8s"))
	dbWriteTO, _ := time.ParseDuration(getEnv("DB_WRITE_TIMEOUT", "6s"))

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	cacheTTL, _ := time.ParseDuration(getEnv("CACHE_TTL", "60s"))

	s3PathStyle, _ := strconv.ParseBool(getEnv("S3_USE_PATH_STYLE", "false"))
	presignTTL, _ := time.ParseDuration(getEnv("PRESIGN_TTL", "15m"))
	blobTimeout, _ := time.ParseDuration(getEnv("BLOB_TIMEOUT", "30s"))
	blobOpenFor, _ := time.ParseDuration(getEnv("BLOB_OPEN_FOR", "30s"))
	blobFailureRate, _ := strconv.ParseFloat(getEnv("BLOB_FAILURE_RATE", "0.6"), 64)
	uploadConcurrency, _ := strconv.Atoi(getEnv("UPLOAD_CONCURRENCY", "4"))

	maxAttempts, _ := strconv.Atoi(getEnv("MAX_ALLOCATION_ATTEMPTS", "1000000"))

	env := strings.ToLower(getEnv("ENV", "development"))
	profilingDefault := env == "development" || env == "staging"
	profilingEnabled, _ := strconv.ParseBool(getEnv("PROFILING_ENABLED", strconv.FormatBool(profilingDefault)))
	metricsEnabled, _ := strconv.ParseBool(getEnv("METRICS_ENABLED", "true"))

	reloadIntSec, _ := strconv.Atoi(getEnv("CONFIG_RELOAD_INTERVAL_SECONDS", "2"))

	if uploadConcurrency <= 0 {
		log.Printf("[Warning] UPLOAD_CONCURRENCY is %d, using 1", uploadConcurrency)
		uploadConcurrency = 1
	}

	return &Config{
		Port:     getEnv("PORT", "8080"),
		BasePath: getEnv("BASE_PATH", "/"),

		RecordStoreDriver: strings.ToLower(getEnv("RECORD_STORE_DRIVER", "memory")),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		SQLitePath:        getEnv("SQLITE_PATH", "clubs.db"),
		DBMaxOpenConns:    dbMaxOpenConns,
		DBMaxIdleConns:    dbMaxIdleConns,
		DBConnMaxLifetime: dbConnMaxLifetime,
		DBConnMaxIdleTime: dbConnMaxIdleTime,
		DBReadTimeout:     dbReadTO,
		DBWriteTimeout:    dbWriteTO,

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
		CacheTTL:      cacheTTL,

		BlobDriver:        strings.ToLower(getEnv("BLOB_DRIVER", "memory")),
		BlobDir:           getEnv("BLOB_DIR", "./blobs"),
		BlobBaseURL:       getEnv("BLOB_BASE_URL", "/blobs/"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "eu-north-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
		S3UsePathStyle:    s3PathStyle,
		PresignTTL:        presignTTL,
		BlobTimeout:       blobTimeout,
		BlobOpenFor:       blobOpenFor,
		BlobFailureRate:   blobFailureRate,
		UploadConcurrency: uploadConcurrency,

		LogosPrefix:      getEnv("LOGOS_PREFIX", "club_logos"),
		ClubImagesPrefix: getEnv("CLUB_IMAGES_PREFIX", "club_images"),
		ClubOffersDir:    getEnv("CLUB_OFFERS_DIR", "offers"),

		DefaultLogoURL:      getEnv("DEFAULT_LOGO_URL", "/images/default_logo.png"),
		DefaultBannerURL:    getEnv("DEFAULT_BANNER_URL", "/images/default_banner.png"),
		DefaultMoodImageURL: getEnv("DEFAULT_MOOD_IMAGE_URL", "/images/default_mood.png"),
		DefaultOfferURL:     getEnv("DEFAULT_OFFER_URL", "/images/default_offer.png"),

		MaxAllocationAttempts: maxAttempts,

		GoogleMapsAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),
		AdminsYAMLPath:   getEnv("ADMINS_YAML_PATH", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", ""),

		HealthCheckPath: getEnv("HEALTH_CHECK_PATH", "/health"),

		Env:              env,
		ProfilingEnabled: profilingEnabled,
		ProfilingPort:    getEnv("PROFILING_PORT", "6060"),
		MetricsEnabled:   metricsEnabled,
		MetricsPath:      getEnv("METRICS_PATH", "/metrics"),

		ConfigReloadIntervalSeconds: reloadIntSec,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
