package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers understood by the file store factory.
const (
	StorageLocal    = "local"
	StorageMinio    = "minio"
	StorageSupabase = "supabase"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Supabase   SupabaseConfig
	Storage    StorageConfig
	Compliance ComplianceConfig
	Dashboard  DashboardConfig
	Tracing    TracingConfig
	CORS       CORSConfig
	Log        LogConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig describes how access tokens issued by the hosted auth provider are verified.
type AuthConfig struct {
	JWTSecret    string
	Issuer       string
	Audience     string
	RemoteVerify bool
}

// SupabaseConfig points at the hosted platform's REST endpoints.
type SupabaseConfig struct {
	URL            string
	AnonKey        string
	ServiceKey     string
	Bucket         string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrent  int
}

// StorageConfig selects and tunes the file store for version and entry uploads.
type StorageConfig struct {
	Driver           string
	LocalDir         string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	Minio            MinioConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ComplianceConfig tunes expiration reporting and the reconciliation job.
type ComplianceConfig struct {
	ExpiringSoonDays  int
	ReconcileEnabled  bool
	ReconcileInterval time.Duration
	WorkerRetries     int
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheTTL time.Duration
}

type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Auth = AuthConfig{
		JWTSecret:    v.GetString("JWT_SECRET"),
		Issuer:       v.GetString("JWT_ISSUER"),
		Audience:     v.GetString("JWT_AUDIENCE"),
		RemoteVerify: v.GetBool("AUTH_REMOTE_VERIFY"),
	}

	cfg.Supabase = SupabaseConfig{
		URL:            strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
		AnonKey:        v.GetString("SUPABASE_ANON_KEY"),
		ServiceKey:     v.GetString("SUPABASE_SERVICE_KEY"),
		Bucket:         v.GetString("SUPABASE_BUCKET"),
		Timeout:        parseDuration(v.GetString("SUPABASE_TIMEOUT"), 10*time.Second),
		MaxRetries:     v.GetInt("SUPABASE_MAX_RETRIES"),
		InitialBackoff: parseDuration(v.GetString("SUPABASE_INITIAL_BACKOFF"), 200*time.Millisecond),
		MaxConcurrent:  v.GetInt("SUPABASE_MAX_CONCURRENT"),
	}

	maxFileSize := v.GetInt64("STORAGE_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 20 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Driver:           strings.ToLower(v.GetString("STORAGE_DRIVER")),
		LocalDir:         v.GetString("STORAGE_LOCAL_DIR"),
		SignedURLSecret:  v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 30*time.Minute),
		MaxFileSizeBytes: maxFileSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("STORAGE_ALLOWED_MIME_TYPES")),
		Minio: MinioConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
	}

	cfg.Compliance = ComplianceConfig{
		ExpiringSoonDays:  v.GetInt("EXPIRING_SOON_DAYS"),
		ReconcileEnabled:  v.GetBool("ENABLE_EXPIRATION_RECONCILER"),
		ReconcileInterval: parseDuration(v.GetString("EXPIRATION_RECONCILE_INTERVAL"), time.Hour),
		WorkerRetries:     v.GetInt("EXPIRATION_WORKER_RETRIES"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Tracing = TracingConfig{
		Enabled:      v.GetBool("ENABLE_TRACING"),
		OTLPEndpoint: v.GetString("OTLP_ENDPOINT"),
		ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "compliance_docs")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "authenticated")
	v.SetDefault("AUTH_REMOTE_VERIFY", false)

	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_BUCKET", "documents")
	v.SetDefault("SUPABASE_TIMEOUT", "10s")
	v.SetDefault("SUPABASE_MAX_RETRIES", 2)
	v.SetDefault("SUPABASE_INITIAL_BACKOFF", "200ms")
	v.SetDefault("SUPABASE_MAX_CONCURRENT", 8)

	v.SetDefault("STORAGE_DRIVER", StorageLocal)
	v.SetDefault("STORAGE_LOCAL_DIR", "./uploads")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "30m")
	v.SetDefault("STORAGE_MAX_FILE_SIZE", 20*1024*1024)
	v.SetDefault("STORAGE_ALLOWED_MIME_TYPES", "application/pdf,application/vnd.openxmlformats-officedocument.wordprocessingml.document,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,image/png,image/jpeg")
	v.SetDefault("MINIO_BUCKET", "documents")
	v.SetDefault("MINIO_USE_SSL", false)

	v.SetDefault("EXPIRING_SOON_DAYS", 30)
	v.SetDefault("ENABLE_EXPIRATION_RECONCILER", true)
	v.SetDefault("EXPIRATION_RECONCILE_INTERVAL", "1h")
	v.SetDefault("EXPIRATION_WORKER_RETRIES", 3)

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_TRACING", false)
	v.SetDefault("OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_SERVICE_NAME", "compliance-docs-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
