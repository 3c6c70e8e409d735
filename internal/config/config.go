package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	Server   ServerConfig
	Worker   WorkerConfig
	Metadata MetadataConfig
	Site     SiteConfig
	Resolver ResolverConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
	RabbitMQ RabbitMQConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"10000"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"180s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type WorkerConfig struct {
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type MetadataConfig struct {
	APIKey  string        `envconfig:"TMDB_API_KEY"`
	BaseURL string        `envconfig:"TMDB_BASE_URL" default:"https://api.themoviedb.org/3"`
	Timeout time.Duration `envconfig:"TMDB_TIMEOUT" default:"10s"`
}

type SiteConfig struct {
	BaseURL     string        `envconfig:"SITE_BASE_URL" default:"https://moviebox.ng"`
	StepTimeout time.Duration `envconfig:"SITE_STEP_TIMEOUT" default:"60s"`
	ProxyURL    string        `envconfig:"SITE_PROXY_URL"`
}

type ResolverConfig struct {
	MaxCandidates int           `envconfig:"RESOLVER_MAX_CANDIDATES" default:"4"`
	FetchAttempts int           `envconfig:"RESOLVER_FETCH_ATTEMPTS" default:"3"`
	BackoffStep   time.Duration `envconfig:"RESOLVER_BACKOFF_STEP" default:"1s"`
}

type CacheConfig struct {
	Backend       string        `envconfig:"CACHE_BACKEND" default:"memory"`
	MetadataTTL   time.Duration `envconfig:"CACHE_METADATA_TTL" default:"24h"`
	ResolutionTTL time.Duration `envconfig:"CACHE_RESOLUTION_TTL" default:"6h"`
	SweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"10m"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Enabled  bool   `envconfig:"HISTORY_ENABLED" default:"false"`
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"streamresolve"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"streamresolve"`
	DBName   string `envconfig:"POSTGRES_DB" default:"streamresolve"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type MinIOConfig struct {
	Enabled        bool          `envconfig:"ARCHIVE_ENABLED" default:"false"`
	Endpoint       string        `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	PublicEndpoint string        `envconfig:"MINIO_PUBLIC_ENDPOINT"`
	AccessKey      string        `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey      string        `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket         string        `envconfig:"MINIO_BUCKET" default:"payloads"`
	UseSSL         bool          `envconfig:"MINIO_USE_SSL" default:"false"`
	PresignExpiry  time.Duration `envconfig:"MINIO_PRESIGN_EXPIRY" default:"15m"`
}

type RabbitMQConfig struct {
	Enabled  bool   `envconfig:"PREFETCH_ENABLED" default:"false"`
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"streamresolve"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"streamresolve"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Cache.ResolutionTTL <= 0 {
		errs = append(errs, errors.New("CACHE_RESOLUTION_TTL must be positive"))
	}
	if c.Cache.MetadataTTL <= c.Cache.ResolutionTTL {
		errs = append(errs, errors.New("CACHE_METADATA_TTL must be longer than CACHE_RESOLUTION_TTL"))
	}
	if c.Cache.Backend != CacheBackendMemory && c.Cache.Backend != CacheBackendRedis {
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheBackendMemory, CacheBackendRedis, c.Cache.Backend))
	}
	if c.Resolver.MaxCandidates < 1 {
		errs = append(errs, errors.New("RESOLVER_MAX_CANDIDATES must be at least 1"))
	}
	if c.Resolver.FetchAttempts < 1 {
		errs = append(errs, errors.New("RESOLVER_FETCH_ATTEMPTS must be at least 1"))
	}
	if c.Resolver.BackoffStep < 0 {
		errs = append(errs, errors.New("RESOLVER_BACKOFF_STEP must not be negative"))
	}
	if c.Site.StepTimeout <= 0 {
		errs = append(errs, errors.New("SITE_STEP_TIMEOUT must be positive"))
	}
	if c.Site.BaseURL == "" {
		errs = append(errs, errors.New("SITE_BASE_URL is required"))
	}
	if c.Worker.MaxRetries < 0 {
		errs = append(errs, errors.New("WORKER_MAX_RETRIES must not be negative"))
	}

	return errors.Join(errs...)
}
