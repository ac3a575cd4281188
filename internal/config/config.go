package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendCloudinary = "cloudinary"
	BackendMinio      = "minio"
)

type Config struct {
	App         AppConfig
	Mongo       MongoConfig
	Assets      AssetsConfig
	Cloudinary  CloudinaryConfig
	Minio       MinioConfig
	Auth        AuthConfig
	RateLimiter RateLimiterConfig
	Cache       CacheConfig
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// a missing .env is normal outside local development
		_ = godotenv.Load(f)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Assets.Backend) {
	case BackendCloudinary:
		if c.Cloudinary.URL == "" {
			return errors.New("CLOUDINARY_URL is required for the cloudinary asset backend")
		}
	case BackendMinio:
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" {
			return errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required for the minio asset backend")
		}
	default:
		return fmt.Errorf("unknown ASSET_BACKEND %q", c.Assets.Backend)
	}
	if c.Assets.UploadConcurrency <= 0 {
		return errors.New("ASSET_UPLOAD_CONCURRENCY must be positive")
	}
	return nil
}

type AppConfig struct {
	Addr        string `envconfig:"ADDR" default:":8080"`
	Env         string `envconfig:"ENV" default:"development"`
	ExternalURL string `envconfig:"EXTERNAL_URL" default:"localhost:8080"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, "production") || strings.EqualFold(a.Env, "prod")
}

type MongoConfig struct {
	URI               string        `envconfig:"MONGODB_URI" required:"true"`
	ProsmartDB        string        `envconfig:"MONGODB_DB_PROSMART" default:"prosmart_db"`
	HydraliteDB       string        `envconfig:"MONGODB_DB_HYDRALITE" default:"hydralite"`
	MaxPoolSize       uint64        `envconfig:"MONGODB_MAX_POOL_SIZE" default:"50"`
	MinPoolSize       uint64        `envconfig:"MONGODB_MIN_POOL_SIZE" default:"10"`
	MaxConnIdleTime   time.Duration `envconfig:"MONGODB_MAX_IDLE_TIME" default:"30s"`
	ConnectTimeout    time.Duration `envconfig:"MONGODB_CONNECT_TIMEOUT" default:"10s"`
	ServerSelection   time.Duration `envconfig:"MONGODB_SERVER_SELECTION_TIMEOUT" default:"10s"`
	EnsureIndexesBoot bool          `envconfig:"MONGODB_ENSURE_INDEXES" default:"true"`
}

type AssetsConfig struct {
	Backend           string        `envconfig:"ASSET_BACKEND" default:"cloudinary"`
	UploadConcurrency int           `envconfig:"ASSET_UPLOAD_CONCURRENCY" default:"4"`
	Timeout           time.Duration `envconfig:"ASSET_RECONCILE_TIMEOUT" default:"2m"`
	CompensateOnAbort bool          `envconfig:"ASSET_COMPENSATE_ON_ABORT" default:"true"`
	MaxUploadBytes    int64         `envconfig:"ASSET_MAX_UPLOAD_BYTES" default:"104857600"`
}

type CloudinaryConfig struct {
	URL string `envconfig:"CLOUDINARY_URL"`
}

type MinioConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY"`
	Bucket    string `envconfig:"MINIO_BUCKET"`
	Region    string `envconfig:"MINIO_REGION" default:"us-east-1"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	// PublicURL prefixes returned object URLs; defaults to the endpoint.
	PublicURL string `envconfig:"MINIO_PUBLIC_URL"`
}

type AuthConfig struct {
	SessionSecret string        `envconfig:"AUTH_SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"AUTH_SESSION_TTL" default:"24h"`
	Issuer        string        `envconfig:"AUTH_TOKEN_ISSUER" default:"catalog-admin"`
	BasicUser     string        `envconfig:"AUTH_BASIC_USER"`
	BasicPass     string        `envconfig:"AUTH_BASIC_PASS"`
}

type RateLimiterConfig struct {
	Enabled  bool          `envconfig:"RATE_LIMITER_ENABLED" default:"true"`
	Requests int           `envconfig:"RATELIMITER_REQUESTS_COUNT" default:"10"`
	Window   time.Duration `envconfig:"RATELIMITER_WINDOW" default:"1m"`
}

type CacheConfig struct {
	Size int           `envconfig:"CACHE_SIZE" default:"64"`
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`
}
