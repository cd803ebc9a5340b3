package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	LogLevel    string
	Port        string
	DatabaseURL string

	LedgerDriver       string
	LedgerSeed         map[string]int
	CreditsZeroOnError bool

	AuthMode        string
	AuthJWTSecret   string
	AuthJWKSURL     string
	AuthJWTIssuer   string
	AuthJWTAudience string
	AuthBaseURL     string
	AuthAPIKey      string

	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	OpenAIOutputFormat string
	OpenAIOrg          string

	GenerationMaxConcurrency int
	GenerationTimeout        time.Duration

	StorageDriver        string
	StorageBucket        string
	StoragePath          string
	StoragePublicBaseURL string
	S3Endpoint           string
	S3Region             string
	S3AccessKey          string
	S3SecretKey          string
	S3UsePathStyle       bool
	MinioEndpoint        string
	MinioUseSSL          bool

	AllowedOrigins   []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	HTTPMaxBodyBytes int64
	RateLimitPerMin  int
	TrustProxy       bool
	GeoIPDBPath      string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		Port:        port,
		DatabaseURL: os.Getenv("DATABASE_URL"),

		LedgerDriver:       strings.ToLower(getEnv("LEDGER_DRIVER", "postgres")),
		CreditsZeroOnError: getEnvBool("CREDITS_ZERO_ON_ERROR", false),

		AuthMode:        strings.ToLower(getEnv("AUTH_MODE", "jwt")),
		AuthJWTSecret:   os.Getenv("AUTH_JWT_SECRET"),
		AuthJWKSURL:     os.Getenv("AUTH_JWKS_URL"),
		AuthJWTIssuer:   os.Getenv("AUTH_JWT_ISSUER"),
		AuthJWTAudience: getEnv("AUTH_JWT_AUDIENCE", "authenticated"),
		AuthBaseURL:     strings.TrimRight(os.Getenv("AUTH_BASE_URL"), "/"),
		AuthAPIKey:      os.Getenv("AUTH_API_KEY"),

		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:        getEnv("OPENAI_IMAGE_MODEL", "gpt-image-1.5"),
		OpenAIOutputFormat: getEnv("OPENAI_OUTPUT_FORMAT", "jpeg"),
		OpenAIOrg:          os.Getenv("OPENAI_ORG"),

		GenerationMaxConcurrency: getEnvInt("GENERATION_MAX_CONCURRENCY", 5),
		GenerationTimeout:        getEnvDuration("GENERATION_TIMEOUT", 3*time.Minute),

		StorageDriver:        strings.ToLower(getEnv("STORAGE_DRIVER", "filesystem")),
		StorageBucket:        getEnv("STORAGE_BUCKET", "onlook_public"),
		StoragePath:          getEnv("STORAGE_PATH", "./storage"),
		StoragePublicBaseURL: strings.TrimRight(os.Getenv("STORAGE_PUBLIC_BASE_URL"), "/"),
		S3Endpoint:           os.Getenv("S3_ENDPOINT"),
		S3Region:             getEnv("S3_REGION", "us-east-1"),
		S3AccessKey:          os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:          os.Getenv("S3_SECRET_KEY"),
		S3UsePathStyle:       getEnvBool("S3_USE_PATH_STYLE", true),
		MinioEndpoint:        os.Getenv("MINIO_ENDPOINT"),
		MinioUseSSL:          getEnvBool("MINIO_USE_SSL", false),

		AllowedOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 240)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		HTTPMaxBodyBytes: int64(getEnvInt("HTTP_MAX_BODY_BYTES", 25<<20)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		TrustProxy:       getEnvBool("TRUST_PROXY_HEADERS", false),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
	}

	switch cfg.LedgerDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case "memory":
		seed, err := parseSeed(os.Getenv("LEDGER_MEMORY_SEED"))
		if err != nil {
			return nil, err
		}
		cfg.LedgerSeed = seed
	default:
		return nil, fmt.Errorf("unsupported LEDGER_DRIVER %q", cfg.LedgerDriver)
	}

	switch cfg.AuthMode {
	case "jwt":
		if cfg.AuthJWTSecret == "" && cfg.AuthJWKSURL == "" {
			return nil, fmt.Errorf("AUTH_JWT_SECRET or AUTH_JWKS_URL is required")
		}
	case "remote":
		if cfg.AuthBaseURL == "" {
			return nil, fmt.Errorf("AUTH_BASE_URL is required")
		}
	default:
		return nil, fmt.Errorf("unsupported AUTH_MODE %q", cfg.AuthMode)
	}

	switch cfg.StorageDriver {
	case "filesystem":
		if cfg.StoragePublicBaseURL == "" {
			cfg.StoragePublicBaseURL = "http://localhost:" + port + "/static"
		}
	case "s3", "minio":
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.GenerationMaxConcurrency <= 0 {
		cfg.GenerationMaxConcurrency = 5
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseSeed reads "user-id:credits" pairs separated by commas.
func parseSeed(raw string) (map[string]int, error) {
	seed := map[string]int{}
	for _, part := range splitList(raw) {
		id, n, ok := strings.Cut(part, ":")
		id = strings.TrimSpace(id)
		credits, err := strconv.Atoi(strings.TrimSpace(n))
		if !ok || id == "" || err != nil || credits < 0 {
			return nil, fmt.Errorf("invalid LEDGER_MEMORY_SEED entry %q", part)
		}
		seed[id] = credits
	}
	return seed, nil
}
