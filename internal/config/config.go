package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gallery-gateway/internal/gallery"

	"github.com/joho/godotenv"
)

const (
	DriverS3    = "s3"
	DriverMinio = "minio"

	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config is loaded once at startup and passed by value afterwards.
type Config struct {
	Port         int
	PortFallback bool

	Store StoreConfig

	PublicBaseURL string
	Upload        gallery.Policy

	AllowOrigins []string

	RateLimit RateLimitConfig
	Valkey    ValkeyConfig

	LogLevel  string
	LogFormat string
}

type StoreConfig struct {
	Driver      string
	AccountID   string
	EndpointURL string
	Region      string
	AccessKey   string
	SecretKey   string
	Bucket      string
}

// RateLimitConfig limits uploads per client IP. Zero RequestsPerSecond disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int

	// TrustProxyHeaders takes the client IP from X-Real-IP / X-Forwarded-For.
	TrustProxyHeaders bool
}

func (r RateLimitConfig) Enabled() bool {
	return r.RequestsPerSecond > 0
}

type ValkeyConfig struct {
	URL      string
	Password string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from an environment lookup function.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	getEnv := func(key, def string) string {
		if val, ok := lookup(key); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
		return def
	}

	cfg := &Config{}
	var err error

	cfg.Port, err = strconv.Atoi(getEnv("PORT", "3000"))
	if err != nil || cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, errors.New("PORT must be a number between 1 and 65535")
	}

	cfg.PortFallback, err = strconv.ParseBool(getEnv("PORT_FALLBACK", "false"))
	if err != nil {
		return nil, errors.New("PORT_FALLBACK must be a boolean")
	}

	cfg.Store = StoreConfig{
		Driver:      strings.ToLower(getEnv("STORE_DRIVER", DriverS3)),
		AccountID:   getEnv("S3_ACCOUNT_ID", ""),
		EndpointURL: getEnv("S3_ENDPOINT_URL", ""),
		Region:      getEnv("S3_REGION", "auto"),
		AccessKey:   getEnv("S3_ACCESS_KEY", ""),
		SecretKey:   getEnv("S3_SECRET_KEY", ""),
		Bucket:      getEnv("S3_BUCKET_NAME", ""),
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}

	cfg.PublicBaseURL = getEnv("PUBLIC_BASE_URL", "")
	if cfg.PublicBaseURL == "" {
		return nil, errors.New("PUBLIC_BASE_URL is required")
	}

	maxBytes, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", strconv.Itoa(gallery.DefaultMaxUploadBytes)), 10, 64)
	if err != nil || maxBytes <= 0 {
		return nil, errors.New("MAX_UPLOAD_BYTES must be a positive number of bytes")
	}
	if maxBytes > gallery.MaxUploadBytesLimit {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must not exceed %d", gallery.MaxUploadBytesLimit)
	}

	allowed := splitList(getEnv("ALLOWED_CONTENT_TYPES", ""))
	if len(allowed) == 0 {
		allowed = gallery.DefaultPolicy().AllowedTypes
	}
	cfg.Upload = gallery.Policy{MaxBytes: maxBytes, AllowedTypes: allowed}

	cfg.AllowOrigins = splitList(getEnv("ALLOW_ORIGINS", ""))

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "0"), 64)
	if err != nil || rps < 0 {
		return nil, errors.New("RATE_LIMIT_RPS must be a non-negative number")
	}
	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "5"))
	if err != nil || burst <= 0 {
		return nil, errors.New("RATE_LIMIT_BURST must be a positive number")
	}
	trustProxy, err := strconv.ParseBool(getEnv("TRUST_PROXY_HEADERS", "false"))
	if err != nil {
		return nil, errors.New("TRUST_PROXY_HEADERS must be a boolean")
	}
	cfg.RateLimit = RateLimitConfig{RequestsPerSecond: rps, Burst: burst, TrustProxyHeaders: trustProxy}

	cfg.Valkey = ValkeyConfig{
		URL:      getEnv("VALKEY_URL", ""),
		Password: getEnv("VALKEY_PASSWORD", ""),
	}

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", FormatConsole))
	if cfg.LogFormat != FormatConsole && cfg.LogFormat != FormatJSON {
		return nil, fmt.Errorf("LOG_FORMAT must be %q or %q", FormatConsole, FormatJSON)
	}

	return cfg, nil
}

// Endpoint resolves the store endpoint. An explicit URL wins over the account id.
func (s StoreConfig) Endpoint() string {
	if s.EndpointURL != "" {
		return s.EndpointURL
	}
	if s.AccountID != "" {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", s.AccountID)
	}
	return ""
}

func (s StoreConfig) validate() error {
	if s.Driver != DriverS3 && s.Driver != DriverMinio {
		return fmt.Errorf("STORE_DRIVER must be %q or %q", DriverS3, DriverMinio)
	}
	if s.Driver == DriverMinio && s.Endpoint() == "" {
		return errors.New("S3_ENDPOINT_URL is required for the minio driver")
	}
	if s.AccessKey == "" || s.SecretKey == "" {
		return errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required")
	}
	if s.Bucket == "" {
		return errors.New("S3_BUCKET_NAME is required")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
