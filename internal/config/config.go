package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	DBDriver       string
	PostgresDSN    string
	SQLitePath     string
	DBMaxOpenConns int
	DBMaxIdleConns int
	AutoMigrate    bool

	LogLevel  string
	LogFormat string

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	SigningLinkTTL         time.Duration
	ContractNumberAttempts int
	BcryptCost             int

	GuardEngine      string
	PolicyBundlePath string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitLoginRequests int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	ExportURLTTL   time.Duration

	SeedAdminEmail    string
	SeedAdminPassword string
	SeedAdminBranch   string
}

// Load reads CONFIG_FILE, when set, and overlays the environment on top
// of it. The file is a flat YAML mapping keyed by the environment variable
// names.
func Load() (Config, error) {
	src := source{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &src); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	return src.config(), nil
}

// FromEnv builds a Config from the environment alone.
func FromEnv() Config {
	return source{}.config()
}

type source map[string]string

func (s source) config() Config {
	return Config{
		HTTPAddr:               s.envDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout:        s.envDurationDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
		DBDriver:               s.envDefault("DB_DRIVER", "postgres"),
		PostgresDSN:            s.get("POSTGRES_DSN"),
		SQLitePath:             s.envDefault("SQLITE_PATH", "contractflow.db"),
		DBMaxOpenConns:         s.envIntDefault("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:         s.envIntDefault("DB_MAX_IDLE_CONNS", 5),
		AutoMigrate:            s.envBoolDefault("AUTO_MIGRATE", false),
		LogLevel:               s.envDefault("LOG_LEVEL", "info"),
		LogFormat:              s.envDefault("LOG_FORMAT", "json"),
		JWTSecret:              s.get("JWT_SECRET"),
		JWTIssuer:              s.envDefault("JWT_ISSUER", "contractflow"),
		TokenTTL:               s.envDurationDefault("TOKEN_TTL", 24*time.Hour),
		SigningLinkTTL:         s.envDurationDefault("SIGNING_LINK_TTL", 168*time.Hour),
		ContractNumberAttempts: s.envIntDefault("CONTRACT_NUMBER_ATTEMPTS", 5),
		BcryptCost:             s.envIntDefault("BCRYPT_COST", 12),
		GuardEngine:            s.envDefault("GUARD_ENGINE", "rbac"),
		PolicyBundlePath:       s.get("POLICY_BUNDLE_PATH"),
		RateLimitRequests:      s.envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: s.envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitLoginRequests: s.envIntDefault("RATE_LIMIT_LOGIN_REQUESTS", 10),
		RateLimitFailClosed:    s.envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       s.envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              s.get("REDIS_ADDR"),
		RedisPassword:          s.get("REDIS_PASSWORD"),
		RedisDB:                s.envIntDefault("REDIS_DB", 0),
		MinioEndpoint:          s.get("MINIO_ENDPOINT"),
		MinioAccessKey:         s.get("MINIO_ACCESS_KEY"),
		MinioSecretKey:         s.get("MINIO_SECRET_KEY"),
		MinioBucket:            s.envDefault("MINIO_BUCKET", "contractflow-exports"),
		MinioRegion:            s.envDefault("MINIO_REGION", "us-east-1"),
		MinioUseSSL:            s.envBoolDefault("MINIO_USE_SSL", false),
		ExportURLTTL:           s.envDurationDefault("EXPORT_URL_TTL", 15*time.Minute),
		SeedAdminEmail:         s.envDefault("SEED_ADMIN_EMAIL", "admin@contractflow.local"),
		SeedAdminPassword:      s.get("SEED_ADMIN_PASSWORD"),
		SeedAdminBranch:        s.envDefault("SEED_ADMIN_BRANCH", "JED"),
	}
}

// get prefers the environment over the file.
func (s source) get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return strings.TrimSpace(s[key])
}

func (s source) envDefault(key, def string) string {
	v := s.get(key)
	if v == "" {
		return def
	}
	return v
}

func (s source) envIntDefault(key string, def int) int {
	v := s.get(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func (s source) envBoolDefault(key string, def bool) bool {
	v := s.get(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

func (s source) envDurationDefault(key string, def time.Duration) time.Duration {
	v := s.get(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// ExportEnabled reports whether object storage is configured.
func (c Config) ExportEnabled() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != ""
}
