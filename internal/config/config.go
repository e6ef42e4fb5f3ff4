package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int           `yaml:"port"`
	DatabasePath   string        `yaml:"databasePath"`
	JWTSecret      string        `yaml:"jwtSecret"`
	TokenTTL       time.Duration `yaml:"tokenTTL"`
	MaxUploadBytes int64         `yaml:"maxUploadBytes"`
	CORSOrigins    []string      `yaml:"corsOrigins"`

	RedisAddr              string `yaml:"redisAddr"`
	RedisPassword          string `yaml:"redisPassword"`
	AuthRateLimitPerMinute int    `yaml:"authRateLimitPerMinute"`

	StatsCronSpec string `yaml:"statsCron"`

	// TrustProxy honors X-Forwarded-For/X-Real-IP for client addresses.
	TrustProxy bool `yaml:"trustProxy"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"` // "console" or "json"
}

func defaults() Config {
	return Config{
		ServerPort:             5000,
		DatabasePath:           "./sheetcharts.db",
		TokenTTL:               time.Hour,
		MaxUploadBytes:         10 << 20,
		CORSOrigins:            []string{"http://localhost:3000"},
		AuthRateLimitPerMinute: 20,
		StatsCronSpec:          "@every 5m",
		LogLevel:               "info",
		LogFormat:              "console",
	}
}

// Load loads configuration from an optional YAML file named by CONFIG_FILE,
// then lets environment variables override it. Variables from a .env file
// (ENV_FILE, default ./.env) fill in anything not already set.
func Load() (*Config, error) {
	cfg := defaults()

	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := getEnv("PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.ServerPort = port
	}
	setString(&cfg.DatabasePath, "DATABASE_PATH")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	if v := getEnv("TOKEN_TTL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TOKEN_TTL %q: %w", v, err)
		}
		cfg.TokenTTL = d
	}
	if v := getEnv("MAX_UPLOAD_BYTES", ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_UPLOAD_BYTES %q: %w", v, err)
		}
		cfg.MaxUploadBytes = n
	}
	if v := getEnv("CORS_ORIGINS", ""); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	if v := getEnv("AUTH_RATE_LIMIT_PER_MINUTE", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AUTH_RATE_LIMIT_PER_MINUTE %q: %w", v, err)
		}
		cfg.AuthRateLimitPerMinute = n
	}
	setString(&cfg.StatsCronSpec, "STATS_CRON")
	if v := getEnv("TRUST_PROXY", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TRUST_PROXY %q: %w", v, err)
		}
		cfg.TrustProxy = b
	}
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid port %d", c.ServerPort)
	}
	if c.TokenTTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	return nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// setString overrides dst when the variable is set to a non-empty value.
func setString(dst *string, key string) {
	if v := getEnv(key, ""); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
