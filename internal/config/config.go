// Package config loads service configuration from the environment.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every variable read by Load
const EnvPrefix = "INSURANCE_CALC_"

// Audit transports
const (
	TransportKafka = "kafka"
	TransportRedis = "redis"
)

// Config is the service configuration, built once at startup and passed
// to the components that need it.
type Config struct {
	Host        string `env:"HOST" envDefault:"127.0.0.1"`
	Port        int    `env:"PORT" envDefault:"8000"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`

	SecretKey                string `env:"SECRET_KEY"`
	Algorithm                string `env:"ALGORITHM" envDefault:"HS256"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"10080"`
	BcryptCost               int    `env:"BCRYPT_COST" envDefault:"10"`

	DBHost            string        `env:"DB_HOST" envDefault:"localhost"`
	DBPort            int           `env:"DB_PORT" envDefault:"5432"`
	DBUser            string        `env:"DB_USER" envDefault:"insurance_calc"`
	DBPass            string        `env:"DB_PASS" envDefault:"insurance_calc"`
	DBBase            string        `env:"DB_BASE" envDefault:"admin"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	DBConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"1m"`
	StorageTimeout    time.Duration `env:"STORAGE_TIMEOUT" envDefault:"5s"`

	// With Redis disabled the deploy lock uses Postgres
	RedisEnabled bool   `env:"REDIS_ENABLED" envDefault:"true"`
	RedisHost    string `env:"REDIS_HOST" envDefault:"insurance-calc-redis"`
	RedisPort    int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisUser    string `env:"REDIS_USER"`
	RedisPass    string `env:"REDIS_PASS"`
	RedisBase    int    `env:"REDIS_BASE"`

	AuditTransport        string        `env:"AUDIT_TRANSPORT" envDefault:"kafka"`
	KafkaBootstrapServers string        `env:"KAFKA_BOOTSTRAP_SERVERS" envDefault:"insurance-calc-kafka:9092"`
	AuditTopicPartitions  int           `env:"AUDIT_TOPIC_PARTITIONS" envDefault:"1"`
	PublishTimeout        time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"10s"`
	AuditWorkers          int           `env:"AUDIT_WORKERS" envDefault:"2"`
	AuditQueueSize        int           `env:"AUDIT_QUEUE_SIZE" envDefault:"256"`

	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@admin.com"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"root"`
	SeedFile      string `env:"SEED_FILE" envDefault:"seed.json"`
}

// Load reads optional dotenv files (".env" when none are given), then parses
// the prefixed environment. Variables already set win over dotenv values.
func Load(dotenvFiles ...string) (*Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.SecretKey == "" {
		key, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.SecretKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// randomSecret returns 32 random bytes, URL-safe encoded
func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Validate rejects values the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	switch c.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("unsupported ALGORITHM %q (use HS256, HS384 or HS512)", c.Algorithm))
	}

	switch c.AuditTransport {
	case TransportKafka:
		if strings.TrimSpace(c.KafkaBootstrapServers) == "" {
			errs = append(errs, errors.New("KAFKA_BOOTSTRAP_SERVERS is required for the kafka audit transport"))
		}
	case TransportRedis:
		if c.RedisURL() == "" {
			errs = append(errs, errors.New("REDIS_ENABLED and REDIS_HOST are required for the redis audit transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported AUDIT_TRANSPORT %q (use kafka or redis)", c.AuditTransport))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}
	if c.AccessTokenExpireMinutes <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.AuditTopicPartitions <= 0 {
		errs = append(errs, errors.New("AUDIT_TOPIC_PARTITIONS must be positive"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// DatabaseURL assembles the Postgres connection URL
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPass),
		Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:     "/" + c.DBBase,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// RedisURL assembles the Redis connection URL, or "" when Redis is disabled
func (c *Config) RedisURL() string {
	if !c.RedisEnabled || c.RedisHost == "" {
		return ""
	}
	u := url.URL{
		Scheme: "redis",
		Host:   net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort)),
		Path:   "/" + strconv.Itoa(c.RedisBase),
	}
	if c.RedisUser != "" || c.RedisPass != "" {
		u.User = url.UserPassword(c.RedisUser, c.RedisPass)
	}
	return u.String()
}

// TokenTTL returns the access token lifetime
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// SlogLevel maps LogLevel onto a slog level
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE", "DEBUG":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR", "FATAL", "CRITICAL":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown LOG_LEVEL %q", s)
	}
}
