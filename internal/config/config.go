// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.
type Config struct {
	Env       string // application environment (dev, test, prod)
	Port      string // HTTP port to listen on
	DB        DBConfig
	JWTSecret string
	AccessTTL time.Duration
	Operator  OperatorConfig
	DataCSV   string // CSV loaded by the initialize and reset operations
	Log       LogConfig
	RabbitURL string // empty disables reservation events
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
}

// DBConfig addresses the MySQL database.
type DBConfig struct {
	User string
	Pass string // empty allowed
	Host string
	Port string
	Name string
}

// OperatorConfig is the single staff account allowed to mutate the catalog.
// PasswordHash is a bcrypt hash.
type OperatorConfig struct {
	Name         string
	PasswordHash string
}

// LogConfig selects the log level and output format (json or console).
// Caller adds file:line to every entry.
type LogConfig struct {
	Level  string
	Format string
	Caller bool
}

// LoadDotEnv loads the given .env files into the process environment
// without overriding variables that are already set.  Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads the configuration from the environment.  Every missing or
// malformed required variable is reported in the returned error.
func Load() (Config, error) {
	var r envReader
	cfg := Config{
		Env:  envStr("APP_ENV", "dev"),
		Port: envStr("APP_PORT", "8080"),
		DB: DBConfig{
			User: r.must("DB_USER"),
			Pass: envStr("DB_PASS", ""),
			Host: r.must("DB_HOST"),
			Port: r.must("DB_PORT"),
			Name: r.must("DB_NAME"),
		},
		JWTSecret: r.must("JWT_SECRET"),
		AccessTTL: time.Duration(r.mustInt("ACCESS_TOKEN_TTL_MIN")) * time.Minute,
		Operator: OperatorConfig{
			Name:         envStr("OPERATOR_NAME", "operator"),
			PasswordHash: r.must("OPERATOR_PASSWORD_HASH"),
		},
		DataCSV: envStr("DATA_CSV", "data.csv"),
		Log: LogConfig{
			Level:  envStr("LOG_LEVEL", "info"),
			Format: envStr("LOG_FORMAT", "json"),
			Caller: envBool("LOG_CALLER", false),
		},
		RabbitURL: envStr("RABBITMQ_URL", ""),
		Cache:     LoadCacheConfig(),
		RateLimit: LoadRateLimitConfig(),
		Redis:     LoadRedisConfig(),
	}
	if err := r.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
