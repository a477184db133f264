package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service settings, loaded from environment variables with
// an optional .env file for local development.
type Config struct {
	Env      string `mapstructure:"KORTIO_ENV"`
	HTTPAddr string `mapstructure:"KORTIO_HTTP_ADDR"`

	PGDSN          string        `mapstructure:"KORTIO_PG_DSN"`
	PGMaxOpenConns int           `mapstructure:"KORTIO_PG_MAX_OPEN_CONNS"`
	PGMaxIdleConns int           `mapstructure:"KORTIO_PG_MAX_IDLE_CONNS"`
	PGConnLifetime time.Duration `mapstructure:"KORTIO_PG_CONN_LIFETIME"`

	AuthSecret  string        `mapstructure:"KORTIO_AUTH_SECRET"`
	TokenTTL    time.Duration `mapstructure:"KORTIO_TOKEN_TTL"`
	RequireAuth bool          `mapstructure:"KORTIO_REQUIRE_AUTH"`

	RateLimitRPS   float64 `mapstructure:"KORTIO_RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"KORTIO_RATE_LIMIT_BURST"`
	MaxBodyBytes   int64   `mapstructure:"KORTIO_MAX_BODY_BYTES"`
}

// IsDev reports whether error responses may carry internal detail.
func (c Config) IsDev() bool {
	return strings.EqualFold(c.Env, "dev") || strings.EqualFold(c.Env, "development")
}

// Load reads configuration from the environment, consulting an optional
// .env file in path. Missing files are fine; the environment wins.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("KORTIO_ENV", "dev")
	v.SetDefault("KORTIO_HTTP_ADDR", ":8080")
	v.SetDefault("KORTIO_PG_MAX_OPEN_CONNS", 25)
	v.SetDefault("KORTIO_PG_MAX_IDLE_CONNS", 10)
	v.SetDefault("KORTIO_PG_CONN_LIFETIME", 15*time.Minute)
	v.SetDefault("KORTIO_TOKEN_TTL", time.Hour)
	v.SetDefault("KORTIO_REQUIRE_AUTH", false)
	v.SetDefault("KORTIO_RATE_LIMIT_RPS", 50.0)
	v.SetDefault("KORTIO_RATE_LIMIT_BURST", 100)
	v.SetDefault("KORTIO_MAX_BODY_BYTES", 1<<20)

	for _, key := range []string{
		"KORTIO_ENV",
		"KORTIO_HTTP_ADDR",
		"KORTIO_PG_DSN",
		"KORTIO_PG_MAX_OPEN_CONNS",
		"KORTIO_PG_MAX_IDLE_CONNS",
		"KORTIO_PG_CONN_LIFETIME",
		"KORTIO_AUTH_SECRET",
		"KORTIO_TOKEN_TTL",
		"KORTIO_REQUIRE_AUTH",
		"KORTIO_RATE_LIMIT_RPS",
		"KORTIO_RATE_LIMIT_BURST",
		"KORTIO_MAX_BODY_BYTES",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	cfg.PGDSN = strings.TrimSpace(cfg.PGDSN)
	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	if cfg.PGMaxOpenConns <= 0 {
		cfg.PGMaxOpenConns = 25
	}
	if cfg.PGMaxIdleConns <= 0 {
		cfg.PGMaxIdleConns = 10
	}
	if cfg.PGConnLifetime <= 0 {
		cfg.PGConnLifetime = 15 * time.Minute
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 50
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return cfg, nil
}
