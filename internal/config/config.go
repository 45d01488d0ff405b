package config

import (
	"fmt"
	"net"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Token store backends.
const (
	TokenStoreFile     = "file"
	TokenStoreMemory   = "memory"
	TokenStoreRedis    = "redis"
	TokenStorePostgres = "postgres"
)

// Config holds all configuration for the console and the CLI.
type Config struct {
	App    AppConfig
	Server ServerConfig
	API    APIConfig
	Token  TokenConfig
	Redis  RedisConfig
	DB     DBConfig
	Images ImageConfig
	Log    LogConfig
}

// AppConfig holds presentation settings.
type AppConfig struct {
	Name string `envconfig:"APP_NAME" default:"Restaurant Coupon Manager"`
}

// ServerConfig holds console server settings.
type ServerConfig struct {
	Host            string `envconfig:"CONSOLE_HOST" default:"127.0.0.1"`
	Port            string `envconfig:"CONSOLE_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
	// MaxVisitors bounds the browser sessions kept in memory; the least
	// recently seen one is dropped first.
	MaxVisitors   int  `envconfig:"CONSOLE_MAX_VISITORS" default:"1024"`
	SecureCookies bool `envconfig:"CONSOLE_SECURE_COOKIES" default:"false"`
}

// Addr is the listen address of the console.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// APIConfig points at the coupon backend.
type APIConfig struct {
	URL     string        `envconfig:"API_URL" default:"http://localhost:8080/api"`
	Timeout time.Duration `envconfig:"API_TIMEOUT" default:"30s"`
}

// TokenConfig selects where the bearer token is kept between restarts.
type TokenConfig struct {
	Store string `envconfig:"TOKEN_STORE" default:"file"`
	File  string `envconfig:"TOKEN_FILE"` // empty means <user config dir>/coupon-console/<key>
	Key   string `envconfig:"TOKEN_KEY" default:"auth_token"`
}

// RedisConfig is used when TOKEN_STORE=redis.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// DBConfig is used when TOKEN_STORE=postgres.
// WARNING: Default password is for local development only.
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name     string `envconfig:"DB_NAME" default:"coupon_console"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"4"`
	MinConns int    `envconfig:"DB_MIN_CONNS" default:"1"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// ImageConfig bounds image handling in the console.
type ImageConfig struct {
	CacheSize   int `envconfig:"IMAGE_CACHE_SIZE" default:"128"`
	MaxUploadMB int `envconfig:"IMAGE_MAX_UPLOAD_MB" default:"5"`
}

// MaxUploadBytes returns the upload limit in bytes.
func (c ImageConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load reads an optional .env file, then parses environment variables into Config.
// Variables already set in the environment win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Token.Store {
	case TokenStoreFile, TokenStoreMemory, TokenStoreRedis, TokenStorePostgres:
	default:
		return fmt.Errorf("invalid TOKEN_STORE %q: want file, memory, redis or postgres", c.Token.Store)
	}
	if c.API.URL == "" {
		return fmt.Errorf("API_URL must not be empty")
	}
	if c.Images.CacheSize < 1 {
		return fmt.Errorf("IMAGE_CACHE_SIZE must be at least 1")
	}
	if c.Server.MaxVisitors < 1 {
		return fmt.Errorf("CONSOLE_MAX_VISITORS must be at least 1")
	}
	return nil
}
