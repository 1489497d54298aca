package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET, required"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// BaseURL is the externally visible origin, used for reset links.
	BaseURL string `env:"BASE_URL, default=http://localhost:8080"`

	Auth  AuthConfig
	Mail  MailConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type AuthConfig struct {
	// AccessTokenTTL / RefreshTokenTTL are the session lifetimes.
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,  default=168h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=720h"`

	// GateTimeout bounds the gate's session and profile lookups.
	GateTimeout time.Duration `env:"GATE_TIMEOUT, default=5s"`

	// Login throttle: LoginMaxAttempts failures inside LoginWindow trip a
	// LoginLockout-long lockout.
	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS, default=5"`
	LoginWindow      time.Duration `env:"LOGIN_WINDOW,       default=15m"`
	LoginLockout     time.Duration `env:"LOGIN_LOCKOUT,      default=30m"`

	// AuditWorkers sizes the audit dispatcher pool.
	AuditWorkers int `env:"AUDIT_WORKERS, default=4"`
}

type MailConfig struct {
	SendgridAPIKey string `env:"SENDGRID_API_KEY"`
	FromName       string `env:"MAIL_FROM_NAME,  default=EduSuite"`
	FromEmail      string `env:"MAIL_FROM_EMAIL, default=no-reply@edusuite.io"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=edusuite_auth"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
