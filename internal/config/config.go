package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all configuration required by the API process.
// All values must come from env (or the .env file loaded by cmd/api).
// No business logic should depend on raw environment variables.
type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	Auth  AuthConfig
	Tasks TasksConfig
}

type AppConfig struct {
	Env         string   `env:"APP_ENV"`
	Port        int      `env:"APP_PORT" envDefault:"3000"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// TrustedProxies lists proxy CIDRs whose X-Forwarded-For is honored when
	// resolving the client IP. Empty means the socket peer is the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

type DBConfig struct {
	Host     string `env:"DB_HOST"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string `env:"DB_SSLMODE"`
}

// RedisConfig is optional. Without a host the login limiter runs in-process.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"tasky-api"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"168h"`

	// BcryptCost is the work factor for password hashing. Each step doubles
	// the CPU time of register and login.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`

	// LoginMaxAttempts of zero disables login throttling.
	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"10"`
	LoginWindow      time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
}

type TasksConfig struct {
	// HideForeign answers 404 instead of 403 when a caller touches a task
	// owned by someone else.
	HideForeign bool `env:"TASKS_HIDE_FOREIGN" envDefault:"false"`
}

const minProductionSecretLen = 32

func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	c.App.Env = strings.TrimSpace(c.App.Env)
	c.DB.Host = strings.TrimSpace(c.DB.Host)
	c.DB.User = strings.TrimSpace(c.DB.User)
	c.DB.Name = strings.TrimSpace(c.DB.Name)
	c.DB.SSLMode = strings.TrimSpace(c.DB.SSLMode)
	c.Redis.Host = strings.TrimSpace(c.Redis.Host)
	c.Auth.JWTIssuer = strings.TrimSpace(c.Auth.JWTIssuer)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every configuration problem at once and fills in
// environment-dependent defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("REDIS_DB must be >= 0, got %d", c.Redis.DB))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.Auth.JWTSecret) < minProductionSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecretLen))
	}
	if c.Auth.JWTIssuer == "" {
		c.Auth.JWTIssuer = "tasky-api"
	}
	if c.Auth.TokenTTL <= 0 {
		// Same validity window the API always shipped with.
		c.Auth.TokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 10
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost))
	}
	if c.Auth.LoginMaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("LOGIN_MAX_ATTEMPTS must not be negative, got %d", c.Auth.LoginMaxAttempts))
	}
	if c.Auth.LoginMaxAttempts > 0 && c.Auth.LoginWindow <= 0 {
		c.Auth.LoginWindow = 15 * time.Minute
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
