package main

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-persistence-bun"
	"github.com/sethvargo/go-envconfig"
)

// Config is the process configuration, loaded from the environment.
type Config struct {
	Env        string `env:"ENV,default=dev"`
	ServerAddr string `env:"SERVER_ADDR,default=:8080"`
	Debug      bool   `env:"DEBUG,default=false"`

	Auth struct {
		SigningKey          string   `env:"AUTH_SIGNING_KEY,required"`
		SigningMethod       string   `env:"AUTH_SIGNING_METHOD,default=HS256"`
		ContextKey          string   `env:"AUTH_CONTEXT_KEY,default=claims"`
		TokenExpiration     int      `env:"AUTH_TOKEN_EXPIRATION_HOURS,default=72"`
		TokenLookup         string   `env:"AUTH_TOKEN_LOOKUP,default=header:Authorization"`
		AuthScheme          string   `env:"AUTH_SCHEME,default=Bearer"`
		Issuer              string   `env:"AUTH_ISSUER,default=usersd"`
		Audience            []string `env:"AUTH_AUDIENCE"`
		MaxLoginAttempts    int      `env:"AUTH_MAX_LOGIN_ATTEMPTS,default=5"`
		MinPasswordLength   int      `env:"AUTH_MIN_PASSWORD_LENGTH,default=8"`
		MinPasswordEntropy  float64  `env:"AUTH_MIN_PASSWORD_ENTROPY,default=40"`
		VerificationBaseURL string   `env:"AUTH_VERIFICATION_BASE_URL,default=http://localhost:8080"`
	}

	Persistence struct {
		Driver                string `env:"DB_DRIVER,default=sqlite"`
		Server                string `env:"DB_SERVER"`
		DSN                   string `env:"DB_DSN,default=file:users.db?cache=shared&mode=rwc"`
		Debug                 bool   `env:"DB_DEBUG,default=false"`
		PingTimeoutExpression string `env:"DB_PING_TIMEOUT,default=15s"`
		OtelIdentifier        string `env:"DB_OTEL_IDENTIFIER,default=usersd"`
	}

	SMTP struct {
		Host     string `env:"SMTP_HOST"`
		Port     int    `env:"SMTP_PORT,default=587"`
		Username string `env:"SMTP_USERNAME"`
		Password string `env:"SMTP_PASSWORD"`
		From     string `env:"SMTP_FROM,default=no-reply@localhost"`
	}
}

// LoadConfig reads the configuration from the environment.
func LoadConfig(ctx context.Context) (*Config, error) {
	config := &Config{}
	if err := envconfig.Process(ctx, config); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// users.Config implementation

func (c *Config) GetSigningKey() string          { return c.Auth.SigningKey }
func (c *Config) GetSigningMethod() string       { return c.Auth.SigningMethod }
func (c *Config) GetContextKey() string          { return c.Auth.ContextKey }
func (c *Config) GetTokenExpiration() int        { return c.Auth.TokenExpiration }
func (c *Config) GetTokenLookup() string         { return c.Auth.TokenLookup }
func (c *Config) GetAuthScheme() string          { return c.Auth.AuthScheme }
func (c *Config) GetIssuer() string              { return c.Auth.Issuer }
func (c *Config) GetAudience() []string          { return c.Auth.Audience }
func (c *Config) GetMaxLoginAttempts() int       { return c.Auth.MaxLoginAttempts }
func (c *Config) GetMinPasswordLength() int      { return c.Auth.MinPasswordLength }
func (c *Config) GetMinPasswordEntropy() float64 { return c.Auth.MinPasswordEntropy }
func (c *Config) GetVerificationBaseURL() string { return c.Auth.VerificationBaseURL }

// PersistenceConfig is consumed by the persistence client.
type PersistenceConfig struct {
	driver                string
	server                string
	dsn                   string
	debug                 bool
	pingTimeoutExpression string
	otelIdentifier        string
}

var _ persistence.Config = PersistenceConfig{}

func (c *Config) GetPersistence() PersistenceConfig {
	return PersistenceConfig{
		driver:                c.Persistence.Driver,
		server:                c.Persistence.Server,
		dsn:                   c.Persistence.DSN,
		debug:                 c.Persistence.Debug,
		pingTimeoutExpression: c.Persistence.PingTimeoutExpression,
		otelIdentifier:        c.Persistence.OtelIdentifier,
	}
}

func (p PersistenceConfig) GetDriver() string         { return p.driver }
func (p PersistenceConfig) GetServer() string         { return p.server }
func (p PersistenceConfig) GetDSN() string            { return p.dsn }
func (p PersistenceConfig) GetDebug() bool            { return p.debug }
func (p PersistenceConfig) GetOtelIdentifier() string { return p.otelIdentifier }

func (p PersistenceConfig) GetPingTimeout() time.Duration {
	dur, err := time.ParseDuration(p.pingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.pingTimeoutExpression),
		)
	}
	return dur
}
