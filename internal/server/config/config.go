// Package config handles configuration for the server: defaults, an optional
// JSON file, environment variables (with .env support) and command-line
// flags, applied in that order.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"

	MailTransportLog = "log"
	MailTransportSES = "ses"
	MailTransportS3  = "s3"

	DefaultSecretKey = "secretKey"
	DefaultPepper    = "pepper"
)

var ErrDefaultSecrets = errors.New("secret key and pepper must be changed from their defaults in production mode")

// Config holds runtime settings for the account service.
//
// SecretKey signs tokens and Pepper is mixed into every password hash; both
// are read once at startup and handed to the auth constructors. An empty
// DatabaseDSN selects the in-memory store.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	DatabaseDSN string

	SecretKey             string
	Pepper                string
	TokenValidityDuration time.Duration
	StoreTimeout          time.Duration

	Mode        string
	LogLevel    string
	ProjectName string
	Version     string

	MailTransport string
	MailFrom      string
	MailRegion    string
	MailAccessKey string
	MailSecretKey string
	MailEndpoint  string
	MailBucket    string
	MailQueueSize int
	MailWorkers   int
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey and Pepper must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.GRPCAddr = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = DefaultSecretKey
	c.Pepper = DefaultPepper
	c.TokenValidityDuration = 30 * time.Minute
	c.StoreTimeout = 3 * time.Second
	c.Mode = ModeDevelopment
	c.LogLevel = "info"
	c.ProjectName = "accountsvc"
	c.Version = "0.1.0"
	c.MailTransport = MailTransportLog
	c.MailFrom = "no-reply@example.com"
	c.MailRegion = "us-east-1"
	c.MailEndpoint = ""
	c.MailBucket = "outbox"
	c.MailQueueSize = 64
	c.MailWorkers = 2
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Mode != ModeProduction
}

// UsesDefaultSecrets reports whether SecretKey or Pepper still hold the
// development defaults.
func (c *Config) UsesDefaultSecrets() bool {
	return c.SecretKey == DefaultSecretKey || c.Pepper == DefaultPepper
}

// Validate rejects settings the service must not run with.
func (c *Config) Validate() error {
	if !c.IsDevelopment() && c.UsesDefaultSecrets() {
		return ErrDefaultSecrets
	}
	return nil
}

// LoadConfig builds a Config from defaults, then the JSON file named by -c,
// then APP_* environment variables (a .env file in the working directory is
// loaded first if present), then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()

	args := os.Args[1:]
	parseJson(cfg, args)

	_ = godotenv.Load()
	parseEnv(cfg, os.LookupEnv)

	parseFlags(cfg, args)
	return cfg
}
