package config

import (
	"fmt"
	"strconv"
	"time"
)

const envPrefix = "APP_"

type lookupFunc func(key string) (string, bool)

// parseEnv overlays APP_* environment variables. Malformed numbers or
// durations panic, same as bad flags.
func parseEnv(config *Config, lookup lookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(envPrefix + key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", envPrefix, key, err))
		}
		*dst = d
	}
	num := func(key string, dst *int) {
		v, ok := lookup(envPrefix + key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", envPrefix, key, err))
		}
		*dst = n
	}

	str("HTTP_ADDR", &config.HTTPAddr)
	str("GRPC_ADDR", &config.GRPCAddr)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("SECRET_KEY", &config.SecretKey)
	str("PEPPER", &config.Pepper)
	dur("TOKEN_VALIDITY", &config.TokenValidityDuration)
	dur("STORE_TIMEOUT", &config.StoreTimeout)
	str("MODE", &config.Mode)
	str("LOG_LEVEL", &config.LogLevel)
	str("PROJECT_NAME", &config.ProjectName)
	str("VERSION", &config.Version)
	str("MAIL_TRANSPORT", &config.MailTransport)
	str("MAIL_FROM", &config.MailFrom)
	str("MAIL_REGION", &config.MailRegion)
	str("MAIL_ACCESS_KEY", &config.MailAccessKey)
	str("MAIL_SECRET_KEY", &config.MailSecretKey)
	str("MAIL_ENDPOINT", &config.MailEndpoint)
	str("MAIL_BUCKET", &config.MailBucket)
	num("MAIL_QUEUE_SIZE", &config.MailQueueSize)
	num("MAIL_WORKERS", &config.MailWorkers)
}
