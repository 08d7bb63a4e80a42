package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/accountsvc/internal/flagx"
	"github.com/dmitrijs2005/accountsvc/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// strings such as "30m" or integer nanoseconds.
type JsonConfig struct {
	HTTPAddr              string         `json:"http_addr"`
	GRPCAddr              string         `json:"grpc_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	Pepper                string         `json:"pepper"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	StoreTimeout          timex.Duration `json:"store_timeout"`
	Mode                  string         `json:"mode"`
	LogLevel              string         `json:"log_level"`
	ProjectName           string         `json:"project_name"`
	Version               string         `json:"version"`
	MailTransport         string         `json:"mail_transport"`
	MailFrom              string         `json:"mail_from"`
	MailRegion            string         `json:"mail_region"`
	MailAccessKey         string         `json:"mail_access_key"`
	MailSecretKey         string         `json:"mail_secret_key"`
	MailEndpoint          string         `json:"mail_endpoint"`
	MailBucket            string         `json:"mail_bucket"`
	MailQueueSize         int            `json:"mail_queue_size"`
	MailWorkers           int            `json:"mail_workers"`
}

// parseJson overlays values from the file named by -c/-config. Keys missing
// from the file leave the current value untouched. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Pepper, c.Pepper)
	if c.TokenValidityDuration.Duration > 0 {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.StoreTimeout.Duration > 0 {
		config.StoreTimeout = c.StoreTimeout.Duration
	}
	setString(&config.Mode, c.Mode)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.ProjectName, c.ProjectName)
	setString(&config.Version, c.Version)
	setString(&config.MailTransport, c.MailTransport)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.MailRegion, c.MailRegion)
	setString(&config.MailAccessKey, c.MailAccessKey)
	setString(&config.MailSecretKey, c.MailSecretKey)
	setString(&config.MailEndpoint, c.MailEndpoint)
	setString(&config.MailBucket, c.MailBucket)
	if c.MailQueueSize > 0 {
		config.MailQueueSize = c.MailQueueSize
	}
	if c.MailWorkers > 0 {
		config.MailWorkers = c.MailWorkers
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
