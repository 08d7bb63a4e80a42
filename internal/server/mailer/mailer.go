// Package mailer delivers outbound email. Messages are handed to a Queue and
// sent by background workers through one of the transports: Amazon SES, an
// S3-compatible outbox bucket, or the log.
package mailer

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/accountsvc/internal/logging"
	"github.com/dmitrijs2005/accountsvc/internal/server/config"
)

// Message is one outbound HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the transport selected by cfg.MailTransport.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (Mailer, error) {
	awsCfg := AWSConfig{
		Region:    cfg.MailRegion,
		AccessKey: cfg.MailAccessKey,
		SecretKey: cfg.MailSecretKey,
		Endpoint:  cfg.MailEndpoint,
	}

	switch cfg.MailTransport {
	case config.MailTransportSES:
		return NewSESMailer(ctx, awsCfg, cfg.MailFrom)
	case config.MailTransportS3:
		return NewS3Outbox(ctx, awsCfg, cfg.MailBucket, cfg.MailFrom)
	case config.MailTransportLog, "":
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.MailTransport)
	}
}
