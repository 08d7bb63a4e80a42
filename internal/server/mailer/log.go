package mailer

import (
	"context"

	"github.com/dmitrijs2005/accountsvc/internal/logging"
)

// LogMailer only logs what it would send. It is the development default.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "log_mailer")}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info(ctx, "email", "to", msg.To, "subject", msg.Subject, "bytes", len(msg.HTML))
	return nil
}
