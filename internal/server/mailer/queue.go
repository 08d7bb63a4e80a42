package mailer

import (
	"context"
	"time"

	"github.com/dmitrijs2005/accountsvc/internal/logging"
	"golang.org/x/sync/errgroup"
)

const defaultSendTimeout = 10 * time.Second

// Queue decouples request handling from mail delivery. Enqueue never blocks;
// Run drains the buffer with a fixed number of workers until its context is
// done. Send failures are logged and never retried.
type Queue struct {
	jobs        chan Message
	mailer      Mailer
	logger      logging.Logger
	workers     int
	sendTimeout time.Duration
}

func NewQueue(m Mailer, logger logging.Logger, size, workers int) *Queue {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		jobs:        make(chan Message, size),
		mailer:      m,
		logger:      logger.With("module", "mail_queue"),
		workers:     workers,
		sendTimeout: defaultSendTimeout,
	}
}

// Enqueue buffers msg. It returns false when the buffer is full.
func (q *Queue) Enqueue(msg Message) bool {
	select {
	case q.jobs <- msg:
		return true
	default:
		q.logger.Warn(context.Background(), "mail queue full, message dropped", "to", msg.To)
		return false
	}
}

// Run starts the workers and blocks until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	q.logger.Info(ctx, "Starting mail workers", "workers", q.workers)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			q.work(ctx)
			return nil
		})
	}
	err := g.Wait()

	if pending := len(q.jobs); pending > 0 {
		q.logger.Warn(context.Background(), "mail queue stopped with pending messages", "pending", pending)
	}
	q.logger.Info(context.Background(), "Mail workers stopped")
	return err
}

func (q *Queue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-q.jobs:
			q.deliver(ctx, msg)
		}
	}
}

func (q *Queue) deliver(ctx context.Context, msg Message) {
	sendCtx, cancel := context.WithTimeout(ctx, q.sendTimeout)
	defer cancel()

	if err := q.mailer.Send(sendCtx, msg); err != nil {
		q.logger.Error(ctx, "sending email failed", "to", msg.To, "subject", msg.Subject, "error", err)
		return
	}
	q.logger.Debug(ctx, "email sent", "to", msg.To)
}
