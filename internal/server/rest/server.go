// Package rest exposes the account service over HTTP using gin.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/accountsvc/internal/logging"
	"github.com/dmitrijs2005/accountsvc/internal/server/models"
	"github.com/dmitrijs2005/accountsvc/internal/server/services"
	"github.com/gin-gonic/gin"
)

const (
	maxBodyBytes    = 5 << 20
	shutdownTimeout = 5 * time.Second
)

// UserAPI is the part of services.UserService the handlers depend on.
type UserAPI interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*services.Session, error)
	RefreshToken(ctx context.Context, token string) (*services.Session, error)
	List(ctx context.Context) ([]*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
}

// Options configures the HTTP server.
type Options struct {
	Address     string
	ProjectName string
	Version     string
	// Development enables permissive CORS for browser clients.
	Development bool
}

type Server struct {
	opts   Options
	users  UserAPI
	guard  *Guard
	logger logging.Logger
	engine *gin.Engine
}

func NewServer(opts Options, users UserAPI, tokens TokenVerifier, l logging.Logger) *Server {
	s := &Server{
		opts:   opts,
		users:  users,
		guard:  NewGuard(tokens),
		logger: l.With("module", "http_server"),
	}
	s.engine = s.router()
	return s
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves HTTP until ctx is done, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve is Run with a listener supplied by the caller.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			s.logger.Error(ctx, "http shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}
