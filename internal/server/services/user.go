// Package services contains the use cases behind the HTTP surface. This file
// implements UserService: registration, authentication, token refresh and
// record lookups.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountsvc/internal/common"
	"github.com/dmitrijs2005/accountsvc/internal/dbx"
	"github.com/dmitrijs2005/accountsvc/internal/logging"
	"github.com/dmitrijs2005/accountsvc/internal/server/auth"
	"github.com/dmitrijs2005/accountsvc/internal/server/mailer"
	"github.com/dmitrijs2005/accountsvc/internal/server/models"
	"github.com/dmitrijs2005/accountsvc/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountsvc/internal/server/repositories/users"
	"github.com/go-playground/validator/v10"
)

// WelcomeSender accepts welcome emails for asynchronous delivery. Enqueue
// must not block; it reports false when the message was dropped.
type WelcomeSender interface {
	Enqueue(msg mailer.Message) bool
}

// Options carries the tunables of UserService.
type Options struct {
	// StoreTimeout bounds every record store call. Zero means no deadline
	// beyond the caller's context.
	StoreTimeout time.Duration
	// ProjectName is used in the welcome email.
	ProjectName string
}

// RegisterInput is a signup request. Roles is empty for public signups and
// defaults to the user role.
type RegisterInput struct {
	Name     string        `json:"name" validate:"required,min=3"`
	Email    string        `json:"email" validate:"required,email"`
	Password string        `json:"password" validate:"required,min=6"`
	Roles    []models.Role `json:"roles" validate:"omitempty,dive,role"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is the result of a successful authenticate or refresh.
type Session struct {
	Token  string
	Claims models.Claims
}

type UserService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	credentials *auth.CredentialVerifier
	tokens      *auth.TokenService
	mail        WelcomeSender
	logger      logging.Logger
	validate    *validator.Validate
	opts        Options
}

// NewUserService wires the service. mail may be nil, in which case no
// welcome emails are sent.
func NewUserService(
	db dbx.DBTX,
	m repomanager.RepositoryManager,
	creds *auth.CredentialVerifier,
	tokens *auth.TokenService,
	mail WelcomeSender,
	logger logging.Logger,
	opts Options,
) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		credentials: creds,
		tokens:      tokens,
		mail:        mail,
		logger:      logger.With("module", "user_service"),
		validate:    newValidator(),
		opts:        opts,
	}
}

// Register validates the input, stores a new active record with a hashed
// password and queues a welcome email. A taken email is reported as a
// validation failure on the email field.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = users.NormalizeEmail(in.Email)

	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	hash, err := s.credentials.Hash(in.Password)
	if err != nil {
		s.logger.Error(ctx, "hashing password failed", "error", err)
		return nil, common.ErrorInternal
	}

	roles := in.Roles
	if len(roles) == 0 {
		roles = models.DefaultRoles()
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	created, err := s.users().Create(storeCtx, &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Active:       true,
		Roles:        roles,
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.NewValidationError("email", "email is already registered")
		}
		return nil, s.storeError(ctx, "create user", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", created.ID)
	s.sendWelcome(ctx, created)

	return created, nil
}

// Authenticate checks email and password against the active record and
// issues a token. Unknown email, inactive record and wrong password all
// return common.ErrorUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	if err := s.validate.Struct(loginInput{Email: strings.TrimSpace(email), Password: password}); err != nil {
		return nil, validationError(err)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.users().FindActiveByEmail(storeCtx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// same cost as a real comparison
			s.credentials.Matches(password, "")
			return nil, common.ErrorUnauthorized
		}
		return nil, s.storeError(ctx, "find user by email", err)
	}

	if !user.Active || !s.credentials.Matches(password, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	return s.issue(ctx, user.Claims())
}

// RefreshToken exchanges a valid token for a new one built from the current
// record. Invalid or expired tokens fail before the store is consulted.
func (s *UserService) RefreshToken(ctx context.Context, token string) (*Session, error) {
	next, claims, err := s.tokens.Refresh(ctx, token, s)
	if err != nil {
		return nil, err
	}
	return &Session{Token: next, Claims: *claims}, nil
}

// ResolveClaims implements auth.ClaimsSource. Missing and inactive records
// both yield common.ErrUserNotFound.
func (s *UserService) ResolveClaims(ctx context.Context, userID string) (models.Claims, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.users().FindByID(storeCtx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.Claims{}, common.ErrUserNotFound
		}
		return models.Claims{}, s.storeError(ctx, "find user by id", err)
	}
	if !user.Active {
		return models.Claims{}, common.ErrUserNotFound
	}
	return user.Claims(), nil
}

// List returns every record.
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	all, err := s.users().FindAll(storeCtx)
	if err != nil {
		return nil, s.storeError(ctx, "list users", err)
	}
	return all, nil
}

// Get returns one record or common.ErrorNotFound.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.users().FindByID(storeCtx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, s.storeError(ctx, "find user by id", err)
	}
	return user, nil
}

// --- helpers below ---

func (s *UserService) users() users.Repository {
	return s.repomanager.Users(s.db)
}

func (s *UserService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.StoreTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.StoreTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *UserService) storeError(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, "store call failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", common.ErrStoreUnavailable, op, err)
}

func (s *UserService) issue(ctx context.Context, c models.Claims) (*Session, error) {
	token, err := s.tokens.Issue(c)
	if err != nil {
		s.logger.Error(ctx, "issuing token failed", "error", err)
		return nil, common.ErrorInternal
	}
	return &Session{Token: token, Claims: c}, nil
}

func (s *UserService) sendWelcome(ctx context.Context, u *models.User) {
	if s.mail == nil {
		return
	}
	msg, err := mailer.WelcomeMessage(u.Email, u.Name, s.opts.ProjectName)
	if err != nil {
		s.logger.Warn(ctx, "rendering welcome email failed", "user_id", u.ID, "error", err)
		return
	}
	if !s.mail.Enqueue(msg) {
		s.logger.Warn(ctx, "welcome email dropped", "user_id", u.ID)
	}
}
