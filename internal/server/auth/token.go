package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountsvc/internal/common"
	"github.com/dmitrijs2005/accountsvc/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenClaims is the JWT payload: registered claims plus the identity
// snapshot. sub carries the user id.
type tokenClaims struct {
	jwt.RegisteredClaims
	Name  string        `json:"name"`
	Email string        `json:"email"`
	Roles []models.Role `json:"roles"`
}

// ClaimsSource resolves fresh identity claims for a user id. It returns
// common.ErrUserNotFound when the identity no longer exists.
type ClaimsSource interface {
	ResolveClaims(ctx context.Context, userID string) (models.Claims, error)
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithIssuer sets the iss claim written on issue and required on verify.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) { s.issuer = issuer }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// TokenService issues and verifies HS256 tokens. It holds no mutable state
// and is safe for concurrent use.
type TokenService struct {
	secret   []byte
	validity time.Duration
	issuer   string
	now      func() time.Time
}

func NewTokenService(secret string, validity time.Duration, opts ...TokenOption) *TokenService {
	s := &TokenService{secret: []byte(secret), validity: validity, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs claims with an expiry of now + validity, rounded up to the
// whole second exp is encoded with.
func (s *TokenService) Issue(c models.Claims) (string, error) {
	now := s.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   c.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiryCeil(now.Add(s.validity))),
		},
		Name:  c.Name,
		Email: c.Email,
		Roles: c.Roles,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token and returns the claims
// embedded at issuance. Failures are common.ErrTokenExpired once the expiry
// has passed and common.ErrInvalidToken otherwise.
func (s *TokenService) Verify(token string) (*models.Claims, error) {
	if token == "" {
		return nil, common.ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	tc := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, tc, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if tc.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return &models.Claims{
		UserID: tc.Subject,
		Name:   tc.Name,
		Email:  tc.Email,
		Roles:  tc.Roles,
	}, nil
}

// Refresh verifies token and, only if it is valid, issues a new token from
// the claims src resolves for the same user. The old token is left alone and
// stays valid until its own expiry.
func (s *TokenService) Refresh(ctx context.Context, token string, src ClaimsSource) (string, *models.Claims, error) {
	old, err := s.Verify(token)
	if err != nil {
		return "", nil, err
	}

	fresh, err := src.ResolveClaims(ctx, old.UserID)
	if err != nil {
		return "", nil, err
	}

	next, err := s.Issue(fresh)
	if err != nil {
		return "", nil, err
	}
	return next, &fresh, nil
}

// expiryCeil rounds t up to a whole second. NumericDate truncates, which
// would otherwise end a token's life before now + validity.
func expiryCeil(t time.Time) time.Time {
	if tr := t.Truncate(time.Second); !tr.Equal(t) {
		return tr.Add(time.Second)
	}
	return t
}
