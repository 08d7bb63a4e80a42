// Package users stores credential records. The PostgreSQL implementation is
// used in production; the in-memory one backs development runs without a DSN
// and tests.
package users

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/accountsvc/internal/server/models"
)

// Repository is the record store contract consumed by the user service.
//
// Lookups that find nothing return common.ErrorNotFound. Create returns
// common.ErrAlreadyExists when the email is taken.
type Repository interface {
	FindAll(ctx context.Context) ([]*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	// FindActiveByEmail only returns records with Active set.
	FindActiveByEmail(ctx context.Context, email string) (*models.User, error)
	// Create fills ID and CreatedAt on the returned record.
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// NormalizeEmail is the stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
