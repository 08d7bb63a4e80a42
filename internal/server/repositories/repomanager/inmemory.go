package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/accountsvc/internal/dbx"
	"github.com/dmitrijs2005/accountsvc/internal/server/repositories/users"
)

// InMemoryRepositoryManager serves one process-wide in-memory store. The db
// handle passed to Users is ignored and may be nil.
type InMemoryRepositoryManager struct {
	users *users.InMemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{users: users.NewInMemoryRepository()}
}

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}

// InMemoryUsers exposes the concrete store for tests that need to change
// records directly.
func (m *InMemoryRepositoryManager) InMemoryUsers() *users.InMemoryRepository {
	return m.users
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}
