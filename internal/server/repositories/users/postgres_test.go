package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/accountsvc/internal/common"
	"github.com/dmitrijs2005/accountsvc/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	annID      = "0b6c2f5e-7f0a-4a53-9d1c-6b0e3f0c9a11"
	insertSQL  = `(?s)^INSERT\s+INTO\s+users\s*\(name,\s*email,\s*password_hash,\s*active,\s*roles\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+id,\s*created_at\s*$`
	selectCols = `SELECT\s+id,\s*name,\s*email,\s*password_hash,\s*active,\s*roles,\s*created_at\s+FROM\s+users\s+`
	byIDSQL    = `(?s)^` + selectCols + `WHERE\s+id\s*=\s*\$1\s*$`
	byEmailSQL = `(?s)^` + selectCols + `WHERE\s+email\s*=\s*\$1\s+AND\s+active\s*=\s*TRUE\s*$`
	allSQL     = `(?s)^` + selectCols + `ORDER\s+BY\s+created_at,\s*id\s*$`
)

var created = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "active", "roles", "created_at"})
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertSQL).
		WithArgs("Ann Lee", "ann@example.com", "$argon2id$hash", true, []byte(`["user"]`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(annID, created))

	in := &models.User{Name: "Ann Lee", Email: "  Ann@Example.com ", PasswordHash: "$argon2id$hash", Active: true}
	got, err := repo.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, annID, got.ID)
	assert.Equal(t, "ann@example.com", got.Email)
	assert.Equal(t, []models.Role{models.RoleUser}, got.Roles)
	assert.Equal(t, created, got.CreatedAt)
	assert.Empty(t, in.ID, "input record is not mutated")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_ExplicitRoles(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertSQL).
		WithArgs("Root", "root@example.com", "h", true, []byte(`["user","admin"]`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(annID, created))

	got, err := repo.Create(context.Background(), &models.User{
		Name: "Root", Email: "root@example.com", PasswordHash: "h", Active: true,
		Roles: []models.Role{models.RoleUser, models.RoleAdmin},
	})
	require.NoError(t, err)
	assert.Contains(t, got.Roles, models.RoleAdmin)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertSQL).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.Create(context.Background(), &models.User{Name: "Ann Lee", Email: "ann@example.com", PasswordHash: "h"})
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want common.ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertSQL).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Name: "Ann Lee", Email: "ann@example.com", PasswordHash: "h"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
		wantMsg string
	}{
		{
			name: "found",
			id:   annID,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(byIDSQL).WithArgs(annID).
					WillReturnRows(userRows().AddRow(annID, "Ann Lee", "ann@example.com", "h", true, []byte(`["user","admin"]`), created))
			},
		},
		{
			name: "no rows",
			id:   annID,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(byIDSQL).WithArgs(annID).WillReturnError(sql.ErrNoRows)
			},
			wantErr: common.ErrorNotFound,
		},
		{
			name:    "malformed id never reaches the db",
			id:      "not-a-uuid",
			setup:   func(sqlmock.Sqlmock) {},
			wantErr: common.ErrorNotFound,
		},
		{
			name: "invalid text representation",
			id:   annID,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(byIDSQL).WithArgs(annID).WillReturnError(&pgconn.PgError{Code: "22P02"})
			},
			wantErr: common.ErrorNotFound,
		},
		{
			name: "db error",
			id:   annID,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(byIDSQL).WithArgs(annID).WillReturnError(errors.New("conn reset"))
			},
			wantMsg: `db error: .*conn reset`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()
			tt.setup(mock)

			got, err := repo.FindByID(context.Background(), tt.id)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}
			case tt.wantMsg != "":
				if err == nil || !regexp.MustCompile(tt.wantMsg).MatchString(err.Error()) {
					t.Fatalf("want error matching %q, got %v", tt.wantMsg, err)
				}
			default:
				require.NoError(t, err)
				assert.Equal(t, "Ann Lee", got.Name)
				assert.Equal(t, []models.Role{models.RoleUser, models.RoleAdmin}, got.Roles)
				assert.True(t, got.Active)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestFindActiveByEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byEmailSQL).WithArgs("ann@example.com").
		WillReturnRows(userRows().AddRow(annID, "Ann Lee", "ann@example.com", "h", true, []byte(`["user"]`), created))
	mock.ExpectQuery(byEmailSQL).WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.FindActiveByEmail(context.Background(), " ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, annID, got.ID)

	_, err = repo.FindActiveByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveByEmail_BadRolesJSON(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byEmailSQL).WithArgs("ann@example.com").
		WillReturnRows(userRows().AddRow(annID, "Ann Lee", "ann@example.com", "h", true, []byte(`{`), created))

	_, err := repo.FindActiveByEmail(context.Background(), "ann@example.com")
	if err == nil || !regexp.MustCompile(`decoding roles`).MatchString(err.Error()) {
		t.Fatalf("expected roles decoding error, got %v", err)
	}
}

func TestFindAll(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(allSQL).WillReturnRows(userRows().
		AddRow(annID, "Ann Lee", "ann@example.com", "h1", true, []byte(`["user"]`), created).
		AddRow("1c9f6e52-0d1f-4c55-8a8e-2f3c4b5d6e7f", "Bob Stone", "bob@example.com", "h2", false, []byte(`["user"]`), created.Add(time.Minute)))

	got, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ann Lee", got[0].Name)
	assert.False(t, got[1].Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAll_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(allSQL).WillReturnRows(userRows())

	got, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindAll_Errors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectQuery(allSQL).WillReturnError(errors.New("boom"))

		_, err := repo.FindAll(context.Background())
		if err == nil || !regexp.MustCompile(`db error: .*boom`).MatchString(err.Error()) {
			t.Fatalf("expected wrapped db error, got %v", err)
		}
	})

	t.Run("rows", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectQuery(allSQL).WillReturnRows(userRows().
			AddRow(annID, "Ann Lee", "ann@example.com", "h1", true, []byte(`["user"]`), created).
			RowError(0, errors.New("row broke")))

		_, err := repo.FindAll(context.Background())
		if err == nil || !regexp.MustCompile(`row broke`).MatchString(err.Error()) {
			t.Fatalf("expected row error, got %v", err)
		}
	})
}
