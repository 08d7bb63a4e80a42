package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/accountsvc/internal/common"
	"github.com/dmitrijs2005/accountsvc/internal/dbx"
	"github.com/dmitrijs2005/accountsvc/internal/logging"
	"github.com/dmitrijs2005/accountsvc/internal/server/auth"
	"github.com/dmitrijs2005/accountsvc/internal/server/mailer"
	"github.com/dmitrijs2005/accountsvc/internal/server/models"
	usersrepo "github.com/dmitrijs2005/accountsvc/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// countingRepo wraps the in-memory store, counts calls and can inject
// failures or block until the context is done.
type countingRepo struct {
	*usersrepo.InMemoryRepository

	mu    sync.Mutex
	calls int
	err   error
	block bool
}

func (r *countingRepo) hit(ctx context.Context) error {
	r.mu.Lock()
	r.calls++
	err, block := r.err, r.block
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (r *countingRepo) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *countingRepo) FindAll(ctx context.Context) ([]*models.User, error) {
	if err := r.hit(ctx); err != nil {
		return nil, err
	}
	return r.InMemoryRepository.FindAll(ctx)
}

func (r *countingRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if err := r.hit(ctx); err != nil {
		return nil, err
	}
	return r.InMemoryRepository.FindByID(ctx, id)
}

func (r *countingRepo) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := r.hit(ctx); err != nil {
		return nil, err
	}
	return r.InMemoryRepository.FindActiveByEmail(ctx, email)
}

func (r *countingRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if err := r.hit(ctx); err != nil {
		return nil, err
	}
	return r.InMemoryRepository.Create(ctx, u)
}

type fakeRepoManager struct {
	u *countingRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository         { return m.u }

type fakeSender struct {
	mu     sync.Mutex
	msgs   []mailer.Message
	reject bool
}

func (f *fakeSender) Enqueue(msg mailer.Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return false
	}
	f.msgs = append(f.msgs, msg)
	return true
}

type fixture struct {
	svc    *UserService
	repo   *countingRepo
	mail   *fakeSender
	tokens *auth.TokenService
	now    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{
		repo: &countingRepo{InMemoryRepository: usersrepo.NewInMemoryRepository()},
		mail: &fakeSender{},
		now:  &now,
	}
	f.tokens = auth.NewTokenService("k", 30*time.Minute, auth.WithIssuer("accountsvc"), auth.WithClock(func() time.Time { return *f.now }))
	creds := auth.NewCredentialVerifier("pepper", auth.WithArgonParams(64, 1, 1))

	f.svc = NewUserService(nil, &fakeRepoManager{u: f.repo}, creds, f.tokens, f.mail, logging.Nop(), Options{
		StoreTimeout: time.Second,
		ProjectName:  "accountsvc",
	})
	return f
}

func (f *fixture) register(t *testing.T, name, email, password string) *models.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	return u
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var ve *common.ValidationError
	require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
	names := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		names = append(names, f.Field)
	}
	return names
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)

	u := f.register(t, "  Ann Lee ", "Ann@Example.com", "secret1")

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Ann Lee", u.Name)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.True(t, u.Active)
	assert.Equal(t, []models.Role{models.RoleUser}, u.Roles)
	assert.NotContains(t, u.PasswordHash, "secret1")

	require.Len(t, f.mail.msgs, 1)
	assert.Equal(t, "ann@example.com", f.mail.msgs[0].To)
	assert.Contains(t, f.mail.msgs[0].HTML, "Ann Lee")
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   RegisterInput
		want []string
	}{
		{"short name", RegisterInput{Name: "An", Email: "ann@example.com", Password: "secret1"}, []string{"name"}},
		{"blank name", RegisterInput{Name: "   ", Email: "ann@example.com", Password: "secret1"}, []string{"name"}},
		{"bad email", RegisterInput{Name: "Ann Lee", Email: "ann-at-example", Password: "secret1"}, []string{"email"}},
		{"short password", RegisterInput{Name: "Ann Lee", Email: "ann@example.com", Password: "12345"}, []string{"password"}},
		{"everything", RegisterInput{}, []string{"name", "email", "password"}},
		{"unknown role", RegisterInput{Name: "Ann Lee", Email: "ann@example.com", Password: "secret1", Roles: []models.Role{"root"}}, []string{"roles[0]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Register(context.Background(), tt.in)

			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Equal(t, tt.want, fieldNames(t, err))
			assert.Zero(t, f.repo.Calls(), "store must not be touched on invalid input")
			assert.Empty(t, f.mail.msgs)
		})
	}
}

func TestRegister_ValidationMessages(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "An", Email: "x", Password: "1"})

	var ve *common.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []common.FieldError{
		{Field: "name", Message: "name must be at least 3 characters long"},
		{Field: "email", Message: "email must be a valid email address"},
		{Field: "password", Message: "password must be at least 6 characters long"},
	}, ve.Fields)
}

func TestRegister_UnknownRoleMessage(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Ann Lee", Email: "ann@example.com", Password: "secret1",
		Roles: []models.Role{models.RoleAdmin, "root"},
	})

	var ve *common.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []common.FieldError{
		{Field: "roles[1]", Message: "roles[1] must be one of: user, admin"},
	}, ve.Fields)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ann Lee", "ann@example.com", "secret1")

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ann Again", Email: "ANN@example.com", Password: "secret2"})

	assert.Equal(t, []string{"email"}, fieldNames(t, err))
	assert.Len(t, f.mail.msgs, 1, "no second welcome email")
}

func TestRegister_AdminRole(t *testing.T) {
	f := newFixture(t)

	u, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Root Admin", Email: "root@example.com", Password: "secret1",
		Roles: []models.Role{models.RoleUser, models.RoleAdmin},
	})
	require.NoError(t, err)
	assert.Contains(t, u.Roles, models.RoleAdmin)
}

func TestRegister_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.err = errBoom{}

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ann Lee", Email: "ann@example.com", Password: "secret1"})

	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.ErrorIs(t, err, errBoom{})
	assert.Empty(t, f.mail.msgs)
}

func TestRegister_MailerDoesNotAffectOutcome(t *testing.T) {
	f := newFixture(t)
	f.mail.reject = true

	u, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ann Lee", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	noMail := NewUserService(nil, &fakeRepoManager{u: f.repo}, auth.NewCredentialVerifier("p", auth.WithArgonParams(64, 1, 1)), f.tokens, nil, logging.Nop(), Options{})
	_, err = noMail.Register(context.Background(), RegisterInput{Name: "Bob Stone", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)
}

// --- Authenticate ---

func TestAuthenticate_Success(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Ann Lee", "ann@example.com", "secret1")

	s, err := f.svc.Authenticate(context.Background(), "ANN@example.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, s.Token)
	assert.Equal(t, models.Claims{UserID: u.ID, Name: "Ann Lee", Email: "ann@example.com", Roles: []models.Role{models.RoleUser}}, s.Claims)

	claims, err := f.tokens.Verify(s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.Claims, *claims)
}

func TestAuthenticate_Rejections(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ann Lee", "ann@example.com", "secret1")
	inactive := f.register(t, "Old Timer", "old@example.com", "secret1")
	require.NoError(t, f.repo.SetActive(inactive.ID, false))

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "ann@example.com", "secret2"},
		{"unknown email", "nobody@example.com", "secret1"},
		{"inactive account", "old@example.com", "secret1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := f.svc.Authenticate(context.Background(), tt.email, tt.password)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, common.ErrorUnauthorized)
		})
	}
}

func TestAuthenticate_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Authenticate(context.Background(), "", "")
	assert.Equal(t, []string{"email", "password"}, fieldNames(t, err))
	assert.Zero(t, f.repo.Calls())
}

func TestAuthenticate_StoreTimeout(t *testing.T) {
	f := newFixture(t)
	f.svc.opts.StoreTimeout = 20 * time.Millisecond
	f.repo.block = true

	start := time.Now()
	_, err := f.svc.Authenticate(context.Background(), "ann@example.com", "secret1")

	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

// --- RefreshToken ---

func TestRefreshToken_Success(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Ann Lee", "ann@example.com", "secret1")
	s, err := f.svc.Authenticate(context.Background(), "ann@example.com", "secret1")
	require.NoError(t, err)

	*f.now = f.now.Add(10 * time.Minute)
	next, err := f.svc.RefreshToken(context.Background(), s.Token)
	require.NoError(t, err)

	assert.NotEqual(t, s.Token, next.Token)
	assert.Equal(t, u.ID, next.Claims.UserID)
	assert.Equal(t, "Ann Lee", next.Claims.Name)

	// old token keeps working until its own expiry
	_, err = f.tokens.Verify(s.Token)
	assert.NoError(t, err)
}

func TestRefreshToken_BadTokensSkipStore(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ann Lee", "ann@example.com", "secret1")
	s, err := f.svc.Authenticate(context.Background(), "ann@example.com", "secret1")
	require.NoError(t, err)
	before := f.repo.Calls()

	_, err = f.svc.RefreshToken(context.Background(), s.Token+"tampered")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	*f.now = f.now.Add(31 * time.Minute)
	_, err = f.svc.RefreshToken(context.Background(), s.Token)
	assert.ErrorIs(t, err, common.ErrTokenExpired)

	assert.Equal(t, before, f.repo.Calls(), "store must not be consulted for bad tokens")
}

func TestRefreshToken_UserGone(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		f := newFixture(t)
		u := f.register(t, "Ann Lee", "ann@example.com", "secret1")
		s, err := f.svc.Authenticate(context.Background(), "ann@example.com", "secret1")
		require.NoError(t, err)

		f.repo.Delete(u.ID)

		_, err = f.svc.RefreshToken(context.Background(), s.Token)
		assert.ErrorIs(t, err, common.ErrUserNotFound)
	})

	t.Run("deactivated", func(t *testing.T) {
		f := newFixture(t)
		u := f.register(t, "Ann Lee", "ann@example.com", "secret1")
		s, err := f.svc.Authenticate(context.Background(), "ann@example.com", "secret1")
		require.NoError(t, err)

		require.NoError(t, f.repo.SetActive(u.ID, false))

		_, err = f.svc.RefreshToken(context.Background(), s.Token)
		assert.ErrorIs(t, err, common.ErrUserNotFound)
	})
}

func TestRefreshToken_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ann Lee", "ann@example.com", "secret1")
	s, err := f.svc.Authenticate(context.Background(), "ann@example.com", "secret1")
	require.NoError(t, err)

	f.repo.err = errBoom{}
	_, err = f.svc.RefreshToken(context.Background(), s.Token)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

// --- List / Get ---

func TestListAndGet(t *testing.T) {
	f := newFixture(t)
	ann := f.register(t, "Ann Lee", "ann@example.com", "secret1")
	f.register(t, "Bob Stone", "bob@example.com", "secret1")

	all, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := f.svc.Get(context.Background(), ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", got.Email)

	_, err = f.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	f.repo.err = errBoom{}
	_, err = f.svc.List(context.Background())
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	_, err = f.svc.Get(context.Background(), ann.ID)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}
