package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userstack/auth-service/internal/config"
	"github.com/userstack/auth-service/internal/httperr"
	"github.com/userstack/auth-service/internal/model"
	"github.com/userstack/auth-service/internal/queue"
	"github.com/userstack/auth-service/internal/repository"
	"github.com/userstack/auth-service/internal/service"
	"github.com/userstack/auth-service/internal/token"
)

// memStore is an in-memory UserStore used to drive the state machine
// without MySQL.  It mirrors the repository's filter and update semantics.
type memStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]model.User
	roles  map[uint64]model.Role
}

func newMemStore() *memStore {
	return &memStore{
		nextID: 1,
		users:  map[uint64]model.User{},
		roles: map[uint64]model.Role{
			1: {ID: 1, Name: model.RoleAdmin, Description: "Administrative user", Active: true},
			2: {ID: 2, Name: model.RoleUser, Description: "Standard user", Active: true},
		},
	}
}

func (s *memStore) FindUser(_ context.Context, f repository.UserFilter) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if f.ID != nil && u.ID != *f.ID {
			continue
		}
		if f.Email != nil && u.Email != strings.ToLower(strings.TrimSpace(*f.Email)) {
			continue
		}
		if f.RefreshToken != nil && (u.RefreshToken == nil || *u.RefreshToken != *f.RefreshToken) {
			continue
		}
		return u, nil
	}
	return model.User{}, repository.ErrNotFound
}

func (s *memStore) InsertUser(_ context.Context, nu repository.NewUser) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(nu.Email))
	for _, u := range s.users {
		if u.Email == email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	roleID := nu.RoleID
	u := model.User{
		ID:        s.nextID,
		Name:      nu.Name,
		Email:     email,
		Password:  nu.Password,
		RoleID:    &roleID,
		Active:    nu.Active,
		CreatedAt: time.Now().UTC(),
	}
	s.users[u.ID] = u
	s.nextID++
	return u, nil
}

func (s *memStore) UpdateUser(_ context.Context, id uint64, upd repository.UserUpdate) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Password != nil {
		u.Password = *upd.Password
	}
	if upd.Active != nil {
		u.Active = *upd.Active
	}
	if upd.RoleID != nil {
		v := *upd.RoleID
		u.RoleID = &v
	}
	if upd.RefreshToken != nil {
		if upd.RefreshToken.Valid {
			v := upd.RefreshToken.String
			u.RefreshToken = &v
		} else {
			u.RefreshToken = nil
		}
	}
	if upd.TokenVersion != nil {
		u.TokenVersion = *upd.TokenVersion
	}
	if upd.DeletedAt != nil {
		if upd.DeletedAt.Valid {
			v := upd.DeletedAt.Time
			u.DeletedAt = &v
		} else {
			u.DeletedAt = nil
		}
	}
	now := time.Now().UTC()
	u.UpdatedAt = &now
	s.users[id] = u
	return u, nil
}

func (s *memStore) FindRole(_ context.Context, f repository.RoleFilter) (model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if f.ID != nil && r.ID != *f.ID {
			continue
		}
		if f.Name != nil && r.Name != *f.Name {
			continue
		}
		return r, nil
	}
	return model.Role{}, repository.ErrNotFound
}

// recordingPublisher captures dispatched mail events.
type recordingPublisher struct {
	events chan queue.UserRegisteredEvent
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: make(chan queue.UserRegisteredEvent, 4)}
}

func (p *recordingPublisher) PublishUserRegistered(_ context.Context, ev queue.UserRegisteredEvent) error {
	p.events <- ev
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Env:                     "test",
		SiteTitle:               "Test Site",
		AccessTokenSecret:       "standard-access-secret",
		RefreshTokenSecret:      "standard-refresh-secret",
		AdminAccessTokenSecret:  "admin-access-secret",
		AdminRefreshTokenSecret: "admin-refresh-secret",
		AccessTTLDays:           2,
		RefreshTTLDays:          30,
		BcryptCost:              4, // keep the test suite fast
		EmailVerificationSecret: "verification-secret",
		EmailVerificationTTLMin: 60,
		BaseURL:                 "http://localhost:3000",
	}
}

func newTestService(pub service.EventPublisher) (*service.AuthService, *memStore, *token.Codec) {
	cfg := testConfig()
	store := newMemStore()
	codec := token.NewCodec(cfg)
	return service.NewAuthService(store, codec, pub, cfg), store, codec
}

// registerActive registers a user and flips it active, as email
// verification would.
func registerActive(t *testing.T, svc *service.AuthService, store *memStore, email, password string) model.User {
	t.Helper()
	result, err := svc.Register(context.Background(), "Test User", email, password)
	require.NoError(t, err)
	u, err := store.UpdateUser(context.Background(), result.User.ID, repository.UserUpdate{Active: boolPtr(true)})
	require.NoError(t, err)
	return u
}

func boolPtr(b bool) *bool { return &b }

func TestRegister(t *testing.T) {
	pub := newRecordingPublisher()
	svc, store, _ := newTestService(pub)

	result, err := svc.Register(context.Background(), "A", "a@x.com", "p1")
	require.NoError(t, err)

	assert.False(t, result.User.Active, "accounts start inactive")
	assert.Equal(t, "a@x.com", result.User.Email)
	assert.Equal(t, model.RoleUser, result.Role.Name)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)
	assert.NotContains(t, result.User.Password, "p1", "stored password is hashed")

	stored, err := store.FindUser(context.Background(), repository.UserFilter{ID: &result.User.ID})
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, result.Tokens.RefreshToken, *stored.RefreshToken)

	// The verification mail event is dispatched out of band.
	select {
	case ev := <-pub.events:
		assert.Equal(t, result.User.ID, ev.UserID)
		assert.Equal(t, "a@x.com", ev.Email)
		assert.Contains(t, ev.VerificationLink, "/v1/auth/verify-email/")
		assert.NotEmpty(t, ev.EventID)
	case <-time.After(2 * time.Second):
		t.Fatal("verification event was not published")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(nil)

	_, err := svc.Register(context.Background(), "A", "a@x.com", "p1")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "B", "a@x.com", "p2")
	assert.ErrorIs(t, err, httperr.ErrDuplicateEmail)

	// Email comparison is case-insensitive.
	_, err = svc.Register(context.Background(), "C", "A@X.COM", "p3")
	assert.ErrorIs(t, err, httperr.ErrDuplicateEmail)
}

func TestRegisterMissingDefaultRole(t *testing.T) {
	svc, store, _ := newTestService(nil)
	store.roles = map[uint64]model.Role{}

	_, err := svc.Register(context.Background(), "A", "a@x.com", "p1")
	assert.ErrorIs(t, err, httperr.ErrRoleNotFound)
}

func TestLoginBeforeActivation(t *testing.T) {
	svc, _, _ := newTestService(nil)

	_, err := svc.Register(context.Background(), "A", "a@x.com", "p1")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "a@x.com", "p1")
	assert.ErrorIs(t, err, httperr.ErrAccountInactive)
}

func TestLoginCredentialErrorsCollapse(t *testing.T) {
	svc, store, _ := newTestService(nil)
	registerActive(t, svc, store, "a@x.com", "p1")

	_, wrongPassword := svc.Login(context.Background(), "a@x.com", "nope")
	_, unknownEmail := svc.Login(context.Background(), "ghost@x.com", "p1")

	assert.ErrorIs(t, wrongPassword, httperr.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, httperr.ErrInvalidCredentials)
	// Identical error value: responses cannot distinguish the two cases.
	assert.Equal(t, wrongPassword, unknownEmail)
}

func TestLoginSuccess(t *testing.T) {
	svc, store, _ := newTestService(nil)
	u := registerActive(t, svc, store, "a@x.com", "p1")

	result, err := svc.Login(context.Background(), "a@x.com", "p1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, result.User.ID)
	assert.Equal(t, model.RoleUser, result.Role.Name)
	assert.NotEmpty(t, result.Tokens.AccessToken)

	stored, err := store.FindUser(context.Background(), repository.UserFilter{ID: &u.ID})
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, result.Tokens.RefreshToken, *stored.RefreshToken)
}

func TestLoginSupersedesPreviousSession(t *testing.T) {
	svc, store, _ := newTestService(nil)
	registerActive(t, svc, store, "a@x.com", "p1")

	first, err := svc.Login(context.Background(), "a@x.com", "p1")
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), "a@x.com", "p1")
	require.NoError(t, err)
	require.NotEqual(t, first.Tokens.RefreshToken, second.Tokens.RefreshToken)

	// The overwritten refresh token no longer matches the stored value.
	_, err = svc.Refresh(context.Background(), first.Tokens.RefreshToken, token.RoleStandard)
	assert.ErrorIs(t, err, httperr.ErrTokenInvalid)

	_, err = svc.Refresh(context.Background(), second.Tokens.RefreshToken, token.RoleStandard)
	assert.NoError(t, err)
}

func TestRefreshRotation(t *testing.T) {
	svc, store, _ := newTestService(nil)
	registerActive(t, svc, store, "a@x.com", "p1")

	login, err := svc.Login(context.Background(), "a@x.com", "p1")
	require.NoError(t, err)
	r1 := login.Tokens.RefreshToken

	rotated, err := svc.Refresh(context.Background(), r1, token.RoleStandard)
	require.NoError(t, err)
	assert.NotEqual(t, r1, rotated.RefreshToken)

	// The superseded token is unusable for a second refresh.
	_, err = svc.Refresh(context.Background(), r1, token.RoleStandard)
	assert.ErrorIs(t, err, httperr.ErrTokenInvalid)

	// The rotated token works exactly once more.
	_, err = svc.Refresh(context.Background(), rotated.RefreshToken, token.RoleStandard)
	assert.NoError(t, err)
}

func TestRefreshWrongRoleClass(t *testing.T) {
	svc, store, _ := newTestService(nil)
	registerActive(t, svc, store, "a@x.com", "p1")

	login, err := svc.Login(context.Background(), "a@x.com", "p1")
	require.NoError(t, err)

	// A standard refresh token presented on the admin tier fails signature
	// verification against the admin secret pair.
	_, err = svc.Refresh(context.Background(), login.Tokens.RefreshToken, token.RoleAdmin)
	assert.ErrorIs(t, err, httperr.ErrTokenInvalid)
}

func TestRefreshGarbageToken(t *testing.T) {
	svc, _, _ := newTestService(nil)

	_, err := svc.Refresh(context.Background(), "not-a-token", token.RoleStandard)
	assert.ErrorIs(t, err, httperr.ErrTokenInvalid)
}

func TestLogout(t *testing.T) {
	svc, store, _ := newTestService(nil)
	u := registerActive(t, svc, store, "a@x.com", "p1")

	login, err := svc.Login(context.Background(), "a@x.com", "p1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), u.ID))

	stored, err := store.FindUser(context.Background(), repository.UserFilter{ID: &u.ID})
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshToken)

	// The pre-logout refresh token is dead.
	_, err = svc.Refresh(context.Background(), login.Tokens.RefreshToken, token.RoleStandard)
	assert.ErrorIs(t, err, httperr.ErrTokenInvalid)

	// Logout is idempotent.
	require.NoError(t, svc.Logout(context.Background(), u.ID))

	// Unknown users are reported.
	err = svc.Logout(context.Background(), 9999)
	assert.ErrorIs(t, err, httperr.ErrUserNotFound)
}

func TestActionUserTransitions(t *testing.T) {
	svc, store, _ := newTestService(nil)
	u := registerActive(t, svc, store, "a@x.com", "p1")

	// DELETE: inactive + soft-deleted, login reports termination.
	deleted, err := svc.ActionUser(context.Background(), u.ID, service.ActionDelete)
	require.NoError(t, err)
	assert.False(t, deleted.Active)
	require.NotNil(t, deleted.DeletedAt)

	_, err = svc.Login(context.Background(), "a@x.com", "p1")
	assert.ErrorIs(t, err, httperr.ErrAccountTerminated)

	// ACTIVATE: clears the soft delete and reactivates.
	restored, err := svc.ActionUser(context.Background(), u.ID, service.ActionActivate)
	require.NoError(t, err)
	assert.True(t, restored.Active)
	assert.Nil(t, restored.DeletedAt)

	_, err = svc.Login(context.Background(), "a@x.com", "p1")
	assert.NoError(t, err)

	// DEACTIVATE: inactive only, no deletion stamp.
	suspended, err := svc.ActionUser(context.Background(), u.ID, service.ActionDeactivate)
	require.NoError(t, err)
	assert.False(t, suspended.Active)
	assert.Nil(t, suspended.DeletedAt)

	_, err = svc.Login(context.Background(), "a@x.com", "p1")
	assert.ErrorIs(t, err, httperr.ErrAccountInactive)

	// Unknown targets are reported.
	_, err = svc.ActionUser(context.Background(), 9999, service.ActionDelete)
	assert.ErrorIs(t, err, httperr.ErrUserNotFound)
}

func TestActionUserCutsOffRefresh(t *testing.T) {
	svc, store, _ := newTestService(nil)
	u := registerActive(t, svc, store, "a@x.com", "p1")

	login, err := svc.Login(context.Background(), "a@x.com", "p1")
	require.NoError(t, err)

	// Deactivation bumps the token version; the stored refresh token still
	// matches but its embedded version is stale.
	_, err = svc.ActionUser(context.Background(), u.ID, service.ActionDeactivate)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), login.Tokens.RefreshToken, token.RoleStandard)
	assert.ErrorIs(t, err, httperr.ErrTokenInvalid)
}

func TestVerifyEmailActivates(t *testing.T) {
	svc, store, codec := newTestService(nil)

	result, err := svc.Register(context.Background(), "A", "a@x.com", "p1")
	require.NoError(t, err)
	require.False(t, result.User.Active)

	verification, err := codec.IssueVerification(result.User.ID)
	require.NoError(t, err)

	activated, err := svc.VerifyEmail(context.Background(), verification)
	require.NoError(t, err)
	assert.True(t, activated.Active)

	stored, err := store.FindUser(context.Background(), repository.UserFilter{ID: &result.User.ID})
	require.NoError(t, err)
	assert.True(t, stored.Active)

	// Session tokens are not verification tokens.
	_, err = svc.VerifyEmail(context.Background(), result.Tokens.AccessToken)
	assert.ErrorIs(t, err, httperr.ErrTokenInvalid)
}

func TestEnsureAdmin(t *testing.T) {
	svc, store, _ := newTestService(nil)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin@x.com", "secret"))

	email := "admin@x.com"
	admin, err := store.FindUser(context.Background(), repository.UserFilter{Email: &email})
	require.NoError(t, err)
	assert.True(t, admin.Active, "seeded admin is active immediately")
	require.NotNil(t, admin.RoleID)
	role, err := store.FindRole(context.Background(), repository.RoleFilter{ID: admin.RoleID})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role.Name)

	// Re-running the seed leaves the existing account untouched.
	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin@x.com", "different"))
	again, err := store.FindUser(context.Background(), repository.UserFilter{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, admin.Password, again.Password)

	// The seeded admin can log in and refresh on the admin tier.
	login, err := svc.Login(context.Background(), "admin@x.com", "secret")
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background(), login.Tokens.RefreshToken, token.RoleAdmin)
	assert.NoError(t, err)
	// But not on the standard tier.
	login2, err := svc.Login(context.Background(), "admin@x.com", "secret")
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background(), login2.Tokens.RefreshToken, token.RoleStandard)
	assert.ErrorIs(t, err, httperr.ErrTokenInvalid)
}
