// Package service implements the session state machine: registration,
// login, logout, token refresh and admin account actions.  All durable
// session state is the single refresh token column on the user row, so the
// service itself is stateless and safe to run in any number of replicas.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/userstack/auth-service/internal/config"
	"github.com/userstack/auth-service/internal/httperr"
	"github.com/userstack/auth-service/internal/model"
	"github.com/userstack/auth-service/internal/queue"
	"github.com/userstack/auth-service/internal/repository"
	"github.com/userstack/auth-service/internal/token"
	"github.com/userstack/auth-service/internal/utils"
)

// UserStore is the credential store contract.  The MySQL implementation
// lives in internal/repository; tests substitute an in-memory fake.
type UserStore interface {
	FindUser(ctx context.Context, f repository.UserFilter) (model.User, error)
	InsertUser(ctx context.Context, u repository.NewUser) (model.User, error)
	UpdateUser(ctx context.Context, id uint64, upd repository.UserUpdate) (model.User, error)
	FindRole(ctx context.Context, f repository.RoleFilter) (model.Role, error)
}

// EventPublisher dispatches side-channel events.  Failures are logged by
// the service and never surfaced to clients.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, ev queue.UserRegisteredEvent) error
}

// UserAction is the closed set of admin operations on an account.
type UserAction string

const (
	ActionActivate   UserAction = "ACTIVATE"
	ActionDeactivate UserAction = "DEACTIVATE"
	ActionDelete     UserAction = "DELETE"
)

// Valid reports whether the action is one of the known values.
func (a UserAction) Valid() bool {
	switch a {
	case ActionActivate, ActionDeactivate, ActionDelete:
		return true
	}
	return false
}

// AuthResult bundles what register and login hand back to the client: the
// user record, its role, and a freshly issued token pair.
type AuthResult struct {
	User   model.User
	Role   model.Role
	Tokens token.Pair
}

// AuthService orchestrates the auth flows over the credential store, the
// password hasher and the token codec.
type AuthService struct {
	store      UserStore
	codec      *token.Codec
	publisher  EventPublisher // nil disables mail dispatch
	bcryptCost int
	baseURL    string
	verifyTTL  int // minutes, for mail copy
}

func NewAuthService(store UserStore, codec *token.Codec, publisher EventPublisher, cfg config.Config) *AuthService {
	return &AuthService{
		store:      store,
		codec:      codec,
		publisher:  publisher,
		bcryptCost: cfg.BcryptCost,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		verifyTTL:  cfg.EmailVerificationTTLMin,
	}
}

// Register creates an inactive account, issues its first token pair and
// persists the refresh token.  The verification mail is dispatched as an
// independent step after the state change has succeeded; a mail failure is
// logged and never fails the registration.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	// Duplicate check up front for a clean client error; the unique index
	// remains the authority under concurrent registrations.
	if _, err := s.store.FindUser(ctx, repository.UserFilter{Email: &email}); err == nil {
		return AuthResult{}, httperr.ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("register: find user: %w", err)
	}

	roleName := model.RoleUser
	role, err := s.store.FindRole(ctx, repository.RoleFilter{Name: &roleName})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, httperr.ErrRoleNotFound
		}
		return AuthResult{}, fmt.Errorf("register: find role: %w", err)
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("register: hash password: %w", err)
	}

	user, err := s.store.InsertUser(ctx, repository.NewUser{
		Name:     name,
		Email:    email,
		Password: hash,
		RoleID:   role.ID,
		Active:   false,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return AuthResult{}, httperr.ErrDuplicateEmail
		}
		return AuthResult{}, fmt.Errorf("register: insert user: %w", err)
	}

	result, err := s.issueSession(ctx, user, token.ClassForRole(role.Name))
	if err != nil {
		return AuthResult{}, err
	}
	result.Role = role

	// State change and response value are settled; mail dispatch runs on
	// its own, off the request context, and only logs on failure.
	go s.dispatchVerification(result.User)

	return result, nil
}

// Login verifies credentials and rotates the session.  The previous refresh
// token is overwritten, which unilaterally terminates any earlier session.
// "No such user" and "wrong password" collapse into the same error so that
// responses cannot be used to enumerate accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.FindUser(ctx, repository.UserFilter{Email: &email})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, httperr.ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("login: find user: %w", err)
	}
	if user.Terminated() {
		return AuthResult{}, httperr.ErrAccountTerminated
	}
	if !user.Active {
		return AuthResult{}, httperr.ErrAccountInactive
	}
	if !utils.VerifyPassword(user.Password, password) {
		return AuthResult{}, httperr.ErrInvalidCredentials
	}

	role, err := s.roleOf(ctx, user)
	if err != nil {
		return AuthResult{}, fmt.Errorf("login: resolve role: %w", err)
	}

	result, err := s.issueSession(ctx, user, token.ClassForRole(role.Name))
	if err != nil {
		return AuthResult{}, err
	}
	result.Role = role
	return result, nil
}

// Logout clears the stored refresh token, terminating the session.  It is
// idempotent: logging out an already logged-out user succeeds.
func (s *AuthService) Logout(ctx context.Context, userID uint64) error {
	if _, err := s.store.FindUser(ctx, repository.UserFilter{ID: &userID}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httperr.ErrUserNotFound
		}
		return fmt.Errorf("logout: find user: %w", err)
	}
	_, err := s.store.UpdateUser(ctx, userID, repository.UserUpdate{
		RefreshToken: &sql.NullString{}, // write NULL
	})
	if err != nil {
		return fmt.Errorf("logout: clear refresh token: %w", err)
	}
	return nil
}

// Refresh exchanges a refresh token for a fresh pair, rotating the stored
// token.  The presented token must verify against the refresh secret of the
// caller's role class AND exactly match the persisted value — a token
// superseded by a later login or refresh no longer matches and fails with
// the same error as a forged one.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, class token.RoleClass) (token.Pair, error) {
	claims, err := s.codec.Verify(refreshToken, s.codec.PairFor(class).Refresh)
	if err != nil {
		return token.Pair{}, httperr.FromTokenError(err)
	}

	user, err := s.store.FindUser(ctx, repository.UserFilter{RefreshToken: &refreshToken})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Single-active-session rule: no stored match means the token
			// was rotated away, logged out, or never issued by us.
			return token.Pair{}, httperr.ErrTokenInvalid
		}
		return token.Pair{}, fmt.Errorf("refresh: find user: %w", err)
	}

	// The subject claim and the row the token was found on must agree, and
	// the token version must still be current; an admin DEACTIVATE/DELETE
	// bumps the version to cut off renewal.
	if sub, err := claims.UserID(); err != nil || sub != user.ID || claims.TokenVersion != user.TokenVersion {
		return token.Pair{}, httperr.ErrTokenInvalid
	}

	result, err := s.issueSession(ctx, user, class)
	if err != nil {
		return token.Pair{}, err
	}
	return result.Tokens, nil
}

// ActionUser applies an admin action to the target account.  DEACTIVATE and
// DELETE bump the token version so outstanding refresh tokens become
// unusable; already-issued access tokens stay valid until natural expiry.
func (s *AuthService) ActionUser(ctx context.Context, targetID uint64, action UserAction) (model.User, error) {
	user, err := s.store.FindUser(ctx, repository.UserFilter{ID: &targetID})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, httperr.ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("action user: find user: %w", err)
	}

	var upd repository.UserUpdate
	bumped := user.TokenVersion + 1
	switch action {
	case ActionActivate:
		upd.Active = boolPtr(true)
		upd.DeletedAt = &sql.NullTime{} // clear soft-delete
	case ActionDeactivate:
		upd.Active = boolPtr(false)
		upd.TokenVersion = &bumped
	case ActionDelete:
		upd.Active = boolPtr(false)
		upd.DeletedAt = &sql.NullTime{Time: time.Now().UTC(), Valid: true}
		upd.TokenVersion = &bumped
	default:
		return model.User{}, httperr.New(400, "Unknown action")
	}

	updated, err := s.store.UpdateUser(ctx, targetID, upd)
	if err != nil {
		return model.User{}, fmt.Errorf("action user: update: %w", err)
	}
	return updated, nil
}

// VerifyEmail activates the account referenced by a valid email
// verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, tokenStr string) (model.User, error) {
	claims, err := s.codec.VerifyVerification(tokenStr)
	if err != nil {
		return model.User{}, httperr.FromTokenError(err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return model.User{}, httperr.ErrTokenInvalid
	}

	if _, err := s.store.FindUser(ctx, repository.UserFilter{ID: &userID}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, httperr.ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("verify email: find user: %w", err)
	}

	updated, err := s.store.UpdateUser(ctx, userID, repository.UserUpdate{Active: boolPtr(true)})
	if err != nil {
		return model.User{}, fmt.Errorf("verify email: activate: %w", err)
	}
	return updated, nil
}

// EnsureAdmin seeds the admin account from configuration on startup.  The
// seeded admin is active immediately; an existing account is left alone.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.store.FindUser(ctx, repository.UserFilter{Email: &email}); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("ensure admin: find user: %w", err)
	}

	roleName := model.RoleAdmin
	role, err := s.store.FindRole(ctx, repository.RoleFilter{Name: &roleName})
	if err != nil {
		return fmt.Errorf("ensure admin: find role: %w", err)
	}
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("ensure admin: hash password: %w", err)
	}
	if _, err := s.store.InsertUser(ctx, repository.NewUser{
		Name:     "Administrator",
		Email:    email,
		Password: hash,
		RoleID:   role.ID,
		Active:   true,
	}); err != nil {
		return fmt.Errorf("ensure admin: insert: %w", err)
	}
	log.Printf("auth: seeded admin account %s", email)
	return nil
}

// issueSession generates a token pair for the user and persists the new
// refresh token in a single atomic update.  The store write settles before
// anything is returned, so a failure here fails the whole operation and the
// client receives no tokens.
func (s *AuthService) issueSession(ctx context.Context, user model.User, class token.RoleClass) (AuthResult, error) {
	tokens, err := s.codec.IssueAuthPair(user.ID, class, user.TokenVersion)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue tokens: %w", err)
	}
	updated, err := s.store.UpdateUser(ctx, user.ID, repository.UserUpdate{
		RefreshToken: &sql.NullString{String: tokens.RefreshToken, Valid: true},
	})
	if err != nil {
		return AuthResult{}, fmt.Errorf("persist refresh token: %w", err)
	}
	return AuthResult{User: updated, Tokens: tokens}, nil
}

// dispatchVerification publishes the verification mail event.  It runs off
// the request context: the registration response must never wait on, or be
// failed by, the broker.
func (s *AuthService) dispatchVerification(user model.User) {
	if s.publisher == nil {
		return
	}
	verification, err := s.codec.IssueVerification(user.ID)
	if err != nil {
		log.Printf("auth: issue verification token for user %d failed: %v", user.ID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ev := queue.UserRegisteredEvent{
		EventID:          uuid.NewString(),
		UserID:           user.ID,
		Name:             user.Name,
		Email:            user.Email,
		VerificationLink: fmt.Sprintf("%s/v1/auth/verify-email/%s", s.baseURL, verification),
		ExpiresInMinutes: s.verifyTTL,
		RegisteredAt:     user.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishUserRegistered(ctx, ev); err != nil {
		log.Printf("auth: verification mail event for user %d failed: %v", user.ID, err)
	}
}

// roleOf resolves the user's role record.  A user whose role was removed
// (nullable foreign key) falls back to the standard role semantics.
func (s *AuthService) roleOf(ctx context.Context, user model.User) (model.Role, error) {
	if user.RoleID == nil {
		return model.Role{Name: model.RoleUser}, nil
	}
	role, err := s.store.FindRole(ctx, repository.RoleFilter{ID: user.RoleID})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Role{Name: model.RoleUser}, nil
		}
		return model.Role{}, err
	}
	return role, nil
}

func boolPtr(b bool) *bool { return &b }
