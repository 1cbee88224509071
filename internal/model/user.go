package model

import "time"

// User represents a row in the `users` table.  The json tags are omitted
// because these structs are used internally by the repository layer;
// handlers define separate response types with appropriate JSON tags.
//
// A user's session state is fully contained in this row: RefreshToken holds
// the single live refresh token (nil when logged out), and TokenVersion is a
// monotonic counter embedded into issued tokens so that an admin action can
// cut off session renewal without tracking individual tokens.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name.
//  Email        – unique email address (stored lower-cased).
//  Password     – bcrypt hashed password.
//  RoleID       – foreign key into the roles table (nullable when a role is removed).
//  Active       – whether the account has been activated; false until verified.
//  RefreshToken – current refresh token, at most one live value (nullable).
//  TokenVersion – monotonic counter invalidating refresh of older tokens.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update (nullable).
//  DeletedAt    – soft-delete timestamp (nullable); set rows never authenticate.
type User struct {
	ID           uint64     // users.id
	Name         string     // users.name
	Email        string     // users.email
	Password     string     // users.password (bcrypt hash)
	RoleID       *uint64    // users.role_id (references roles.id, nullable)
	Active       bool       // users.active
	RefreshToken *string    // users.refresh_token (nullable)
	TokenVersion uint64     // users.token_version
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    *time.Time // users.updated_at (nullable)
	DeletedAt    *time.Time // users.deleted_at (nullable)
}

// Terminated reports whether the account has been soft-deleted.  Terminated
// users must never pass authentication regardless of their Active flag.
func (u User) Terminated() bool { return u.DeletedAt != nil }

// Role names form a closed set: every user is either a standard user or an
// admin.  The role only selects which secret pair signs the user's tokens;
// claims never encode privileges directly.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Role represents a row in the `roles` table.
//
// Fields:
//  ID          – numeric identifier of the role.
//  Name        – unique role name ("admin" or "user").
//  Description – human readable summary.
//  Active      – whether the role may be assigned.
type Role struct {
	ID          uint64 // roles.id
	Name        string // roles.name
	Description string // roles.description
	Active      bool   // roles.active
}
