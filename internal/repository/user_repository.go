package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/userstack/auth-service/internal/model"
)

// UserFilter selects users by partial-field equality.  Nil fields are
// ignored; set fields are ANDed together.
type UserFilter struct {
	ID           *uint64
	Email        *string
	RefreshToken *string
}

// RoleFilter selects roles by partial-field equality.
type RoleFilter struct {
	ID   *uint64
	Name *string
}

// NewUser carries the fields of a user insert.  Accounts always start
// inactive; activation happens through email verification or admin action.
type NewUser struct {
	Name     string
	Email    string
	Password string // already hashed
	RoleID   uint64
	Active   bool
}

// UserUpdate carries a partial update.  Nil fields are left untouched.
// RefreshToken and DeletedAt use sql.Null types so that an update can
// explicitly write NULL (logout clears the token, ACTIVATE clears the
// soft-delete stamp).
type UserUpdate struct {
	Name         *string
	Password     *string
	Active       *bool
	RoleID       *uint64
	RefreshToken *sql.NullString
	TokenVersion *uint64
	DeletedAt    *sql.NullTime
}

// UserRepo provides find/insert/update access to the users and roles
// tables.  Domain logic never touches *sql.DB directly.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,password,role_id,active,refresh_token,token_version,created_at,updated_at,deleted_at"

// FindUser returns the first user matching the filter, or ErrNotFound.
func (r *UserRepo) FindUser(ctx context.Context, f UserFilter) (model.User, error) {
	where, args := userWhere(f)
	if where == "" {
		return model.User{}, ErrNotFound
	}
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", args...)
	return scanUser(row)
}

// InsertUser creates a user row and returns the stored record.
func (r *UserRepo) InsertUser(ctx context.Context, u NewUser) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password, role_id, active) VALUES (?,?,?,?,?)",
		u.Name, email, u.Password, u.RoleID, u.Active)
	if err != nil {
		// MySQL error 1062: duplicate entry on the unique email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	uid := uint64(id)
	return r.FindUser(ctx, UserFilter{ID: &uid})
}

// UpdateUser applies a partial update keyed by user id and returns the
// updated record.  The write is a single atomic statement; concurrent
// updates for the same user resolve by last-write-wins at the database.
func (r *UserRepo) UpdateUser(ctx context.Context, id uint64, upd UserUpdate) (model.User, error) {
	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)
	if upd.Name != nil {
		sets, args = append(sets, "name=?"), append(args, *upd.Name)
	}
	if upd.Password != nil {
		sets, args = append(sets, "password=?"), append(args, *upd.Password)
	}
	if upd.Active != nil {
		sets, args = append(sets, "active=?"), append(args, *upd.Active)
	}
	if upd.RoleID != nil {
		sets, args = append(sets, "role_id=?"), append(args, *upd.RoleID)
	}
	if upd.RefreshToken != nil {
		sets, args = append(sets, "refresh_token=?"), append(args, *upd.RefreshToken)
	}
	if upd.TokenVersion != nil {
		sets, args = append(sets, "token_version=?"), append(args, *upd.TokenVersion)
	}
	if upd.DeletedAt != nil {
		sets, args = append(sets, "deleted_at=?"), append(args, *upd.DeletedAt)
	}
	if len(sets) == 0 {
		return r.FindUser(ctx, UserFilter{ID: &id})
	}
	sets = append(sets, "updated_at=NOW()")
	args = append(args, id)

	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("UPDATE users SET %s WHERE id=?", strings.Join(sets, ", ")), args...)
	if err != nil {
		return model.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Distinguish "no such user" from "values unchanged".
		var exists int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", id).Scan(&exists); err != nil {
			if err == sql.ErrNoRows {
				return model.User{}, ErrNotFound
			}
			return model.User{}, err
		}
	}
	return r.FindUser(ctx, UserFilter{ID: &id})
}

// FindRole returns the first role matching the filter, or ErrNotFound.
func (r *UserRepo) FindRole(ctx context.Context, f RoleFilter) (model.Role, error) {
	where := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if f.ID != nil {
		where, args = append(where, "id=?"), append(args, *f.ID)
	}
	if f.Name != nil {
		where, args = append(where, "name=?"), append(args, *f.Name)
	}
	if len(where) == 0 {
		return model.Role{}, ErrNotFound
	}
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,description,active FROM roles WHERE "+strings.Join(where, " AND ")+" LIMIT 1",
		args...).Scan(&role.ID, &role.Name, &role.Description, &role.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Role{}, ErrNotFound
		}
		return model.Role{}, err
	}
	return role, nil
}

func userWhere(f UserFilter) (string, []interface{}) {
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if f.ID != nil {
		where, args = append(where, "id=?"), append(args, *f.ID)
	}
	if f.Email != nil {
		// Emails are stored lower-cased; normalize so lookups are
		// case-insensitive.
		where, args = append(where, "email=?"), append(args, strings.ToLower(strings.TrimSpace(*f.Email)))
	}
	if f.RefreshToken != nil {
		where, args = append(where, "refresh_token=?"), append(args, *f.RefreshToken)
	}
	return strings.Join(where, " AND "), args
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u            model.User
		roleID       sql.NullInt64
		refreshToken sql.NullString
		updatedAt    sql.NullTime
		deletedAt    sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &roleID, &u.Active,
		&refreshToken, &u.TokenVersion, &u.CreatedAt, &updatedAt, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	if roleID.Valid {
		v := uint64(roleID.Int64)
		u.RoleID = &v
	}
	if refreshToken.Valid {
		v := refreshToken.String
		u.RefreshToken = &v
	}
	if updatedAt.Valid {
		v := updatedAt.Time
		u.UpdatedAt = &v
	}
	if deletedAt.Valid {
		v := deletedAt.Time
		u.DeletedAt = &v
	}
	return u, nil
}
