// Package repository implements the credential store over MySQL.  Sentinel
// errors defined here let the service layer distinguish failure scenarios
// without depending on database/sql.
package repository

import "errors"

// ErrNotFound is returned when a find operation matches no row.
var ErrNotFound = errors.New("record not found")

// ErrEmailExists is returned when an insert violates the unique email
// constraint.  The service checks for duplicates up front, but two
// concurrent registrations can still race down to the database; the
// constraint is the authority.
var ErrEmailExists = errors.New("email already exists")
