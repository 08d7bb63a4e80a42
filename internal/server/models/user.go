package models

import "time"

// Role is one value of the fixed role enumeration.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r belongs to the enumeration.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// DefaultRoles is assigned to records created without explicit roles.
func DefaultRoles() []Role {
	return []Role{RoleUser}
}

// User is a stored credential record. PasswordHash holds the encoded
// argon2id hash, never the plaintext.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	Roles        []Role
	CreatedAt    time.Time
}

// Claims returns the identity snapshot embedded into tokens.
func (u *User) Claims() Claims {
	roles := make([]Role, len(u.Roles))
	copy(roles, u.Roles)
	return Claims{UserID: u.ID, Name: u.Name, Email: u.Email, Roles: roles}
}
