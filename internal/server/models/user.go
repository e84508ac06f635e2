// Package models holds the domain types shared by repositories, services and
// the HTTP layer.
package models

import "fmt"

// Role is a user's authorization level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole accepts "user" and "admin"; the empty string means RoleUser.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "", RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// User is an identity row. ID is assigned by the store that holds the row
// and is not comparable across stores; Matricula is the cross-store key.
type User struct {
	ID        int64
	Matricula string
	Password  string // bcrypt hash
	Name      string
	Role      Role
}

// UserPatch carries an admin edit. Nil fields are left unchanged; an empty
// Password also leaves the credential unchanged.
type UserPatch struct {
	Matricula *string
	Name      *string
	Password  *string
	Role      *Role
}
