package domain

import (
	"strings"
	"time"
)

// Role enumerates the three actor roles.
type Role string

const (
	RoleRequester Role = "requester"
	RoleHelper    Role = "helper"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleHelper, RoleAdmin:
		return true
	}
	return false
}

// User is a directory record for anyone acting on tickets.
type User struct {
	Identity  string
	Name      string
	Role      Role
	Active    bool
	CreatedAt time.Time
}

// NormalizeIdentity returns the canonical form used as the directory key.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
