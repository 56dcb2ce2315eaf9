package domain

import "time"

// Role is the platform role attached to an account.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleOfficer Role = "OFFICER"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleOfficer, RoleAdmin:
		return true
	}
	return false
}

// ParseRoles converts a list of role names, skipping unknown ones.
func ParseRoles(names []string) []Role {
	roles := make([]Role, 0, len(names))
	for _, name := range names {
		role := Role(name)
		if role.Valid() {
			roles = append(roles, role)
		}
	}
	return roles
}

// Account is a platform member: token holders and readers alike.
type Account struct {
	ID           string
	DisplayID    string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
