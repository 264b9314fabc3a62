package models

import "time"

// UserRole соответствует значению claim "role" в токене и колонке users.role.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleHost   UserRole = "host"
	RolePlayer UserRole = "player"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleHost, RolePlayer:
		return true
	default:
		return false
	}
}

type User struct {
	ID        int       `json:"id" db:"id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Email     string    `json:"email,omitempty" db:"email"`
	Role      UserRole  `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Actor is the authenticated identity behind a request.
type Actor struct {
	ID   int      `json:"id"`
	Role UserRole `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// SystemActor is used by background jobs and by flows that trigger promotion
// on behalf of the platform (withdrawals, rejections).
func SystemActor() Actor {
	return Actor{ID: 0, Role: RoleAdmin}
}
