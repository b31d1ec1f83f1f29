package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the system (matches user_role enum)
type Role string

const (
	RoleClient       Role = "client"
	RolePhotographer Role = "photographer"
	RoleAdmin        Role = "admin"
)

// User is the read model of an account. Registration and profile editing
// live outside this service.
type User struct {
	ID        uuid.UUID      `db:"id"`
	Name      string         `db:"name"`
	Email     string         `db:"email"`
	Phone     sql.NullString `db:"phone"`
	Role      Role           `db:"role"`
	CreatedAt time.Time      `db:"created_at"`
}

// IsAdmin returns true if user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsPhotographer returns true if user is a photographer
func (u *User) IsPhotographer() bool {
	return u.Role == RolePhotographer
}
