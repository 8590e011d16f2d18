package account

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
)

// User maps to the users table.
type User struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Email     string     `db:"email" json:"email"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Validate checks required fields before a write.
func (u *User) Validate() error {
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("invalid email: %s", u.Email)
	}
	if u.FirstName == "" && u.LastName == "" {
		return fmt.Errorf("a name is required")
	}
	return nil
}

// Role maps to the roles table. System roles are global; custom roles belong
// to an organization and can only be assigned within it.
type Role struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Description    *string    `db:"description" json:"description,omitempty"`
	IsSystemRole   bool       `db:"is_system_role" json:"is_system_role"`
	OrganizationID *uuid.UUID `db:"organization_id" json:"organization_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// RoleAssignment maps to the user_roles table.
type RoleAssignment struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	RoleID         uuid.UUID  `db:"role_id" json:"role_id"`
	RoleName       string     `db:"role_name" json:"role_name"`
	OrganizationID *uuid.UUID `db:"organization_id" json:"organization_id,omitempty"`
	ExpiresAt      *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// MembershipRecord maps to the user_organizations table.
type MembershipRecord struct {
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	IsPrimary      bool      `db:"is_primary" json:"is_primary"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
