package account

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows a user listing to the caller's resolved scope.
type ListFilter struct {
	// OrganizationIDs restricts to users with a membership in these
	// organizations. An empty non-nil slice matches nothing.
	OrganizationIDs []uuid.UUID
	// Whether to include deactivated users.
	IncludeInactive bool
	Limit           int
	Offset          int
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter) ([]*User, int, error)
}

type RoleRepository interface {
	GetRole(ctx context.Context, id uuid.UUID) (*Role, error)
	ListRoles(ctx context.Context, organizationID *uuid.UUID) ([]*Role, error)
	ListAssignments(ctx context.Context, userID uuid.UUID) ([]*RoleAssignment, error)
	Assign(ctx context.Context, a *RoleAssignment) error
	Revoke(ctx context.Context, userID, roleID uuid.UUID) error
}

type MembershipRepository interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*MembershipRecord, error)
	Add(ctx context.Context, m *MembershipRecord) error
	Remove(ctx context.Context, userID, organizationID uuid.UUID) error
}
