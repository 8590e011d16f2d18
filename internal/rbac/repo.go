package rbac

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Organization is the minimal view of an organization the authorization
// core needs: a node in the parent-pointer forest. The admin surface owns
// the full model; the core treats organizations as opaque scoping units.
type Organization struct {
	ID        uuid.UUID
	Name      string
	ParentID  *uuid.UUID
	IsActive  bool
	DeletedAt *time.Time
}

// Traversable reports whether hierarchy traversal may pass through this
// node. Soft-deleted and inactive organizations are excluded by default.
func (o *Organization) Traversable() bool {
	return o.IsActive && o.DeletedAt == nil
}

// User is the identity row consulted while building a user context.
type User struct {
	ID        uuid.UUID
	Email     string
	IsActive  bool
	DeletedAt *time.Time
}

// RoleGrant is one active role assignment joined with the role's permission
// set. Deactivated or expired assignments never reach the builder.
type RoleGrant struct {
	RoleID          uuid.UUID
	RoleName        string
	IsSystemRole    bool
	OrganizationID  *uuid.UUID
	PermissionNames []string
}

// Membership is a direct user-organization membership.
type Membership struct {
	OrganizationID uuid.UUID
	IsPrimary      bool
}

// OrganizationStore is the persistence surface the hierarchy resolver
// reads. ListAll returns every organization so the resolver can build its
// adjacency view; includeInactive widens the result for admin tooling.
type OrganizationStore interface {
	ListAll(ctx context.Context, includeInactive bool) ([]*Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
}

// UserDirectory is the persistence surface the context builder reads.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	// ListActiveGrants returns the user's active, unexpired role
	// assignments with each role's permission names.
	ListActiveGrants(ctx context.Context, userID uuid.UUID) ([]RoleGrant, error)
	ListMemberships(ctx context.Context, userID uuid.UUID) ([]Membership, error)
}
