package rbac

import (
	"context"

	"github.com/google/uuid"
)

// UserContext is an immutable per-request snapshot of a user's identity,
// roles, permissions, and accessible organizations. It is built once by the
// ContextBuilder and never mutated afterwards; any change to the underlying
// roles or memberships requires invalidating the cache and rebuilding.
type UserContext struct {
	userID                uuid.UUID
	isSuperAdmin          bool
	currentOrganizationID *uuid.UUID
	roleNames             []string
	organizationIDs       []uuid.UUID
	accessibleIDs         []uuid.UUID
	accessibleSet         map[uuid.UUID]struct{}
	permissions           []Permission
	// grants maps "resource:action" to the broadest granted scope.
	grants map[string]Scope
}

// UserContextParams carries everything the builder assembled for a user.
type UserContextParams struct {
	UserID                uuid.UUID
	IsSuperAdmin          bool
	CurrentOrganizationID *uuid.UUID
	RoleNames             []string
	// OrganizationIDs are the user's direct memberships.
	OrganizationIDs []uuid.UUID
	// AccessibleOrganizationIDs are direct memberships plus every
	// hierarchy-expanded descendant.
	AccessibleOrganizationIDs []uuid.UUID
	Permissions               []Permission
}

// NewUserContext constructs the snapshot. Permissions are deduplicated and
// indexed by grant key; the broadest scope per resource/action wins.
func NewUserContext(p UserContextParams) *UserContext {
	uc := &UserContext{
		userID:                p.UserID,
		isSuperAdmin:          p.IsSuperAdmin,
		currentOrganizationID: p.CurrentOrganizationID,
		roleNames:             append([]string(nil), p.RoleNames...),
		organizationIDs:       append([]uuid.UUID(nil), p.OrganizationIDs...),
		accessibleSet:         make(map[uuid.UUID]struct{}, len(p.AccessibleOrganizationIDs)),
		grants:                make(map[string]Scope),
	}
	for _, id := range p.AccessibleOrganizationIDs {
		if _, dup := uc.accessibleSet[id]; dup {
			continue
		}
		uc.accessibleSet[id] = struct{}{}
		uc.accessibleIDs = append(uc.accessibleIDs, id)
	}
	seen := make(map[string]struct{}, len(p.Permissions))
	for _, perm := range p.Permissions {
		if _, dup := seen[perm.String()]; dup {
			continue
		}
		seen[perm.String()] = struct{}{}
		uc.permissions = append(uc.permissions, perm)
		if cur, ok := uc.grants[perm.Key()]; !ok || perm.Scope.Broader(cur) {
			uc.grants[perm.Key()] = perm.Scope
		}
	}
	return uc
}

// UserID returns the authenticated subject this snapshot describes.
func (uc *UserContext) UserID() uuid.UUID { return uc.userID }

// IsSuperAdmin reports whether the user bypasses all scoped checks.
func (uc *UserContext) IsSuperAdmin() bool { return uc.isSuperAdmin }

// CurrentOrganizationID returns the active tenant context for the session,
// or nil when the user has no primary membership.
func (uc *UserContext) CurrentOrganizationID() *uuid.UUID {
	if uc.currentOrganizationID == nil {
		return nil
	}
	id := *uc.currentOrganizationID
	return &id
}

// RoleNames returns the names of the user's active roles.
func (uc *UserContext) RoleNames() []string {
	return append([]string(nil), uc.roleNames...)
}

// OrganizationIDs returns the user's direct organization memberships.
func (uc *UserContext) OrganizationIDs() []uuid.UUID {
	return append([]uuid.UUID(nil), uc.organizationIDs...)
}

// AccessibleOrganizationIDs returns the hierarchy-expanded set of
// organizations the user can reach.
func (uc *UserContext) AccessibleOrganizationIDs() []uuid.UUID {
	return append([]uuid.UUID(nil), uc.accessibleIDs...)
}

// CanAccessOrganization reports whether the organization is inside the
// user's accessible set. Super admins can access everything.
func (uc *UserContext) CanAccessOrganization(id uuid.UUID) bool {
	if uc.isSuperAdmin {
		return true
	}
	_, ok := uc.accessibleSet[id]
	return ok
}

// Permissions returns the deduplicated union of permissions from all active
// role assignments.
func (uc *UserContext) Permissions() []Permission {
	return append([]Permission(nil), uc.permissions...)
}

// HasGrant reports whether the user holds the exact permission, or a
// broader scope of the same resource/action.
func (uc *UserContext) HasGrant(p Permission) bool {
	scope, ok := uc.grants[p.Key()]
	return ok && scope.Broader(p.Scope)
}

// GrantedScope returns the broadest scope held for a resource/action pair,
// or ScopeNone when no matching permission exists.
func (uc *UserContext) GrantedScope(resource, action string) Scope {
	return uc.grants[resource+":"+action]
}

type contextKey struct{}

// NewContext returns a context carrying the user-context snapshot. Installed
// by the request middleware after the builder runs.
func NewContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, contextKey{}, uc)
}

// FromContext retrieves the snapshot installed by NewContext. A nil result
// means the request is unauthenticated; every checker and guard treats nil
// as denial.
func FromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(contextKey{}).(*UserContext)
	return uc
}
