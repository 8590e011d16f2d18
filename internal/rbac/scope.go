package rbac

import "github.com/google/uuid"

// AccessScope is the effective breadth a user holds for one resource/action
// pair, computed on demand from the snapshot and never persisted. Business
// services use it to build database filters without re-deriving hierarchy
// logic:
//
//	none         -> deny before querying
//	own          -> WHERE created_by = <user>
//	organization -> WHERE organization_id = ANY(<OrganizationIDs>)
//	all          -> no filter
type AccessScope struct {
	Scope Scope
	// OrganizationIDs is populated only for ScopeOrganization and carries
	// the hierarchy-expanded accessible set.
	OrganizationIDs []uuid.UUID
}

// ResolveScope returns the broadest scope the user holds for the
// resource/action pair. Super admins resolve to ScopeAll regardless of
// their permission rows; a nil context resolves to ScopeNone.
//
// Invariant: the returned scope never names an organization outside the
// user's accessible set, except under ScopeAll.
func ResolveScope(uc *UserContext, resource, action string) AccessScope {
	if uc == nil {
		return AccessScope{Scope: ScopeNone}
	}
	if uc.IsSuperAdmin() {
		return AccessScope{Scope: ScopeAll}
	}
	switch granted := uc.GrantedScope(resource, action); granted {
	case ScopeAll:
		return AccessScope{Scope: ScopeAll}
	case ScopeOrganization:
		return AccessScope{Scope: ScopeOrganization, OrganizationIDs: uc.AccessibleOrganizationIDs()}
	case ScopeOwn:
		return AccessScope{Scope: ScopeOwn}
	default:
		return AccessScope{Scope: ScopeNone}
	}
}

// Allows reports whether the scope grants any access at all.
func (a AccessScope) Allows() bool {
	return a.Scope != ScopeNone
}
