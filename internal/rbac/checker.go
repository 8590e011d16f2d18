package rbac

import "github.com/google/uuid"

// CheckOption narrows a permission check to a concrete resource owner or
// target organization. Without options the check only confirms the grant
// exists; ownership and organization filtering then remain the calling
// service's query-building responsibility.
type CheckOption func(*checkOptions)

type checkOptions struct {
	resourceOwnerID *uuid.UUID
	organizationID  *uuid.UUID
}

// WithResourceOwner supplies the owner of the resource under check, enabling
// ownership verification for own-scope grants.
func WithResourceOwner(id uuid.UUID) CheckOption {
	return func(o *checkOptions) { o.resourceOwnerID = &id }
}

// WithOrganization supplies the organization the resource belongs to,
// enabling membership verification for organization-scope grants.
func WithOrganization(id uuid.UUID) CheckOption {
	return func(o *checkOptions) { o.organizationID = &id }
}

func applyOptions(opts []CheckOption) checkOptions {
	var o checkOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// HasPermission decides whether the user may perform the requested
// operation. It is a total function over the immutable snapshot: it never
// errors, and every ambiguous input (nil context, unknown grant) resolves to
// false.
//
// The broadest scope held for the permission's resource/action governs the
// decision, so a user holding work-items:read:all passes a
// work-items:read:own check. A narrower grant never satisfies a broader
// request.
func HasPermission(uc *UserContext, p Permission, opts ...CheckOption) bool {
	if uc == nil {
		return false
	}
	if uc.IsSuperAdmin() {
		return true
	}
	granted := uc.GrantedScope(p.Resource, p.Action)
	if granted == ScopeNone || !granted.Broader(p.Scope) {
		return false
	}
	o := applyOptions(opts)
	switch granted {
	case ScopeAll:
		return true
	case ScopeOrganization:
		if o.organizationID == nil {
			return true
		}
		return uc.CanAccessOrganization(*o.organizationID)
	case ScopeOwn:
		if o.resourceOwnerID == nil {
			return true
		}
		return *o.resourceOwnerID == uc.UserID()
	default:
		return false
	}
}

// HasAnyPermission reports whether at least one of the permissions is held
// (OR semantics).
func HasAnyPermission(uc *UserContext, perms []Permission, opts ...CheckOption) bool {
	for _, p := range perms {
		if HasPermission(uc, p, opts...) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every permission is held (AND
// semantics). An empty list is vacuously false to keep the checker
// fail-closed against programming mistakes.
func HasAllPermissions(uc *UserContext, perms []Permission, opts ...CheckOption) bool {
	if len(perms) == 0 {
		return false
	}
	for _, p := range perms {
		if !HasPermission(uc, p, opts...) {
			return false
		}
	}
	return true
}
