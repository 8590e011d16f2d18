package rbac

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SuperAdminRoleName marks the designated role that bypasses all scoped
// permission checks.
const SuperAdminRoleName = "super_admin"

// ContextBuilder assembles the per-request UserContext snapshot: identity,
// active role grants, the deduplicated permission union, and the
// hierarchy-expanded accessible organization set.
//
// Building is a pure read; results are cached with a short TTL and
// invalidated explicitly from role, permission, and membership write paths.
type ContextBuilder struct {
	dir       UserDirectory
	hierarchy *HierarchyResolver
	cache     ContextCache
	catalog   *Catalog
	log       zerolog.Logger
}

// NewContextBuilder wires the builder. A nil cache disables caching, which
// is useful in tests and admin tooling.
func NewContextBuilder(dir UserDirectory, hierarchy *HierarchyResolver, cache ContextCache, catalog *Catalog, logger zerolog.Logger) *ContextBuilder {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &ContextBuilder{dir: dir, hierarchy: hierarchy, cache: cache, catalog: catalog, log: logger}
}

// Build returns the user's authorization snapshot, from cache when fresh.
// It fails with NotFoundError when the user does not exist, is inactive, or
// is soft-deleted. Database errors propagate as errors; they are never
// converted into an allow.
func (b *ContextBuilder) Build(ctx context.Context, userID uuid.UUID) (*UserContext, error) {
	if b.cache != nil {
		if uc, ok := b.cache.Get(ctx, userID); ok {
			return uc, nil
		}
	}

	start := time.Now()
	uc, err := b.build(ctx, userID)
	if err != nil {
		return nil, err
	}
	observeContextBuild(time.Since(start))

	if b.cache != nil {
		if err := b.cache.Set(ctx, userID, uc); err != nil {
			// A failed cache write only costs a rebuild on the next request.
			b.log.Warn().Err(err).Stringer("user_id", userID).Msg("user context cache write failed")
		}
	}
	return uc, nil
}

func (b *ContextBuilder) build(ctx context.Context, userID uuid.UUID) (*UserContext, error) {
	user, err := b.dir.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	if user == nil || !user.IsActive || user.DeletedAt != nil {
		return nil, &NotFoundError{Kind: "user", ID: userID}
	}

	grants, err := b.dir.ListActiveGrants(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load role grants for %s: %w", userID, err)
	}

	var (
		superAdmin bool
		roleNames  []string
		perms      []Permission
	)
	for _, grant := range grants {
		roleNames = append(roleNames, grant.RoleName)
		if grant.IsSystemRole && grant.RoleName == SuperAdminRoleName {
			superAdmin = true
		}
		for _, name := range grant.PermissionNames {
			if name == SuperAdminPermission {
				superAdmin = true
				continue
			}
			p, ok := b.catalog.Lookup(name)
			if !ok {
				// Unknown rows grant nothing; dropping them keeps the
				// snapshot fail-closed against corrupt catalog data.
				b.log.Warn().
					Str("permission", name).
					Str("role", grant.RoleName).
					Msg("permission not in catalog, skipping")
				continue
			}
			perms = append(perms, p)
		}
	}

	memberships, err := b.dir.ListMemberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load memberships for %s: %w", userID, err)
	}

	var (
		directIDs  []uuid.UUID
		accessible []uuid.UUID
		currentOrg *uuid.UUID
	)
	for _, m := range memberships {
		directIDs = append(directIDs, m.OrganizationID)
		if m.IsPrimary && currentOrg == nil {
			id := m.OrganizationID
			currentOrg = &id
		}
		expanded, err := b.hierarchy.HierarchyIDs(ctx, m.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("expand hierarchy for %s: %w", m.OrganizationID, err)
		}
		accessible = append(accessible, expanded...)
	}
	if currentOrg == nil && len(directIDs) > 0 {
		id := directIDs[0]
		currentOrg = &id
	}

	return NewUserContext(UserContextParams{
		UserID:                    userID,
		IsSuperAdmin:              superAdmin,
		CurrentOrganizationID:     currentOrg,
		RoleNames:                 roleNames,
		OrganizationIDs:           directIDs,
		AccessibleOrganizationIDs: accessible,
		Permissions:               perms,
	}), nil
}

// Invalidate drops the user's cached context. Role, permission, and
// membership write paths call this so revocations take effect on the next
// request instead of waiting out the TTL.
func (b *ContextBuilder) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if b.cache == nil {
		return nil
	}
	return b.cache.Invalidate(ctx, userID)
}
