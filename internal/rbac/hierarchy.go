package rbac

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

const (
	defaultHierarchyCacheSize = 1024
	defaultHierarchyCacheTTL  = 5 * time.Minute
)

// HierarchyResolver computes the transitive closure of descendant
// organizations, used to expand organization-scoped access into a concrete
// set of accessible organization ids. Expansion runs strictly downward: a
// user scoped to org X can see X and everything beneath X, never ancestors.
//
// Resolution is read-heavy and the tree changes rarely, so results are
// cached per root org with a short TTL. Organization writes must call
// Invalidate (or InvalidateAll for parent moves, which can re-home whole
// subtrees).
type HierarchyResolver struct {
	orgs  OrganizationStore
	cache *expirable.LRU[uuid.UUID, []uuid.UUID]
	log   zerolog.Logger
}

// NewHierarchyResolver creates a resolver with an expirable LRU cache.
func NewHierarchyResolver(orgs OrganizationStore, logger zerolog.Logger) *HierarchyResolver {
	return &HierarchyResolver{
		orgs:  orgs,
		cache: expirable.NewLRU[uuid.UUID, []uuid.UUID](defaultHierarchyCacheSize, nil, defaultHierarchyCacheTTL),
		log:   logger,
	}
}

// HierarchyIDs returns the org itself plus all its descendants. An unknown,
// inactive, or soft-deleted root yields an empty set, not an error: callers
// treat that as "no access" rather than faulting.
func (h *HierarchyResolver) HierarchyIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	if ids, ok := h.cache.Get(orgID); ok {
		return append([]uuid.UUID(nil), ids...), nil
	}
	ids, err := h.traverse(ctx, orgID, false)
	if err != nil {
		return nil, err
	}
	h.cache.Add(orgID, ids)
	return append([]uuid.UUID(nil), ids...), nil
}

// Descendants returns all organizations strictly beneath the root.
func (h *HierarchyResolver) Descendants(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := h.HierarchyIDs(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != orgID {
			out = append(out, id)
		}
	}
	return out, nil
}

// HierarchyIDsIncludingInactive is the admin-tooling variant that traverses
// inactive and soft-deleted nodes. It bypasses the cache, which only holds
// active-view results.
func (h *HierarchyResolver) HierarchyIDsIncludingInactive(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	return h.traverse(ctx, orgID, true)
}

// Children returns the direct, active children of an organization.
func (h *HierarchyResolver) Children(ctx context.Context, orgID uuid.UUID) ([]*Organization, error) {
	all, err := h.orgs.ListAll(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	var children []*Organization
	for _, org := range all {
		if org.ParentID != nil && *org.ParentID == orgID && org.Traversable() {
			children = append(children, org)
		}
	}
	return children, nil
}

// traverse runs a breadth-first walk over the child adjacency view built by
// grouping every organization by parent id. A visited set breaks cycles so
// traversal terminates even on malformed data that violates the tree
// invariant.
func (h *HierarchyResolver) traverse(ctx context.Context, root uuid.UUID, includeInactive bool) ([]uuid.UUID, error) {
	all, err := h.orgs.ListAll(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}

	byID := make(map[uuid.UUID]*Organization, len(all))
	childrenOf := make(map[uuid.UUID][]uuid.UUID, len(all))
	for _, org := range all {
		byID[org.ID] = org
		if org.ParentID != nil {
			childrenOf[*org.ParentID] = append(childrenOf[*org.ParentID], org.ID)
		}
	}

	rootOrg, ok := byID[root]
	if !ok {
		return nil, nil
	}
	if !includeInactive && !rootOrg.Traversable() {
		return nil, nil
	}

	visited := map[uuid.UUID]struct{}{root: {}}
	result := []uuid.UUID{root}
	queue := []uuid.UUID{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, childID := range childrenOf[current] {
			if _, seen := visited[childID]; seen {
				h.log.Warn().
					Stringer("org_id", childID).
					Stringer("root", root).
					Msg("organization hierarchy contains a cycle")
				continue
			}
			visited[childID] = struct{}{}
			child := byID[childID]
			if !includeInactive && !child.Traversable() {
				continue
			}
			result = append(result, childID)
			queue = append(queue, childID)
		}
	}
	return result, nil
}

// Invalidate drops the cached expansion for one root organization.
func (h *HierarchyResolver) Invalidate(orgID uuid.UUID) {
	h.cache.Remove(orgID)
}

// InvalidateAll flushes every cached expansion. Parent changes can re-home
// entire subtrees, so a global flush is the safe policy for organization
// moves and deletes.
func (h *HierarchyResolver) InvalidateAll() {
	h.cache.Purge()
}
