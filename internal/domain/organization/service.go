package organization

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insano70/bcos-sub014/internal/rbac"
)

var (
	permRead   = rbac.Permission{Resource: "organizations", Action: "read"}
	permCreate = rbac.Permission{Resource: "organizations", Action: "create"}
	permUpdate = rbac.Permission{Resource: "organizations", Action: "update"}
	permDelete = rbac.Permission{Resource: "organizations", Action: "delete"}
)

// Service administers the organization tree. Structural writes invalidate
// the hierarchy resolver's cached expansions so scope changes take effect
// without waiting out the TTL.
type Service struct {
	repo      OrganizationRepository
	hierarchy *rbac.HierarchyResolver
	guard     *rbac.Guard
	log       zerolog.Logger
}

func NewService(repo OrganizationRepository, hierarchy *rbac.HierarchyResolver,
	guard *rbac.Guard, logger zerolog.Logger) *Service {
	return &Service{repo: repo, hierarchy: hierarchy, guard: guard, log: logger}
}

// CreateOrganization adds a node to the tree. Creating under a parent needs
// access to that parent; creating a new root is reserved for all-scope
// grants.
func (s *Service) CreateOrganization(ctx context.Context, uc *rbac.UserContext, o *Organization) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.ParentID == nil {
		all := permCreate
		all.Scope = rbac.ScopeAll
		if err := s.guard.RequirePermission(ctx, uc, all); err != nil {
			return err
		}
	} else {
		if err := s.guard.RequireAnyPermission(ctx, uc, permCreate.Variants(),
			rbac.WithOrganization(*o.ParentID)); err != nil {
			return err
		}
		if err := s.guard.RequireOrganizationAccess(ctx, uc, *o.ParentID); err != nil {
			return err
		}
		if _, err := s.load(ctx, *o.ParentID); err != nil {
			return err
		}
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return err
	}
	if o.ParentID != nil {
		s.hierarchy.Invalidate(*o.ParentID)
	}
	return nil
}

func (s *Service) GetOrganization(ctx context.Context, uc *rbac.UserContext, id uuid.UUID) (*Organization, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permRead.Variants(),
		rbac.WithOrganization(id)); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrganizations returns the organizations visible at the caller's
// granted scope.
func (s *Service) ListOrganizations(ctx context.Context, uc *rbac.UserContext) ([]*Organization, error) {
	scope := s.guard.ResolveScope(uc, permRead.Resource, permRead.Action)
	switch scope.Scope {
	case rbac.ScopeAll:
		return s.repo.List(ctx, nil)
	case rbac.ScopeOrganization, rbac.ScopeOwn:
		ids := scope.OrganizationIDs
		if ids == nil {
			ids = []uuid.UUID{}
		}
		return s.repo.List(ctx, ids)
	default:
		return []*Organization{}, nil
	}
}

// ListChildren returns the direct active children of an organization.
func (s *Service) ListChildren(ctx context.Context, uc *rbac.UserContext, id uuid.UUID) ([]*rbac.Organization, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permRead.Variants(),
		rbac.WithOrganization(id)); err != nil {
		return nil, err
	}
	return s.hierarchy.Children(ctx, id)
}

// ListSubtree returns the organization plus every active descendant.
func (s *Service) ListSubtree(ctx context.Context, uc *rbac.UserContext, id uuid.UUID) ([]*Organization, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permRead.Variants(),
		rbac.WithOrganization(id)); err != nil {
		return nil, err
	}
	ids, err := s.hierarchy.HierarchyIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ids)
}

// UpdateOrganization renames or re-activates a node. The parent is pinned;
// moves go through MoveOrganization so the cycle check always runs.
func (s *Service) UpdateOrganization(ctx context.Context, uc *rbac.UserContext, o *Organization) error {
	existing, err := s.load(ctx, o.ID)
	if err != nil {
		return err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permUpdate.Variants(),
		rbac.WithOrganization(o.ID)); err != nil {
		return err
	}
	o.ParentID = existing.ParentID
	if err := o.Validate(); err != nil {
		return err
	}
	wasActive := existing.IsActive
	if err := s.repo.Update(ctx, o); err != nil {
		return err
	}
	// Flipping activation changes which subtrees are traversable anywhere
	// beneath an ancestor, so flush everything.
	if wasActive != o.IsActive {
		s.hierarchy.InvalidateAll()
	} else {
		s.hierarchy.Invalidate(o.ID)
	}
	return nil
}

// MoveOrganization re-homes a subtree under a new parent. The new parent
// must not sit inside the moved subtree, or the tree would gain a cycle.
func (s *Service) MoveOrganization(ctx context.Context, uc *rbac.UserContext, id uuid.UUID, newParentID *uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permUpdate.Variants(),
		rbac.WithOrganization(id)); err != nil {
		return err
	}
	if newParentID != nil {
		if err := s.guard.RequireOrganizationAccess(ctx, uc, *newParentID); err != nil {
			return err
		}
		if _, err := s.load(ctx, *newParentID); err != nil {
			return err
		}
		subtree, err := s.hierarchy.HierarchyIDsIncludingInactive(ctx, id)
		if err != nil {
			return err
		}
		for _, sub := range subtree {
			if sub == *newParentID {
				return fmt.Errorf("cannot move organization %s under its own descendant %s", id, *newParentID)
			}
		}
	}
	if err := s.repo.UpdateParent(ctx, id, newParentID); err != nil {
		return err
	}
	s.hierarchy.InvalidateAll()
	return nil
}

// DeactivateOrganization disables a node, cutting its subtree out of every
// hierarchy expansion.
func (s *Service) DeactivateOrganization(ctx context.Context, uc *rbac.UserContext, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permDelete.Variants(),
		rbac.WithOrganization(id)); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.hierarchy.InvalidateAll()
	return nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Organization, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load organization %s: %w", id, err)
	}
	if o == nil {
		return nil, &rbac.NotFoundError{Kind: "organization", ID: id}
	}
	return o, nil
}
