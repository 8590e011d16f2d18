package workitem

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/insano70/bcos-sub014/internal/rbac"
)

var (
	permRead   = rbac.Permission{Resource: "work-items", Action: "read"}
	permCreate = rbac.Permission{Resource: "work-items", Action: "create"}
	permUpdate = rbac.Permission{Resource: "work-items", Action: "update"}
	permDelete = rbac.Permission{Resource: "work-items", Action: "delete"}
	permManage = rbac.Permission{Resource: "work-items", Action: "manage"}
)

type Service struct {
	items WorkItemRepository
	guard *rbac.Guard
}

func NewService(items WorkItemRepository, guard *rbac.Guard) *Service {
	return &Service{items: items, guard: guard}
}

func (s *Service) CreateWorkItem(ctx context.Context, uc *rbac.UserContext, w *WorkItem) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permCreate.Variants(),
		rbac.WithOrganization(w.OrganizationID)); err != nil {
		return err
	}
	if err := s.guard.RequireOrganizationAccess(ctx, uc, w.OrganizationID); err != nil {
		return err
	}
	w.CreatedBy = uc.UserID()
	return s.items.Create(ctx, w)
}

func (s *Service) GetWorkItem(ctx context.Context, uc *rbac.UserContext, id uuid.UUID) (*WorkItem, error) {
	w, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permRead.Variants(),
		rbac.WithResourceOwner(w.OwnerID()),
		rbac.WithOrganization(w.OrganizationID)); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) ListWorkItems(ctx context.Context, uc *rbac.UserContext, f ListFilter) ([]*WorkItem, int, error) {
	scope := s.guard.ResolveScope(uc, permRead.Resource, permRead.Action)

	switch scope.Scope {
	case rbac.ScopeAll:
		// no narrowing
	case rbac.ScopeOrganization:
		f.OrganizationIDs = scope.OrganizationIDs
		if f.OrganizationIDs == nil {
			f.OrganizationIDs = []uuid.UUID{}
		}
	case rbac.ScopeOwn:
		owner := uc.UserID()
		f.OwnerID = &owner
	default:
		return []*WorkItem{}, 0, nil
	}

	return s.items.List(ctx, f)
}

func (s *Service) UpdateWorkItem(ctx context.Context, uc *rbac.UserContext, w *WorkItem) error {
	existing, err := s.load(ctx, w.ID)
	if err != nil {
		return err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permUpdate.Variants(),
		rbac.WithResourceOwner(existing.OwnerID()),
		rbac.WithOrganization(existing.OrganizationID)); err != nil {
		return err
	}

	// Status changes go through Transition so the lifecycle is enforced.
	w.Status = existing.Status
	w.OrganizationID = existing.OrganizationID
	w.CreatedBy = existing.CreatedBy
	if err := w.Validate(); err != nil {
		return err
	}
	return s.items.Update(ctx, w)
}

// Transition moves the item through its lifecycle. Reassignment and
// transitions on other people's items need the manage action; the owner can
// transition with a plain update grant.
func (s *Service) Transition(ctx context.Context, uc *rbac.UserContext, id uuid.UUID, target string) (*WorkItem, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permUpdate.Variants(),
		rbac.WithResourceOwner(existing.OwnerID()),
		rbac.WithOrganization(existing.OrganizationID)); err != nil {
		return nil, err
	}
	if !existing.CanTransition(target) {
		return nil, fmt.Errorf("cannot transition from %s to %s", existing.Status, target)
	}

	existing.Status = target
	if target == StatusDone {
		now := time.Now().UTC()
		existing.CompletedAt = &now
	}
	if err := s.items.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Assign sets the assignee. This changes who owns the item, so it requires
// the manage action rather than update.
func (s *Service) Assign(ctx context.Context, uc *rbac.UserContext, id uuid.UUID, assignee *uuid.UUID) (*WorkItem, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permManage.Variants(),
		rbac.WithResourceOwner(existing.OwnerID()),
		rbac.WithOrganization(existing.OrganizationID)); err != nil {
		return nil, err
	}

	existing.AssignedTo = assignee
	if err := s.items.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) DeleteWorkItem(ctx context.Context, uc *rbac.UserContext, id uuid.UUID) error {
	existing, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permDelete.Variants(),
		rbac.WithResourceOwner(existing.OwnerID()),
		rbac.WithOrganization(existing.OrganizationID)); err != nil {
		return err
	}
	return s.items.Delete(ctx, id)
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*WorkItem, error) {
	w, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load work item %s: %w", id, err)
	}
	if w == nil {
		return nil, &rbac.NotFoundError{Kind: "work item", ID: id}
	}
	return w, nil
}
