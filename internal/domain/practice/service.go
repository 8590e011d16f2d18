package practice

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/insano70/bcos-sub014/internal/rbac"
)

var (
	permRead   = rbac.Permission{Resource: "practices", Action: "read"}
	permCreate = rbac.Permission{Resource: "practices", Action: "create"}
	permUpdate = rbac.Permission{Resource: "practices", Action: "update"}
	permDelete = rbac.Permission{Resource: "practices", Action: "delete"}
)

// Service enforces authorization before every practice operation. The guard
// decides; the repository only ever sees pre-narrowed filters.
type Service struct {
	practices PracticeRepository
	guard     *rbac.Guard
}

func NewService(practices PracticeRepository, guard *rbac.Guard) *Service {
	return &Service{practices: practices, guard: guard}
}

func (s *Service) CreatePractice(ctx context.Context, uc *rbac.UserContext, p *Practice) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permCreate.Variants(),
		rbac.WithOrganization(p.OrganizationID)); err != nil {
		return err
	}
	if err := s.guard.RequireOrganizationAccess(ctx, uc, p.OrganizationID); err != nil {
		return err
	}
	p.CreatedBy = uc.UserID()
	return s.practices.Create(ctx, p)
}

func (s *Service) GetPractice(ctx context.Context, uc *rbac.UserContext, id uuid.UUID) (*Practice, error) {
	p, err := s.practices.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load practice %s: %w", id, err)
	}
	if p == nil {
		return nil, &rbac.NotFoundError{Kind: "practice", ID: id}
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permRead.Variants(),
		rbac.WithResourceOwner(p.CreatedBy),
		rbac.WithOrganization(p.OrganizationID)); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPractices narrows the listing to the caller's resolved scope: own
// scope sees practices they created, organization scope sees the accessible
// subtree, all scope sees everything. No grant returns an empty page rather
// than an error.
func (s *Service) ListPractices(ctx context.Context, uc *rbac.UserContext, status string, limit, offset int) ([]*Practice, int, error) {
	scope := s.guard.ResolveScope(uc, permRead.Resource, permRead.Action)

	f := ListFilter{Status: status, Limit: limit, Offset: offset}
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
		return []*Practice{}, 0, nil
	}

	return s.practices.List(ctx, f)
}

func (s *Service) UpdatePractice(ctx context.Context, uc *rbac.UserContext, p *Practice) error {
	existing, err := s.practices.GetByID(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("load practice %s: %w", p.ID, err)
	}
	if existing == nil {
		return &rbac.NotFoundError{Kind: "practice", ID: p.ID}
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permUpdate.Variants(),
		rbac.WithResourceOwner(existing.CreatedBy),
		rbac.WithOrganization(existing.OrganizationID)); err != nil {
		return err
	}

	// Organization moves go through the organization admin API, not here.
	p.OrganizationID = existing.OrganizationID
	p.CreatedBy = existing.CreatedBy
	if err := p.Validate(); err != nil {
		return err
	}
	return s.practices.Update(ctx, p)
}

func (s *Service) DeletePractice(ctx context.Context, uc *rbac.UserContext, id uuid.UUID) error {
	existing, err := s.practices.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load practice %s: %w", id, err)
	}
	if existing == nil {
		return &rbac.NotFoundError{Kind: "practice", ID: id}
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permDelete.Variants(),
		rbac.WithResourceOwner(existing.CreatedBy),
		rbac.WithOrganization(existing.OrganizationID)); err != nil {
		return err
	}
	return s.practices.SoftDelete(ctx, id)
}
