package organization

import (
	"context"

	"github.com/google/uuid"
)

type OrganizationRepository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
	// UpdateParent re-homes the organization under a new parent. A nil
	// parent makes it a root.
	UpdateParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	// List returns organizations restricted to ids when ids is non-nil.
	// An empty non-nil slice matches nothing.
	List(ctx context.Context, ids []uuid.UUID) ([]*Organization, error)
}
