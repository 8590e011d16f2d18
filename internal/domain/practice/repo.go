package practice

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows a listing to what the caller is allowed to see. The
// service fills it from the caller's resolved access scope; the repository
// applies it verbatim and never widens it.
type ListFilter struct {
	// OwnerID restricts to practices created by this user (own scope).
	OwnerID *uuid.UUID
	// OrganizationIDs restricts to these organizations (organization scope).
	// An empty non-nil slice matches nothing.
	OrganizationIDs []uuid.UUID
	// Status filters by lifecycle status when non-empty.
	Status string
	Limit  int
	Offset int
}

type PracticeRepository interface {
	Create(ctx context.Context, p *Practice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Practice, error)
	Update(ctx context.Context, p *Practice) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter) ([]*Practice, int, error)
}
