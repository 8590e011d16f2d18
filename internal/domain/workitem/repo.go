package workitem

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows a listing to the caller's resolved access scope.
type ListFilter struct {
	// OwnerID restricts to items assigned to or created by this user.
	OwnerID *uuid.UUID
	// OrganizationIDs restricts to these organizations. An empty non-nil
	// slice matches nothing.
	OrganizationIDs []uuid.UUID
	Status          string
	PracticeID      *uuid.UUID
	Limit           int
	Offset          int
}

type WorkItemRepository interface {
	Create(ctx context.Context, w *WorkItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*WorkItem, error)
	Update(ctx context.Context, w *WorkItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter) ([]*WorkItem, int, error)
}
