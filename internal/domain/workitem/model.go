package workitem

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Statuses form a small lifecycle; transitions outside validTransitions are
// rejected regardless of permissions.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusBlocked    = "blocked"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

var validTransitions = map[string][]string{
	StatusOpen:       {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusBlocked, StatusDone, StatusCancelled},
	StatusBlocked:    {StatusInProgress, StatusCancelled},
	StatusDone:       {},
	StatusCancelled:  {},
}

// WorkItem maps to the work_items table: a unit of back-office work
// (credentialing task, claim follow-up, chart review) assigned within a
// practice.
type WorkItem struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Title          string     `db:"title" json:"title"`
	Description    *string    `db:"description" json:"description,omitempty"`
	Status         string     `db:"status" json:"status"`
	Priority       int        `db:"priority" json:"priority"`
	PracticeID     *uuid.UUID `db:"practice_id" json:"practice_id,omitempty"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	AssignedTo     *uuid.UUID `db:"assigned_to" json:"assigned_to,omitempty"`
	CreatedBy      uuid.UUID  `db:"created_by" json:"created_by"`
	DueAt          *time.Time `db:"due_at" json:"due_at,omitempty"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// OwnerID is the user the item belongs to for own-scope checks: the assignee
// when set, otherwise the creator.
func (w *WorkItem) OwnerID() uuid.UUID {
	if w.AssignedTo != nil {
		return *w.AssignedTo
	}
	return w.CreatedBy
}

// CanTransition reports whether the lifecycle allows moving to the target
// status.
func (w *WorkItem) CanTransition(target string) bool {
	for _, next := range validTransitions[w.Status] {
		if next == target {
			return true
		}
	}
	return false
}

// Validate checks required fields before a write.
func (w *WorkItem) Validate() error {
	if w.Title == "" {
		return fmt.Errorf("title is required")
	}
	if w.OrganizationID == uuid.Nil {
		return fmt.Errorf("organization_id is required")
	}
	if w.Status == "" {
		w.Status = StatusOpen
	}
	if _, ok := validTransitions[w.Status]; !ok {
		return fmt.Errorf("invalid status: %s", w.Status)
	}
	return nil
}
