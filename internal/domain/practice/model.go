package practice

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Practice maps to the practices table. A practice belongs to exactly one
// organization; organization-scoped reads see every practice in the caller's
// accessible subtree.
type Practice struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Specialty      *string    `db:"specialty" json:"specialty,omitempty"`
	Status         string     `db:"status" json:"status"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	CreatedBy      uuid.UUID  `db:"created_by" json:"created_by"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	Email          *string    `db:"email" json:"email,omitempty"`
	DeletedAt      *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

var validStatuses = map[string]bool{
	"active": true, "inactive": true, "onboarding": true,
}

// Validate checks required fields before a write.
func (p *Practice) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.OrganizationID == uuid.Nil {
		return fmt.Errorf("organization_id is required")
	}
	if p.Status == "" {
		p.Status = "active"
	}
	if !validStatuses[p.Status] {
		return fmt.Errorf("invalid status: %s", p.Status)
	}
	return nil
}
