package organization

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Organization is the full admin view of an organization node. The
// authorization core consumes a reduced projection of this row when it
// expands hierarchies.
type Organization struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	ParentID  *uuid.UUID `db:"parent_organization_id" json:"parent_organization_id,omitempty"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

func (o *Organization) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("name is required")
	}
	if o.ParentID != nil && *o.ParentID == o.ID {
		return fmt.Errorf("an organization cannot be its own parent")
	}
	return nil
}
