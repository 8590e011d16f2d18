package rbac

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PermissionDeniedError is returned by guards when the checked permission is
// absent or held at an insufficient scope.
type PermissionDeniedError struct {
	UserID          uuid.UUID
	Permission      string
	ResourceOwnerID *uuid.UUID
	OrganizationID  *uuid.UUID
}

func (e *PermissionDeniedError) Error() string {
	msg := fmt.Sprintf("permission denied: user %s requires %s", e.UserID, e.Permission)
	if e.OrganizationID != nil {
		msg += fmt.Sprintf(" for organization %s", *e.OrganizationID)
	}
	return msg
}

// OrganizationAccessError is returned when the target organization lies
// outside the user's accessible set. The permission itself may be held, just
// not for this organization.
type OrganizationAccessError struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
}

func (e *OrganizationAccessError) Error() string {
	return fmt.Sprintf("organization %s is outside the access of user %s", e.OrganizationID, e.UserID)
}

// NotFoundError is returned while building a user context when the
// referenced user or organization does not exist or is inactive.
// Authorization cannot be evaluated, which callers treat as denial.
type NotFoundError struct {
	Kind string // "user" or "organization"
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConfigurationError marks malformed permission names or unknown
// resource/action pairs: a programming error in calling code or corrupt
// catalog data. Treated as denial at the guard layer.
type ConfigurationError struct {
	Name   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid permission %q: %s", e.Name, e.Reason)
}

// IsDenied reports whether err represents an authorization denial of any
// kind (missing permission, organization out of scope, or an unresolvable
// subject). Boundaries use this to map errors to a 403.
func IsDenied(err error) bool {
	var pd *PermissionDeniedError
	var oa *OrganizationAccessError
	var nf *NotFoundError
	return errors.As(err, &pd) || errors.As(err, &oa) || errors.As(err, &nf)
}

// IsNotFound reports whether err is a NotFoundError. Boundaries check this
// before IsDenied to map a missing resource to 404 instead of 403.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
