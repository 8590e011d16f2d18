package rbac

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Decision is the audit record of one guard check.
type Decision struct {
	Time            time.Time
	UserID          uuid.UUID
	Permission      string
	ResourceOwnerID *uuid.UUID
	OrganizationID  *uuid.UUID
	Allowed         bool
	Reason          string
}

// AuditSink receives guard decisions as a best-effort side effect. A sink
// error is logged and never changes the allow/deny outcome.
type AuditSink interface {
	RecordDecision(d Decision) error
}

// AuditSinkFunc adapts a function to the AuditSink interface.
type AuditSinkFunc func(d Decision) error

func (f AuditSinkFunc) RecordDecision(d Decision) error { return f(d) }

// Guard is the enforcement layer injected into every business service. It
// wraps the pure checker with typed errors, audit logging, and metrics.
// Guards are stateless and safe for concurrent use; each call operates on
// the immutable snapshot it is handed.
//
// Services call a guard method and must not touch data until it returns
// nil. A denial is terminal for the request; guards are never retried.
type Guard struct {
	log  zerolog.Logger
	sink AuditSink
}

// NewGuard creates a guard. The sink may be nil, in which case decisions
// are only logged.
func NewGuard(logger zerolog.Logger, sink AuditSink) *Guard {
	return &Guard{log: logger, sink: sink}
}

// RequirePermission fails with PermissionDeniedError unless the user holds
// the permission for the given target. A cancelled request context aborts
// the check: an incomplete authorization decision is never acted upon.
func (g *Guard) RequirePermission(ctx context.Context, uc *UserContext, p Permission, opts ...CheckOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o := applyOptions(opts)
	allowed := HasPermission(uc, p, opts...)
	g.record(uc, p.String(), o, allowed, "")
	if !allowed {
		return &PermissionDeniedError{
			UserID:          userIDOf(uc),
			Permission:      p.String(),
			ResourceOwnerID: o.resourceOwnerID,
			OrganizationID:  o.organizationID,
		}
	}
	return nil
}

// RequireAnyPermission fails only when every listed permission is denied.
func (g *Guard) RequireAnyPermission(ctx context.Context, uc *UserContext, perms []Permission, opts ...CheckOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o := applyOptions(opts)
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.String())
	}
	joined := strings.Join(names, "|")

	allowed := HasAnyPermission(uc, perms, opts...)
	g.record(uc, joined, o, allowed, "")
	if !allowed {
		return &PermissionDeniedError{
			UserID:          userIDOf(uc),
			Permission:      joined,
			ResourceOwnerID: o.resourceOwnerID,
			OrganizationID:  o.organizationID,
		}
	}
	return nil
}

// RequireOrganizationAccess fails with OrganizationAccessError when the
// organization is outside the user's accessible set and the user is not a
// super admin.
func (g *Guard) RequireOrganizationAccess(ctx context.Context, uc *UserContext, orgID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	allowed := uc != nil && uc.CanAccessOrganization(orgID)
	g.record(uc, "organization-access", checkOptions{organizationID: &orgID}, allowed, "organization membership")
	if !allowed {
		return &OrganizationAccessError{UserID: userIDOf(uc), OrganizationID: orgID}
	}
	return nil
}

// ResolveScope exposes the access scope resolver so services can branch
// their query building on own/organization/all/none directly.
func (g *Guard) ResolveScope(uc *UserContext, resource, action string) AccessScope {
	return ResolveScope(uc, resource, action)
}

// IsSuperAdmin reports whether the snapshot belongs to a super admin.
func (g *Guard) IsSuperAdmin(uc *UserContext) bool {
	return uc != nil && uc.IsSuperAdmin()
}

// record emits the audit trail for a decision: a structured log line, the
// decision counter, and the optional sink. None of these can fail the
// request.
func (g *Guard) record(uc *UserContext, permission string, o checkOptions, allowed bool, reason string) {
	observeDecision(permission, allowed)

	evt := g.log.Debug()
	if !allowed {
		evt = g.log.Info()
	}
	evt = evt.
		Str("type", "authz_decision").
		Str("permission", permission).
		Bool("allowed", allowed)
	if uc != nil {
		evt = evt.Stringer("user_id", uc.UserID())
	}
	if o.organizationID != nil {
		evt = evt.Stringer("organization_id", *o.organizationID)
	}
	if o.resourceOwnerID != nil {
		evt = evt.Stringer("resource_owner_id", *o.resourceOwnerID)
	}
	evt.Msg("authorization check")

	if g.sink != nil {
		d := Decision{
			Time:            time.Now().UTC(),
			UserID:          userIDOf(uc),
			Permission:      permission,
			ResourceOwnerID: o.resourceOwnerID,
			OrganizationID:  o.organizationID,
			Allowed:         allowed,
			Reason:          reason,
		}
		if err := g.sink.RecordDecision(d); err != nil {
			g.log.Error().Err(err).Str("permission", permission).Msg("audit sink failed")
		}
	}
}

func userIDOf(uc *UserContext) uuid.UUID {
	if uc == nil {
		return uuid.Nil
	}
	return uc.UserID()
}
