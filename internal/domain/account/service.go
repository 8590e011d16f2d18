package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insano70/bcos-sub014/internal/rbac"
)

var (
	permReadUsers   = rbac.Permission{Resource: "users", Action: "read"}
	permCreateUsers = rbac.Permission{Resource: "users", Action: "create"}
	permUpdateUsers = rbac.Permission{Resource: "users", Action: "update"}
	permDeleteUsers = rbac.Permission{Resource: "users", Action: "delete"}
	permReadRoles   = rbac.Permission{Resource: "roles", Action: "read"}
	permUpdateRoles = rbac.Permission{Resource: "roles", Action: "update"}
)

// Service administers users, role assignments, and organization memberships.
// Every write that changes what a user may do invalidates that user's cached
// authorization snapshot, so revocations are visible on the next request.
type Service struct {
	users       UserRepository
	roles       RoleRepository
	memberships MembershipRepository
	guard       *rbac.Guard
	builder     *rbac.ContextBuilder
	log         zerolog.Logger
}

func NewService(users UserRepository, roles RoleRepository, memberships MembershipRepository,
	guard *rbac.Guard, builder *rbac.ContextBuilder, logger zerolog.Logger) *Service {
	return &Service{
		users:       users,
		roles:       roles,
		memberships: memberships,
		guard:       guard,
		builder:     builder,
		log:         logger,
	}
}

func (s *Service) CreateUser(ctx context.Context, uc *rbac.UserContext, u *User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permCreateUsers.Variants()); err != nil {
		return err
	}
	existing, err := s.users.GetByEmail(ctx, u.Email)
	if err != nil {
		return fmt.Errorf("check email %s: %w", u.Email, err)
	}
	if existing != nil {
		return fmt.Errorf("email %s is already in use", u.Email)
	}
	return s.users.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, uc *rbac.UserContext, id uuid.UUID) (*User, error) {
	u, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	// Everyone may read their own account.
	if uc != nil && uc.UserID() == id {
		return u, nil
	}
	opts, err := s.targetOptions(ctx, uc, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permReadUsers.Variants(), opts...); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, uc *rbac.UserContext, limit, offset int) ([]*User, int, error) {
	scope := s.guard.ResolveScope(uc, permReadUsers.Resource, permReadUsers.Action)

	f := ListFilter{Limit: limit, Offset: offset}
	switch scope.Scope {
	case rbac.ScopeAll:
		// no narrowing
	case rbac.ScopeOrganization:
		f.OrganizationIDs = scope.OrganizationIDs
		if f.OrganizationIDs == nil {
			f.OrganizationIDs = []uuid.UUID{}
		}
	default:
		// Own scope on a user listing is just yourself.
		if uc == nil {
			return []*User{}, 0, nil
		}
		u, err := s.users.GetByID(ctx, uc.UserID())
		if err != nil || u == nil {
			return []*User{}, 0, err
		}
		return []*User{u}, 1, nil
	}

	return s.users.List(ctx, f)
}

func (s *Service) UpdateUser(ctx context.Context, uc *rbac.UserContext, u *User) error {
	existing, err := s.loadUser(ctx, u.ID)
	if err != nil {
		return err
	}
	opts, err := s.targetOptions(ctx, uc, u.ID)
	if err != nil {
		return err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permUpdateUsers.Variants(), opts...); err != nil {
		return err
	}
	if u.Email != existing.Email {
		inUse, err := s.users.GetByEmail(ctx, u.Email)
		if err != nil {
			return fmt.Errorf("check email %s: %w", u.Email, err)
		}
		if inUse != nil {
			return fmt.Errorf("email %s is already in use", u.Email)
		}
	}
	if err := u.Validate(); err != nil {
		return err
	}
	return s.users.Update(ctx, u)
}

// DeactivateUser disables the account and drops its cached snapshot so
// outstanding tokens stop working immediately.
func (s *Service) DeactivateUser(ctx context.Context, uc *rbac.UserContext, id uuid.UUID) error {
	if _, err := s.loadUser(ctx, id); err != nil {
		return err
	}
	opts, err := s.targetOptions(ctx, uc, id)
	if err != nil {
		return err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permDeleteUsers.Variants(), opts...); err != nil {
		return err
	}
	if err := s.users.Deactivate(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Service) ListRoles(ctx context.Context, uc *rbac.UserContext, organizationID *uuid.UUID) ([]*Role, error) {
	if err := s.guard.RequireAnyPermission(ctx, uc, permReadRoles.Variants()); err != nil {
		return nil, err
	}
	if organizationID != nil {
		if err := s.guard.RequireOrganizationAccess(ctx, uc, *organizationID); err != nil {
			return nil, err
		}
		return s.roles.ListRoles(ctx, organizationID)
	}

	roles, err := s.roles.ListRoles(ctx, nil)
	if err != nil {
		return nil, err
	}
	scope := s.guard.ResolveScope(uc, permReadRoles.Resource, permReadRoles.Action)
	if scope.Scope == rbac.ScopeAll {
		return roles, nil
	}
	// Narrower scopes see the global system roles plus the custom roles of
	// organizations they can access, never another organization's.
	visible := make([]*Role, 0, len(roles))
	for _, r := range roles {
		if r.OrganizationID == nil || (uc != nil && uc.CanAccessOrganization(*r.OrganizationID)) {
			visible = append(visible, r)
		}
	}
	return visible, nil
}

func (s *Service) ListAssignments(ctx context.Context, uc *rbac.UserContext, userID uuid.UUID) ([]*RoleAssignment, error) {
	// Everyone may inspect their own assignments.
	if uc == nil || uc.UserID() != userID {
		opts, err := s.targetOptions(ctx, uc, userID)
		if err != nil {
			return nil, err
		}
		if err := s.guard.RequireAnyPermission(ctx, uc, permReadRoles.Variants(), opts...); err != nil {
			return nil, err
		}
	}
	return s.roles.ListAssignments(ctx, userID)
}

// AssignRole grants a role to a user. Organization-bound roles require the
// caller to have access to that organization; the grant itself is guarded by
// the roles resource.
func (s *Service) AssignRole(ctx context.Context, uc *rbac.UserContext, a *RoleAssignment) error {
	if _, err := s.loadUser(ctx, a.UserID); err != nil {
		return err
	}
	role, err := s.roles.GetRole(ctx, a.RoleID)
	if err != nil {
		return fmt.Errorf("load role %s: %w", a.RoleID, err)
	}
	if role == nil {
		return &rbac.NotFoundError{Kind: "role", ID: a.RoleID}
	}
	// Custom roles are bound to their organization; the assignment inherits
	// that binding.
	if role.OrganizationID != nil {
		if a.OrganizationID != nil && *a.OrganizationID != *role.OrganizationID {
			return fmt.Errorf("role %s belongs to organization %s", role.Name, *role.OrganizationID)
		}
		a.OrganizationID = role.OrganizationID
	}

	if err := s.guard.RequireAnyPermission(ctx, uc, permUpdateRoles.Variants(),
		orgOption(a.OrganizationID)...); err != nil {
		return err
	}
	if a.OrganizationID != nil {
		if err := s.guard.RequireOrganizationAccess(ctx, uc, *a.OrganizationID); err != nil {
			return err
		}
	}
	// Only a super admin may hand out the super admin role.
	if role.IsSystemRole && role.Name == rbac.SuperAdminRoleName && !s.guard.IsSuperAdmin(uc) {
		return &rbac.PermissionDeniedError{UserID: userID(uc), Permission: "roles:update:all"}
	}

	if err := s.roles.Assign(ctx, a); err != nil {
		return err
	}
	s.invalidate(ctx, a.UserID)
	return nil
}

// RevokeRole removes a role grant and invalidates the user's snapshot so the
// revocation takes effect on their next request. The check is bound to the
// assignment's organization, so an organization-scoped admin can only strip
// grants inside their accessible set.
func (s *Service) RevokeRole(ctx context.Context, uc *rbac.UserContext, targetUserID, roleID uuid.UUID) error {
	assignments, err := s.roles.ListAssignments(ctx, targetUserID)
	if err != nil {
		return fmt.Errorf("load assignments for %s: %w", targetUserID, err)
	}
	var target *RoleAssignment
	for _, a := range assignments {
		if a.RoleID == roleID {
			target = a
			break
		}
	}
	if target == nil {
		return &rbac.NotFoundError{Kind: "role assignment", ID: roleID}
	}

	opts, err := s.targetOptions(ctx, uc, targetUserID)
	if err != nil {
		return err
	}
	if target.OrganizationID != nil {
		// The assignment's own binding wins over the target's memberships.
		opts = append(opts, rbac.WithOrganization(*target.OrganizationID))
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permUpdateRoles.Variants(), opts...); err != nil {
		return err
	}
	if target.OrganizationID != nil {
		if err := s.guard.RequireOrganizationAccess(ctx, uc, *target.OrganizationID); err != nil {
			return err
		}
	}

	if err := s.roles.Revoke(ctx, targetUserID, roleID); err != nil {
		return err
	}
	s.invalidate(ctx, targetUserID)
	return nil
}

func (s *Service) ListMemberships(ctx context.Context, uc *rbac.UserContext, userID uuid.UUID) ([]*MembershipRecord, error) {
	// Everyone may inspect their own memberships.
	if uc == nil || uc.UserID() != userID {
		opts, err := s.targetOptions(ctx, uc, userID)
		if err != nil {
			return nil, err
		}
		if err := s.guard.RequireAnyPermission(ctx, uc, permReadUsers.Variants(), opts...); err != nil {
			return nil, err
		}
	}
	return s.memberships.ListForUser(ctx, userID)
}

func (s *Service) AddMembership(ctx context.Context, uc *rbac.UserContext, m *MembershipRecord) error {
	if _, err := s.loadUser(ctx, m.UserID); err != nil {
		return err
	}
	if err := s.guard.RequireAnyPermission(ctx, uc, permUpdateUsers.Variants(),
		rbac.WithOrganization(m.OrganizationID)); err != nil {
		return err
	}
	if err := s.guard.RequireOrganizationAccess(ctx, uc, m.OrganizationID); err != nil {
		return err
	}
	if err := s.memberships.Add(ctx, m); err != nil {
		return err
	}
	s.invalidate(ctx, m.UserID)
	return nil
}

func (s *Service) RemoveMembership(ctx context.Context, uc *rbac.UserContext, targetUserID, organizationID uuid.UUID) error {
	if err := s.guard.RequireAnyPermission(ctx, uc, permUpdateUsers.Variants(),
		rbac.WithOrganization(organizationID)); err != nil {
		return err
	}
	if err := s.guard.RequireOrganizationAccess(ctx, uc, organizationID); err != nil {
		return err
	}
	if err := s.memberships.Remove(ctx, targetUserID, organizationID); err != nil {
		return err
	}
	s.invalidate(ctx, targetUserID)
	return nil
}

func (s *Service) loadUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	if u == nil {
		return nil, &rbac.NotFoundError{Kind: "user", ID: id}
	}
	return u, nil
}

// invalidate is best effort: a failed cache drop only extends staleness to
// the TTL window.
func (s *Service) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.builder == nil {
		return
	}
	if err := s.builder.Invalidate(ctx, userID); err != nil {
		s.log.Warn().Err(err).Stringer("user_id", userID).Msg("invalidating user context")
	}
}

// targetOptions binds a check on another user's account to that user's
// organization memberships: an organization-scoped caller may act only on
// users who share an organization they can access. A target with no
// memberships is reachable only at all scope.
func (s *Service) targetOptions(ctx context.Context, uc *rbac.UserContext, targetID uuid.UUID) ([]rbac.CheckOption, error) {
	opts := []rbac.CheckOption{rbac.WithResourceOwner(targetID)}
	memberships, err := s.memberships.ListForUser(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("load memberships for %s: %w", targetID, err)
	}
	org := uuid.Nil
	for _, m := range memberships {
		org = m.OrganizationID
		if uc != nil && uc.CanAccessOrganization(m.OrganizationID) {
			break
		}
	}
	return append(opts, rbac.WithOrganization(org)), nil
}

func orgOption(orgID *uuid.UUID) []rbac.CheckOption {
	if orgID == nil {
		return nil
	}
	return []rbac.CheckOption{rbac.WithOrganization(*orgID)}
}

func userID(uc *rbac.UserContext) uuid.UUID {
	if uc == nil {
		return uuid.Nil
	}
	return uc.UserID()
}
