package rbac

import (
	"testing"

	"github.com/google/uuid"
)

func testContext(t *testing.T, perms []Permission, accessible []uuid.UUID) *UserContext {
	t.Helper()
	return NewUserContext(UserContextParams{
		UserID:                    uuid.New(),
		AccessibleOrganizationIDs: accessible,
		Permissions:               perms,
	})
}

func TestHasPermissionFailClosed(t *testing.T) {
	uc := testContext(t, nil, nil)

	for _, scope := range []Scope{ScopeOwn, ScopeOrganization, ScopeAll} {
		p := Permission{Resource: "practices", Action: "read", Scope: scope}
		if HasPermission(uc, p) {
			t.Errorf("user without grants passed %s", p)
		}
	}
}

func TestHasPermissionNilContext(t *testing.T) {
	p := Permission{Resource: "users", Action: "read", Scope: ScopeOwn}
	if HasPermission(nil, p) {
		t.Error("nil context must deny")
	}
}

func TestHasPermissionSuperAdminBypass(t *testing.T) {
	uc := NewUserContext(UserContextParams{UserID: uuid.New(), IsSuperAdmin: true})

	// No permission rows at all, every check still passes.
	checks := []Permission{
		{Resource: "anything", Action: "whatever", Scope: ScopeAll},
		{Resource: "practices", Action: "delete", Scope: ScopeOrganization},
	}
	for _, p := range checks {
		if !HasPermission(uc, p, WithOrganization(uuid.New())) {
			t.Errorf("super admin denied %s", p)
		}
	}
}

func TestHasPermissionAllScope(t *testing.T) {
	p := Permission{Resource: "users", Action: "read", Scope: ScopeAll}
	uc := testContext(t, []Permission{p}, nil)

	if !HasPermission(uc, p) {
		t.Error("all-scope grant denied")
	}
	// all covers any organization, even ones outside the accessible set.
	if !HasPermission(uc, p, WithOrganization(uuid.New())) {
		t.Error("all-scope grant denied for arbitrary organization")
	}
}

func TestHasPermissionOrganizationScope(t *testing.T) {
	insideOrg := uuid.New()
	outsideOrg := uuid.New()
	p := Permission{Resource: "practices", Action: "read", Scope: ScopeOrganization}
	uc := testContext(t, []Permission{p}, []uuid.UUID{insideOrg})

	// Without a target organization the grant's existence is enough; scope
	// filtering is then the caller's query-building concern.
	if !HasPermission(uc, p) {
		t.Error("organization grant denied without target org")
	}
	if !HasPermission(uc, p, WithOrganization(insideOrg)) {
		t.Error("denied for accessible organization")
	}
	if HasPermission(uc, p, WithOrganization(outsideOrg)) {
		t.Error("allowed for organization outside the accessible set")
	}
}

func TestHasPermissionOwnScope(t *testing.T) {
	p := Permission{Resource: "work-items", Action: "update", Scope: ScopeOwn}
	uc := testContext(t, []Permission{p}, nil)

	if !HasPermission(uc, p) {
		t.Error("own grant denied without owner check")
	}
	if !HasPermission(uc, p, WithResourceOwner(uc.UserID())) {
		t.Error("own grant denied for own resource")
	}
	if HasPermission(uc, p, WithResourceOwner(uuid.New())) {
		t.Error("own grant allowed for someone else's resource")
	}
}

func TestHasPermissionBroaderGrantSatisfiesNarrowerCheck(t *testing.T) {
	all := Permission{Resource: "users", Action: "read", Scope: ScopeAll}
	uc := testContext(t, []Permission{all}, nil)

	own := Permission{Resource: "users", Action: "read", Scope: ScopeOwn}
	if !HasPermission(uc, own, WithResourceOwner(uuid.New())) {
		t.Error("all grant should satisfy an own-scope check for any owner")
	}
}

func TestHasPermissionNarrowerGrantDeniesBroaderCheck(t *testing.T) {
	own := Permission{Resource: "users", Action: "read", Scope: ScopeOwn}
	uc := testContext(t, []Permission{own}, nil)

	org := Permission{Resource: "users", Action: "read", Scope: ScopeOrganization}
	if HasPermission(uc, org) {
		t.Error("own grant must not satisfy an organization-scope check")
	}
}

func TestHasAnyPermission(t *testing.T) {
	held := Permission{Resource: "practices", Action: "read", Scope: ScopeOwn}
	uc := testContext(t, []Permission{held}, nil)

	variants := Permission{Resource: "practices", Action: "read"}.Variants()
	if !HasAnyPermission(uc, variants) {
		t.Error("expected one of the variants to match")
	}
	if HasAnyPermission(uc, Permission{Resource: "users", Action: "delete"}.Variants()) {
		t.Error("unrelated variants should all be denied")
	}
	if HasAnyPermission(uc, nil) {
		t.Error("empty permission list must deny")
	}
}

func TestHasAllPermissions(t *testing.T) {
	read := Permission{Resource: "practices", Action: "read", Scope: ScopeOwn}
	update := Permission{Resource: "practices", Action: "update", Scope: ScopeOwn}
	uc := testContext(t, []Permission{read, update}, nil)

	if !HasAllPermissions(uc, []Permission{read, update}) {
		t.Error("expected both held permissions to pass")
	}
	del := Permission{Resource: "practices", Action: "delete", Scope: ScopeOwn}
	if HasAllPermissions(uc, []Permission{read, del}) {
		t.Error("one missing permission must fail AND semantics")
	}
	if HasAllPermissions(uc, nil) {
		t.Error("empty permission list must deny")
	}
}
