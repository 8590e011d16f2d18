package rbac

import (
	"testing"

	"github.com/google/uuid"
)

func TestResolveScopeBroadestWins(t *testing.T) {
	uc := testContext(t, []Permission{
		{Resource: "x", Action: "read", Scope: ScopeOwn},
		{Resource: "x", Action: "read", Scope: ScopeAll},
	}, nil)

	got := ResolveScope(uc, "x", "read")
	if got.Scope != ScopeAll {
		t.Errorf("expected all, got %s", got.Scope)
	}
	if len(got.OrganizationIDs) != 0 {
		t.Error("all scope should not carry organization ids")
	}
}

func TestResolveScopeOrganizationCarriesAccessibleSet(t *testing.T) {
	orgs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	uc := testContext(t, []Permission{
		{Resource: "practices", Action: "read", Scope: ScopeOrganization},
	}, orgs)

	got := ResolveScope(uc, "practices", "read")
	if got.Scope != ScopeOrganization {
		t.Fatalf("expected organization, got %s", got.Scope)
	}
	if len(got.OrganizationIDs) != len(orgs) {
		t.Fatalf("expected %d org ids, got %d", len(orgs), len(got.OrganizationIDs))
	}
	want := make(map[uuid.UUID]struct{}, len(orgs))
	for _, id := range orgs {
		want[id] = struct{}{}
	}
	for _, id := range got.OrganizationIDs {
		if _, ok := want[id]; !ok {
			t.Errorf("scope leaked organization %s outside the accessible set", id)
		}
	}
}

func TestResolveScopeNone(t *testing.T) {
	uc := testContext(t, nil, nil)
	got := ResolveScope(uc, "practices", "read")
	if got.Scope != ScopeNone {
		t.Errorf("expected none, got %s", got.Scope)
	}
	if got.Allows() {
		t.Error("none must not allow")
	}
}

func TestResolveScopeNilContext(t *testing.T) {
	got := ResolveScope(nil, "practices", "read")
	if got.Scope != ScopeNone {
		t.Errorf("nil context resolved to %s", got.Scope)
	}
}

func TestResolveScopeSuperAdmin(t *testing.T) {
	uc := NewUserContext(UserContextParams{UserID: uuid.New(), IsSuperAdmin: true})
	got := ResolveScope(uc, "anything", "whatever")
	if got.Scope != ScopeAll {
		t.Errorf("super admin resolved to %s", got.Scope)
	}
}

func TestResolveScopeOwn(t *testing.T) {
	uc := testContext(t, []Permission{
		{Resource: "work-items", Action: "update", Scope: ScopeOwn},
	}, nil)
	got := ResolveScope(uc, "work-items", "update")
	if got.Scope != ScopeOwn {
		t.Errorf("expected own, got %s", got.Scope)
	}
}
