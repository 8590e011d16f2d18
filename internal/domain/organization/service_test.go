package organization

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insano70/bcos-sub014/internal/rbac"
)

// mockOrgRepo backs both the admin repository and the authorization core's
// organization store, the same dual role the organizations table plays in
// production.
type mockOrgRepo struct {
	store map[uuid.UUID]*Organization
}

func newMockOrgRepo() *mockOrgRepo {
	return &mockOrgRepo{store: make(map[uuid.UUID]*Organization)}
}

func (m *mockOrgRepo) Create(_ context.Context, o *Organization) error {
	o.ID = uuid.New()
	o.IsActive = true
	m.store[o.ID] = o
	return nil
}

func (m *mockOrgRepo) GetByID(_ context.Context, id uuid.UUID) (*Organization, error) {
	o, ok := m.store[id]
	if !ok || o.DeletedAt != nil {
		return nil, nil
	}
	return o, nil
}

func (m *mockOrgRepo) Update(_ context.Context, o *Organization) error {
	if existing, ok := m.store[o.ID]; ok {
		existing.Name = o.Name
		existing.IsActive = o.IsActive
	}
	return nil
}

func (m *mockOrgRepo) UpdateParent(_ context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	if o, ok := m.store[id]; ok {
		o.ParentID = parentID
	}
	return nil
}

func (m *mockOrgRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if o, ok := m.store[id]; ok {
		o.IsActive = false
	}
	return nil
}

func (m *mockOrgRepo) List(_ context.Context, ids []uuid.UUID) ([]*Organization, error) {
	var orgs []*Organization
	for _, o := range m.store {
		if o.DeletedAt != nil {
			continue
		}
		if ids != nil {
			match := false
			for _, id := range ids {
				if o.ID == id {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		orgs = append(orgs, o)
	}
	return orgs, nil
}

func (m *mockOrgRepo) ListAll(_ context.Context, includeInactive bool) ([]*rbac.Organization, error) {
	var orgs []*rbac.Organization
	for _, o := range m.store {
		if !includeInactive && (!o.IsActive || o.DeletedAt != nil) {
			continue
		}
		orgs = append(orgs, &rbac.Organization{
			ID: o.ID, Name: o.Name, ParentID: o.ParentID,
			IsActive: o.IsActive, DeletedAt: o.DeletedAt,
		})
	}
	return orgs, nil
}

// GetByID on the rbac store view.
type rbacStoreView struct{ repo *mockOrgRepo }

func (v rbacStoreView) ListAll(ctx context.Context, includeInactive bool) ([]*rbac.Organization, error) {
	return v.repo.ListAll(ctx, includeInactive)
}

func (v rbacStoreView) GetByID(ctx context.Context, id uuid.UUID) (*rbac.Organization, error) {
	o, err := v.repo.GetByID(ctx, id)
	if err != nil || o == nil {
		return nil, err
	}
	return &rbac.Organization{ID: o.ID, Name: o.Name, ParentID: o.ParentID,
		IsActive: o.IsActive, DeletedAt: o.DeletedAt}, nil
}

func userWith(perms []string, accessible ...uuid.UUID) *rbac.UserContext {
	parsed := make([]rbac.Permission, 0, len(perms))
	for _, name := range perms {
		parsed = append(parsed, rbac.MustParsePermission(name))
	}
	return rbac.NewUserContext(rbac.UserContextParams{
		UserID:                    uuid.New(),
		AccessibleOrganizationIDs: accessible,
		Permissions:               parsed,
	})
}

func newTestService(repo *mockOrgRepo) *Service {
	hierarchy := rbac.NewHierarchyResolver(rbacStoreView{repo}, zerolog.Nop())
	return NewService(repo, hierarchy, rbac.NewGuard(zerolog.Nop(), nil), zerolog.Nop())
}

func seedOrg(repo *mockOrgRepo, name string, parent *uuid.UUID) *Organization {
	o := &Organization{ID: uuid.New(), Name: name, ParentID: parent, IsActive: true}
	repo.store[o.ID] = o
	return o
}

func TestCreateRootRequiresAllScope(t *testing.T) {
	repo := newMockOrgRepo()
	svc := newTestService(repo)

	orgScoped := userWith([]string{"organizations:create:organization"}, uuid.New())
	err := svc.CreateOrganization(context.Background(), orgScoped, &Organization{Name: "Root"})
	if !rbac.IsDenied(err) {
		t.Fatalf("creating a root org should need all scope, got %v", err)
	}

	admin := userWith([]string{"organizations:create:all"})
	if err := svc.CreateOrganization(context.Background(), admin, &Organization{Name: "Root"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateChildRequiresParentAccess(t *testing.T) {
	repo := newMockOrgRepo()
	svc := newTestService(repo)
	parent := seedOrg(repo, "Health System", nil)

	uc := userWith([]string{"organizations:create:organization"}, parent.ID)
	child := &Organization{Name: "North Clinic", ParentID: &parent.ID}
	if err := svc.CreateOrganization(context.Background(), uc, child); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	foreign := seedOrg(repo, "Other System", nil)
	err := svc.CreateOrganization(context.Background(), uc,
		&Organization{Name: "Intruder", ParentID: &foreign.ID})
	if !rbac.IsDenied(err) {
		t.Fatalf("creating under an inaccessible parent should be denied, got %v", err)
	}
}

func TestListOrganizationsScoped(t *testing.T) {
	repo := newMockOrgRepo()
	svc := newTestService(repo)
	visible := seedOrg(repo, "Mine", nil)
	seedOrg(repo, "Theirs", nil)

	uc := userWith([]string{"organizations:read:organization"}, visible.ID)
	orgs, err := svc.ListOrganizations(context.Background(), uc)
	if err != nil {
		t.Fatal(err)
	}
	if len(orgs) != 1 || orgs[0].ID != visible.ID {
		t.Errorf("expected only the accessible org, got %d", len(orgs))
	}

	none := userWith(nil)
	orgs, err = svc.ListOrganizations(context.Background(), none)
	if err != nil {
		t.Fatal(err)
	}
	if len(orgs) != 0 {
		t.Errorf("no grant should list nothing, got %d", len(orgs))
	}
}

func TestListSubtree(t *testing.T) {
	repo := newMockOrgRepo()
	svc := newTestService(repo)
	root := seedOrg(repo, "System", nil)
	clinic := seedOrg(repo, "Clinic", &root.ID)
	seedOrg(repo, "Ward", &clinic.ID)
	seedOrg(repo, "Unrelated", nil)

	uc := userWith([]string{"organizations:read:organization"}, root.ID)
	orgs, err := svc.ListSubtree(context.Background(), uc, root.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(orgs) != 3 {
		t.Errorf("expected root plus two descendants, got %d", len(orgs))
	}
}

func TestMoveOrganizationRejectsCycles(t *testing.T) {
	repo := newMockOrgRepo()
	svc := newTestService(repo)
	root := seedOrg(repo, "System", nil)
	clinic := seedOrg(repo, "Clinic", &root.ID)
	ward := seedOrg(repo, "Ward", &clinic.ID)

	admin := rbac.NewUserContext(rbac.UserContextParams{UserID: uuid.New(), IsSuperAdmin: true})

	err := svc.MoveOrganization(context.Background(), admin, clinic.ID, &ward.ID)
	if err == nil || !strings.Contains(err.Error(), "descendant") {
		t.Fatalf("moving under a descendant should fail, got %v", err)
	}
	if *repo.store[clinic.ID].ParentID != root.ID {
		t.Error("rejected move must not change the parent")
	}

	other := seedOrg(repo, "Other", nil)
	if err := svc.MoveOrganization(context.Background(), admin, clinic.ID, &other.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *repo.store[clinic.ID].ParentID != other.ID {
		t.Error("move should update the parent")
	}
}

// Structural writes must be visible through the hierarchy resolver
// immediately, not after the cache TTL.
func TestDeactivateCutsSubtreeFromHierarchy(t *testing.T) {
	repo := newMockOrgRepo()
	svc := newTestService(repo)
	root := seedOrg(repo, "System", nil)
	clinic := seedOrg(repo, "Clinic", &root.ID)
	seedOrg(repo, "Ward", &clinic.ID)

	admin := rbac.NewUserContext(rbac.UserContextParams{UserID: uuid.New(), IsSuperAdmin: true})
	ctx := context.Background()

	// Prime the resolver cache.
	ids, err := svc.hierarchy.HierarchyIDs(ctx, root.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 orgs before deactivation, got %d", len(ids))
	}

	if err := svc.DeactivateOrganization(ctx, admin, clinic.ID); err != nil {
		t.Fatal(err)
	}

	ids, err = svc.hierarchy.HierarchyIDs(ctx, root.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != root.ID {
		t.Fatalf("deactivated subtree should vanish immediately, got %d orgs", len(ids))
	}
}

func TestUpdatePinsParent(t *testing.T) {
	repo := newMockOrgRepo()
	svc := newTestService(repo)
	root := seedOrg(repo, "System", nil)
	clinic := seedOrg(repo, "Clinic", &root.ID)

	uc := userWith([]string{"organizations:update:organization"}, root.ID, clinic.ID)
	update := &Organization{ID: clinic.ID, Name: "Renamed Clinic", IsActive: true, ParentID: nil}
	if err := svc.UpdateOrganization(context.Background(), uc, update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if update.ParentID == nil || *update.ParentID != root.ID {
		t.Error("update must not re-home the organization")
	}
}

func TestDeactivateDenied(t *testing.T) {
	repo := newMockOrgRepo()
	svc := newTestService(repo)
	org := seedOrg(repo, "System", nil)

	uc := userWith([]string{"organizations:read:all"})
	if err := svc.DeactivateOrganization(context.Background(), uc, org.ID); !rbac.IsDenied(err) {
		t.Fatalf("read grant must not allow deactivation, got %v", err)
	}
	if !repo.store[org.ID].IsActive {
		t.Error("denied deactivation must not change the org")
	}
}
