package practice

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insano70/bcos-sub014/internal/rbac"
)

// -- Mock Repository --

type mockPracticeRepo struct {
	store map[uuid.UUID]*Practice
}

func newMockPracticeRepo() *mockPracticeRepo {
	return &mockPracticeRepo{store: make(map[uuid.UUID]*Practice)}
}

func (m *mockPracticeRepo) Create(_ context.Context, p *Practice) error {
	p.ID = uuid.New()
	m.store[p.ID] = p
	return nil
}

func (m *mockPracticeRepo) GetByID(_ context.Context, id uuid.UUID) (*Practice, error) {
	p, ok := m.store[id]
	if !ok || p.DeletedAt != nil {
		return nil, nil
	}
	return p, nil
}

func (m *mockPracticeRepo) Update(_ context.Context, p *Practice) error {
	m.store[p.ID] = p
	return nil
}

func (m *mockPracticeRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockPracticeRepo) List(_ context.Context, f ListFilter) ([]*Practice, int, error) {
	var items []*Practice
	for _, p := range m.store {
		if f.OwnerID != nil && p.CreatedBy != *f.OwnerID {
			continue
		}
		if f.OrganizationIDs != nil {
			match := false
			for _, id := range f.OrganizationIDs {
				if p.OrganizationID == id {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		items = append(items, p)
	}
	return items, len(items), nil
}

// -- helpers --

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

func newTestService(repo PracticeRepository) *Service {
	return NewService(repo, rbac.NewGuard(zerolog.Nop(), nil))
}

func seed(repo *mockPracticeRepo, org uuid.UUID, creator uuid.UUID) *Practice {
	p := &Practice{
		ID:             uuid.New(),
		Name:           "Westside Family Medicine",
		Status:         "active",
		OrganizationID: org,
		CreatedBy:      creator,
	}
	repo.store[p.ID] = p
	return p
}

// -- tests --

func TestCreatePractice(t *testing.T) {
	repo := newMockPracticeRepo()
	svc := newTestService(repo)
	org := uuid.New()
	uc := userWith([]string{"practices:create:organization"}, org)

	p := &Practice{Name: "New Practice", OrganizationID: org}
	if err := svc.CreatePractice(context.Background(), uc, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.CreatedBy != uc.UserID() {
		t.Error("creator should be stamped from the caller")
	}
	if p.Status != "active" {
		t.Errorf("expected default status active, got %q", p.Status)
	}
}

func TestCreatePracticeOutsideOrganization(t *testing.T) {
	svc := newTestService(newMockPracticeRepo())
	home := uuid.New()
	uc := userWith([]string{"practices:create:organization"}, home)

	p := &Practice{Name: "Foreign Practice", OrganizationID: uuid.New()}
	err := svc.CreatePractice(context.Background(), uc, p)
	if !rbac.IsDenied(err) {
		t.Fatalf("expected denial outside accessible organizations, got %v", err)
	}
}

func TestCreatePracticeNoGrant(t *testing.T) {
	svc := newTestService(newMockPracticeRepo())
	org := uuid.New()
	uc := userWith(nil, org)

	err := svc.CreatePractice(context.Background(), uc, &Practice{Name: "P", OrganizationID: org})
	if !rbac.IsDenied(err) {
		t.Fatalf("expected denial without a create grant, got %v", err)
	}
}

func TestGetPracticeOwnScope(t *testing.T) {
	repo := newMockPracticeRepo()
	svc := newTestService(repo)
	uc := userWith([]string{"practices:read:own"})

	mine := seed(repo, uuid.New(), uc.UserID())
	theirs := seed(repo, uuid.New(), uuid.New())

	if _, err := svc.GetPractice(context.Background(), uc, mine.ID); err != nil {
		t.Fatalf("own practice should be readable, got %v", err)
	}
	if _, err := svc.GetPractice(context.Background(), uc, theirs.ID); !rbac.IsDenied(err) {
		t.Fatalf("foreign practice should be denied at own scope, got %v", err)
	}
}

func TestGetPracticeOrganizationScope(t *testing.T) {
	repo := newMockPracticeRepo()
	svc := newTestService(repo)
	home := uuid.New()
	uc := userWith([]string{"practices:read:organization"}, home)

	inOrg := seed(repo, home, uuid.New())
	outside := seed(repo, uuid.New(), uuid.New())

	if _, err := svc.GetPractice(context.Background(), uc, inOrg.ID); err != nil {
		t.Fatalf("practice in accessible org should be readable, got %v", err)
	}
	if _, err := svc.GetPractice(context.Background(), uc, outside.ID); !rbac.IsDenied(err) {
		t.Fatalf("practice outside accessible orgs should be denied, got %v", err)
	}
}

func TestGetPracticeNotFound(t *testing.T) {
	svc := newTestService(newMockPracticeRepo())
	uc := userWith([]string{"practices:read:all"})

	_, err := svc.GetPractice(context.Background(), uc, uuid.New())
	if !rbac.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestListPracticesScoping(t *testing.T) {
	repo := newMockPracticeRepo()
	svc := newTestService(repo)
	home := uuid.New()

	ucOrg := userWith([]string{"practices:read:organization"}, home)
	seed(repo, home, uuid.New())
	seed(repo, home, uuid.New())
	seed(repo, uuid.New(), uuid.New()) // other org

	items, total, err := svc.ListPractices(context.Background(), ucOrg, "", 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("organization scope should see 2 practices, got %d", total)
	}

	ucNone := userWith(nil)
	items, total, err = svc.ListPractices(context.Background(), ucNone, "", 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("no grant should list nothing, got %d", total)
	}
}

func TestListPracticesSuperAdmin(t *testing.T) {
	repo := newMockPracticeRepo()
	svc := newTestService(repo)
	seed(repo, uuid.New(), uuid.New())
	seed(repo, uuid.New(), uuid.New())

	uc := rbac.NewUserContext(rbac.UserContextParams{UserID: uuid.New(), IsSuperAdmin: true})
	_, total, err := svc.ListPractices(context.Background(), uc, "", 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("super admin should see everything, got %d", total)
	}
}

func TestUpdatePracticeKeepsOrganization(t *testing.T) {
	repo := newMockPracticeRepo()
	svc := newTestService(repo)
	home := uuid.New()
	uc := userWith([]string{"practices:update:organization"}, home)

	existing := seed(repo, home, uuid.New())

	update := &Practice{ID: existing.ID, Name: "Renamed", Status: "active", OrganizationID: uuid.New()}
	if err := svc.UpdatePractice(context.Background(), uc, update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if update.OrganizationID != home {
		t.Error("update must not move the practice between organizations")
	}
}

func TestDeletePracticeDenied(t *testing.T) {
	repo := newMockPracticeRepo()
	svc := newTestService(repo)
	uc := userWith([]string{"practices:read:all"})

	existing := seed(repo, uuid.New(), uuid.New())
	if err := svc.DeletePractice(context.Background(), uc, existing.ID); !rbac.IsDenied(err) {
		t.Fatalf("read grant must not allow delete, got %v", err)
	}
	if _, ok := repo.store[existing.ID]; !ok {
		t.Error("denied delete must not remove the practice")
	}
}
