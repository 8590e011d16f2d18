package workitem

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insano70/bcos-sub014/internal/rbac"
)

// -- Mock Repository --

type mockWorkItemRepo struct {
	store map[uuid.UUID]*WorkItem
}

func newMockWorkItemRepo() *mockWorkItemRepo {
	return &mockWorkItemRepo{store: make(map[uuid.UUID]*WorkItem)}
}

func (m *mockWorkItemRepo) Create(_ context.Context, w *WorkItem) error {
	w.ID = uuid.New()
	m.store[w.ID] = w
	return nil
}

func (m *mockWorkItemRepo) GetByID(_ context.Context, id uuid.UUID) (*WorkItem, error) {
	w, ok := m.store[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (m *mockWorkItemRepo) Update(_ context.Context, w *WorkItem) error {
	m.store[w.ID] = w
	return nil
}

func (m *mockWorkItemRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockWorkItemRepo) List(_ context.Context, f ListFilter) ([]*WorkItem, int, error) {
	var items []*WorkItem
	for _, w := range m.store {
		if f.OwnerID != nil && w.OwnerID() != *f.OwnerID {
			continue
		}
		if f.OrganizationIDs != nil {
			match := false
			for _, id := range f.OrganizationIDs {
				if w.OrganizationID == id {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if f.Status != "" && w.Status != f.Status {
			continue
		}
		items = append(items, w)
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

func newTestService(repo WorkItemRepository) *Service {
	return NewService(repo, rbac.NewGuard(zerolog.Nop(), nil))
}

func seed(repo *mockWorkItemRepo, org uuid.UUID, createdBy uuid.UUID, assignee *uuid.UUID) *WorkItem {
	w := &WorkItem{
		ID:             uuid.New(),
		Title:          "Verify payer enrollment",
		Status:         StatusOpen,
		OrganizationID: org,
		CreatedBy:      createdBy,
		AssignedTo:     assignee,
	}
	repo.store[w.ID] = w
	return w
}

// -- tests --

func TestCreateWorkItem(t *testing.T) {
	repo := newMockWorkItemRepo()
	svc := newTestService(repo)
	org := uuid.New()
	uc := userWith([]string{"work-items:create:own"}, org)

	w := &WorkItem{Title: "Chart review", OrganizationID: org}
	if err := svc.CreateWorkItem(context.Background(), uc, w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Status != StatusOpen {
		t.Errorf("expected default status open, got %q", w.Status)
	}
	if w.CreatedBy != uc.UserID() {
		t.Error("creator should be stamped from the caller")
	}
}

func TestCreateWorkItemOutsideOrganization(t *testing.T) {
	svc := newTestService(newMockWorkItemRepo())
	uc := userWith([]string{"work-items:create:organization"}, uuid.New())

	w := &WorkItem{Title: "T", OrganizationID: uuid.New()}
	if err := svc.CreateWorkItem(context.Background(), uc, w); !rbac.IsDenied(err) {
		t.Fatalf("expected denial outside accessible organizations, got %v", err)
	}
}

func TestGetWorkItemOwnership(t *testing.T) {
	repo := newMockWorkItemRepo()
	svc := newTestService(repo)
	uc := userWith([]string{"work-items:read:own"})

	me := uc.UserID()
	assignedToMe := seed(repo, uuid.New(), uuid.New(), &me)
	someoneElses := seed(repo, uuid.New(), uuid.New(), nil)

	if _, err := svc.GetWorkItem(context.Background(), uc, assignedToMe.ID); err != nil {
		t.Fatalf("assigned item should be readable at own scope, got %v", err)
	}
	if _, err := svc.GetWorkItem(context.Background(), uc, someoneElses.ID); !rbac.IsDenied(err) {
		t.Fatalf("foreign item should be denied at own scope, got %v", err)
	}
}

func TestTransitionLifecycle(t *testing.T) {
	repo := newMockWorkItemRepo()
	svc := newTestService(repo)
	uc := userWith([]string{"work-items:update:own"})

	me := uc.UserID()
	w := seed(repo, uuid.New(), uuid.New(), &me)

	got, err := svc.Transition(context.Background(), uc, w.ID, StatusInProgress)
	if err != nil {
		t.Fatalf("open -> in_progress should be allowed, got %v", err)
	}
	if got.Status != StatusInProgress {
		t.Errorf("expected in_progress, got %q", got.Status)
	}

	got, err = svc.Transition(context.Background(), uc, w.ID, StatusDone)
	if err != nil {
		t.Fatalf("in_progress -> done should be allowed, got %v", err)
	}
	if got.CompletedAt == nil {
		t.Error("completing an item should stamp completed_at")
	}

	if _, err := svc.Transition(context.Background(), uc, w.ID, StatusInProgress); err == nil {
		t.Fatal("done is terminal, reopening must fail")
	}
}

func TestTransitionInvalidJump(t *testing.T) {
	repo := newMockWorkItemRepo()
	svc := newTestService(repo)
	uc := userWith([]string{"work-items:update:own"})

	me := uc.UserID()
	w := seed(repo, uuid.New(), uuid.New(), &me)

	if _, err := svc.Transition(context.Background(), uc, w.ID, StatusDone); err == nil {
		t.Fatal("open -> done skips the lifecycle and must fail")
	}
}

func TestTransitionDeniedForForeignItem(t *testing.T) {
	repo := newMockWorkItemRepo()
	svc := newTestService(repo)
	uc := userWith([]string{"work-items:update:own"})

	w := seed(repo, uuid.New(), uuid.New(), nil)
	if _, err := svc.Transition(context.Background(), uc, w.ID, StatusInProgress); !rbac.IsDenied(err) {
		t.Fatalf("expected denial on foreign item, got %v", err)
	}
}

func TestAssignRequiresManage(t *testing.T) {
	repo := newMockWorkItemRepo()
	svc := newTestService(repo)
	org := uuid.New()

	w := seed(repo, org, uuid.New(), nil)
	assignee := uuid.New()

	updater := userWith([]string{"work-items:update:organization"}, org)
	if _, err := svc.Assign(context.Background(), updater, w.ID, &assignee); !rbac.IsDenied(err) {
		t.Fatalf("update grant must not allow reassignment, got %v", err)
	}

	manager := userWith([]string{"work-items:manage:organization"}, org)
	got, err := svc.Assign(context.Background(), manager, w.ID, &assignee)
	if err != nil {
		t.Fatalf("manage grant should allow reassignment, got %v", err)
	}
	if got.AssignedTo == nil || *got.AssignedTo != assignee {
		t.Error("assignee should be recorded")
	}
}

func TestListWorkItemsScoping(t *testing.T) {
	repo := newMockWorkItemRepo()
	svc := newTestService(repo)
	org := uuid.New()
	uc := userWith([]string{"work-items:read:own"})

	me := uc.UserID()
	seed(repo, org, me, nil)         // created by me, unassigned
	seed(repo, org, uuid.New(), &me) // assigned to me
	seed(repo, org, uuid.New(), nil) // foreign

	items, total, err := svc.ListWorkItems(context.Background(), uc, ListFilter{Limit: 20})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("own scope should see 2 items, got %d", total)
	}
}

func TestUpdateWorkItemCannotChangeStatus(t *testing.T) {
	repo := newMockWorkItemRepo()
	svc := newTestService(repo)
	uc := userWith([]string{"work-items:update:own"})

	me := uc.UserID()
	w := seed(repo, uuid.New(), uuid.New(), &me)

	update := &WorkItem{ID: w.ID, Title: "Updated title", Status: StatusDone}
	if err := svc.UpdateWorkItem(context.Background(), uc, update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if update.Status != StatusOpen {
		t.Error("plain updates must not bypass the transition lifecycle")
	}
}
