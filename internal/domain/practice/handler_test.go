package practice

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/insano70/bcos-sub014/internal/rbac"
)

func request(t *testing.T, h *Handler, uc *rbac.UserContext, method, target, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req = req.WithContext(rbac.NewContext(req.Context(), uc))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Route the request manually against the handler methods.
	parts := strings.Split(strings.TrimPrefix(req.URL.Path, "/api/v1/practices"), "/")
	var err error
	switch {
	case method == http.MethodGet && len(parts) > 1 && parts[1] != "":
		c.SetParamNames("id")
		c.SetParamValues(parts[1])
		err = h.GetPractice(c)
	case method == http.MethodGet:
		err = h.ListPractices(c)
	case method == http.MethodPost:
		err = h.CreatePractice(c)
	case method == http.MethodDelete:
		c.SetParamNames("id")
		c.SetParamValues(parts[1])
		err = h.DeletePractice(c)
	}
	return rec, err
}

func TestHandlerGetPracticeForbidden(t *testing.T) {
	repo := newMockPracticeRepo()
	h := NewHandler(newTestService(repo))
	uc := userWith([]string{"practices:read:own"})
	theirs := seed(repo, uuid.New(), uuid.New())

	_, err := request(t, h, uc, http.MethodGet, "/api/v1/practices/"+theirs.ID.String(), "")
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestHandlerGetPracticeNotFound(t *testing.T) {
	h := NewHandler(newTestService(newMockPracticeRepo()))
	uc := userWith([]string{"practices:read:all"})

	_, err := request(t, h, uc, http.MethodGet, "/api/v1/practices/"+uuid.NewString(), "")
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandlerCreatePractice(t *testing.T) {
	repo := newMockPracticeRepo()
	h := NewHandler(newTestService(repo))
	org := uuid.New()
	uc := userWith([]string{"practices:create:organization"}, org)

	body := `{"name":"North Clinic","organization_id":"` + org.String() + `"}`
	rec, err := request(t, h, uc, http.MethodPost, "/api/v1/practices", body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if len(repo.store) != 1 {
		t.Errorf("expected 1 stored practice, got %d", len(repo.store))
	}
}

func TestHandlerListPractices(t *testing.T) {
	repo := newMockPracticeRepo()
	h := NewHandler(newTestService(repo))
	home := uuid.New()
	uc := userWith([]string{"practices:read:organization"}, home)
	seed(repo, home, uuid.New())

	rec, err := request(t, h, uc, http.MethodGet, "/api/v1/practices", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("expected 1 result, got body %s", rec.Body.String())
	}
}

func TestHandlerDeleteForbidden(t *testing.T) {
	repo := newMockPracticeRepo()
	h := NewHandler(newTestService(repo))
	uc := userWith([]string{"practices:read:all"})
	p := seed(repo, uuid.New(), uuid.New())

	_, err := request(t, h, uc, http.MethodDelete, "/api/v1/practices/"+p.ID.String(), "")
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}
