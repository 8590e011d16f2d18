package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/insano70/bcos-sub014/internal/platform/auth"
)

func auditRequest(t *testing.T, path string, recorder AuditRecorder) []AuditEntry {
	t.Helper()

	var entries []AuditEntry
	capture := AuditRecorderFunc(func(e AuditEntry) error {
		entries = append(entries, e)
		return nil
	})
	if recorder == nil {
		recorder = capture
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, "user-1")
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := Audit(zerolog.Nop(), recorder)
	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	if err := handler(c); err != nil {
		t.Fatal(err)
	}
	return entries
}

func TestAudit_RecordsAPIAccess(t *testing.T) {
	entries := auditRequest(t, "/api/v1/practices/42", nil)

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.UserID != "user-1" {
		t.Errorf("expected user-1, got %q", entry.UserID)
	}
	if entry.ResourceType != "practices" || entry.ResourceID != "42" {
		t.Errorf("unexpected resource: %s/%s", entry.ResourceType, entry.ResourceID)
	}
	if entry.Action != "read" {
		t.Errorf("expected read action, got %q", entry.Action)
	}
}

func TestAudit_SkipsNonAPIRoutes(t *testing.T) {
	entries := auditRequest(t, "/healthz", nil)
	if len(entries) != 0 {
		t.Errorf("health checks must not be audited, got %d entries", len(entries))
	}
}

func TestAudit_RecorderFailureDoesNotFailRequest(t *testing.T) {
	failing := AuditRecorderFunc(func(AuditEntry) error { return errors.New("audit store down") })
	// auditRequest fails the test if the handler returns an error.
	auditRequest(t, "/api/v1/practices", failing)
}

func TestHTTPMethodToAction(t *testing.T) {
	cases := map[string]string{
		http.MethodGet:    "read",
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
	}
	for method, want := range cases {
		if got := httpMethodToAction(method); got != want {
			t.Errorf("%s: got %q, want %q", method, got, want)
		}
	}
}

func TestSplitResourcePath(t *testing.T) {
	cases := []struct {
		path string
		typ  string
		id   string
	}{
		{"/api/v1/practices", "practices", ""},
		{"/api/v1/practices/42", "practices", "42"},
		{"/api/v1/work-items/7/transitions", "work-items", "7"},
		{"/api/v1/", "unknown", ""},
	}
	for _, tc := range cases {
		typ, id := splitResourcePath(tc.path)
		if typ != tc.typ || id != tc.id {
			t.Errorf("%s: got %s/%s, want %s/%s", tc.path, typ, id, tc.typ, tc.id)
		}
	}
}
