package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func invoke(mw echo.MiddlewareFunc, req *http.Request, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if handler == nil {
		handler = func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	}
	return rec, mw(handler)(c)
}

func TestRequestID_Generated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	var seen string
	rec, err := invoke(RequestID(), req, func(c echo.Context) error {
		seen, _ = c.Get("request_id").(string)
		return c.NoContent(http.StatusOK)
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen == "" {
		t.Error("expected a generated request id on the context")
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Error("request id should be echoed in the response header")
	}
}

func TestRequestID_Propagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")

	rec, err := invoke(RequestID(), req, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Header().Get(RequestIDHeader) != "upstream-id" {
		t.Error("inbound request id should be reused")
	}
}

func TestSecurityHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := invoke(SecurityHeaders(), req, nil)
	if err != nil {
		t.Fatal(err)
	}

	checks := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	}
	for header, want := range checks {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRecovery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := invoke(Recovery(zerolog.Nop()), req, func(c echo.Context) error {
		panic("boom")
	})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from recovered panic, got %v", err)
	}
}

func TestRateLimit_Burst(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if _, err := invoke(mw, req, nil); err != nil {
			t.Fatalf("request %d should pass within burst, got %v", i, err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := invoke(mw, req, nil)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on rejection")
	}
}

func TestLogger_PassesThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := invoke(Logger(zerolog.Nop()), req, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
