package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMutatingRequestWithoutCSRFTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions",
		bytes.NewReader([]byte(`{"customer_name":"x","seat":"A-1","category":"walk_in","rate_per_hour":"10000"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+env.staffToken)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without CSRF token, got %d", rec.Code)
	}
}

func TestLoginIsCSRFExempt(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewReader([]byte(`{"username":"owner","password":"ownerpass123"}`)))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login to bypass CSRF, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestMissingBearerTokenIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/sessions", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStaffCannotReadDailyReport(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/reports/daily", env.staffToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff on admin route, got %d", rec.Code)
	}
}

func TestVoidSessionRequiresManagerPIN(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions", env.staffToken, map[string]any{
		"customer_name": "Maria",
		"seat":          "A-3",
		"category":      "walk_in",
		"rate_per_hour": "20000",
	})
	var created struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	decodeBody(t, rec, &created)

	rec = env.do(t, http.MethodPost, "/api/v1/sessions/"+created.Session.ID+"/void", env.staffToken, map[string]any{
		"reason":      "mistake",
		"manager_pin": "000000",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong PIN, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/sessions/"+created.Session.ID+"/void", env.staffToken, map[string]any{
		"reason":      "mistake",
		"manager_pin": testPIN,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid PIN, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestLoginRateLimiter(t *testing.T) {
	env := newTestEnv(t)

	var last int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			bytes.NewReader([]byte(`{"username":"owner","password":"wrong"}`)))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.1.2.3:4567"

		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after repeated failures, got %d", last)
	}
}

func TestSecurityHeadersPresent(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff header, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected DENY frame options, got %q", got)
	}
}
