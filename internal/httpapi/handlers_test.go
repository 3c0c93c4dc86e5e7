package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"metyme/backend/internal/domain"
	"metyme/backend/internal/service"
	"metyme/backend/internal/store/memory"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	testPIN    = "736251"
)

type testEnv struct {
	api        *API
	handler    http.Handler
	adminToken string
	staffToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, "test-lounge", 10*time.Second)
	auth := NewAuthManager(testSecret, time.Hour, testPIN, repo)
	if err := auth.EnsureAdmin("owner", "ownerpass123"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if _, err := auth.CreateStaff(domain.StaffCreateRequest{Username: "rani", Password: "secret123"}); err != nil {
		t.Fatalf("create staff: %v", err)
	}

	api := New(svc, auth, nil, "http://localhost:5173")

	admin, err := auth.Login(domain.LoginRequest{Username: "owner", Password: "ownerpass123"})
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	staff, err := auth.Login(domain.LoginRequest{Username: "rani", Password: "secret123"})
	if err != nil {
		t.Fatalf("staff login: %v", err)
	}

	return &testEnv{
		api:        api,
		handler:    api.Handler(),
		adminToken: admin.AccessToken,
		staffToken: staff.AccessToken,
	}
}

func (e *testEnv) do(t *testing.T, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		req.Header.Set("X-CSRF-Token", e.api.generateCSRFToken())
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSessionFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions", env.staffToken, map[string]any{
		"customer_name": "Maria Santos",
		"seat":          "A-3",
		"category":      "walk_in",
		"rate_per_hour": "20000",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open session: expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var created struct {
		Session struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"session"`
	}
	decodeBody(t, rec, &created)
	if created.Session.Status != "open" {
		t.Fatalf("expected open status, got %s", created.Session.Status)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/sessions/"+created.Session.ID+"/close", env.staffToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("close session: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/sessions/"+created.Session.ID+"/pay", env.staffToken, map[string]any{
		"cash": "50000",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("pay session: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var paid struct {
		Session struct {
			Paid bool `json:"paid"`
		} `json:"session"`
	}
	decodeBody(t, rec, &paid)
	if !paid.Session.Paid {
		t.Fatalf("expected session paid")
	}
}

func TestPaySessionBeforeCloseIsConflict(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions", env.staffToken, map[string]any{
		"customer_name": "Dana",
		"seat":          "B-2",
		"category":      "walk_in",
		"rate_per_hour": "15000",
	})
	var created struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	decodeBody(t, rec, &created)

	rec = env.do(t, http.MethodPost, "/api/v1/sessions/"+created.Session.ID+"/pay", env.staffToken, map[string]any{
		"cash": "100000",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/sessions/does-not-exist", env.staffToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGroupedReceiptsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	for _, item := range []string{"Latte", "Croissant"} {
		rec := env.do(t, http.MethodPost, "/api/v1/addons", env.staffToken, map[string]any{
			"customer_name": "Maria",
			"seat":          "A-3",
			"item_name":     item,
			"qty":           1,
			"unit_price":    "10000",
			"cash":          "10000",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %s: expected 201, got %d body=%s", item, rec.Code, rec.Body.String())
		}
	}

	date := time.Now().UTC().Format("2006-01-02")
	rec := env.do(t, http.MethodGet, "/api/v1/receipts/grouped?stream=addons&date="+date, env.staffToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Receipts []struct {
			Lines []json.RawMessage `json:"lines"`
		} `json:"receipts"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Receipts) != 1 || len(resp.Receipts[0].Lines) != 2 {
		t.Fatalf("expected one receipt with two lines, got %s", rec.Body.String())
	}
}

func TestConsignmentSaleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/consignment/sales", env.staffToken, map[string]any{
		"item_id":       "citem-croffle",
		"customer_name": "Maria",
		"seat":          "A-3",
		"qty":           1,
		"cash":          "15000",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/consignment/sales", env.staffToken, map[string]any{
		"item_id":       "citem-croffle",
		"customer_name": "Maria",
		"seat":          "A-3",
		"qty":           1000,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for over-stock sale, got %d", rec.Code)
	}
}

func TestDailyReportFormats(t *testing.T) {
	env := newTestEnv(t)
	date := time.Now().UTC().Format("2006-01-02")

	rec := env.do(t, http.MethodGet, "/api/v1/reports/daily?date="+date, env.adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("json report: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/reports/daily?date="+date+"&format=csv", env.adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("csv report: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "summary,net_revenue,") {
		t.Fatalf("csv missing net revenue row: %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/reports/daily?date="+date+"&format=xlsx", env.adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("xlsx report: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("expected xlsx content type, got %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected non-empty workbook body")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/reports/daily?date="+date+"&format=html", env.adminToken, nil)
	if !strings.Contains(rec.Body.String(), "Daily Report "+date) {
		t.Fatalf("html report missing title: %s", rec.Body.String())
	}
}

func TestDisplayReceiptRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/display/receipt", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var empty struct {
		Active bool `json:"active"`
	}
	decodeBody(t, rec, &empty)
	if empty.Active {
		t.Fatalf("expected inactive display initially")
	}

	rec = env.do(t, http.MethodPut, "/api/v1/display/receipt", env.staffToken, map[string]any{
		"stream":      "addons",
		"receipt_key": "maria santos|a-3",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set display: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/display/receipt", "", nil)
	var got struct {
		Active bool `json:"active"`
		State  struct {
			ReceiptKey string `json:"receipt_key"`
			UpdatedBy  string `json:"updated_by"`
		} `json:"state"`
	}
	decodeBody(t, rec, &got)
	if !got.Active || got.State.ReceiptKey != "maria santos|a-3" {
		t.Fatalf("unexpected display state: %s", rec.Body.String())
	}
	if got.State.UpdatedBy != "rani" {
		t.Fatalf("expected updated_by rani, got %q", got.State.UpdatedBy)
	}
}

func TestBookingFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	from := time.Now().UTC().Format("2006-01-02")
	until := time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
	rec := env.do(t, http.MethodPost, "/api/v1/bookings", env.staffToken, map[string]any{
		"customer_name":  "Rafael",
		"package_name":   "Study Pass",
		"total_attempts": 1,
		"valid_from":     from,
		"valid_until":    until,
		"price":          "100000",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create booking: expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var created struct {
		Booking struct {
			ID        string `json:"id"`
			Reference string `json:"reference"`
		} `json:"booking"`
	}
	decodeBody(t, rec, &created)
	if !strings.HasPrefix(created.Booking.Reference, "MTL-") {
		t.Fatalf("expected MTL- reference, got %q", created.Booking.Reference)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/bookings/"+created.Booking.Reference+"/redeem", env.staffToken, map[string]any{
		"seat": "A-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("redeem: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/bookings/"+created.Booking.ID+"/redeem", env.staffToken, map[string]any{})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 once attempts exhausted, got %d", rec.Code)
	}
}
