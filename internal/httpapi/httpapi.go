// Package httpapi exposes the lounge backend over HTTP. Handlers decode and
// validate the transport layer; business rules stay in the service package.
package httpapi

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"metyme/backend/internal/display"
	"metyme/backend/internal/domain"
	"metyme/backend/internal/report"
	"metyme/backend/internal/service"
	"metyme/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	display       display.Store
	allowedOrigin string
	loginLimiter  *attemptLimiter
	pinLimiter    *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, displayStore display.Store, allowedOrigin string) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		// Fall back to a deterministic secret if crypto/rand fails (should not happen in practice).
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	if displayStore == nil {
		displayStore = display.NewMemoryStore()
	}
	return &API{
		service:       svc,
		auth:          auth,
		display:       displayStore,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		pinLimiter:    newAttemptLimiter(8, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

// generateCSRFToken returns a token valid for the current hour bucket.
func (a *API) generateCSRFToken() string {
	now := time.Now().UTC()
	bucket := now.Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken checks whether the provided token matches the current or
// previous hour bucket, giving a 2-hour validity window.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	now := time.Now().UTC()
	currentBucket := now.Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	expected1 := a.csrfTokenForHour(currentBucket)
	expected2 := a.csrfTokenForHour(prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)

	mux.HandleFunc("/api/v1/sessions", a.requireAuth(a.handleSessions, "staff", "admin"))
	mux.HandleFunc("/api/v1/sessions/", a.requireAuth(a.handleSessionActions, "staff", "admin"))

	mux.HandleFunc("/api/v1/addons", a.requireAuth(a.handleAddOns, "staff", "admin"))
	mux.HandleFunc("/api/v1/addons/", a.requireAuth(a.handleAddOnActions, "staff", "admin"))

	mux.HandleFunc("/api/v1/consignment/items", a.requireAuth(a.handleConsignmentItems, "staff", "admin"))
	mux.HandleFunc("/api/v1/consignment/items/", a.requireAuth(a.handleConsignmentItemActions, "admin"))
	mux.HandleFunc("/api/v1/consignment/sales", a.requireAuth(a.handleConsignmentSales, "staff", "admin"))
	mux.HandleFunc("/api/v1/consignment/sales/", a.requireAuth(a.handleConsignmentSaleActions, "staff", "admin"))
	mux.HandleFunc("/api/v1/consignment/payouts", a.requireAuth(a.handleSupplierPayouts, "admin"))

	mux.HandleFunc("/api/v1/bookings", a.requireAuth(a.handleBookings, "staff", "admin"))
	mux.HandleFunc("/api/v1/bookings/", a.requireAuth(a.handleBookingActions, "staff", "admin"))

	mux.HandleFunc("/api/v1/expenses", a.requireAuth(a.handleExpenses, "staff", "admin"))
	mux.HandleFunc("/api/v1/receipts/grouped", a.requireAuth(a.handleGroupedReceipts, "staff", "admin"))
	mux.HandleFunc("/api/v1/reports/daily", a.requireAuth(a.handleDailyReport, "admin"))

	// The display endpoint is read openly so the customer-facing screen can
	// poll it without credentials. Writes still require a logged-in staff.
	mux.HandleFunc("/api/v1/display/receipt", a.handleDisplayReceipt)

	mux.HandleFunc("/api/v1/users/staff", a.requireAuth(a.handleStaff, "admin"))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour bucket.
// Clients must include this token in the X-CSRF-Token header for all mutating requests.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

// csrfExemptPaths lists paths that are exempt from CSRF validation. Login is
// excluded because it is called before any CSRF token fetch.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

// checkCSRF enforces CSRF token validation for state-changing methods (POST/PUT/PATCH).
// Returns false and writes an error response if validation fails.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	method := r.Method
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch {
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

// serviceErrorStatus maps service and store errors onto HTTP statuses.
func serviceErrorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrInsufficientStock), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case strings.Contains(strings.ToLower(err.Error()), "admin role required"):
		return http.StatusForbidden
	default:
		return http.StatusUnprocessableEntity
	}
}

func (a *API) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		sessions, err := a.service.ListSessions(r.Context(), q.Get("branch_id"), q.Get("date"), q.Get("status"))
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, domain.SessionListResponse{Sessions: sessions})
	case http.MethodPost:
		var req domain.SessionOpenRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sess, err := a.service.OpenSession(r.Context(), req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, domain.SessionResponse{Session: sess})
	default:
		writeMethodNotAllowed(w)
	}
}

// pathAction splits "/<id>/<action>" tails; action is empty for plain
// "/<id>" paths.
func pathAction(path string, prefix string) (id string, action string, ok bool) {
	if !strings.HasPrefix(path, prefix) {
		return "", "", false
	}
	tail := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if tail == "" {
		return "", "", false
	}
	parts := strings.SplitN(tail, "/", 2)
	id = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		action = strings.TrimSpace(strings.Trim(parts[1], "/"))
	}
	return id, action, id != ""
}

func (a *API) handleSessionActions(w http.ResponseWriter, r *http.Request) {
	id, action, ok := pathAction(r.URL.Path, "/api/v1/sessions/")
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("session id required"))
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		sess, err := a.service.GetSession(r.Context(), id)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, domain.SessionResponse{Session: sess})
	case "close":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		sess, err := a.service.CloseSession(r.Context(), id)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, domain.SessionResponse{Session: sess})
	case "pay":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.SessionPayRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.PaySession(r.Context(), id, req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case "void":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.SessionVoidRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if !a.requireManagerPIN(w, r, req.ManagerPIN) {
			return
		}
		sess, err := a.service.VoidSession(r.Context(), id, req.Reason)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, domain.SessionResponse{Session: sess})
	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown session action"))
	}
}

// requireManagerPIN rate-limits and verifies the manager PIN that guards
// destructive operations.
func (a *API) requireManagerPIN(w http.ResponseWriter, r *http.Request, pin string) bool {
	if !a.pinLimiter.Allow("pin:" + clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many manager pin attempts"))
		return false
	}
	if !a.auth.ValidateManagerPIN(pin) {
		writeError(w, http.StatusForbidden, errors.New("invalid manager pin"))
		return false
	}
	return true
}

func (a *API) handleAddOns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		sales, err := a.service.ListAddOnSales(r.Context(), q.Get("branch_id"), q.Get("date"))
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, domain.AddOnSaleListResponse{Sales: sales})
	case http.MethodPost:
		var req domain.AddOnSaleCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.CreateAddOnSale(r.Context(), req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleAddOnActions(w http.ResponseWriter, r *http.Request) {
	id, action, ok := pathAction(r.URL.Path, "/api/v1/addons/")
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("sale id required"))
		return
	}
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	switch action {
	case "pay":
		var req domain.SalePayRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.PayAddOnSale(r.Context(), id, req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case "void":
		var req domain.SaleVoidRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if !a.requireManagerPIN(w, r, req.ManagerPIN) {
			return
		}
		resp, err := a.service.VoidAddOnSale(r.Context(), id, req.Reason)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown sale action"))
	}
}

func (a *API) handleConsignmentItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("all") == ""
		items, err := a.service.ListConsignmentItems(r.Context(), activeOnly)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, domain.ConsignmentItemListResponse{Items: items})
	case http.MethodPost:
		var req domain.ConsignmentItemCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		item, err := a.service.CreateConsignmentItem(r.Context(), req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"item": item})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleConsignmentItemActions(w http.ResponseWriter, r *http.Request) {
	id, action, ok := pathAction(r.URL.Path, "/api/v1/consignment/items/")
	if !ok || action != "" {
		writeError(w, http.StatusBadRequest, errors.New("item id required"))
		return
	}
	if r.Method != http.MethodPatch {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.ConsignmentItemUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.service.UpdateConsignmentItem(r.Context(), id, req)
	if err != nil {
		writeError(w, serviceErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item})
}

func (a *API) handleConsignmentSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		sales, err := a.service.ListConsignmentSales(r.Context(), q.Get("branch_id"), q.Get("date"))
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, domain.ConsignmentSaleListResponse{Sales: sales})
	case http.MethodPost:
		var req domain.ConsignmentSaleCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.CreateConsignmentSale(r.Context(), req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleConsignmentSaleActions(w http.ResponseWriter, r *http.Request) {
	id, action, ok := pathAction(r.URL.Path, "/api/v1/consignment/sales/")
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("sale id required"))
		return
	}
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	switch action {
	case "pay":
		var req domain.SalePayRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.PayConsignmentSale(r.Context(), id, req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case "void":
		var req domain.SaleVoidRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if !a.requireManagerPIN(w, r, req.ManagerPIN) {
			return
		}
		resp, err := a.service.VoidConsignmentSale(r.Context(), id, req.Reason)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown sale action"))
	}
}

func (a *API) handleSupplierPayouts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	resp, err := a.service.SupplierPayouts(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, serviceErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		bookings, err := a.service.ListBookings(r.Context())
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, domain.BookingListResponse{Bookings: bookings})
	case http.MethodPost:
		var req domain.BookingCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.CreateBooking(r.Context(), req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleBookingActions(w http.ResponseWriter, r *http.Request) {
	id, action, ok := pathAction(r.URL.Path, "/api/v1/bookings/")
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("booking id required"))
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		resp, err := a.service.GetBooking(r.Context(), id)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case "redeem":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.BookingRedeemRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.RedeemBooking(r.Context(), id, req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case "pay":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.BookingPayRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.PayBooking(r.Context(), id, req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown booking action"))
	}
}

func (a *API) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		expenses, err := a.service.ListExpenses(r.Context(), r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, domain.ExpenseListResponse{Expenses: expenses})
	case http.MethodPost:
		var req domain.ExpenseCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		expense, err := a.service.CreateExpense(r.Context(), req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"expense": expense})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleGroupedReceipts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	stream := q.Get("stream")
	if stream == "" {
		stream = domain.StreamAddOns
	}
	resp, err := a.service.GroupedReceipts(r.Context(), q.Get("branch_id"), stream, q.Get("date"))
	if err != nil {
		writeError(w, serviceErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	format := strings.ToLower(strings.TrimSpace(q.Get("format")))

	rep, err := a.service.DailyReport(r.Context(), q.Get("branch_id"), q.Get("date"))
	if err != nil {
		writeError(w, serviceErrorStatus(err), err)
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"daily-report-%s.csv\"", rep.Date))
		_, _ = w.Write([]byte(dailyReportToCSV(rep)))
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(dailyReportToPrintableHTML(rep)))
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"daily-report-%s.xlsx\"", rep.Date))
		if err := report.WriteDailyXLSX(w, rep); err != nil {
			log.Error().Err(err).Msg("failed to stream xlsx report")
		}
	default:
		writeJSON(w, http.StatusOK, rep)
	}
}

func (a *API) handleDisplayReceipt(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		state, ok, err := a.display.Get(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"active": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"active": true, "state": state})
	case http.MethodPut:
		a.requireAuth(a.handleDisplayReceiptSet, "staff", "admin")(w, r)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleDisplayReceiptSet(w http.ResponseWriter, r *http.Request) {
	var req domain.DisplaySetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Stream != domain.StreamAddOns && req.Stream != domain.StreamConsignment {
		writeError(w, http.StatusBadRequest, errors.New("unknown stream"))
		return
	}
	if strings.TrimSpace(req.ReceiptKey) == "" {
		writeError(w, http.StatusBadRequest, errors.New("receipt key required"))
		return
	}

	actor, _ := service.ActorFromContext(r.Context())
	state := domain.DisplayState{
		Stream:     req.Stream,
		ReceiptKey: req.ReceiptKey,
		UpdatedBy:  actor.Username,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := a.display.Set(r.Context(), state); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (a *API) handleStaff(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		staff := a.auth.ListStaff()
		writeJSON(w, http.StatusOK, map[string]any{"staff": staff})
	case http.MethodPost:
		var req domain.StaffCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		user, err := a.auth.CreateStaff(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{"staff": user})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Enforce CSRF protection for all state-changing requests.
		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(startedAt)).
			Msg("request")
	})
}

func dailyReportToCSV(rep domain.DailySalesReport) string {
	lines := []string{
		"section,key,value",
		fmt.Sprintf("summary,date,%s", rep.Date),
		fmt.Sprintf("summary,branch_id,%s", rep.BranchID),
		fmt.Sprintf("sessions,count,%d", rep.SessionCount),
		fmt.Sprintf("sessions,revenue,%s", rep.SessionRevenue.StringFixed(2)),
		fmt.Sprintf("addons,count,%d", rep.AddOnCount),
		fmt.Sprintf("addons,revenue,%s", rep.AddOnRevenue.StringFixed(2)),
		fmt.Sprintf("consignment,count,%d", rep.ConsignmentCount),
		fmt.Sprintf("consignment,gross,%s", rep.ConsignmentGross.StringFixed(2)),
		fmt.Sprintf("consignment,venue_fee,%s", rep.VenueFee.StringFixed(2)),
		fmt.Sprintf("consignment,supplier_share,%s", rep.SupplierShare.StringFixed(2)),
		fmt.Sprintf("bookings,count,%d", rep.BookingCount),
		fmt.Sprintf("bookings,revenue,%s", rep.BookingRevenue.StringFixed(2)),
		fmt.Sprintf("summary,gross_revenue,%s", rep.GrossRevenue.StringFixed(2)),
		fmt.Sprintf("summary,cash_collected,%s", rep.CashCollected.StringFixed(2)),
		fmt.Sprintf("summary,ewallet_collected,%s", rep.EwalletCollected.StringFixed(2)),
		fmt.Sprintf("summary,expense_total,%s", rep.ExpenseTotal.StringFixed(2)),
		fmt.Sprintf("summary,net_revenue,%s", rep.NetRevenue.StringFixed(2)),
	}
	return strings.Join(lines, "\n") + "\n"
}

// dailyReportHTMLTmpl is the html/template used to render printable daily reports.
// All user-controlled fields are auto-escaped by html/template to prevent XSS.
var dailyReportHTMLTmpl = template.Must(template.New("daily-report").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Daily Report {{.Date}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
    h2 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Daily Report {{.Date}}</h2>
  <p>Branch: {{.BranchID}}</p>
  <table>
    <thead><tr><th>Section</th><th>Count</th><th>Amount</th></tr></thead>
    <tbody>
      <tr><td>Sessions</td><td class="num">{{.SessionCount}}</td><td class="num">{{.SessionRevenue}}</td></tr>
      <tr><td>Add-ons</td><td class="num">{{.AddOnCount}}</td><td class="num">{{.AddOnRevenue}}</td></tr>
      <tr><td>Consignment gross</td><td class="num">{{.ConsignmentCount}}</td><td class="num">{{.ConsignmentGross}}</td></tr>
      <tr><td>Venue fee</td><td class="num"></td><td class="num">{{.VenueFee}}</td></tr>
      <tr><td>Supplier share</td><td class="num"></td><td class="num">{{.SupplierShare}}</td></tr>
      <tr><td>Bookings</td><td class="num">{{.BookingCount}}</td><td class="num">{{.BookingRevenue}}</td></tr>
      <tr><td>Gross revenue</td><td class="num"></td><td class="num">{{.GrossRevenue}}</td></tr>
      <tr><td>Expenses</td><td class="num"></td><td class="num">{{.ExpenseTotal}}</td></tr>
      <tr><td>Net revenue</td><td class="num"></td><td class="num">{{.NetRevenue}}</td></tr>
    </tbody>
  </table>
  <p>Cash: {{.CashCollected}} | E-wallet: {{.EwalletCollected}}</p>
</body>
</html>
`))

func dailyReportToPrintableHTML(rep domain.DailySalesReport) string {
	var buf bytes.Buffer
	if err := dailyReportHTMLTmpl.Execute(&buf, rep); err != nil {
		// Fallback: return a plain-text error page rather than leaking internal details.
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// For 5xx responses, return a generic message to avoid leaking internal
	// implementation details (stack traces, SQL errors, file paths, etc.).
	// 4xx responses are user-facing so we return the original error message.
	msg := err.Error()
	if status >= 500 {
		log.Error().Int("status", status).Err(err).Msg("internal error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
