package httpapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"metyme/backend/internal/domain"
	"metyme/backend/internal/store/memory"
)

func newTestAuth(t *testing.T) *AuthManager {
	t.Helper()
	auth := NewAuthManager(testSecret, time.Hour, testPIN, memory.New())
	if err := auth.EnsureAdmin("owner", "ownerpass123"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	return auth
}

func TestLoginAndParseTokenRoundTrip(t *testing.T) {
	auth := newTestAuth(t)

	resp, err := auth.Login(domain.LoginRequest{Username: "Owner", Password: "ownerpass123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != "admin" {
		t.Fatalf("expected admin role, got %s", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "owner" || actor.Role != "admin" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth := newTestAuth(t)

	if _, err := auth.Login(domain.LoginRequest{Username: "owner", Password: "wrong"}); err == nil {
		t.Fatalf("expected error for wrong password")
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "ghost", Password: "whatever"}); err == nil {
		t.Fatalf("expected error for unknown user")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	auth := newTestAuth(t)
	if _, err := auth.ParseToken("not-a-jwt"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	auth := newTestAuth(t)
	// A second call must not fail or add another admin.
	if err := auth.EnsureAdmin("other", "otherpass123"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "other", Password: "otherpass123"}); err == nil {
		t.Fatalf("expected no second admin account")
	}
}

func TestCreateStaffValidation(t *testing.T) {
	auth := newTestAuth(t)

	cases := []domain.StaffCreateRequest{
		{Username: "ab", Password: "secret123"},
		{Username: "has space", Password: "secret123"},
		{Username: "validname", Password: "123"},
	}
	for _, req := range cases {
		if _, err := auth.CreateStaff(req); err == nil {
			t.Fatalf("expected validation error for %+v", req)
		}
	}

	user, err := auth.CreateStaff(domain.StaffCreateRequest{Username: "Rani", Password: "secret123"})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	if user.Username != "rani" || user.Role != "staff" {
		t.Fatalf("unexpected staff user: %+v", user)
	}

	if _, err := auth.CreateStaff(domain.StaffCreateRequest{Username: "rani", Password: "secret456"}); err == nil {
		t.Fatalf("expected duplicate username error")
	}

	found := false
	for _, s := range auth.ListStaff() {
		if s.Username == "rani" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected rani in staff listing")
	}
}

func TestValidateManagerPIN(t *testing.T) {
	auth := newTestAuth(t)

	if !auth.ValidateManagerPIN(testPIN) {
		t.Fatalf("expected configured PIN to validate")
	}
	if auth.ValidateManagerPIN("999999") {
		t.Fatalf("expected wrong PIN to fail")
	}
	if auth.ValidateManagerPIN("  ") {
		t.Fatalf("expected blank PIN to fail")
	}
}

func TestLoginFindsUserAddedOutsideProcess(t *testing.T) {
	repo := memory.New()
	auth := NewAuthManager(testSecret, time.Hour, testPIN, repo)

	// Simulate another instance provisioning an account after this
	// manager was constructed.
	hashed, err := hashPassword("latecomer123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := repo.CreateUser(context.Background(), domain.UserAccount{
		Username:  "late",
		Password:  hashed,
		Role:      "staff",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	resp, err := auth.Login(domain.LoginRequest{Username: "Late", Password: "latecomer123"})
	if err != nil {
		t.Fatalf("login after out-of-band provisioning: %v", err)
	}
	if resp.Role != "staff" {
		t.Fatalf("expected staff role, got %s", resp.Role)
	}
}

func TestStoredPlaintextPasswordIsNotTrusted(t *testing.T) {
	repo := memory.New()
	_ = repo.CreateUser(context.Background(), domain.UserAccount{
		Username: "legacy",
		Password: "plaintext-password",
		Role:     "staff",
		Active:   true,
	})

	auth := NewAuthManager(testSecret, time.Hour, testPIN, repo)
	if _, err := auth.Login(domain.LoginRequest{Username: "legacy", Password: "plaintext-password"}); err == nil {
		t.Fatalf("expected plaintext credential to be rejected")
	}
	if err := auth.EnsureAdmin("owner", "ownerpass123"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	resp, err := auth.Login(domain.LoginRequest{Username: "owner", Password: "ownerpass123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.HasPrefix(resp.AccessToken, "ey") {
		t.Fatalf("expected a JWT access token")
	}
}
