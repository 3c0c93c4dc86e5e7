package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("MANAGER_PIN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.ManagerPIN != "" {
		t.Fatalf("expected empty MANAGER_PIN when unset, got %q", cfg.ManagerPIN)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DEFAULT_BRANCH_ID", "GROUP_WINDOW_MS", "ACCESS_TOKEN_TTL_MINUTES"} {
		// t.Setenv to register the restore, then unset so defaults apply.
		t.Setenv(key, "placeholder")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.Address())
	}
	if cfg.BranchID != "main-lounge" {
		t.Fatalf("expected main-lounge branch, got %q", cfg.BranchID)
	}
	if cfg.GroupWindow() != 10*time.Second {
		t.Fatalf("expected 10s group window, got %s", cfg.GroupWindow())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("GROUP_WINDOW_MS", "2500")
	t.Setenv("DEFAULT_BRANCH_ID", "second-floor")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":9000" {
		t.Fatalf("expected :9000, got %q", cfg.Address())
	}
	if cfg.GroupWindow() != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s window, got %s", cfg.GroupWindow())
	}
	if cfg.BranchID != "second-floor" {
		t.Fatalf("expected second-floor, got %q", cfg.BranchID)
	}
}
