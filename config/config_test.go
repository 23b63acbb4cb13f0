package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "HOST", "ENV", "DUCK_SHELL", "DUCK_DEBOUNCE_MS", "DUCK_CANCEL_GRACE_MS", "DUCK_TERMINAL"} {
		t.Setenv(key, "")
	}

	cfg := load()

	if cfg.Port != 12345 || cfg.Host != "127.0.0.1" {
		t.Errorf("server defaults = %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.Shell != "/bin/bash" {
		t.Errorf("Shell = %q, want /bin/bash", cfg.Shell)
	}
	if cfg.DebounceDelay != 150*time.Millisecond || cfg.CancelGrace != 3*time.Second {
		t.Errorf("durations = %v %v", cfg.DebounceDelay, cfg.CancelGrace)
	}
	if !cfg.TerminalEnabled || !cfg.IsDevelopment() {
		t.Error("terminal and development mode should default on")
	}
	if cfg.StartDir == "" {
		t.Error("StartDir should default to the home directory")
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ENV", "production")
	t.Setenv("DUCK_START_DIR", "/srv")
	t.Setenv("DUCK_DEBOUNCE_MS", "0")
	t.Setenv("DUCK_CANCEL_GRACE_MS", "500")
	t.Setenv("DUCK_TERMINAL", "false")

	cfg := load()

	if cfg.Port != 8080 || cfg.StartDir != "/srv" || cfg.IsDevelopment() {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.DebounceDelay != 0 {
		t.Errorf("DebounceDelay = %v, want 0", cfg.DebounceDelay)
	}
	if cfg.CancelGrace != 500*time.Millisecond {
		t.Errorf("CancelGrace = %v, want 500ms", cfg.CancelGrace)
	}
	if cfg.TerminalEnabled {
		t.Error("DUCK_TERMINAL=false should disable the terminal")
	}
}

func TestGetEnvHelpers_IgnoreMalformed(t *testing.T) {
	t.Setenv("DUCK_TEST_INT", "nope")
	t.Setenv("DUCK_TEST_BOOL", "maybe")
	t.Setenv("DUCK_TEST_MS", "-5")

	if got := getEnvInt("DUCK_TEST_INT", 7); got != 7 {
		t.Errorf("getEnvInt = %d, want 7", got)
	}
	if got := getEnvBool("DUCK_TEST_BOOL", true); !got {
		t.Error("getEnvBool should fall back to default")
	}
	if got := getEnvMillis("DUCK_TEST_MS", time.Second); got != time.Second {
		t.Errorf("getEnvMillis = %v, want 1s", got)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("DUCK_TEST_LIST", " localhost:3000, ,https://duck.example ")

	got := getEnvList("DUCK_TEST_LIST")
	if len(got) != 2 || got[0] != "localhost:3000" || got[1] != "https://duck.example" {
		t.Errorf("getEnvList = %q", got)
	}

	t.Setenv("DUCK_TEST_LIST", "")
	if got := getEnvList("DUCK_TEST_LIST"); got != nil {
		t.Errorf("empty list = %q, want nil", got)
	}
}
