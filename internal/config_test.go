package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/navgate/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Tokens: []TokenConfig{{Token: "s3cret", Actor: "alice"}}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with tokens should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
	if got := cfg.TokenMap()["s3cret"]; got != "alice" {
		t.Errorf("token map actor = %q", got)
	}
}

func TestAuthConfig_TokenModeNoTokens(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode without tokens should fail")
	}
	if !strings.Contains(err.Error(), "no tokens") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidTokenEntries(t *testing.T) {
	for name, tokens := range map[string][]TokenConfig{
		"empty token":   {{Token: "", Actor: "alice"}},
		"invalid actor": {{Token: "x", Actor: "Not Valid"}},
		"duplicate":     {{Token: "x", Actor: "alice"}, {Token: "x", Actor: "bob"}},
	} {
		cfg := AuthConfig{Mode: "token", Tokens: tokens}
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDisclosureConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Disclosure.OpenDelay = -time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Error("negative open delay should fail")
	}
	cfg = NewDefaultConfig()
	cfg.Disclosure.SessionTTL = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero session ttl should fail")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("NAVGATE_TEST_TOKEN", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  log_level: debug
  http:
    port: 9090
menu:
  path: ./menu.yaml
policies:
  path: ./policies
sqlite:
  path: ./test.db
auth:
  mode: token
  tokens:
    - token: ${NAVGATE_TEST_TOKEN}
      actor: alice
disclosure:
  open_delay: 120ms
  close_delay: 300ms
  session_ttl: 10m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Menu.Path != "./menu.yaml" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Auth.TokenMap()["from-env"] != "alice" {
		t.Errorf("env expansion failed: %+v", cfg.Auth.Tokens)
	}
	if cfg.Disclosure.OpenDelay != 120*time.Millisecond || cfg.Disclosure.SessionTTL != 10*time.Minute {
		t.Errorf("disclosure = %+v", cfg.Disclosure)
	}
}
