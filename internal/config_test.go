package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/folio/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.Library.BooksPath(); got != filepath.Join("library", "Books") {
		t.Errorf("books path = %q", got)
	}
	if got := cfg.Replica.CentralProgressPath(); got != filepath.Join("library", "Progress") {
		t.Errorf("central progress path = %q", got)
	}
}

func TestReplicaConfig_CentralRequiredWhenEnabled(t *testing.T) {
	cfg := ReplicaConfig{LocalRoot: "/data", Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled replication without central root should fail")
	}
	cfg.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled replication needs no central root: %v", err)
	}
}

func TestLibraryConfig_ScanWorkersBounds(t *testing.T) {
	cfg := NewDefaultConfig().Library
	cfg.ScanWorkers = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero scan workers should fail")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestConfigFromYAML(t *testing.T) {
	t.Setenv("FOLIO_ICLOUD", "/Users/me/iCloud/Folio")
	file := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  log_level: debug
  http:
    port: 9191
library:
  root: ${FOLIO_ICLOUD}
replica:
  central_root: ${FOLIO_ICLOUD}
sync:
  lock_timeout: 250ms
  bump_version_on_tie: true
`
	if err := os.WriteFile(file, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(file, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9191 || cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Library.Root != "/Users/me/iCloud/Folio" || cfg.Library.BooksDir != "Books" {
		t.Errorf("library = %+v", cfg.Library)
	}
	if cfg.Sync.LockTimeout != 250*time.Millisecond || !cfg.Sync.BumpVersionOnTie {
		t.Errorf("sync = %+v", cfg.Sync)
	}
}
