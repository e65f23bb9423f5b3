package internal

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/raido/pkg/config"
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

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
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
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Collab.RelayEnabled() {
		t.Error("relay should be off by default")
	}
	if !cfg.Editor.StrictReferences {
		t.Error("strict references should be on by default")
	}
}

func TestCollabConfig_RedisChannelRequired(t *testing.T) {
	cfg := CollabConfig{RedisAddr: "localhost:6379"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("redis without channel should fail")
	}
	cfg.RedisChannel = "raido"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("redis with channel should pass: %v", err)
	}
	if !cfg.RelayEnabled() {
		t.Error("relay should be enabled")
	}
}

func TestCollabConfig_NegativeThrottle(t *testing.T) {
	cfg := CollabConfig{CursorThrottle: -time.Millisecond}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative throttle should fail")
	}
}

func TestEditorConfig_Bounds(t *testing.T) {
	for _, cfg := range []EditorConfig{
		{HistoryDepth: -1},
		{DragThreshold: -2},
	} {
		if err := cfg.Validate(); err == nil {
			t.Errorf("%+v should fail validation", cfg)
		}
	}
}

func TestConfigFromYAML(t *testing.T) {
	data := []byte(`
app:
  log_level: DEBUG
  http:
    port: 9090
storage:
  path: /data/boards
collab:
  cursor_throttle: 20ms
  redis_addr: redis:6379
editor:
  strict_references: false
`)
	cfg := NewDefaultConfig()
	if err := pkgconfig.Parse(data, cfg); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.HTTP.Address() != ":9090" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Storage.Path != "/data/boards" || cfg.SQLite.Path != "./raido.db" {
		t.Errorf("paths = %q, %q", cfg.Storage.Path, cfg.SQLite.Path)
	}
	if cfg.Collab.CursorThrottle != 20*time.Millisecond || cfg.Collab.RedisChannel != "raido" {
		t.Errorf("collab = %+v", cfg.Collab)
	}
	if cfg.Editor.StrictReferences || cfg.Editor.HistoryDepth != 100 {
		t.Errorf("editor = %+v", cfg.Editor)
	}
}
