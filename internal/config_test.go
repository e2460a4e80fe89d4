package internal

import (
	"strings"
	"testing"
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

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.App.HTTP.Enabled {
		t.Error("loopback API should be off by default")
	}
	if cfg.App.HTTP.Address() != "127.0.0.1:8765" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
	if len(cfg.Instance.OriginPrefixes) != 1 || cfg.Instance.OriginPrefixes[0] != "chrome-extension://" {
		t.Errorf("origin prefixes = %v", cfg.Instance.OriginPrefixes)
	}
}

func TestHTTPConfig_OnlyValidatedWhenEnabled(t *testing.T) {
	cfg := HTTPConfig{Enabled: false, Port: 0}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled server should not be validated: %v", err)
	}
	cfg.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("enabled server without host/port should fail")
	}
}

func TestStorageConfig_Validate(t *testing.T) {
	cfg := StorageConfig{FolderName: "Clipper", RecentLimit: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("zero recent limit should fail")
	}
	cfg = StorageConfig{FolderName: "", RecentLimit: 10}
	if err := cfg.Validate(); err == nil {
		t.Error("empty folder name should fail")
	}
}

func TestInstanceConfig_RequiresPrefixes(t *testing.T) {
	cfg := InstanceConfig{StateDir: "/tmp/x"}
	if err := cfg.Validate(); err == nil {
		t.Error("missing origin prefixes should fail")
	}
	cfg.OriginPrefixes = []string{""}
	if err := cfg.Validate(); err == nil {
		t.Error("blank origin prefix should fail")
	}
}
