package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PabloGalante/guardian-agent/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GUARDIAN_CONFIG", "PORT", "GUARDIAN_ADDR", "GUARDIAN_LLM_PROVIDER",
		"GUARDIAN_LLM_API_KEY", "GEMINI_API_KEY", "GUARDIAN_LLM_MODEL",
		"GUARDIAN_STORAGE_BACKEND", "GUARDIAN_LLM_TIMEOUT_SECONDS",
		"GUARDIAN_SESSION_MAX_AGE_HOURS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != config.ProviderMock {
		t.Fatalf("expected mock provider, got %s", cfg.LLM.Provider)
	}
	if cfg.LLMTimeout() != 15*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.LLMTimeout())
	}
	if cfg.Storage.Backend != "memory" {
		t.Fatalf("unexpected backend %s", cfg.Storage.Backend)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guardian.toml")
	contents := `
[server]
addr = ":9000"

[llm]
provider = "Gemini"
api_key = "from-file"
timeout_seconds = 5

[sessions]
max_age_hours = 2
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	clearEnv(t)
	t.Setenv("GUARDIAN_LLM_MODEL", "gemini-test")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Fatalf("expected addr from file, got %s", cfg.Server.Addr)
	}
	if cfg.LLM.Provider != config.ProviderGemini || cfg.LLM.APIKey != "from-file" {
		t.Fatalf("unexpected llm config %+v", cfg.LLM)
	}
	if cfg.LLM.Model != "gemini-test" {
		t.Fatalf("expected env model override, got %s", cfg.LLM.Model)
	}
	if cfg.SessionMaxAge() != 2*time.Hour {
		t.Fatalf("unexpected max age %s", cfg.SessionMaxAge())
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 1\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "carrier-pigeon"
	cfg.Storage.Backend = "firestore"
	cfg.Sessions.MaxAgeHours = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"llm.provider", "storage.gcp_project", "sessions.max_age_hours"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}
