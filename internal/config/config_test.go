package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadWith_Defaults(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.json"))

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith failed: %v", err)
	}

	if cfg.Server.Port != 4600 {
		t.Errorf("port = %d, want 4600", cfg.Server.Port)
	}
	if cfg.Gemini.RichModel != "gemini-2.5-flash" {
		t.Errorf("rich model = %q", cfg.Gemini.RichModel)
	}
	if cfg.Gemini.FailureMarker != DefaultFailureMarker {
		t.Errorf("failure marker = %q", cfg.Gemini.FailureMarker)
	}
	if cfg.Knowledge.MaxResults != 5 {
		t.Errorf("max results = %d, want 5", cfg.Knowledge.MaxResults)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
}

func TestLoadWith_MissingCredentialIsNotAnError(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.json"))
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("ASKDESK_GEMINI_API_KEY", "")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith failed: %v", err)
	}
	if cfg.Gemini.APIKey != "" {
		t.Errorf("api key = %q, want empty without any source", cfg.Gemini.APIKey)
	}
}

func TestLoadWith_FileValues(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.json"))
	if err := b.SetInt("server.port", 9999); err != nil {
		t.Fatal(err)
	}
	if err := b.SetString("gemini.failure_marker", "texniki problem var"); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith failed: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want file value", cfg.Server.Port)
	}
	if cfg.Gemini.FailureMarker != "texniki problem var" {
		t.Errorf("marker = %q, want file value", cfg.Gemini.FailureMarker)
	}
}

func TestLoadWith_EnvOverridesFile(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.json"))
	if err := b.SetInt("server.port", 9999); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ASKDESK_SERVER_PORT", "4700")
	t.Setenv("ASKDESK_LOG_LEVEL", "debug")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith failed: %v", err)
	}
	if cfg.Server.Port != 4700 {
		t.Errorf("port = %d, want env value", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want env value", cfg.Log.Level)
	}
}

func TestLoadWith_GeminiKeyFallsBackToPlainEnv(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.json"))

	t.Setenv("GEMINI_API_KEY", "plain-key")
	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith failed: %v", err)
	}
	if cfg.Gemini.APIKey != "plain-key" {
		t.Errorf("api key = %q, want GEMINI_API_KEY fallback", cfg.Gemini.APIKey)
	}

	// The prefixed variable still wins.
	t.Setenv("ASKDESK_GEMINI_API_KEY", "prefixed-key")
	cfg, err = loadWith(b)
	if err != nil {
		t.Fatalf("loadWith failed: %v", err)
	}
	if cfg.Gemini.APIKey != "prefixed-key" {
		t.Errorf("api key = %q, want prefixed env to win", cfg.Gemini.APIKey)
	}
}

func TestLoadWith_InvalidIntInEnvKeepsDefault(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.json"))

	t.Setenv("ASKDESK_KNOWLEDGE_MAX_RESULTS", "lots")
	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith failed: %v", err)
	}
	if cfg.Knowledge.MaxResults != 5 {
		t.Errorf("max results = %d, want default on unparsable env", cfg.Knowledge.MaxResults)
	}
}

func TestSetKey(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.json"))

	if err := setKeyWith(b, "knowledge.max_results", "10"); err != nil {
		t.Fatalf("setKeyWith failed: %v", err)
	}
	v, ok, err := b.GetInt("knowledge.max_results")
	if err != nil || !ok || v != 10 {
		t.Errorf("stored value = %d ok=%v err=%v, want 10", v, ok, err)
	}

	if err := setKeyWith(b, "knowledge.max_results", "many"); err == nil {
		t.Error("non-integer value accepted for integer key")
	}
	if err := setKeyWith(b, "nonsense.key", "x"); err == nil {
		t.Error("unknown key accepted")
	} else if !strings.Contains(err.Error(), "server.port") {
		t.Errorf("unknown-key error = %q, want it to list the valid keys", err)
	}
	if err := setKeyWith(b, "gemini.api_key", "secret"); err == nil {
		t.Error("secret key settable via config file")
	}
}

func TestShowAll_OmitsSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Gemini.APIKey = "should-not-appear"

	for _, k := range ShowAll(cfg) {
		if k.Key == "gemini.api_key" {
			t.Fatal("secret listed by ShowAll")
		}
		if strings.Contains(k.Value, "should-not-appear") {
			t.Fatalf("secret value leaked through %s", k.Key)
		}
	}
}

func TestGetAPIToken_GeneratesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")

	tok1, err := getAPITokenFrom(path)
	if err != nil {
		t.Fatalf("getAPITokenFrom failed: %v", err)
	}
	if len(tok1) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(tok1))
	}

	tok2, err := getAPITokenFrom(path)
	if err != nil {
		t.Fatalf("second getAPITokenFrom failed: %v", err)
	}
	if tok1 != tok2 {
		t.Error("token not stable across calls")
	}
}

func TestGetAPIToken_EnvOverride(t *testing.T) {
	t.Setenv("ASKDESK_API_TOKEN", "from-env")

	tok, err := getAPITokenFrom(filepath.Join(t.TempDir(), "secrets.json"))
	if err != nil {
		t.Fatalf("getAPITokenFrom failed: %v", err)
	}
	if tok != "from-env" {
		t.Errorf("token = %q, want env override", tok)
	}
}
