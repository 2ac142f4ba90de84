package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("CI", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.GeminiModels) != 4 || cfg.GeminiModels[0] != "gemini-2.0-flash" {
		t.Fatalf("unexpected models %v", cfg.GeminiModels)
	}
	if cfg.AIBaseDelay != 2*time.Second || cfg.AIDelayStep != 2*time.Second {
		t.Fatalf("unexpected ai delays %v/%v", cfg.AIBaseDelay, cfg.AIDelayStep)
	}
	if cfg.RenderTimeout != 45*time.Second {
		t.Fatalf("unexpected render timeout %v", cfg.RenderTimeout)
	}
	if len(cfg.TargetSites) != 7 {
		t.Fatalf("expected 7 default sites, got %v", cfg.TargetSites)
	}
	if cfg.MaxCandidatesPerPage != 5 || cfg.DiscoveryMode != DiscoveryLinks {
		t.Fatalf("unexpected harvesting defaults %+v", cfg)
	}
	if cfg.CI {
		t.Fatalf("CI should default to false")
	}
}

func TestLoadRequiresCredential(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "  ")

	_, err := Load()
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("CI", "true")
	t.Setenv("TARGET_SITES", "blocket.se, finn.no ,")
	t.Setenv("DISCOVERY_MODE", "AI")
	t.Setenv("FETCH_WORKERS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.CI {
		t.Fatalf("expected CI from env")
	}
	if len(cfg.TargetSites) != 2 || cfg.TargetSites[1] != "finn.no" {
		t.Fatalf("unexpected sites %v", cfg.TargetSites)
	}
	if cfg.DiscoveryMode != DiscoveryAI {
		t.Fatalf("discovery mode = %q", cfg.DiscoveryMode)
	}
	if cfg.FetchWorkers != 1 {
		t.Fatalf("fetch workers should clamp to 1, got %d", cfg.FetchWorkers)
	}
}

func TestLoadRejectsUnknownDiscoveryMode(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("DISCOVERY_MODE", "psychic")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown discovery mode")
	}
}

func TestRedactedHidesKey(t *testing.T) {
	cfg := Config{GeminiAPIKey: "secret"}
	if cfg.Redacted().GeminiAPIKey == "secret" {
		t.Fatalf("key not redacted")
	}
	if cfg.GeminiAPIKey != "secret" {
		t.Fatalf("Redacted must not mutate the receiver")
	}
}
