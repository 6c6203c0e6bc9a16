package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spxdesk/spread-engine/internal/config"
	"github.com/spxdesk/spread-engine/pkg/types"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mode != types.ModeStrict {
		t.Fatalf("expected default mode STRICT, got %s", cfg.Mode)
	}
	if cfg.VolLookbackDays != 60 {
		t.Fatalf("expected default vol_lookback_days=60, got %d", cfg.VolLookbackDays)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "mode: PROBABILISTIC\nsimulation_mode: true\nvol_lookback_days: 90\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mode != types.ModeProbabilistic {
		t.Fatalf("expected PROBABILISTIC, got %s", cfg.Mode)
	}
	if !cfg.SimulationMode {
		t.Fatalf("expected simulation_mode=true")
	}
	if cfg.VolLookbackDays != 90 {
		t.Fatalf("expected vol_lookback_days=90, got %d", cfg.VolLookbackDays)
	}
}

func TestValidate_RejectsUnknownMode(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.Mode = "BOGUS"
	if err := config.Validate(cfg); err == nil {
		t.Fatalf("expected an error for an unrecognized mode")
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	if err := config.Validate(types.DefaultEngineConfig()); err != nil {
		t.Fatalf("unexpected error validating defaults: %v", err)
	}
}
