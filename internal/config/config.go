// Package config loads the engine's runtime configuration from a YAML file
// with environment-variable overrides, grounded on the viper-based loader
// pattern used elsewhere in the example pack (config.Load/Validate).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/spxdesk/spread-engine/pkg/types"
)

const envPrefix = "SPREAD_ENGINE"

// Load reads types.EngineConfig from a YAML file, defaulted by
// types.DefaultEngineConfig and overridable via SPREAD_ENGINE_* env vars
// (e.g. SPREAD_ENGINE_MODE, SPREAD_ENGINE_SIMULATION_MODE).
func Load(path string) (types.EngineConfig, error) {
	cfg := types.DefaultEngineConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			// No config file on disk: defaults plus env overrides only.
		} else {
			return types.EngineConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return types.EngineConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults seeds viper with types.DefaultEngineConfig's values so that a
// missing or partial YAML file still yields the spec §6 defaults.
func setDefaults(v *viper.Viper, defaults types.EngineConfig) {
	v.SetDefault("simulation_mode", defaults.SimulationMode)
	v.SetDefault("allow_sim_alerts", defaults.AllowSimAlerts)
	v.SetDefault("strict_live_blocks", defaults.StrictLiveBlocks)
	v.SetDefault("feature_0dte", defaults.Feature0DTE)

	v.SetDefault("vol_lookback_days", defaults.VolLookbackDays)
	v.SetDefault("vol_min_samples", defaults.VolMinSamples)
	v.SetDefault("vol_pctl_low", defaults.VolPctlLow)
	v.SetDefault("vol_pctl_high", defaults.VolPctlHigh)
	v.SetDefault("vol_pctl_extreme", defaults.VolPctlExtreme)
	v.SetDefault("iv_fresh_max_age_ms", defaults.IVFreshMaxAgeMs)
	v.SetDefault("iv_vs_rv_suppressed", defaults.IVvsRVSuppressed)
	v.SetDefault("iv_vs_rv_expanding", defaults.IVvsRVExpanding)
	v.SetDefault("term_slope_expanding", defaults.TermSlopeExpanding)

	v.SetDefault("shock_move_pct_em1sd", defaults.ShockMovePctEM1SD)
	v.SetDefault("shock_vix_jump", defaults.ShockVIXJump)

	v.SetDefault("vol_policy_extreme_block_all", defaults.VolPolicyExtremeBlockAll)
	v.SetDefault("vol_policy_expanding_allow_2dte", defaults.VolPolicyExpandingAllow2DTE)

	v.SetDefault("prob_max_gamma_penalty", defaults.ProbMaxGammaPenalty)
	v.SetDefault("prob_gate_min_pop", defaults.ProbGateMinPoP)
	v.SetDefault("prob_gate_min_ror", defaults.ProbGateMinRoR)
	v.SetDefault("prob_gate_min_credit_pct", defaults.ProbGateMinCreditPct)
	v.SetDefault("mode", string(defaults.Mode))

	v.SetDefault("storage.iv_cache_path", defaults.StoragePaths.IVCachePath)
	v.SetDefault("storage.candidates_path", defaults.StoragePaths.CandidatesPath)
	v.SetDefault("storage.executions_path", defaults.StoragePaths.ExecutionsPath)
	v.SetDefault("storage.event_log_path", defaults.StoragePaths.EventLogPath)
	v.SetDefault("storage.provider_health_path", defaults.StoragePaths.ProviderHealthPath)
}

// Validate checks the loaded configuration for internally-consistent values.
func Validate(cfg types.EngineConfig) error {
	if cfg.Mode != types.ModeStrict && cfg.Mode != types.ModeProbabilistic {
		return fmt.Errorf("mode must be STRICT or PROBABILISTIC, got %q", cfg.Mode)
	}
	if cfg.VolLookbackDays < 10 {
		return fmt.Errorf("vol_lookback_days must be >= 10")
	}
	if cfg.VolMinSamples < 5 {
		return fmt.Errorf("vol_min_samples must be >= 5")
	}
	if cfg.StoragePaths.CandidatesPath == "" || cfg.StoragePaths.ExecutionsPath == "" || cfg.StoragePaths.EventLogPath == "" {
		return fmt.Errorf("storage paths must all be set")
	}
	return nil
}
