package types

// EngineConfig collects every tunable named in spec §6's configuration
// table, plus the storage paths from §6. The per-feed freshness max ages
// are fixed in internal/datacontract and are not part of this struct.
// It is bound from YAML/env by internal/config via viper.
type EngineConfig struct {
	SimulationMode      bool `mapstructure:"simulation_mode"`
	AllowSimAlerts      bool `mapstructure:"allow_sim_alerts"`
	StrictLiveBlocks    bool `mapstructure:"strict_live_blocks"`
	Feature0DTE         bool `mapstructure:"feature_0dte"`

	VolLookbackDays  int     `mapstructure:"vol_lookback_days"`
	VolMinSamples    int     `mapstructure:"vol_min_samples"`
	VolPctlLow       float64 `mapstructure:"vol_pctl_low"`
	VolPctlHigh      float64 `mapstructure:"vol_pctl_high"`
	VolPctlExtreme   float64 `mapstructure:"vol_pctl_extreme"`
	IVFreshMaxAgeMs  int64   `mapstructure:"iv_fresh_max_age_ms"`
	IVvsRVSuppressed float64 `mapstructure:"iv_vs_rv_suppressed"`
	IVvsRVExpanding  float64 `mapstructure:"iv_vs_rv_expanding"`
	TermSlopeExpanding float64 `mapstructure:"term_slope_expanding"`

	ShockMovePctEM1SD float64 `mapstructure:"shock_move_pct_em1sd"`
	ShockVIXJump      float64 `mapstructure:"shock_vix_jump"`

	VolPolicyExtremeBlockAll      bool `mapstructure:"vol_policy_extreme_block_all"`
	VolPolicyExpandingAllow2DTE   bool `mapstructure:"vol_policy_expanding_allow_2dte"`

	ProbMaxGammaPenalty bool `mapstructure:"prob_max_gamma_penalty"`

	ProbGateMinPoP       float64 `mapstructure:"prob_gate_min_pop"`
	ProbGateMinRoR       float64 `mapstructure:"prob_gate_min_ror"`
	ProbGateMinCreditPct float64 `mapstructure:"prob_gate_min_credit_pct"`

	Mode DecisionMode `mapstructure:"mode"`

	StoragePaths StoragePaths `mapstructure:"storage"`
}

// StoragePaths are the on-disk locations for trade memory and the IV cache.
type StoragePaths struct {
	IVCachePath       string `mapstructure:"iv_cache_path"`
	CandidatesPath    string `mapstructure:"candidates_path"`
	ExecutionsPath    string `mapstructure:"executions_path"`
	EventLogPath      string `mapstructure:"event_log_path"`
	ProviderHealthPath string `mapstructure:"provider_health_path"`
}

// DefaultStoragePaths matches spec §6's documented default layout.
func DefaultStoragePaths() StoragePaths {
	return StoragePaths{
		IVCachePath:        "storage/.iv_atm_cache.json",
		CandidatesPath:     "storage/.trade_candidates.json",
		ExecutionsPath:     "storage/.trade_executions.json",
		EventLogPath:       "storage/trade_events.jsonl",
		ProviderHealthPath: "storage/.provider_health_state.json",
	}
}

// DefaultEngineConfig returns the spec §6 default configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SimulationMode:   false,
		AllowSimAlerts:   false,
		StrictLiveBlocks: true,
		Feature0DTE:      false,

		VolLookbackDays:    60,
		VolMinSamples:      20,
		VolPctlLow:         25,
		VolPctlHigh:        70,
		VolPctlExtreme:     90,
		IVFreshMaxAgeMs:    5000,
		IVvsRVSuppressed:   0.8,
		IVvsRVExpanding:    1.6,
		TermSlopeExpanding: 0.03,

		ShockMovePctEM1SD: 0.35,
		ShockVIXJump:      2.0,

		VolPolicyExtremeBlockAll:    false,
		VolPolicyExpandingAllow2DTE: false,

		ProbMaxGammaPenalty: true,

		ProbGateMinPoP:       0.65,
		ProbGateMinRoR:       0.20,
		ProbGateMinCreditPct: 0.15,

		Mode: ModeStrict,

		StoragePaths: DefaultStoragePaths(),
	}
}

// ProviderHealthState is the persisted provider/auth health snapshot.
type ProviderHealthState struct {
	ProviderStatus string `json:"provider_status"` // tastytrade-live | tastytrade-partial | down
	AuthStatus     string `json:"auth_status"`     // ok | refreshing | failed
	LastAuthOkTs   int64  `json:"last_auth_ok_ts"`
}
