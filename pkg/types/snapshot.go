package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeedValue is a single `(value, timestamp, source, error)` tuple for one
// of the nine tracked data feeds.
type FeedValue struct {
	Value     any       `json:"value,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// OptionLeg is one leg of a spread.
type OptionLeg struct {
	Action      OptionAction     `json:"action"`
	Kind        OptionKind       `json:"kind"`
	Strike      decimal.Decimal  `json:"strike"`
	Delta       float64          `json:"delta"`
	Gamma       float64          `json:"gamma,omitempty"`
	Premium     *decimal.Decimal `json:"premium,omitempty"`
	Qty         int              `json:"qty,omitempty"`
	ImpliedVol  *float64         `json:"implied_vol,omitempty"`
}

// EffectiveQty returns Qty defaulted to 1.
func (l OptionLeg) EffectiveQty() int {
	if l.Qty <= 0 {
		return 1
	}
	return l.Qty
}

// ChecklistItem is one row of a candidate's checklist.
type ChecklistItem struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Status    ChecklistStatus    `json:"status"`
	Required  bool               `json:"required"`
	Detail    string             `json:"detail,omitempty"`
	Reason    string             `json:"reason,omitempty"`
	Requires  []DataKey          `json:"requires,omitempty"`
	DataAges  map[DataKey]*int64 `json:"data_ages,omitempty"` // milliseconds, nil = unknown
	Observed  map[string]any     `json:"observed,omitempty"`
	Thresholds map[string]any    `json:"thresholds,omitempty"`
}

// Checklist is the three-section checklist attached to every candidate.
type Checklist struct {
	Global   []ChecklistItem `json:"global"`
	Regime   []ChecklistItem `json:"regime"`
	Strategy []ChecklistItem `json:"strategy"`
}

// Rows returns every row across all three sections, in section order.
func (c Checklist) Rows() []ChecklistItem {
	out := make([]ChecklistItem, 0, len(c.Global)+len(c.Regime)+len(c.Strategy))
	out = append(out, c.Global...)
	out = append(out, c.Regime...)
	out = append(out, c.Strategy...)
	return out
}

// CandidateCard is a proposed spread as supplied by the upstream generator
// and progressively enriched by the pipeline.
type CandidateCard struct {
	CandidateID     string           `json:"candidate_id"`
	Strategy        string           `json:"strategy"`
	Ready           bool             `json:"ready"`
	Width           decimal.Decimal  `json:"width"`
	Credit          decimal.Decimal  `json:"credit"`
	AdjustedPremium decimal.Decimal  `json:"adjusted_premium"`
	MaxRisk         decimal.Decimal  `json:"max_risk"`
	PoP             *float64         `json:"pop,omitempty"`
	Legs            []OptionLeg      `json:"legs"`
	DTE             int              `json:"dte"`
	BidAskSpread    *decimal.Decimal `json:"bid_ask_spread,omitempty"`
	Checklist       Checklist        `json:"checklist"`
	HardBlockCode   *DecisionCode    `json:"hard_block_code,omitempty"`

	// Metrics attached by CandidateMetrics (§4.1/§4.6).
	MaxProfit   *decimal.Decimal `json:"max_profit,omitempty"`
	MaxLoss     *decimal.Decimal `json:"max_loss,omitempty"`
	RoR         *float64         `json:"ror,omitempty"`
	Breakeven   *decimal.Decimal `json:"breakeven,omitempty"`
	CreditPct   *float64         `json:"credit_pct,omitempty"`
	EV          *float64         `json:"ev,omitempty"`
	PoT         *float64         `json:"pot,omitempty"`
	PoPConfidence Confidence     `json:"pop_confidence,omitempty"`
}

// DTETarget is one row of the multi-DTE target table.
type DTETarget struct {
	TargetDTE      int              `json:"target_dte"`
	SelectedDTE    *int             `json:"selected_dte,omitempty"`
	Expiration     *time.Time       `json:"expiration,omitempty"`
	Recommendation *Recommendation  `json:"recommendation,omitempty"`
}

// Recommendation is the metrics-bearing selection for one DTE bucket.
type Recommendation struct {
	Direction      Direction       `json:"direction"`
	Expiration     time.Time       `json:"expiration"`
	ShortStrike    decimal.Decimal `json:"short_strike"`
	LongStrike     decimal.Decimal `json:"long_strike"`
	Width          decimal.Decimal `json:"width"`
	Credit         decimal.Decimal `json:"credit"`
	MidPrice       decimal.Decimal `json:"mid_price"`
	ZScore         float64         `json:"z_score"`
	MMCStretch     float64         `json:"mmc_stretch"`
	Indicators     map[string]any  `json:"indicators,omitempty"`
}

// Candle is a single intraday OHLC bar.
type Candle struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
}

// Snapshot is the full input to one tick of the decision pipeline.
type Snapshot struct {
	AsOf            time.Time          `json:"as_of"`
	Session         SessionState       `json:"session"`
	Source          string             `json:"source"`
	Spot            decimal.Decimal    `json:"spot"`
	PrevSpot        decimal.Decimal    `json:"prev_spot"`
	AtmIV           *float64           `json:"atm_iv,omitempty"`
	IVTermStructure map[int]float64    `json:"iv_term_structure,omitempty"` // dte -> iv
	RealizedVol     *float64           `json:"realized_vol,omitempty"`
	VIX             *float64           `json:"vix,omitempty"`
	PrevVIX         *float64           `json:"prev_vix,omitempty"`
	Candles         []Candle           `json:"candles,omitempty"`
	Feeds           map[DataKey]FeedValue `json:"feeds,omitempty"`
	RegimeLabel     Regime             `json:"regime_label,omitempty"`
	Candidates      []CandidateCard    `json:"candidates,omitempty"`
	DTETargets      map[int]DTETarget  `json:"dte_targets,omitempty"`

	// Momentum inputs for the MMC gate (§4.4), supplied per upstream indicator feed.
	EMA20         *float64 `json:"ema20,omitempty"`
	PrevEMA20     *float64 `json:"prev_ema20,omitempty"`
	MACDHist      *float64 `json:"macd_hist,omitempty"`
	PrevMACDHist  *float64 `json:"prev_macd_hist,omitempty"`

	// AlertHints carry upstream alert-policy markers (cooldown/day-cap/dedupe state)
	// that the decision pipeline's alert-policy stage classifies into reasons.
	AlertHints AlertHints `json:"alert_hints,omitempty"`
}

// AlertHints is the upstream-supplied alert bookkeeping state.
type AlertHints struct {
	CooldownActive   bool `json:"cooldown_active,omitempty"`
	DayCapReached    bool `json:"day_cap_reached,omitempty"`
	Deduped          bool `json:"deduped,omitempty"`
	ReadyDebounced   bool `json:"ready_debounced,omitempty"`
}

// Reason is a typed, closed-enum decision reason.
type Reason struct {
	Code    DecisionCode   `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// StageResult is the outcome of one pipeline stage.
type StageResult struct {
	StageName string         `json:"stage_name"`
	Status    StageStatus    `json:"status"`
	Reasons   []Reason       `json:"reasons,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// VolFeatures are the raw inputs the volatility classifier computed from.
type VolFeatures struct {
	Percentile  *float64 `json:"percentile,omitempty"`
	IVvsRV      *float64 `json:"iv_vs_rv,omitempty"`
	TermSlope   *float64 `json:"term_slope,omitempty"`
	SampleCount int      `json:"sample_count"`
}

// VolPolicy is the bucket-allow/adjustment overlay for the classified regime.
type VolPolicy struct {
	AllowedBuckets []int                       `json:"allowed_buckets"`
	Adjustments    map[int]BucketAdjustment    `json:"adjustments,omitempty"`
	Disabled       []int                       `json:"disabled,omitempty"`
}

// BucketAdjustment is a per-bucket threshold nudge applied by the vol policy.
type BucketAdjustment struct {
	DeltaBandShift  float64 `json:"delta_band_shift,omitempty"`
	MinSDShift      float64 `json:"min_sd_shift,omitempty"`
	MinCreditPctShift float64 `json:"min_credit_pct_shift,omitempty"`
}

// ShockResult is the outcome of the shock detector.
type ShockResult struct {
	Shock      bool    `json:"shock"`
	Severity   string  `json:"severity,omitempty"` // "warn" | "block"
	MovePctEM  float64 `json:"move_pct_em_1sd"`
	VIXDelta   float64 `json:"vix_delta"`
}

// VolOutput is the full volatility-stage result attached to the decision.
type VolOutput struct {
	Regime     VolRegime   `json:"regime"`
	Confidence Confidence  `json:"confidence"`
	Features   VolFeatures `json:"features"`
	Shock      ShockResult `json:"shock"`
	Policy     VolPolicy   `json:"policy"`
}

// DTEBucketResult is one row of the decision's dte_buckets output.
type DTEBucketResult struct {
	Target     int        `json:"target"`
	Selected   *int       `json:"selected,omitempty"`
	Distance   *int       `json:"distance,omitempty"`
	Expiration *time.Time `json:"expiration,omitempty"`
}

// RankedCandidate is a candidate with its resolved rank.
type RankedCandidate struct {
	CandidateID string `json:"candidate_id"`
	Rank        int    `json:"rank"`
}

// DebugInfo carries the per-stage trace for a decision.
type DebugInfo struct {
	RunID  string        `json:"run_id"`
	Stages []StageResult `json:"stages"`
}

// DecisionOutput is the immutable result of evaluating one Snapshot.
type DecisionOutput struct {
	Status            DecisionStatus    `json:"status"`
	DecisionMode      DecisionMode      `json:"decision_mode"`
	Blocks            []Reason          `json:"blocks"`
	Warnings          []Reason          `json:"warnings"`
	Vol               VolOutput         `json:"vol"`
	Candidates        []CandidateCard   `json:"candidates"`
	Ranked            []RankedCandidate `json:"ranked"`
	PrimaryCandidateID *string          `json:"primary_candidate_id,omitempty"`
	DTEBuckets        []DTEBucketResult `json:"dte_buckets"`
	Debug             DebugInfo         `json:"debug"`
	DataMode          DataMode          `json:"data_mode"`
	Session           SessionState      `json:"session"`
	AsOf              time.Time         `json:"as_of"`
}
