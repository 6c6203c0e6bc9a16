package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// IvSample is one recorded ATM-IV observation in the rolling cache.
type IvSample struct {
	TsISO string  `json:"ts_iso"`
	IVAtm float64 `json:"iv_atm"`
}

// TradeCandidateRecord is the persisted, upserted view of a candidate.
type TradeCandidateRecord struct {
	CandidateID        string          `json:"candidate_id"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DTEBucket          int             `json:"dte_bucket"`
	Direction          Direction       `json:"direction"`
	Expiration         time.Time       `json:"expiration"`
	ShortStrike        decimal.Decimal `json:"short_strike"`
	LongStrike         decimal.Decimal `json:"long_strike"`
	Width              decimal.Decimal `json:"width"`
	QuotedCredit       decimal.Decimal `json:"quoted_credit"`
	MidPriceAtSignal   decimal.Decimal `json:"mid_price_at_signal"`
	SpotAtSignal       decimal.Decimal `json:"spot_at_signal"`
	AtmIVAtSignal      float64         `json:"atm_iv_at_signal"`
	Em1SDAtSignal      float64         `json:"em_1sd_at_signal"`
	ZScoreAtSignal     float64         `json:"zscore_at_signal"`
	MMCStretchAtSignal float64         `json:"mmc_stretch_at_signal"`
	IndicatorSnapshot  map[string]any  `json:"indicator_snapshot,omitempty"`
	Status             CandidateStatus `json:"status"`
	UserDecision       *UserDecision   `json:"user_decision,omitempty"`
	Notes              string          `json:"notes,omitempty"`
}

// TradeExecutionRecord is a persisted executed/paper trade.
type TradeExecutionRecord struct {
	TradeID           string          `json:"trade_id"`
	CandidateID       string          `json:"candidate_id"`
	Strategy          string          `json:"strategy"`
	Direction         Direction       `json:"direction"`
	DTEBucket         int             `json:"dte_bucket"`
	Expiration        time.Time       `json:"expiration"`
	ShortStrike       decimal.Decimal `json:"short_strike"`
	LongStrike        decimal.Decimal `json:"long_strike"`
	Width             decimal.Decimal `json:"width"`
	OpenedAt          time.Time       `json:"opened_at"`
	FilledCredit      decimal.Decimal `json:"filled_credit"`
	Quantity          int             `json:"quantity"`
	FeesEstimate      decimal.Decimal `json:"fees_estimate"`
	Status            TradeStatus     `json:"status"`
	ClosePrice        *decimal.Decimal `json:"close_price,omitempty"`
	ClosedAt          *time.Time      `json:"closed_at,omitempty"`
	RealizedPnL       *decimal.Decimal `json:"realized_pnl,omitempty"`
	MaxProfit         decimal.Decimal `json:"max_profit"`
	MaxLoss           decimal.Decimal `json:"max_loss"`
	BreakEven         decimal.Decimal `json:"break_even"`
	CurrentMark       *decimal.Decimal `json:"current_mark,omitempty"`
	UnrealizedPnL     *decimal.Decimal `json:"unrealized_pnl,omitempty"`
	PnLPercentOfRisk  *float64        `json:"pnl_percent_of_risk,omitempty"`
	LastUpdatedAt     time.Time       `json:"last_updated_at"`
}

// TradeEventRecord is one append-only JSONL event-log entry.
type TradeEventRecord struct {
	EventID     string    `json:"event_id"`
	Ts          time.Time `json:"ts"`
	Type        EventType `json:"type"`
	CandidateID string    `json:"candidate_id,omitempty"`
	TradeID     string    `json:"trade_id,omitempty"`
	Strategy    string    `json:"strategy,omitempty"`
	DTEBucket   int       `json:"dte_bucket,omitempty"`
	Payload     any       `json:"payload,omitempty"`
}
