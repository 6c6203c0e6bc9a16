// Package polling implements the adaptive tick-interval controller from
// spec §4.8: a pure function of open-trade proximity, candidate DTE mix,
// volatility regime, and recent measured-move events, grounded on the same
// monotonic-tightening idiom the teacher's internal/execution/risk_manager.go
// uses for its kill-switch cooldown windows.
package polling

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spxdesk/spread-engine/internal/optionmath"
	"github.com/spxdesk/spread-engine/pkg/types"
	"github.com/spxdesk/spread-engine/pkg/utils"
)

// baselineByBucket is the per-DTE-bucket baseline interval in seconds.
var baselineByBucket = map[int]int{45: 60, 30: 60, 14: 30, 7: 15, 2: 10}

const defaultBaseline = 60

// MMCEvent marks the moment a candidate's measured-move-completion row
// first transitioned from not-pass to pass.
type MMCEvent struct {
	DTEBucket   int
	TriggeredAt time.Time
}

// OpenTradeState is the minimal view of an open position the controller needs.
type OpenTradeState struct {
	DTEBucket   int
	Spot        decimal.Decimal
	ShortStrike decimal.Decimal
	Em1SD       float64 // one-day expected move; derived from AtmIV if zero
	AtmIV       float64
}

// CandidateState is the minimal view of a live candidate the controller needs.
type CandidateState struct {
	DTEBucket int
}

// State is the full input to ComputeInterval.
type State struct {
	OpenTrades []OpenTradeState
	Candidates []CandidateState
	MMCEvents  []MMCEvent
	VolRegime  types.VolRegime
	ShockFlag  bool
	Now        time.Time
}

// ComputeInterval implements spec §4.8's compute_polling_interval, returning
// the next polling interval in seconds, clamped to [5, 120].
func ComputeInterval(state State) int {
	if len(state.OpenTrades) == 0 && len(state.Candidates) == 0 {
		return 120
	}

	interval := minBaseline(state.OpenTrades, state.Candidates)

	for _, trade := range state.OpenTrades {
		if trade.DTEBucket <= 2 {
			interval = minInt(interval, 10)
		} else if trade.DTEBucket <= 7 {
			interval = minInt(interval, 15)
		}

		ratio := dangerRatio(trade)
		switch {
		case ratio <= 0.5:
			interval = minInt(interval, 5)
		case ratio <= 0.75:
			interval = minInt(interval, 10)
		case ratio <= 1.0:
			interval = minInt(interval, 15)
		}
	}

	if hasRecentMMCEvent(state.MMCEvents, state.Now) {
		interval = minInt(interval, 15)
	}

	if state.ShockFlag {
		interval = minInt(interval, 10)
	}
	if state.VolRegime == types.VolExpanding || state.VolRegime == types.VolExtreme {
		interval = minInt(interval, 15)
	}
	if state.VolRegime == types.VolSuppressed && len(state.OpenTrades) == 0 && allCandidatesAtLeast(state.Candidates, 14) {
		interval = maxInt(interval, 45)
	}

	return utils.ClampInt(interval, 5, 120)
}

// MergeMMCEvents implements spec §4.8's merge_mmc_events: appends a fresh
// event for every candidate whose "Measured move near completion" row
// transitions from not-pass to pass since the previous tick, and drops
// events older than 20 minutes.
func MergeMMCEvents(prevEvents []MMCEvent, prevCandidates, currentCandidates []types.CandidateCard, now time.Time) []MMCEvent {
	prevMMCPass := make(map[string]bool, len(prevCandidates))
	for _, c := range prevCandidates {
		prevMMCPass[c.CandidateID] = mmcRowPasses(c)
	}

	merged := make([]MMCEvent, 0, len(prevEvents)+len(currentCandidates))
	for _, ev := range prevEvents {
		if now.Sub(ev.TriggeredAt) < 20*time.Minute {
			merged = append(merged, ev)
		}
	}

	for _, c := range currentCandidates {
		if mmcRowPasses(c) && !prevMMCPass[c.CandidateID] {
			merged = append(merged, MMCEvent{DTEBucket: c.DTE, TriggeredAt: now})
		}
	}

	return merged
}

func mmcRowPasses(c types.CandidateCard) bool {
	for _, row := range c.Checklist.Rows() {
		if utils.SlugMatch(row.Name, "measured move", "mmc") {
			if row.Status == types.StatusPass {
				return true
			}
		}
	}
	return false
}

func dangerRatio(trade OpenTradeState) float64 {
	em1sd := trade.Em1SD
	if em1sd == 0 && trade.AtmIV != 0 {
		spotF, _ := trade.Spot.Float64()
		em1sd = optionmath.Em1SD(spotF, trade.AtmIV, 1)
	}
	if em1sd == 0 {
		return 1.0 // undefined: treat as worst case rather than divide by zero
	}
	spotF, _ := trade.Spot.Float64()
	shortF, _ := trade.ShortStrike.Float64()
	diff := spotF - shortF
	if diff < 0 {
		diff = -diff
	}
	return diff / em1sd
}

func hasRecentMMCEvent(events []MMCEvent, now time.Time) bool {
	for _, ev := range events {
		if now.Sub(ev.TriggeredAt) < 20*time.Minute {
			return true
		}
	}
	return false
}

func allCandidatesAtLeast(candidates []CandidateState, dte int) bool {
	for _, c := range candidates {
		if c.DTEBucket < dte {
			return false
		}
	}
	return true
}

func minBaseline(trades []OpenTradeState, candidates []CandidateState) int {
	best := defaultBaseline
	found := false
	for _, t := range trades {
		if b, ok := baselineByBucket[t.DTEBucket]; ok {
			if !found || b < best {
				best = b
				found = true
			}
		}
	}
	for _, c := range candidates {
		if b, ok := baselineByBucket[c.DTEBucket]; ok {
			if !found || b < best {
				best = b
				found = true
			}
		}
	}
	return best
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
