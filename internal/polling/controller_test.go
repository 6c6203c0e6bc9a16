package polling_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spxdesk/spread-engine/internal/polling"
	"github.com/spxdesk/spread-engine/pkg/types"
)

func TestComputeInterval_QuietModeReturns120(t *testing.T) {
	got := polling.ComputeInterval(polling.State{Now: time.Now()})
	if got != 120 {
		t.Fatalf("expected 120 in quiet mode, got %d", got)
	}
}

func TestComputeInterval_DangerRatioEscalation(t *testing.T) {
	// S6: one 7-DTE open trade spot=5000 short=4998 em_1sd=40; one 45-DTE
	// candidate; MMC event 5 minutes old. Expected interval=5.
	now := time.Date(2026, 7, 30, 14, 0, 0, 0, time.UTC)
	state := polling.State{
		OpenTrades: []polling.OpenTradeState{
			{DTEBucket: 7, Spot: decimal.NewFromInt(5000), ShortStrike: decimal.NewFromInt(4998), Em1SD: 40},
		},
		Candidates: []polling.CandidateState{{DTEBucket: 45}},
		MMCEvents:  []polling.MMCEvent{{DTEBucket: 7, TriggeredAt: now.Add(-5 * time.Minute)}},
		Now:        now,
	}

	got := polling.ComputeInterval(state)
	if got != 5 {
		t.Fatalf("expected interval=5, got %d", got)
	}
}

func TestComputeInterval_ShockFlagCapsAt10(t *testing.T) {
	now := time.Now()
	state := polling.State{
		Candidates: []polling.CandidateState{{DTEBucket: 45}},
		ShockFlag:  true,
		Now:        now,
	}
	got := polling.ComputeInterval(state)
	if got != 10 {
		t.Fatalf("expected shock flag to cap interval at 10, got %d", got)
	}
}

func TestComputeInterval_VolSuppressedRaisesFloorWhenNoTradesAndLongDTE(t *testing.T) {
	now := time.Now()
	state := polling.State{
		Candidates: []polling.CandidateState{{DTEBucket: 30}, {DTEBucket: 45}},
		VolRegime:  types.VolSuppressed,
		Now:        now,
	}
	got := polling.ComputeInterval(state)
	if got != 60 {
		t.Fatalf("expected baseline 60 (no cap applies, floor raise is a no-op here), got %d", got)
	}
}

func TestComputeInterval_ClampsToFloor(t *testing.T) {
	now := time.Now()
	state := polling.State{
		OpenTrades: []polling.OpenTradeState{
			{DTEBucket: 2, Spot: decimal.NewFromInt(100), ShortStrike: decimal.NewFromInt(100), Em1SD: 10},
		},
		Now: now,
	}
	got := polling.ComputeInterval(state)
	if got != 5 {
		t.Fatalf("expected danger_ratio=0 to clamp to the 5s floor, got %d", got)
	}
}

func TestMergeMMCEvents_AppendsOnTransitionAndDropsStale(t *testing.T) {
	now := time.Date(2026, 7, 30, 14, 0, 0, 0, time.UTC)
	stale := []polling.MMCEvent{{DTEBucket: 2, TriggeredAt: now.Add(-30 * time.Minute)}}

	prevCandidates := []types.CandidateCard{{
		CandidateID: "c1",
		DTE:         7,
		Checklist: types.Checklist{Strategy: []types.ChecklistItem{
			{Name: "Measured move near completion", Status: types.StatusFail},
		}},
	}}
	currentCandidates := []types.CandidateCard{{
		CandidateID: "c1",
		DTE:         7,
		Checklist: types.Checklist{Strategy: []types.ChecklistItem{
			{Name: "Measured move near completion", Status: types.StatusPass},
		}},
	}}

	merged := polling.MergeMMCEvents(stale, prevCandidates, currentCandidates, now)
	if len(merged) != 1 {
		t.Fatalf("expected stale event dropped and one fresh event appended, got %d", len(merged))
	}
	if merged[0].DTEBucket != 7 {
		t.Fatalf("expected fresh event for DTE bucket 7, got %d", merged[0].DTEBucket)
	}
}

func TestMergeMMCEvents_NoDuplicateWhenAlreadyPassing(t *testing.T) {
	now := time.Date(2026, 7, 30, 14, 0, 0, 0, time.UTC)

	passing := []types.CandidateCard{{
		CandidateID: "c1",
		DTE:         7,
		Checklist: types.Checklist{Strategy: []types.ChecklistItem{
			{Name: "Measured move near completion", Status: types.StatusPass},
		}},
	}}

	merged := polling.MergeMMCEvents(nil, passing, passing, now)
	if len(merged) != 0 {
		t.Fatalf("expected no new event when the row was already passing last tick, got %d", len(merged))
	}
}
