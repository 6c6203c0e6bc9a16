package dteresolver_test

import (
	"testing"

	"github.com/spxdesk/spread-engine/internal/dteresolver"
)

func TestResolveNearestDTEBuckets_EmptyInputReturnsNilSelections(t *testing.T) {
	results := dteresolver.ResolveNearestDTEBuckets(nil)
	if len(results) != len(dteresolver.Targets) {
		t.Fatalf("expected %d results, got %d", len(dteresolver.Targets), len(results))
	}
	for _, r := range results {
		if r.Selected != nil {
			t.Errorf("target %d: expected nil selection, got %v", r.Target, *r.Selected)
		}
	}
}

func TestResolveNearestDTEBuckets_TieBreaksLower(t *testing.T) {
	// target 7, available {6, 8} are equidistant -> expect 6
	results := dteresolver.ResolveNearestDTEBuckets([]int{6, 8})
	for _, r := range results {
		if r.Target == 7 {
			if r.Selected == nil || *r.Selected != 6 {
				t.Fatalf("expected tie-break to 6, got %v", r.Selected)
			}
		}
	}
}

func TestMeasuredMoveCompletionPass_BullPutRequiresNegativeZ(t *testing.T) {
	pass := dteresolver.MeasuredMoveCompletionPass(dteresolver.MMCInput{
		Spot: 95, EMA20: 100, Em1SD: 2, ZScore: -1.5,
		MACDHist: 0.5, MACDHistPrev: 0.1,
		Direction: dteresolver.BullPut, DTE: 7,
	})
	if !pass {
		t.Fatalf("expected pass")
	}
}

func TestMeasuredMoveCompletionPass_WrongSignFails(t *testing.T) {
	pass := dteresolver.MeasuredMoveCompletionPass(dteresolver.MMCInput{
		Spot: 105, EMA20: 100, Em1SD: 2, ZScore: 1.5,
		MACDHist: 0.5, MACDHistPrev: 0.1,
		Direction: dteresolver.BullPut, DTE: 7,
	})
	if pass {
		t.Fatalf("expected fail for positive z with BULL_PUT")
	}
}
