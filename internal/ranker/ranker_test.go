package ranker_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spxdesk/spread-engine/internal/ranker"
	"github.com/spxdesk/spread-engine/pkg/types"
)

func cand(id string, delta, premium, gamma float64) types.CandidateCard {
	return types.CandidateCard{
		CandidateID:     id,
		DTE:             7,
		Width:           decimal.NewFromFloat(5),
		AdjustedPremium: decimal.NewFromFloat(premium),
		Legs: []types.OptionLeg{
			{Action: types.ActionSell, Kind: types.KindPut, Strike: decimal.NewFromFloat(100), Delta: delta, Gamma: gamma},
		},
	}
}

func TestRank_DeterministicOrdering(t *testing.T) {
	candidates := []types.CandidateCard{
		cand("a", -0.09, 0.8, 0.06),
		cand("b", -0.08, 0.9, 0.08),
		cand("c", -0.07, 1.0, 0.09),
	}

	ranked := ranker.Rank(candidates, true)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked, got %d", len(ranked))
	}
	want := []string{"a", "b", "c"}
	for i, r := range ranked {
		if r.CandidateID != want[i] {
			t.Errorf("rank %d = %s, want %s", i+1, r.CandidateID, want[i])
		}
		if r.Rank != i+1 {
			t.Errorf("rank index = %d, want %d", r.Rank, i+1)
		}
	}
}

func TestRank_TieBreaksOnCandidateID(t *testing.T) {
	candidates := []types.CandidateCard{
		cand("z", -0.07, 1.0, 0.05),
		cand("a", -0.07, 1.0, 0.05),
	}
	ranked := ranker.Rank(candidates, true)
	if ranked[0].CandidateID != "a" || ranked[1].CandidateID != "z" {
		t.Fatalf("expected lexicographic tie-break, got %v", ranked)
	}
}
