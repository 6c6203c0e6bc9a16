// Package ranker implements the deterministic candidate ordering from
// spec §4.6.
package ranker

import (
	"sort"

	"github.com/spxdesk/spread-engine/pkg/types"
)

var deltaBand = map[int][2]float64{
	45: {0.18, 0.28},
	30: {0.16, 0.26},
	14: {0.12, 0.20},
	7:  {0.06, 0.12},
	2:  {0.03, 0.07},
}

// Keyed is a candidate plus its computed ranking key, exported so the
// decision pipeline can record the sort keys in its debug trace.
type Keyed struct {
	CandidateID     string
	DeltaFit        float64
	CreditPerWidth  float64
	GammaPenalty    float64
}

// shortLeg returns the SELL leg of a spread (vertical spreads have exactly
// one). Falls back to the first leg if none is marked SELL.
func shortLeg(legs []types.OptionLeg) types.OptionLeg {
	for _, l := range legs {
		if l.Action == types.ActionSell {
			return l
		}
	}
	if len(legs) > 0 {
		return legs[0]
	}
	return types.OptionLeg{}
}

// Rank implements spec §4.6: computes each candidate's key, sorts
// ascending delta_fit, descending credit_per_width, ascending gamma_penalty,
// ascending candidate_id, and returns 1-based ranks.
func Rank(candidates []types.CandidateCard, applyGammaPenalty bool) []types.RankedCandidate {
	keyed := make([]Keyed, 0, len(candidates))
	for _, c := range candidates {
		short := shortLeg(c.Legs)

		band, ok := deltaBand[c.DTE]
		mid := 0.0
		if ok {
			mid = (band[0] + band[1]) / 2
		}
		deltaFit := absF(absF(short.Delta) - mid)

		widthF, _ := c.Width.Float64()
		premiumF, _ := c.AdjustedPremium.Float64()
		creditPerWidth := 0.0
		if widthF != 0 {
			creditPerWidth = premiumF / widthF
		}

		gammaPenalty := absF(short.Gamma)
		if applyGammaPenalty && c.DTE > 14 {
			gammaPenalty *= 0.5
		}
		if !applyGammaPenalty {
			gammaPenalty = 0
		}

		keyed = append(keyed, Keyed{
			CandidateID:    c.CandidateID,
			DeltaFit:       deltaFit,
			CreditPerWidth: creditPerWidth,
			GammaPenalty:   gammaPenalty,
		})
	}

	sort.SliceStable(keyed, func(i, j int) bool {
		a, b := keyed[i], keyed[j]
		if a.DeltaFit != b.DeltaFit {
			return a.DeltaFit < b.DeltaFit
		}
		if a.CreditPerWidth != b.CreditPerWidth {
			return a.CreditPerWidth > b.CreditPerWidth
		}
		if a.GammaPenalty != b.GammaPenalty {
			return a.GammaPenalty < b.GammaPenalty
		}
		return a.CandidateID < b.CandidateID
	})

	out := make([]types.RankedCandidate, 0, len(keyed))
	for i, k := range keyed {
		out = append(out, types.RankedCandidate{CandidateID: k.CandidateID, Rank: i + 1})
	}
	return out
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
