package candidates

import (
	"github.com/shopspring/decimal"

	"github.com/spxdesk/spread-engine/internal/optionmath"
	"github.com/spxdesk/spread-engine/pkg/types"
)

// enrichMetrics implements spec §4.1/§4.6's CandidateMetrics step: payoff
// (max_profit/max_loss/ror/breakeven/credit_pct), PoP/PoT, expected value,
// and a Black-Scholes greeks fallback for legs the upstream generator left
// unpopulated. geom is the already-detected, already-validated geometry so
// this never re-derives or re-blocks on shape.
func enrichMetrics(c types.CandidateCard, geom Geometry, spot decimal.Decimal, atmIV float64) types.CandidateCard {
	contracts := 1
	multiplier := decimal.NewFromInt(100)

	var payoff optionmath.PayoffResult
	var err error
	if geom.IsIron {
		width := geom.ShortCall.Sub(geom.ShortPut)
		payoff, err = optionmath.ComputeIronPayoff(geom.ShortPut, geom.ShortCall, width, c.AdjustedPremium, contracts, multiplier)
	} else {
		payoff, err = optionmath.ComputeVerticalPayoff(geom.Side, geom.Short, geom.Long, c.AdjustedPremium, contracts, multiplier)
	}
	if err == nil {
		maxProfit, maxLoss, creditPct := payoff.MaxProfit, payoff.MaxLoss, payoff.CreditPct
		c.MaxProfit = &maxProfit
		c.MaxLoss = &maxLoss
		c.RoR = payoff.RoR
		c.CreditPct = &creditPct
		if geom.IsIron {
			be := payoff.BreakevenLow
			c.Breakeven = &be
		} else {
			be := payoff.Breakeven
			c.Breakeven = &be
		}
	}

	spotF, _ := spot.Float64()
	for i := range c.Legs {
		leg := &c.Legs[i]
		if leg.Delta != 0 || leg.Gamma != 0 {
			continue
		}
		iv := atmIV
		if leg.ImpliedVol != nil {
			iv = *leg.ImpliedVol
		}
		strikeF, _ := leg.Strike.Float64()
		if spotF <= 0 || strikeF <= 0 || iv <= 0 || c.DTE <= 0 {
			continue
		}
		greeks := optionmath.BlackScholesGreeks(leg.Kind == types.KindCall, spotF, strikeF, iv, float64(c.DTE), 0.045)
		leg.Delta = greeks.Delta
		leg.Gamma = greeks.Gamma
	}

	if !geom.IsIron && (geom.Side == optionmath.SidePutCredit || geom.Side == optionmath.SideCallCredit) {
		shortF, _ := geom.Short.Float64()
		popRes := optionmath.ComputePoPAndTouch(optionmath.PopAndTouchInput{
			Side:  string(geom.Side),
			Short: shortF,
			Spot:  spotF,
			DTE:   c.DTE,
			IV:    atmIV,
		})
		c.PoP = popRes.PoP
		c.PoT = popRes.PoT
		c.PoPConfidence = types.Confidence(popRes.Confidence)
	}

	// seed_key = candidate_id so repeated ticks on the same candidate agree
	// bit-for-bit, per spec §9.
	var ev float64
	if geom.IsIron {
		ev = optionmath.EstimateEVIron(optionmath.IronSpread{
			ShortPut: geom.ShortPut, LongPut: geom.LongPut, ShortCall: geom.ShortCall, LongCall: geom.LongCall,
			Credit: c.AdjustedPremium,
		}, optionmath.EVInput{Spot: spotF, DTE: c.DTE, IV: atmIV, SeedKey: c.CandidateID})
	} else {
		ev = optionmath.EstimateEVVertical(optionmath.Spread{
			Side: geom.Side, Short: geom.Short, Long: geom.Long, Credit: c.AdjustedPremium,
		}, optionmath.EVInput{Spot: spotF, DTE: c.DTE, IV: atmIV, SeedKey: c.CandidateID})
	}
	c.EV = &ev

	return c
}
