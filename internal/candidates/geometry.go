// Package candidates implements the candidate filter and checklist
// normalizer from spec §4.5: geometry detection, data-contract annotation,
// hard/soft gating, and vol-policy bucket enforcement.
package candidates

import (
	"github.com/shopspring/decimal"

	"github.com/spxdesk/spread-engine/internal/optionmath"
	"github.com/spxdesk/spread-engine/pkg/types"
)

// Geometry is the detected spread shape for a candidate.
type Geometry struct {
	IsIron    bool
	Side      optionmath.VerticalSide
	Short     decimal.Decimal
	Long      decimal.Decimal
	ShortPut  decimal.Decimal
	LongPut   decimal.Decimal
	ShortCall decimal.Decimal
	LongCall  decimal.Decimal
}

// DetectGeometry inspects a candidate's legs and classifies it as a
// two-leg vertical or a four-leg iron condor/fly, per spec §4.5 step 3.
func DetectGeometry(c types.CandidateCard) (Geometry, bool) {
	switch len(c.Legs) {
	case 2:
		return detectVertical(c.Legs)
	case 4:
		return detectIron(c.Legs)
	default:
		return Geometry{}, false
	}
}

func detectVertical(legs []types.OptionLeg) (Geometry, bool) {
	var short, long *types.OptionLeg
	for i := range legs {
		l := &legs[i]
		switch l.Action {
		case types.ActionSell:
			short = l
		case types.ActionBuy:
			long = l
		}
	}
	if short == nil || long == nil || short.Kind != long.Kind {
		return Geometry{}, false
	}

	isPut := short.Kind == types.KindPut
	// Credit sides sell the nearer-the-money strike; debit sides buy it.
	// Geometry-only detection picks the side family (PUT/CALL) from the
	// short leg and always classifies the vertical as the credit side of
	// that family; debit verticals are not distinguished here.
	var side optionmath.VerticalSide
	if isPut {
		side = optionmath.SidePutCredit
	} else {
		side = optionmath.SideCallCredit
	}

	return Geometry{Side: side, Short: short.Strike, Long: long.Strike}, true
}

func detectIron(legs []types.OptionLeg) (Geometry, bool) {
	var shortPut, longPut, shortCall, longCall *types.OptionLeg
	for i := range legs {
		l := &legs[i]
		switch {
		case l.Kind == types.KindPut && l.Action == types.ActionSell:
			shortPut = l
		case l.Kind == types.KindPut && l.Action == types.ActionBuy:
			longPut = l
		case l.Kind == types.KindCall && l.Action == types.ActionSell:
			shortCall = l
		case l.Kind == types.KindCall && l.Action == types.ActionBuy:
			longCall = l
		}
	}
	if shortPut == nil || longPut == nil || shortCall == nil || longCall == nil {
		return Geometry{}, false
	}
	return Geometry{
		IsIron:    true,
		ShortPut:  shortPut.Strike,
		LongPut:   longPut.Strike,
		ShortCall: shortCall.Strike,
		LongCall:  longCall.Strike,
	}, true
}

// ValidateGeometry calls the §4.1 payoff functions and reports whether the
// geometry is valid, per spec §4.5 step 3.
func ValidateGeometry(g Geometry, credit decimal.Decimal, contracts int) bool {
	if g.IsIron {
		width := g.ShortCall.Sub(g.ShortPut)
		_, err := optionmath.ComputeIronPayoff(g.ShortPut, g.ShortCall, width, credit, contracts, decimal.NewFromInt(100))
		return err == nil
	}
	_, err := optionmath.ComputeVerticalPayoff(g.Side, g.Short, g.Long, credit, contracts, decimal.NewFromInt(100))
	return err == nil
}
