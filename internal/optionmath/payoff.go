package optionmath

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInvalidSpreadGeometry is returned when spread inputs violate the
// invariants in spec §4.1 (non-finite, width<=0, credit>=width, credit<=0).
var ErrInvalidSpreadGeometry = errors.New("invalid spread geometry")

// VerticalSide mirrors types.SpreadSide's four values without importing
// pkg/types, keeping this package free of a dependency on the contracts
// package (it is pure math, consumed by candidates/ranker/decision).
type VerticalSide string

const (
	SidePutCredit  VerticalSide = "PUT_CREDIT"
	SideCallCredit VerticalSide = "CALL_CREDIT"
	SidePutDebit   VerticalSide = "PUT_DEBIT"
	SideCallDebit  VerticalSide = "CALL_DEBIT"
)

// PayoffResult is the output of compute_vertical_payoff / compute_iron_payoff.
type PayoffResult struct {
	MaxProfit    decimal.Decimal
	MaxLoss      decimal.Decimal
	RoR          *float64 // nil when max_loss == 0
	Breakeven    decimal.Decimal
	BreakevenLow  decimal.Decimal // iron condor only
	BreakevenHigh decimal.Decimal // iron condor only
	CreditPct    float64
	Width        decimal.Decimal
}

// ComputeVerticalPayoff implements spec §4.1's compute_vertical_payoff.
func ComputeVerticalPayoff(side VerticalSide, short, long, credit decimal.Decimal, contracts int, multiplier decimal.Decimal) (PayoffResult, error) {
	if multiplier.IsZero() {
		multiplier = decimal.NewFromInt(100)
	}
	if contracts <= 0 {
		contracts = 1
	}

	width := short.Sub(long).Abs()

	if !isFinite(short) || !isFinite(long) || !isFinite(credit) {
		return PayoffResult{}, ErrInvalidSpreadGeometry
	}
	if width.LessThanOrEqual(decimal.Zero) {
		return PayoffResult{}, ErrInvalidSpreadGeometry
	}
	if credit.GreaterThanOrEqual(width) {
		return PayoffResult{}, ErrInvalidSpreadGeometry
	}
	if credit.LessThanOrEqual(decimal.Zero) {
		return PayoffResult{}, ErrInvalidSpreadGeometry
	}

	contractsD := decimal.NewFromInt(int64(contracts))

	var maxProfit, maxLoss, breakeven decimal.Decimal
	switch side {
	case SidePutCredit:
		maxProfit = credit.Mul(multiplier).Mul(contractsD)
		maxLoss = width.Sub(credit).Mul(multiplier).Mul(contractsD)
		breakeven = short.Sub(credit)
	case SideCallCredit:
		maxProfit = credit.Mul(multiplier).Mul(contractsD)
		maxLoss = width.Sub(credit).Mul(multiplier).Mul(contractsD)
		breakeven = short.Add(credit)
	case SidePutDebit:
		maxProfit = width.Sub(credit).Mul(multiplier).Mul(contractsD)
		maxLoss = credit.Mul(multiplier).Mul(contractsD)
		breakeven = short.Sub(credit)
	case SideCallDebit:
		maxProfit = width.Sub(credit).Mul(multiplier).Mul(contractsD)
		maxLoss = credit.Mul(multiplier).Mul(contractsD)
		breakeven = short.Add(credit)
	default:
		return PayoffResult{}, ErrInvalidSpreadGeometry
	}

	var ror *float64
	if !maxLoss.IsZero() {
		r, _ := maxProfit.Div(maxLoss).Float64()
		ror = &r
	}

	creditPct, _ := credit.Div(width).Float64()

	return PayoffResult{
		MaxProfit: maxProfit,
		MaxLoss:   maxLoss,
		RoR:       ror,
		Breakeven: breakeven,
		CreditPct: creditPct,
		Width:     width,
	}, nil
}

// ComputeIronPayoff implements spec §4.1's compute_iron_payoff.
func ComputeIronPayoff(shortPut, shortCall, width, credit decimal.Decimal, contracts int, multiplier decimal.Decimal) (PayoffResult, error) {
	if multiplier.IsZero() {
		multiplier = decimal.NewFromInt(100)
	}
	if contracts <= 0 {
		contracts = 1
	}
	if shortPut.GreaterThanOrEqual(shortCall) {
		return PayoffResult{}, ErrInvalidSpreadGeometry
	}
	if !isFinite(shortPut) || !isFinite(shortCall) || !isFinite(width) || !isFinite(credit) {
		return PayoffResult{}, ErrInvalidSpreadGeometry
	}
	if width.LessThanOrEqual(decimal.Zero) {
		return PayoffResult{}, ErrInvalidSpreadGeometry
	}
	if credit.GreaterThanOrEqual(width) || credit.LessThanOrEqual(decimal.Zero) {
		return PayoffResult{}, ErrInvalidSpreadGeometry
	}

	contractsD := decimal.NewFromInt(int64(contracts))
	maxProfit := credit.Mul(multiplier).Mul(contractsD)
	maxLoss := width.Sub(credit).Mul(multiplier).Mul(contractsD)

	var ror *float64
	if !maxLoss.IsZero() {
		r, _ := maxProfit.Div(maxLoss).Float64()
		ror = &r
	}
	creditPct, _ := credit.Div(width).Float64()

	return PayoffResult{
		MaxProfit:     maxProfit,
		MaxLoss:       maxLoss,
		RoR:           ror,
		BreakevenLow:  shortPut.Sub(credit),
		BreakevenHigh: shortCall.Add(credit),
		CreditPct:     creditPct,
		Width:         width,
	}, nil
}

// ComputeMaxProfit mirrors spec §8 property #2's compute_max_profit, exposed
// standalone for trade-memory's execution invariants (spec §3).
func ComputeMaxProfit(filledCredit decimal.Decimal, qty int) decimal.Decimal {
	return filledCredit.Mul(decimal.NewFromInt(100)).Mul(decimal.NewFromInt(int64(qty)))
}

// ComputeMaxLoss mirrors spec §3's max_loss = max(0,(width-credit)*100*qty).
func ComputeMaxLoss(width, filledCredit decimal.Decimal, qty int) decimal.Decimal {
	loss := width.Sub(filledCredit).Mul(decimal.NewFromInt(100)).Mul(decimal.NewFromInt(int64(qty)))
	if loss.IsNegative() {
		return decimal.Zero
	}
	return loss
}

// Spread is the minimal geometry needed for expiration payoff evaluation.
type Spread struct {
	Side   VerticalSide
	Short  decimal.Decimal
	Long   decimal.Decimal
	Credit decimal.Decimal
}

// ExpirationPnL implements spec §4.1's expiration_pnl: a piecewise-linear
// value of the spread at expiration clamped by width, for one contract at
// multiplier 100.
func ExpirationPnL(s Spread, underlying decimal.Decimal) decimal.Decimal {
	width := s.Short.Sub(s.Long).Abs()
	mult := decimal.NewFromInt(100)

	isCredit := s.Side == SidePutCredit || s.Side == SideCallCredit
	isPut := s.Side == SidePutCredit || s.Side == SidePutDebit

	var intrinsicShort decimal.Decimal
	if isPut {
		intrinsicShort = decimal.Max(decimal.Zero, s.Short.Sub(underlying))
	} else {
		intrinsicShort = decimal.Max(decimal.Zero, underlying.Sub(s.Short))
	}
	clamped := decimal.Min(intrinsicShort, width)

	if isCredit {
		// profit = credit - (value lost to being short ITM), floored at -maxLoss
		pnl := s.Credit.Sub(clamped)
		return pnl.Mul(mult)
	}
	// debit: profit = (width recovered) - credit paid
	pnl := clamped.Sub(s.Credit)
	return pnl.Mul(mult)
}

// PayoffPoint is one sampled (x,y) pair of the expiration payoff curve.
type PayoffPoint struct {
	X decimal.Decimal
	Y decimal.Decimal
}

// BuildExpirationPayoffCurve implements spec §4.1's
// build_expiration_payoff_curve: 120 samples over [spot*(1-pct), spot*(1+pct)].
func BuildExpirationPayoffCurve(s Spread, spot decimal.Decimal, rangePct float64, points int) []PayoffPoint {
	if points <= 0 {
		points = 120
	}
	pct := clamp(rangePct, 0.02, 0.5)
	if rangePct == 0 {
		pct = 0.12
	}

	spotF, _ := spot.Float64()
	lo := spotF * (1 - pct)
	hi := spotF * (1 + pct)
	step := (hi - lo) / float64(points-1)

	out := make([]PayoffPoint, 0, points)
	for i := 0; i < points; i++ {
		x := lo + step*float64(i)
		xd := decimal.NewFromFloat(x)
		out = append(out, PayoffPoint{X: xd, Y: ExpirationPnL(s, xd)})
	}
	return out
}

func isFinite(d decimal.Decimal) bool {
	f, _ := d.Float64()
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
