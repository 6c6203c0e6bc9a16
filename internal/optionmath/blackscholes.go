// Package optionmath provides the closed-form payoff and probability core:
// Black-Scholes-compatible probabilities, vertical/iron-condor payoff math,
// and a deterministic seeded Monte-Carlo expected-value estimator.
package optionmath

import "math"

// normalCDF evaluates the standard normal CDF via the Abramowitz-Stegun
// 5-term polynomial approximation to the error function, with absolute
// error below 1.5e-7 for |x| < 6, per spec §4.1.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + erf(x/math.Sqrt2))
}

// erf is the Abramowitz-Stegun rational approximation (formula 7.1.26).
func erf(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	ax := math.Abs(x)

	t := 1.0 / (1.0 + p*ax)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-ax*ax)

	return sign * y
}

// NormalCDF is the exported form of the spec's normal_cdf operation.
func NormalCDF(x float64) float64 {
	return normalCDF(x)
}

// BSGreeks holds the subset of Black-Scholes greeks the engine needs:
// delta (used for checklist/ranker delta-band fit) and gamma (used for the
// ranker's gamma_penalty when the upstream snapshot omits it).
type BSGreeks struct {
	Delta float64
	Gamma float64
}

// BlackScholesGreeks computes European delta/gamma for a call or put under
// the standard Black-Scholes assumptions with a flat risk-free rate. This
// fills the gap the distilled spec assumes away (spec §4.6 references
// short_leg.gamma without specifying how it is produced when the snapshot
// doesn't carry a greeks feed) — see SPEC_FULL.md §4.1.
func BlackScholesGreeks(isCall bool, spot, strike, iv float64, dteDays float64, r float64) BSGreeks {
	if spot <= 0 || strike <= 0 || iv <= 0 || dteDays <= 0 {
		return BSGreeks{}
	}
	t := dteDays / 365.0
	sigmaSqrtT := iv * math.Sqrt(t)
	if sigmaSqrtT <= 0 {
		return BSGreeks{}
	}

	d1 := (math.Log(spot/strike) + (r+0.5*iv*iv)*t) / sigmaSqrtT

	gamma := phi(d1) / (spot * sigmaSqrtT)

	if isCall {
		return BSGreeks{Delta: normalCDF(d1), Gamma: gamma}
	}
	return BSGreeks{Delta: normalCDF(d1) - 1, Gamma: gamma}
}

// phi is the standard normal density.
func phi(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// PopAndTouchInput is the input to ComputePoPAndTouch.
type PopAndTouchInput struct {
	Side   string // spec SpreadSide string value; see types.SpreadSide
	Short  float64
	Spot   float64
	DTE    int
	IV     float64
}

// PopAndTouchResult is the output of ComputePoPAndTouch.
type PopAndTouchResult struct {
	PoP            *float64
	ProbITMShort   *float64
	PoT            *float64
	Confidence     string // HIGH | MED | LOW
	Warning        string
}

// ComputePoPAndTouch implements spec §4.1's compute_pop_and_touch.
func ComputePoPAndTouch(in PopAndTouchInput) PopAndTouchResult {
	iv := normalizeIV(in.IV)

	if in.DTE <= 0 || iv <= 0 || in.Spot <= 0 || in.Short <= 0 {
		return PopAndTouchResult{Confidence: "LOW", Warning: "dte or iv unavailable"}
	}

	t := float64(in.DTE) / 365.0
	sigmaSqrtT := iv * math.Sqrt(t)
	if sigmaSqrtT <= 0 {
		return PopAndTouchResult{Confidence: "LOW", Warning: "degenerate sigma*sqrt(T)"}
	}

	z := math.Log(in.Short/in.Spot) / sigmaSqrtT

	var pop, probITM float64
	switch in.Side {
	case "PUT_CREDIT":
		pop = 1 - normalCDF(z)
		probITM = normalCDF(z)
	case "CALL_CREDIT":
		pop = normalCDF(z)
		probITM = 1 - normalCDF(z)
	default:
		// For debit spreads PoP/PoT at the short strike are not defined by
		// spec §4.1 (only credit sides have a documented formula); report
		// unavailable rather than guess.
		return PopAndTouchResult{Confidence: "LOW", Warning: "pop undefined for debit side"}
	}

	pot := clamp(2*probITM, 0, 1)

	confidence := "MED"
	if in.DTE >= 7 && in.DTE <= 60 && iv >= 0.05 && iv <= 1.5 {
		confidence = "HIGH"
	}

	return PopAndTouchResult{
		PoP:          &pop,
		ProbITMShort: &probITM,
		PoT:          &pot,
		Confidence:   confidence,
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func normalizeIV(raw float64) float64 {
	if raw > 3 {
		return raw / 100
	}
	return raw
}

// Em1SD computes the one-standard-deviation expected move over dte days.
func Em1SD(spot, ivAtm float64, dte int) float64 {
	iv := normalizeIV(ivAtm)
	return spot * iv * math.Sqrt(float64(dte)/365.0)
}
