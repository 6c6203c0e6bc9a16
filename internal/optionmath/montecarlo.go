package optionmath

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/spxdesk/spread-engine/pkg/utils"
)

// splitMix64 is a minimal deterministic 64-bit PRNG. Seeded with
// utils.Hash64(seedKey) (SHA-1 of the seed key, per spec §9), it gives two
// independent implementations bit-identical path samples for the same
// seed_key.
type splitMix64 struct {
	state uint64
}

func newSplitMix64(seed uint64) *splitMix64 {
	return &splitMix64{state: seed}
}

func (s *splitMix64) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// float64 returns a uniform value in [0, 1).
func (s *splitMix64) float64() float64 {
	return float64(s.next()>>11) / float64(1<<53)
}

// standardNormal draws one N(0,1) sample via the Box-Muller transform,
// using two draws from the underlying uniform stream.
func (s *splitMix64) standardNormal() float64 {
	u1 := s.float64()
	if u1 < 1e-300 {
		u1 = 1e-300
	}
	u2 := s.float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// EVInput is the shared input to EstimateEVVertical / EstimateEVIron.
type EVInput struct {
	Spot        float64
	DTE         int
	IV          float64
	RiskFreeR   float64 // defaults to 0.045 if zero
	NumPaths    int     // defaults to 10000 if zero
	SeedKey     string
}

// EstimateEVVertical implements spec §4.1's estimate_ev_vertical: a
// deterministic Monte-Carlo expectation of ExpirationPnL over terminal
// prices sampled from LogNormal(ln(spot)+(r-sigma^2/2)*T, sigma*sqrt(T)).
func EstimateEVVertical(s Spread, in EVInput) float64 {
	return estimateEV(in, func(terminal decimal.Decimal) float64 {
		v, _ := ExpirationPnL(s, terminal).Float64()
		return v
	})
}

// IronSpread is the geometry needed for the iron-condor EV estimator.
type IronSpread struct {
	ShortPut  decimal.Decimal
	LongPut   decimal.Decimal
	ShortCall decimal.Decimal
	LongCall  decimal.Decimal
	Credit    decimal.Decimal
}

// EstimateEVIron implements spec §4.1's estimate_ev_iron analogously to
// EstimateEVVertical, combining the put-side and call-side vertical legs.
func EstimateEVIron(s IronSpread, in EVInput) float64 {
	putSpread := Spread{Side: SidePutCredit, Short: s.ShortPut, Long: s.LongPut, Credit: decimal.Zero}
	callSpread := Spread{Side: SideCallCredit, Short: s.ShortCall, Long: s.LongCall, Credit: decimal.Zero}

	return estimateEV(in, func(terminal decimal.Decimal) float64 {
		putPnL, _ := ExpirationPnL(putSpread, terminal).Float64()
		callPnL, _ := ExpirationPnL(callSpread, terminal).Float64()
		creditF, _ := s.Credit.Float64()
		// both legs' intrinsic loss already reflects a zero credit basis above;
		// apply the combined iron credit once at the aggregate level.
		return putPnL + callPnL + creditF*100
	})
}

func estimateEV(in EVInput, payoff func(decimal.Decimal) float64) float64 {
	numPaths := in.NumPaths
	if numPaths <= 0 {
		numPaths = 10000
	}
	r := in.RiskFreeR
	if r == 0 {
		r = 0.045
	}

	iv := normalizeIV(in.IV)
	t := float64(in.DTE) / 365.0
	if t <= 0 || iv <= 0 || in.Spot <= 0 {
		return 0
	}

	mu := math.Log(in.Spot) + (r-0.5*iv*iv)*t
	sigma := iv * math.Sqrt(t)

	rng := newSplitMix64(utils.Hash64(in.SeedKey))

	sum := 0.0
	for i := 0; i < numPaths; i++ {
		z := rng.standardNormal()
		terminal := math.Exp(mu + sigma*z)
		sum += payoff(decimal.NewFromFloat(terminal))
	}
	return sum / float64(numPaths)
}
