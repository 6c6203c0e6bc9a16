package volatility

import "time"

// Config holds the regime-classifier, shock-detector, and policy-overlay
// tunables from spec §4.2, with environment-overridable defaults.
type Config struct {
	LookbackDays      int
	MinSamples        int
	IVFreshMaxAgeMs   int64
	LowPctl           float64
	HighPctl          float64
	ExtremePctl       float64
	IVvsRVSuppressed  float64
	IVvsRVExpanding   float64
	TermSlopeExpanding float64

	ShockMovePctEM1SD float64
	ShockVIXJump      float64

	PolicyExtremeBlockAll    bool
	PolicyExpandingAllow2DTE bool
}

// DefaultConfig returns the spec §4.2 defaults.
func DefaultConfig() Config {
	return Config{
		LookbackDays:       60,
		MinSamples:         20,
		IVFreshMaxAgeMs:    5000,
		LowPctl:            25,
		HighPctl:           70,
		ExtremePctl:        90,
		IVvsRVSuppressed:   0.8,
		IVvsRVExpanding:    1.6,
		TermSlopeExpanding: 0.03,
		ShockMovePctEM1SD:  0.35,
		ShockVIXJump:       2.0,
	}
}

// Regime is the classified volatility environment.
type Regime string

const (
	Suppressed Regime = "VOL_SUPPRESSED"
	Normal     Regime = "VOL_NORMAL"
	Expanding  Regime = "VOL_EXPANDING"
	Extreme    Regime = "VOL_EXTREME"
	Unknown    Regime = "UNKNOWN"
)

// Confidence grades how much signal backed the classification.
type Confidence string

const (
	High Confidence = "HIGH"
	Med  Confidence = "MED"
	Low  Confidence = "LOW"
)

// Features are the raw inputs the regime decision was based on.
type Features struct {
	Percentile  *float64
	IVvsRV      *float64
	TermSlope   *float64
	SampleCount int
}

// ClassifyInput bundles the per-tick inputs to ClassifyVolRegime.
type ClassifyInput struct {
	AsOf          time.Time
	IVAtmRaw      *float64 // nil = missing
	IVAtmAgeMs    int64
	RealizedVol   *float64 // 5d realized-vol proxy
	TermStructure map[int]float64 // dte -> iv
	Samples       []Sample
}

// ClassifyResult is the outcome of ClassifyVolRegime.
type ClassifyResult struct {
	Regime     Regime
	Confidence Confidence
	Features   Features
	StaleIV    bool
	Insufficient bool
}

// ClassifyVolRegime implements spec §4.2's classify_vol_regime procedure,
// grounded on internal/regime/detector.go's feature-then-decide structure.
func ClassifyVolRegime(in ClassifyInput, cfg Config) ClassifyResult {
	if in.IVAtmRaw == nil {
		return ClassifyResult{Regime: Unknown, Confidence: Low}
	}
	ivAtm := NormalizeIV(*in.IVAtmRaw)

	staleIV := in.IVAtmAgeMs > cfg.IVFreshMaxAgeMs

	pctl, sampleCount, insufficient := ComputePercentile(ivAtm, in.Samples, cfg.LookbackDays, in.AsOf)
	insufficientCache := sampleCount < cfg.MinSamples

	var ivVsRV *float64
	if in.RealizedVol != nil && *in.RealizedVol > 0 {
		v := ivAtm / *in.RealizedVol
		ivVsRV = &v
	}

	var termSlope *float64
	if len(in.TermStructure) >= 2 {
		minDTE, maxDTE := -1, -1
		for dte := range in.TermStructure {
			if minDTE == -1 || dte < minDTE {
				minDTE = dte
			}
			if maxDTE == -1 || dte > maxDTE {
				maxDTE = dte
			}
		}
		if maxDTE > minDTE {
			slope := (in.TermStructure[maxDTE] - in.TermStructure[minDTE]) / float64(maxDTE-minDTE)
			termSlope = &slope
		}
	}

	features := Features{Percentile: pctl, IVvsRV: ivVsRV, TermSlope: termSlope, SampleCount: sampleCount}

	regime := decideRegime(pctl, ivVsRV, termSlope, cfg)

	present := 0
	if pctl != nil {
		present++
	}
	if ivVsRV != nil {
		present++
	}
	if termSlope != nil {
		present++
	}

	confidence := Med
	switch {
	case regime == Unknown || present <= 1:
		confidence = Low
	case present >= 3 && sampleCount >= cfg.MinSamples:
		confidence = High
	}

	return ClassifyResult{
		Regime:       regime,
		Confidence:   confidence,
		Features:     features,
		StaleIV:      staleIV,
		Insufficient: insufficient || insufficientCache,
	}
}

func decideRegime(pctl, ivVsRV, termSlope *float64, cfg Config) Regime {
	if pctl != nil {
		switch {
		case *pctl >= cfg.ExtremePctl:
			return Extreme
		case *pctl >= cfg.HighPctl:
			return Expanding
		case *pctl <= cfg.LowPctl:
			return Suppressed
		default:
			return Normal
		}
	}
	if ivVsRV != nil {
		switch {
		case *ivVsRV >= cfg.IVvsRVExpanding:
			return Expanding
		case *ivVsRV <= cfg.IVvsRVSuppressed:
			return Suppressed
		default:
			return Normal
		}
	}
	if termSlope != nil {
		if *termSlope >= cfg.TermSlopeExpanding {
			return Expanding
		}
		return Normal
	}
	return Unknown
}

// ShockResult is the outcome of DetectVolShock.
type ShockResult struct {
	Shock     bool
	Severity  string // "warn" | "block"
	MovePctEM float64
	VIXDelta  float64
}

// DetectVolShock implements spec §4.2's detect_vol_shock.
func DetectVolShock(spot, prevSpot, em1sd, vix, prevVIX float64, cfg Config) ShockResult {
	var movePct float64
	if em1sd > 0 {
		movePct = absF(spot-prevSpot) / em1sd
	}
	vixDelta := vix - prevVIX

	shockMove := movePct >= cfg.ShockMovePctEM1SD
	shockVIX := vixDelta >= cfg.ShockVIXJump

	shock := shockMove || shockVIX
	severity := ""
	if shock {
		severity = "warn"
		if movePct >= 1.5*cfg.ShockMovePctEM1SD || vixDelta >= 1.5*cfg.ShockVIXJump {
			severity = "block"
		}
	}

	return ShockResult{Shock: shock, Severity: severity, MovePctEM: movePct, VIXDelta: vixDelta}
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
