package volatility_test

import (
	"testing"
	"time"

	"github.com/spxdesk/spread-engine/internal/volatility"
)

func samplesInRange(t *testing.T, n int, lo, hi float64, asOf time.Time) []volatility.Sample {
	t.Helper()
	out := make([]volatility.Sample, 0, n)
	step := (hi - lo) / float64(n)
	for i := 0; i < n; i++ {
		ts := asOf.AddDate(0, 0, -i-1)
		out = append(out, volatility.Sample{
			TsISO: ts.Format(time.RFC3339),
			IVAtm: lo + step*float64(i),
		})
	}
	return out
}

func TestClassifyVolRegime_ExtremeFromPercentile(t *testing.T) {
	asOf := time.Date(2026, 7, 30, 15, 0, 0, 0, time.UTC)
	samples := samplesInRange(t, 50, 0.12, 0.17, asOf)

	iv := 0.45
	res := volatility.ClassifyVolRegime(volatility.ClassifyInput{
		AsOf:       asOf,
		IVAtmRaw:   &iv,
		IVAtmAgeMs: 0,
		Samples:    samples,
	}, volatility.DefaultConfig())

	if res.Regime != volatility.Extreme {
		t.Fatalf("regime = %s, want VOL_EXTREME", res.Regime)
	}
}

func TestClassifyVolRegime_MissingIVIsUnknown(t *testing.T) {
	res := volatility.ClassifyVolRegime(volatility.ClassifyInput{
		AsOf: time.Now(),
	}, volatility.DefaultConfig())

	if res.Regime != volatility.Unknown {
		t.Fatalf("regime = %s, want UNKNOWN", res.Regime)
	}
	if res.Confidence != volatility.Low {
		t.Fatalf("confidence = %s, want LOW", res.Confidence)
	}
}

func TestComputePercentile_EmptySamples(t *testing.T) {
	pctl, n, insufficient := volatility.ComputePercentile(0.2, nil, 60, time.Now())
	if pctl != nil {
		t.Errorf("expected nil percentile")
	}
	if n != 0 || !insufficient {
		t.Errorf("expected n=0, insufficient=true, got n=%d insufficient=%v", n, insufficient)
	}
}

func TestApplyVolPolicy_ExtremeDisables2And7And14(t *testing.T) {
	policy := volatility.ApplyVolPolicy(volatility.Extreme, volatility.DefaultConfig())
	if policy.IsAllowed(2) || policy.IsAllowed(7) || policy.IsAllowed(14) {
		t.Errorf("expected 2/7/14 disabled under VOL_EXTREME, got allowed=%v", policy.AllowedBuckets)
	}
	if !policy.IsAllowed(30) || !policy.IsAllowed(45) {
		t.Errorf("expected 30/45 allowed under VOL_EXTREME, got allowed=%v", policy.AllowedBuckets)
	}
}

func TestDetectVolShock_MoveThreshold(t *testing.T) {
	res := volatility.DetectVolShock(100, 95, 10, 20, 19, volatility.DefaultConfig())
	if !res.Shock {
		t.Fatalf("expected shock: move_pct=%v", res.MovePctEM)
	}
}
