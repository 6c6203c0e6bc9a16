package decision

import (
	"github.com/spxdesk/spread-engine/internal/optionmath"
	"github.com/spxdesk/spread-engine/internal/volatility"
	"github.com/spxdesk/spread-engine/pkg/types"
)

// volatility implements spec §4.7 stage 2: classify the regime, detect a
// shock move, and apply the bucket policy overlay.
func (p *Pipeline) volatility(snapshot types.Snapshot, samples []volatility.Sample, cfg volatility.Config, strictLive bool) (types.StageResult, types.VolOutput) {
	stage := types.StageResult{StageName: "volatility_regime", Status: types.StagePass}

	classified := volatility.ClassifyVolRegime(volatility.ClassifyInput{
		AsOf:          snapshot.AsOf,
		IVAtmRaw:      snapshot.AtmIV,
		RealizedVol:   snapshot.RealizedVol,
		TermStructure: snapshot.IVTermStructure,
		Samples:       samples,
	}, cfg)

	if classified.Regime == volatility.Unknown {
		stage.Reasons = append(stage.Reasons, types.Reason{Code: types.CodeVolRegimeUnknown, Message: "volatility regime could not be classified"})
	}
	if classified.Insufficient {
		stage.Reasons = append(stage.Reasons, types.Reason{Code: types.CodeVolCacheInsufficient, Message: "insufficient IV sample history for percentile classification"})
	}

	var shock types.ShockResult
	if snapshot.VIX != nil && snapshot.PrevVIX != nil {
		em1sd := em1sdFromSnapshot(snapshot)
		prevSpotF, _ := snapshot.PrevSpot.Float64()
		spotF, _ := snapshot.Spot.Float64()
		s := volatility.DetectVolShock(spotF, prevSpotF, em1sd, *snapshot.VIX, *snapshot.PrevVIX, cfg)
		shock = types.ShockResult{Shock: s.Shock, Severity: s.Severity, MovePctEM: s.MovePctEM, VIXDelta: s.VIXDelta}
		if s.Shock {
			code := types.CodeVolShockWarn
			if s.Severity == "block" && strictLive {
				code = types.CodeVolShock
			}
			stage.Reasons = append(stage.Reasons, types.Reason{Code: code, Message: "volatility shock detected", Details: map[string]any{"severity": s.Severity}})
			if code == types.CodeVolShock {
				stage.Status = types.StageBlock
			}
		}
	}

	policy := volatility.ApplyVolPolicy(classified.Regime, cfg)

	out := types.VolOutput{
		Regime:     types.VolRegime(classified.Regime),
		Confidence: types.Confidence(classified.Confidence),
		Features: types.VolFeatures{
			Percentile:  classified.Features.Percentile,
			IVvsRV:      classified.Features.IVvsRV,
			TermSlope:   classified.Features.TermSlope,
			SampleCount: classified.Features.SampleCount,
		},
		Shock: shock,
		Policy: types.VolPolicy{
			AllowedBuckets: policy.AllowedBuckets,
			Disabled:       policy.Disabled,
			Adjustments:    adjustmentsToTypes(policy.Adjustments),
		},
	}

	return stage, out
}

func adjustmentsToTypes(in map[int]volatility.BucketAdjustment) map[int]types.BucketAdjustment {
	if in == nil {
		return nil
	}
	out := make(map[int]types.BucketAdjustment, len(in))
	for k, v := range in {
		out[k] = types.BucketAdjustment{
			DeltaBandShift:    v.DeltaBandShift,
			MinSDShift:        v.MinSDShift,
			MinCreditPctShift: v.MinCreditPctShift,
		}
	}
	return out
}

func em1sdFromSnapshot(snapshot types.Snapshot) float64 {
	if snapshot.AtmIV == nil {
		return 0
	}
	spotF, _ := snapshot.Spot.Float64()
	return optionmath.Em1SD(spotF, *snapshot.AtmIV, 1)
}
