package decision

import (
	"fmt"

	"github.com/spxdesk/spread-engine/internal/candidates"
	"github.com/spxdesk/spread-engine/internal/dteresolver"
	"github.com/spxdesk/spread-engine/internal/optionmath"
	"github.com/spxdesk/spread-engine/internal/volatility"
	"github.com/spxdesk/spread-engine/pkg/types"
)

// dteBuckets implements spec §4.7 stage 3: resolve each fixed target bucket
// against the DTEs the upstream generator actually produced candidates for
// (spec §4.4's resolve_nearest_dte_buckets), run the measured-move-completion
// gate over every bucket carrying a recommendation, and block any bucket the
// volatility policy still allows but for which no expiration resolved.
func (p *Pipeline) dteBuckets(snapshot types.Snapshot, policy types.VolPolicy) (types.StageResult, []types.DTEBucketResult) {
	stage := types.StageResult{StageName: "dte_bucket_resolver", Status: types.StagePass}

	available := availableCandidateDTEs(snapshot.Candidates)
	resolved := dteresolver.ResolveNearestDTEBuckets(available)

	buckets := make([]types.DTEBucketResult, 0, len(resolved))
	for _, r := range resolved {
		row := types.DTEBucketResult{Target: r.Target, Selected: r.Selected, Distance: r.Distance}
		if t, ok := snapshot.DTETargets[r.Target]; ok {
			row.Expiration = t.Expiration
		}
		buckets = append(buckets, row)
	}

	missing := candidates.CheckDTETargets(snapshot.DTETargets, volatility.Policy{AllowedBuckets: policy.AllowedBuckets, Disabled: policy.Disabled})
	if len(missing) > 0 {
		stage.Status = types.StageBlock
		stage.Reasons = missing
	}

	mmcFail := p.mmcGate(snapshot, policy)
	if len(mmcFail) > 0 {
		if p.cfg.Mode == types.ModeStrict {
			stage.Status = types.StageBlock
			stage.Reasons = append(stage.Reasons, mmcFail...)
		} else {
			stage.Reasons = append(stage.Reasons, mmcFail...)
		}
	}

	return stage, buckets
}

// availableCandidateDTEs returns the deduplicated set of DTEs the upstream
// candidate generator actually produced, the only snapshot field that
// represents genuinely tradeable expirations at the engine's disposal.
func availableCandidateDTEs(cands []types.CandidateCard) []int {
	seen := make(map[int]bool, len(cands))
	out := make([]int, 0, len(cands))
	for _, c := range cands {
		if seen[c.DTE] {
			continue
		}
		seen[c.DTE] = true
		out = append(out, c.DTE)
	}
	return out
}

// mmcGate implements spec §4.4's measured-move-completion gate for every DTE
// target carrying an upstream recommendation: a bucket whose measured move is
// already complete is a low-odds entry and gets MMC_GATE_FAIL.
func (p *Pipeline) mmcGate(snapshot types.Snapshot, policy types.VolPolicy) []types.Reason {
	var out []types.Reason

	atmIV := 0.0
	if snapshot.AtmIV != nil {
		atmIV = *snapshot.AtmIV
	}
	spotF, _ := snapshot.Spot.Float64()
	prevSpotF, _ := snapshot.PrevSpot.Float64()

	var ema20, prevEMA20, macdHist, prevMACDHist float64
	if snapshot.EMA20 != nil {
		ema20 = *snapshot.EMA20
	}
	if snapshot.PrevEMA20 != nil {
		prevEMA20 = *snapshot.PrevEMA20
	}
	if snapshot.MACDHist != nil {
		macdHist = *snapshot.MACDHist
	}
	if snapshot.PrevMACDHist != nil {
		prevMACDHist = *snapshot.PrevMACDHist
	}

	volPolicy := volatility.Policy{AllowedBuckets: policy.AllowedBuckets, Disabled: policy.Disabled}
	for _, target := range dteresolver.Targets {
		if !volPolicy.IsAllowed(target) {
			continue
		}

		t, ok := snapshot.DTETargets[target]
		if !ok || t.Recommendation == nil {
			continue
		}
		rec := t.Recommendation

		em1SD := optionmath.Em1SD(spotF, atmIV, target)
		pass := dteresolver.MeasuredMoveCompletionPass(dteresolver.MMCInput{
			Spot:                     spotF,
			PrevSpot:                 prevSpotF,
			EMA20:                    ema20,
			PrevEMA20:                prevEMA20,
			Em1SD:                    em1SD,
			ZScore:                   rec.ZScore,
			MACDHist:                 macdHist,
			MACDHistPrev:             prevMACDHist,
			Direction:                dteresolver.Direction(rec.Direction),
			DTE:                      target,
			EnforceNotStillExtending: true,
		})
		if !pass {
			out = append(out, types.Reason{
				Code:    types.CodeMMCGateFail,
				Message: fmt.Sprintf("measured-move completion gate failed for DTE bucket %d", target),
				Details: map[string]any{"dte": target, "direction": string(rec.Direction)},
			})
		}
	}

	return out
}

// regimeCheck implements spec §4.7 stage 4: an unclassified upstream regime
// label blocks in STRICT mode and only warns in PROBABILISTIC.
func (p *Pipeline) regimeCheck(snapshot types.Snapshot) types.StageResult {
	stage := types.StageResult{StageName: "regime_classifier", Status: types.StagePass}
	if snapshot.RegimeLabel != types.RegimeUnclassified {
		return stage
	}

	reason := types.Reason{Code: types.CodeRegimeUnclassified, Message: fmt.Sprintf("upstream regime label is unclassified (session=%s)", snapshot.Session)}
	if p.cfg.Mode == types.ModeStrict {
		stage.Status = types.StageBlock
	}
	stage.Reasons = append(stage.Reasons, reason)
	return stage
}

// alertPolicy implements spec §4.7 stage 8: classify upstream alert hints
// into closed reason codes. Always PASS — these are advisory, not gating.
func (p *Pipeline) alertPolicy(snapshot types.Snapshot) types.StageResult {
	stage := types.StageResult{StageName: "alert_policy", Status: types.StagePass}

	if p.cfg.SimulationMode && !p.cfg.AllowSimAlerts {
		stage.Reasons = append(stage.Reasons, types.Reason{Code: types.CodeAlertsSuppressedSimulation, Message: "alerts suppressed while running in simulation mode"})
	}

	hints := snapshot.AlertHints
	if hints.CooldownActive {
		stage.Reasons = append(stage.Reasons, types.Reason{Code: types.CodeAlertCooldownActive, Message: "alert cooldown window active"})
	}
	if hints.DayCapReached {
		stage.Reasons = append(stage.Reasons, types.Reason{Code: types.CodeAlertDayCapReached, Message: "daily alert cap reached"})
	}
	if hints.Deduped {
		stage.Reasons = append(stage.Reasons, types.Reason{Code: types.CodeAlertDeduped, Message: "alert deduplicated against a recent equivalent"})
	}
	if hints.ReadyDebounced {
		stage.Reasons = append(stage.Reasons, types.Reason{Code: types.CodeCandidateReadyDebounced, Message: "candidate-ready alert debounced"})
	}

	return stage
}
