// Package decision implements the fixed eight-stage orchestrator from
// spec §4.7: preflight, volatility regime, DTE bucket resolution, regime
// classification, candidate generation, soft warnings, ranking, and alert
// policy, producing an immutable DecisionOutput per tick.
package decision

import (
	"time"

	"go.uber.org/zap"

	"github.com/spxdesk/spread-engine/internal/candidates"
	"github.com/spxdesk/spread-engine/internal/datacontract"
	"github.com/spxdesk/spread-engine/internal/ranker"
	"github.com/spxdesk/spread-engine/internal/session"
	"github.com/spxdesk/spread-engine/internal/volatility"
	"github.com/spxdesk/spread-engine/pkg/types"
	"github.com/spxdesk/spread-engine/pkg/utils"
)

// Pipeline evaluates one Snapshot per tick into a DecisionOutput.
type Pipeline struct {
	logger *zap.Logger
	cfg    types.EngineConfig
	filter *candidates.Filter
}

// New builds a Pipeline bound to the given engine configuration.
func New(logger *zap.Logger, cfg types.EngineConfig) *Pipeline {
	return &Pipeline{
		logger: logger,
		cfg:    cfg,
		filter: candidates.NewFilter(logger, cfg.Feature0DTE, cfg.ProbMaxGammaPenalty, cfg.ProbGateMinPoP, cfg.ProbGateMinRoR, cfg.ProbGateMinCreditPct),
	}
}

// SimulationMode reports whether the pipeline is bound to a simulation-mode
// configuration, for callers (e.g. the API server) that need it to resolve
// data mode before calling Evaluate.
func (p *Pipeline) SimulationMode() bool {
	return p.cfg.SimulationMode
}

// ResolveDataMode implements spec §6's data-mode resolution for this
// snapshot: it evaluates the same per-feed freshness contract stage 1 uses
// and folds the engine's real simulation-mode setting and core-feed
// freshness into session.ResolveDataMode, rather than trusting a caller to
// supply them.
func (p *Pipeline) ResolveDataMode(snapshot types.Snapshot) types.DataMode {
	feeds := make(map[datacontract.DataKey]datacontract.Feed, len(snapshot.Feeds))
	for k, fv := range snapshot.Feeds {
		feeds[feedToDataKey(k)] = datacontract.Feed{Value: fv.Value, Timestamp: fv.Timestamp, Source: fv.Source, Error: fv.Error}
	}
	sessionClosed := snapshot.Session == types.SessionClosed
	contract := datacontract.Evaluate(feeds, snapshot.AsOf, sessionClosed, datacontract.Options{AllowClosedEvaluation: p.cfg.SimulationMode})

	return session.ResolveDataMode(snapshot.Source, snapshot.Session, p.cfg.SimulationMode, contract.CoreFeedsFresh())
}

// Evaluate runs the full pipeline over snapshot, given the IV sample
// history supplied by the caller and the resolved data-provenance class
// for this tick. The pipeline does not record this tick's IV sample; the
// classification works from whatever history is passed in.
func (p *Pipeline) Evaluate(snapshot types.Snapshot, ivSamples []volatility.Sample, dataMode types.DataMode) types.DecisionOutput {
	var stages []types.StageResult
	var blocks, warnings []types.Reason

	volCfg := volatility.Config{
		LookbackDays:       p.cfg.VolLookbackDays,
		MinSamples:         p.cfg.VolMinSamples,
		IVFreshMaxAgeMs:    p.cfg.IVFreshMaxAgeMs,
		LowPctl:            p.cfg.VolPctlLow,
		HighPctl:           p.cfg.VolPctlHigh,
		ExtremePctl:        p.cfg.VolPctlExtreme,
		IVvsRVSuppressed:   p.cfg.IVvsRVSuppressed,
		IVvsRVExpanding:    p.cfg.IVvsRVExpanding,
		TermSlopeExpanding: p.cfg.TermSlopeExpanding,
		ShockMovePctEM1SD:  p.cfg.ShockMovePctEM1SD,
		ShockVIXJump:       p.cfg.ShockVIXJump,
		PolicyExtremeBlockAll:    p.cfg.VolPolicyExtremeBlockAll,
		PolicyExpandingAllow2DTE: p.cfg.VolPolicyExpandingAllow2DTE,
	}

	strictLive := dataMode == types.DataModeLive && snapshot.Session == types.SessionOpen &&
		!p.cfg.SimulationMode && p.cfg.StrictLiveBlocks

	// --- Stage 1: preflight ---
	preflightStage, contract, preflightDegraded := p.preflight(snapshot, strictLive)
	stages = append(stages, preflightStage)
	if preflightStage.Status == types.StageBlock {
		blocks = append(blocks, preflightStage.Reasons...)
	} else {
		warnings = append(warnings, preflightStage.Reasons...)
	}

	// --- Stage 2: volatility regime ---
	volStage, volOutput := p.volatility(snapshot, ivSamples, volCfg, strictLive)
	stages = append(stages, volStage)
	if volStage.Status == types.StageBlock {
		blocks = append(blocks, volStage.Reasons...)
	} else {
		warnings = append(warnings, volStage.Reasons...)
	}

	// --- Stage 3: DTE bucket resolver ---
	dteStage, dteBuckets := p.dteBuckets(snapshot, volOutput.Policy)
	stages = append(stages, dteStage)
	if dteStage.Status == types.StageBlock {
		blocks = append(blocks, dteStage.Reasons...)
	} else {
		warnings = append(warnings, dteStage.Reasons...)
	}

	// --- Stage 4: regime classifier ---
	regimeStage := p.regimeCheck(snapshot)
	stages = append(stages, regimeStage)
	if regimeStage.Status == types.StageBlock {
		blocks = append(blocks, regimeStage.Reasons...)
	} else {
		warnings = append(warnings, regimeStage.Reasons...)
	}

	// --- Stage 5: candidate generator ---
	atmIV := 0.0
	if snapshot.AtmIV != nil {
		atmIV = volatility.NormalizeIV(*snapshot.AtmIV)
	}
	kept, candBlocks, candWarnings := p.filter.EvaluateAll(snapshot.Candidates, contract, volatility.Policy{
		AllowedBuckets: volOutput.Policy.AllowedBuckets,
		Disabled:       volOutput.Policy.Disabled,
	}, p.cfg.Mode, snapshot.Spot, atmIV)
	candStage := types.StageResult{StageName: "candidate_generator", Status: types.StagePass, Reasons: candBlocks}
	if len(candBlocks) > 0 {
		candStage.Status = types.StageBlock
	}
	stages = append(stages, candStage)
	blocks = append(blocks, candBlocks...)

	// --- Stage 6: soft warnings (synthetic, always PASS) ---
	stages = append(stages, types.StageResult{StageName: "soft_warnings", Status: types.StagePass, Reasons: candWarnings})
	warnings = append(warnings, candWarnings...)

	// --- Stage 7: deterministic ranker ---
	ranked := ranker.Rank(kept, p.cfg.ProbMaxGammaPenalty)
	rankStage := types.StageResult{StageName: "ranker", Status: types.StagePass}
	if len(ranked) == 0 {
		rankStage.Status = types.StageNoCandidate
		rankStage.Reasons = []types.Reason{{Code: types.CodeNoCreditSpreadCandidate, Message: "no ranked credit-spread candidate remains after filtering"}}
		warnings = append(warnings, rankStage.Reasons...)
	}
	stages = append(stages, rankStage)

	// --- Stage 8: alert policy ---
	alertStage := p.alertPolicy(snapshot)
	stages = append(stages, alertStage)
	warnings = append(warnings, alertStage.Reasons...)

	status := terminalStatus(preflightStage.Status == types.StageBlock, preflightDegraded, blocks, ranked)

	var primary *string
	if len(ranked) > 0 {
		id := ranked[0].CandidateID
		primary = &id
	}

	runID := utils.RunID(snapshot.AsOf.UTC().Format(time.RFC3339), snapshot.Source, string(dataMode), string(snapshot.Session), len(kept))

	return types.DecisionOutput{
		Status:             status,
		DecisionMode:       p.cfg.Mode,
		Blocks:             blocks,
		Warnings:           warnings,
		Vol:                volOutput,
		Candidates:         kept,
		Ranked:             ranked,
		PrimaryCandidateID: primary,
		DTEBuckets:         dteBuckets,
		Debug:              types.DebugInfo{RunID: runID, Stages: stages},
		DataMode:           dataMode,
		Session:            snapshot.Session,
		AsOf:               snapshot.AsOf,
	}
}

func terminalStatus(preflightBlocked, preflightDegraded bool, blocks []types.Reason, ranked []types.RankedCandidate) types.DecisionStatus {
	if preflightBlocked || len(blocks) > 0 {
		return types.StatusBlocked
	}
	if len(ranked) > 0 && !preflightDegraded {
		return types.StatusReady
	}
	if preflightDegraded {
		return types.StatusDegraded
	}
	return types.StatusNoCandidate
}

// feedToDataKey maps a decision-pipeline feed key to its data-contract key.
func feedToDataKey(k types.DataKey) datacontract.DataKey {
	return datacontract.DataKey(k)
}

