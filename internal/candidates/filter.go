package candidates

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spxdesk/spread-engine/internal/datacontract"
	"github.com/spxdesk/spread-engine/internal/dteresolver"
	"github.com/spxdesk/spread-engine/internal/optionmath"
	"github.com/spxdesk/spread-engine/internal/volatility"
	"github.com/spxdesk/spread-engine/pkg/types"
)

// Filter applies spec §4.5's candidate generator/checklist-normalizer rules.
type Filter struct {
	logger            *zap.Logger
	feature0DTE       bool
	applyGammaPenalty bool
	minPoP            float64
	minRoR            float64
	minCreditPct      float64
}

// NewFilter builds a Filter. feature0DTE mirrors EngineConfig.Feature0DTE;
// minPoP/minRoR/minCreditPct are the §7 probabilistic-gate floors.
func NewFilter(logger *zap.Logger, feature0DTE, applyGammaPenalty bool, minPoP, minRoR, minCreditPct float64) *Filter {
	return &Filter{
		logger:            logger,
		feature0DTE:       feature0DTE,
		applyGammaPenalty: applyGammaPenalty,
		minPoP:            minPoP,
		minRoR:            minRoR,
		minCreditPct:      minCreditPct,
	}
}

// Outcome is the per-candidate result of Evaluate.
type Outcome struct {
	Candidate types.CandidateCard
	Kept      bool
	Blocks    []types.Reason
	Warnings  []types.Reason
}

// Evaluate runs one candidate through the full §4.5 pipeline: rejection,
// checklist normalization, geometry validation, vol-policy bucket
// enforcement, CandidateMetrics enrichment (§4.1/§4.6), the probabilistic
// gate (§7), and STRICT/PROBABILISTIC checklist gating. spot and atmIV feed
// the payoff/probability/greeks-fallback math; atmIV is pre-normalized
// (values >3 are treated as percentage points, per §4.1).
func (f *Filter) Evaluate(c types.CandidateCard, contract datacontract.Result, volPolicy volatility.Policy, mode types.DecisionMode, spot decimal.Decimal, atmIV float64) Outcome {
	out := Outcome{Candidate: c}

	if c.DTE < 2 && !f.feature0DTE {
		out.Blocks = append(out.Blocks, types.Reason{
			Code:    types.CodeFeature0DTEDisabled,
			Message: fmt.Sprintf("candidate %s at DTE=%d rejected: 0DTE/1DTE feature disabled", c.CandidateID, c.DTE),
		})
		return out
	}

	if c.Credit.IsZero() && c.AdjustedPremium.IsZero() {
		out.Blocks = append(out.Blocks, types.Reason{
			Code:    types.CodeNoCreditSpreadCandidate,
			Message: fmt.Sprintf("candidate %s carries no credit/debit premium", c.CandidateID),
		})
		return out
	}

	out.Candidate.Checklist.Global = datacontract.ApplyToRows(out.Candidate.Checklist.Global, contract)
	out.Candidate.Checklist.Regime = datacontract.ApplyToRows(out.Candidate.Checklist.Regime, contract)
	out.Candidate.Checklist.Strategy = datacontract.ApplyToRows(out.Candidate.Checklist.Strategy, contract)

	geom, ok := DetectGeometry(out.Candidate)
	if !ok || !ValidateGeometry(geom, out.Candidate.AdjustedPremium, 1) {
		code := types.CodeInvalidSpreadGeometry
		out.Candidate.HardBlockCode = &code
		out.Blocks = append(out.Blocks, types.Reason{
			Code:    code,
			Message: fmt.Sprintf("candidate %s has invalid spread geometry", c.CandidateID),
		})
		return out
	}

	if !volPolicy.IsAllowed(c.DTE) {
		reason := types.Reason{
			Code:    types.CodeVolPolicyBucketDisabled,
			Message: fmt.Sprintf("DTE bucket %d disabled by current volatility policy", c.DTE),
			Details: map[string]any{"dte": c.DTE},
		}
		if mode == types.ModeStrict {
			out.Blocks = append(out.Blocks, reason)
			return out
		}
		out.Warnings = append(out.Warnings, reason)
	}

	out.Candidate = enrichMetrics(out.Candidate, geom, spot, atmIV)

	isCreditVertical := !geom.IsIron && (geom.Side == optionmath.SidePutCredit || geom.Side == optionmath.SideCallCredit)
	if reason, blocked := f.probabilisticGate(out.Candidate, isCreditVertical); blocked {
		out.Blocks = append(out.Blocks, reason)
		return out
	}

	var requiredFailed, optionalFailed []types.ChecklistItem
	for _, row := range out.Candidate.Checklist.Rows() {
		if row.Status != types.StatusFail && row.Status != types.StatusBlocked {
			continue
		}
		if row.Required {
			requiredFailed = append(requiredFailed, row)
		} else {
			optionalFailed = append(optionalFailed, row)
		}
	}

	for _, row := range optionalFailed {
		out.Warnings = append(out.Warnings, types.Reason{
			Code:    optionalCodeForRow(row.Name),
			Message: fmt.Sprintf("optional row %q failed: %s", row.Name, row.Detail),
			Details: map[string]any{"row_id": row.ID},
		})
	}

	if len(requiredFailed) == 0 {
		out.Candidate.Ready = true
		out.Kept = true
		return out
	}

	if mode == types.ModeStrict {
		for _, row := range requiredFailed {
			out.Blocks = append(out.Blocks, types.Reason{
				Code:    softCodeForRow(row.Name),
				Message: fmt.Sprintf("required row %q failed: %s", row.Name, row.Detail),
				Details: map[string]any{"row_id": row.ID},
			})
		}
		out.Candidate.Ready = false
		return out
	}

	// PROBABILISTIC: keep the candidate (geometry is sound), downgrade
	// every required failure to a warning instead of a block.
	for _, row := range requiredFailed {
		out.Warnings = append(out.Warnings, types.Reason{
			Code:    softCodeForRow(row.Name),
			Message: fmt.Sprintf("required row %q failed: %s", row.Name, row.Detail),
			Details: map[string]any{"row_id": row.ID},
		})
	}
	out.Candidate.Ready = false
	out.Kept = true
	return out
}

// probabilisticGate implements spec §7's probabilistic gate: a hard floor on
// PoP/RoR/credit_pct, applied only to credit verticals since PoP/PoT have no
// defined formula for debit spreads or iron condors (§4.1).
func (f *Filter) probabilisticGate(c types.CandidateCard, isCreditVertical bool) (types.Reason, bool) {
	if !isCreditVertical {
		return types.Reason{}, false
	}
	if c.PoP == nil {
		return types.Reason{Code: types.CodePopUnavailable, Message: "probability of profit could not be computed for this candidate"}, true
	}
	if *c.PoP < f.minPoP {
		return types.Reason{
			Code:    types.CodePopTooLow,
			Message: fmt.Sprintf("PoP %.4f is below the minimum %.4f", *c.PoP, f.minPoP),
			Details: map[string]any{"pop": *c.PoP, "min_pop": f.minPoP},
		}, true
	}
	if c.RoR != nil && *c.RoR < f.minRoR {
		return types.Reason{
			Code:    types.CodeRorTooLow,
			Message: fmt.Sprintf("RoR %.4f is below the minimum %.4f", *c.RoR, f.minRoR),
			Details: map[string]any{"ror": *c.RoR, "min_ror": f.minRoR},
		}, true
	}
	if c.CreditPct != nil && *c.CreditPct < f.minCreditPct {
		return types.Reason{
			Code:    types.CodeCreditPctTooLow,
			Message: fmt.Sprintf("credit_pct %.4f is below the minimum %.4f", *c.CreditPct, f.minCreditPct),
			Details: map[string]any{"credit_pct": *c.CreditPct, "min_credit_pct": f.minCreditPct},
		}, true
	}
	return types.Reason{}, false
}

// EvaluateAll runs Evaluate over every candidate in a snapshot and splits
// the results into kept candidates and aggregated blocks/warnings.
func (f *Filter) EvaluateAll(candidates []types.CandidateCard, contract datacontract.Result, volPolicy volatility.Policy, mode types.DecisionMode, spot decimal.Decimal, atmIV float64) ([]types.CandidateCard, []types.Reason, []types.Reason) {
	var kept []types.CandidateCard
	var blocks, warnings []types.Reason

	for _, c := range candidates {
		res := f.Evaluate(c, contract, volPolicy, mode, spot, atmIV)
		blocks = append(blocks, res.Blocks...)
		warnings = append(warnings, res.Warnings...)
		if res.Kept {
			kept = append(kept, res.Candidate)
		} else {
			f.logger.Debug("candidate dropped", zap.String("candidate_id", c.CandidateID), zap.Int("blocks", len(res.Blocks)))
		}
	}
	return kept, blocks, warnings
}

// CheckDTETargets implements the missing-expiry half of spec §4.5: any DTE
// target that the volatility policy allows but for which the resolver found
// no expiration is a hard block.
func CheckDTETargets(targets map[int]types.DTETarget, volPolicy volatility.Policy) []types.Reason {
	var out []types.Reason
	for _, dte := range dteresolver.Targets {
		if !volPolicy.IsAllowed(dte) {
			continue
		}
		target, ok := targets[dte]
		if !ok || target.Expiration == nil {
			out = append(out, types.Reason{
				Code:    types.CodeMissingExpiryForBucket,
				Message: fmt.Sprintf("no tradeable expiration resolved for DTE bucket %d", dte),
				Details: map[string]any{"dte": dte},
			})
		}
	}
	return out
}
