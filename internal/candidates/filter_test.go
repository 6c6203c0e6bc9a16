package candidates_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spxdesk/spread-engine/internal/candidates"
	"github.com/spxdesk/spread-engine/internal/datacontract"
	"github.com/spxdesk/spread-engine/internal/volatility"
	"github.com/spxdesk/spread-engine/pkg/types"
)

func healthyContract() datacontract.Result {
	return datacontract.Result{Status: datacontract.Healthy, Feeds: map[datacontract.DataKey]datacontract.ValidatedFeed{}}
}

func openPolicy() volatility.Policy {
	return volatility.ApplyVolPolicy(volatility.Normal, volatility.DefaultConfig())
}

func verticalCandidate(id string, dte int, credit float64) types.CandidateCard {
	return types.CandidateCard{
		CandidateID:     id,
		DTE:             dte,
		Width:           decimal.NewFromFloat(5),
		Credit:          decimal.NewFromFloat(credit),
		AdjustedPremium: decimal.NewFromFloat(credit),
		Legs: []types.OptionLeg{
			{Action: types.ActionSell, Kind: types.KindPut, Strike: decimal.NewFromFloat(100)},
			{Action: types.ActionBuy, Kind: types.KindPut, Strike: decimal.NewFromFloat(95)},
		},
	}
}

func TestEvaluate_ZeroDTEBlockedWhenFeatureDisabled(t *testing.T) {
	f := candidates.NewFilter(zap.NewNop(), false, true, 0, 0, 0)
	c := verticalCandidate("x", 0, 1.0)
	out := f.Evaluate(c, healthyContract(), openPolicy(), types.ModeStrict, decimal.NewFromFloat(100), 0.20)
	if out.Kept {
		t.Fatalf("expected candidate to be rejected")
	}
	if len(out.Blocks) != 1 || out.Blocks[0].Code != types.CodeFeature0DTEDisabled {
		t.Fatalf("expected FEATURE_0DTE_DISABLED block, got %v", out.Blocks)
	}
}

func TestEvaluate_InvalidGeometryHardBlocks(t *testing.T) {
	f := candidates.NewFilter(zap.NewNop(), true, true, 0, 0, 0)
	c := verticalCandidate("bad-geo", 7, 1.0)
	// zero-width spread (both legs at the same strike) is invalid geometry
	c.Legs[0].Strike = decimal.NewFromFloat(95)
	c.Legs[1].Strike = decimal.NewFromFloat(95)

	out := f.Evaluate(c, healthyContract(), openPolicy(), types.ModeStrict, decimal.NewFromFloat(100), 0.20)
	if out.Kept {
		t.Fatalf("expected geometry rejection")
	}
	if out.Candidate.HardBlockCode == nil || *out.Candidate.HardBlockCode != types.CodeInvalidSpreadGeometry {
		t.Fatalf("expected INVALID_SPREAD_GEOMETRY, got %v", out.Candidate.HardBlockCode)
	}
}

func TestEvaluate_RequiredFailureBlocksInStrictModeKeepsInProbabilistic(t *testing.T) {
	f := candidates.NewFilter(zap.NewNop(), true, true, 0, 0, 0)
	c := verticalCandidate("req-fail", 7, 1.0)
	c.Checklist.Strategy = []types.ChecklistItem{
		{ID: "delta-fit", Name: "Delta within band", Status: types.StatusFail, Required: true, Detail: "delta out of band"},
	}

	strict := f.Evaluate(c, healthyContract(), openPolicy(), types.ModeStrict, decimal.NewFromFloat(100), 0.20)
	if strict.Kept {
		t.Fatalf("expected STRICT mode to drop candidate on required failure")
	}
	if len(strict.Blocks) != 1 || strict.Blocks[0].Code != types.CodeDeltaOutOfBand {
		t.Fatalf("expected DELTA_OUT_OF_BAND block, got %v", strict.Blocks)
	}

	prob := f.Evaluate(c, healthyContract(), openPolicy(), types.ModeProbabilistic, decimal.NewFromFloat(100), 0.20)
	if !prob.Kept {
		t.Fatalf("expected PROBABILISTIC mode to keep the candidate")
	}
	if len(prob.Warnings) != 1 || prob.Warnings[0].Code != types.CodeDeltaOutOfBand {
		t.Fatalf("expected DELTA_OUT_OF_BAND warning, got %v", prob.Warnings)
	}
	if prob.Candidate.Ready {
		t.Fatalf("candidate with a downgraded required failure should not be Ready")
	}
}

func TestEvaluate_OptionalFailureAlwaysSoftWarns(t *testing.T) {
	f := candidates.NewFilter(zap.NewNop(), true, true, 0, 0, 0)
	c := verticalCandidate("opt-fail", 7, 1.0)
	c.Checklist.Strategy = []types.ChecklistItem{
		{ID: "liquidity", Name: "Bid/ask liquidity", Status: types.StatusFail, Required: false, Detail: "thin book"},
	}

	out := f.Evaluate(c, healthyContract(), openPolicy(), types.ModeStrict, decimal.NewFromFloat(100), 0.20)
	if !out.Kept {
		t.Fatalf("optional failures should never drop a candidate")
	}
	if len(out.Warnings) != 1 || out.Warnings[0].Code != types.CodeSoftLiquidityWarning {
		t.Fatalf("expected SOFT_LIQUIDITY_WARNING, got %v", out.Warnings)
	}
}

func TestEvaluate_DisabledBucketBlocksInStrictSoftensInProbabilistic(t *testing.T) {
	f := candidates.NewFilter(zap.NewNop(), true, true, 0, 0, 0)
	c := verticalCandidate("bucket-2", 2, 1.0)
	extremePolicy := volatility.ApplyVolPolicy(volatility.Extreme, volatility.DefaultConfig())

	strict := f.Evaluate(c, healthyContract(), extremePolicy, types.ModeStrict, decimal.NewFromFloat(100), 0.20)
	if strict.Kept {
		t.Fatalf("expected STRICT mode to block a disabled bucket")
	}

	prob := f.Evaluate(c, healthyContract(), extremePolicy, types.ModeProbabilistic, decimal.NewFromFloat(100), 0.20)
	if !prob.Kept {
		t.Fatalf("expected PROBABILISTIC mode to keep a disabled-bucket candidate with a warning")
	}
	found := false
	for _, w := range prob.Warnings {
		if w.Code == types.CodeVolPolicyBucketDisabled {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected VOL_POLICY_BUCKET_DISABLED warning, got %v", prob.Warnings)
	}
}

func TestCheckDTETargets_MissingExpirationOnAllowedBucketBlocks(t *testing.T) {
	ok := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	targets := map[int]types.DTETarget{
		2:  {TargetDTE: 2, Expiration: &ok},
		7:  {TargetDTE: 7}, // no expiration resolved
		14: {TargetDTE: 14, Expiration: &ok},
		30: {TargetDTE: 30, Expiration: &ok},
		45: {TargetDTE: 45, Expiration: &ok},
	}
	reasons := candidates.CheckDTETargets(targets, openPolicy())
	if len(reasons) != 1 || reasons[0].Code != types.CodeMissingExpiryForBucket {
		t.Fatalf("expected exactly one MISSING_EXPIRY_FOR_BUCKET, got %v", reasons)
	}
}
