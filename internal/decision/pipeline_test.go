package decision_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spxdesk/spread-engine/internal/decision"
	"github.com/spxdesk/spread-engine/internal/volatility"
	"github.com/spxdesk/spread-engine/pkg/types"
)

func baseSnapshot(asOf time.Time) types.Snapshot {
	exp2 := asOf.AddDate(0, 0, 2)
	exp7 := asOf.AddDate(0, 0, 7)
	exp14 := asOf.AddDate(0, 0, 14)
	exp30 := asOf.AddDate(0, 0, 30)
	exp45 := asOf.AddDate(0, 0, 45)

	return types.Snapshot{
		AsOf:    asOf,
		Session: types.SessionOpen,
		Source:  "test-fixture",
		Spot:    decimal.NewFromFloat(100),
		Feeds: map[types.DataKey]types.FeedValue{
			types.KeyUnderlyingPrice:  {Value: 100.0, Timestamp: asOf},
			types.KeyOptionChain:      {Value: "chain", Timestamp: asOf},
			types.KeyGreeks:           {Value: "greeks", Timestamp: asOf},
			types.KeyIntradayCandles:  {Value: "candles", Timestamp: asOf},
			types.KeyVWAP:             {Value: 100.0, Timestamp: asOf},
			types.KeyATR1m5:           {Value: 1.0, Timestamp: asOf},
			types.KeyRealizedRange15m: {Value: 1.0, Timestamp: asOf},
			types.KeyExpectedMove:     {Value: 1.0, Timestamp: asOf},
			types.KeyRegime:           {Value: "TREND_UP", Timestamp: asOf},
		},
		RegimeLabel: types.RegimeTrendUp,
		DTETargets: map[int]types.DTETarget{
			2:  {TargetDTE: 2, SelectedDTE: intPtr(2), Expiration: &exp2},
			7:  {TargetDTE: 7, SelectedDTE: intPtr(7), Expiration: &exp7},
			14: {TargetDTE: 14, SelectedDTE: intPtr(14), Expiration: &exp14},
			30: {TargetDTE: 30, SelectedDTE: intPtr(30), Expiration: &exp30},
			45: {TargetDTE: 45, SelectedDTE: intPtr(45), Expiration: &exp45},
		},
	}
}

func TestEvaluate_MarketClosedBlocksImmediately(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	p := decision.New(zap.NewNop(), cfg)

	snap := baseSnapshot(time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC))
	snap.Session = types.SessionClosed

	out := p.Evaluate(snap, nil, types.DataModeLive)
	if out.Status != types.StatusBlocked {
		t.Fatalf("expected BLOCKED, got %s", out.Status)
	}
	found := false
	for _, b := range out.Blocks {
		if b.Code == types.CodeMarketClosed {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected MARKET_CLOSED block, got %v", out.Blocks)
	}
}

func TestEvaluate_NoCandidatesYieldsNoCandidateStatus(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.StrictLiveBlocks = false
	p := decision.New(zap.NewNop(), cfg)

	asOf := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	snap := baseSnapshot(asOf)

	out := p.Evaluate(snap, nil, types.DataModeDelayed)
	if out.Status != types.StatusNoCandidate {
		t.Fatalf("expected NO_CANDIDATE with zero candidates, got %s: blocks=%v", out.Status, out.Blocks)
	}
}

func TestEvaluate_MissingExpiryBlocks(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.StrictLiveBlocks = false
	p := decision.New(zap.NewNop(), cfg)

	asOf := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	snap := baseSnapshot(asOf)
	delete(snap.DTETargets, 7)

	out := p.Evaluate(snap, nil, types.DataModeDelayed)
	if out.Status != types.StatusBlocked {
		t.Fatalf("expected BLOCKED from missing expiry, got %s", out.Status)
	}
}

func TestEvaluate_ReadyWithViableCandidate(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.StrictLiveBlocks = false
	p := decision.New(zap.NewNop(), cfg)

	asOf := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	exp := asOf.AddDate(0, 0, 7)
	snap := baseSnapshot(asOf)
	snap.DTETargets[7] = types.DTETarget{TargetDTE: 7, SelectedDTE: intPtr(7), Expiration: &exp}
	// The probabilistic gate needs an ATM IV to compute PoP.
	iv := 0.20
	snap.AtmIV = &iv

	snap.Candidates = []types.CandidateCard{{
		CandidateID:     "cand-1",
		DTE:             7,
		Width:           decimal.NewFromFloat(5),
		Credit:          decimal.NewFromFloat(1.2),
		AdjustedPremium: decimal.NewFromFloat(1.2),
		Legs: []types.OptionLeg{
			{Action: types.ActionSell, Kind: types.KindPut, Strike: decimal.NewFromFloat(95), Delta: -0.1},
			{Action: types.ActionBuy, Kind: types.KindPut, Strike: decimal.NewFromFloat(90), Delta: -0.05},
		},
	}}

	out := p.Evaluate(snap, []volatility.Sample{}, types.DataModeDelayed)
	if out.Status != types.StatusReady {
		t.Fatalf("expected READY, got %s: blocks=%v", out.Status, out.Blocks)
	}
	if len(out.Ranked) != 1 || out.PrimaryCandidateID == nil || *out.PrimaryCandidateID != "cand-1" {
		t.Fatalf("expected cand-1 ranked first, got %v / %v", out.Ranked, out.PrimaryCandidateID)
	}
}

func intPtr(i int) *int { return &i }
