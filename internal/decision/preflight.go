package decision

import (
	"github.com/spxdesk/spread-engine/internal/datacontract"
	"github.com/spxdesk/spread-engine/pkg/types"
)

// preflight implements spec §4.7 stage 1: market-closed gate, simulation
// warning, and per-feed freshness on spot/chain/greeks — blocks instead of
// warns when the tick is strict-live.
func (p *Pipeline) preflight(snapshot types.Snapshot, strictLive bool) (types.StageResult, datacontract.Result, bool) {
	stage := types.StageResult{StageName: "preflight", Status: types.StagePass}

	feeds := make(map[datacontract.DataKey]datacontract.Feed, len(snapshot.Feeds))
	for k, fv := range snapshot.Feeds {
		feeds[feedToDataKey(k)] = datacontract.Feed{Value: fv.Value, Timestamp: fv.Timestamp, Source: fv.Source, Error: fv.Error}
	}
	sessionClosed := snapshot.Session == types.SessionClosed
	contract := datacontract.Evaluate(feeds, snapshot.AsOf, sessionClosed, datacontract.Options{AllowClosedEvaluation: p.cfg.SimulationMode})

	degraded := false

	if sessionClosed && !p.cfg.SimulationMode {
		stage.Status = types.StageBlock
		stage.Reasons = append(stage.Reasons, types.Reason{Code: types.CodeMarketClosed, Message: "market session is closed"})
		return stage, contract, degraded
	}

	if p.cfg.SimulationMode {
		stage.Reasons = append(stage.Reasons, types.Reason{Code: types.CodeSimulationActive, Message: "simulation mode is active"})
	}

	type staleCheck struct {
		key      datacontract.DataKey
		warnCode types.DecisionCode
		hardCode types.DecisionCode
	}
	checks := []staleCheck{
		{datacontract.UnderlyingPrice, types.CodeSpotStale, types.CodeDataStaleSpot},
		{datacontract.OptionChain, types.CodeChainStale, types.CodeDataStaleChain},
		{datacontract.Greeks, types.CodeGreeksStale, types.CodeDataStaleGreeks},
	}

	for _, c := range checks {
		vf, ok := contract.Feeds[c.key]
		if ok && vf.IsValid {
			continue
		}
		age := int64(0)
		if ok {
			age = vf.AgeMs
		}
		if strictLive {
			stage.Status = types.StageBlock
			stage.Reasons = append(stage.Reasons, types.Reason{
				Code:    c.hardCode,
				Message: "stale/missing feed blocked under strict-live policy",
				Details: map[string]any{"age_ms": age},
			})
		} else {
			degraded = true
			stage.Reasons = append(stage.Reasons, types.Reason{
				Code:    c.warnCode,
				Message: "stale/missing feed",
				Details: map[string]any{"age_ms": age},
			})
		}
	}

	if stage.Status == types.StageBlock {
		degraded = false
	}

	return stage, contract, degraded
}
