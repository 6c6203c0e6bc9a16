package api

import (
	"sync"

	"github.com/spxdesk/spread-engine/internal/polling"
	"github.com/spxdesk/spread-engine/pkg/types"
)

// pollState carries the adaptive polling controller's cross-tick memory:
// the previous tick's candidates (to detect MMC-row transitions) and the
// rolling window of recent MMC events.
type pollState struct {
	mu        sync.Mutex
	prevCards []types.CandidateCard
	mmcEvents []polling.MMCEvent
}

// nextPollInterval advances the polling controller's cross-tick state and
// returns the next recommended polling interval in seconds, per spec §4.8.
func (s *Server) nextPollInterval(snapshot types.Snapshot, out types.DecisionOutput, openExecutions []types.TradeExecutionRecord) int {
	s.poll.mu.Lock()
	defer s.poll.mu.Unlock()

	s.poll.mmcEvents = polling.MergeMMCEvents(s.poll.mmcEvents, s.poll.prevCards, snapshot.Candidates, snapshot.AsOf)
	s.poll.prevCards = snapshot.Candidates

	var openTrades []polling.OpenTradeState
	for _, exec := range openExecutions {
		if exec.Status != types.TradeOpen {
			continue
		}
		atmIV := 0.0
		if snapshot.AtmIV != nil {
			atmIV = *snapshot.AtmIV
		}
		openTrades = append(openTrades, polling.OpenTradeState{
			DTEBucket:   exec.DTEBucket,
			Spot:        snapshot.Spot,
			ShortStrike: exec.ShortStrike,
			AtmIV:       atmIV,
		})
	}

	var candidateStates []polling.CandidateState
	for _, c := range snapshot.Candidates {
		candidateStates = append(candidateStates, polling.CandidateState{DTEBucket: c.DTE})
	}

	state := polling.State{
		OpenTrades: openTrades,
		Candidates: candidateStates,
		MMCEvents:  s.poll.mmcEvents,
		VolRegime:  out.Vol.Regime,
		ShockFlag:  out.Vol.Shock.Shock,
		Now:        snapshot.AsOf,
	}

	return polling.ComputeInterval(state)
}
