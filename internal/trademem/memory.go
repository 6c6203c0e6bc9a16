package trademem

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spxdesk/spread-engine/internal/optionmath"
	"github.com/spxdesk/spread-engine/pkg/types"
	"github.com/spxdesk/spread-engine/pkg/utils"
)

var (
	ErrCandidateNotFound   = errors.New("trademem: candidate not found")
	ErrOpenExecutionExists = errors.New("trademem: an open execution already exists for this candidate")
	ErrTradeNotFound       = errors.New("trademem: trade not found")
	ErrTradeNotOpen        = errors.New("trademem: trade is not open")
)

func directionToSide(d types.Direction) optionmath.VerticalSide {
	if d == types.BearCall {
		return optionmath.SideCallCredit
	}
	return optionmath.SidePutCredit
}

// UpsertCandidatesFromTargets implements spec §4.9's
// upsert_candidates_from_decision over the multi-DTE target table: inserts
// newly-seen recommendations as GENERATED, updates non-terminal rows in
// place, invalidates previously-GENERATED rows that dropped out of the
// current set, and expires rows whose expiration has passed. ACCEPTED and
// REJECTED rows are never touched.
func (s *Store) UpsertCandidatesFromTargets(targets map[int]types.DTETarget, log *EventLog, now time.Time) ([]types.TradeCandidateRecord, error) {
	s.candMu.Lock()
	defer s.candMu.Unlock()

	records, err := s.loadCandidatesLocked()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]int, len(records))
	for i, r := range records {
		byID[r.CandidateID] = i
	}

	current := make(map[string]bool)
	today := now.Truncate(24 * time.Hour)

	for dte, target := range targets {
		if target.Recommendation == nil {
			continue
		}
		rec := *target.Recommendation
		expYMD := rec.Expiration.Format("2006-01-02")
		id := utils.CandidateID(dte, string(rec.Direction), expYMD, rec.ShortStrike, rec.LongStrike, rec.Width)
		current[id] = true

		if idx, ok := byID[id]; ok {
			if records[idx].Status == types.CandidateGenerated {
				records[idx] = applyRecommendation(records[idx], dte, rec, now)
			}
			continue
		}

		record := applyRecommendation(types.TradeCandidateRecord{
			CandidateID: id,
			CreatedAt:   now,
			Status:      types.CandidateGenerated,
		}, dte, rec, now)
		records = append(records, record)
		byID[id] = len(records) - 1
		log.Append(types.EventCandidateCreated, id, "", "", dte, nil, now)
	}

	for i := range records {
		if records[i].Status == types.CandidateGenerated {
			if !current[records[i].CandidateID] {
				records[i].Status = types.CandidateInvalidated
				records[i].UpdatedAt = now
				continue
			}
			if records[i].Expiration.Before(today) {
				records[i].Status = types.CandidateExpired
				records[i].UpdatedAt = now
			}
		} else if records[i].Status == types.CandidateInvalidated && records[i].Expiration.Before(today) {
			records[i].Status = types.CandidateExpired
			records[i].UpdatedAt = now
		}
	}

	if err := s.saveCandidatesLocked(records); err != nil {
		return nil, err
	}
	return records, nil
}

func applyRecommendation(record types.TradeCandidateRecord, dteBucket int, rec types.Recommendation, now time.Time) types.TradeCandidateRecord {
	record.UpdatedAt = now
	record.DTEBucket = dteBucket
	record.Direction = rec.Direction
	record.Expiration = rec.Expiration
	record.ShortStrike = rec.ShortStrike
	record.LongStrike = rec.LongStrike
	record.Width = rec.Width
	record.QuotedCredit = rec.Credit
	record.MidPriceAtSignal = rec.MidPrice
	record.ZScoreAtSignal = rec.ZScore
	record.MMCStretchAtSignal = rec.MMCStretch
	record.IndicatorSnapshot = rec.Indicators
	return record
}

// AcceptRequest is the input to AcceptCandidateAsTrade.
type AcceptRequest struct {
	CandidateID  string
	Quantity     int
	FilledCredit *decimal.Decimal
	Fees         *decimal.Decimal
	Notes        string
}

// AcceptCandidateAsTrade implements spec §4.9's accept_candidate_as_trade.
func (s *Store) AcceptCandidateAsTrade(req AcceptRequest, log *EventLog, now time.Time) (types.TradeExecutionRecord, error) {
	s.candMu.Lock()
	defer s.candMu.Unlock()
	s.execMu.Lock()
	defer s.execMu.Unlock()

	candidates, err := s.loadCandidatesLocked()
	if err != nil {
		return types.TradeExecutionRecord{}, err
	}
	candIdx := -1
	for i, c := range candidates {
		if c.CandidateID == req.CandidateID {
			candIdx = i
			break
		}
	}
	if candIdx == -1 {
		return types.TradeExecutionRecord{}, ErrCandidateNotFound
	}
	candidate := candidates[candIdx]

	executions, err := s.loadExecutionsLocked()
	if err != nil {
		return types.TradeExecutionRecord{}, err
	}
	for _, e := range executions {
		if e.CandidateID == req.CandidateID && e.Status == types.TradeOpen {
			return types.TradeExecutionRecord{}, ErrOpenExecutionExists
		}
	}

	filledCredit := candidate.QuotedCredit
	if req.FilledCredit != nil {
		filledCredit = *req.FilledCredit
	}
	fees := decimal.Zero
	if req.Fees != nil {
		fees = *req.Fees
	}
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	payoff, err := optionmath.ComputeVerticalPayoff(directionToSide(candidate.Direction), candidate.ShortStrike, candidate.LongStrike, filledCredit, quantity, decimal.NewFromInt(100))
	if err != nil {
		return types.TradeExecutionRecord{}, err
	}

	tradeID := utils.GenerateTradeID(now.UnixMilli())
	unrealized := decimal.Zero.Sub(fees)

	execution := types.TradeExecutionRecord{
		TradeID:          tradeID,
		CandidateID:      req.CandidateID,
		Strategy:         string(candidate.Direction),
		Direction:        candidate.Direction,
		DTEBucket:        candidate.DTEBucket,
		Expiration:       candidate.Expiration,
		ShortStrike:      candidate.ShortStrike,
		LongStrike:       candidate.LongStrike,
		Width:            candidate.Width,
		OpenedAt:         now,
		FilledCredit:     filledCredit,
		Quantity:         quantity,
		FeesEstimate:     fees,
		Status:           types.TradeOpen,
		MaxProfit:        payoff.MaxProfit,
		MaxLoss:          payoff.MaxLoss,
		BreakEven:        payoff.Breakeven,
		CurrentMark:      &filledCredit,
		UnrealizedPnL:    &unrealized,
		LastUpdatedAt:    now,
	}
	executions = append(executions, execution)

	candidates[candIdx].Status = types.CandidateAccepted
	taken := types.DecisionTaken
	candidates[candIdx].UserDecision = &taken
	candidates[candIdx].Notes = req.Notes
	candidates[candIdx].UpdatedAt = now

	if err := s.saveExecutionsLocked(executions); err != nil {
		return types.TradeExecutionRecord{}, err
	}
	if err := s.saveCandidatesLocked(candidates); err != nil {
		return types.TradeExecutionRecord{}, err
	}

	log.Append(types.EventTradeTaken, req.CandidateID, tradeID, execution.Strategy, execution.DTEBucket, nil, now)
	log.Append(types.EventPositionOpened, req.CandidateID, tradeID, execution.Strategy, execution.DTEBucket, nil, now)

	return execution, nil
}

// RejectCandidate implements spec §4.9's reject_candidate.
func (s *Store) RejectCandidate(candidateID string, decision types.UserDecision, notes string, log *EventLog, now time.Time) error {
	s.candMu.Lock()
	defer s.candMu.Unlock()

	candidates, err := s.loadCandidatesLocked()
	if err != nil {
		return err
	}
	idx := -1
	for i, c := range candidates {
		if c.CandidateID == candidateID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrCandidateNotFound
	}

	candidates[idx].UserDecision = &decision
	candidates[idx].Notes = notes
	candidates[idx].UpdatedAt = now
	if decision == types.DecisionSkipped {
		candidates[idx].Status = types.CandidateRejected
	}
	// WATCHLIST leaves status at GENERATED.

	if err := s.saveCandidatesLocked(candidates); err != nil {
		return err
	}
	log.Append(types.EventTradeSkipped, candidateID, "", "", candidates[idx].DTEBucket, nil, now)
	return nil
}

// CloseTrade implements spec §4.9's close_trade, including the literal
// EXPIRED-on-nonnegative-pnl candidate coupling preserved per the design
// notes' first open question.
func (s *Store) CloseTrade(tradeID string, closePrice *decimal.Decimal, notes string, log *EventLog, now time.Time) (types.TradeExecutionRecord, error) {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	executions, err := s.loadExecutionsLocked()
	if err != nil {
		return types.TradeExecutionRecord{}, err
	}
	idx := -1
	for i, e := range executions {
		if e.TradeID == tradeID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return types.TradeExecutionRecord{}, ErrTradeNotFound
	}
	execution := executions[idx]
	if execution.Status != types.TradeOpen {
		return types.TradeExecutionRecord{}, ErrTradeNotOpen
	}

	price := execution.FilledCredit
	if closePrice != nil {
		price = *closePrice
	}
	qty := decimal.NewFromInt(int64(execution.Quantity))
	realized := execution.FilledCredit.Sub(price).Mul(decimal.NewFromInt(100)).Mul(qty).Sub(execution.FeesEstimate)

	execution.Status = types.TradeClosed
	execution.ClosePrice = &price
	execution.ClosedAt = &now
	execution.RealizedPnL = &realized
	execution.LastUpdatedAt = now
	_ = notes // TradeExecutionRecord carries no notes field; accepted for call-site symmetry with spec §4.9.
	executions[idx] = execution

	if err := s.saveExecutionsLocked(executions); err != nil {
		return types.TradeExecutionRecord{}, err
	}
	log.Append(types.EventPositionClosed, execution.CandidateID, tradeID, execution.Strategy, execution.DTEBucket, nil, now)

	// Preserved per spec §9 open question 1: marking the candidate EXPIRED
	// on a non-negative realized P/L is an unintended coupling upstream,
	// but the behaviour ships unchanged.
	if realized.GreaterThanOrEqual(decimal.Zero) {
		s.candMu.Lock()
		candidates, cerr := s.loadCandidatesLocked()
		if cerr == nil {
			for i, c := range candidates {
				if c.CandidateID == execution.CandidateID && c.Status != types.CandidateAccepted && c.Status != types.CandidateRejected {
					candidates[i].Status = types.CandidateExpired
					candidates[i].UpdatedAt = now
					s.saveCandidatesLocked(candidates)
					break
				}
			}
		}
		s.candMu.Unlock()
	}

	return execution, nil
}

// UpdateOpenTradeMarksFromDecision implements spec §4.9's
// update_open_trade_marks_from_decision: for each OPEN trade, match by
// (direction, expiration, short_strike, long_strike) against the current
// multi-DTE targets and reconcile marks. Open trades are visited in stable
// (stored) order per spec §5's mark-reconciliation ordering guarantee.
func (s *Store) UpdateOpenTradeMarksFromDecision(targets map[int]types.DTETarget, log *EventLog, now time.Time) ([]types.TradeExecutionRecord, error) {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	executions, err := s.loadExecutionsLocked()
	if err != nil {
		return nil, err
	}

	changed := false
	for i, e := range executions {
		if e.Status != types.TradeOpen {
			continue
		}
		rec := findMatchingRecommendation(targets, e)
		if rec == nil {
			continue
		}

		mark := rec.MidPrice
		qty := decimal.NewFromInt(int64(e.Quantity))
		unrealized := e.FilledCredit.Sub(mark).Mul(decimal.NewFromInt(100)).Mul(qty).Sub(e.FeesEstimate)
		var pctOfRisk *float64
		if !e.MaxLoss.IsZero() {
			v, _ := unrealized.Div(e.MaxLoss).Float64()
			pctOfRisk = &v
		}

		executions[i].CurrentMark = &mark
		executions[i].UnrealizedPnL = &unrealized
		executions[i].PnLPercentOfRisk = pctOfRisk
		executions[i].LastUpdatedAt = now
		changed = true

		log.Append(types.EventPositionMarked, e.CandidateID, e.TradeID, e.Strategy, e.DTEBucket, nil, now)
	}

	if changed {
		if err := s.saveExecutionsLocked(executions); err != nil {
			return nil, err
		}
	}
	return executions, nil
}

func findMatchingRecommendation(targets map[int]types.DTETarget, e types.TradeExecutionRecord) *types.Recommendation {
	for _, target := range targets {
		if target.Recommendation == nil {
			continue
		}
		rec := target.Recommendation
		if rec.Direction == e.Direction &&
			rec.Expiration.Equal(e.Expiration) &&
			rec.ShortStrike.Equal(e.ShortStrike) &&
			rec.LongStrike.Equal(e.LongStrike) {
			return rec
		}
	}
	return nil
}
