package trademem

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spxdesk/spread-engine/pkg/types"
	"github.com/spxdesk/spread-engine/pkg/utils"
)

// EventLog is the append-only JSONL record of trade-memory lifecycle events.
// Append failures are non-fatal per spec §4.9/§5: they are logged as a
// structured warning and never roll back the primary table write.
type EventLog struct {
	logger     *zap.Logger
	path       string
	mu         sync.Mutex
	subscriber func(types.TradeEventRecord)
}

// NewEventLog builds an EventLog bound to path.
func NewEventLog(logger *zap.Logger, path string) *EventLog {
	return &EventLog{logger: logger, path: path}
}

// Subscribe registers fn to be called with every event this log appends,
// after the JSONL write. Used to fan trade-memory events out over the
// WebSocket hub without trademem importing the api package.
func (l *EventLog) Subscribe(fn func(types.TradeEventRecord)) {
	l.subscriber = fn
}

// Append writes one event record, assigning it an ID and timestamp.
// A failure here is swallowed (after logging) by design — see Append's
// doc and spec §4.9's explicit non-fatal append semantics.
func (l *EventLog) Append(eventType types.EventType, candidateID, tradeID, strategy string, dteBucket int, payload any, now time.Time) {
	record := types.TradeEventRecord{
		EventID:     utils.GenerateEventID(now.UnixMilli()),
		Ts:          now,
		Type:        eventType,
		CandidateID: candidateID,
		TradeID:     tradeID,
		Strategy:    strategy,
		DTEBucket:   dteBucket,
		Payload:     payload,
	}

	if err := l.append(record); err != nil {
		l.logger.Warn("event log append failed; primary table write is unaffected",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
			zap.String("candidate_id", candidateID),
			zap.String("trade_id", tradeID),
		)
	}

	if l.subscriber != nil {
		l.subscriber(record)
	}
}

func (l *EventLog) append(record types.TradeEventRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(line)
	return err
}
