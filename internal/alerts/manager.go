// Package alerts tracks cooldown, daily-cap, and dedupe state for outbound
// candidate-ready alerts, grounded on internal/execution/risk_manager.go's
// mutex-protected stateful policy idiom. It produces the AlertHints that
// feed the decision pipeline's alert-policy stage.
package alerts

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spxdesk/spread-engine/pkg/types"
)

// Config holds the alert-eligibility tunables.
type Config struct {
	CooldownPeriod time.Duration
	DayCap         int
	DedupeWindow   time.Duration
	ReadyDebounce  time.Duration
}

// DefaultConfig returns reasonable defaults for a single trading day.
func DefaultConfig() Config {
	return Config{
		CooldownPeriod: 10 * time.Minute,
		DayCap:         20,
		DedupeWindow:   2 * time.Minute,
		ReadyDebounce:  30 * time.Second,
	}
}

// Manager holds the per-candidate cooldown/day-cap/dedupe state.
type Manager struct {
	logger *zap.Logger
	cfg    Config

	mu             sync.Mutex
	lastSentAt     map[string]time.Time // candidate_id -> last alert timestamp
	recentHashes   map[string]time.Time // fingerprint -> last seen
	readySince     map[string]time.Time // candidate_id -> first-observed-ready timestamp
	dailyCount     int
	dailyResetDate string
}

// NewManager builds a Manager.
func NewManager(logger *zap.Logger, cfg Config) *Manager {
	return &Manager{
		logger:       logger,
		cfg:          cfg,
		lastSentAt:   make(map[string]time.Time),
		recentHashes: make(map[string]time.Time),
		readySince:   make(map[string]time.Time),
	}
}

// Evaluate computes the alert hints for a candidate. It leaves the
// cooldown, dedupe and day-cap counters alone — call RecordSent after the
// caller actually dispatches the alert — but it does roll the daily counter
// over on a new day and records or clears the candidate's first-ready time
// used for debounce.
func (m *Manager) Evaluate(candidateID, fingerprint string, ready bool, now time.Time) types.AlertHints {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rolloverDay(now)

	hints := types.AlertHints{}

	if last, ok := m.lastSentAt[candidateID]; ok && now.Sub(last) < m.cfg.CooldownPeriod {
		hints.CooldownActive = true
	}
	if m.dailyCount >= m.cfg.DayCap {
		hints.DayCapReached = true
	}
	if seen, ok := m.recentHashes[fingerprint]; ok && now.Sub(seen) < m.cfg.DedupeWindow {
		hints.Deduped = true
	}

	if ready {
		since, ok := m.readySince[candidateID]
		if !ok {
			m.readySince[candidateID] = now
			hints.ReadyDebounced = true
		} else if now.Sub(since) < m.cfg.ReadyDebounce {
			hints.ReadyDebounced = true
		}
	} else {
		delete(m.readySince, candidateID)
	}

	return hints
}

// RecordSent marks an alert as actually dispatched, advancing cooldown,
// dedupe, and day-cap state.
func (m *Manager) RecordSent(candidateID, fingerprint string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rolloverDay(now)

	m.lastSentAt[candidateID] = now
	m.recentHashes[fingerprint] = now
	m.dailyCount++

	m.logger.Debug("alert dispatched",
		zap.String("candidate_id", candidateID),
		zap.Int("daily_count", m.dailyCount))
}

func (m *Manager) rolloverDay(now time.Time) {
	day := now.Format("2006-01-02")
	if m.dailyResetDate != day {
		m.dailyResetDate = day
		m.dailyCount = 0
	}
}
