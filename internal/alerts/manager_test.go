package alerts_test

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spxdesk/spread-engine/internal/alerts"
)

func TestEvaluate_CooldownActiveAfterRecordSent(t *testing.T) {
	m := alerts.NewManager(zap.NewNop(), alerts.Config{CooldownPeriod: time.Minute, DedupeWindow: time.Second, ReadyDebounce: 0, DayCap: 100})
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)

	hints := m.Evaluate("cand-1", "fp-1", true, now)
	if hints.CooldownActive {
		t.Fatalf("expected no cooldown before any alert sent")
	}

	m.RecordSent("cand-1", "fp-1", now)

	hints = m.Evaluate("cand-1", "fp-2", true, now.Add(30*time.Second))
	if !hints.CooldownActive {
		t.Fatalf("expected cooldown active within the cooldown window")
	}

	hints = m.Evaluate("cand-1", "fp-3", true, now.Add(2*time.Minute))
	if hints.CooldownActive {
		t.Fatalf("expected cooldown to have elapsed")
	}
}

func TestEvaluate_DayCapReached(t *testing.T) {
	m := alerts.NewManager(zap.NewNop(), alerts.Config{CooldownPeriod: 0, DedupeWindow: 0, ReadyDebounce: 0, DayCap: 2})
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)

	m.RecordSent("a", "fp-a", now)
	m.RecordSent("b", "fp-b", now)

	hints := m.Evaluate("c", "fp-c", true, now)
	if !hints.DayCapReached {
		t.Fatalf("expected day cap reached after 2 sends with cap=2")
	}
}

func TestEvaluate_ReadyDebouncedOnFirstObservation(t *testing.T) {
	m := alerts.NewManager(zap.NewNop(), alerts.Config{ReadyDebounce: time.Minute, CooldownPeriod: 0, DedupeWindow: 0, DayCap: 100})
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)

	hints := m.Evaluate("cand-1", "fp-1", true, now)
	if !hints.ReadyDebounced {
		t.Fatalf("expected debounce on first ready observation")
	}

	hints = m.Evaluate("cand-1", "fp-1", true, now.Add(2*time.Minute))
	if hints.ReadyDebounced {
		t.Fatalf("expected debounce to clear once past the debounce window")
	}
}

func TestEvaluate_DedupedWithinWindow(t *testing.T) {
	m := alerts.NewManager(zap.NewNop(), alerts.Config{DedupeWindow: time.Minute, CooldownPeriod: 0, ReadyDebounce: 0, DayCap: 100})
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)

	m.RecordSent("cand-1", "same-fingerprint", now)

	hints := m.Evaluate("cand-2", "same-fingerprint", true, now.Add(10*time.Second))
	if !hints.Deduped {
		t.Fatalf("expected dedupe to fire for a repeated fingerprint across candidates")
	}
}
