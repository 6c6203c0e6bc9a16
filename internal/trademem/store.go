// Package trademem persists candidate and execution tables plus an
// append-only event log, generalizing the teacher's internal/data/store.go
// whole-file JSON read/write into a write-temp-then-rename atomic store per
// spec §4.9/§5/§9.
package trademem

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/spxdesk/spread-engine/pkg/types"
)

// Store holds the candidate and execution tables, each guarded by its own
// mutex so mark-reconciliation (executions) never blocks a concurrent
// candidate upsert.
type Store struct {
	logger *zap.Logger

	candidatesPath string
	executionsPath string

	candMu sync.Mutex
	execMu sync.Mutex
}

// New builds a Store bound to the given table paths. It does not load
// anything eagerly — a missing file is treated as an empty table.
func New(logger *zap.Logger, candidatesPath, executionsPath string) *Store {
	return &Store{logger: logger, candidatesPath: candidatesPath, executionsPath: executionsPath}
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// writeTempThenRename atomically overwrites path with data: every mutation
// is all-or-nothing over the single record file, per spec §4.9.
func writeTempThenRename(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// LoadCandidates reads the candidate table, sorted by updated_at descending.
func (s *Store) LoadCandidates() ([]types.TradeCandidateRecord, error) {
	s.candMu.Lock()
	defer s.candMu.Unlock()
	return s.loadCandidatesLocked()
}

func (s *Store) loadCandidatesLocked() ([]types.TradeCandidateRecord, error) {
	records, err := loadJSON[types.TradeCandidateRecord](s.candidatesPath)
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UpdatedAt.After(records[j].UpdatedAt) })
	return records, nil
}

func (s *Store) saveCandidatesLocked(records []types.TradeCandidateRecord) error {
	sort.Slice(records, func(i, j int) bool { return records[i].UpdatedAt.After(records[j].UpdatedAt) })
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return writeTempThenRename(s.candidatesPath, data)
}

// LoadExecutions reads the execution table, in stored (insertion) order —
// mark-reconciliation needs stable iteration order per spec §5.
func (s *Store) LoadExecutions() ([]types.TradeExecutionRecord, error) {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	return s.loadExecutionsLocked()
}

func (s *Store) loadExecutionsLocked() ([]types.TradeExecutionRecord, error) {
	return loadJSON[types.TradeExecutionRecord](s.executionsPath)
}

func (s *Store) saveExecutionsLocked(records []types.TradeExecutionRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return writeTempThenRename(s.executionsPath, data)
}
