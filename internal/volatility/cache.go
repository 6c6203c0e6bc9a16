// Package volatility implements the IV-sample cache, percentile/regime
// classifier, shock detector, and policy overlay described in spec §4.2.
package volatility

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spxdesk/spread-engine/pkg/utils"
)

// Sample is one recorded ATM-IV observation, matching types.IvSample's
// wire shape without importing pkg/types (this package is consumed by
// pkg/types-free callers in tests and is kept dependency-light, matching
// the teacher's internal/regime package's self-contained style).
type Sample struct {
	TsISO string  `json:"ts_iso"`
	IVAtm float64 `json:"iv_atm"`
}

// Cache is the rolling IV-sample window, persisted to a single JSON file.
// Writes are atomic at the file granularity (write-temp-then-rename),
// grounded on spec §5/§9 — the teacher's internal/data/store.go writes
// directly and is generalized here to close that gap (see DESIGN.md).
type Cache struct {
	logger *zap.Logger
	path   string
}

// NewCache opens (but does not yet load) the IV cache at path.
func NewCache(logger *zap.Logger, path string) *Cache {
	return &Cache{logger: logger, path: path}
}

// Load reads the persisted sample list, ordered ascending by timestamp.
// A missing file is treated as an empty cache, per spec §9.
func (c *Cache) Load() ([]Sample, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Sample{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return []Sample{}, nil
	}
	var samples []Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, err
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].TsISO < samples[j].TsISO })
	return samples, nil
}

// save atomically rewrites the cache file via temp-file + rename.
func (c *Cache) save(samples []Sample) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".iv_cache_*.tmp")
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
	return os.Rename(tmpPath, c.path)
}

// Record implements spec §4.2's record(sample, lookback_days, max_samples):
// upserts by timestamp, filters to ts >= now-lookback, sorts ascending,
// truncates to the most recent max_samples.
func (c *Cache) Record(sample Sample, lookbackDays int, maxSamples int, now time.Time) error {
	samples, err := c.Load()
	if err != nil {
		return err
	}

	upserted := false
	for i := range samples {
		if samples[i].TsISO == sample.TsISO {
			samples[i] = sample
			upserted = true
			break
		}
	}
	if !upserted {
		samples = append(samples, sample)
	}

	cutoff := now.AddDate(0, 0, -lookbackDays)
	filtered := samples[:0:0]
	for _, s := range samples {
		ts, err := time.Parse(time.RFC3339, s.TsISO)
		if err != nil || !ts.Before(cutoff) {
			filtered = append(filtered, s)
		}
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].TsISO < filtered[j].TsISO })

	if maxSamples > 0 && len(filtered) > maxSamples {
		filtered = filtered[len(filtered)-maxSamples:]
	}

	return c.save(filtered)
}

// ComputePercentile implements spec §4.2's compute_percentile: the
// percentile rank of currentIV among samples with ts >= asOf-lookback.
func ComputePercentile(currentIV float64, samples []Sample, lookbackDays int, asOf time.Time) (pctl *float64, sampleCount int, insufficient bool) {
	cutoff := asOf.AddDate(0, 0, -lookbackDays)

	var windowed []Sample
	for _, s := range samples {
		ts, err := time.Parse(time.RFC3339, s.TsISO)
		if err != nil {
			continue
		}
		if !ts.Before(cutoff) {
			windowed = append(windowed, s)
		}
	}

	n := len(windowed)
	if n == 0 {
		return nil, 0, true
	}

	atOrBelow := 0
	for _, s := range windowed {
		if s.IVAtm <= currentIV {
			atOrBelow++
		}
	}
	p := float64(atOrBelow) / float64(n) * 100
	return &p, n, false
}

// NormalizeIV is re-exported for callers outside this package.
func NormalizeIV(raw float64) float64 { return utils.NormalizeIV(raw) }
