// Package datacontract implements the per-feed freshness contract and
// checklist-row annotation described in spec §4.3.
package datacontract

import (
	"fmt"
	"time"
)

// DataKey enumerates the nine tracked feeds.
type DataKey string

const (
	UnderlyingPrice  DataKey = "underlying_price"
	OptionChain      DataKey = "option_chain"
	Greeks           DataKey = "greeks"
	IntradayCandles  DataKey = "intraday_candles"
	VWAP             DataKey = "vwap"
	ATR1m5           DataKey = "atr_1m_5"
	RealizedRange15m DataKey = "realized_range_15m"
	ExpectedMove     DataKey = "expected_move"
	Regime           DataKey = "regime"
)

// maxAgeMs holds the fixed per-feed max ages from spec §4.3.
var maxAgeMs = map[DataKey]int64{
	UnderlyingPrice:  15_000,
	OptionChain:      20_000,
	Greeks:           20_000,
	IntradayCandles:  90_000,
	VWAP:             90_000,
	ATR1m5:           90_000,
	RealizedRange15m: 180_000,
	ExpectedMove:     300_000,
	Regime:           30_000,
}

// MaxAgeMs returns the configured max age for key, or 0 if unknown.
func MaxAgeMs(key DataKey) int64 {
	return maxAgeMs[key]
}

// Feed is one raw `(value, timestamp, source, error)` tuple from the snapshot.
type Feed struct {
	Value     any
	Timestamp time.Time
	Source    string
	Error     string
}

// ValidatedFeed is the per-feed outcome of the contract evaluation.
type ValidatedFeed struct {
	Key      DataKey
	IsValid  bool
	AgeMs    int64
	Reason   string
	Source   string
}

// Issue is one contract-level problem surfaced by Evaluate.
type Issue struct {
	Key    DataKey
	Reason string
}

// Status is the overall contract health.
type Status string

const (
	Healthy  Status = "healthy"
	Degraded Status = "degraded"
	Inactive Status = "inactive"
)

// Result is the full output of Evaluate.
type Result struct {
	Status Status
	Feeds  map[DataKey]ValidatedFeed
	Issues []Issue
}

// Options controls Evaluate's market-closed behavior.
type Options struct {
	AllowClosedEvaluation bool
}

// coreFeeds are the feeds spec §6's data-mode resolution table treats as
// "core": live data is only LIVE when all three are valid.
var coreFeeds = []DataKey{UnderlyingPrice, OptionChain, Greeks}

// CoreFeedsFresh reports whether every core feed (underlying price, option
// chain, greeks) validated fresh, the coreFeedsFresh input to
// session.ResolveDataMode.
func (r Result) CoreFeedsFresh() bool {
	for _, key := range coreFeeds {
		vf, ok := r.Feeds[key]
		if !ok || !vf.IsValid {
			return false
		}
	}
	return true
}

// isValidValue is the predicate for a feed value: the feed carries no
// error string and its value is non-nil. The snapshot's per-feed values are
// opaque `any` payloads (spec §3), so no numeric range or finiteness check
// is made; the timestamp checks are done by Evaluate.
func isValidValue(v any, errStr string) bool {
	if errStr != "" {
		return false
	}
	return v != nil
}

// Evaluate implements spec §4.3's evaluate_data_contract.
func Evaluate(feeds map[DataKey]Feed, now time.Time, sessionClosed bool, opts Options) Result {
	if sessionClosed && !opts.AllowClosedEvaluation {
		result := Result{Status: Inactive, Feeds: map[DataKey]ValidatedFeed{}}
		for key := range maxAgeMs {
			result.Feeds[key] = ValidatedFeed{Key: key, IsValid: false, Reason: "Market closed"}
		}
		return result
	}

	result := Result{Feeds: map[DataKey]ValidatedFeed{}}
	for key, maxAge := range maxAgeMs {
		feed, present := feeds[key]
		if !present {
			result.Feeds[key] = ValidatedFeed{Key: key, IsValid: false, Reason: "missing feed", AgeMs: -1}
			result.Issues = append(result.Issues, Issue{Key: key, Reason: "missing feed"})
			continue
		}

		age := now.Sub(feed.Timestamp).Milliseconds()
		valid := isValidValue(feed.Value, feed.Error) && age <= maxAge && age >= 0

		vf := ValidatedFeed{Key: key, IsValid: valid, AgeMs: age, Source: feed.Source}
		if !valid {
			switch {
			case feed.Error != "":
				vf.Reason = feed.Error
			case feed.Value == nil:
				vf.Reason = "missing value"
			case age < 0:
				vf.Reason = "timestamp in the future"
			default:
				vf.Reason = fmt.Sprintf("stale: age=%dms max=%dms", age, maxAge)
			}
			result.Issues = append(result.Issues, Issue{Key: key, Reason: vf.Reason})
		}
		result.Feeds[key] = vf
	}

	if len(result.Issues) == 0 {
		result.Status = Healthy
	} else {
		result.Status = Degraded
	}
	return result
}
