// Package utils provides ID generation, hashing, and rounding helpers
// shared across the decision engine.
package utils

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// randomHex returns n random bytes hex-encoded.
func randomHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// GenerateTradeID builds a trade_id per spec §6: "trd_" + base36(now_ms) + "_" + 6 random hex.
func GenerateTradeID(nowMs int64) string {
	return fmt.Sprintf("trd_%s_%s", strconv.FormatInt(nowMs, 36), randomHex(3))
}

// GenerateEventID builds an event_id per spec §6: "evt_" + base36(now_ms) + "_" + 8 random hex.
func GenerateEventID(nowMs int64) string {
	return fmt.Sprintf("evt_%s_%s", strconv.FormatInt(nowMs, 36), randomHex(4))
}

// RoundCents rounds a decimal to 2 places, matching the candidate_id hash input.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// CandidateID builds the content-addressed candidate_id per spec §6:
// "cand_" + first16(hex(sha1(f"{dte_bucket}|{direction}|{expiration_yyyy_mm_dd}|{round(short*100)/100}|{round(long*100)/100}|{round(width)}")))
func CandidateID(dteBucket int, direction, expirationYMD string, short, long, width decimal.Decimal) string {
	key := fmt.Sprintf("%d|%s|%s|%s|%s|%s",
		dteBucket,
		direction,
		expirationYMD,
		RoundCents(short).StringFixed(2),
		RoundCents(long).StringFixed(2),
		width.Round(0).StringFixed(0),
	)
	sum := sha1.Sum([]byte(key))
	return "cand_" + hex.EncodeToString(sum[:])[:16]
}

// RunID builds a run_id per spec §6: "dec_" + first12(hex(sha1(f"{as_of}|{source}|{data_mode}|{session}|{candidate_count}")))
func RunID(asOf, source, dataMode, session string, candidateCount int) string {
	key := fmt.Sprintf("%s|%s|%s|%s|%d", asOf, source, dataMode, session, candidateCount)
	sum := sha1.Sum([]byte(key))
	return "dec_" + hex.EncodeToString(sum[:])[:12]
}

// NormalizeIV converts a raw IV value to decimal form: values > 3 are
// treated as a percent and divided by 100, per spec §4.1/§9.
func NormalizeIV(raw float64) float64 {
	if raw > 3 {
		return raw / 100
	}
	return raw
}

// Hash64 returns a deterministic 64-bit FNV-1a-free hash of a string,
// used as the SplitMix64 PRNG seed base for Monte Carlo EV (spec §9).
// It deliberately avoids the stdlib hash/fnv so the ported value stays
// a pure function of crypto/sha1, matching the way candidate/run IDs
// are derived elsewhere in this package.
func Hash64(s string) uint64 {
	sum := sha1.Sum([]byte(s))
	var v uint64
	for i := 0; i < 8; i++ {
		v = (v << 8) | uint64(sum[i])
	}
	return v
}

// Clamp restricts x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// ClampInt restricts x to [lo, hi].
func ClampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// SlugMatch reports whether any of the keywords appear (case-insensitively)
// as a substring of name, used by the polling controller to detect the
// measured-move (MMC) checklist row.
func SlugMatch(name string, keywords ...string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
