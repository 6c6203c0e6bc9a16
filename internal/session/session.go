// Package session implements US regular-trading-hours detection and the
// source-tag-driven data-mode resolver from spec §6.
package session

import (
	"regexp"
	"time"

	"github.com/spxdesk/spread-engine/pkg/types"
)

var newYork *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	newYork = loc
}

// IsRTH reports whether now falls within US regular trading hours:
// Mon-Fri, 09:30-16:00 America/New_York (minute-of-day in [570, 960)).
func IsRTH(now time.Time) bool {
	local := now.In(newYork)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	minuteOfDay := local.Hour()*60 + local.Minute()
	return minuteOfDay >= 570 && minuteOfDay < 960
}

// ChartInstrument returns the instrument the UI should chart: SPX during
// RTH, the ES futures continuation otherwise.
func ChartInstrument(now time.Time) string {
	if IsRTH(now) {
		return "SPX"
	}
	return "ES"
}

var (
	liveSource       = regexp.MustCompile(`(?i)live`)
	delayedSource    = regexp.MustCompile(`(?i)live|partial|delayed|cache`)
	historicalSource = regexp.MustCompile(`(?i)snapshot-log|historical|stooq|archive`)
	fixtureSource    = regexp.MustCompile(`(?i)fixture|inactive|market-closed`)
)

// ResolveDataMode implements spec §6's data-mode resolution table.
func ResolveDataMode(sourceTag string, sessionState types.SessionState, simulation bool, coreFeedsFresh bool) types.DataMode {
	switch {
	case liveSource.MatchString(sourceTag) && coreFeedsFresh:
		return types.DataModeLive
	case delayedSource.MatchString(sourceTag) && !coreFeedsFresh:
		return types.DataModeDelayed
	case historicalSource.MatchString(sourceTag):
		return types.DataModeHistorical
	case fixtureSource.MatchString(sourceTag) && simulation:
		return types.DataModeHistorical
	case sessionState == types.SessionClosed:
		return types.DataModeFixture
	default:
		return types.DataModeFixture
	}
}
