package datacontract

import (
	"fmt"
	"strings"

	"github.com/spxdesk/spread-engine/pkg/types"
)

// inferRequires maps a checklist row's name to the feeds it depends on,
// via the documented keyword mapping in spec §4.3.
func inferRequires(name string) []types.DataKey {
	lower := strings.ToLower(name)
	var out []types.DataKey
	add := func(keys ...types.DataKey) {
		out = append(out, keys...)
	}

	switch {
	case strings.Contains(lower, "liquidity"):
		add(types.KeyOptionChain)
	case strings.Contains(lower, "delta"), strings.Contains(lower, "pop"):
		add(types.KeyOptionChain, types.KeyGreeks)
	case strings.Contains(lower, "vwap"):
		add(types.KeyVWAP, types.KeyUnderlyingPrice)
	case strings.Contains(lower, "atr"):
		add(types.KeyATR1m5)
	case strings.Contains(lower, "regime"), strings.Contains(lower, "trend"), strings.Contains(lower, "mtf"):
		add(types.KeyRegime, types.KeyIntradayCandles)
	}
	return out
}

// ApplyToRows implements spec §4.3's apply_contract_to_rows: annotates each
// checklist row's `requires` via keyword inference, then blocks/rewrites the
// row per the contract's per-feed validity, in place.
func ApplyToRows(rows []types.ChecklistItem, contract Result) []types.ChecklistItem {
	for i := range rows {
		row := &rows[i]
		if len(row.Requires) == 0 {
			row.Requires = inferRequires(row.Name)
		}

		if row.Status == types.StatusNA || !row.Required {
			continue
		}

		if contract.Status == Degraded {
			for _, key := range row.Requires {
				dk := DataKey(key)
				vf, ok := contract.Feeds[dk]
				if ok && !vf.IsValid {
					row.Status = types.StatusBlocked
					row.Detail = fmt.Sprintf("stale/missing feed: %s (age=%dms, max=%dms, source=%s)",
						dk, vf.AgeMs, MaxAgeMs(dk), vf.Source)
					if row.DataAges == nil {
						row.DataAges = map[types.DataKey]*int64{}
					}
					age := vf.AgeMs
					row.DataAges[key] = &age
					break
				}
			}
		}

		if row.Status == types.StatusFail && row.Detail == "data missing" {
			row.Detail = "Threshold failed with fresh data."
		}
	}
	return rows
}
