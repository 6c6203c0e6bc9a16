package candidates

import (
	"strings"

	"github.com/spxdesk/spread-engine/pkg/types"
)

// softCodeForRow infers a closed decision code from a failed required row's
// name, per spec §4.5's documented keyword table. HARD_GATES_NOT_MET is the
// fallback when nothing matches.
func softCodeForRow(name string) types.DecisionCode {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "delta"):
		return types.CodeDeltaOutOfBand
	case strings.Contains(lower, "sd"), strings.Contains(lower, "standard deviation"), strings.Contains(lower, "stretch"):
		return types.CodeSDMultipleLow
	case strings.Contains(lower, "measured move"), strings.Contains(lower, "mmc"):
		return types.CodeMMCGateFail
	case strings.Contains(lower, "support"), strings.Contains(lower, "resistance"), strings.Contains(lower, "buffer"):
		return types.CodeSRBufferThin
	case strings.Contains(lower, "trend"), strings.Contains(lower, "mtf"):
		return types.CodeTrendMismatch
	case strings.Contains(lower, "credit"):
		return types.CodeLowCreditEfficiency
	default:
		return types.CodeHardGatesNotMet
	}
}

// optionalCodeForRow classifies a failed optional row as a liquidity or
// slippage soft warning, per spec §4.5.
func optionalCodeForRow(name string) types.DecisionCode {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "slippage") || strings.Contains(lower, "spread") {
		return types.CodeSoftSlippageWarning
	}
	return types.CodeSoftLiquidityWarning
}
