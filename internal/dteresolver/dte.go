// Package dteresolver implements the nearest-DTE-bucket mapping and the
// measured-move-completion (MMC) gate from spec §4.4.
package dteresolver

// Targets is the fixed set of DTE buckets the engine resolves against.
var Targets = []int{2, 7, 14, 30, 45}

// BucketResult is one resolved (or unresolved) target bucket.
type BucketResult struct {
	Target   int
	Selected *int
	Distance *int
}

// ResolveNearestDTEBuckets implements spec §4.4's resolve_nearest_dte_buckets:
// for each target, the closest positive integer DTE in availableDTEs, ties
// broken toward the lower DTE. Returns nil selection when availableDTEs
// holds no positive DTE (including when it is empty).
func ResolveNearestDTEBuckets(availableDTEs []int) []BucketResult {
	out := make([]BucketResult, 0, len(Targets))
	for _, target := range Targets {
		out = append(out, resolveOne(target, availableDTEs))
	}
	return out
}

func resolveOne(target int, available []int) BucketResult {
	found := false
	best, bestDist := 0, 0
	for _, dte := range available {
		if dte <= 0 {
			continue
		}
		dist := absInt(dte - target)
		if !found || dist < bestDist || (dist == bestDist && dte < best) {
			best = dte
			bestDist = dist
			found = true
		}
	}
	if !found {
		return BucketResult{Target: target}
	}

	selected := best
	distance := bestDist
	return BucketResult{Target: target, Selected: &selected, Distance: &distance}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// nearestBucket returns the bucket in Targets closest to dte, ties toward
// the lower bucket — used by MMC threshold lookup.
func nearestBucket(dte int) int {
	best := Targets[0]
	bestDist := absInt(best - dte)
	for _, t := range Targets[1:] {
		d := absInt(t - dte)
		if d < bestDist || (d == bestDist && t < best) {
			best = t
			bestDist = d
		}
	}
	return best
}

// Direction mirrors types.Direction's two values.
type Direction string

const (
	BullPut  Direction = "BULL_PUT"
	BearCall Direction = "BEAR_CALL"
)

var zThreshold = map[int]float64{45: 1.0, 30: 1.1, 14: 1.3, 7: 1.5, 2: 1.7}
var mmcStretchThreshold = map[int]float64{45: 0.85, 30: 1.0, 14: 1.25, 7: 1.55, 2: 1.9}

// MMCInput bundles the per-tick inputs to MeasuredMoveCompletionPass.
type MMCInput struct {
	Spot                   float64
	PrevSpot               float64
	EMA20                  float64
	PrevEMA20              float64
	Em1SD                  float64
	ZScore                 float64
	MACDHist               float64
	MACDHistPrev           float64
	Direction              Direction
	DTE                    int
	EnforceNotStillExtending bool
}

// MeasuredMoveCompletionPass implements spec §4.4's
// measured_move_completion_pass.
func MeasuredMoveCompletionPass(in MMCInput) bool {
	bucket := nearestBucket(in.DTE)
	zThr := zThreshold[bucket]
	stretchThr := mmcStretchThreshold[bucket]

	if in.Em1SD <= 0 {
		return false
	}

	stretch := absF(in.Spot-in.EMA20) / in.Em1SD
	zOK := absF(in.ZScore) >= zThr
	stretchOK := stretch >= stretchThr

	var momentumOK, signOK bool
	switch in.Direction {
	case BullPut:
		momentumOK = in.MACDHist > in.MACDHistPrev
		signOK = in.ZScore <= 0
	case BearCall:
		momentumOK = in.MACDHist < in.MACDHistPrev
		signOK = in.ZScore >= 0
	default:
		return false
	}

	pass := zOK && stretchOK && momentumOK && signOK
	if !pass {
		return false
	}

	if in.DTE <= 7 && in.EnforceNotStillExtending {
		prevStretch := absF(in.PrevSpot-in.PrevEMA20) / in.Em1SD
		if stretch > prevStretch {
			return false
		}
	}

	return true
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
