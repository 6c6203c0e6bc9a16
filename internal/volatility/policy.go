package volatility

// BucketAdjustment is a per-bucket threshold nudge applied by the policy
// overlay (spec §4.2's table).
type BucketAdjustment struct {
	DeltaBandShift    float64
	MinSDShift        float64
	MinCreditPctShift float64
}

// Policy is the result of ApplyVolPolicy: which DTE buckets are allowed
// and what per-bucket adjustments apply.
type Policy struct {
	AllowedBuckets []int
	Disabled       []int
	Adjustments    map[int]BucketAdjustment
}

var allBuckets = []int{2, 7, 14, 30, 45}

// ApplyVolPolicy implements spec §4.2's apply_vol_policy table.
func ApplyVolPolicy(regime Regime, cfg Config) Policy {
	switch regime {
	case Suppressed:
		return Policy{
			AllowedBuckets: []int{2, 7, 14, 30},
			Disabled:       diff(allBuckets, []int{2, 7, 14, 30}),
			Adjustments: map[int]BucketAdjustment{
				2: {DeltaBandShift: -0.01, MinSDShift: 0.10, MinCreditPctShift: 0.01},
				7: {MinSDShift: 0.05},
			},
		}
	case Expanding:
		allowed := []int{7, 14, 30, 45}
		if cfg.PolicyExpandingAllow2DTE {
			allowed = append([]int{2}, allowed...)
		}
		return Policy{
			AllowedBuckets: allowed,
			Disabled:       diff(allBuckets, allowed),
			Adjustments: map[int]BucketAdjustment{
				7:  {MinSDShift: 0.10},
				14: {MinSDShift: 0.10},
				30: {MinSDShift: 0.10},
			},
		}
	case Extreme:
		allowed := []int{30, 45}
		if cfg.PolicyExtremeBlockAll {
			allowed = []int{}
		}
		return Policy{
			AllowedBuckets: allowed,
			Disabled:       diff(allBuckets, allowed),
			Adjustments: map[int]BucketAdjustment{
				30: {MinSDShift: 0.20, MinCreditPctShift: 0.02},
				45: {MinSDShift: 0.20, MinCreditPctShift: 0.02},
			},
		}
	default: // Normal, Unknown
		return Policy{
			AllowedBuckets: append([]int{}, allBuckets...),
		}
	}
}

func diff(all, allowed []int) []int {
	allowedSet := make(map[int]bool, len(allowed))
	for _, v := range allowed {
		allowedSet[v] = true
	}
	var out []int
	for _, v := range all {
		if !allowedSet[v] {
			out = append(out, v)
		}
	}
	return out
}

// IsAllowed reports whether bucket is allowed under this policy.
func (p Policy) IsAllowed(bucket int) bool {
	for _, v := range p.AllowedBuckets {
		if v == bucket {
			return true
		}
	}
	return false
}
