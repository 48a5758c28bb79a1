package bank

// DeltaTiers maps reliability to the rate spread a bank applies to new
// deposits and credits. Tiers are scanned top-down; the first match wins.
var DeltaTiers = []struct {
	Threshold float64
	Inclusive bool
	Delta     float64
}{
	{1.00, true, 0.03},
	{0.75, false, 0.02},
	{0.60, false, 0.01},
}

// DefaultDelta applies below the lowest tier.
const DefaultDelta = 0.0

// DeltaFor maps a reliability value to its rate adjustment.
func DeltaFor(reliability float64) float64 {
	for _, t := range DeltaTiers {
		if reliability > t.Threshold || (t.Inclusive && reliability == t.Threshold) {
			return t.Delta
		}
	}
	return DefaultDelta
}
