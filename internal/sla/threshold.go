package sla

// Breaches reports whether a value breaches its threshold for the given
// direction: below the bar when higher is better, above it when lower
// is better. Sitting exactly on the threshold is compliant either way.
func Breaches(value, threshold float64, d Direction) bool {
	if d == LowerIsBetter {
		return value > threshold
	}
	return value < threshold
}
