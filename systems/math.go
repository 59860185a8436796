package systems

import "math"

// clamp limits x to [lo, hi].
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// logistic evaluates 1/(1+exp(-k(x-mid))).
func logistic(x, k, mid float64) float64 {
	return 1 / (1 + math.Exp(-k*(x-mid)))
}
