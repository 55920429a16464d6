package util

import "fmt"

func GCD(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// RationalFactors reduces num/den, the resampling ratio output/input, to
// interpolation and decimation factors.
func RationalFactors(num, den int) (interp, decim int) {
	g := GCD(num, den)
	if g == 0 {
		return 0, 0
	}
	return num / g, den / g
}

// MHz formats a frequency for log output.
func MHz(hz float64) string {
	return fmt.Sprintf("%.6f MHz", hz/1e6)
}
