// Package correlate computes FFT based complex cross-correlations with the
// output conventions of the usual valid and same modes.
package correlate

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/mjibson/go-dsp/dsputils"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// full returns r with r[m] = sum_n a[n+m] * conj(v[n]). Non-negative lags m
// live at r[m], negative lags at r[size+m].
func full(a, v []complex128) ([]complex128, int) {
	size := dsputils.NextPowerOf2(len(a) + len(v) - 1)
	fa := fft.FFT(dsputils.ZeroPad(a, size))
	fv := fft.FFT(dsputils.ZeroPad(v, size))
	for i := range fa {
		fa[i] *= cmplx.Conj(fv[i])
	}
	return fft.IFFT(fa), size
}

// Valid returns the len(a)-len(v)+1 lags at which v lies entirely inside a.
// It returns nil when v is longer than a or either input is empty.
func Valid(a, v []complex128) []complex128 {
	if len(v) == 0 || len(a) < len(v) {
		return nil
	}
	r, _ := full(a, v)
	ret := make([]complex128, len(a)-len(v)+1)
	copy(ret, r)
	return ret
}

// Same returns max(len(a), len(v)) lags centred on zero; out[i] holds lag
// i - len(v)/2 when len(a) >= len(v).
func Same(a, v []complex128) []complex128 {
	if len(a) == 0 || len(v) == 0 {
		return nil
	}
	n := len(a)
	if len(v) > n {
		n = len(v)
	}
	r, size := full(a, v)

	// position of lag 0 in the full-mode output
	zero := len(v) - 1
	start := (len(a) + len(v) - 1 - n) / 2
	ret := make([]complex128, n)
	for i := range ret {
		lag := start + i - zero
		if lag < 0 {
			lag += size
		}
		ret[i] = r[lag]
	}
	return ret
}

// Norm is the Euclidean norm of x.
func Norm(x []complex128) float64 {
	var sum float64
	for _, v := range x {
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(sum)
}

// Normalize divides r in place by sqrt(Norm(a)*Norm(v)). Zero norms leave r untouched.
func Normalize(r, a, v []complex128) []complex128 {
	d := math.Sqrt(Norm(a) * Norm(v))
	if d == 0 {
		return r
	}
	scale := complex(1/d, 0)
	for i := range r {
		r[i] *= scale
	}
	return r
}

// Magnitude returns |x| element-wise.
func Magnitude(x []complex128) []float64 {
	ret := make([]float64, len(x))
	for i, v := range x {
		ret[i] = cmplx.Abs(v)
	}
	return ret
}

// GreedyPeaks returns the indices of the n largest values of mag in extraction
// order: each round takes the current argmax and zeroes it. mag is not modified.
// Ties resolve to the lowest index.
func GreedyPeaks(mag []float64, n int) []int {
	if len(mag) == 0 {
		return nil
	}
	if n > len(mag) {
		n = len(mag)
	}
	work := make([]float64, len(mag))
	copy(work, mag)

	ret := make([]int, 0, n)
	for len(ret) < n {
		best := floats.MaxIdx(work)
		ret = append(ret, best)
		work[best] = 0
	}
	return ret
}

// Sorted returns an ascending copy of idx.
func Sorted(idx []int) []int {
	ret := make([]int, len(idx))
	copy(ret, idx)
	sort.Ints(ret)
	return ret
}
