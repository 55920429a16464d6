package correlate

import (
	"math/cmplx"
	"testing"

	"github.com/mjibson/go-dsp/dsputils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// direct computes sum_n a[n+lag] * conj(v[n]) by brute force.
func direct(a, v []complex128, lag int) complex128 {
	var sum complex128
	for n := range v {
		i := n + lag
		if i < 0 || i >= len(a) {
			continue
		}
		sum += a[i] * cmplx.Conj(v[n])
	}
	return sum
}

var (
	testA = []complex128{1 + 2i, -1, 3i, 2 - 1i, 0.5, -2 + 2i, 1, 4 - 3i, -1i}
	testV = []complex128{2 - 1i, 1i, -1 + 0.5i}
)

func TestValid(t *testing.T) {
	got := Valid(testA, testV)
	require.Len(t, got, len(testA)-len(testV)+1)

	want := make([]complex128, len(got))
	for lag := range want {
		want[lag] = direct(testA, testV, lag)
	}
	assert.True(t, dsputils.PrettyCloseC(want, got), "got %v want %v", got, want)

	assert.Nil(t, Valid(testV, testA))
	assert.Nil(t, Valid(testA, nil))
}

func TestSame(t *testing.T) {
	tests := []struct {
		name string
		a, v []complex128
	}{
		{"longer signal", testA, testV},
		{"equal even", testA[:8], []complex128{1, 2i, -1, 0.5, 3, -1i, 2, 1 + 1i}},
		{"equal odd", testA[:7], testA[2:9]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Same(tt.a, tt.v)
			require.Len(t, got, len(tt.a))
			want := make([]complex128, len(got))
			for i := range want {
				want[i] = direct(tt.a, tt.v, i-len(tt.v)/2)
			}
			assert.True(t, dsputils.PrettyCloseC(want, got), "got %v want %v", got, want)
		})
	}
}

func TestSameFindsShift(t *testing.T) {
	const n = 64
	v := make([]complex128, n)
	for i := range v {
		v[i] = complex(float64((i*7)%5)-2, float64((i*3)%4)-1.5)
	}
	a := make([]complex128, n)
	for i := 5; i < n; i++ {
		a[i] = v[i-5]
	}
	mag := Magnitude(Same(a, v))
	assert.Equal(t, []int{n/2 + 5}, GreedyPeaks(mag, 1))
}

func TestNormalize(t *testing.T) {
	a := []complex128{3, 4i}
	v := []complex128{0, 5}
	assert.InDelta(t, 5, Norm(a), 1e-12)

	r := Normalize([]complex128{10, 20}, a, v)
	assert.InDelta(t, 2, real(r[0]), 1e-12)
	assert.InDelta(t, 4, real(r[1]), 1e-12)

	r = Normalize([]complex128{10}, a, nil)
	assert.Equal(t, []complex128{10}, r)
}

func TestGreedyPeaks(t *testing.T) {
	mag := []float64{0.1, 5, 0.3, 5, 9, 0.2, 1}
	got := GreedyPeaks(mag, 3)
	assert.Equal(t, []int{4, 1, 3}, got)
	assert.Equal(t, []int{1, 3, 4}, Sorted(got))
	assert.Equal(t, 9.0, mag[4], "input must not be modified")

	assert.Len(t, GreedyPeaks(mag, 20), len(mag))
	assert.Nil(t, GreedyPeaks(nil, 3))
}
