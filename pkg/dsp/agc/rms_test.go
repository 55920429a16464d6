package agc

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRMSConverges(t *testing.T) {
	tests := []struct {
		level complex64
		gain  float64
	}{
		{5, 1},
		{complex(0, 0.01), 1},
		{complex(3, 4), 2},
	}

	for _, tt := range tests {
		in := make([]complex64, 20000)
		for i := range in {
			in[i] = tt.level
		}
		out := NewRMS(1e-3, tt.gain).Work(in)
		last := complex128(out[len(out)-1])
		assert.InDelta(t, tt.gain, cmplx.Abs(last), 1e-3, "level %v", tt.level)
		assert.InDelta(t, cmplx.Phase(complex128(tt.level)), cmplx.Phase(last), 1e-6)
	}
}

func TestRMSSilence(t *testing.T) {
	r := NewRMS(0.5, 1)
	out := r.Work(make([]complex64, 100))
	for _, v := range out {
		assert.Equal(t, complex64(0), v)
	}
	assert.Equal(t, 7, r.PredictOutputSize(7))
}

func TestRMSSeedsFromFirstSample(t *testing.T) {
	in := make([]complex64, 10)
	for i := 3; i < len(in); i++ {
		in[i] = complex(0, 0.1)
	}
	out := NewRMS(1e-3, 1).Work(in)
	for i, v := range out {
		if i < 3 {
			assert.Equal(t, complex64(0), v)
			continue
		}
		assert.InDelta(t, 1, cmplx.Abs(complex128(v)), 1e-6, "sample %d", i)
	}
}
