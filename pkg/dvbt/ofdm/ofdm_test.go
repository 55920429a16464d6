package ofdm

import (
	"errors"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/norasector/dvbtsync/pkg/dvbt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func complexSlice(t *rapid.T, n int, label string) []complex128 {
	re := rapid.SliceOfN(rapid.Float64Range(-100, 100), n, n).Draw(t, label+"_re")
	im := rapid.SliceOfN(rapid.Float64Range(-100, 100), n, n).Draw(t, label+"_im")
	ret := make([]complex128, n)
	for i := range ret {
		ret[i] = complex(re[i], im[i])
	}
	return ret
}

func TestGuardBandRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		k := rapid.IntRange(1, 300).Draw(t, "k")
		fftLength := k + rapid.IntRange(0, 50).Draw(t, "pad")
		x := complexSlice(t, k, "x")

		padded, err := ToggleGuardBand(x, fftLength, k, Add)
		if err != nil {
			t.Fatal(err)
		}
		if len(padded) != fftLength {
			t.Fatalf("padded length %d, want %d", len(padded), fftLength)
		}
		low, high := dvbt.GuardBand(fftLength, k)
		for i := 0; i < low; i++ {
			if padded[i] != 0 {
				t.Fatalf("low guard bin %d not zero", i)
			}
		}
		for i := fftLength - high; i < fftLength; i++ {
			if padded[i] != 0 {
				t.Fatalf("high guard bin %d not zero", i)
			}
		}

		back, err := ToggleGuardBand(padded, fftLength, k, Remove)
		if err != nil {
			t.Fatal(err)
		}
		for i := range x {
			if back[i] != x[i] {
				t.Fatalf("carrier %d: got %v want %v", i, back[i], x[i])
			}
		}
	})
}

func TestCyclicPrefixRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 300).Draw(t, "n")
		cp := rapid.IntRange(0, n).Draw(t, "cp")
		x := complexSlice(t, n, "x")

		with, err := ToggleCyclicPrefix(x, cp, Add)
		if err != nil {
			t.Fatal(err)
		}
		if len(with) != n+cp {
			t.Fatalf("length %d, want %d", len(with), n+cp)
		}
		for i := 0; i < cp; i++ {
			if with[i] != x[n-cp+i] {
				t.Fatalf("prefix sample %d is not a copy of the symbol tail", i)
			}
		}

		back, err := ToggleCyclicPrefix(with, cp, Remove)
		if err != nil {
			t.Fatal(err)
		}
		for i := range x {
			if back[i] != x[i] {
				t.Fatalf("sample %d: got %v want %v", i, back[i], x[i])
			}
		}
	})
}

func TestToggleErrors(t *testing.T) {
	_, err := ToggleGuardBand(make([]complex128, 10), 20, 10, "sideways")
	assert.True(t, errors.Is(err, dvbt.ErrInvalidDirection))

	_, err = ToggleCyclicPrefix(make([]complex128, 10), 2, "sideways")
	assert.True(t, errors.Is(err, dvbt.ErrInvalidDirection))

	_, err = ToggleGuardBand(make([]complex128, 11), 20, 10, Add)
	assert.True(t, errors.Is(err, dvbt.ErrInvalidLength))

	_, err = ParseDirection("x")
	assert.True(t, errors.Is(err, dvbt.ErrInvalidDirection))

	for in, want := range map[string]Direction{"a": Add, "add": Add, "r": Remove, "rmv": Remove, "remove": Remove} {
		got, err := ParseDirection(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestSpectrumCentersDC(t *testing.T) {
	f := NewFramer(WithLogger(zerolog.Nop()))
	x := make([]complex128, 16)
	for i := range x {
		x[i] = 1
	}
	s := f.Spectrum(x)
	assert.InDelta(t, 16, cmplx.Abs(s[8]), 1e-9)
	for i, v := range s {
		if i != 8 {
			assert.InDelta(t, 0, cmplx.Abs(v), 1e-9, "bin %d", i)
		}
	}

	back := f.Waveform(s)
	for i := range x {
		assert.InDelta(t, 0, cmplx.Abs(back[i]-x[i]), 1e-12)
	}
}

func TestFramerRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, params := range dvbt.AllParams() {
		t.Run(params.String(), func(t *testing.T) {
			const symbols = 2
			x := make([]complex128, symbols*params.ActiveCarriers)
			for i := range x {
				x[i] = complex(rng.NormFloat64(), rng.NormFloat64())
			}

			f := NewFramer(WithLogger(zerolog.Nop()))
			td, err := f.FrequencyToTimeSymbols(params, x)
			require.NoError(t, err)
			require.Len(t, td, symbols*params.SymbolLength())

			fd, err := f.TimeToFrequencySymbols(params, td)
			require.NoError(t, err)
			require.Len(t, fd, len(x))
			assert.Zero(t, f.Dropped())
			for i := range x {
				if cmplx.Abs(fd[i]-x[i]) > 1e-6*(1+cmplx.Abs(x[i])) {
					t.Fatalf("carrier %d: got %v want %v", i, fd[i], x[i])
				}
			}
		})
	}
}

func TestTimeToFrequencyDropsPartialSymbol(t *testing.T) {
	params := mustParams(t, 2, 32)
	f := NewFramer(WithLogger(zerolog.Nop()))
	samples := make([]complex128, 2*params.SymbolLength()+100)
	fd, err := f.TimeToFrequencySymbols(params, samples)
	require.NoError(t, err)
	assert.Len(t, fd, 2*params.ActiveCarriers)
	assert.Equal(t, 100, f.Dropped())

	fd, err = f.TimeToFrequencySymbols(params, samples[:params.SymbolLength()-1])
	require.NoError(t, err)
	assert.Empty(t, fd)
}

func TestFrequencyToTimeRejectsPartialSymbol(t *testing.T) {
	params := mustParams(t, 2, 4)
	_, err := FrequencyToTimeSymbols(params, make([]complex128, params.ActiveCarriers+1))
	assert.True(t, errors.Is(err, dvbt.ErrInvalidLength))
}

func mustParams(t *testing.T, mode, cp int) dvbt.ModeParameters {
	t.Helper()
	p, err := dvbt.Params(mode, cp)
	require.NoError(t, err)
	return p
}
