package pilot

import (
	"errors"
	"math/cmplx"
	"reflect"
	"testing"

	"github.com/norasector/dvbtsync/pkg/dvbt"
	"github.com/norasector/dvbtsync/pkg/dvbt/ofdm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPRBS(t *testing.T) {
	want := []byte{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0}
	got := PRBS(16)
	if !reflect.DeepEqual(want, got) {
		t.Errorf("first 16 bits: got %v want %v", got, want)
	}

	// continues 0000 1100 0000 0111
	got = PRBS(32)
	want32 := []byte{
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1,
	}
	if !reflect.DeepEqual(want32, got) {
		t.Errorf("first 32 bits: got %v want %v", got, want32)
	}
}

func TestPRBSDeterministic(t *testing.T) {
	a := PRBS(6817)
	b := PRBS(6817)
	assert.Equal(t, a, b)
	assert.Equal(t, a[:1705], PRBS(1705))
	// 2^11-1 period
	assert.Equal(t, a[:100], a[2047:2147])
}

func TestContinuousPositions(t *testing.T) {
	tests := []struct {
		k     int
		count int
		last  int
	}{
		{1705, 45, 1704},
		{6817, 177, 6816},
	}
	for _, tt := range tests {
		pos, err := ContinuousPositions(tt.k)
		require.NoError(t, err)
		assert.Len(t, pos, tt.count)
		assert.Equal(t, 0, pos[0])
		assert.Equal(t, tt.last, pos[len(pos)-1])
		for i := 1; i < len(pos); i++ {
			assert.Less(t, pos[i-1], pos[i])
		}
	}

	_, err := ContinuousPositions(1000)
	assert.True(t, errors.Is(err, dvbt.ErrInvalidCarrierCount))
}

func TestContinuousWaveform(t *testing.T) {
	for _, k := range []int{1705, 6817} {
		w, err := ContinuousWaveform(k)
		require.NoError(t, err)
		require.Len(t, w, k)

		pos, _ := ContinuousPositions(k)
		isPilot := make(map[int]bool)
		for _, p := range pos {
			isPilot[p] = true
		}
		prbs := PRBS(k)
		nonZero := 0
		for i, v := range w {
			if v == 0 {
				assert.False(t, isPilot[i], "pilot %d is zero", i)
				continue
			}
			nonZero++
			assert.True(t, isPilot[i], "carrier %d is not a pilot", i)
			want := 8.0 / 3
			if prbs[i] == 1 {
				want = -want
			}
			assert.InDelta(t, want, real(v), 1e-12)
			assert.Zero(t, imag(v))
		}
		assert.Equal(t, len(pos), nonZero)
	}
}

func TestScatteredWaveform(t *testing.T) {
	const k = 1705
	continuous, err := ContinuousWaveform(k)
	require.NoError(t, err)

	for s := 0; s < 4; s++ {
		sym, err := ScatteredWaveform(k, s, continuous)
		require.NoError(t, err)
		for i, v := range sym {
			onGrid := i%12 == 3*(s%4)
			switch {
			case !onGrid:
				assert.Zero(t, v, "symbol %d carrier %d", s, i)
			case continuous[i] != 0:
				assert.Zero(t, v, "symbol %d carrier %d overlaps a continual pilot", s, i)
			default:
				assert.InDelta(t, 8.0/3, cmplx.Abs(v), 1e-12)
			}
		}
	}

	// without exclusion carrier 0 of symbol 0 is a scattered pilot
	sym, err := ScatteredWaveform(k, 0, nil)
	require.NoError(t, err)
	assert.NotZero(t, sym[0])

	// symbol index only matters modulo 4
	a, _ := ScatteredWaveform(k, 1, continuous)
	b, _ := ScatteredWaveform(k, 65, continuous)
	assert.Equal(t, a, b)
}

func TestUniqueWord(t *testing.T) {
	const k = 1705

	c, err := UniqueWord(k, Continuous)
	require.NoError(t, err)
	assert.Len(t, c, k)

	s, err := UniqueWord(k, Scattered)
	require.NoError(t, err)
	assert.Len(t, s, dvbt.SymbolsPerFrame*k)

	b, err := UniqueWord(k, Both)
	require.NoError(t, err)
	require.Len(t, b, dvbt.SymbolsPerFrame*k)
	for sym := 0; sym < dvbt.SymbolsPerFrame; sym++ {
		scattered, _ := ScatteredWaveform(k, sym, c)
		for i := 0; i < k; i++ {
			assert.Equal(t, scattered[i]+c[i], b[sym*k+i])
		}
	}

	_, err = UniqueWord(k, "pilots")
	assert.True(t, errors.Is(err, dvbt.ErrInvalidSelector))

	_, err = UniqueWord(1000, Scattered)
	assert.True(t, errors.Is(err, dvbt.ErrInvalidCarrierCount))
}

func TestParseSelector(t *testing.T) {
	for in, want := range map[string]Selector{
		"c": Continuous, "continuous": Continuous,
		"s": Scattered, "scattered": Scattered,
		"b": Both, "both": Both,
	} {
		got, err := ParseSelector(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSelector("all")
	assert.True(t, errors.Is(err, dvbt.ErrInvalidSelector))
}

func TestUniqueWordTimeDomain(t *testing.T) {
	params, err := dvbt.Params(2, 8)
	require.NoError(t, err)

	td, fd, err := UniqueWordTimeDomain(params, Continuous, false)
	require.NoError(t, err)
	assert.Len(t, td, params.FFTLength)
	assert.Len(t, fd, params.ActiveCarriers)

	tdCP, _, err := UniqueWordTimeDomain(params, Continuous, true)
	require.NoError(t, err)
	require.Len(t, tdCP, params.SymbolLength())
	assert.Equal(t, td, tdCP[params.CyclicPrefixLength:])

	back, err := ofdm.TimeToFrequencySymbols(params, tdCP)
	require.NoError(t, err)
	for i := range fd {
		assert.InDelta(t, 0, cmplx.Abs(back[i]-fd[i]), 1e-9)
	}
}
