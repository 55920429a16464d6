package fir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowShapes(t *testing.T) {
	tests := []struct {
		win        WindowType
		edge, peak float64
	}{
		{Hamming, 0.08, 1},
		{Hann, 0, 1},
		{Blackman, 0, 1},
		{BlackmanHarris, 0.00006, 1},
	}
	for _, tt := range tests {
		t.Run(tt.win.String(), func(t *testing.T) {
			w, err := Window(tt.win, 101)
			require.NoError(t, err)
			assert.InDelta(t, tt.edge, w[0], 1e-4)
			assert.InDelta(t, tt.edge, w[100], 1e-4)
			assert.InDelta(t, tt.peak, w[50], 1e-4)
			for i := 0; i < 50; i++ {
				assert.InDelta(t, w[i], w[100-i], 1e-6, "window must be symmetric")
			}
		})
	}

	_, err := Window(WindowType(42), 10)
	assert.True(t, errors.Is(err, ErrInvalidDesign))
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("blackman-harris")
	require.NoError(t, err)
	assert.Equal(t, BlackmanHarris, w)

	_, err = ParseWindow("kaiser")
	assert.True(t, errors.Is(err, ErrInvalidDesign))
}

func TestChannelFilterResponse(t *testing.T) {
	const (
		fs = 10e6
		tw = 200e3
	)
	taps, err := ChannelFilter(fs, tw)
	require.NoError(t, err)
	assert.Equal(t, 1, len(taps)%2)

	cutoff := DVBTChannelWidth/2 + tw/2
	assert.InDelta(t, 1, Response(taps, fs, 0), 1e-4)
	assert.InDelta(t, 1, Response(taps, fs, 2e6), 0.01)
	assert.InDelta(t, 1, Response(taps, fs, cutoff-2*tw), 0.01)
	assert.Less(t, Response(taps, fs, cutoff+2*tw), 0.01)
	assert.Less(t, Response(taps, fs, 4.8e6), 0.01)
}

func TestLowPassValidation(t *testing.T) {
	tests := []LowPass{
		{Gain: 1, SampleRate: 0, Cutoff: 1, TransitionWidth: 1},
		{Gain: 1, SampleRate: 10, Cutoff: 6, TransitionWidth: 1},
		{Gain: 1, SampleRate: 10, Cutoff: 2, TransitionWidth: 0},
		{Gain: 1, SampleRate: 10e6, Cutoff: 1e6, TransitionWidth: 100},
	}
	for _, l := range tests {
		_, err := l.Taps()
		assert.True(t, errors.Is(err, ErrInvalidDesign), "%+v: %v", l, err)
	}
}
