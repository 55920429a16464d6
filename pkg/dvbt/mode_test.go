package dvbt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams(t *testing.T) {
	tests := []struct {
		mode, cp int
		want     ModeParameters
	}{
		{2, 4, ModeParameters{2, 4, 2048, 1705, 512, 1512}},
		{2, 8, ModeParameters{2, 8, 2048, 1705, 256, 1512}},
		{2, 16, ModeParameters{2, 16, 2048, 1705, 128, 1512}},
		{2, 32, ModeParameters{2, 32, 2048, 1705, 64, 1512}},
		{8, 4, ModeParameters{8, 4, 8192, 6817, 2048, 6048}},
		{8, 8, ModeParameters{8, 8, 8192, 6817, 1024, 6048}},
		{8, 16, ModeParameters{8, 16, 8192, 6817, 512, 6048}},
		{8, 32, ModeParameters{8, 32, 8192, 6817, 256, 6048}},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			got, err := Params(tt.mode, tt.cp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParamsErrors(t *testing.T) {
	_, err := Params(4, 8)
	assert.True(t, errors.Is(err, ErrInvalidMode), "got %v", err)

	_, err = Params(2, 3)
	assert.True(t, errors.Is(err, ErrInvalidCyclicPrefix), "got %v", err)

	// mode is checked first
	_, err = Params(4, 3)
	assert.True(t, errors.Is(err, ErrInvalidMode), "got %v", err)
}

func TestAllParamsOrder(t *testing.T) {
	all := AllParams()
	require.Len(t, all, 8)
	assert.Equal(t, "2k 1/4", all[0].String())
	assert.Equal(t, "2k 1/32", all[3].String())
	assert.Equal(t, "8k 1/4", all[4].String())
	assert.Equal(t, "8k 1/32", all[7].String())
}

func TestGuardBand(t *testing.T) {
	low, high := GuardBand(2048, 1705)
	assert.Equal(t, 172, low)
	assert.Equal(t, 171, high)

	low, high = GuardBand(8192, 6817)
	assert.Equal(t, 688, low)
	assert.Equal(t, 687, high)
}

func TestSymbolsToCorrelate(t *testing.T) {
	_, err := SymbolsToCorrelate(30719)
	assert.True(t, errors.Is(err, ErrAcquisitionTooShort))

	n, err := SymbolsToCorrelate(30720)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = SymbolsToCorrelate(40959)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = SymbolsToCorrelate(40960)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
