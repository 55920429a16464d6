package ofdm

import (
	"fmt"

	"github.com/norasector/dvbtsync/pkg/dvbt"
)

type Direction string

const (
	Add    Direction = "add"
	Remove Direction = "remove"
)

// ParseDirection accepts add/a and remove/rmv/r.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "add", "a":
		return Add, nil
	case "remove", "rmv", "r":
		return Remove, nil
	}
	return "", fmt.Errorf("%w: got %q", dvbt.ErrInvalidDirection, s)
}

// ToggleGuardBand pads a k carrier symbol with zeros up to fftLength bins, or
// strips the padding from an fftLength symbol. The result is a new slice.
func ToggleGuardBand(symbol []complex128, fftLength, k int, dir Direction) ([]complex128, error) {
	low, high := dvbt.GuardBand(fftLength, k)

	switch dir {
	case Add:
		if len(symbol) != k {
			return nil, fmt.Errorf("%w: guard band insert expects %d carriers, got %d", dvbt.ErrInvalidLength, k, len(symbol))
		}
		ret := make([]complex128, fftLength)
		copy(ret[low:], symbol)
		return ret, nil
	case Remove:
		if len(symbol) != fftLength {
			return nil, fmt.Errorf("%w: guard band removal expects %d bins, got %d", dvbt.ErrInvalidLength, fftLength, len(symbol))
		}
		ret := make([]complex128, k)
		copy(ret, symbol[low:fftLength-high])
		return ret, nil
	}
	return nil, fmt.Errorf("%w: got %q", dvbt.ErrInvalidDirection, dir)
}

// ToggleCyclicPrefix prepends a copy of the last cpLength samples, or drops the
// first cpLength samples.
func ToggleCyclicPrefix(symbol []complex128, cpLength int, dir Direction) ([]complex128, error) {
	if cpLength < 0 || cpLength > len(symbol) {
		return nil, fmt.Errorf("%w: cyclic prefix of %d samples on a %d sample symbol", dvbt.ErrInvalidLength, cpLength, len(symbol))
	}

	switch dir {
	case Add:
		ret := make([]complex128, 0, len(symbol)+cpLength)
		ret = append(ret, symbol[len(symbol)-cpLength:]...)
		return append(ret, symbol...), nil
	case Remove:
		ret := make([]complex128, len(symbol)-cpLength)
		copy(ret, symbol[cpLength:])
		return ret, nil
	}
	return nil, fmt.Errorf("%w: got %q", dvbt.ErrInvalidDirection, dir)
}
