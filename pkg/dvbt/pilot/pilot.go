// Package pilot generates the DVB-T reference pilot waveforms used as
// correlation references and for channel estimation.
package pilot

import (
	"fmt"

	"github.com/norasector/dvbtsync/pkg/dvbt"
)

// Selector chooses which pilots a unique word carries.
type Selector string

const (
	Continuous Selector = "continuous"
	Scattered  Selector = "scattered"
	Both       Selector = "both"
)

// ParseSelector accepts the long names and the single letter aliases c, s and b.
func ParseSelector(s string) (Selector, error) {
	switch s {
	case "continuous", "c":
		return Continuous, nil
	case "scattered", "s":
		return Scattered, nil
	case "both", "b":
		return Both, nil
	}
	return "", fmt.Errorf("%w: got %q", dvbt.ErrInvalidSelector, s)
}

const (
	prbsSeed = 0x7FF

	continuousCount2k = 45
	continuousCount8k = 177
)

// continuousPositions is the carrier index table for continual pilots. The first
// 45 entries apply to 2k mode, all 177 to 8k mode.
var continuousPositions = [...]int{
	0, 48, 54, 87, 141, 156, 192, 201, 255, 279, 282, 333,
	432, 450, 483, 525, 531, 618, 636, 714, 759, 765, 780, 804,
	873, 888, 918, 939, 942, 969, 984, 1050, 1101, 1107, 1110, 1137,
	1140, 1146, 1206, 1269, 1323, 1377, 1491, 1683, 1704, 1752, 1758, 1791,
	1845, 1860, 1896, 1905, 1959, 1983, 1986, 2037, 2136, 2154, 2187, 2229,
	2235, 2322, 2340, 2418, 2463, 2469, 2484, 2508, 2577, 2592, 2622, 2643,
	2646, 2673, 2688, 2754, 2805, 2811, 2814, 2841, 2844, 2850, 2910, 2973,
	3027, 3081, 3195, 3387, 3408, 3456, 3462, 3495, 3549, 3564, 3600, 3609,
	3663, 3687, 3690, 3741, 3840, 3858, 3891, 3933, 3939, 4026, 4044, 4122,
	4167, 4173, 4188, 4212, 4281, 4296, 4326, 4347, 4350, 4377, 4392, 4458,
	4509, 4515, 4518, 4545, 4548, 4554, 4614, 4677, 4731, 4785, 4899, 5091,
	5112, 5160, 5166, 5199, 5253, 5268, 5304, 5313, 5367, 5391, 5394, 5445,
	5544, 5562, 5595, 5637, 5643, 5730, 5748, 5826, 5871, 5877, 5892, 5916,
	5985, 6000, 6030, 6051, 6054, 6081, 6096, 6162, 6213, 6219, 6222, 6249,
	6252, 6258, 6318, 6381, 6435, 6489, 6603, 6795, 6816,
}

// PRBS returns k reference bits from the 11 stage generator x^11 + x^2 + 1,
// initialised to all ones. Each bit is the register output before the shift.
func PRBS(k int) []byte {
	ret := make([]byte, k)
	reg := uint16(prbsSeed)
	for i := range ret {
		out := (reg >> 10) & 1
		fb := out ^ ((reg >> 8) & 1)
		reg = ((reg << 1) | fb) & prbsSeed
		ret[i] = byte(out)
	}
	return ret
}

// ContinuousPositions returns the continual pilot carriers for k active carriers.
func ContinuousPositions(k int) ([]int, error) {
	var n int
	switch k {
	case 1705:
		n = continuousCount2k
	case 6817:
		n = continuousCount8k
	default:
		return nil, fmt.Errorf("%w: got %d", dvbt.ErrInvalidCarrierCount, k)
	}
	ret := make([]int, n)
	copy(ret, continuousPositions[:n])
	return ret, nil
}

func value(bit byte) complex128 {
	return complex(8*(1-2*float64(bit))/3, 0)
}

// ContinuousWaveform returns a K length vector holding the continual pilot
// values and zero everywhere else.
func ContinuousWaveform(k int) ([]complex128, error) {
	positions, err := ContinuousPositions(k)
	if err != nil {
		return nil, err
	}
	prbs := PRBS(k)
	ret := make([]complex128, k)
	for _, p := range positions {
		ret[p] = value(prbs[p])
	}
	return ret, nil
}

// ScatteredWaveform returns the scattered pilots of symbol symbolIndex within a
// frame. Carriers already holding a non-zero value in continuous are skipped; a
// nil continuous excludes nothing.
func ScatteredWaveform(k, symbolIndex int, continuous []complex128) ([]complex128, error) {
	if continuous != nil && len(continuous) != k {
		return nil, fmt.Errorf("%w: continuous pilots have %d carriers, want %d", dvbt.ErrInvalidLength, len(continuous), k)
	}
	prbs := PRBS(k)
	ret := make([]complex128, k)
	for p := 3 * (symbolIndex % 4); p < k; p += 12 {
		if continuous != nil && continuous[p] != 0 {
			continue
		}
		ret[p] = value(prbs[p])
	}
	return ret, nil
}

// ScatteredFrame concatenates the scattered pilots of all 68 symbols of a frame.
func ScatteredFrame(k int, continuous []complex128) ([]complex128, error) {
	ret := make([]complex128, 0, dvbt.SymbolsPerFrame*k)
	for s := 0; s < dvbt.SymbolsPerFrame; s++ {
		sym, err := ScatteredWaveform(k, s, continuous)
		if err != nil {
			return nil, err
		}
		ret = append(ret, sym...)
	}
	return ret, nil
}

// UniqueWord builds the frequency domain reference for k carriers. Continuous
// yields one symbol; Scattered and Both yield a full frame of 68 symbols, with
// Both adding the continual pilots to every symbol.
func UniqueWord(k int, selector Selector) ([]complex128, error) {
	switch selector {
	case Continuous:
		return ContinuousWaveform(k)
	case Scattered:
		if _, err := ContinuousPositions(k); err != nil {
			return nil, err
		}
		return ScatteredFrame(k, nil)
	case Both:
		continuous, err := ContinuousWaveform(k)
		if err != nil {
			return nil, err
		}
		frame, err := ScatteredFrame(k, continuous)
		if err != nil {
			return nil, err
		}
		for i := range frame {
			frame[i] += continuous[i%k]
		}
		return frame, nil
	}
	return nil, fmt.Errorf("%w: got %q", dvbt.ErrInvalidSelector, selector)
}
