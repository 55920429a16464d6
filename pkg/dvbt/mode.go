package dvbt

import (
	"fmt"
)

const (
	// SampleRate is the elementary DVB-T sample rate for 8 MHz channels,
	// 64/7 MHz rounded down to a whole Hz.
	SampleRate = 64000000 / 7

	// MinAcquisitionSamples is three 2k symbol periods' worth of samples.
	MinAcquisitionSamples = 30720
	// FourSymbolAcquisitionSamples is the capture length from which four
	// symbols are correlated instead of three.
	FourSymbolAcquisitionSamples = 40960

	SymbolsPerFrame = 68
)

var (
	// Modes is the order in which FFT modes are searched.
	Modes = []int{2, 8}
	// CyclicPrefixRatios is the order in which guard intervals are searched.
	CyclicPrefixRatios = []int{4, 8, 16, 32}
)

// ModeParameters holds the structural constants of one (mode, guard interval)
// combination. It is passed explicitly to everything that needs the frame layout.
type ModeParameters struct {
	Mode              int
	CyclicPrefixRatio int

	FFTLength          int
	ActiveCarriers     int
	CyclicPrefixLength int
	DataCarriers       int
}

// Params returns the parameters for a mode (2 or 8) and cyclic prefix ratio
// (4, 8, 16 or 32).
func Params(mode, cyclicPrefixRatio int) (ModeParameters, error) {
	p := ModeParameters{Mode: mode, CyclicPrefixRatio: cyclicPrefixRatio}

	switch mode {
	case 2:
		p.FFTLength = 2048
		p.ActiveCarriers = 1705
		p.DataCarriers = 1512
	case 8:
		p.FFTLength = 8192
		p.ActiveCarriers = 6817
		p.DataCarriers = 6048
	default:
		return ModeParameters{}, fmt.Errorf("%w: got %d", ErrInvalidMode, mode)
	}

	switch cyclicPrefixRatio {
	case 4, 8, 16, 32:
	default:
		return ModeParameters{}, fmt.Errorf("%w: got %d", ErrInvalidCyclicPrefix, cyclicPrefixRatio)
	}

	p.CyclicPrefixLength = p.FFTLength / cyclicPrefixRatio
	return p, nil
}

// AllParams returns the eight valid combinations in search order.
func AllParams() []ModeParameters {
	ret := make([]ModeParameters, 0, len(Modes)*len(CyclicPrefixRatios))
	for _, mode := range Modes {
		for _, cp := range CyclicPrefixRatios {
			p, err := Params(mode, cp)
			if err != nil {
				panic(err)
			}
			ret = append(ret, p)
		}
	}
	return ret
}

// SymbolLength is the length of one OFDM symbol including its cyclic prefix.
func (p ModeParameters) SymbolLength() int {
	return p.FFTLength + p.CyclicPrefixLength
}

// GuardBand returns the number of zero bins below and above the active carriers.
func (p ModeParameters) GuardBand() (low, high int) {
	return GuardBand(p.FFTLength, p.ActiveCarriers)
}

func (p ModeParameters) String() string {
	return fmt.Sprintf("%dk 1/%d", p.Mode, p.CyclicPrefixRatio)
}

// GuardBand splits the unused bins of an fftLength transform around k active carriers.
func GuardBand(fftLength, k int) (low, high int) {
	unused := fftLength - k
	high = unused / 2
	low = unused - high
	return
}

// SymbolsToCorrelate returns how many symbols the time correlation uses for a
// capture of n samples, or ErrAcquisitionTooShort.
func SymbolsToCorrelate(n int) (int, error) {
	if n < MinAcquisitionSamples {
		return 0, fmt.Errorf("%w: got %d samples, need %d", ErrAcquisitionTooShort, n, MinAcquisitionSamples)
	}
	if n < FourSymbolAcquisitionSamples {
		return 3, nil
	}
	return 4, nil
}
