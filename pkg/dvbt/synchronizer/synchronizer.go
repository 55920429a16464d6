// Package synchronizer locates the symbol timing and carrier offset of a
// candidate capture by correlating it with pilot-only reference words.
package synchronizer

import (
	"context"
	"fmt"
	"runtime"

	"github.com/norasector/dvbtsync/pkg/dsp/correlate"
	"github.com/norasector/dvbtsync/pkg/dsp/mixer"
	"github.com/norasector/dvbtsync/pkg/dvbt"
	"github.com/norasector/dvbtsync/pkg/dvbt/ofdm"
)

type TimeResult struct {
	Matched bool
	// Offset is the index of the first cyclic prefix sample.
	Offset int
	// Peaks are the ascending correlation peaks that passed the spacing check.
	Peaks     []int
	PeakValue float64

	Correlation []float64
}

type FrequencyResult struct {
	// Bins is the carrier offset relative to the spectrum centre.
	Bins      int
	PeakValue float64

	Correlation []float64
	fftLength   int
}

// Hz converts Bins to a frequency at sampleRate.
func (f FrequencyResult) Hz(sampleRate float64) float64 {
	if f.fftLength == 0 {
		return 0
	}
	return float64(f.Bins) * sampleRate / float64(f.fftLength)
}

// Synchronizer runs the time and frequency searches for one trial. It owns an
// ofdm.Framer and so is not safe for concurrent use.
type Synchronizer struct {
	framer      *ofdm.Framer
	diagnostics dvbt.DiagnosticFunc
}

type Option func(s *Synchronizer)

func WithFramer(f *ofdm.Framer) Option {
	return func(s *Synchronizer) {
		s.framer = f
	}
}

func WithDiagnostics(d dvbt.DiagnosticFunc) Option {
	return func(s *Synchronizer) {
		s.diagnostics = d
	}
}

func New(opts ...Option) *Synchronizer {
	s := &Synchronizer{}
	for _, opt := range opts {
		opt(s)
	}
	if s.framer == nil {
		s.framer = ofdm.NewFramer()
	}
	return s
}

// TimeSync correlates segment against a single symbol reference and checks
// that the numSymbols strongest peaks sit a whole number of symbol periods
// apart. If they do not, the weakest peak is discarded and the remaining ones
// are checked again.
func (s *Synchronizer) TimeSync(params dvbt.ModeParameters, segment, reference []complex128, numSymbols int) (TimeResult, error) {
	if len(reference) == 0 || len(segment) < len(reference) {
		return TimeResult{}, fmt.Errorf("%w: cannot correlate %d samples against a %d sample reference", dvbt.ErrInvalidLength, len(segment), len(reference))
	}
	if numSymbols < 1 {
		return TimeResult{}, fmt.Errorf("%w: need at least one symbol to correlate, got %d", dvbt.ErrInvalidLength, numSymbols)
	}

	corr := correlate.Normalize(correlate.Valid(segment, reference), segment, reference)
	mag := correlate.Magnitude(corr)
	s.diagnostics.Emit(
		fmt.Sprintf("time_corr_%dk_cp%d", params.Mode, params.CyclicPrefixRatio),
		fmt.Sprintf("Time Correlation for %dk mode, CP of 1/%d", params.Mode, params.CyclicPrefixRatio),
		mag)

	ret := TimeResult{Correlation: mag}

	extracted := correlate.GreedyPeaks(mag, numSymbols)
	if len(extracted) == 0 || mag[extracted[0]] == 0 {
		return ret, nil
	}
	ret.PeakValue = mag[extracted[0]]

	symLen := params.SymbolLength()
	peaks := correlate.Sorted(extracted)
	if !evenlySpaced(peaks, symLen) {
		peaks = correlate.Sorted(extracted[:len(extracted)-1])
		if !evenlySpaced(peaks, symLen) {
			return ret, nil
		}
	}

	ret.Matched = true
	ret.Peaks = peaks
	ret.Offset = peaks[0] - params.CyclicPrefixLength
	if ret.Offset < 0 {
		ret.Offset += symLen
	}
	return ret, nil
}

// evenlySpaced reports whether every gap between ascending peaks is a non-zero
// multiple of period.
func evenlySpaced(peaks []int, period int) bool {
	for i := 1; i < len(peaks); i++ {
		gap := peaks[i] - peaks[i-1]
		if gap == 0 || gap%period != 0 {
			return false
		}
	}
	return true
}

// FrequencySync correlates the centred spectrum of one prefix-free symbol with
// the guard band padded frequency domain unique word.
func (s *Synchronizer) FrequencySync(params dvbt.ModeParameters, symbol, uniqueWordFreq []complex128) (FrequencyResult, error) {
	if len(symbol) != params.FFTLength {
		return FrequencyResult{}, fmt.Errorf("%w: frequency sync needs %d samples, got %d", dvbt.ErrInvalidLength, params.FFTLength, len(symbol))
	}
	padded, err := ofdm.ToggleGuardBand(uniqueWordFreq, params.FFTLength, params.ActiveCarriers, ofdm.Add)
	if err != nil {
		return FrequencyResult{}, err
	}

	spectrum := s.framer.Spectrum(symbol)
	corr := correlate.Normalize(correlate.Same(spectrum, padded), symbol, uniqueWordFreq)
	mag := correlate.Magnitude(corr)
	s.diagnostics.Emit(
		fmt.Sprintf("freq_corr_%dk_cp%d", params.Mode, params.CyclicPrefixRatio),
		"Frequency Correlation",
		mag)

	peak := correlate.GreedyPeaks(mag, 1)[0]
	return FrequencyResult{
		Bins:        peak - params.FFTLength/2,
		PeakValue:   mag[peak],
		Correlation: mag,
		fftLength:   params.FFTLength,
	}, nil
}

// TimeSync runs Synchronizer.TimeSync without diagnostics.
func TimeSync(params dvbt.ModeParameters, segment, reference []complex128, numSymbols int) (TimeResult, error) {
	return New().TimeSync(params, segment, reference, numSymbols)
}

// FrequencySync runs Synchronizer.FrequencySync without diagnostics.
func FrequencySync(params dvbt.ModeParameters, symbol, uniqueWordFreq []complex128) (FrequencyResult, error) {
	return New().FrequencySync(params, symbol, uniqueWordFreq)
}

// Correct drops the first timeOffset samples and removes a carrier offset of
// frequencyHz from everything that is left. samples is not modified.
func Correct(ctx context.Context, samples []complex128, sampleRate float64, timeOffset int, frequencyHz float64) ([]complex128, error) {
	if timeOffset < 0 || timeOffset > len(samples) {
		return nil, fmt.Errorf("%w: time offset %d outside a %d sample capture", dvbt.ErrInvalidLength, timeOffset, len(samples))
	}
	return mixer.Mix(ctx, samples[timeOffset:], sampleRate, -frequencyHz, runtime.NumCPU())
}
