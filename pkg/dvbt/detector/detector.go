// Package detector searches a capture for a DVB-T signal over every valid
// combination of FFT mode and guard interval.
package detector

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/dvbtsync/pkg/dvbt"
	"github.com/norasector/dvbtsync/pkg/dvbt/ofdm"
	"github.com/norasector/dvbtsync/pkg/dvbt/pilot"
	"github.com/norasector/dvbtsync/pkg/dvbt/synchronizer"
	"github.com/norasector/dvbtsync/pkg/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Result struct {
	Matched bool
	Params  dvbt.ModeParameters

	TimeOffset    int
	FrequencyBins int
	FrequencyHz   float64

	// Samples is the capture with TimeOffset samples dropped and the carrier
	// offset removed. Nil when nothing matched.
	Samples []complex128
}

type Detector struct {
	logger      zerolog.Logger
	metrics     api.WriteAPI
	diagnostics dvbt.DiagnosticFunc
	workers     int
}

type DetectorOption func(d *Detector) error

func WithLogger(logger zerolog.Logger) DetectorOption {
	return func(d *Detector) error {
		d.logger = logger
		return nil
	}
}

func WithMetrics(writeAPI api.WriteAPI) DetectorOption {
	return func(d *Detector) error {
		d.metrics = writeAPI
		return nil
	}
}

// WithDiagnostics receives the time and frequency correlation magnitudes of
// every trial. It may be called from several goroutines at once.
func WithDiagnostics(fn dvbt.DiagnosticFunc) DetectorOption {
	return func(d *Detector) error {
		d.diagnostics = fn
		return nil
	}
}

// WithWorkers bounds how many trials run at once.
func WithWorkers(n int) DetectorOption {
	return func(d *Detector) error {
		if n < 1 {
			return fmt.Errorf("worker count must be positive, got %d", n)
		}
		d.workers = n
		return nil
	}
}

func New(opts ...DetectorOption) (*Detector, error) {
	d := &Detector{
		logger:  log.Logger,
		metrics: &util.MockWriteAPI{}, // overwritten with option
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Detect runs a default Detector.
func Detect(ctx context.Context, samples []complex128, sampleRate, bandwidth float64) (Result, error) {
	d, err := New()
	if err != nil {
		return Result{}, err
	}
	return d.Detect(ctx, samples, sampleRate, bandwidth)
}

type trial struct {
	params  dvbt.ModeParameters
	matched bool
	time    synchronizer.TimeResult
	freq    synchronizer.FrequencyResult
}

// Detect tries 2k before 8k and the guard intervals from 1/4 down to 1/32.
// Trials run concurrently, but the reported match is always the first one in
// that order. No match is not an error.
func (d *Detector) Detect(ctx context.Context, samples []complex128, sampleRate, bandwidth float64) (Result, error) {
	numSymbols, err := dvbt.SymbolsToCorrelate(len(samples))
	if err != nil {
		return Result{}, err
	}

	d.logger.Info().
		Int("samples", len(samples)).
		Float64("sample_rate", sampleRate).
		Float64("bandwidth", bandwidth).
		Int("symbols", numSymbols).
		Msg("starting detection")

	all := dvbt.AllParams()
	results := make([]*trial, len(all))

	// lowest matching index so far; trials above it are skipped
	var best int32 = int32(len(all))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(d.workers)
	for i, params := range all {
		i, params := i, params
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			if int32(i) > atomic.LoadInt32(&best) {
				return nil
			}

			res, err := d.trial(params, samples, numSymbols)
			if err != nil {
				return fmt.Errorf("trial %s: %w", params, err)
			}
			results[i] = res
			if !res.matched {
				return nil
			}
			for {
				cur := atomic.LoadInt32(&best)
				if int32(i) >= cur || atomic.CompareAndSwapInt32(&best, cur, int32(i)) {
					return nil
				}
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, err
	}

	idx := int(atomic.LoadInt32(&best))
	if idx == len(all) {
		d.logger.Info().Msg("no dvb-t signal found")
		return Result{}, nil
	}
	t := results[idx]

	hz := t.freq.Hz(sampleRate)
	corrected, err := synchronizer.Correct(ctx, samples, sampleRate, t.time.Offset, hz)
	if err != nil {
		return Result{}, err
	}

	d.logger.Info().
		Str("params", t.params.String()).
		Int("time_offset", t.time.Offset).
		Int("freq_bins", t.freq.Bins).
		Float64("freq_hz", hz).
		Msg("dvb-t signal found")

	return Result{
		Matched:       true,
		Params:        t.params,
		TimeOffset:    t.time.Offset,
		FrequencyBins: t.freq.Bins,
		FrequencyHz:   hz,
		Samples:       corrected,
	}, nil
}

func (d *Detector) trial(params dvbt.ModeParameters, samples []complex128, numSymbols int) (*trial, error) {
	start := time.Now()
	ret := &trial{params: params}

	metrics := map[string]interface{}{
		"symbols": numSymbols,
	}
	defer func() {
		metrics["matched"] = ret.matched
		metrics["duration"] = time.Since(start).Microseconds()
		d.metrics.WritePoint(influxdb2.NewPoint("dvbt.trial",
			map[string]string{
				"mode": strconv.Itoa(params.Mode) + "k",
				"cp":   "1/" + strconv.Itoa(params.CyclicPrefixRatio),
			},
			metrics, start))
	}()

	framer := ofdm.NewFramer(ofdm.WithLogger(d.logger))
	syncer := synchronizer.New(synchronizer.WithFramer(framer), synchronizer.WithDiagnostics(d.diagnostics))

	var (
		word, wordFreq []complex128
		err            error
	)
	metrics["word_duration"] = util.TimeOperationMicroseconds(func() {
		word, wordFreq, err = pilot.UniqueWordTimeDomainWith(framer, params, pilot.Continuous, false)
	})
	if err != nil {
		return nil, err
	}

	segLen := numSymbols * params.SymbolLength()
	if segLen > len(samples) {
		segLen = len(samples)
	}
	ret.time, err = syncer.TimeSync(params, samples[:segLen], word, numSymbols)
	if err != nil {
		return nil, err
	}
	metrics["time_peak"] = ret.time.PeakValue

	logger := d.logger.With().Str("params", params.String()).Logger()
	if !ret.time.Matched {
		logger.Debug().Msg("no consistent time correlation peaks")
		return ret, nil
	}

	bodyStart := ret.time.Offset + params.CyclicPrefixLength
	if bodyStart+params.FFTLength > len(samples) {
		logger.Debug().Int("time_offset", ret.time.Offset).Msg("no whole symbol after time offset")
		return ret, nil
	}
	ret.freq, err = syncer.FrequencySync(params, samples[bodyStart:bodyStart+params.FFTLength], wordFreq)
	if err != nil {
		return nil, err
	}
	metrics["freq_peak"] = ret.freq.PeakValue
	ret.matched = true

	logger.Debug().
		Ints("peaks", ret.time.Peaks).
		Int("time_offset", ret.time.Offset).
		Int("freq_bins", ret.freq.Bins).
		Msg("trial matched")
	return ret, nil
}
