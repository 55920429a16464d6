// Package receiver runs a capture through resampling, detection, framing and
// equalization.
package receiver

import (
	"context"
	"fmt"
	"math/cmplx"
	"runtime"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/dvbtsync/pkg/capture"
	"github.com/norasector/dvbtsync/pkg/dsp/resample"
	"github.com/norasector/dvbtsync/pkg/dvbt"
	"github.com/norasector/dvbtsync/pkg/dvbt/detector"
	"github.com/norasector/dvbtsync/pkg/dvbt/equalizer"
	"github.com/norasector/dvbtsync/pkg/dvbt/ofdm"
	"github.com/norasector/dvbtsync/pkg/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Result struct {
	Detection  detector.Result
	SampleRate float64

	// Symbols are the equalized K carrier symbols and Estimates the channel
	// response each was divided by, both concatenated in symbol order.
	Symbols   []complex128
	Estimates []complex128
}

// NumSymbols is the number of whole OFDM symbols that were equalized.
func (r *Result) NumSymbols() int {
	if !r.Detection.Matched {
		return 0
	}
	return len(r.Symbols) / r.Detection.Params.ActiveCarriers
}

type Receiver struct {
	logger          zerolog.Logger
	metrics         api.WriteAPI
	diagnostics     dvbt.DiagnosticFunc
	workers         int
	interpolation   equalizer.Interpolation
	transitionWidth float64
	agcAlpha        float64
}

type Option func(r *Receiver) error

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Receiver) error {
		r.logger = logger
		return nil
	}
}

func WithMetrics(writeAPI api.WriteAPI) Option {
	return func(r *Receiver) error {
		r.metrics = writeAPI
		return nil
	}
}

func WithDiagnostics(fn dvbt.DiagnosticFunc) Option {
	return func(r *Receiver) error {
		r.diagnostics = fn
		return nil
	}
}

func WithWorkers(n int) Option {
	return func(r *Receiver) error {
		if n < 1 {
			return fmt.Errorf("worker count must be positive, got %d", n)
		}
		r.workers = n
		return nil
	}
}

func WithInterpolation(kind string) Option {
	return func(r *Receiver) error {
		i, err := equalizer.ParseInterpolation(kind)
		if err != nil {
			return err
		}
		r.interpolation = i
		return nil
	}
}

func WithTransitionWidth(hz float64) Option {
	return func(r *Receiver) error {
		r.transitionWidth = hz
		return nil
	}
}

func WithAGC(alpha float64) Option {
	return func(r *Receiver) error {
		if alpha < 0 || alpha >= 1 {
			return fmt.Errorf("agc alpha must be in [0, 1), got %g", alpha)
		}
		r.agcAlpha = alpha
		return nil
	}
}

func New(opts ...Option) (*Receiver, error) {
	r := &Receiver{
		logger:          log.Logger,
		metrics:         &util.MockWriteAPI{},
		workers:         runtime.NumCPU(),
		interpolation:   equalizer.Linear,
		transitionWidth: resample.DefaultTransitionWidth,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Run processes c. A capture with no DVB-T signal gives a Result whose
// Detection is not matched and no error.
func (r *Receiver) Run(ctx context.Context, c *capture.Capture) (*Result, error) {
	logger := r.logger.With().Str("capture", c.Header.Name).Logger()
	logger.Info().
		Int("samples", len(c.Samples)).
		Str("sample_rate", util.MHz(c.Header.SampleRate)).
		Str("span", util.MHz(c.Header.Span)).
		Str("center_freq", util.MHz(c.Header.CenterFrequency)).
		Msg("processing capture")

	samples, rate, err := resample.New(
		resample.WithLogger(logger),
		resample.WithMetrics(r.metrics),
		resample.WithDiagnostics(r.diagnostics),
		resample.WithTransitionWidth(r.transitionWidth),
		resample.WithAGC(r.agcAlpha),
	).ToDVBT(ctx, c.Samples, c.Header.SampleRate, c.Header.Span)
	if err != nil {
		return nil, fmt.Errorf("resampling: %w", err)
	}

	det, err := detector.New(
		detector.WithLogger(logger),
		detector.WithMetrics(r.metrics),
		detector.WithDiagnostics(r.diagnostics),
		detector.WithWorkers(r.workers),
	)
	if err != nil {
		return nil, err
	}
	detection, err := det.Detect(ctx, samples, rate, c.Header.Span)
	if err != nil {
		return nil, fmt.Errorf("detection: %w", err)
	}

	ret := &Result{Detection: detection, SampleRate: rate}
	if !detection.Matched {
		return ret, nil
	}

	start := time.Now()
	framer := ofdm.NewFramer(ofdm.WithLogger(logger))
	duration, err := util.TimeOperation(func() error {
		symbols, err := framer.TimeToFrequencySymbols(detection.Params, detection.Samples)
		if err != nil {
			return fmt.Errorf("framing: %w", err)
		}
		ret.Symbols, ret.Estimates, err = equalizer.Equalize(detection.Params, symbols, r.interpolation)
		if err != nil {
			return fmt.Errorf("equalizing: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.metrics.WritePoint(influxdb2.NewPoint("dvbt.equalized",
		map[string]string{
			"mode":          strconv.Itoa(detection.Params.Mode) + "k",
			"cp":            "1/" + strconv.Itoa(detection.Params.CyclicPrefixRatio),
			"interpolation": string(r.interpolation),
		},
		map[string]interface{}{
			"symbols":  ret.NumSymbols(),
			"dropped":  framer.Dropped(),
			"duration": duration,
		}, start))

	if ret.NumSymbols() > 0 {
		k := detection.Params.ActiveCarriers
		mag := make([]float64, k)
		for i, h := range ret.Estimates[:k] {
			mag[i] = cmplx.Abs(h)
		}
		r.diagnostics.Emit("channel_estimate", "Channel Estimate Magnitude (first symbol)", mag)
	}

	logger.Info().
		Str("params", detection.Params.String()).
		Int("symbols", ret.NumSymbols()).
		Str("interpolation", string(r.interpolation)).
		Msg("equalized capture")
	return ret, nil
}
