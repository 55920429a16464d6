// Package resample brings a capture to the DVB-T elementary sample rate.
package resample

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/dvbtsync/pkg/dsp/agc"
	"github.com/norasector/dvbtsync/pkg/dsp/filters/fir"
	"github.com/norasector/dvbtsync/pkg/dsp/processor"
	"github.com/norasector/dvbtsync/pkg/dsp/viz"
	"github.com/norasector/dvbtsync/pkg/dvbt"
	"github.com/norasector/dvbtsync/pkg/util"
	"github.com/racerxdl/segdsp/dsp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// MaxFactor bounds the interpolation and decimation factors; larger
	// ratios would need polyphase banks too big to be practical.
	MaxFactor = 1000

	// ChannelBandwidth is the widest span passed to the detector unfiltered.
	ChannelBandwidth = 8e6

	DefaultTransitionWidth = 200e3

	// 7 * dvbt.SampleRate without the rounding.
	elementaryRateTimes7 = 64e6
)

var ErrUnsupportedRate = errors.New("unsupported sample rate")

// Factors returns the interpolation and decimation that take sampleRate to
// dvbt.SampleRate.
func Factors(sampleRate int) (interp, decim int, err error) {
	if sampleRate <= 0 {
		return 0, 0, fmt.Errorf("%w: %d", ErrUnsupportedRate, sampleRate)
	}
	if sampleRate == dvbt.SampleRate {
		return 1, 1, nil
	}
	interp, decim = util.RationalFactors(elementaryRateTimes7, 7*sampleRate)
	if interp > MaxFactor || decim > MaxFactor {
		return 0, 0, fmt.Errorf("%w: %d Hz needs %d/%d", ErrUnsupportedRate, sampleRate, interp, decim)
	}
	return interp, decim, nil
}

type Resampler struct {
	logger          zerolog.Logger
	metrics         api.WriteAPI
	diagnostics     dvbt.DiagnosticFunc
	transitionWidth float64
	agcAlpha        float64
}

type Option func(r *Resampler)

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resampler) {
		r.logger = logger
	}
}

func WithMetrics(writeAPI api.WriteAPI) Option {
	return func(r *Resampler) {
		r.metrics = writeAPI
	}
}

// WithDiagnostics receives the spectrum after each stage.
func WithDiagnostics(fn dvbt.DiagnosticFunc) Option {
	return func(r *Resampler) {
		r.diagnostics = fn
	}
}

// WithTransitionWidth sets the channel filter's transition band in Hz.
func WithTransitionWidth(hz float64) Option {
	return func(r *Resampler) {
		r.transitionWidth = hz
	}
}

// WithAGC levels the output to unit RMS power, averaging with alpha. Zero
// disables it.
func WithAGC(alpha float64) Option {
	return func(r *Resampler) {
		r.agcAlpha = alpha
	}
}

func New(opts ...Option) *Resampler {
	r := &Resampler{
		logger:          log.Logger,
		metrics:         &util.MockWriteAPI{},
		transitionWidth: DefaultTransitionWidth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ToDVBT runs the default Resampler.
func ToDVBT(ctx context.Context, samples []complex128, sampleRate, bandwidth float64) ([]complex128, float64, error) {
	return New().ToDVBT(ctx, samples, sampleRate, bandwidth)
}

// ToDVBT low pass filters samples to one DVB-T channel when bandwidth is wider
// than 8 MHz, then resamples them to dvbt.SampleRate and optionally levels
// them. It returns the new samples and rate. A capture that needs none of
// this is returned as is.
func (r *Resampler) ToDVBT(ctx context.Context, samples []complex128, sampleRate, bandwidth float64) ([]complex128, float64, error) {
	rate := int(math.Round(sampleRate))
	if math.Abs(sampleRate-float64(rate)) > 1e-3 {
		return nil, 0, fmt.Errorf("%w: %g Hz is not whole", ErrUnsupportedRate, sampleRate)
	}
	interp, decim, err := Factors(rate)
	if err != nil {
		return nil, 0, err
	}

	filter := bandwidth > ChannelBandwidth
	resample := interp != decim
	level := r.agcAlpha > 0
	logger := r.logger.With().Str("sample_rate", util.MHz(sampleRate)).Logger()
	if !filter && !resample && !level {
		logger.Debug().Msg("capture already at dvb-t rate")
		return samples, sampleRate, nil
	}

	proc := processor.NewProcessor("resample", processor.WithDiagnostics(r.diagnostics))
	if filter {
		taps, err := fir.ChannelFilter(sampleRate, r.transitionWidth)
		if err != nil {
			return nil, 0, err
		}
		logger.Debug().Int("taps", len(taps)).Float64("bandwidth", bandwidth).Msg("adding channel filter")
		proc.AddBlock(processor.NewDSPWorkerCC(
			"channel_filter",
			"Channel Filter",
			rate,
			rate,
			dsp.MakeFirFilter(taps),
			processor.WithSpectrumPlot(viz.DefaultSpectrumSize),
		))
	}
	if resample {
		logger.Debug().Int("interp", interp).Int("decim", decim).Msg("adding rational resampler")
		proc.AddBlock(processor.NewDSPWorkerCC(
			"resampler",
			"Rational Resampler",
			rate,
			dvbt.SampleRate,
			dsp.MakeRationalResampler(interp, decim),
			processor.WithSpectrumPlot(viz.DefaultSpectrumSize),
		))
	}
	if level {
		proc.AddBlock(processor.NewDSPWorkerCC(
			"agc",
			"RMS AGC",
			dvbt.SampleRate,
			dvbt.SampleRate,
			agc.NewRMS(r.agcAlpha, 1),
		))
	}

	input := make([]complex64, len(samples))
	for i, v := range samples {
		input[i] = complex64(v)
	}

	start := time.Now()
	metrics := map[string]interface{}{
		"input_samples": len(samples),
	}
	out, err := proc.Process(ctx, input, metrics)
	if err != nil {
		return nil, 0, err
	}
	metrics["output_samples"] = len(out)
	r.metrics.WritePoint(influxdb2.NewPoint("dvbt.resample",
		map[string]string{"input_rate": fmt.Sprint(rate)},
		metrics, start))

	ret := make([]complex128, len(out))
	for i, v := range out {
		ret[i] = complex128(v)
	}

	newRate := float64(proc.OutputRate())
	logger.Info().
		Int("input_samples", len(samples)).
		Int("output_samples", len(ret)).
		Str("output_rate", util.MHz(newRate)).
		Msg("resampled capture")
	return ret, newRate, nil
}
