package mixer

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

const (
	tau float64 = math.Pi * 2

	// minPartition keeps tiny buffers on a single goroutine.
	minPartition = 1 << 14
)

// WaveformMixer multiplies samples by exp(j*2*pi*frequency/sampleRate*n). The
// phase is derived from the absolute sample index, so any partition of a
// buffer mixes to the same result as one pass over it.
type WaveformMixer struct {
	sampleRate     float64
	frequency      float64
	phaseIncrement float64
	sample         int
}

func NewWaveformMixer(sampleRate float64, frequency float64) *WaveformMixer {
	return &WaveformMixer{
		sampleRate:     sampleRate,
		frequency:      frequency,
		phaseIncrement: frequency * tau / sampleRate,
	}
}

// Seek positions the mixer at absolute sample n.
func (w *WaveformMixer) Seek(n int) {
	w.sample = n
}

func (w *WaveformMixer) phase() float64 {
	return math.Mod(w.phaseIncrement*float64(w.sample), tau)
}

func (w *WaveformMixer) WorkBuffer(input []complex128, output []complex128) int {
	for i := 0; i < len(input); i++ {
		sin, cos := math.Sincos(w.phase())
		output[i] = complex(cos, sin) * input[i]
		w.sample++
	}
	return len(input)
}

func (w *WaveformMixer) Work(vals []complex128) []complex128 {
	ret := make([]complex128, len(vals))
	w.WorkBuffer(vals, ret)
	return ret
}

func (w *WaveformMixer) PredictOutputSize(inputSize int) int {
	return inputSize
}

// Mix shifts samples by frequency Hz into a new buffer, splitting the work
// over up to workers goroutines.
func Mix(ctx context.Context, samples []complex128, sampleRate, frequency float64, workers int) ([]complex128, error) {
	out := make([]complex128, len(samples))

	if workers < 1 {
		workers = 1
	}
	chunk := (len(samples) + workers - 1) / workers
	if chunk < minPartition {
		chunk = minPartition
	}

	eg, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(samples); start += chunk {
		start := start
		end := start + chunk
		if end > len(samples) {
			end = len(samples)
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m := NewWaveformMixer(sampleRate, frequency)
			m.Seek(start)
			m.WorkBuffer(samples[start:end], out[start:end])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
