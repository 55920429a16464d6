// Package processor chains streaming complex DSP blocks, checks that their
// rates line up and times each of them.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/norasector/dvbtsync/pkg/dsp/viz"
)

const defaultChunkSize = 1 << 16

type Processor struct {
	Name        string
	blocks      []*DSPWorker
	initialized bool
	chunkSize   int
	diagnostics func(name, title string, values []float64)
}

type ProcessorOption func(p *Processor)

// WithChunkSize sets how many input samples are pushed through the chain at once.
func WithChunkSize(n int) ProcessorOption {
	return func(p *Processor) {
		p.chunkSize = n
	}
}

// WithDiagnostics receives the spectra of blocks created with WithSpectrumPlot.
func WithDiagnostics(fn func(name, title string, values []float64)) ProcessorOption {
	return func(p *Processor) {
		p.diagnostics = fn
	}
}

func NewProcessor(name string, opts ...ProcessorOption) *Processor {
	ret := &Processor{
		Name:      name,
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (p *Processor) AddBlock(worker *DSPWorker) {
	p.blocks = append(p.blocks, worker)
	p.initialized = false
}

// Initialize checks that every block's input rate is its predecessor's output rate.
func (p *Processor) Initialize() error {
	if p.initialized {
		return nil
	}
	if len(p.blocks) == 0 {
		return errors.New("must specify at least 1 block")
	}
	if p.chunkSize < 1 {
		return fmt.Errorf("chunk size must be positive, got %d", p.chunkSize)
	}

	cur := p.blocks[0]
	for _, next := range p.blocks[1:] {
		if cur.OutputRate != next.InputRate {
			return fmt.Errorf("cur: %s next %s rate mismatch (%d %d)", cur.Name, next.Name, cur.OutputRate, next.InputRate)
		}
		cur = next
	}

	p.initialized = true
	return nil
}

func (p *Processor) InputRate() int {
	if len(p.blocks) == 0 {
		return 0
	}
	return p.blocks[0].InputRate
}

func (p *Processor) OutputRate() int {
	if len(p.blocks) == 0 {
		return 0
	}
	return p.blocks[len(p.blocks)-1].OutputRate
}

// Process runs input through every block in chunks and returns the
// concatenated output. metrics receives the accumulated microseconds spent in
// each block under "<name>_duration".
func (p *Processor) Process(ctx context.Context, input []complex64, metrics map[string]interface{}) ([]complex64, error) {
	if err := p.Initialize(); err != nil {
		return nil, err
	}

	durations := make([]time.Duration, len(p.blocks))
	expected := int(float64(len(input)) * float64(p.OutputRate()) / float64(p.InputRate()))
	ret := make([]complex64, 0, expected+p.chunkSize)

	for start := 0; start < len(input); start += p.chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + p.chunkSize
		if end > len(input) {
			end = len(input)
		}

		data := input[start:end]
		for i, block := range p.blocks {
			t := time.Now()
			data = block.work(data)
			durations[i] += time.Since(t)
		}
		ret = append(ret, data...)
	}

	for i, block := range p.blocks {
		if metrics != nil {
			metrics[fmt.Sprintf("%s_duration", block.Name)] = durations[i].Microseconds()
		}
		p.emitSpectrum(i, block)
	}
	return ret, nil
}

func (p *Processor) emitSpectrum(index int, block *DSPWorker) {
	if p.diagnostics == nil || !block.plotSpectrum || len(block.spectrumInput) == 0 {
		return
	}
	samples := make([]complex128, len(block.spectrumInput))
	for i, v := range block.spectrumInput {
		samples[i] = complex128(v)
	}
	p.diagnostics(
		fmt.Sprintf("%s_%02d_%s", p.Name, index+1, block.Name),
		fmt.Sprintf("%02d. %s", index+1, block.DisplayName),
		viz.PowerSpectrumDB(samples, block.spectrumSize))
}
