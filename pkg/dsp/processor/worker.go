package processor

import "github.com/norasector/dvbtsync/pkg/dsp/viz"

// CCWorker is a complex in, complex out streaming block. Implementations keep
// their own filter history between calls.
type CCWorker interface {
	WorkBuffer([]complex64, []complex64) int
	PredictOutputSize(int) int
}

type DSPWorker struct {
	Name        string
	DisplayName string
	InputRate   int
	OutputRate  int

	worker        CCWorker
	outputBuffer  []complex64
	plotSpectrum  bool
	spectrumSize  int
	spectrumInput []complex64
}

type DSPWorkerOption func(r *DSPWorker)

// WithSpectrumPlot keeps the first size output samples of the block and emits
// their power spectrum to the processor's diagnostics once processing ends.
func WithSpectrumPlot(size int) DSPWorkerOption {
	return func(r *DSPWorker) {
		r.plotSpectrum = true
		r.spectrumSize = size
	}
}

func NewDSPWorkerCC(name, displayName string, inputRate, outputRate int, worker CCWorker, opts ...DSPWorkerOption) *DSPWorker {
	ret := &DSPWorker{
		Name:         name,
		DisplayName:  displayName,
		InputRate:    inputRate,
		OutputRate:   outputRate,
		worker:       worker,
		spectrumSize: viz.DefaultSpectrumSize,
	}

	for _, opt := range opts {
		opt(ret)
	}

	return ret
}

func (w *DSPWorker) work(input []complex64) []complex64 {
	need := w.worker.PredictOutputSize(len(input)) * 2
	if len(w.outputBuffer) < need {
		w.outputBuffer = make([]complex64, need)
	}
	n := w.worker.WorkBuffer(input, w.outputBuffer)
	out := w.outputBuffer[:n]

	if w.plotSpectrum && len(w.spectrumInput) < w.spectrumSize {
		take := w.spectrumSize - len(w.spectrumInput)
		if take > len(out) {
			take = len(out)
		}
		w.spectrumInput = append(w.spectrumInput, out[:take]...)
	}
	return out
}
