package viz

import (
	"math"
	"math/cmplx"

	"github.com/norasector/dvbtsync/pkg/dsp/filters/fir"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

const (
	DefaultSpectrumSize = 4096
	spectrumFloorDB     = -200
)

// PowerSpectrumDB averages Blackman windowed periodograms of consecutive
// fftLen blocks of samples. The result is centred on DC and scaled so that its
// largest bin is 0 dB.
func PowerSpectrumDB(samples []complex128, fftLen int) []float64 {
	if fftLen <= 0 {
		fftLen = DefaultSpectrumSize
	}
	if len(samples) < fftLen {
		fftLen = len(samples)
	}
	if fftLen == 0 {
		return nil
	}

	f := fourier.NewCmplxFFT(fftLen)
	win := fir.BlackmanWindow(fftLen)
	power := make([]float64, fftLen)
	block := make([]complex128, fftLen)
	var coeffs []complex128

	for start := 0; start+fftLen <= len(samples); start += fftLen {
		for i := range block {
			block[i] = samples[start+i] * complex(float64(win[i]), 0)
		}
		coeffs = f.Coefficients(coeffs, block)
		for i := range power {
			mag := cmplx.Abs(coeffs[f.ShiftIdx(i)])
			power[i] += mag * mag
		}
	}

	var peak float64
	for _, v := range power {
		peak = math.Max(peak, v)
	}
	ret := make([]float64, fftLen)
	for i, v := range power {
		if v == 0 || peak == 0 {
			ret[i] = spectrumFloorDB
			continue
		}
		ret[i] = math.Max(10*math.Log10(v/peak), spectrumFloorDB)
	}
	return ret
}

// SpectrumPlot renders the power spectral density of samples with the
// frequency axis in MHz relative to the centre frequency.
func SpectrumPlot(name, title string, samples []complex128, sampleRate float64, fftLen int, opts ...PlotOptions) (*ImageContainer, error) {
	psd := PowerSpectrumDB(samples, fftLen)

	p := plotWithDefaults()
	p.Title.Text = title
	p.Y.Label.Text = "Power (dB)"
	p.X.Label.Text = "Frequency (MHz)"
	p.Y.Max = 0
	p.Y.Min = -100

	for _, opt := range opts {
		opt(p)
	}

	pts := make(plotter.XYs, len(psd))
	if len(psd) > 0 {
		f := fourier.NewCmplxFFT(len(psd))
		for i, v := range psd {
			pts[i] = plotter.XY{X: f.Freq(f.ShiftIdx(i)) * sampleRate / 1e6, Y: v}
		}
	}
	if err := plotutil.AddLines(p, "psd", pts); err != nil {
		return nil, err
	}
	return render(name, p)
}
