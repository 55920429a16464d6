// Package viz renders diagnostic signals to PNG and serves or stores them.
package viz

import (
	"bytes"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

type PlotOptions func(p *plot.Plot)

type ImageContainer struct {
	Name string
	Data []byte
}

func plotWithDefaults() *plot.Plot {

	p := plot.New()
	p.BackgroundColor = color.Black
	p.Title.TextStyle.Color = color.White
	p.Y.Label.TextStyle.Color = color.White
	p.Y.Color = color.White
	p.X.Label.TextStyle.Color = color.White
	p.X.Color = color.White
	p.Legend.TextStyle.Color = color.White
	p.X.Tick.Color = color.White
	p.Y.Tick.Color = color.White
	p.X.Tick.Label.Color = color.White
	p.Y.Tick.Label.Color = color.White

	p.Add(plotter.NewGrid())

	return p
}

func render(name string, p *plot.Plot) (*ImageContainer, error) {
	var imageData bytes.Buffer
	w, err := p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	if _, err := w.WriteTo(&imageData); err != nil {
		return nil, err
	}
	return &ImageContainer{Name: name, Data: imageData.Bytes()}, nil
}

// LinePlot draws values against their index, the way correlation
// magnitudes are inspected.
func LinePlot(name, title string, values []float64, opts ...PlotOptions) (*ImageContainer, error) {
	p := plotWithDefaults()
	p.Title.Text = title
	p.Y.Label.Text = "Magnitude"
	p.X.Label.Text = "Index"

	for _, opt := range opts {
		opt(p)
	}

	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	if err := plotutil.AddLines(p, name, pts); err != nil {
		return nil, err
	}
	return render(name, p)
}
