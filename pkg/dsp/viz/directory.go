package viz

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Directory writes diagnostics as <prefix><name>.png files.
type Directory struct {
	path   string
	logger zerolog.Logger
}

func NewDirectory(path string, logger zerolog.Logger) (*Directory, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating plot directory: %w", err)
	}
	return &Directory{path: path, logger: logger}, nil
}

func (d *Directory) Store(prefix string, img *ImageContainer) error {
	return os.WriteFile(filepath.Join(d.path, prefix+img.Name+".png"), img.Data, 0o644)
}

// Diagnostics returns a callback that renders each signal as a line plot. It
// is safe for concurrent use as long as names are unique.
func (d *Directory) Diagnostics(prefix string) func(name, title string, values []float64) {
	return func(name, title string, values []float64) {
		img, err := LinePlot(name, title, values)
		if err == nil {
			err = d.Store(prefix, img)
		}
		if err != nil {
			d.logger.Error().Err(err).Str("plot", name).Msg("failed to write plot")
		}
	}
}
