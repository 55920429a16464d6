// Package config is the YAML configuration of the dvbtsync command.
package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/norasector/dvbtsync/pkg/dsp/resample"
	"github.com/norasector/dvbtsync/pkg/dvbt/equalizer"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

type Config struct {
	// Capture is the .xhdr/.xdat pair to process, without extension.
	Capture  string `yaml:"capture"`
	LogLevel string `yaml:"log_level"`

	Output struct {
		// CFile receives the equalized symbols as float32 I/Q.
		CFile string `yaml:"cfile"`
		// Corrected, when set, is the base path of a capture pair holding
		// the time and frequency corrected samples.
		Corrected string `yaml:"corrected"`
	} `yaml:"output"`

	Resample struct {
		TransitionWidth float64 `yaml:"transition_width"`
		// AGCAlpha enables RMS levelling of the resampled capture when non-zero.
		AGCAlpha float64 `yaml:"agc_alpha"`
	} `yaml:"resample"`

	Detector struct {
		Workers int `yaml:"workers"`
	} `yaml:"detector"`

	Equalizer struct {
		Interpolation string `yaml:"interpolation"`
	} `yaml:"equalizer"`

	// PlotDirectory receives diagnostic plots as PNG files.
	PlotDirectory string `yaml:"plot_directory"`

	VizServer struct {
		Port int `yaml:"port"`
	} `yaml:"viz_server"`

	InfluxDB struct {
		Host         string `yaml:"host"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
	} `yaml:"influxdb"`
}

func Default() Config {
	var c Config
	c.LogLevel = zerolog.InfoLevel.String()
	c.Resample.TransitionWidth = resample.DefaultTransitionWidth
	c.Detector.Workers = runtime.NumCPU()
	c.Equalizer.Interpolation = string(equalizer.Linear)
	return c
}

// Parse overlays the YAML document on Default.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling yaml: %w", err)
	}
	return c, c.Validate()
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}
	return Parse(data)
}

func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := equalizer.ParseInterpolation(c.Equalizer.Interpolation); err != nil {
		return fmt.Errorf("equalizer.interpolation: %w", err)
	}
	if c.Detector.Workers < 1 {
		return fmt.Errorf("detector.workers must be positive, got %d", c.Detector.Workers)
	}
	if c.Resample.TransitionWidth <= 0 {
		return fmt.Errorf("resample.transition_width must be positive, got %g", c.Resample.TransitionWidth)
	}
	if c.Resample.AGCAlpha < 0 || c.Resample.AGCAlpha >= 1 {
		return fmt.Errorf("resample.agc_alpha must be in [0, 1), got %g", c.Resample.AGCAlpha)
	}
	if c.VizServer.Port < 0 || c.VizServer.Port > 65535 {
		return fmt.Errorf("viz_server.port out of range: %d", c.VizServer.Port)
	}
	return nil
}

// Level is the parsed LogLevel. Validate has already rejected bad values.
func (c Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}
