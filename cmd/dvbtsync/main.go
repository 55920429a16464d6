package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/dvbtsync/pkg/capture"
	"github.com/norasector/dvbtsync/pkg/config"
	"github.com/norasector/dvbtsync/pkg/dsp/resample"
	"github.com/norasector/dvbtsync/pkg/dsp/viz"
	"github.com/norasector/dvbtsync/pkg/dvbt"
	"github.com/norasector/dvbtsync/pkg/output"
	"github.com/norasector/dvbtsync/pkg/receiver"
	"github.com/norasector/dvbtsync/pkg/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)

	configFile := pflag.StringP("config", "c", "", "YAML config file")
	captureBase := pflag.String("capture", "", "capture to process, path without the .xhdr/.xdat extension")
	cfile := pflag.StringP("out", "o", "", "write equalized symbols to this .cfile")
	plotDir := pflag.String("plots", "", "write diagnostic plots to this directory")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	opts := config.Default()
	if *configFile != "" {
		var err error
		opts, err = config.Load(*configFile)
		if err != nil {
			log.Fatal().Err(err).Msg("error loading config file")
		}
	}
	if *captureBase != "" {
		opts.Capture = *captureBase
	}
	if *cfile != "" {
		opts.Output.CFile = *cfile
	}
	if *plotDir != "" {
		opts.PlotDirectory = *plotDir
	}
	if opts.Capture == "" {
		pflag.Usage()
		os.Exit(1)
	}
	log.Logger = log.Logger.Level(opts.Level())

	var influxWriteAPI api.WriteAPI = &util.MockWriteAPI{}
	if opts.InfluxDB.Host != "" {
		client := influxdb2.NewClient(opts.InfluxDB.Host, "")
		defer client.Close()
		influxWriteAPI = client.WriteAPI(opts.InfluxDB.Organization, opts.InfluxDB.Bucket)
	}

	base := filepath.Base(opts.Capture)

	var vizServer *viz.Server
	var diagnostics dvbt.DiagnosticFunc
	var storeImage []func(img *viz.ImageContainer)
	if opts.VizServer.Port > 0 {
		vizServer = viz.NewServer(opts.VizServer.Port, log.Logger)
		diagnostics = dvbt.Tee(diagnostics, vizServer.Diagnostics(base))
		storeImage = append(storeImage, func(img *viz.ImageContainer) { vizServer.Store(base, img) })
	}
	if opts.PlotDirectory != "" {
		dir, err := viz.NewDirectory(opts.PlotDirectory, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create plot directory")
		}
		diagnostics = dvbt.Tee(diagnostics, dir.Diagnostics(base+"_"))
		storeImage = append(storeImage, func(img *viz.ImageContainer) {
			if err := dir.Store(base+"_", img); err != nil {
				log.Error().Err(err).Str("plot", img.Name).Msg("failed to write plot")
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	eg.Go(func() error {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}

		if vizServer == nil {
			return nil
		}
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		return vizServer.Stop(shutdownCtx)
	})

	if vizServer != nil {
		eg.Go(func() error {
			return vizServer.Run(ctx)
		})
	}

	eg.Go(func() error {
		p := &pipeline{
			opts:        opts,
			metrics:     influxWriteAPI,
			diagnostics: diagnostics,
			storeImage:  storeImage,
		}
		if err := p.run(ctx); err != nil {
			return err
		}
		if vizServer == nil {
			cancel()
			return nil
		}
		log.Info().Int("port", opts.VizServer.Port).Msg("serving plots until interrupted")
		return nil
	})

	err := eg.Wait()
	influxWriteAPI.Flush()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("exited program")
	}
}

type pipeline struct {
	opts        config.Config
	metrics     api.WriteAPI
	diagnostics dvbt.DiagnosticFunc
	storeImage  []func(img *viz.ImageContainer)
}

func (p *pipeline) run(ctx context.Context) error {
	dir, base := filepath.Split(p.opts.Capture)
	c, err := capture.Load(dir, base)
	if err != nil {
		return fmt.Errorf("loading capture: %w", err)
	}
	if c.Header.Name == "" {
		c.Header.Name = base
	}

	if len(p.storeImage) > 0 {
		img, err := viz.SpectrumPlot("input_psd", "Capture Power Spectral Density",
			c.Samples, c.Header.SampleRate, viz.DefaultSpectrumSize)
		if err != nil {
			log.Error().Err(err).Msg("failed to render capture spectrum")
		} else {
			for _, store := range p.storeImage {
				store(img)
			}
		}
	}

	r, err := receiver.New(
		receiver.WithLogger(log.Logger),
		receiver.WithMetrics(p.metrics),
		receiver.WithDiagnostics(p.diagnostics),
		receiver.WithWorkers(p.opts.Detector.Workers),
		receiver.WithInterpolation(p.opts.Equalizer.Interpolation),
		receiver.WithTransitionWidth(p.opts.Resample.TransitionWidth),
		receiver.WithAGC(p.opts.Resample.AGCAlpha),
	)
	if err != nil {
		return err
	}

	res, err := r.Run(ctx, c)
	if err != nil {
		return err
	}
	if !res.Detection.Matched {
		log.Warn().Str("capture", c.Header.Name).Msg("no dvb-t signal found")
		return nil
	}

	if p.opts.Output.CFile != "" {
		if err := output.WriteCFile(p.opts.Output.CFile, res.Symbols); err != nil {
			return fmt.Errorf("writing cfile: %w", err)
		}
		log.Info().Str("path", p.opts.Output.CFile).Int("symbols", res.NumSymbols()).Msg("wrote equalized symbols")
	}

	if p.opts.Output.Corrected != "" {
		span := c.Header.Span
		if span > resample.ChannelBandwidth {
			span = resample.ChannelBandwidth
		}
		outDir, outBase := filepath.Split(p.opts.Output.Corrected)
		corrected := &capture.Capture{
			Header: capture.Header{
				Name:            outBase,
				CenterFrequency: c.Header.CenterFrequency + res.Detection.FrequencyHz,
				SampleRate:      res.SampleRate,
				Span:            span,
			},
			Samples: res.Detection.Samples,
		}
		if err := capture.Save(outDir, outBase, corrected); err != nil {
			return fmt.Errorf("writing corrected capture: %w", err)
		}
		log.Info().Str("path", p.opts.Output.Corrected).Int("samples", len(corrected.Samples)).Msg("wrote corrected capture")
	}
	return nil
}
