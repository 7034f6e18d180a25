package main

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"

	"github.com/esimov/ascii-lbm/config"
	fluid "github.com/esimov/ascii-lbm/fluid-solver"
	"github.com/esimov/ascii-lbm/http"
	"github.com/esimov/ascii-lbm/metrics"
	"github.com/esimov/ascii-lbm/render"
	"github.com/esimov/ascii-lbm/shapes"
	"github.com/esimov/ascii-lbm/terminal"
)

type rootOptions struct {
	configFile string
	v          *viper.Viper
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:           "ascii-lbm",
		Short:         "Lattice-Boltzmann flow simulation in the terminal and the browser",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindFlags(opts.v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(opts.v, opts.configFile)
			if err != nil {
				return err
			}
			level, err := logrus.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			opts.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (yaml, json or toml)")
	config.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newTerminalCommand(opts),
		newServeCommand(opts),
		newRunCommand(opts),
		newConfigCommand(opts),
	)
	return cmd
}

func newTerminalCommand(opts *rootOptions) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "terminal",
		Short: "Run the simulation in the terminal; draw barriers with the mouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			// termbox owns the screen, so logs go to a file.
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return err
			}
			defer f.Close()
			logrus.SetOutput(f)
			defer logrus.SetOutput(os.Stderr)

			s, err := http.NewSolver(opts.cfg)
			if err != nil {
				return err
			}
			runner := fluid.NewRunner(s, opts.cfg.StepsPerFrame, opts.cfg.FrameInterval)
			runner.SetRunning(true)

			term := terminal.New(s, runner, logrus.StandardLogger())
			term.Contrast = opts.cfg.Contrast
			term.ShapeSize = opts.cfg.Obstacle.Size

			ctx, cancel := signalContext()
			defer cancel()
			return term.Render(ctx)
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "debug.log", "file receiving the log output")
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation over a websocket, with static files and /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return http.InitServer(ctx, opts.cfg, logrus.StandardLogger())
		},
	}
}

type runOptions struct {
	steps    int
	png      string
	ppc      int
	faces    string
	cascade  string
	logEvery int
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	ro := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation headless for a number of steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeadless(opts.cfg, ro)
		},
	}
	cmd.Flags().IntVar(&ro.steps, "steps", 1000, "number of steps")
	cmd.Flags().StringVar(&ro.png, "png", "", "write the curl of the final frame to this PNG file")
	cmd.Flags().IntVar(&ro.ppc, "pixels-per-cell", 4, "PNG pixels per lattice cell")
	cmd.Flags().StringVar(&ro.faces, "faces", "", "use the faces found in this picture as obstacles")
	cmd.Flags().StringVar(&ro.cascade, "cascade", "cascade/facefinder", "pigo facefinder cascade file")
	cmd.Flags().IntVar(&ro.logEvery, "log-every", 100, "log progress every n steps, 0 disables")
	return cmd
}

func runHeadless(cfg *config.Config, ro runOptions) error {
	log := logrus.StandardLogger()
	obs := metrics.NewObserver(log)

	s, err := http.NewSolver(cfg, fluid.WithObserver(obs))
	if err != nil {
		return err
	}
	if ro.faces != "" {
		pts, err := faceObstacles(ro.faces, ro.cascade, cfg.XDim, cfg.YDim)
		if err != nil {
			return err
		}
		s.ClearBarriers()
		if err := s.SetBarriers(pts, true); err != nil {
			return err
		}
	}

	start := time.Now()
	for i := 1; i <= ro.steps; i++ {
		s.Step()
		if ro.logEvery > 0 && i%ro.logEvery == 0 {
			log.WithFields(logrus.Fields{
				"step": i,
				"mass": s.TotalMass(),
			}).Info("progress")
		}
	}
	log.WithFields(logrus.Fields{
		"steps":    ro.steps,
		"elapsed":  time.Since(start),
		"barriers": s.BarrierCount(),
	}).Info("done")

	if ro.png == "" {
		return nil
	}
	f, err := os.Create(ro.png)
	if err != nil {
		return err
	}
	frame := s.Snapshot()
	if err := render.WritePNG(f, &frame, render.NewPalette(render.DefaultColors, cfg.Contrast), ro.ppc); err != nil {
		f.Close()
		return err
	}
	log.WithField("file", ro.png).Info("wrote frame")
	return f.Close()
}

func faceObstacles(picture, cascade string, xdim, ydim int) ([]image.Point, error) {
	det, err := shapes.LoadFaceDetector(cascade)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(picture)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", picture, err)
	}
	pts := det.Obstacles(img, xdim, ydim)
	logrus.WithFields(logrus.Fields{"picture": picture, "cells": len(pts)}).Info("face obstacles")
	return pts, nil
}

// printableConfig shows the frame interval as a duration string.
type printableConfig struct {
	*config.Config
	FrameInterval string `json:"frame-interval"`
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(printableConfig{
				Config:        opts.cfg,
				FrameInterval: opts.cfg.FrameInterval.String(),
			})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
