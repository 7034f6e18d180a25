package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/esimov/ascii-lbm/config"
	fluid "github.com/esimov/ascii-lbm/fluid-solver"
	"github.com/esimov/ascii-lbm/metrics"
	"github.com/esimov/ascii-lbm/shapes"
	"github.com/esimov/ascii-lbm/websocket"
)

// Params extracts the server settings from cfg.
func Params(cfg *config.Config) websocket.HttpParams {
	return websocket.HttpParams{
		Address: cfg.Address,
		Prefix:  cfg.Prefix,
		Root:    cfg.Root,
	}
}

// NewSolver builds a solver for cfg with the configured obstacle in place.
func NewSolver(cfg *config.Config, opts ...fluid.Option) (*fluid.Solver, error) {
	s, err := fluid.NewSolver(cfg.XDim, cfg.YDim, append(cfg.SolverOptions(), opts...)...)
	if err != nil {
		return nil, err
	}
	pts, err := shapes.Preset(cfg.Obstacle.Shape, cfg.XDim, cfg.YDim, cfg.Obstacle.Size)
	if err != nil {
		return nil, err
	}
	if err := s.SetBarriers(pts, true); err != nil {
		return nil, err
	}
	return s, nil
}

// InitServer runs the simulation and serves it over the websocket until ctx
// is done.
func InitServer(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) error {
	obs := metrics.NewObserver(log)
	s, err := NewSolver(cfg, fluid.WithObserver(obs))
	if err != nil {
		return err
	}
	runner := fluid.NewRunner(s, cfg.StepsPerFrame, cfg.FrameInterval)
	runner.SetRunning(true)

	srv := websocket.NewServer(s, runner, Params(cfg), obs.Handler(), log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx, srv.Broadcast)
	}()

	err = srv.ListenAndServe(ctx)
	cancel()
	<-done
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
