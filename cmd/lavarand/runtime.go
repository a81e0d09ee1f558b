package main

import (
	"log/slog"

	"github.com/san-kum/lavarand/internal/capture"
	"github.com/san-kum/lavarand/internal/config"
	"github.com/san-kum/lavarand/internal/entropy"
	"github.com/san-kum/lavarand/internal/history"
	"github.com/san-kum/lavarand/internal/metrics"
	"github.com/san-kum/lavarand/internal/physics"
	"github.com/san-kum/lavarand/internal/pipeline"
	"github.com/san-kum/lavarand/internal/render"
	"github.com/san-kum/lavarand/internal/sim"
)

// runtime is the wired lamp, loop and derivation pipeline shared by the
// TUI and the batch commands.
type runtime struct {
	surface  *render.Surface
	loop     *sim.Loop
	activity *metrics.Activity
	engine   *entropy.Engine
	pipeline *pipeline.Pipeline
	camera   *capture.Camera
}

func newRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	engine, err := entropy.NewEngine(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	surface := render.NewSurface(physics.NewLamp(physics.NewRNG(cfg.Seed)))
	if err := surface.Resize(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	loop, err := sim.New(sim.Config{FPS: cfg.FPS}, surface)
	if err != nil {
		return nil, err
	}
	activity := metrics.NewActivity(surface, cfg.Alpha)
	loop.AddObserver(activity)

	rt := &runtime{
		surface:  surface,
		loop:     loop,
		activity: activity,
		engine:   engine,
		pipeline: pipeline.New(engine, history.New(history.DefaultCapacity), pipeline.WithLogger(logger)),
	}
	if cfg.Frames != "" {
		rt.camera = capture.NewCamera(capture.NewImageDevice(cfg.Frames), capture.WithLogger(logger))
	}

	logger.Debug("runtime ready",
		"size", cfg.Width*cfg.Height,
		"blobs", physics.BlobCount,
		"algorithm", engine.Name(),
		"camera", rt.camera != nil)
	return rt, nil
}

// source picks the configured capture source; the camera must be started
// by the caller.
func (rt *runtime) source(cfg *config.Config) capture.Source {
	if cfg.Source == config.SourceCamera && rt.camera != nil {
		return rt.camera
	}
	return capture.NewSimulated(rt.surface)
}

func (rt *runtime) Close() error {
	if rt.camera != nil {
		return rt.camera.Close()
	}
	return nil
}
