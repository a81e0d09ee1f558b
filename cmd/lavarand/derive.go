package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/lavarand/internal/capture"
	"github.com/san-kum/lavarand/internal/config"
	"github.com/san-kum/lavarand/internal/export"
	"github.com/san-kum/lavarand/internal/history"
	"github.com/san-kum/lavarand/internal/keygen"
)

const defaultInterval = 100 * time.Millisecond

var (
	count    int
	interval time.Duration
	warmup   int
	intMin   uint32
	intMax   uint32
	format   string
)

func runDerive(cmd *cobra.Command, args []string) error {
	req, err := cfg.Request()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if req.Kind, err = keygen.ParseKind(args[0]); err != nil {
			return err
		}
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if count < 1 {
		return fmt.Errorf("count must be positive, got %d", count)
	}
	outFormat, err := export.ParseFormat(format)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if err := startSource(ctx, rt); err != nil {
		return err
	}
	if err := rt.loop.Advance(ctx, cfg.Warmup); err != nil {
		return err
	}

	records, err := deriveWhileRunning(ctx, rt, req, count, interval)
	if err != nil {
		return err
	}
	return export.Write(cmd.OutOrStdout(), outFormat, records)
}

func startSource(ctx context.Context, rt *runtime) error {
	if cfg.Source != config.SourceCamera {
		return nil
	}
	if err := rt.camera.Start(ctx); err != nil {
		var de *capture.DeviceError
		if errors.As(err, &de) {
			return fmt.Errorf("%s: %w", de.Message(), err)
		}
		return err
	}
	return nil
}

// deriveWhileRunning runs the simulation loop in the background and derives
// n outputs, one every pause. Records come back oldest first.
func deriveWhileRunning(ctx context.Context, rt *runtime, req keygen.Request, n int, pause time.Duration) ([]history.Record, error) {
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()

	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error {
		if err := rt.loop.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	records := make([]history.Record, 0, n)
	src := rt.source(cfg)
	g.Go(func() error {
		defer stopLoop()
		for i := 0; i < n; i++ {
			if i > 0 {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-time.After(pause):
				}
			}
			rec, err := rt.pipeline.Derive(gctx, src, req)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return records, err
	}
	return records, nil
}
