package main

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/lavarand/internal/keygen"
)

const maxBuckets = 200

var samples int

// runDist derives many bounded integers, one lamp tick apart, and plots how
// often each value came up. The chi-square statistic shows how far the
// counts sit from uniform; it is a demonstration, not a randomness test.
func runDist(cmd *cobra.Command, args []string) error {
	req := keygen.Request{Kind: keygen.Int, Min: intMin, Max: intMax}
	if err := req.Validate(); err != nil {
		return err
	}
	buckets := int(intMax-intMin) + 1
	if buckets > maxBuckets {
		return fmt.Errorf("range %d..%d has %d values, at most %d can be plotted", intMin, intMax, buckets, maxBuckets)
	}
	if samples < 1 {
		return fmt.Errorf("samples must be positive, got %d", samples)
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

	src := rt.source(cfg)
	counts := make([]float64, buckets)
	for i := 0; i < samples; i++ {
		rec, err := rt.pipeline.Derive(ctx, src, req)
		if err != nil {
			return err
		}
		var v uint32
		if _, err := fmt.Sscan(rec.Key, &v); err != nil {
			return fmt.Errorf("parse %q: %w", rec.Key, err)
		}
		counts[v-intMin]++
		if err := rt.loop.Advance(ctx, 1); err != nil {
			return err
		}
	}

	chi, df := chiSquare(counts, samples)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "samples: %d  range: %d..%d  digest: %s\n\n", samples, intMin, intMax, rt.engine.Name())
	plot := counts
	if len(plot) == 1 {
		plot = []float64{counts[0], counts[0]}
	}
	graph := asciigraph.Plot(plot,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("count per value (%d..%d)", intMin, intMax)),
	)
	fmt.Fprintln(out, graph)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "chi-square: %.3f (df=%d, expected ~%d)\n", chi, df, df)
	return nil
}

func chiSquare(counts []float64, n int) (float64, int) {
	if len(counts) < 2 {
		return 0, 0
	}
	expected := float64(n) / float64(len(counts))
	chi := 0.0
	for _, c := range counts {
		chi += math.Pow(c-expected, 2) / expected
	}
	return chi, len(counts) - 1
}
