package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/lavarand/internal/config"
	"github.com/san-kum/lavarand/internal/entropy"
	"github.com/san-kum/lavarand/internal/viz"
)

var (
	configFile string
	preset     string
	source     string
	frames     string
	algorithm  string
	seed       int64
	logLevel   string
	theme      string

	cfg    *config.Config
	logger *slog.Logger
)

// main registers the commands and runs the interactive TUI when no
// subcommand is given.
func main() {
	rootCmd := &cobra.Command{
		Use:               "lavarand",
		Short:             "lava lamp entropy keys, UUIDs and integers",
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
		RunE:              runTUI,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&source, "source", config.SourceSim, "entropy source: sim or camera")
	pf.StringVar(&frames, "frames", "", "image file or directory replayed as the camera")
	pf.StringVar(&algorithm, "algorithm", config.DefaultAlgorithm, "digest algorithm")
	pf.Int64Var(&seed, "seed", 0, "lamp seed (0 = time based)")
	pf.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.Flags().StringVar(&theme, "theme", "lava", "color theme")

	deriveCmd := &cobra.Command{
		Use:       "derive [hex|uuid|int]",
		Short:     "derive outputs from the running lamp",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"hex", "uuid", "int"},
		RunE:      runDerive,
	}
	deriveCmd.Flags().IntVarP(&count, "count", "n", 1, "number of derivations")
	deriveCmd.Flags().DurationVar(&interval, "interval", defaultInterval, "pause between derivations")
	deriveCmd.Flags().IntVar(&warmup, "warmup", config.DefaultWarmup, "ticks to run before the first capture")
	deriveCmd.Flags().Uint32Var(&intMin, "min", 0, "integer lower bound")
	deriveCmd.Flags().Uint32Var(&intMax, "max", 1_000_000, "integer upper bound")
	deriveCmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json or csv")

	distCmd := &cobra.Command{
		Use:   "dist",
		Short: "histogram of bounded integers",
		Args:  cobra.NoArgs,
		RunE:  runDist,
	}
	distCmd.Flags().IntVar(&samples, "samples", 500, "number of integers to derive")
	distCmd.Flags().Uint32Var(&intMin, "min", 0, "integer lower bound")
	distCmd.Flags().Uint32Var(&intMax, "max", 9, "integer upper bound")
	distCmd.Flags().IntVar(&warmup, "warmup", config.DefaultWarmup, "ticks to run before the first capture")

	algorithmsCmd := &cobra.Command{
		Use:   "algorithms",
		Short: "list digest algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBITS\tAVAILABLE\tDEFAULT")
			for _, a := range entropy.Algorithms() {
				def := ""
				if a.Default {
					def = "*"
				}
				fmt.Fprintf(w, "%s\t%d\t%v\t%s\n", a.Name, a.Size*8, a.Available, def)
			}
			return w.Flush()
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tFPS\tALGORITHM\tOUTPUT")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				out := p.Output.Kind
				if out == "int" {
					out = fmt.Sprintf("int %d..%d", p.Output.Min, p.Output.Max)
				}
				fmt.Fprintf(w, "%s\t%dx%d\t%d\t%s\t%s\n", name, p.Width, p.Height, p.FPS, p.Algorithm, out)
			}
			return w.Flush()
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}

	rootCmd.AddCommand(deriveCmd, distCmd, algorithmsCmd, presetsCmd, configCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers defaults, preset, config file, LAVARAND_* variables and
// explicitly set flags, in that order.
func loadConfig(cmd *cobra.Command, args []string) error {
	cfg = config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source = source
	}
	if flags.Changed("frames") {
		cfg.Frames = frames
	}
	if flags.Changed("algorithm") {
		cfg.Algorithm = algorithm
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("theme") {
		cfg.Theme = theme
	}
	if flags.Changed("warmup") {
		cfg.Warmup = warmup
	}
	if flags.Changed("min") {
		cfg.Output.Min = intMin
	}
	if flags.Changed("max") {
		cfg.Output.Max = intMax
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	lvl, _ := cfg.SlogLevel()
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	logger.Debug("config loaded", "source", cfg.Source, "algorithm", cfg.Algorithm, "fps", cfg.FPS, "seed", cfg.Seed)
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	req, err := cfg.Request()
	if err != nil {
		return err
	}

	err = viz.Run(viz.Options{
		Context:   cmd.Context(),
		Loop:      rt.loop,
		Surface:   rt.surface,
		Pipeline:  rt.pipeline,
		Activity:  rt.activity,
		Camera:    rt.camera,
		Request:   req,
		Algorithm: rt.engine.Name(),
		Theme:     cfg.Theme,
		UseCamera: cfg.Source == config.SourceCamera,
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
