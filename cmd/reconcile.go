package main

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provdir/internal/config"
	"github.com/sells-group/provdir/internal/match"
	"github.com/sells-group/provdir/internal/reconcile"
	"github.com/sells-group/provdir/internal/resilience"
	"github.com/sells-group/provdir/internal/source"
	"github.com/sells-group/provdir/pkg/geocode"
)

var (
	reconcileSources   []string
	reconcileFormat    string
	reconcileOutput    string
	reconcileNoGeocode bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Group, synthesize and score records across directory exports",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcile(cmd.Context(), cmd.OutOrStdout())
	},
}

func runReconcile(ctx context.Context, stdout io.Writer) error {
	if err := applySourceFlags(reconcileSources); err != nil {
		return err
	}
	if reconcileFormat != "" {
		cfg.Output.Format = reconcileFormat
	}
	if reconcileNoGeocode {
		cfg.Geocode.Enabled = false
	}
	if err := cfg.Validate(true); err != nil {
		return err
	}

	inputs, err := source.LoadDir(ctx, cfg.Sources)
	if err != nil {
		return eris.Wrap(err, "load sources")
	}

	p := reconcile.New(
		reconcile.WithMatcher(newMatcher(cfg)),
		reconcile.WithConcurrency(cfg.Batch.MaxConcurrentRuns),
	)
	results, err := p.Run(ctx, inputs)
	if err != nil {
		return eris.Wrap(err, "reconcile run")
	}

	w, closeOut, err := openOutput(reconcileOutput, stdout)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck

	zap.L().Info("reconcile complete",
		zap.Int("sources", len(inputs)),
		zap.Int("groups", len(results)),
		zap.Bool("geocode", cfg.Geocode.Enabled),
	)
	return encode(w, cfg.Output.Format, results)
}

// applySourceFlags replaces configured sources when any --source flag is set.
func applySourceFlags(flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	sources, err := parseSources(flags)
	if err != nil {
		return err
	}
	cfg.Sources = sources
	return nil
}

// newMatcher builds the matcher, backed by a cached Census client unless
// geocoding is disabled.
func newMatcher(c *config.Config) *match.Matcher {
	opts := []match.Option{match.WithMaxDistanceKM(c.Match.MaxDistanceKM)}
	if !c.Geocode.Enabled {
		return match.New(opts...)
	}

	census := geocode.NewClient(
		geocode.WithRateLimit(c.Geocode.RateLimit),
		geocode.WithTimeout(time.Duration(c.Geocode.TimeoutSecs)*time.Second),
		geocode.WithRetry(resilience.DefaultRetryConfig().WithMaxAttempts(c.Geocode.MaxAttempts)),
	)
	cached := geocode.NewCachedClient(census, time.Duration(c.Geocode.CacheTTLHours)*time.Hour)
	return match.New(append(opts, match.WithGeocoder(match.FromClient(cached)))...)
}

func init() {
	reconcileCmd.Flags().StringArrayVar(&reconcileSources, "source", nil, "directory export as name=path (repeatable, overrides config)")
	reconcileCmd.Flags().StringVar(&reconcileFormat, "format", "", "output format: json or yaml (default from config)")
	reconcileCmd.Flags().StringVar(&reconcileOutput, "output", "", "write results to file (default: stdout)")
	reconcileCmd.Flags().BoolVar(&reconcileNoGeocode, "no-geocode", false, "skip Census lookups for records without coordinates")
	rootCmd.AddCommand(reconcileCmd)
}
