package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/provdir/internal/reconcile"
	"github.com/sells-group/provdir/internal/source"
)

var (
	standardizeSources []string
	standardizeFormat  string
)

var standardizeCmd = &cobra.Command{
	Use:   "standardize",
	Short: "Print canonical records for directory exports without grouping",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStandardize(cmd.Context(), cmd.OutOrStdout())
	},
}

func runStandardize(ctx context.Context, stdout io.Writer) error {
	if err := applySourceFlags(standardizeSources); err != nil {
		return err
	}
	if standardizeFormat != "" {
		cfg.Output.Format = standardizeFormat
	}
	if err := cfg.Validate(true); err != nil {
		return err
	}

	inputs, err := source.LoadDir(ctx, cfg.Sources)
	if err != nil {
		return eris.Wrap(err, "load sources")
	}
	return encode(stdout, cfg.Output.Format, reconcile.New().Standardize(inputs))
}

func init() {
	standardizeCmd.Flags().StringArrayVar(&standardizeSources, "source", nil, "directory export as name=path (repeatable, overrides config)")
	standardizeCmd.Flags().StringVar(&standardizeFormat, "format", "", "output format: json or yaml (default from config)")
	rootCmd.AddCommand(standardizeCmd)
}
