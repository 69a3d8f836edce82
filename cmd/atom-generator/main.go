package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("atom generator failed", "err", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "atom-generator",
		Short: "Generate INSPIRE Atom download feeds",
		Long: `Generates a static Atom service feed and one dataset feed per dataset
from a feed description and the download files in an S3 bucket.

The object store is configured with S3_ACCESS_KEY, S3_SECRET_KEY,
S3_SIGNING_REGION, S3_ENDPOINT_NO_PROTOCOL and optionally S3_USE_SSL.
NGR_ENVIRONMENT (prod or test) selects the metadata catalog.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
				Level:      level,
				TimeFormat: time.DateTime,
			})))
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(NewGenerateCommand())
	rootCmd.AddCommand(NewValidateModelsCommand())
	rootCmd.AddCommand(NewSchemaCommand())
	rootCmd.AddCommand(NewStatCommand())
	rootCmd.AddCommand(NewCheckCommand())
	rootCmd.AddCommand(NewServeCommand())

	return rootCmd
}
