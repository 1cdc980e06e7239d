package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/comalice/instantx/internal/logging"
)

var (
	flagWorkers int
	flagVerbose bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "instantx",
		Short:         "Synchronous-reactive process engine demos",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "engine workers (0 = NumCPU)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log per-instant debug lines")

	cmd.AddCommand(newLifeCmd())
	cmd.AddCommand(newTrafficCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newLogger() *slog.Logger {
	if flagVerbose {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}
