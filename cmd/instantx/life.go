package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/comalice/instantx"
	"github.com/comalice/instantx/gameoflife"
)

func newLifeCmd() *cobra.Command {
	var (
		width, height int
		generations   int
		fps           int
	)
	cmd := &cobra.Command{
		Use:   "life",
		Short: "Run Conway's game of life, one generation per instant",
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer := gameoflife.NewRenderer(cmd.OutOrStdout(), width, height)
			board, err := gameoflife.New(gameoflife.Config{
				Width:   width,
				Height:  height,
				Alive:   gameoflife.Glider(1, 1),
				Workers: flagWorkers,
			},
				gameoflife.WithRenderer(renderer.Render),
				gameoflife.WithRuntimeOptions(instantx.WithLogger(newLogger())),
			)
			if err != nil {
				return err
			}
			defer board.Close()

			interval := time.Second / time.Duration(max(fps, 1))
			for g := 0; g < generations; g++ {
				if err := board.Advance(cmd.Context(), 1); err != nil {
					return err
				}
				time.Sleep(interval)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 24, "board width")
	cmd.Flags().IntVar(&height, "height", 16, "board height")
	cmd.Flags().IntVar(&generations, "generations", 120, "generations to run")
	cmd.Flags().IntVar(&fps, "fps", 10, "generations per second")
	return cmd
}
