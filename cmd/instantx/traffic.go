package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/comalice/instantx"
	"github.com/comalice/instantx/trafficsim"
)

func newTrafficCmd() *cobra.Command {
	var (
		configPath  string
		steps       int
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "traffic",
		Short: "Run the road-traffic simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := trafficsim.DefaultConfig()
			if configPath != "" {
				var err error
				if cfg, err = trafficsim.LoadConfig(configPath); err != nil {
					return err
				}
			}
			if flagWorkers > 0 {
				cfg.Workers = flagWorkers
			}

			opts := []instantx.Option{instantx.WithLogger(newLogger())}
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				opts = append(opts, instantx.WithMetrics(reg))
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				go func() {
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), "metrics server:", err)
					}
				}()
			}

			sim, err := trafficsim.New(cfg, opts...)
			if err != nil {
				return err
			}
			defer sim.Close()

			if err := sim.Run(cmd.Context(), steps); err != nil {
				return err
			}
			if err := sim.CheckCollisions(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d cars, %d cycles, no collisions\n",
				cfg.Cars, sim.Cycles())
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML scenario file")
	cmd.Flags().IntVar(&steps, "steps", 200, "instants to run (two per traffic cycle)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address")
	return cmd
}
