package main

import (
	"github.com/spf13/cobra"

	"github.com/GroggNorvek/RaSpider/internal/app"
	"github.com/GroggNorvek/RaSpider/internal/config"
)

func ServeCmd(load func() (config.Config, error)) *cobra.Command {
	var addr string
	var pprof bool
	c := &cobra.Command{
		Use:   "serve",
		Short: "run the simulation and serve it over HTTP and websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("pprof") {
				cfg.Server.EnablePprof = pprof
			}
			return app.Run(cmd.Context(), app.Options{Config: cfg, Stdout: cmd.OutOrStdout()})
		},
	}
	c.Flags().StringVar(&addr, "addr", "", "listen address, overrides config")
	c.Flags().BoolVar(&pprof, "pprof", false, "expose /debug/pprof")
	return c
}
