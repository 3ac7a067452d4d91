package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GroggNorvek/RaSpider/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RootCmd() *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:           "raspider",
		Short:         "spider colony simulation server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")

	load := func() (config.Config, error) {
		cfg, err := config.Load(configFile)
		if err != nil {
			return cfg, err
		}
		if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	root.AddCommand(ServeCmd(load), SimulateCmd(load), SchemaCmd())
	return root
}
