package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/GroggNorvek/RaSpider/internal/app"
	"github.com/GroggNorvek/RaSpider/internal/config"
	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/sim"
	"github.com/GroggNorvek/RaSpider/internal/telemetry"
	"github.com/GroggNorvek/RaSpider/logging"
)

func SimulateCmd(load func() (config.Config, error)) *cobra.Command {
	var (
		ticks  int
		seed   string
		asJSON bool
		drags  []string
		noPrey bool
	)
	c := &cobra.Command{
		Use:   "simulate",
		Short: "advance the world headless and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if seed != "" {
				cfg.World.Seed = seed
			}
			if noPrey {
				cfg.World.Prey.Enabled = false
			}
			// Keep the event stream off stdout so the summary stays parseable.
			cfg.Logging.EnabledSinks = withoutSink(cfg.Logging.EnabledSinks, logging.SinkConsole)

			commands := make([]sim.Command, 0, len(drags))
			for _, raw := range drags {
				cmdDrag, err := parseDrag(raw)
				if err != nil {
					return err
				}
				commands = append(commands, cmdDrag)
			}

			report, err := app.Simulate(cmd.Context(), app.Options{
				Config: cfg,
				Logger: telemetry.LoggerFunc(nil),
			}, ticks, commands)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printSummary(cmd.OutOrStdout(), report)
			return nil
		},
	}
	c.Flags().IntVar(&ticks, "ticks", 600, "number of ticks to advance")
	c.Flags().StringVar(&seed, "seed", "", "world seed, overrides config")
	c.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	c.Flags().StringArrayVar(&drags, "drag", nil, "drag gesture x1,y1:x2,y2 applied on the first tick (repeatable)")
	c.Flags().BoolVar(&noPrey, "no-prey", false, "disable mosquito spawning")
	return c
}

func withoutSink(sinks []string, name string) []string {
	out := make([]string, 0, len(sinks))
	for _, s := range sinks {
		if s != name {
			out = append(out, s)
		}
	}
	return out
}

func parseDrag(raw string) (sim.Command, error) {
	var from, to geometry.Vec2
	if _, err := fmt.Sscanf(raw, "%g,%g:%g,%g", &from.X, &from.Y, &to.X, &to.Y); err != nil {
		return sim.Command{}, fmt.Errorf("invalid drag %q: want x1,y1:x2,y2", raw)
	}
	return sim.Command{Type: sim.CommandDrag, Drag: &sim.DragCommand{Start: from, End: to}}, nil
}

func printSummary(w io.Writer, report app.Report) {
	snap := report.Snapshot
	fmt.Fprintf(w, "run %s: %d ticks\n", report.RunID, report.Ticks)
	fmt.Fprintf(w, "spiders=%d orders=%d webs=%d prey=%d\n", len(snap.Spiders), len(snap.Orders), len(snap.Webs), len(snap.Prey))
	for _, typ := range report.EventTypes() {
		fmt.Fprintf(w, "  %-36s %d\n", typ, report.Events[typ])
	}
}
