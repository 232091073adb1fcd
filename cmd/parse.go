package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalnine/phasebench/internal/metrics"
	"github.com/signalnine/phasebench/internal/phase"
	"github.com/signalnine/phasebench/internal/report"
	"github.com/signalnine/phasebench/internal/result"
)

// collectSink keeps samples in memory instead of writing a table.
type collectSink struct {
	samples []metrics.Sample
}

func (c *collectSink) Append(s metrics.Sample) error {
	c.samples = append(c.samples, s)
	return nil
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a saved benchmark output without writing tables",
		Long:  "Route a captured output (for example raw/iteration-1.txt, or - for stdin) through the phase parser and print every sample it yields.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			phases, err := selectedPhases(cfg)
			if err != nil {
				return err
			}
			units, err := cfg.UnitTable()
			if err != nil {
				return err
			}

			var in io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			sinks := make([]*collectSink, len(phases))
			trackers := make([]*phase.Tracker, len(phases))
			for i, p := range phases {
				sinks[i] = &collectSink{}
				trackers[i] = &phase.Tracker{ID: p.ID, Name: p.Name, Header: p.Header, Sink: sinks[i]}
			}
			router := phase.NewRouter(metrics.NewParser(units, cfg.TerminatorMinLen), trackers...)
			if _, err := router.Route(in); err != nil {
				return err
			}

			var summaries []report.Summary
			for i, t := range trackers {
				if len(sinks[i].samples) == 0 && t.Incomplete() == 0 {
					continue
				}
				fmt.Printf("%s: %d complete, %d incomplete\n", t.ID, len(sinks[i].samples), t.Incomplete())
				for _, s := range sinks[i].samples {
					fmt.Printf("  %s\n", strings.Join(result.Record(s), ","))
				}
				summaries = append(summaries, report.Summary{
					ID:         t.ID,
					Name:       t.Name,
					Samples:    t.Average().Count(),
					Incomplete: t.Incomplete(),
					Mean:       t.Average().Mean(),
				})
			}
			if len(summaries) == 0 {
				return fmt.Errorf("no metrics blocks found in %s", args[0])
			}
			fmt.Println()
			return report.Write(summaries, flagFormat, os.Stdout)
		},
	}
}
