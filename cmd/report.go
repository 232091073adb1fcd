package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/phasebench/internal/report"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report [dir]",
		Short: "Recompute phase averages from stored tables",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			phases, err := selectedPhases(cfg)
			if err != nil {
				return err
			}
			dir := outputDir(cfg)
			if cfg.Results.Timestamped {
				dir = filepath.Join(dir, "latest")
			}
			if len(args) > 0 {
				dir = args[0]
			}
			resolved, err := filepath.EvalSymlinks(dir)
			if err != nil {
				return fmt.Errorf("resolving output dir: %w", err)
			}
			return report.Generate(resolved, phases, flagFormat, os.Stdout)
		},
	}
}
