package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPhasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phases",
		Short: "List the tracked phases and their tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			phases, err := selectedPhases(cfg)
			if err != nil {
				return err
			}
			fmt.Println("Phases:")
			for _, p := range phases {
				fmt.Printf("  - %s (%s) header %q -> %s\n", p.ID, p.Name, p.Header, p.File)
			}
			return nil
		},
	}
}
