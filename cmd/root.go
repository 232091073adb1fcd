package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signalnine/phasebench/internal/config"
)

const defaultConfigFile = "phasebench.yaml"

var (
	cfgFile       string
	flagVerbose   bool
	flagFormat    string
	flagOutputDir string
	flagPhases    string
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	yellow = color.New(color.FgYellow)
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "phasebench <iterations> <model_path> <image_path>",
		Short: "Per-phase resource benchmark harness for ML inference pipelines",
		Long: `Runs the benchmark executable <iterations> times with the model and image
paths, collects the metrics block it prints for each pipeline phase, appends
every complete sample to <output_dir>/<phase>.csv and prints the averages.`,
		Args: cobra.ExactArgs(3),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(os.Stderr)
			if flagVerbose {
				log.SetLevel(log.DebugLevel)
			}
		},
		RunE: runBenchmark,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", defaultConfigFile, "config file path")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output")
	pf.StringVar(&flagFormat, "format", "table", "summary format (table, markdown, json)")
	pf.StringVar(&flagOutputDir, "output-dir", "", "directory for phase tables (overrides output_dir)")
	pf.StringVar(&flagPhases, "phases", "", "comma separated phase ids to track (default all)")
	addRunFlags(root)

	root.AddCommand(newPhasesCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newParseCmd())
	return root
}

// loadConfig reads the config file. The default file may be absent, in
// which case the built-in configuration is used.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			log.WithField("config", cfgFile).Debug("no config file, using defaults")
			return config.Default(), nil
		}
	}
	return config.Load(cfgFile)
}

// selectedPhases applies the --phases filter to the configured phases.
func selectedPhases(cfg *config.Config) ([]config.Phase, error) {
	phases, err := filterPhases(cfg.Phases, flagPhases)
	if err != nil {
		return nil, err
	}
	if len(phases) == 0 {
		return nil, fmt.Errorf("no phases selected")
	}
	return phases, nil
}

func outputDir(cfg *config.Config) string {
	if flagOutputDir != "" {
		return flagOutputDir
	}
	return cfg.OutputDir
}
