package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/phasebench/internal/config"
	"github.com/signalnine/phasebench/internal/metrics"
	"github.com/signalnine/phasebench/internal/result"
)

// Summary is the averaged result of one phase.
type Summary struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Samples    int            `json:"samples"`
	Incomplete int            `json:"incomplete,omitempty"`
	Mean       metrics.Sample `json:"mean"`
}

// Generate recomputes the phase averages from the tables stored in dir and
// writes them in the given format. Phases without a table are left out.
func Generate(dir string, phases []config.Phase, format string, w io.Writer) error {
	summaries, err := FromDir(dir, phases)
	if err != nil {
		return err
	}
	return Write(summaries, format, w)
}

// FromDir folds every row of each phase table in dir into a fresh average.
func FromDir(dir string, phases []config.Phase) ([]Summary, error) {
	var summaries []Summary
	for _, p := range phases {
		samples, err := result.ReadTable(filepath.Join(dir, p.File))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var avg metrics.Average
		for _, s := range samples {
			avg.Add(s)
		}
		summaries = append(summaries, Summary{
			ID:      p.ID,
			Name:    p.Name,
			Samples: avg.Count(),
			Mean:    avg.Mean(),
		})
	}
	return summaries, nil
}

// Write renders summaries as "table" (default), "markdown" or "json".
func Write(summaries []Summary, format string, w io.Writer) error {
	switch format {
	case "markdown":
		return writeMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	case "", "table":
		return writeTable(summaries, w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func writeTable(summaries []Summary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PHASE\tSAMPLES\tWALL CLOCK (ms)\tUSER (ms)\tSYSTEM (ms)\tCPU\tMAX RSS")
	fmt.Fprintln(tw, strings.Repeat("-", 90))
	for _, s := range summaries {
		m := s.Mean
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.3f\t%.3f\t%.2f%%\t%d\n",
			s.Name, s.Samples, m.WallClockMs, m.UserTimeMs, m.SystemTimeMs, m.CPUPercent, m.MaxRSS)
	}
	return tw.Flush()
}

func writeMarkdown(summaries []Summary, w io.Writer) error {
	fmt.Fprintln(w, "| Phase | Samples | Wall Clock (ms) | User (ms) | System (ms) | CPU | Max RSS |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|")
	for _, s := range summaries {
		m := s.Mean
		fmt.Fprintf(w, "| %s | %d | %.3f | %.3f | %.3f | %.2f%% | %d |\n",
			s.Name, s.Samples, m.WallClockMs, m.UserTimeMs, m.SystemTimeMs, m.CPUPercent, m.MaxRSS)
	}
	return nil
}

func writeJSON(summaries []Summary, w io.Writer) error {
	if summaries == nil {
		summaries = []Summary{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}
