package report_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalnine/phasebench/internal/config"
	"github.com/signalnine/phasebench/internal/metrics"
	"github.com/signalnine/phasebench/internal/report"
	"github.com/signalnine/phasebench/internal/result"
)

var testPhases = []config.Phase{
	{ID: "inference", Name: "Inference", Header: "Inference Metrics", File: "inference.csv"},
	{ID: "total", Name: "Total", Header: "Total Metrics", File: "total.csv"},
	{ID: "readimg", Name: "Read Image", Header: "readimg Metrics", File: "readimg.csv"},
}

func writeTable(t *testing.T, path string, samples ...metrics.Sample) {
	t.Helper()
	tbl, err := result.CreateTable(path)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	for _, s := range samples {
		if err := tbl.Append(s); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := tbl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestFromDir(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, filepath.Join(dir, "inference.csv"),
		metrics.Sample{UserTimeMs: 10, SystemTimeMs: 2, CPUPercent: 50, WallClockMs: 20, MaxRSS: 100},
		metrics.Sample{UserTimeMs: 30, SystemTimeMs: 4, CPUPercent: 70, WallClockMs: 40, MaxRSS: 301},
	)
	writeTable(t, filepath.Join(dir, "total.csv"))

	summaries, err := report.FromDir(dir, testPhases)
	if err != nil {
		t.Fatalf("FromDir: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries (readimg has no table), got %d", len(summaries))
	}
	inf := summaries[0]
	if inf.ID != "inference" || inf.Samples != 2 {
		t.Errorf("unexpected summary %+v", inf)
	}
	if inf.Mean.UserTimeMs != 20 || inf.Mean.WallClockMs != 30 || inf.Mean.MaxRSS != 200 {
		t.Errorf("unexpected mean %+v", inf.Mean)
	}
	if summaries[1].Samples != 0 {
		t.Errorf("total: expected 0 samples, got %d", summaries[1].Samples)
	}
}

func TestGenerateTable(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, filepath.Join(dir, "inference.csv"),
		metrics.Sample{UserTimeMs: 10, SystemTimeMs: 5, CPUPercent: 75, WallClockMs: 20, MaxRSS: 1024})

	var buf bytes.Buffer
	if err := report.Generate(dir, testPhases, "table", &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	output := buf.String()
	for _, want := range []string{"PHASE", "Inference", "20.000", "75.00%", "1024"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	summaries := []report.Summary{{ID: "total", Name: "Total", Samples: 3, Mean: metrics.Sample{WallClockMs: 1.5}}}
	if err := report.Write(summaries, "markdown", &buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "| Total | 3 | 1.500 |") {
		t.Errorf("unexpected markdown:\n%s", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	summaries := []report.Summary{{ID: "total", Name: "Total", Samples: 1, Mean: metrics.Sample{MaxRSS: 9}}}
	if err := report.Write(summaries, "json", &buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var got []report.Summary
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got) != 1 || got[0].Mean.MaxRSS != 9 {
		t.Errorf("unexpected decoded summaries %+v", got)
	}

	buf.Reset()
	report.Write(nil, "json", &buf)
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty summaries: got %q, want []", buf.String())
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := report.Write(nil, "yaml", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown format")
	}
}
