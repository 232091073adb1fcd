// Package metrics parses per-phase resource reports and keeps running averages.
package metrics

// Sample is one complete set of measurements for a phase. Times are in
// milliseconds, CPU usage in percent and MaxRSS in whatever unit the
// benchmarked program reports.
type Sample struct {
	UserTimeMs   float64 `json:"user_time_ms"`
	SystemTimeMs float64 `json:"system_time_ms"`
	CPUPercent   float64 `json:"cpu_percent"`
	WallClockMs  float64 `json:"wall_clock_ms"`
	MaxRSS       int64   `json:"max_rss"`
}
