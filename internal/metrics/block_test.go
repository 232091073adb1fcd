package metrics_test

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/phasebench/internal/metrics"
)

func scanner(s string) *bufio.Scanner {
	return bufio.NewScanner(strings.NewReader(s))
}

func TestParseBlockComplete(t *testing.T) {
	p := metrics.NewParser(nil, 0)
	sc := scanner(`User time: 10 ms
System time: 5 ms
Wall Clock Time: 20 ms
CPU Usage: 75.0%
Max RSS: 1024
=======================================
after
`)
	s, ok := p.ParseBlock(sc)
	require.True(t, ok)
	assert.Equal(t, metrics.Sample{
		UserTimeMs:   10,
		SystemTimeMs: 5,
		CPUPercent:   75,
		WallClockMs:  20,
		MaxRSS:       1024,
	}, s)

	// The terminator is consumed, the next line is left for the caller.
	require.True(t, sc.Scan())
	assert.Equal(t, "after", sc.Text())
}

func TestParseBlockDebugDurations(t *testing.T) {
	p := metrics.NewParser(nil, 0)
	s, ok := p.ParseBlock(scanner(`Wall Clock Time: 1.5s
User time: 250µs
System time: 12.75ms
Max RSS: 3145728 bytes
CPU Usage: 0.85%
=======================================
`))
	require.True(t, ok)
	assert.InDelta(t, 1500, s.WallClockMs, 1e-9)
	assert.InDelta(t, 0.25, s.UserTimeMs, 1e-9)
	assert.InDelta(t, 12.75, s.SystemTimeMs, 1e-9)
	assert.InDelta(t, 0.85, s.CPUPercent, 1e-9)
	assert.Equal(t, int64(3145728), s.MaxRSS)
}

func TestParseBlockIncomplete(t *testing.T) {
	p := metrics.NewParser(nil, 0)
	sc := scanner(`User time: 10 ms
System time: 5 ms
Wall Clock Time: 20 ms
CPU Usage: 75.0%
=======================================
Max RSS: 1024
`)
	_, ok := p.ParseBlock(sc)
	assert.False(t, ok)
}

func TestParseBlockUnparsableValue(t *testing.T) {
	p := metrics.NewParser(nil, 0)
	_, ok := p.ParseBlock(scanner(`User time: 10 ms
System time: 5 ms
Wall Clock Time: 20 ms
CPU Usage: n/a
Max RSS: 1024
===
`))
	assert.False(t, ok, "a field without a number must not count as found")
}

func TestParseBlockNegativeValues(t *testing.T) {
	p := metrics.NewParser(nil, 0)
	_, ok := p.ParseBlock(scanner(`User time: -10 ms
System time: 5 ms
Wall Clock Time: -20 ms
CPU Usage: -75%
Max RSS: -1024
=======================================
`))
	assert.False(t, ok, "negative values must not count as found")

	for _, line := range []string{"User time: -1 ms", "System time: -1 ms", "Wall Clock Time: -1 ms", "CPU Usage: -1%", "Max RSS: -1"} {
		fields := map[string]string{
			"User time":       "User time: 1 ms",
			"System time":     "System time: 1 ms",
			"Wall Clock Time": "Wall Clock Time: 1 ms",
			"CPU Usage":       "CPU Usage: 1%",
			"Max RSS":         "Max RSS: 1",
		}
		label := line[:strings.Index(line, ":")]
		fields[label] = line
		var b strings.Builder
		for _, l := range fields {
			b.WriteString(l + "\n")
		}
		b.WriteString("===\n")
		_, ok := p.ParseBlock(scanner(b.String()))
		assert.False(t, ok, "block with %q must be incomplete", line)
	}
}

func TestParseBlockDuplicateFieldDoesNotFillGap(t *testing.T) {
	p := metrics.NewParser(nil, 0)
	_, ok := p.ParseBlock(scanner(`User time: 10 ms
User time: 11 ms
System time: 5 ms
Wall Clock Time: 20 ms
CPU Usage: 75.0%
===
`))
	assert.False(t, ok)
}

func TestParseBlockLastValueWins(t *testing.T) {
	p := metrics.NewParser(nil, 0)
	s, ok := p.ParseBlock(scanner(`User time: 10 ms
System time: 5 ms
Wall Clock Time: 20 ms
CPU Usage: 75.0%
Max RSS: 1024
User time: 99 ms
Max RSS: 2048
===
`))
	require.True(t, ok)
	assert.Equal(t, 99.0, s.UserTimeMs)
	assert.Equal(t, int64(2048), s.MaxRSS)
}

func TestParseBlockEndOfInput(t *testing.T) {
	p := metrics.NewParser(nil, 0)
	s, ok := p.ParseBlock(scanner("User time: 1\nSystem time: 2\nWall Clock Time: 3\nCPU Usage: 4\nMax RSS: 5"))
	require.True(t, ok)
	assert.Equal(t, int64(5), s.MaxRSS)

	_, ok = p.ParseBlock(scanner(""))
	assert.False(t, ok)
}

func TestParseBlockCustomTerminatorLen(t *testing.T) {
	p := metrics.NewParser(nil, 10)
	s, ok := p.ParseBlock(scanner(`User time: 1
System time: 2
=====
Wall Clock Time: 3
CPU Usage: 4
Max RSS: 5
==========
Max RSS: 6
`))
	require.True(t, ok, "a short '=' run is not a terminator at min length 10")
	assert.Equal(t, int64(5), s.MaxRSS)
}
