// Package phase routes report sections to the tracker of the phase they
// describe.
package phase

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/signalnine/phasebench/internal/metrics"
)

// ErrUnreadableOutput is returned by Route when the report cannot be read to
// the end. No sample of such a report is accepted.
var ErrUnreadableOutput = errors.New("unreadable output")

const maxLineSize = 1 << 20

// Sink receives every accepted sample of a phase.
type Sink interface {
	Append(metrics.Sample) error
}

// Tracker is the per-phase state: its running average and its sink.
type Tracker struct {
	ID     string
	Name   string
	Header string
	Sink   Sink

	avg        metrics.Average
	incomplete int
}

// Average returns the running average of the phase.
func (t *Tracker) Average() *metrics.Average { return &t.avg }

// Incomplete is the number of blocks of this phase that were discarded.
func (t *Tracker) Incomplete() int { return t.incomplete }

// accept writes s to the sink and only then folds it into the average, so a
// failed write never leaves the average ahead of the table.
func (t *Tracker) accept(s metrics.Sample) error {
	if t.Sink != nil {
		if err := t.Sink.Append(s); err != nil {
			return fmt.Errorf("phase %s: %w", t.ID, err)
		}
	}
	t.avg.Add(s)
	return nil
}

// Stats describes one routed report.
type Stats struct {
	Accepted   map[string]int
	Incomplete map[string]int
}

// Router maps section header lines to phase trackers.
type Router struct {
	parser   *metrics.Parser
	trackers []*Tracker
}

// NewRouter returns a Router that checks headers in the order trackers are given.
func NewRouter(parser *metrics.Parser, trackers ...*Tracker) *Router {
	return &Router{parser: parser, trackers: trackers}
}

// Trackers returns the trackers in routing order.
func (r *Router) Trackers() []*Tracker { return r.trackers }

// Lookup finds the tracker whose header occurs in line.
func (r *Router) Lookup(line string) (*Tracker, bool) {
	for _, t := range r.trackers {
		if t.Header != "" && strings.Contains(line, t.Header) {
			return t, true
		}
	}
	return nil, false
}

// Route reads a report and hands every recognised section to the block
// parser. Lines outside known sections are ignored. Complete samples are
// committed only after the whole report was read; read errors wrap
// ErrUnreadableOutput. Sink errors are returned as is.
func (r *Router) Route(rd io.Reader) (Stats, error) {
	type pending struct {
		t *Tracker
		s metrics.Sample
	}
	var accepted []pending
	stats := Stats{Accepted: map[string]int{}, Incomplete: map[string]int{}}

	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		t, ok := r.Lookup(sc.Text())
		if !ok {
			continue
		}
		s, complete := r.parser.ParseBlock(sc)
		if !complete {
			t.incomplete++
			stats.Incomplete[t.ID]++
			log.WithField("phase", t.ID).Debug("discarding incomplete metrics block")
			continue
		}
		accepted = append(accepted, pending{t, s})
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("%w: %v", ErrUnreadableOutput, err)
	}

	for _, p := range accepted {
		if err := p.t.accept(p.s); err != nil {
			return stats, err
		}
		stats.Accepted[p.t.ID]++
	}
	return stats, nil
}
