package metrics

import "strings"

// Field identifies one of the five measurements in a report block.
type Field int

const (
	FieldWallClock Field = iota
	FieldUserTime
	FieldSystemTime
	FieldCPU
	FieldMaxRSS
	numFields
)

var fieldNames = [...]string{
	FieldWallClock:  "wall_clock",
	FieldUserTime:   "user_time",
	FieldSystemTime: "system_time",
	FieldCPU:        "cpu_percent",
	FieldMaxRSS:     "max_rss",
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "unknown"
	}
	return fieldNames[f]
}

type fieldRule struct {
	field Field
	label string
	set   func(units UnitTable, s *Sample, value string) bool
}

// fieldRules is checked in order and the first label found in a line wins:
// time fields, then CPU, then RSS.
var fieldRules = []fieldRule{
	{FieldWallClock, "Wall Clock Time:", func(u UnitTable, s *Sample, v string) bool {
		return setFloat(&s.WallClockMs, v, u.Millis)
	}},
	{FieldUserTime, "User time:", func(u UnitTable, s *Sample, v string) bool {
		return setFloat(&s.UserTimeMs, v, u.Millis)
	}},
	{FieldSystemTime, "System time:", func(u UnitTable, s *Sample, v string) bool {
		return setFloat(&s.SystemTimeMs, v, u.Millis)
	}},
	{FieldCPU, "CPU Usage:", func(_ UnitTable, s *Sample, v string) bool {
		return setFloat(&s.CPUPercent, v, Percent)
	}},
	{FieldMaxRSS, "Max RSS:", func(_ UnitTable, s *Sample, v string) bool {
		n, ok := Count(v)
		if ok {
			s.MaxRSS = n
		}
		return ok
	}},
}

func setFloat(dst *float64, v string, parse func(string) (float64, bool)) bool {
	f, ok := parse(v)
	if ok {
		*dst = f
	}
	return ok
}

// Kind classifies a report line.
type Kind int

const (
	KindOther Kind = iota
	KindField
	KindTerminator
)

// Token is the classification of a single line. Value holds the text after
// the matched label for KindField.
type Token struct {
	Kind  Kind
	Field Field
	Value string

	rule *fieldRule
}

// DefaultTerminatorLen is the shortest run of '=' accepted as a block end.
const DefaultTerminatorLen = 3

// Tokenize classifies line. Labels may appear anywhere in the line.
func Tokenize(line string, minTerminator int) Token {
	for i := range fieldRules {
		r := &fieldRules[i]
		if idx := strings.Index(line, r.label); idx >= 0 {
			return Token{Kind: KindField, Field: r.field, Value: line[idx+len(r.label):], rule: r}
		}
	}
	if IsTerminator(line, minTerminator) {
		return Token{Kind: KindTerminator}
	}
	return Token{Kind: KindOther}
}

// IsTerminator reports whether line, ignoring surrounding blanks, is a run of
// at least minLen '=' characters and nothing else.
func IsTerminator(line string, minLen int) bool {
	if minLen < 1 {
		minLen = 1
	}
	s := strings.TrimSpace(line)
	if len(s) < minLen {
		return false
	}
	return strings.Trim(s, "=") == ""
}
