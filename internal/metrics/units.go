package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Unit converts a time value to milliseconds as value * Mul / Div.
type Unit struct {
	Mul float64
	Div float64
}

var canonicalUnits = map[string]Unit{
	"s":  {Mul: 1000, Div: 1},
	"ms": {Mul: 1, Div: 1},
	"us": {Mul: 1, Div: 1000},
	"ns": {Mul: 1, Div: 1e6},
}

// UnitTable maps a unit spelling as it appears in a report to its conversion.
// Values with no unit, or with a spelling missing from the table, are taken
// as milliseconds.
type UnitTable map[string]Unit

// DefaultSpellings returns the spellings recognised for each canonical unit
// when no configuration overrides them.
func DefaultSpellings() map[string][]string {
	return map[string][]string{
		"s":  {"s", "sec"},
		"ms": {"ms"},
		"us": {"µs", "μs", "us", "microseconds"},
		"ns": {"ns"},
	}
}

// DefaultUnits is the UnitTable built from DefaultSpellings.
func DefaultUnits() UnitTable {
	t, err := NewUnitTable(DefaultSpellings())
	if err != nil {
		panic(err)
	}
	return t
}

// NewUnitTable builds a table from spellings keyed by canonical unit
// ("s", "ms", "us" or "ns").
func NewUnitTable(spellings map[string][]string) (UnitTable, error) {
	canon := make([]string, 0, len(spellings))
	for c := range spellings {
		canon = append(canon, c)
	}
	sort.Strings(canon)

	t := make(UnitTable)
	for _, c := range canon {
		u, ok := canonicalUnits[c]
		if !ok {
			return nil, fmt.Errorf("unknown unit %q (want s, ms, us or ns)", c)
		}
		for _, name := range spellings[c] {
			if name == "" {
				return nil, fmt.Errorf("unit %q: empty spelling", c)
			}
			if prev, dup := t[name]; dup && prev != u {
				return nil, fmt.Errorf("spelling %q is mapped to more than one unit", name)
			}
			t[name] = u
		}
	}
	return t, nil
}

// Millis parses "<number>[ ]<unit>" and returns the value in milliseconds.
// It reports false when text does not start with a number.
func (t UnitTable) Millis(text string) (float64, bool) {
	num, rest := splitNumber(strings.TrimLeft(text, " \t"))
	if num == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	u, ok := t[leadingUnit(rest)]
	if !ok {
		return v, true
	}
	return v * u.Mul / u.Div, true
}

// Percent parses a leading float. A trailing "%" or anything else after the
// number is ignored.
func Percent(text string) (float64, bool) {
	num, _ := splitNumber(strings.TrimLeft(text, " \t"))
	if num == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Count parses a leading non-negative integer, ignoring any fraction or unit
// after it.
func Count(text string) (int64, bool) {
	s := strings.TrimLeft(text, " \t")
	i := 0
	if i < len(s) && s[i] == '+' {
		i++
	}
	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == start {
		return 0, false
	}
	v, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// splitNumber splits s into a leading decimal float literal and the rest.
// Metrics are non-negative, so a leading '-' is no number. An exponent is
// only taken when digits follow it, so "2e" stays "2" + "e".
func splitNumber(s string) (num, rest string) {
	i := 0
	if i < len(s) && s[i] == '+' {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return "", s
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return s[:i], s[i:]
}

// leadingUnit returns the run of letters at the start of s, after optional
// blanks.
func leadingUnit(s string) string {
	s = strings.TrimLeft(s, " \t")
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		return s
	}
	return s[:end]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
