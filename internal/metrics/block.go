package metrics

import "bufio"

const allFields = 1<<numFields - 1

// Parser reads metric blocks from a report.
type Parser struct {
	units         UnitTable
	minTerminator int
}

// NewParser returns a Parser using units for time fields. A minTerminator
// below 1 falls back to DefaultTerminatorLen.
func NewParser(units UnitTable, minTerminator int) *Parser {
	if units == nil {
		units = DefaultUnits()
	}
	if minTerminator < 1 {
		minTerminator = DefaultTerminatorLen
	}
	return &Parser{units: units, minTerminator: minTerminator}
}

// ParseBlock consumes lines from sc until a terminator line or the end of
// input. It returns the sample and true only if all five fields were found.
// When a field repeats, the last value that parses wins. The caller must drop
// the sample when ok is false.
func (p *Parser) ParseBlock(sc *bufio.Scanner) (s Sample, ok bool) {
	var found uint
	for sc.Scan() {
		tok := Tokenize(sc.Text(), p.minTerminator)
		switch tok.Kind {
		case KindTerminator:
			return s, found == allFields
		case KindField:
			if tok.rule.set(p.units, &s, tok.Value) {
				found |= 1 << tok.Field
			}
		}
	}
	return s, found == allFields
}
