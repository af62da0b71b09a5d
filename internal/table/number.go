package table

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Pre-compiled regex for numeric validation (avoids recompilation on each call)
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// DecimalAuto lets the loader treat a lone comma as the decimal separator
// unless the comma is also the field delimiter.
const DecimalAuto rune = 0

// ParseDecimalSeparator converts a configuration value (".", "," or "auto").
func ParseDecimalSeparator(s string) (rune, error) {
	switch strings.TrimSpace(s) {
	case "", "auto":
		return DecimalAuto, nil
	case ".":
		return '.', nil
	case ",":
		return ',', nil
	default:
		return 0, fmt.Errorf("unsupported decimal separator %q", s)
	}
}

// ParseNumber reports whether raw is a decimal, integer, or scientific-notation
// number once the decimal separator is normalized to '.'.
func ParseNumber(raw string, decimal, delimiter rune) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")

	switch decimal {
	case ',':
		if commas > 1 || (commas == 1 && dots > 0) {
			return 0, false
		}
		s = strings.Replace(s, ",", ".", 1)
	case DecimalAuto:
		if delimiter != ',' && commas == 1 && dots == 0 {
			s = strings.Replace(s, ",", ".", 1)
		}
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out of float64 range.
		return 0, false
	}
	return f, true
}

// parseCell classifies one raw field.
func parseCell(raw string, decimal, delimiter rune) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Cell{Kind: CellEmpty}
	}
	if f, ok := ParseNumber(s, decimal, delimiter); ok {
		return Cell{Kind: CellNumber, Raw: s, Number: f}
	}
	return Cell{Kind: CellText, Raw: s}
}
