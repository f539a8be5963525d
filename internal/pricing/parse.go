package pricing

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var numberRun = regexp.MustCompile(`\d[\d.,\s\x{00a0}\x{202f}']*`)

// ParsePrice pulls the first amount out of retailer price text such as
// "$129.99", "£1,049", "€1.299,00" or "1 299,95 kr". It reports false when
// no positive amount is present.
func ParsePrice(text string) (float64, bool) {
	run := numberRun.FindString(text)
	if run == "" {
		return 0, false
	}

	run = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' {
			return -1
		}
		return r
	}, run)
	run = strings.TrimRight(run, ".,")

	value, err := strconv.ParseFloat(normalizeSeparators(run), 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// normalizeSeparators rewrites a number that may use either '.' or ',' as
// the decimal mark into a form strconv accepts.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Whichever comes last is the decimal mark.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			return strings.ReplaceAll(s, ".", "")
		}
		return s
	}

	return s
}
