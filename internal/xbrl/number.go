package xbrl

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts fact text into a whole number. Grouping commas are
// dropped and accounting negatives like "(500)" become -500. Text carrying a
// decimal point is parsed as a float and truncated toward zero.
func ParseAmount(text string) (int64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if len(s) >= 2 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace("-" + s[1:len(s)-1])
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ValueParseError{Text: text}
	}
	f = math.Trunc(f)
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, &ValueParseError{Text: text}
	}
	return int64(f), nil
}
