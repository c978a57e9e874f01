package claims

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxSafeInt = 1 << 53

var (
	reNonNumeric = regexp.MustCompile(`[^0-9.\-]+`)
	reISODate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// dateLayouts are tried in order for values that are not already YYYY-MM-DD.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Mon, 02 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// ToNumberOrNull strips everything but digits, '-' and '.', then parses. Nil when nothing finite remains.
func ToNumberOrNull(v any) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return finite(float64(n))
	case int64:
		return finite(float64(n))
	case json.Number:
		return parseStripped(n.String())
	case string:
		return parseStripped(n)
	default:
		return nil
	}
}

// ToIntOrNull is ToNumberOrNull truncated toward zero.
func ToIntOrNull(v any) *int {
	f := ToNumberOrNull(v)
	if f == nil {
		return nil
	}
	t := math.Trunc(*f)
	var i int
	switch {
	case t > maxSafeInt:
		i = maxSafeInt
	case t < -maxSafeInt:
		i = -maxSafeInt
	default:
		i = int(t)
	}
	return &i
}

// ToStringOrNull stringifies and trims; empty becomes nil.
func ToStringOrNull(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = x
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		s = x.String()
	case bool:
		s = strconv.FormatBool(x)
	case int:
		s = strconv.Itoa(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		s = string(b)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ToISODateOrNull accepts YYYY-MM-DD as-is and reformats anything else it can parse.
func ToISODateOrNull(v any) *string {
	s := ToStringOrNull(v)
	if s == nil {
		return nil
	}
	if reISODate.MatchString(*s) {
		return s
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			out := t.UTC().Format(time.DateOnly)
			return &out
		}
	}
	return nil
}

func parseStripped(s string) *float64 {
	stripped := reNonNumeric.ReplaceAllString(s, "")
	if stripped == "" {
		return nil
	}
	f, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return nil
	}
	return finite(f)
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
