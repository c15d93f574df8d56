package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	// "01. symbol", "1a. open (USD)", "2: Indicator"
	ordinalPrefix = regexp.MustCompile(`^\d+[a-z]?[.:]\s*`)
	numericValue  = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][-+]?\d+)?%?$`)
	leadingZero   = regexp.MustCompile(`^-?0\d`)
)

// placeholders Alpha Vantage uses for "no value".
var placeholders = map[string]bool{"None": true, "-": true, ".": true}

// cleanKey turns an upstream key into snake_case without its ordinal prefix:
// "05. price" -> "price", "reportedEPS" -> "reported_eps",
// "open (USD)" -> "open_usd".
func cleanKey(k string) string {
	k = ordinalPrefix.ReplaceAllString(strings.TrimSpace(k), "")

	var b strings.Builder
	prevLower := false
	pendingSep := false
	for _, r := range k {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				pendingSep = true
			}
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			prevLower = true
		default:
			pendingSep = true
			prevLower = false
		}
	}
	return b.String()
}

// protectedKey reports whether values under key are identifiers that must
// never be turned into numbers, e.g. a CIK of "0000051143".
func protectedKey(key string) bool {
	switch key {
	case "symbol", "ticker", "cik", "currency", "name", "exchange", "cusip", "isin":
		return true
	}
	return strings.HasSuffix(key, "_code") ||
		strings.HasSuffix(key, "symbol") ||
		strings.HasSuffix(key, "_id") ||
		strings.HasSuffix(key, "_currency") ||
		strings.HasSuffix(key, "_name")
}

// cleanValue normalizes one value found under key. Maps and slices are
// rebuilt, never modified in place.
func cleanValue(key string, v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cleanMap(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cleanValue(key, item)
		}
		return out
	case string:
		return cleanString(key, x)
	}
	return v
}

func cleanMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		ck := cleanKey(k)
		out[ck] = cleanValue(ck, v)
	}
	return out
}

func cleanString(key, s string) any {
	s = strings.TrimSpace(s)
	if placeholders[s] {
		return nil
	}
	if protectedKey(key) {
		return s
	}
	return coerceNumber(s)
}

// coerceNumber returns s as int64 or float64 when it is a plain decimal
// number, optionally with a trailing percent sign. Anything else, including
// zero-padded codes, is returned unchanged.
func coerceNumber(s string) any {
	if !numericValue.MatchString(s) || leadingZero.MatchString(s) {
		return s
	}
	n := strings.TrimSuffix(s, "%")
	if !strings.ContainsAny(n, ".eE") {
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i
		}
	}
	f, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return s
	}
	return f
}

// normalizeTimestamp renders dates and minute-resolution times as
// "YYYY-MM-DD HH:MM:SS". Other layouts pass through unchanged.
func normalizeTimestamp(ts string) string {
	ts = strings.TrimSpace(ts)
	switch len(ts) {
	case len("2006-01-02"):
		return ts + " 00:00:00"
	case len("2006-01-02 15:04"):
		return ts + ":00"
	}
	return ts
}
