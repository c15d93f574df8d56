package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// coerce converts a loosely typed argument to the Go representation of t:
// string, float64, int64, bool, a YYYY-MM-DD string, or []string.
func coerce(t ParamType, v any) (any, error) {
	switch t {
	case TypeString:
		return toString(v)
	case TypeNumber:
		return toNumber(v)
	case TypeInteger:
		return toInteger(v)
	case TypeBoolean:
		return toBool(v)
	case TypeDate:
		return toDate(v)
	case TypeArray:
		return toStrings(v)
	}
	return nil, fmt.Errorf("unsupported parameter type %q", t)
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}

func toNumber(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("expected number, got %q", x)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("expected number, got %q", x)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected finite number, got %v", f)
	}
	return f, nil
}

func toInteger(v any) (int64, error) {
	f, err := toNumber(v)
	if err != nil {
		return 0, fmt.Errorf("expected integer: %w", err)
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	return int64(f), nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, fmt.Errorf("expected boolean, got %q", x)
	case float64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case int:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %v", v)
}

func toDate(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected date string YYYY-MM-DD, got %T", v)
	}
	s = strings.TrimSpace(s)
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("expected date YYYY-MM-DD, got %q", s)
	}
	return d.Format(dateLayout), nil
}

// toStrings accepts a JSON array of scalars or a comma-separated string.
// Blank and repeated elements are dropped; first occurrence order is kept.
func toStrings(v any) ([]string, error) {
	var raw []any
	switch x := v.(type) {
	case []string:
		for _, s := range x {
			raw = append(raw, s)
		}
	case []any:
		raw = x
	case string:
		for _, part := range strings.Split(x, ",") {
			raw = append(raw, part)
		}
	default:
		return nil, fmt.Errorf("expected array of strings, got %T", v)
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, item := range raw {
		s, err := toString(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, nil
}

// isEmpty reports whether a coerced value carries nothing worth sending.
func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []string:
		return len(x) == 0
	}
	return false
}

// FormatValue renders a coerced value as an upstream query string value.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []string:
		return strings.Join(x, ",")
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = FormatValue(item)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
