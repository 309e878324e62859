package lint

// Options are per-rule settings from the lint configuration. Values arrive
// from YAML, JSON or environment layers, so numbers may be int or float64
// and lists may be []any. A missing or mistyped key yields the default.
type Options map[string]any

// Int returns the option as an int. Fractional values are truncated.
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

// Float returns the option as a float64.
func (o Options) Float(key string, def float64) float64 {
	switch n := o[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

// Bool returns the option as a bool.
func (o Options) Bool(key string, def bool) bool {
	if b, ok := o[key].(bool); ok {
		return b
	}
	return def
}

// Strings returns the option as a string list. Non-string items of a
// decoded list are dropped; an empty list yields the default.
func (o Options) Strings(key string, def []string) []string {
	var out []string
	switch v := o[key].(type) {
	case []string:
		out = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case string:
		out = []string{v}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// Range returns the [min, max] pair stored under minKey and maxKey. A
// configured pair with min > max is swapped.
func (o Options) Range(minKey, maxKey string, lo, hi float64) (float64, float64) {
	lo, hi = o.Float(minKey, lo), o.Float(maxKey, hi)
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}
