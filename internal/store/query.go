package store

import (
	"sort"
	"time"
)

// Matches reports whether a field map satisfies every filter of q.
// Values are compared loosely so that documents survive a JSON round trip:
// all numeric types compare as float64 and RFC 3339 strings compare as the
// timestamps they encode.
func Matches(q Query, fields map[string]any) bool {
	for _, f := range q.Filters {
		v, ok := fields[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !looseEqual(v, f.Value) {
				return false
			}
		case OpIn:
			candidates, ok := f.Value.([]any)
			if !ok {
				return false
			}
			hit := false
			for _, c := range candidates {
				if looseEqual(v, c) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		}
	}
	return true
}

// SortDocs orders docs in place according to q. The sort is stable so that
// documents equal under OrderBy keep their insertion order.
func SortDocs(q Query, docs []Doc) {
	if q.OrderBy == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		cmp := Compare(docs[i].Fields[q.OrderBy], docs[j].Fields[q.OrderBy])
		if q.Desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// Compare orders two field values: -1, 0 or +1. Missing (nil) values sort
// first. Mixed types fall back to their normalized string forms.
func Compare(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if fa, aok := toFloat(a); aok {
		if fb, bok := toFloat(b); bok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}

	// Timestamps must order chronologically even after a JSON round trip
	// turned them into RFC 3339 strings with trimmed fractional seconds.
	if ta, aok := toTime(a); aok {
		if tb, bok := toTime(b); bok {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			default:
				return 0
			}
		}
	}

	sa, sb := normalizeString(a), normalizeString(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ba, aok := a.(bool); aok {
		bb, bok := b.(bool)
		return bok && ba == bb
	}
	if fa, aok := toFloat(a); aok {
		if fb, bok := toFloat(b); bok {
			return fa == fb
		}
		return false
	}
	if ta, aok := toTime(a); aok {
		if tb, bok := toTime(b); bok {
			return ta.Equal(tb)
		}
	}
	return normalizeString(a) == normalizeString(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

func normalizeString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case time.Time:
		// RFC 3339 with fixed fractional width sorts chronologically.
		return s.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
	case bool:
		if s {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// CopyFields returns a shallow copy of a field map. Backends hand copies to
// callers so callback code cannot mutate stored state.
func CopyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
