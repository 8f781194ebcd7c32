package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/agenthands/insightflow/internal/core/model"
)

const (
	minIntensity = 0
	maxIntensity = 5
)

// lookup returns the first value among keys that is present, non-null and,
// for strings, not blank.
func lookup(rec model.RawRecord, keys ...string) (any, bool) {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// text returns the first scalar value among keys rendered as a trimmed string.
func text(rec model.RawRecord, keys ...string) string {
	for _, k := range keys {
		v, ok := lookup(rec, k)
		if !ok {
			continue
		}
		if s, ok := scalarString(v); ok {
			return s
		}
	}
	return ""
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// intensity mirrors integer-prefix parsing: 4, 4.7, "4" and "4 out of 5" all
// yield 4. Anything unparseable is 0. Results are clamped to [0, 5].
func intensity(v any) int {
	var n int
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		n = int(math.Trunc(t))
	case int:
		n = t
	case int64:
		n = int(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			n = int(i)
		} else if f, err := t.Float64(); err == nil {
			n = int(math.Trunc(f))
		}
	case string:
		n = leadingInt(t)
	default:
		return 0
	}
	return clamp(n, minIntensity, maxIntensity)
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// topic resolves `topic` (string or {name}) and then `topics[0]`.
func topic(rec model.RawRecord) string {
	if v, ok := lookup(rec, "topic"); ok {
		if name := model.TopicName(v); name != "" {
			return name
		}
	}
	if v, ok := lookup(rec, "topics"); ok {
		switch t := v.(type) {
		case []any:
			if len(t) > 0 {
				if name := model.TopicName(t[0]); name != "" {
					return name
				}
			}
		case []string:
			if len(t) > 0 && strings.TrimSpace(t[0]) != "" {
				return strings.TrimSpace(t[0])
			}
		default:
			if name := model.TopicName(t); name != "" {
				return name
			}
		}
	}
	return model.DefaultTopic
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

func timestamp(rec model.RawRecord, now func() time.Time) time.Time {
	v, ok := lookup(rec, "timestamp", "created_at", "createdAt")
	if !ok {
		return now()
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC()
			}
		}
	case float64:
		return time.UnixMilli(int64(t)).UTC()
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return time.UnixMilli(ms).UTC()
		}
	}
	return now()
}

func impact(rec model.RawRecord, keys ...string) model.Impact {
	if s := text(rec, keys...); s != "" {
		if imp, ok := model.ParseImpact(s); ok {
			return imp
		}
	}
	return model.ImpactMedium
}

func status(rec model.RawRecord) model.ActionStatus {
	if s := text(rec, "status"); s != "" {
		if st, ok := model.ParseActionStatus(s); ok {
			return st
		}
	}
	return model.StatusNotStarted
}
