package dedupe

import (
	"strings"

	"github.com/agenthands/insightflow/internal/core/model"
)

// Key is the identity used to detect duplicates: the trimmed, lower-cased name.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Elements drops every element whose Key was already seen, keeping the first
// occurrence and the original order. The input slice is not modified.
func Elements[T model.Element](elements []T) []T {
	seen := make(map[string]struct{}, len(elements))
	unique := make([]T, 0, len(elements))
	for _, el := range elements {
		k := Key(el.ElementName())
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, el)
	}
	return unique
}

// WorkingSet deduplicates each collection independently; names are never
// compared across kinds.
func WorkingSet(ws model.WorkingSet) model.WorkingSet {
	return model.WorkingSet{
		Emotions:    Elements(ws.Emotions),
		Beliefs:     Elements(ws.Beliefs),
		ActionItems: Elements(ws.ActionItems),
		Challenges:  Elements(ws.Challenges),
		Insights:    Elements(ws.Insights),
	}
}

// Removed reports how many elements deduplication would drop per kind.
func Removed(before, after model.WorkingSet) map[model.Kind]int {
	out := make(map[model.Kind]int)
	for _, k := range model.Kinds {
		if d := before.Len(k) - after.Len(k); d > 0 {
			out[k] = d
		}
	}
	return out
}
