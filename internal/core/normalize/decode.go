package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/agenthands/insightflow/internal/core/model"
)

// Accepted collection keys per kind, in lookup order.
var collectionKeys = map[model.Kind][]string{
	model.KindEmotion:    {"emotions"},
	model.KindBelief:     {"beliefs"},
	model.KindActionItem: {"action_items", "actionItems", "commitments"},
	model.KindChallenge:  {"challenges"},
	model.KindInsight:    {"insights"},
}

// Envelope keys that may wrap the collections.
var envelopeKeys = []string{"elements", "data", "results", "result", "analysis"}

// Decode parses an analysis or elements response body into raw arrays.
func Decode(data []byte) (model.RawElements, error) {
	raw, _, err := DecodeFound(data)
	return raw, err
}

// DecodeFound is Decode that also reports whether the body carried any
// recognized collection key, even an empty one.
func DecodeFound(data []byte) (model.RawElements, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return model.RawElements{}, false, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return model.RawElements{}, false, fmt.Errorf("decode elements: %w", err)
	}
	raw, found := collect(m, 0)
	return raw, found, nil
}

// Collect extracts the per-kind arrays from an already-decoded object,
// unwrapping envelope keys until one carries a recognized collection.
func Collect(m map[string]any) model.RawElements {
	raw, _ := collect(m, 0)
	return raw
}

func collect(m map[string]any, depth int) (model.RawElements, bool) {
	var raw model.RawElements
	found := false
	for _, kind := range model.Kinds {
		for _, key := range collectionKeys[kind] {
			v, ok := m[key]
			if !ok || v == nil {
				continue
			}
			found = true
			raw.Set(kind, asList(v))
			break
		}
	}
	if found || depth >= 3 {
		return raw, found
	}
	for _, key := range envelopeKeys {
		if inner, ok := m[key].(map[string]any); ok {
			return collect(inner, depth+1)
		}
	}
	return raw, false
}

func asList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		return []any{t}
	}
	return []any{v}
}
