// Package diff decides whether a working set differs from its snapshot.
//
// The comparison is index-aligned: a count mismatch in any collection is a
// change, otherwise elements at the same position are compared field by
// field. It assumes edits mutate in place, which holds for every editing
// operation in this module.
package diff

import (
	"strconv"

	"github.com/agenthands/insightflow/internal/core/model"
)

// HasChanges reports whether working differs from snapshot.
func HasChanges(working, snapshot model.WorkingSet) bool {
	for _, k := range model.Kinds {
		if working.Len(k) != snapshot.Len(k) {
			return true
		}
	}
	return firstMismatch(working.Emotions, snapshot.Emotions, emotionFields) ||
		firstMismatch(working.Beliefs, snapshot.Beliefs, beliefFields) ||
		firstMismatch(working.ActionItems, snapshot.ActionItems, actionFields) ||
		firstMismatch(working.Challenges, snapshot.Challenges, challengeFields) ||
		firstMismatch(working.Insights, snapshot.Insights, insightFields)
}

// Report describes every difference found, for "unsaved changes" displays.
type Report struct {
	Changed bool         `json:"changed"`
	Kinds   []KindReport `json:"kinds,omitempty"`
}

// KindReport lists the differences of one collection. When the counts
// differ Fields is left empty: index alignment no longer holds.
type KindReport struct {
	Kind          model.Kind       `json:"kind"`
	WorkingCount  int              `json:"working_count"`
	SnapshotCount int              `json:"snapshot_count"`
	Fields        map[int][]string `json:"fields,omitempty"`
}

// Compare builds a full Report. Report.Changed always equals HasChanges.
func Compare(working, snapshot model.WorkingSet) Report {
	var r Report
	add := func(kind model.Kind, fields map[int][]string) {
		wc, sc := working.Len(kind), snapshot.Len(kind)
		if wc == sc && len(fields) == 0 {
			return
		}
		kr := KindReport{Kind: kind, WorkingCount: wc, SnapshotCount: sc}
		if wc == sc {
			kr.Fields = fields
		}
		r.Kinds = append(r.Kinds, kr)
	}
	add(model.KindEmotion, fieldDiffs(working.Emotions, snapshot.Emotions, emotionFields))
	add(model.KindBelief, fieldDiffs(working.Beliefs, snapshot.Beliefs, beliefFields))
	add(model.KindActionItem, fieldDiffs(working.ActionItems, snapshot.ActionItems, actionFields))
	add(model.KindChallenge, fieldDiffs(working.Challenges, snapshot.Challenges, challengeFields))
	add(model.KindInsight, fieldDiffs(working.Insights, snapshot.Insights, insightFields))
	r.Changed = len(r.Kinds) > 0
	return r
}

// field is one comparable (name, value) pair of an element.
type field struct {
	name  string
	value string
}

func firstMismatch[T any](working, snapshot []T, fields func(T) []field) bool {
	for i := range working {
		if i >= len(snapshot) {
			return true
		}
		if len(mismatched(fields(working[i]), fields(snapshot[i]))) > 0 {
			return true
		}
	}
	return false
}

func fieldDiffs[T any](working, snapshot []T, fields func(T) []field) map[int][]string {
	if len(working) != len(snapshot) {
		return nil
	}
	var out map[int][]string
	for i := range working {
		if names := mismatched(fields(working[i]), fields(snapshot[i])); len(names) > 0 {
			if out == nil {
				out = make(map[int][]string)
			}
			out[i] = names
		}
	}
	return out
}

func mismatched(a, b []field) []string {
	var names []string
	for i := range a {
		if a[i].value != b[i].value {
			names = append(names, a[i].name)
		}
	}
	return names
}

// Topic values are already reduced to strings by the normalizer and the
// editing layer; TopicName trims them so whitespace-only edits do not count.
func emotionFields(e model.Emotion) []field {
	return []field{
		{"name", e.Name},
		{"intensity", strconv.Itoa(e.Intensity)},
		{"context", e.Context},
		{"topic", model.TopicName(e.Topic)},
	}
}

func beliefFields(b model.Belief) []field {
	return []field{
		{"name", b.Name},
		{"description", b.Description},
		{"impact", string(b.Impact)},
		{"topic", model.TopicName(b.Topic)},
	}
}

func actionFields(a model.ActionItem) []field {
	return []field{
		{"name", a.Name},
		{"description", a.Description},
		{"status", string(a.Status)},
		{"topic", model.TopicName(a.Topic)},
	}
}

func challengeFields(c model.Challenge) []field {
	return []field{
		{"name", c.Name},
		{"description", c.Description},
		{"impact", string(c.Impact)},
		{"topic", model.TopicName(c.Topic)},
	}
}

func insightFields(i model.Insight) []field {
	return []field{
		{"name", i.Name},
		{"description", i.Description},
		{"context", i.Context},
		{"topic", model.TopicName(i.Topic)},
	}
}
