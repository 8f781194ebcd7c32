package model

import "slices"

// WorkingSet is the five canonical collections of one session.
type WorkingSet struct {
	Emotions    []Emotion    `json:"emotions"`
	Beliefs     []Belief     `json:"beliefs"`
	ActionItems []ActionItem `json:"action_items"`
	Challenges  []Challenge  `json:"challenges"`
	Insights    []Insight    `json:"insights"`
}

// Clone returns a deep copy. Element variants hold only value fields, so
// copying each backing array is sufficient. Nil collections become empty ones.
func (w WorkingSet) Clone() WorkingSet {
	return WorkingSet{
		Emotions:    cloneSlice(w.Emotions),
		Beliefs:     cloneSlice(w.Beliefs),
		ActionItems: cloneSlice(w.ActionItems),
		Challenges:  cloneSlice(w.Challenges),
		Insights:    cloneSlice(w.Insights),
	}
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}

// Len returns the number of elements of the given kind.
func (w WorkingSet) Len(kind Kind) int {
	switch kind {
	case KindEmotion:
		return len(w.Emotions)
	case KindBelief:
		return len(w.Beliefs)
	case KindActionItem:
		return len(w.ActionItems)
	case KindChallenge:
		return len(w.Challenges)
	case KindInsight:
		return len(w.Insights)
	}
	return 0
}

// Total is the element count across all kinds.
func (w WorkingSet) Total() int {
	n := 0
	for _, k := range Kinds {
		n += w.Len(k)
	}
	return n
}

// Snapshot is an immutable baseline of a WorkingSet. It only hands out copies.
type Snapshot struct {
	set WorkingSet
}

// NewSnapshot deep-copies ws.
func NewSnapshot(ws WorkingSet) Snapshot {
	return Snapshot{set: ws.Clone()}
}

// Set returns a copy of the baseline.
func (s Snapshot) Set() WorkingSet {
	return s.set.Clone()
}

// View exposes the baseline without copying; callers must not mutate it.
func (s Snapshot) View() WorkingSet {
	return s.set
}
