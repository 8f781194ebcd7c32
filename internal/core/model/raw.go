package model

// RawRecord is one untyped element as produced by the analysis capability.
type RawRecord = map[string]any

// RawElements holds the per-kind raw arrays of an analysis result. Entries
// are kept as `any` because producers are not guaranteed to send objects.
type RawElements struct {
	Emotions    []any `json:"emotions"`
	Beliefs     []any `json:"beliefs"`
	ActionItems []any `json:"action_items"`
	Challenges  []any `json:"challenges"`
	Insights    []any `json:"insights"`
}

// Records returns the raw array of the given kind.
func (r RawElements) Records(kind Kind) []any {
	switch kind {
	case KindEmotion:
		return r.Emotions
	case KindBelief:
		return r.Beliefs
	case KindActionItem:
		return r.ActionItems
	case KindChallenge:
		return r.Challenges
	case KindInsight:
		return r.Insights
	}
	return nil
}

// Set replaces the raw array of the given kind.
func (r *RawElements) Set(kind Kind, records []any) {
	switch kind {
	case KindEmotion:
		r.Emotions = records
	case KindBelief:
		r.Beliefs = records
	case KindActionItem:
		r.ActionItems = records
	case KindChallenge:
		r.Challenges = records
	case KindInsight:
		r.Insights = records
	}
}

// Count is the number of raw records across all kinds.
func (r RawElements) Count() int {
	n := 0
	for _, k := range Kinds {
		n += len(r.Records(k))
	}
	return n
}
