// Package normalize maps the shape-variable records returned by the analysis
// capability onto the canonical element model.
//
// Every canonical field is resolved through an ordered list of accepted
// source names; the first present, non-null value wins and a kind-specific
// default fills the rest. Normalization never fails for missing fields.
package normalize

import (
	"errors"
	"fmt"
	"time"

	"github.com/agenthands/insightflow/internal/core/model"
)

// ErrNotObject is returned for a record that is not a JSON object.
var ErrNotObject = errors.New("record is not an object")

// Normalizer converts raw records to canonical elements.
type Normalizer struct {
	now func() time.Time
}

type Option func(*Normalizer)

// WithClock sets the time used for records without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// NewNormalizer creates a new Normalizer
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts one record of the given kind. index is the record's
// position in its raw array and seeds the synthesized id when the record
// has none.
func (n *Normalizer) Normalize(kind model.Kind, index int, record any) (model.Element, error) {
	rec, ok := record.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s[%d]: %w (got %T)", kind, index, ErrNotObject, record)
	}
	switch kind {
	case model.KindEmotion:
		return n.Emotion(index, rec), nil
	case model.KindBelief:
		return n.Belief(index, rec), nil
	case model.KindActionItem:
		return n.ActionItem(index, rec), nil
	case model.KindChallenge:
		return n.Challenge(index, rec), nil
	case model.KindInsight:
		return n.Insight(index, rec), nil
	}
	return nil, fmt.Errorf("unknown element kind %q", kind)
}

func (n *Normalizer) Emotion(index int, rec model.RawRecord) model.Emotion {
	e := model.Emotion{
		ID:        id(rec, model.KindEmotion, index),
		Name:      name(rec, model.KindEmotion, "name", "emotion"),
		Topic:     topic(rec),
		Timestamp: timestamp(rec, n.now),
		Context:   text(rec, "context", "description"),
	}
	if v, ok := lookup(rec, "intensity"); ok {
		e.Intensity = intensity(v)
	}
	return e
}

func (n *Normalizer) Belief(index int, rec model.RawRecord) model.Belief {
	return model.Belief{
		ID:          id(rec, model.KindBelief, index),
		Name:        name(rec, model.KindBelief, "name"),
		Description: text(rec, "text", "description", "belief"),
		Impact:      impact(rec, "impact"),
		Topic:       topic(rec),
		Timestamp:   timestamp(rec, n.now),
	}
}

func (n *Normalizer) ActionItem(index int, rec model.RawRecord) model.ActionItem {
	return model.ActionItem{
		ID:          id(rec, model.KindActionItem, index),
		Name:        name(rec, model.KindActionItem, "name", "commitment", "title"),
		Description: text(rec, "description", "text"),
		Topic:       topic(rec),
		Status:      status(rec),
		Timestamp:   timestamp(rec, n.now),
	}
}

func (n *Normalizer) Challenge(index int, rec model.RawRecord) model.Challenge {
	return model.Challenge{
		ID:          id(rec, model.KindChallenge, index),
		Name:        name(rec, model.KindChallenge, "name", "challenge"),
		Description: text(rec, "text", "description"),
		Impact:      impact(rec, "impact", "severity"),
		Topic:       topic(rec),
		Timestamp:   timestamp(rec, n.now),
	}
}

func (n *Normalizer) Insight(index int, rec model.RawRecord) model.Insight {
	return model.Insight{
		ID:          id(rec, model.KindInsight, index),
		Name:        name(rec, model.KindInsight, "name", "insight"),
		Description: text(rec, "text", "description"),
		Context:     text(rec, "context", "implications"),
		Topic:       topic(rec),
		Timestamp:   timestamp(rec, n.now),
	}
}

// Set normalizes every collection of raw. Records that are not objects are
// skipped and counted; synthesized ids keep the record's original position.
func (n *Normalizer) Set(raw model.RawElements) (model.WorkingSet, int) {
	ws := model.WorkingSet{
		Emotions:    []model.Emotion{},
		Beliefs:     []model.Belief{},
		ActionItems: []model.ActionItem{},
		Challenges:  []model.Challenge{},
		Insights:    []model.Insight{},
	}
	skipped := 0
	for _, kind := range model.Kinds {
		for i, record := range raw.Records(kind) {
			el, err := n.Normalize(kind, i, record)
			if err != nil {
				skipped++
				continue
			}
			switch e := el.(type) {
			case model.Emotion:
				ws.Emotions = append(ws.Emotions, e)
			case model.Belief:
				ws.Beliefs = append(ws.Beliefs, e)
			case model.ActionItem:
				ws.ActionItems = append(ws.ActionItems, e)
			case model.Challenge:
				ws.Challenges = append(ws.Challenges, e)
			case model.Insight:
				ws.Insights = append(ws.Insights, e)
			}
		}
	}
	return ws, skipped
}

func id(rec model.RawRecord, kind model.Kind, index int) string {
	if s := text(rec, "id", "_id", "uuid"); s != "" {
		return s
	}
	return fmt.Sprintf("%s_%d", kind.Prefix(), index)
}

func name(rec model.RawRecord, kind model.Kind, keys ...string) string {
	if s := text(rec, keys...); s != "" {
		return s
	}
	return kind.Placeholder()
}
