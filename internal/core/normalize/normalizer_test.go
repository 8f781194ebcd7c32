package normalize

import (
	"testing"
	"time"

	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(WithClock(func() time.Time { return fixedNow }))
}

func TestNormalizeEmptyRecordUsesDefaults(t *testing.T) {
	n := newTestNormalizer()

	for _, kind := range model.Kinds {
		el, err := n.Normalize(kind, 2, map[string]any{})
		require.NoError(t, err, kind)
		assert.Equal(t, kind, el.ElementKind())
		assert.Equal(t, kind.Placeholder(), el.ElementName())
		assert.Equal(t, kind.Prefix()+"_2", el.ElementID())
	}

	el, _ := n.Normalize(model.KindEmotion, 0, map[string]any{})
	emotion := el.(model.Emotion)
	assert.Equal(t, 0, emotion.Intensity)
	assert.Equal(t, model.DefaultTopic, emotion.Topic)
	assert.Equal(t, fixedNow, emotion.Timestamp)
	assert.Equal(t, "", emotion.Context)

	el, _ = n.Normalize(model.KindBelief, 0, map[string]any{})
	assert.Equal(t, model.ImpactMedium, el.(model.Belief).Impact)

	el, _ = n.Normalize(model.KindActionItem, 0, map[string]any{})
	assert.Equal(t, model.StatusNotStarted, el.(model.ActionItem).Status)
}

func TestNormalizeRejectsNonObjects(t *testing.T) {
	n := newTestNormalizer()

	for _, record := range []any{"Joy", 3.0, nil, []any{"x"}} {
		_, err := n.Normalize(model.KindEmotion, 0, record)
		assert.ErrorIs(t, err, ErrNotObject)
	}
}

func TestNormalizeEmotionFallbacks(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name   string
		record map[string]any
		want   model.Emotion
	}{
		{
			name:   "alternate label and string intensity",
			record: map[string]any{"emotion": "Joy", "intensity": "4"},
			want:   model.Emotion{ID: "emo_0", Name: "Joy", Intensity: 4, Topic: "General", Timestamp: fixedNow},
		},
		{
			name: "topic object and description as context",
			record: map[string]any{
				"id": "e-9", "name": "Calm", "intensity": 2.0,
				"topic":       map[string]any{"name": "Health", "id": "t1", "relevance": 0.8},
				"description": "after the walk",
				"timestamp":   "2024-04-30T08:00:00Z",
			},
			want: model.Emotion{
				ID: "e-9", Name: "Calm", Intensity: 2, Topic: "Health", Context: "after the walk",
				Timestamp: time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC),
			},
		},
		{
			name:   "topics array and blank name",
			record: map[string]any{"name": "  ", "emotion": "Fear", "topics": []any{"Work", "Career"}, "intensity": 3.9},
			want:   model.Emotion{ID: "emo_0", Name: "Fear", Intensity: 3, Topic: "Work", Timestamp: fixedNow},
		},
		{
			name:   "out of range and garbage intensity",
			record: map[string]any{"name": "Rage", "intensity": 11.0},
			want:   model.Emotion{ID: "emo_0", Name: "Rage", Intensity: 5, Topic: "General", Timestamp: fixedNow},
		},
		{
			name:   "non numeric intensity",
			record: map[string]any{"name": "Meh", "intensity": "high"},
			want:   model.Emotion{ID: "emo_0", Name: "Meh", Intensity: 0, Topic: "General", Timestamp: fixedNow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Emotion(0, tt.record))
		})
	}
}

func TestNormalizeOtherKinds(t *testing.T) {
	n := newTestNormalizer()

	belief := n.Belief(1, map[string]any{"text": "I must be perfect", "impact": "high", "topics": []any{map[string]any{"name": "Self"}}})
	assert.Equal(t, model.Belief{
		ID: "bel_1", Name: "Untitled Belief", Description: "I must be perfect",
		Impact: model.ImpactHigh, Topic: "Self", Timestamp: fixedNow,
	}, belief)

	action := n.ActionItem(0, map[string]any{"commitment": "Walk daily", "status": "in_progress", "text": "30 minutes"})
	assert.Equal(t, "Walk daily", action.Name)
	assert.Equal(t, "30 minutes", action.Description)
	assert.Equal(t, model.StatusInProgress, action.Status)

	challenge := n.Challenge(0, map[string]any{"challenge": "Procrastination", "severity": "Low"})
	assert.Equal(t, "Procrastination", challenge.Name)
	assert.Equal(t, model.ImpactLow, challenge.Impact)

	unknownImpact := n.Challenge(0, map[string]any{"name": "Noise", "impact": "catastrophic"})
	assert.Equal(t, model.ImpactMedium, unknownImpact.Impact)

	insight := n.Insight(4, map[string]any{"insight": "Rest helps", "implications": "sleep earlier", "description": "noticed twice"})
	assert.Equal(t, model.Insight{
		ID: "ins_4", Name: "Rest helps", Description: "noticed twice", Context: "sleep earlier",
		Topic: "General", Timestamp: fixedNow,
	}, insight)
}

func TestNormalizeSetSkipsNonObjects(t *testing.T) {
	n := newTestNormalizer()
	raw := model.RawElements{
		Emotions: []any{"joy", map[string]any{"name": "Fear"}},
		Insights: []any{map[string]any{"insight": "x"}},
	}

	ws, skipped := n.Set(raw)

	assert.Equal(t, 1, skipped)
	require.Len(t, ws.Emotions, 1)
	assert.Equal(t, "emo_1", ws.Emotions[0].ID)
	assert.Len(t, ws.Insights, 1)
	assert.NotNil(t, ws.Beliefs)
	assert.Empty(t, ws.Beliefs)
}
