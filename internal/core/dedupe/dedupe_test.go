package dedupe

import (
	"testing"

	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func names[T model.Element](xs []T) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		out = append(out, x.ElementName())
	}
	return out
}

func TestElementsKeepsFirstOccurrence(t *testing.T) {
	in := []model.Emotion{
		{ID: "emo_0", Name: "Joy"},
		{ID: "emo_1", Name: "joy "},
		{ID: "emo_2", Name: "Fear"},
	}

	got := Elements(in)

	assert.Equal(t, []string{"Joy", "Fear"}, names(got))
	assert.Equal(t, "emo_0", got[0].ID)
	assert.Len(t, in, 3)
}

func TestElementsIsIdempotent(t *testing.T) {
	tests := []struct {
		name string
		in   []model.Insight
	}{
		{"empty", nil},
		{"no duplicates", []model.Insight{{Name: "a"}, {Name: "b"}}},
		{"all duplicates", []model.Insight{{Name: "Rest"}, {Name: " REST"}, {Name: "rest"}}},
		{"mixed", []model.Insight{{Name: "x"}, {Name: "y"}, {Name: "X"}, {Name: "z"}, {Name: "y "}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := Elements(tt.in)
			twice := Elements(once)
			assert.Equal(t, once, twice)
		})
	}
}

func TestWorkingSetDoesNotCompareAcrossKinds(t *testing.T) {
	ws := model.WorkingSet{
		Emotions:   []model.Emotion{{Name: "Anxiety"}, {Name: "anxiety"}},
		Challenges: []model.Challenge{{Name: "Anxiety"}},
		Beliefs:    []model.Belief{{Name: "Untitled Belief"}, {Name: "Untitled Belief"}},
	}

	got := WorkingSet(ws)

	assert.Len(t, got.Emotions, 1)
	assert.Len(t, got.Challenges, 1)
	assert.Len(t, got.Beliefs, 1)
	assert.Equal(t, map[model.Kind]int{model.KindEmotion: 1, model.KindBelief: 1}, Removed(ws, got))
}
