package editing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	raw   model.RawElements
	err   error
	calls atomic.Int32
	delay time.Duration
}

func (s *stubLoader) SessionElements(ctx context.Context, sessionID string) (model.RawElements, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.raw, s.err
}

func sampleSet() model.WorkingSet {
	return model.WorkingSet{
		Emotions: []model.Emotion{{ID: "emo_0", Name: "Joy", Intensity: 3, Topic: "Work"}},
		Beliefs:  []model.Belief{{ID: "bel_0", Name: "I can do it", Impact: model.ImpactHigh, Topic: "General"}},
		ActionItems: []model.ActionItem{
			{ID: "act_0", Name: "Walk", Status: model.StatusNotStarted, Topic: "Health"},
			{ID: "act_1", Name: "Call mom", Status: model.StatusInProgress, Topic: "Family"},
		},
	}
}

func TestNewContext_StartsClean(t *testing.T) {
	c := NewContext("s1", sampleSet())
	assert.False(t, c.HasChanges())
	assert.False(t, c.Changes().Changed)
	assert.Equal(t, c.Working(), c.Snapshot())
}

func TestWorking_ReturnsCopy(t *testing.T) {
	c := NewContext("s1", sampleSet())
	w := c.Working()
	w.Emotions[0].Name = "Mutated"
	assert.False(t, c.HasChanges())
	assert.Equal(t, "Joy", c.Working().Emotions[0].Name)
}

func TestUpdate_FlipsHasChanges(t *testing.T) {
	c := NewContext("s1", sampleSet())
	require.NoError(t, c.Update(model.KindEmotion, 0, map[string]any{"intensity": float64(4)}))

	assert.True(t, c.HasChanges())
	assert.Equal(t, 4, c.Working().Emotions[0].Intensity)
	assert.Equal(t, 3, c.Snapshot().Emotions[0].Intensity)

	report := c.Changes()
	require.Len(t, report.Kinds, 1)
	assert.Equal(t, model.KindEmotion, report.Kinds[0].Kind)
	assert.Equal(t, []string{"intensity"}, report.Kinds[0].Fields[0])
}

func TestUpdate_TopicObjectReducedToName(t *testing.T) {
	c := NewContext("s1", sampleSet())
	require.NoError(t, c.Update(model.KindBelief, 0, map[string]any{
		"topic": map[string]any{"id": "t1", "name": "Career", "relevance": 0.8},
	}))
	assert.Equal(t, "Career", c.Working().Beliefs[0].Topic)

	require.NoError(t, c.Update(model.KindBelief, 0, map[string]any{"topic": "  "}))
	assert.Equal(t, model.DefaultTopic, c.Working().Beliefs[0].Topic)
}

func TestUpdate_IsAtomic(t *testing.T) {
	c := NewContext("s1", sampleSet())
	err := c.Update(model.KindActionItem, 1, map[string]any{
		"name":   "Call dad",
		"status": "someday",
	})
	require.ErrorIs(t, err, ErrInvalidField)
	assert.Equal(t, "Call mom", c.Working().ActionItems[1].Name)
	assert.False(t, c.HasChanges())
}

func TestUpdate_Errors(t *testing.T) {
	c := NewContext("s1", sampleSet())
	cases := []struct {
		name   string
		kind   model.Kind
		index  int
		fields map[string]any
		want   error
	}{
		{"index", model.KindEmotion, 5, map[string]any{"name": "x"}, ErrIndexOutOfRange},
		{"negative", model.KindEmotion, -1, map[string]any{"name": "x"}, ErrIndexOutOfRange},
		{"kind", model.Kind("mood"), 0, map[string]any{"name": "x"}, ErrUnknownKind},
		{"field", model.KindEmotion, 0, map[string]any{"impact": "High"}, ErrInvalidField},
		{"blank name", model.KindBelief, 0, map[string]any{"name": " "}, ErrInvalidField},
		{"intensity range", model.KindEmotion, 0, map[string]any{"intensity": 9}, ErrInvalidField},
		{"intensity text", model.KindEmotion, 0, map[string]any{"intensity": "lots"}, ErrInvalidField},
		{"impact", model.KindBelief, 0, map[string]any{"impact": "Huge"}, ErrInvalidField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, c.Update(tc.kind, tc.index, tc.fields), tc.want)
		})
	}
	assert.False(t, c.HasChanges())
}

func TestUpdate_AcceptsStatusSpellings(t *testing.T) {
	c := NewContext("s1", sampleSet())
	require.NoError(t, c.Update(model.KindActionItem, 0, map[string]any{"status": "on_hold"}))
	assert.Equal(t, model.StatusOnHold, c.Working().ActionItems[0].Status)
}

func TestAdd_Defaults(t *testing.T) {
	c := NewContext("s1", sampleSet())

	idx, el, err := c.Add(model.KindEmotion, "")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	e := el.(model.Emotion)
	assert.Equal(t, "Unknown", e.Name)
	assert.Equal(t, 1, e.Intensity)
	assert.Equal(t, model.DefaultTopic, e.Topic)
	assert.True(t, strings.HasPrefix(e.ID, "temp_"))

	_, el, err = c.Add(model.KindActionItem, "Stretch")
	require.NoError(t, err)
	a := el.(model.ActionItem)
	assert.Equal(t, "Stretch", a.Name)
	assert.Equal(t, model.StatusNotStarted, a.Status)

	_, el, err = c.Add(model.KindChallenge, "")
	require.NoError(t, err)
	assert.Equal(t, model.ImpactMedium, el.(model.Challenge).Impact)
	assert.Equal(t, "Untitled Challenge", el.ElementName())

	assert.True(t, c.HasChanges())
	assert.Equal(t, []string{"action_item-2", "challenge-0", "emotion-1"}, c.Editing())

	_, _, err = c.Add(model.Kind("mood"), "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDelete_ShiftsMarkers(t *testing.T) {
	c := NewContext("s1", sampleSet())
	_, _, err := c.Add(model.KindActionItem, "Read")
	require.NoError(t, err)
	require.NoError(t, c.MarkEditing(model.KindActionItem, 0, true))
	require.NoError(t, c.MarkEditing(model.KindEmotion, 0, true))

	require.NoError(t, c.Delete(model.KindActionItem, 1))

	w := c.Working()
	require.Len(t, w.ActionItems, 2)
	assert.Equal(t, "Walk", w.ActionItems[0].Name)
	assert.Equal(t, "Read", w.ActionItems[1].Name)
	assert.Equal(t, []string{"action_item-0", "action_item-1", "emotion-0"}, c.Editing())

	assert.ErrorIs(t, c.Delete(model.KindInsight, 0), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.Delete(model.Kind("x"), 0), ErrUnknownKind)
}

func TestDeleteThenAddKeepsCountButChanges(t *testing.T) {
	c := NewContext("s1", sampleSet())
	require.NoError(t, c.Delete(model.KindEmotion, 0))
	_, _, err := c.Add(model.KindEmotion, "Calm")
	require.NoError(t, err)
	assert.True(t, c.HasChanges())
}

func TestMarkEditing(t *testing.T) {
	c := NewContext("s1", sampleSet())
	require.NoError(t, c.MarkEditing(model.KindBelief, 0, true))
	assert.Equal(t, []string{"belief-0"}, c.Editing())
	require.NoError(t, c.MarkEditing(model.KindBelief, 0, false))
	assert.Empty(t, c.Editing())
	assert.ErrorIs(t, c.MarkEditing(model.KindBelief, 3, true), ErrIndexOutOfRange)
}

func TestCommit_ReplacesSnapshotAndClearsMarkers(t *testing.T) {
	c := NewContext("s1", sampleSet())
	_, _, err := c.Add(model.KindInsight, "Sleep matters")
	require.NoError(t, err)
	saved := c.Working()

	require.NoError(t, c.Update(model.KindEmotion, 0, map[string]any{"name": "Delight"}))
	c.Commit(saved)

	assert.Empty(t, c.Editing())
	assert.Equal(t, saved, c.Snapshot())
	assert.True(t, c.HasChanges(), "edit made after the saved copy was taken")

	c.Commit(c.Working())
	assert.False(t, c.HasChanges())
}

func TestReset(t *testing.T) {
	c := NewContext("s1", sampleSet())
	require.NoError(t, c.Delete(model.KindEmotion, 0))
	c.Reset(model.WorkingSet{Insights: []model.Insight{{ID: "ins_0", Name: "New"}}})
	assert.False(t, c.HasChanges())
	assert.Len(t, c.Working().Insights, 1)
	assert.Empty(t, c.Working().Emotions)
}

func TestOpen_NormalizesAndDedupes(t *testing.T) {
	loader := &stubLoader{raw: model.RawElements{
		Emotions: []any{
			map[string]any{"emotion": "Joy", "intensity": "4"},
			map[string]any{"name": " joy"},
		},
		ActionItems: []any{map[string]any{"commitment": "Walk daily", "status": "in_progress"}},
	}}
	c, err := Open(context.Background(), loader, "s1", nil)
	require.NoError(t, err)

	w := c.Working()
	require.Len(t, w.Emotions, 1)
	assert.Equal(t, "emo_0", w.Emotions[0].ID)
	assert.Equal(t, 4, w.Emotions[0].Intensity)
	require.Len(t, w.ActionItems, 1)
	assert.Equal(t, model.StatusInProgress, w.ActionItems[0].Status)
	assert.False(t, c.HasChanges())
}

func TestOpen_LoadError(t *testing.T) {
	_, err := Open(context.Background(), &stubLoader{err: errors.New("boom")}, "s1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s1")
}

func TestRegistry_OpenCachesAndCoalesces(t *testing.T) {
	loader := &stubLoader{raw: model.RawElements{Insights: []any{map[string]any{"insight": "x"}}}, delay: 20 * time.Millisecond}
	r := NewRegistry(loader, nil, nil)

	var wg sync.WaitGroup
	got := make([]*Context, 5)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := r.Open(context.Background(), "s1", false)
			assert.NoError(t, err)
			got[i] = c
		}(i)
	}
	wg.Wait()

	for _, c := range got {
		assert.Same(t, got[0], c)
	}
	again, err := r.Open(context.Background(), "s1", false)
	require.NoError(t, err)
	assert.Same(t, got[0], again)
	assert.LessOrEqual(t, loader.calls.Load(), int32(2))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_AllowEmpty(t *testing.T) {
	r := NewRegistry(&stubLoader{err: errors.New("upstream down")}, nil, nil)

	_, err := r.Open(context.Background(), "s1", false)
	require.Error(t, err)
	assert.Zero(t, r.Len())

	c, err := r.Open(context.Background(), "s1", true)
	require.NoError(t, err)
	assert.Zero(t, c.Working().Total())
	assert.EqualError(t, c.LoadErr(), "load elements for session s1: upstream down")
}

func TestRegistry_ReloadsAfterEmptyFallback(t *testing.T) {
	loader := &stubLoader{err: errors.New("upstream down")}
	r := NewRegistry(loader, nil, nil)

	fallback, err := r.Open(context.Background(), "s1", true)
	require.NoError(t, err)
	require.Error(t, fallback.LoadErr())

	again, err := r.Open(context.Background(), "s1", true)
	require.NoError(t, err)
	assert.Same(t, fallback, again, "a second failure keeps the open fallback")
	assert.Equal(t, int32(2), loader.calls.Load())

	loader.err = nil
	loader.raw = model.RawElements{Emotions: []any{map[string]any{"name": "Joy"}}}
	c, err := r.Open(context.Background(), "s1", false)
	require.NoError(t, err)
	assert.NotSame(t, fallback, c)
	assert.NoError(t, c.LoadErr())
	assert.Len(t, c.Working().Emotions, 1)

	got, ok := r.Get("s1")
	require.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, 1, r.Len())
}

// gatedLoader blocks until release is closed, then fails if its context
// was canceled meanwhile.
type gatedLoader struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedLoader) SessionElements(ctx context.Context, sessionID string) (model.RawElements, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
	}
	<-g.release
	if err := ctx.Err(); err != nil {
		return model.RawElements{}, err
	}
	return model.RawElements{Insights: []any{map[string]any{"insight": "x"}}}, nil
}

func TestRegistry_SharedLoadSurvivesCallerCancel(t *testing.T) {
	loader := &gatedLoader{entered: make(chan struct{}), release: make(chan struct{})}
	r := NewRegistry(loader, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := r.Open(ctx, "s1", false)
		first <- err
	}()
	<-loader.entered

	second := make(chan *Context, 1)
	go func() {
		c, err := r.Open(context.Background(), "s1", false)
		assert.NoError(t, err)
		second <- c
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(loader.release)

	require.NoError(t, <-first)
	c := <-second
	require.NotNil(t, c)
	assert.Len(t, c.Working().Insights, 1)
	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestRegistry_PutAndClose(t *testing.T) {
	r := NewRegistry(&stubLoader{}, nil, nil)
	c := r.Put("s1", sampleSet())

	got, ok := r.Get("s1")
	require.True(t, ok)
	assert.Same(t, c, got)

	assert.True(t, r.Close("s1"))
	assert.False(t, r.Close("s1"))
	_, ok = r.Get("s1")
	assert.False(t, ok)
}
