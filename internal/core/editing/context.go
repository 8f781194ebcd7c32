// Package editing owns the working copy of a session's elements and the
// snapshot it is diffed against.
package editing

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/insightflow/internal/core/dedupe"
	"github.com/agenthands/insightflow/internal/core/diff"
	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/agenthands/insightflow/internal/core/normalize"
)

var (
	ErrIndexOutOfRange = errors.New("element index out of range")
	ErrUnknownKind     = errors.New("unknown element kind")
	ErrInvalidField    = errors.New("invalid field")
)

// Loader fetches the raw elements of a session.
type Loader interface {
	SessionElements(ctx context.Context, sessionID string) (model.RawElements, error)
}

// Context is the single editing context of one session. All methods are
// safe for concurrent use; Working and Snapshot hand out copies.
type Context struct {
	SessionID string

	mu       sync.Mutex
	working  model.WorkingSet
	snapshot model.Snapshot
	editing  map[string]struct{}
	loadErr  error

	newID func() string
	now   func() time.Time
}

// NewContext starts editing ws. The working copy and the snapshot are
// independent deep copies.
func NewContext(sessionID string, ws model.WorkingSet) *Context {
	return &Context{
		SessionID: sessionID,
		working:   ws.Clone(),
		snapshot:  model.NewSnapshot(ws),
		editing:   make(map[string]struct{}),
		newID:     TempID,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Open loads, normalizes and deduplicates the session's elements.
func Open(ctx context.Context, loader Loader, sessionID string, n *normalize.Normalizer) (*Context, error) {
	raw, err := loader.SessionElements(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load elements for session %s: %w", sessionID, err)
	}
	if n == nil {
		n = normalize.NewNormalizer()
	}
	ws, _ := n.Set(raw)
	return NewContext(sessionID, dedupe.WorkingSet(ws)), nil
}

// OpenEmpty starts editing an empty set after a failed load. LoadErr
// reports why.
func OpenEmpty(sessionID string, loadErr error) *Context {
	c := NewContext(sessionID, model.WorkingSet{})
	c.loadErr = loadErr
	return c
}

// TempID is the id given to elements created on the client.
func TempID() string {
	return "temp_" + uuid.NewString()
}

func (c *Context) LoadErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

func (c *Context) Working() model.WorkingSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.working.Clone()
}

func (c *Context) Snapshot() model.WorkingSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot.Set()
}

func (c *Context) HasChanges() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return diff.HasChanges(c.working, c.snapshot.View())
}

func (c *Context) Changes() diff.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return diff.Compare(c.working, c.snapshot.View())
}

// Add appends a new element of kind with the defaults of a fresh entry and
// marks it as being edited. A blank name becomes the kind's placeholder.
func (c *Context) Add(kind model.Kind, name string) (int, model.Element, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		name = kind.Placeholder()
	}
	id, ts := c.newID(), c.now()

	var (
		index int
		el    model.Element
	)
	switch kind {
	case model.KindEmotion:
		e := model.Emotion{ID: id, Name: name, Intensity: 1, Topic: model.DefaultTopic, Timestamp: ts}
		index, el = len(c.working.Emotions), e
		c.working.Emotions = append(c.working.Emotions, e)
	case model.KindBelief:
		b := model.Belief{ID: id, Name: name, Impact: model.ImpactMedium, Topic: model.DefaultTopic, Timestamp: ts}
		index, el = len(c.working.Beliefs), b
		c.working.Beliefs = append(c.working.Beliefs, b)
	case model.KindActionItem:
		a := model.ActionItem{ID: id, Name: name, Topic: model.DefaultTopic, Status: model.StatusNotStarted, Timestamp: ts}
		index, el = len(c.working.ActionItems), a
		c.working.ActionItems = append(c.working.ActionItems, a)
	case model.KindChallenge:
		ch := model.Challenge{ID: id, Name: name, Impact: model.ImpactMedium, Topic: model.DefaultTopic, Timestamp: ts}
		index, el = len(c.working.Challenges), ch
		c.working.Challenges = append(c.working.Challenges, ch)
	case model.KindInsight:
		in := model.Insight{ID: id, Name: name, Topic: model.DefaultTopic, Timestamp: ts}
		index, el = len(c.working.Insights), in
		c.working.Insights = append(c.working.Insights, in)
	default:
		return 0, nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	c.editing[marker(kind, index)] = struct{}{}
	return index, el, nil
}

// Update sets fields of the element at index. Either every field is applied
// or none is.
func (c *Context) Update(kind model.Kind, index int, fields map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch kind {
	case model.KindEmotion:
		return update(c.working.Emotions, index, fields, applyEmotion)
	case model.KindBelief:
		return update(c.working.Beliefs, index, fields, applyBelief)
	case model.KindActionItem:
		return update(c.working.ActionItems, index, fields, applyActionItem)
	case model.KindChallenge:
		return update(c.working.Challenges, index, fields, applyChallenge)
	case model.KindInsight:
		return update(c.working.Insights, index, fields, applyInsight)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func update[T any](items []T, index int, fields map[string]any, apply func(*T, string, any) error) error {
	if index < 0 || index >= len(items) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(items))
	}
	el := items[index]
	for _, field := range slices.Sorted(maps.Keys(fields)) {
		if err := apply(&el, strings.ToLower(field), fields[field]); err != nil {
			return err
		}
	}
	items[index] = el
	return nil
}

// Delete removes the element at index. Edit markers above it shift down.
func (c *Context) Delete(kind model.Kind, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	switch kind {
	case model.KindEmotion:
		c.working.Emotions, err = remove(c.working.Emotions, index)
	case model.KindBelief:
		c.working.Beliefs, err = remove(c.working.Beliefs, index)
	case model.KindActionItem:
		c.working.ActionItems, err = remove(c.working.ActionItems, index)
	case model.KindChallenge:
		c.working.Challenges, err = remove(c.working.Challenges, index)
	case model.KindInsight:
		c.working.Insights, err = remove(c.working.Insights, index)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return err
	}
	c.shiftMarkers(kind, index)
	return nil
}

func remove[T any](items []T, index int) ([]T, error) {
	if index < 0 || index >= len(items) {
		return items, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(items))
	}
	return slices.Delete(items, index, index+1), nil
}

func (c *Context) shiftMarkers(kind model.Kind, deleted int) {
	next := make(map[string]struct{}, len(c.editing))
	for m := range c.editing {
		k, i, ok := parseMarker(m)
		switch {
		case !ok || k != kind || i < deleted:
			next[m] = struct{}{}
		case i > deleted:
			next[marker(k, i-1)] = struct{}{}
		}
	}
	c.editing = next
}

// MarkEditing toggles the inline-edit marker of one element.
func (c *Context) MarkEditing(kind model.Kind, index int, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= c.working.Len(kind) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, c.working.Len(kind))
	}
	if on {
		c.editing[marker(kind, index)] = struct{}{}
	} else {
		delete(c.editing, marker(kind, index))
	}
	return nil
}

// Editing lists the open inline-edit markers, sorted.
func (c *Context) Editing() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.editing))
	for m := range c.editing {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Commit records a successful save of saved: the snapshot is replaced
// wholesale and every edit marker is cleared. The working copy is left as
// is, so edits made while the save was in flight still show as changes.
func (c *Context) Commit(saved model.WorkingSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = model.NewSnapshot(saved)
	c.editing = make(map[string]struct{})
	c.loadErr = nil
}

// Reset replaces both the working copy and the snapshot, as after a reload
// or a fresh analysis.
func (c *Context) Reset(ws model.WorkingSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.working = ws.Clone()
	c.snapshot = model.NewSnapshot(ws)
	c.editing = make(map[string]struct{})
	c.loadErr = nil
}

func marker(kind model.Kind, index int) string {
	return string(kind) + "-" + strconv.Itoa(index)
}

func parseMarker(m string) (model.Kind, int, bool) {
	kind, idx, ok := strings.Cut(m, "-")
	if !ok {
		return "", 0, false
	}
	i, err := strconv.Atoi(idx)
	if err != nil {
		return "", 0, false
	}
	return model.Kind(kind), i, true
}
