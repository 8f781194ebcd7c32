package model

import (
	"strings"
	"time"
)

// Kind identifies one of the five element collections of a session.
type Kind string

const (
	KindEmotion    Kind = "emotion"
	KindBelief     Kind = "belief"
	KindActionItem Kind = "action_item"
	KindChallenge  Kind = "challenge"
	KindInsight    Kind = "insight"
)

// Kinds lists every element kind in display order.
var Kinds = []Kind{KindEmotion, KindBelief, KindActionItem, KindChallenge, KindInsight}

// ParseKind accepts singular, plural and hyphenated spellings ("action-items", "emotions").
func ParseKind(s string) (Kind, bool) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.ReplaceAll(k, "-", "_")
	switch k {
	case "emotion", "emotions":
		return KindEmotion, true
	case "belief", "beliefs":
		return KindBelief, true
	case "action_item", "action_items", "action", "actions", "actionitem", "actionitems":
		return KindActionItem, true
	case "challenge", "challenges":
		return KindChallenge, true
	case "insight", "insights":
		return KindInsight, true
	}
	return "", false
}

// Prefix is the short tag used for synthesized ids and edit markers.
func (k Kind) Prefix() string {
	switch k {
	case KindEmotion:
		return "emo"
	case KindBelief:
		return "bel"
	case KindActionItem:
		return "act"
	case KindChallenge:
		return "cha"
	case KindInsight:
		return "ins"
	}
	return "el"
}

// Placeholder is the name given to an element whose source omitted one.
func (k Kind) Placeholder() string {
	switch k {
	case KindEmotion:
		return "Unknown"
	case KindBelief:
		return "Untitled Belief"
	case KindActionItem:
		return "Untitled Action"
	case KindChallenge:
		return "Untitled Challenge"
	case KindInsight:
		return "Untitled Insight"
	}
	return "Untitled"
}

// DefaultTopic is used whenever a source record carries no usable topic.
const DefaultTopic = "General"

// Impact grades beliefs and challenges.
type Impact string

const (
	ImpactLow    Impact = "Low"
	ImpactMedium Impact = "Medium"
	ImpactHigh   Impact = "High"
)

// ParseImpact matches case-insensitively; ok is false for anything else.
func ParseImpact(s string) (Impact, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return ImpactLow, true
	case "medium", "moderate":
		return ImpactMedium, true
	case "high", "severe":
		return ImpactHigh, true
	}
	return "", false
}

// ActionStatus tracks progress on an action item.
type ActionStatus string

const (
	StatusNotStarted ActionStatus = "Not Started"
	StatusInProgress ActionStatus = "In Progress"
	StatusCompleted  ActionStatus = "Completed"
	StatusOnHold     ActionStatus = "On Hold"
)

// ParseActionStatus accepts both display labels and snake_case API values.
func ParseActionStatus(s string) (ActionStatus, bool) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("_", " ", "-", " ").Replace(k)
	switch k {
	case "not started", "todo", "pending":
		return StatusNotStarted, true
	case "in progress", "started":
		return StatusInProgress, true
	case "completed", "complete", "done":
		return StatusCompleted, true
	case "on hold", "paused", "blocked":
		return StatusOnHold, true
	}
	return "", false
}

// Element is implemented by every canonical element variant.
type Element interface {
	ElementKind() Kind
	ElementID() string
	ElementName() string
}

type Emotion struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Intensity int       `json:"intensity"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Context   string    `json:"context"`
}

type Belief struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Impact      Impact    `json:"impact"`
	Topic       string    `json:"topic"`
	Timestamp   time.Time `json:"timestamp"`
}

type ActionItem struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Topic       string       `json:"topic"`
	Status      ActionStatus `json:"status"`
	Timestamp   time.Time    `json:"timestamp"`
}

type Challenge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Impact      Impact    `json:"impact"`
	Topic       string    `json:"topic"`
	Timestamp   time.Time `json:"timestamp"`
}

type Insight struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Context     string    `json:"context"`
	Topic       string    `json:"topic"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e Emotion) ElementKind() Kind { return KindEmotion }
func (e Emotion) ElementID() string { return e.ID }
func (e Emotion) ElementName() string { return e.Name }
func (b Belief) ElementKind() Kind { return KindBelief }
func (b Belief) ElementID() string { return b.ID }
func (b Belief) ElementName() string { return b.Name }
func (a ActionItem) ElementKind() Kind { return KindActionItem }
func (a ActionItem) ElementID() string { return a.ID }
func (a ActionItem) ElementName() string { return a.Name }
func (c Challenge) ElementKind() Kind { return KindChallenge }
func (c Challenge) ElementID() string { return c.ID }
func (c Challenge) ElementName() string { return c.Name }
func (i Insight) ElementKind() Kind { return KindInsight }
func (i Insight) ElementID() string { return i.ID }
func (i Insight) ElementName() string { return i.Name }

// TopicName reduces a topic given either as a bare string or as an object
// carrying a name ({name, id, relevance}) to its string form. It returns ""
// when no name can be found.
func TopicName(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		if name, ok := t["name"].(string); ok {
			return strings.TrimSpace(name)
		}
	case Topic:
		return strings.TrimSpace(t.Name)
	case *Topic:
		if t != nil {
			return strings.TrimSpace(t.Name)
		}
	}
	return ""
}

// Topic is the rich form some producers and editing surfaces use.
type Topic struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	Relevance float64 `json:"relevance,omitempty"`
}
