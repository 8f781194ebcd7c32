package persist

import (
	"github.com/agenthands/insightflow/internal/core/model"
)

// UpdateRequest is the body of the upstream "replace elements" call.
type UpdateRequest struct {
	Elements Elements `json:"elements"`
}

type Elements struct {
	Emotions    []EmotionPayload    `json:"emotions"`
	Beliefs     []BeliefPayload     `json:"beliefs"`
	ActionItems []ActionItemPayload `json:"action_items"`
	Challenges  []ChallengePayload  `json:"challenges"`
	Insights    []InsightPayload    `json:"insights"`
}

type EmotionPayload struct {
	Name      string `json:"name"`
	Intensity int    `json:"intensity"`
	Context   string `json:"context"`
	Topic     string `json:"topic"`
}

type BeliefPayload struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Impact      model.Impact `json:"impact"`
	Topic       string       `json:"topic"`
}

type ActionItemPayload struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Topic       string             `json:"topic"`
	Status      model.ActionStatus `json:"status"`
}

type ChallengePayload struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Impact      model.Impact `json:"impact"`
	Topic       string       `json:"topic"`
}

type InsightPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Context     string `json:"context"`
	Topic       string `json:"topic"`
}

// Encode serializes ws. Only beliefs and action items carry ids; a missing
// one is filled from newID.
func Encode(ws model.WorkingSet, newID func() string) UpdateRequest {
	el := Elements{
		Emotions:    make([]EmotionPayload, 0, len(ws.Emotions)),
		Beliefs:     make([]BeliefPayload, 0, len(ws.Beliefs)),
		ActionItems: make([]ActionItemPayload, 0, len(ws.ActionItems)),
		Challenges:  make([]ChallengePayload, 0, len(ws.Challenges)),
		Insights:    make([]InsightPayload, 0, len(ws.Insights)),
	}
	id := func(s string) string {
		if s != "" {
			return s
		}
		return newID()
	}
	for _, e := range ws.Emotions {
		el.Emotions = append(el.Emotions, EmotionPayload{Name: e.Name, Intensity: e.Intensity, Context: e.Context, Topic: topic(e.Topic)})
	}
	for _, b := range ws.Beliefs {
		el.Beliefs = append(el.Beliefs, BeliefPayload{ID: id(b.ID), Name: b.Name, Description: b.Description, Impact: b.Impact, Topic: topic(b.Topic)})
	}
	for _, a := range ws.ActionItems {
		el.ActionItems = append(el.ActionItems, ActionItemPayload{ID: id(a.ID), Name: a.Name, Description: a.Description, Topic: topic(a.Topic), Status: a.Status})
	}
	for _, c := range ws.Challenges {
		el.Challenges = append(el.Challenges, ChallengePayload{Name: c.Name, Description: c.Description, Impact: c.Impact, Topic: topic(c.Topic)})
	}
	for _, i := range ws.Insights {
		el.Insights = append(el.Insights, InsightPayload{Name: i.Name, Description: i.Description, Context: i.Context, Topic: topic(i.Topic)})
	}
	return UpdateRequest{Elements: el}
}

func topic(s string) string {
	if t := model.TopicName(s); t != "" {
		return t
	}
	return model.DefaultTopic
}

// Raw converts the payload back into raw records, the form stores and the
// normalizer consume.
func (e Elements) Raw() model.RawElements {
	raw := model.RawElements{
		Emotions:    make([]any, 0, len(e.Emotions)),
		Beliefs:     make([]any, 0, len(e.Beliefs)),
		ActionItems: make([]any, 0, len(e.ActionItems)),
		Challenges:  make([]any, 0, len(e.Challenges)),
		Insights:    make([]any, 0, len(e.Insights)),
	}
	for _, p := range e.Emotions {
		raw.Emotions = append(raw.Emotions, map[string]any{
			"name": p.Name, "intensity": p.Intensity, "context": p.Context, "topic": p.Topic,
		})
	}
	for _, p := range e.Beliefs {
		raw.Beliefs = append(raw.Beliefs, map[string]any{
			"id": p.ID, "name": p.Name, "description": p.Description, "impact": string(p.Impact), "topic": p.Topic,
		})
	}
	for _, p := range e.ActionItems {
		raw.ActionItems = append(raw.ActionItems, map[string]any{
			"id": p.ID, "name": p.Name, "description": p.Description, "topic": p.Topic, "status": string(p.Status),
		})
	}
	for _, p := range e.Challenges {
		raw.Challenges = append(raw.Challenges, map[string]any{
			"name": p.Name, "description": p.Description, "impact": string(p.Impact), "topic": p.Topic,
		})
	}
	for _, p := range e.Insights {
		raw.Insights = append(raw.Insights, map[string]any{
			"name": p.Name, "description": p.Description, "context": p.Context, "topic": p.Topic,
		})
	}
	return raw
}
