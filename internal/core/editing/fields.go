package editing

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/agenthands/insightflow/internal/core/model"
)

func invalid(field string, v any, why string) error {
	return fmt.Errorf("%w: %s=%v: %s", ErrInvalidField, field, v, why)
}

func asString(field string, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case nil:
		return "", nil
	case fmt.Stringer:
		return t.String(), nil
	}
	return "", invalid(field, v, "expected a string")
}

func setName(dst *string, v any) error {
	s, err := asString("name", v)
	if err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return invalid("name", v, "name must not be empty")
	}
	*dst = s
	return nil
}

func setText(dst *string, field string, v any) error {
	s, err := asString(field, v)
	if err != nil {
		return err
	}
	*dst = s
	return nil
}

// setTopic accepts the bare string form or an object carrying a name and
// always stores the string.
func setTopic(dst *string, v any) error {
	switch v.(type) {
	case string, map[string]any, model.Topic, *model.Topic, nil:
	default:
		return invalid("topic", v, "expected a string or an object with a name")
	}
	name := model.TopicName(v)
	if name == "" {
		name = model.DefaultTopic
	}
	*dst = name
	return nil
}

func setIntensity(dst *int, v any) error {
	var n float64
	switch t := v.(type) {
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case float64:
		n = t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return invalid("intensity", v, "not a number")
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return invalid("intensity", v, "not a number")
		}
		n = f
	default:
		return invalid("intensity", v, "not a number")
	}
	if n != math.Trunc(n) || n < 0 || n > 5 {
		return invalid("intensity", v, "must be a whole number from 0 to 5")
	}
	*dst = int(n)
	return nil
}

func setImpact(dst *model.Impact, v any) error {
	s, err := asString("impact", v)
	if err != nil {
		return err
	}
	imp, ok := model.ParseImpact(s)
	if !ok {
		return invalid("impact", v, "must be Low, Medium or High")
	}
	*dst = imp
	return nil
}

func setStatus(dst *model.ActionStatus, v any) error {
	s, err := asString("status", v)
	if err != nil {
		return err
	}
	st, ok := model.ParseActionStatus(s)
	if !ok {
		return invalid("status", v, "unknown status")
	}
	*dst = st
	return nil
}

func unknownField(kind model.Kind, field string) error {
	return fmt.Errorf("%w: %s has no editable field %q", ErrInvalidField, kind, field)
}

func applyEmotion(e *model.Emotion, field string, v any) error {
	switch field {
	case "name":
		return setName(&e.Name, v)
	case "intensity":
		return setIntensity(&e.Intensity, v)
	case "topic":
		return setTopic(&e.Topic, v)
	case "context":
		return setText(&e.Context, field, v)
	}
	return unknownField(model.KindEmotion, field)
}

func applyBelief(b *model.Belief, field string, v any) error {
	switch field {
	case "name":
		return setName(&b.Name, v)
	case "description":
		return setText(&b.Description, field, v)
	case "impact":
		return setImpact(&b.Impact, v)
	case "topic":
		return setTopic(&b.Topic, v)
	}
	return unknownField(model.KindBelief, field)
}

func applyActionItem(a *model.ActionItem, field string, v any) error {
	switch field {
	case "name":
		return setName(&a.Name, v)
	case "description":
		return setText(&a.Description, field, v)
	case "topic":
		return setTopic(&a.Topic, v)
	case "status":
		return setStatus(&a.Status, v)
	}
	return unknownField(model.KindActionItem, field)
}

func applyChallenge(c *model.Challenge, field string, v any) error {
	switch field {
	case "name":
		return setName(&c.Name, v)
	case "description":
		return setText(&c.Description, field, v)
	case "impact":
		return setImpact(&c.Impact, v)
	case "topic":
		return setTopic(&c.Topic, v)
	}
	return unknownField(model.KindChallenge, field)
}

func applyInsight(in *model.Insight, field string, v any) error {
	switch field {
	case "name":
		return setName(&in.Name, v)
	case "description":
		return setText(&in.Description, field, v)
	case "context":
		return setText(&in.Context, field, v)
	case "topic":
		return setTopic(&in.Topic, v)
	}
	return unknownField(model.KindInsight, field)
}
