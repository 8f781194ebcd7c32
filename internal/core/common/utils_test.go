package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	type out struct {
		Emotions []map[string]any `json:"emotions"`
	}

	got, err := ParseJSON[out]("Here you go:\n```json\n{\"emotions\":[{\"name\":\"Joy\"}]}\n```")
	require.NoError(t, err)
	require.Len(t, got.Emotions, 1)
	assert.Equal(t, "Joy", got.Emotions[0]["name"])

	_, err = ParseJSON[out]("no json here")
	assert.ErrorContains(t, err, "missing '{'")

	_, err = ParseJSON[out]("} backwards {")
	assert.ErrorContains(t, err, "missing '}'")

	_, err = ParseJSON[out]("{not json}")
	assert.ErrorContains(t, err, "failed to unmarshal JSON")
}
