package meetings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinTemplates(t *testing.T) {
	names := TemplateNames()
	assert.Contains(t, names, "standard")
	assert.Contains(t, names, "short")

	for _, name := range names {
		entries, ok := TemplateByName(name)
		require.True(t, ok)
		require.NotEmpty(t, entries)
		for _, e := range entries {
			assert.NotEmpty(t, e.Role)
			assert.GreaterOrEqual(t, e.Count, 1)
			if e.DurationMin != nil && e.DurationMax != nil {
				assert.LessOrEqual(t, *e.DurationMin, *e.DurationMax)
			}
		}
	}
}

func TestStandardTemplateHasThreeSpeakers(t *testing.T) {
	entries, ok := TemplateByName("standard")
	require.True(t, ok)
	var speakers, evaluators int
	for _, e := range entries {
		switch e.Role {
		case "Speaker":
			speakers = e.Count
		case "Evaluator":
			evaluators = e.Count
		}
	}
	assert.Equal(t, 3, speakers)
	assert.Equal(t, 3, evaluators, "each speech gets an evaluation slot")
}

func TestTemplateByNameUnknown(t *testing.T) {
	_, ok := TemplateByName("marathon")
	assert.False(t, ok)
}
