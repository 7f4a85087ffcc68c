package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestCredentialLevel(t *testing.T) {
	cases := []struct {
		name  string
		creds *string
		abbr  string
		want  int
	}{
		{"nil credentials", nil, "PM", 0},
		{"single token", strPtr("PM2"), "PM", 2},
		{"mixed pathways", strPtr("PM2, DL4"), "PM", 2},
		{"other pathway only", strPtr("DL4"), "PM", 0},
		{"highest wins", strPtr("PM1 PM3 PM2"), "PM", 3},
		{"semicolon separated", strPtr("PM1;DL2"), "DL", 2},
		{"garbage token ignored", strPtr("PMx, PM4"), "PM", 4},
		{"empty string", strPtr(""), "PM", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, credentialLevel(tc.creds, tc.abbr))
		})
	}
}

func TestParseProjectRef(t *testing.T) {
	level, number, ok := parseProjectRef("PM3.1", "PM")
	assert.True(t, ok)
	assert.Equal(t, 3, level)
	assert.Equal(t, 1, number)

	_, _, ok = parseProjectRef("DL3.1", "PM")
	assert.False(t, ok)

	// A bare level like "PM3" is not a project reference.
	_, _, ok = parseProjectRef("PM3", "PM")
	assert.False(t, ok)

	_, _, ok = parseProjectRef("PM3.x", "PM")
	assert.False(t, ok)

	_, _, ok = parseProjectRef("", "PM")
	assert.False(t, ok)
}
