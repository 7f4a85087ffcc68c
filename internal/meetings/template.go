package meetings

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gavel-club/backend/internal/models"
	"github.com/gavel-club/backend/internal/roles"
)

// TemplateEntry is one line of an agenda template: a role, how many slots it
// gets and the speaking time window per slot.
type TemplateEntry struct {
	Role        string `json:"role"`
	Count       int    `json:"count"`
	DurationMin *int   `json:"duration_min,omitempty"`
	DurationMax *int   `json:"duration_max,omitempty"`
}

func mins(n int) *int { return &n }

// builtinTemplates are the agenda templates every club starts with. Clubs can
// send a custom entry list instead of a template name.
var builtinTemplates = map[string][]TemplateEntry{
	"standard": {
		{Role: "Toastmaster of the Day", Count: 1},
		{Role: "General Evaluator", Count: 1},
		{Role: "Grammarian", Count: 1},
		{Role: "Ah-Counter", Count: 1},
		{Role: "Timer", Count: 1},
		{Role: "Speaker", Count: 3, DurationMin: mins(5), DurationMax: mins(7)},
		{Role: "Evaluator", Count: 3, DurationMin: mins(2), DurationMax: mins(3)},
		{Role: "Table Topics Master", Count: 1},
		{Role: "Table Topics Participant", Count: 1},
	},
	"short": {
		{Role: "Toastmaster of the Day", Count: 1},
		{Role: "Timer", Count: 1},
		{Role: "Speaker", Count: 2, DurationMin: mins(5), DurationMax: mins(7)},
		{Role: "Evaluator", Count: 2, DurationMin: mins(2), DurationMax: mins(3)},
		{Role: "Table Topics Master", Count: 1},
	},
}

// TemplateNames returns the builtin template names.
func TemplateNames() []string {
	names := make([]string, 0, len(builtinTemplates))
	for name := range builtinTemplates {
		names = append(names, name)
	}
	return names
}

// ExpandTemplate resolves a template's role names (alias-aware, club-local
// overrides honored) and produces the slot rows for a new meeting. Role names
// the club's registry does not know fail the expansion.
func ExpandTemplate(ctx context.Context, registry *roles.Registry, clubID, meetingID uuid.UUID, entries []TemplateEntry) ([]models.Slot, error) {
	var slots []models.Slot
	seq := 1
	for _, entry := range entries {
		if entry.Count < 1 {
			return nil, fmt.Errorf("template entry %q has count %d", entry.Role, entry.Count)
		}
		role, err := registry.Resolve(ctx, clubID, entry.Role)
		if err != nil {
			return nil, err
		}
		if role == nil {
			return nil, fmt.Errorf("unknown role %q in template", entry.Role)
		}
		for i := 0; i < entry.Count; i++ {
			slots = append(slots, models.Slot{
				MeetingID:   meetingID,
				Seq:         seq,
				RoleID:      role.ID,
				DurationMin: entry.DurationMin,
				DurationMax: entry.DurationMax,
				State:       models.SlotStateActive,
			})
			seq++
		}
	}
	return slots, nil
}

// TemplateByName returns a builtin template's entries.
func TemplateByName(name string) ([]TemplateEntry, bool) {
	entries, ok := builtinTemplates[name]
	return entries, ok
}
