package booking

import (
	"context"
	"strconv"
	"strings"

	"github.com/gavel-club/backend/internal/models"
)

// deriveSnapshot computes the owner-dependent slot fields for the given
// primary owner. A nil primary clears every field. Missing education rows
// degrade to nil fields instead of failing the transition; only real store
// errors propagate.
func deriveSnapshot(ctx context.Context, s Store, role *models.Role, slot *models.Slot, primary *models.Contact) (models.SlotSnapshot, error) {
	snap := models.SlotSnapshot{ProjectID: slot.ProjectID}
	if primary == nil {
		snap.ProjectID = nil
		return snap, nil
	}
	snap.Credentials = primary.Credentials

	if primary.PathwayID == nil {
		return snap, nil
	}
	pw, err := s.Pathway(ctx, *primary.PathwayID)
	if err != nil {
		return snap, err
	}
	if pw == nil {
		return snap, nil
	}
	// Presentation series are not pathways; they never feed the snapshot.
	if pw.Kind != models.PathwayKindPathway {
		return snap, nil
	}
	name := pw.Name
	snap.PathwayName = &name

	if !role.ProjectBearing {
		return snap, nil
	}

	// Explicitly chosen project wins when it belongs to the owner's pathway.
	if slot.ProjectID != nil {
		proj, err := s.Project(ctx, *slot.ProjectID)
		if err != nil {
			return snap, err
		}
		if proj != nil && proj.PathwayID == pw.ID {
			code := proj.Code(pw.Abbr)
			snap.ProjectCode = &code
			return snap, nil
		}
	}

	// Auto-resolution of the owner's declared next project, only when no
	// project was set on the slot.
	if slot.ProjectID == nil && primary.NextProject != nil {
		if level, number, ok := parseProjectRef(*primary.NextProject, pw.Abbr); ok {
			proj, err := s.ProjectByCode(ctx, pw.ID, level, number)
			if err != nil {
				return snap, err
			}
			if proj != nil {
				id := proj.ID
				code := *primary.NextProject
				snap.ProjectID = &id
				snap.ProjectCode = &code
				return snap, nil
			}
		}
	}

	// Fallback: next level after the highest completed one in this pathway.
	level := credentialLevel(primary.Credentials, pw.Abbr)
	if level > 5 {
		level = 5
	}
	code := pw.Abbr + strconv.Itoa(level+1)
	snap.ProjectCode = &code
	return snap, nil
}

// credentialLevel extracts the highest completed level of a pathway from a
// credential string like "PM2, DL1". Returns 0 when the pathway is absent.
func credentialLevel(credentials *string, abbr string) int {
	if credentials == nil {
		return 0
	}
	highest := 0
	for _, tok := range strings.FieldsFunc(*credentials, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	}) {
		if !strings.HasPrefix(tok, abbr) {
			continue
		}
		n, err := strconv.Atoi(tok[len(abbr):])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}

// parseProjectRef splits a pathway-scoped project code like "PM3.1" into
// level 3, project number 1. Returns ok=false when the code does not belong
// to the pathway or is malformed.
func parseProjectRef(code, abbr string) (level, number int, ok bool) {
	if !strings.HasPrefix(code, abbr) {
		return 0, 0, false
	}
	rest := strings.TrimPrefix(code, abbr)
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	level, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	number, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return level, number, true
}
