package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cardinality says how many owners a slot of a role may have and how slots
// of the same role within one meeting relate to each other.
type Cardinality string

const (
	// CardinalitySingleDistinct: each slot of the role has its own owner.
	CardinalitySingleDistinct Cardinality = "single_distinct"
	// CardinalitySingleShared: all slots of the role in a meeting share one owner set.
	CardinalitySingleShared Cardinality = "single_shared"
	// CardinalityMulti: a slot carries an ordered list of owners.
	CardinalityMulti Cardinality = "multi"
)

// ParseCardinality validates a stored cardinality value. Unknown values are a
// configuration error, never silently defaulted.
func ParseCardinality(s string) (Cardinality, error) {
	switch Cardinality(s) {
	case CardinalitySingleDistinct, CardinalitySingleShared, CardinalityMulti:
		return Cardinality(s), nil
	}
	return "", fmt.Errorf("unknown role cardinality %q", s)
}

// SingleOwner reports whether the cardinality allows at most one owner per slot.
func (c Cardinality) SingleOwner() bool {
	return c == CardinalitySingleDistinct || c == CardinalitySingleShared
}

// RoleCategory groups roles for award/agenda display.
type RoleCategory string

const (
	RoleCategoryOfficer    RoleCategory = "officer"
	RoleCategorySpeech     RoleCategory = "speech"
	RoleCategoryFunctional RoleCategory = "functional"
)

// Role is a named meeting function (Speaker, Evaluator, Timer, ...).
// ClubID nil means the role is defined globally; a club-local row with the
// same name overrides the global one for that club's meetings.
type Role struct {
	ID               uuid.UUID    `json:"id"`
	ClubID           *uuid.UUID   `json:"club_id,omitempty"`
	Name             string       `json:"name"`
	Category         RoleCategory `json:"category"`
	Cardinality      Cardinality  `json:"cardinality"`
	ApprovalRequired bool         `json:"approval_required"`
	MembersOnly      bool         `json:"members_only"`
	ProjectBearing   bool         `json:"project_bearing"` // slot may carry a pathway project (e.g. Prepared Speech)
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// RoleAlias maps an alternative spelling to a role name
// (e.g. "Topicmaster" -> "Topicsmaster", "SAA" -> "Sergeant at Arms").
type RoleAlias struct {
	ID        uuid.UUID `json:"id"`
	Alias     string    `json:"alias"`
	RoleName  string    `json:"role_name"`
	CreatedAt time.Time `json:"created_at"`
}
