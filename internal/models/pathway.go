package models

import (
	"fmt"

	"github.com/google/uuid"
)

// PathwayKind distinguishes education pathways from presentation series.
// Only real pathways feed the slot pathway snapshot.
type PathwayKind string

const (
	PathwayKindPathway PathwayKind = "pathway"
	PathwayKindSeries  PathwayKind = "series"
)

// Pathway is an education track (e.g. Presentation Mastery, abbr "PM").
type Pathway struct {
	ID   uuid.UUID   `json:"id"`
	Name string      `json:"name"`
	Abbr string      `json:"abbr"`
	Kind PathwayKind `json:"kind"`
}

// Project is one project within a pathway, addressed by level and number.
type Project struct {
	ID        uuid.UUID `json:"id"`
	PathwayID uuid.UUID `json:"pathway_id"`
	Name      string    `json:"name"`
	Level     int       `json:"level"`
	Number    int       `json:"number"`
}

// Code returns the pathway-scoped project code, e.g. "PM2.1".
func (p Project) Code(abbr string) string {
	return fmt.Sprintf("%s%d.%d", abbr, p.Level, p.Number)
}
