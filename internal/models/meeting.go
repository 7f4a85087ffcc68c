package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

const (
	MeetingDraft     MeetingStatus = "draft"
	MeetingOpen      MeetingStatus = "open"
	MeetingFinished  MeetingStatus = "finished"
	MeetingCancelled MeetingStatus = "cancelled"
)

// ParseMeetingStatus validates a stored meeting status.
func ParseMeetingStatus(s string) (MeetingStatus, error) {
	switch MeetingStatus(s) {
	case MeetingDraft, MeetingOpen, MeetingFinished, MeetingCancelled:
		return MeetingStatus(s), nil
	}
	return "", fmt.Errorf("unknown meeting status %q", s)
}

// Bookable reports whether booking transitions are allowed on the meeting.
func (s MeetingStatus) Bookable() bool {
	return s == MeetingDraft || s == MeetingOpen
}

// Meeting is one club meeting with a generated agenda.
type Meeting struct {
	ID        uuid.UUID     `json:"id"`
	ClubID    uuid.UUID     `json:"club_id"`
	Number    int           `json:"number"` // running meeting number within the club
	Title     string        `json:"title"`
	StartsAt  time.Time     `json:"starts_at"`
	Status    MeetingStatus `json:"status"`
	Template  *string       `json:"template,omitempty"` // agenda template the slots came from
	CreatedBy uuid.UUID     `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
