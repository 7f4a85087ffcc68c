package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactType is the club-level standing of a contact.
type ContactType string

const (
	ContactMember  ContactType = "member"
	ContactOfficer ContactType = "officer"
	ContactGuest   ContactType = "guest"
)

// IsMember reports whether the contact counts as a member for
// members-only role checks. Officers are members.
func (t ContactType) IsMember() bool {
	return t == ContactMember || t == ContactOfficer
}

// Contact is a person known to a club: member, officer or guest.
// Members and officers carry account credentials for login; guests may not.
type Contact struct {
	ID           uuid.UUID   `json:"id"`
	ClubID       uuid.UUID   `json:"club_id"`
	Email        string      `json:"email"`
	FullName     string      `json:"full_name"`
	PasswordHash string      `json:"-"`
	Type         ContactType `json:"type"`
	AccessRole   string      `json:"access_role"` // member | officer | admin (JWT role)
	PathwayID    *uuid.UUID  `json:"pathway_id,omitempty"`
	Credentials  *string     `json:"credentials,omitempty"`  // e.g. "PM2, DL1"
	NextProject  *string     `json:"next_project,omitempty"` // e.g. "PM3.1"
	AvatarKey    *string     `json:"avatar_key,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
