package models

import (
	"time"

	"github.com/google/uuid"
)

// VoteCategory is one award voted on at a meeting (Best Speaker, Best Evaluator, ...).
type VoteCategory struct {
	ID        uuid.UUID `json:"id"`
	MeetingID uuid.UUID `json:"meeting_id"`
	Name      string    `json:"name"`
	Open      bool      `json:"open"`
	CreatedAt time.Time `json:"created_at"`
}

// Vote is one ballot: a voter nominating a contact in a category.
// One vote per voter per category; re-casting replaces the nominee.
type Vote struct {
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"category_id"`
	MeetingID  uuid.UUID `json:"meeting_id"`
	VoterID    uuid.UUID `json:"voter_id"`
	NomineeID  uuid.UUID `json:"nominee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// VoteTally is the aggregated result for one category.
type VoteTally struct {
	CategoryID uuid.UUID      `json:"category_id"`
	Category   string         `json:"category"`
	Counts     map[string]int `json:"counts"` // nominee contact id -> votes
	Winner     *uuid.UUID     `json:"winner,omitempty"`
}
