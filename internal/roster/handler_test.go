package roster_test

import (
	"testing"

	"github.com/gavel-club/backend/internal/meetings"
	"github.com/gavel-club/backend/internal/roster"
)

// The handler depends on the narrow MeetingStore lookup, not on the meetings
// package; the concrete repository must keep satisfying it.
func TestMeetingStoreSatisfiedByMeetingsRepository(t *testing.T) {
	var _ roster.MeetingStore = (*meetings.Repository)(nil)
}
