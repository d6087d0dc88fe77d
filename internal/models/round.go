// internal/models/round.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundMode distinguishes rounds built from real feed comments from
// synthetic fallback rounds.
type RoundMode string

const (
	ModeLive     RoundMode = "live"
	ModeTraining RoundMode = "training"
)

// RoundStatus tracks whether a winner has been recorded yet.
type RoundStatus string

const (
	StatusPending  RoundStatus = "pending"
	StatusComplete RoundStatus = "complete"
)

// EntrantSource marks where an entrant came from.
type EntrantSource string

const (
	SourceComment  EntrantSource = "comment"
	SourceTraining EntrantSource = "training"
)

// DateLayout is the canonical wire/storage format for a round date (UTC day).
const DateLayout = "2006-01-02"

// SourcePost references the feed post a live round was built from.
type SourcePost struct {
	ID        string    `json:"id"`
	Permalink string    `json:"permalink,omitempty"`
	PostedAt  time.Time `json:"postedAt,omitempty"`
}

// Entrant is one participant slot within a round. Slots are 1-based and
// contiguous. For live rounds the comment provenance fields are set; for
// training rounds only slot/handle/source are meaningful.
type Entrant struct {
	Slot        int           `json:"slot"`
	Handle      string        `json:"handle"`
	Source      EntrantSource `json:"source"`
	CommentID   string        `json:"commentId,omitempty"`
	CommentText string        `json:"commentText,omitempty"`
	CommentedAt *time.Time    `json:"commentedAt,omitempty"`
}

// Round is the per-day unit of competition state: the entrant roster, the
// mode it was built in, and the eventual winner. Exactly one round exists
// per calendar date; regeneration replaces the whole row and stamps a new
// GenerationID.
type Round struct {
	RoundDate    string      `json:"roundDate"`
	GenerationID uuid.UUID   `json:"generationId"`
	Mode         RoundMode   `json:"mode"`
	Status       RoundStatus `json:"status"`
	Seed         int64       `json:"seed"`
	ClaimedTotal int         `json:"claimedTotal"`
	FinaleCount  int         `json:"finaleCount"`
	SourcePost   *SourcePost `json:"sourcePost,omitempty"`
	Entrants     []Entrant   `json:"entrants"`
	WinnerHandle *string     `json:"winnerHandle,omitempty"`
	WinnerSlot   *int        `json:"winnerSlot,omitempty"`
	WinnerSetAt  *time.Time  `json:"winnerSetAt,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// EntrantBySlot returns the entrant occupying the given slot, or nil.
func (r *Round) EntrantBySlot(slot int) *Entrant {
	for i := range r.Entrants {
		if r.Entrants[i].Slot == slot {
			return &r.Entrants[i]
		}
	}
	return nil
}

// LeaderboardEntry is one row of the all-time winner tally.
type LeaderboardEntry struct {
	Handle string `json:"handle"`
	Wins   int    `json:"wins"`
}
