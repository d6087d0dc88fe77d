// internal/engine/selector.go
package engine

import (
	"math/rand"

	"github.com/dailyrumble/rumble/internal/config"
	"github.com/dailyrumble/rumble/internal/feed"
	"github.com/dailyrumble/rumble/internal/models"
)

// SampleRoster draws the final roster from the qualifying candidate pool:
// a Fisher-Yates shuffle of a copy of candidates under rng, truncated to
// capacity, with slots assigned 1..N in post-shuffle order. Every candidate
// has equal selection probability. Returns ErrInsufficientEntrants when the
// pool is smaller than config.MinPlayers; it never returns a short roster.
func SampleRoster(candidates []feed.Comment, capacity int, rng *rand.Rand) ([]models.Entrant, error) {
	if len(candidates) < config.MinPlayers {
		return nil, ErrInsufficientEntrants
	}

	pool := make([]feed.Comment, len(candidates))
	copy(pool, candidates)
	for i := len(pool) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		pool[i], pool[j] = pool[j], pool[i]
	}

	n := capacity
	if len(pool) < n {
		n = len(pool)
	}

	roster := make([]models.Entrant, n)
	for i := 0; i < n; i++ {
		c := pool[i]
		ts := c.Timestamp
		roster[i] = models.Entrant{
			Slot:        i + 1,
			Handle:      c.Handle,
			Source:      models.SourceComment,
			CommentID:   c.CommentID,
			CommentText: c.Text,
			CommentedAt: &ts,
		}
	}
	return roster, nil
}
