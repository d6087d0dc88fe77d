// internal/engine/selector_test.go
package engine

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyrumble/rumble/internal/feed"
	"github.com/dailyrumble/rumble/internal/models"
)

func candidates(n int) []feed.Comment {
	out := make([]feed.Comment, n)
	for i := range out {
		out[i] = comment(fmt.Sprintf("user%d", i), "count me in")
	}
	return out
}

func TestSampleRosterTruncation(t *testing.T) {
	roster, err := SampleRoster(candidates(10), 5, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, roster, 5)

	slots := map[int]bool{}
	handles := map[string]bool{}
	for _, e := range roster {
		slots[e.Slot] = true
		handles[e.Handle] = true
		assert.Equal(t, models.SourceComment, e.Source)
		assert.NotEmpty(t, e.CommentID)
		require.NotNil(t, e.CommentedAt)
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}, slots)
	assert.Len(t, handles, 5)
}

func TestSampleRosterShortPool(t *testing.T) {
	roster, err := SampleRoster(candidates(3), 10, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Len(t, roster, 3)
}

func TestSampleRosterInsufficient(t *testing.T) {
	_, err := SampleRoster(candidates(1), 5, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrInsufficientEntrants)

	_, err = SampleRoster(nil, 5, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrInsufficientEntrants)
}

func TestSampleRosterDeterministicUnderSeed(t *testing.T) {
	pool := candidates(20)
	first, err := SampleRoster(pool, 8, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	second, err := SampleRoster(pool, 8, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSampleRosterDoesNotMutateInput(t *testing.T) {
	pool := candidates(10)
	want := candidates(10)
	_, err := SampleRoster(pool, 10, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	assert.Equal(t, want, pool)
}
