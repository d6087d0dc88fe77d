// internal/engine/engine.go
package engine

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dailyrumble/rumble/internal/config"
	"github.com/dailyrumble/rumble/internal/feed"
	"github.com/dailyrumble/rumble/internal/models"
)

// FeedClient is the slice of the comment feed the resolver needs. The real
// implementation lives in internal/feed; tests inject fakes.
type FeedClient interface {
	LatestPost(ctx context.Context) (*feed.Post, error)
	Comments(ctx context.Context, postID string) ([]feed.Comment, error)
}

// RoundStore persists rounds keyed by calendar date. UpsertRound must replace
// the whole round atomically: no reader may ever observe a mix of two
// generations' entrants. GetRound returns ErrRoundNotFound for a missing
// date. RecordWinner validates the slot against the entrant set present at
// write time and returns ErrRoundNotFound or ErrSlotOutOfRange accordingly.
// Winners returns the winner handle of every completed round, one per round.
type RoundStore interface {
	UpsertRound(ctx context.Context, round *models.Round) error
	GetRound(ctx context.Context, date string) (*models.Round, error)
	RecordWinner(ctx context.Context, date string, slot int) (*models.Round, error)
	Winners(ctx context.Context) ([]string, error)
}

// RoundCache is an advisory read-side cache. Implementations must never
// fail a request: a miss or a broken cache just means hitting the store.
type RoundCache interface {
	GetRound(ctx context.Context, date string) (*models.Round, bool)
	SetRound(ctx context.Context, round *models.Round)
	GetLeaderboard(ctx context.Context) ([]models.LeaderboardEntry, bool)
	SetLeaderboard(ctx context.Context, entries []models.LeaderboardEntry)
	InvalidateLeaderboard(ctx context.Context)
}

// Notifier receives round lifecycle events, e.g. to push them to connected
// game clients.
type Notifier interface {
	RoundReplaced(round *models.Round)
	WinnerRecorded(round *models.Round)
}

// Engine orchestrates round generation and selection: it pulls candidates
// from the feed, filters and samples them, decides between live and training
// mode, and commits exactly one round per calendar date through the store.
type Engine struct {
	cfg      *config.Config
	feed     FeedClient
	store    RoundStore
	cache    RoundCache
	notifier Notifier
	logger   *log.Logger
	seedFn   func() int64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCache attaches an advisory round cache.
func WithCache(c RoundCache) Option { return func(e *Engine) { e.cache = c } }

// WithNotifier attaches a lifecycle event sink.
func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithSeedSource overrides the seed generator; tests use this to make the
// shuffle deterministic.
func WithSeedSource(fn func() int64) Option { return func(e *Engine) { e.seedFn = fn } }

// New builds an Engine around the given feed client and store.
func New(cfg *config.Config, fc FeedClient, store RoundStore, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		feed:   fc,
		store:  store,
		logger: log.StandardLogger(),
		seedFn: cryptoSeed,
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// cryptoSeed draws a fresh shuffle seed from the OS entropy pool.
func cryptoSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]) &^ (1 << 63))
}

// dateLock returns the mutex serializing all mutation for one round date.
func (e *Engine) dateLock(date string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[date]
	if !ok {
		l = &sync.Mutex{}
		e.locks[date] = l
	}
	return l
}

func parseDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return validationf("invalid round date %q, want YYYY-MM-DD", date)
	}
	return nil
}

// Today returns the current UTC calendar date in round-date format.
func Today() string {
	return time.Now().UTC().Format(models.DateLayout)
}

// Generate builds and persists the round for the given date, replacing any
// previously stored round for that date. maxPlayers, when non-zero, lowers
// the roster capacity below the configured maximum for this call only.
//
// Ingestion failures never fail a generation: any feed error, a missing
// post, or a qualifying pool under the minimum all degrade to a training
// round. Only a persistence failure aborts the call, in which case the
// previously stored round (if any) remains authoritative.
func (e *Engine) Generate(ctx context.Context, date string, maxPlayers int) (*models.Round, error) {
	if err := parseDate(date); err != nil {
		return nil, err
	}
	capacity := e.cfg.MaxPlayers
	if maxPlayers != 0 {
		if maxPlayers < config.MinPlayers || maxPlayers > e.cfg.MaxPlayers {
			return nil, validationf("max_players must be between %d and %d, got %d",
				config.MinPlayers, e.cfg.MaxPlayers, maxPlayers)
		}
		capacity = maxPlayers
	}

	lock := e.dateLock(date)
	lock.Lock()
	defer lock.Unlock()

	seed := e.seedFn()
	rng := rand.New(rand.NewSource(seed))

	round, liveErr := e.buildLive(ctx, date, capacity, seed, rng)
	if liveErr != nil {
		e.logger.WithFields(log.Fields{
			"date":   date,
			"reason": liveErr.Error(),
		}).Warn("live round unavailable, falling back to training mode")
		round = e.buildTraining(date, capacity, seed)
	}

	if err := e.store.UpsertRound(ctx, round); err != nil {
		return nil, fmt.Errorf("persist round for %s: %w", date, err)
	}

	if e.cache != nil {
		e.cache.InvalidateLeaderboard(ctx)
		e.cache.SetRound(ctx, round)
	}
	if e.notifier != nil {
		e.notifier.RoundReplaced(round)
	}
	e.logger.WithFields(log.Fields{
		"date":     date,
		"mode":     round.Mode,
		"entrants": round.FinaleCount,
		"claimed":  round.ClaimedTotal,
	}).Info("round generated")
	return round, nil
}

// buildLive attempts a live round: latest post, qualifying comments, sampled
// roster. Every failure path returns an error the caller treats as a signal
// to fall back, never as fatal.
func (e *Engine) buildLive(ctx context.Context, date string, capacity int, seed int64, rng *rand.Rand) (*models.Round, error) {
	post, err := e.feed.LatestPost(ctx)
	if err != nil {
		return nil, err
	}
	comments, err := e.feed.Comments(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	candidates := QualifyComments(comments, e.cfg.Keyword)
	roster, err := SampleRoster(candidates, capacity, rng)
	if err != nil {
		return nil, err
	}

	return &models.Round{
		RoundDate:    date,
		GenerationID: uuid.New(),
		Mode:         models.ModeLive,
		Status:       models.StatusPending,
		Seed:         seed,
		ClaimedTotal: len(candidates),
		FinaleCount:  len(roster),
		SourcePost: &models.SourcePost{
			ID:        post.ID,
			Permalink: post.Permalink,
			PostedAt:  post.Timestamp,
		},
		Entrants:  roster,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// buildTraining produces a synthetic round of placeholder entrants #1..#N.
func (e *Engine) buildTraining(date string, capacity int, seed int64) *models.Round {
	n := e.cfg.TrainingSize
	if n > capacity {
		n = capacity
	}
	entrants := make([]models.Entrant, n)
	for i := range entrants {
		entrants[i] = models.Entrant{
			Slot:   i + 1,
			Handle: fmt.Sprintf("#%d", i+1),
			Source: models.SourceTraining,
		}
	}
	return &models.Round{
		RoundDate:    date,
		GenerationID: uuid.New(),
		Mode:         models.ModeTraining,
		Status:       models.StatusPending,
		Seed:         seed,
		ClaimedTotal: n,
		FinaleCount:  n,
		Entrants:     entrants,
		CreatedAt:    time.Now().UTC(),
	}
}

// CurrentRound returns the stored round for the date, generating one first
// if none exists yet. This is the game client's read path; the first read of
// a fresh day triggers generation.
func (e *Engine) CurrentRound(ctx context.Context, date string) (*models.Round, error) {
	round, err := e.RoundByDate(ctx, date)
	if errors.Is(err, ErrRoundNotFound) {
		return e.Generate(ctx, date, 0)
	}
	return round, err
}

// RoundByDate returns the stored round for the date, or ErrRoundNotFound.
func (e *Engine) RoundByDate(ctx context.Context, date string) (*models.Round, error) {
	if err := parseDate(date); err != nil {
		return nil, err
	}
	if e.cache != nil {
		if round, ok := e.cache.GetRound(ctx, date); ok {
			return round, nil
		}
	}
	round, err := e.store.GetRound(ctx, date)
	if err != nil {
		if errors.Is(err, ErrRoundNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load round for %s: %w", date, err)
	}
	if e.cache != nil {
		e.cache.SetRound(ctx, round)
	}
	return round, nil
}

// RecordWinner marks the entrant in the given slot as the round's winner and
// finalizes the round. The slot is validated against the entrant set present
// at write time, so a racing regenerate can never leave a dangling winner.
// Calling it again overwrites the previous winner.
func (e *Engine) RecordWinner(ctx context.Context, date string, slot int) (*models.Round, error) {
	if err := parseDate(date); err != nil {
		return nil, err
	}
	if slot < 1 {
		return nil, validationf("slot must be positive, got %d", slot)
	}

	lock := e.dateLock(date)
	lock.Lock()
	defer lock.Unlock()

	round, err := e.store.RecordWinner(ctx, date, slot)
	if err != nil {
		if errors.Is(err, ErrRoundNotFound) {
			return nil, err
		}
		if errors.Is(err, ErrSlotOutOfRange) {
			return nil, validationf("slot %d is not part of the round for %s", slot, date)
		}
		return nil, fmt.Errorf("record winner for %s: %w", date, err)
	}

	if e.cache != nil {
		e.cache.SetRound(ctx, round)
		e.cache.InvalidateLeaderboard(ctx)
	}
	if e.notifier != nil {
		e.notifier.WinnerRecorded(round)
	}
	e.logger.WithFields(log.Fields{
		"date":   date,
		"slot":   slot,
		"winner": deref(round.WinnerHandle),
	}).Info("winner recorded")
	return round, nil
}

// Leaderboard tallies wins per handle over every completed round. Handles
// are grouped case-insensitively, consistent with entrant deduplication; the
// displayed handle is the lexicographically smallest casing seen. Ordered by
// wins descending, then handle ascending.
func (e *Engine) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	if e.cache != nil {
		if entries, ok := e.cache.GetLeaderboard(ctx); ok {
			return entries, nil
		}
	}
	winners, err := e.store.Winners(ctx)
	if err != nil {
		return nil, fmt.Errorf("load winners: %w", err)
	}

	wins := make(map[string]int)
	display := make(map[string]string)
	for _, h := range winners {
		key := strings.ToLower(h)
		wins[key]++
		if cur, ok := display[key]; !ok || h < cur {
			display[key] = h
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(wins))
	for key, n := range wins {
		entries = append(entries, models.LeaderboardEntry{Handle: display[key], Wins: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].Handle < entries[j].Handle
	})

	if e.cache != nil {
		e.cache.SetLeaderboard(ctx, entries)
	}
	return entries, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
