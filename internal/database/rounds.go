// internal/database/rounds.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/dailyrumble/rumble/internal/engine"
	"github.com/dailyrumble/rumble/internal/models"
)

// schema creates the rounds table. Entrants are embedded as JSONB rather
// than a child table so a regenerate is a single-row replace and readers can
// never observe a mix of two generations.
const schema = `
CREATE TABLE IF NOT EXISTS rounds (
	round_date    date PRIMARY KEY,
	generation_id uuid NOT NULL,
	mode          text NOT NULL,
	status        text NOT NULL,
	seed          bigint NOT NULL,
	claimed_total int NOT NULL,
	finale_count  int NOT NULL,
	source_post   jsonb,
	entrants      jsonb NOT NULL,
	winner_handle text,
	winner_slot   int,
	winner_set_at timestamptz,
	created_at    timestamptz NOT NULL DEFAULT now()
)
`

// RoundStore is the Postgres-backed implementation of engine.RoundStore.
type RoundStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewRoundStore builds a round store over the given pool.
func NewRoundStore(pool *pgxpool.Pool, logger *log.Logger) *RoundStore {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RoundStore{pool: pool, logger: logger}
}

// EnsureSchema creates the rounds table if it does not exist.
func (s *RoundStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure rounds schema: %w", err)
	}
	s.logger.Debug("rounds schema ensured")
	return nil
}

// Health pings the underlying pool.
func (s *RoundStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertRound atomically replaces the full round row for its date, entrants
// included. Winner fields follow the incoming round (nil on a fresh
// generation), so regenerating a completed round also clears its winner.
func (s *RoundStore) UpsertRound(ctx context.Context, round *models.Round) error {
	entrants, err := json.Marshal(round.Entrants)
	if err != nil {
		return fmt.Errorf("marshal entrants: %w", err)
	}
	var sourcePost []byte
	if round.SourcePost != nil {
		if sourcePost, err = json.Marshal(round.SourcePost); err != nil {
			return fmt.Errorf("marshal source post: %w", err)
		}
	}

	q := `
		INSERT INTO rounds (
			round_date, generation_id, mode, status, seed,
			claimed_total, finale_count, source_post, entrants,
			winner_handle, winner_slot, winner_set_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (round_date) DO UPDATE SET
			generation_id = EXCLUDED.generation_id,
			mode          = EXCLUDED.mode,
			status        = EXCLUDED.status,
			seed          = EXCLUDED.seed,
			claimed_total = EXCLUDED.claimed_total,
			finale_count  = EXCLUDED.finale_count,
			source_post   = EXCLUDED.source_post,
			entrants      = EXCLUDED.entrants,
			winner_handle = EXCLUDED.winner_handle,
			winner_slot   = EXCLUDED.winner_slot,
			winner_set_at = EXCLUDED.winner_set_at,
			created_at    = EXCLUDED.created_at
	`
	_, err = s.pool.Exec(ctx, q,
		round.RoundDate, round.GenerationID, round.Mode, round.Status, round.Seed,
		round.ClaimedTotal, round.FinaleCount, sourcePost, entrants,
		round.WinnerHandle, round.WinnerSlot, round.WinnerSetAt, round.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert round %s: %w", round.RoundDate, err)
	}
	return nil
}

// GetRound loads the round for a date, or engine.ErrRoundNotFound.
func (s *RoundStore) GetRound(ctx context.Context, date string) (*models.Round, error) {
	q := `
		SELECT round_date::text, generation_id, mode, status, seed,
		       claimed_total, finale_count, source_post, entrants,
		       winner_handle, winner_slot, winner_set_at, created_at
		FROM rounds
		WHERE round_date = $1
	`
	round, err := scanRound(s.pool.QueryRow(ctx, q, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, engine.ErrRoundNotFound
		}
		return nil, fmt.Errorf("get round %s: %w", date, err)
	}
	return round, nil
}

// RecordWinner sets the winner fields and finalizes the round in a single
// conditional UPDATE. The slot is matched against the entrants JSONB of the
// row being updated, so validity is checked against whatever entrant set is
// current at write time; a regenerate racing this call can never leave a
// winner pointing at a replaced roster.
func (s *RoundStore) RecordWinner(ctx context.Context, date string, slot int) (*models.Round, error) {
	q := `
		UPDATE rounds
		SET winner_handle = (
				SELECT e->>'handle'
				FROM jsonb_array_elements(entrants) e
				WHERE (e->>'slot')::int = $2
			),
			winner_slot   = $2,
			status        = 'complete',
			winner_set_at = now()
		WHERE round_date = $1
		  AND EXISTS (
				SELECT 1 FROM jsonb_array_elements(entrants) e
				WHERE (e->>'slot')::int = $2
			)
		RETURNING round_date::text, generation_id, mode, status, seed,
		          claimed_total, finale_count, source_post, entrants,
		          winner_handle, winner_slot, winner_set_at, created_at
	`
	round, err := scanRound(s.pool.QueryRow(ctx, q, date, slot))
	if err == nil {
		return round, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("record winner %s slot %d: %w", date, slot, err)
	}

	// No row updated: either the round is missing or the slot is invalid.
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rounds WHERE round_date = $1)`, date,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("record winner %s: %w", date, err)
	}
	if !exists {
		return nil, engine.ErrRoundNotFound
	}
	return nil, engine.ErrSlotOutOfRange
}

// Winners returns the winner handle of every completed round.
func (s *RoundStore) Winners(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT winner_handle FROM rounds WHERE winner_handle IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query winners: %w", err)
	}
	defer rows.Close()

	var handles []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan winner: %w", err)
		}
		handles = append(handles, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate winners: %w", err)
	}
	return handles, nil
}

// scanRound maps one rounds row onto a models.Round.
func scanRound(row pgx.Row) (*models.Round, error) {
	var (
		r          models.Round
		sourcePost []byte
		entrants   []byte
	)
	err := row.Scan(
		&r.RoundDate, &r.GenerationID, &r.Mode, &r.Status, &r.Seed,
		&r.ClaimedTotal, &r.FinaleCount, &sourcePost, &entrants,
		&r.WinnerHandle, &r.WinnerSlot, &r.WinnerSetAt, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(sourcePost) > 0 {
		r.SourcePost = &models.SourcePost{}
		if err := json.Unmarshal(sourcePost, r.SourcePost); err != nil {
			return nil, fmt.Errorf("unmarshal source post: %w", err)
		}
	}
	if err := json.Unmarshal(entrants, &r.Entrants); err != nil {
		return nil, fmt.Errorf("unmarshal entrants: %w", err)
	}
	return &r, nil
}
