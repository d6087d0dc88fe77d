// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/dailyrumble/rumble/internal/models"
)

const leaderboardKey = "rumble:leaderboard"

func roundKey(date string) string { return "rumble:round:" + date }

// Connect opens a Redis client and verifies it with a bounded ping.
func Connect(addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RoundCache is a Redis-backed read-side cache for rounds and the
// leaderboard. It is advisory only: every failure is logged and swallowed,
// so a broken Redis degrades to store reads but never fails a request.
type RoundCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewRoundCache wraps an existing Redis client.
func NewRoundCache(rdb *redis.Client, ttl time.Duration, logger *log.Logger) *RoundCache {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RoundCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Health pings the underlying client.
func (c *RoundCache) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// GetRound returns the cached round for a date, if present.
func (c *RoundCache) GetRound(ctx context.Context, date string) (*models.Round, bool) {
	data, err := c.rdb.Get(ctx, roundKey(date)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warnf("cache get round %s: %v", date, err)
		}
		return nil, false
	}
	var round models.Round
	if err := json.Unmarshal(data, &round); err != nil {
		c.logger.Warnf("cache decode round %s: %v", date, err)
		return nil, false
	}
	return &round, true
}

// SetRound caches a round under its date.
func (c *RoundCache) SetRound(ctx context.Context, round *models.Round) {
	data, err := json.Marshal(round)
	if err != nil {
		c.logger.Warnf("cache encode round %s: %v", round.RoundDate, err)
		return
	}
	if err := c.rdb.Set(ctx, roundKey(round.RoundDate), data, c.ttl).Err(); err != nil {
		c.logger.Warnf("cache set round %s: %v", round.RoundDate, err)
	}
}

// GetLeaderboard returns the cached leaderboard, if present.
func (c *RoundCache) GetLeaderboard(ctx context.Context) ([]models.LeaderboardEntry, bool) {
	data, err := c.rdb.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warnf("cache get leaderboard: %v", err)
		}
		return nil, false
	}
	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warnf("cache decode leaderboard: %v", err)
		return nil, false
	}
	return entries, true
}

// SetLeaderboard caches the leaderboard.
func (c *RoundCache) SetLeaderboard(ctx context.Context, entries []models.LeaderboardEntry) {
	data, err := json.Marshal(entries)
	if err != nil {
		c.logger.Warnf("cache encode leaderboard: %v", err)
		return
	}
	if err := c.rdb.Set(ctx, leaderboardKey, data, c.ttl).Err(); err != nil {
		c.logger.Warnf("cache set leaderboard: %v", err)
	}
}

// InvalidateLeaderboard drops the cached leaderboard.
func (c *RoundCache) InvalidateLeaderboard(ctx context.Context) {
	if err := c.rdb.Del(ctx, leaderboardKey).Err(); err != nil {
		c.logger.Warnf("cache invalidate leaderboard: %v", err)
	}
}
