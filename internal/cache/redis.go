// Package cache keeps rendered board snapshots in Redis so repeated board
// reads skip the joined query. Every board mutation invalidates the snapshot.
//
// Each board also has a generation counter under "board:<id>:gen". A reader
// takes the generation before loading the board from the database and
// passes it back to Set; Invalidate bumps it, so a snapshot loaded before a
// write can no longer be stored after that write.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/atinyakov/trellix/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a snapshot may outlive a missed invalidation.
const DefaultTTL = 5 * time.Minute

// setIfGeneration stores ARGV[2] under KEYS[1] for ARGV[3] milliseconds
// only while KEYS[2] still holds generation ARGV[1]. A missing counter is
// generation 0.
var setIfGeneration = redis.NewScript(`
local gen = redis.call("GET", KEYS[2])
if not gen then gen = "0" end
if gen ~= ARGV[1] then return 0 end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// RedisBoards stores board snapshots as JSON under "board:<id>".
type RedisBoards struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisBoards connects to redisURL and checks the connection.
func NewRedisBoards(redisURL string, ttl time.Duration) (*RedisBoards, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisBoardsWithClient(client, ttl), nil
}

// NewRedisBoardsWithClient wraps an existing client.
func NewRedisBoardsWithClient(client *redis.Client, ttl time.Duration) *RedisBoards {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisBoards{client: client, prefix: "board:", ttl: ttl}
}

func (c *RedisBoards) key(boardID int64) string {
	return c.prefix + strconv.FormatInt(boardID, 10)
}

func (c *RedisBoards) genKey(boardID int64) string {
	return c.key(boardID) + ":gen"
}

// Generation returns the current generation of boardID, 0 if it was never
// invalidated.
func (c *RedisBoards) Generation(ctx context.Context, boardID int64) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(boardID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get board generation: %w", err)
	}
	return gen, nil
}

// Get returns the cached snapshot, or nil without error on a miss.
func (c *RedisBoards) Get(ctx context.Context, boardID int64) (*models.Board, error) {
	raw, err := c.client.Get(ctx, c.key(boardID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get board snapshot: %w", err)
	}

	var board models.Board
	if err := json.Unmarshal(raw, &board); err != nil {
		return nil, fmt.Errorf("unmarshal board snapshot: %w", err)
	}
	return &board, nil
}

// Set stores the snapshot of board if the board is still at generation gen.
// A snapshot from an older generation is dropped silently.
func (c *RedisBoards) Set(ctx context.Context, board *models.Board, gen int64) error {
	raw, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("marshal board snapshot: %w", err)
	}
	keys := []string{c.key(board.ID), c.genKey(board.ID)}
	err = setIfGeneration.Run(ctx, c.client, keys, gen, raw, c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("save board snapshot: %w", err)
	}
	return nil
}

// Invalidate bumps the generation of boardID and drops its snapshot.
func (c *RedisBoards) Invalidate(ctx context.Context, boardID int64) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey(boardID))
		pipe.Del(ctx, c.key(boardID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate board snapshot: %w", err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (c *RedisBoards) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisBoards) Close() error {
	return c.client.Close()
}

// Noop is used when no Redis URL is configured. It always misses.
type Noop struct{}

func (Noop) Generation(context.Context, int64) (int64, error)  { return 0, nil }
func (Noop) Get(context.Context, int64) (*models.Board, error) { return nil, nil }
func (Noop) Set(context.Context, *models.Board, int64) error   { return nil }
func (Noop) Invalidate(context.Context, int64) error           { return nil }
func (Noop) Ping(context.Context) error                        { return nil }
func (Noop) Close() error                                      { return nil }
