// Package redischeckpoint periodically snapshots the run's ExecutionBudgetState
// and the Blackboard's task-status projection into Redis, so an operator can
// inspect an in-flight run without attaching to the orchestrating process.
// It wraps a *redis.Client behind a narrow interface and talks to
// github.com/redis/go-redis/v9 directly rather than through a stream-semantics
// layer (see DESIGN.md for the rationale).
package redischeckpoint

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forgeflow/execorch/budget"
)

const defaultTTL = 1 * time.Hour

// Client is the narrow Redis operation the checkpointer needs.
type Client interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// redisClient adapts a real *redis.Client to Client.
type redisClient struct {
	rdb *redis.Client
}

func (c *redisClient) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Options configures the checkpointer.
type Options struct {
	Redis  *redis.Client
	RunID  string
	TTL    time.Duration
	Period time.Duration
}

// Checkpointer snapshots run state to Redis on a fixed period, until stopped.
type Checkpointer struct {
	client Client
	runID  string
	ttl    time.Duration
	period time.Duration
}

// New builds a Checkpointer from an already-dialed Redis client.
func New(opts Options) (*Checkpointer, error) {
	if opts.Redis == nil {
		return nil, errors.New("redischeckpoint: redis client is required")
	}
	if opts.RunID == "" {
		return nil, errors.New("redischeckpoint: run id is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	period := opts.Period
	if period <= 0 {
		period = 5 * time.Second
	}
	return &Checkpointer{client: &redisClient{rdb: opts.Redis}, runID: opts.RunID, ttl: ttl, period: period}, nil
}

// newWithClient is the test seam: it bypasses the real driver entirely.
func newWithClient(c Client, runID string, ttl, period time.Duration) *Checkpointer {
	return &Checkpointer{client: c, runID: runID, ttl: ttl, period: period}
}

// snapshot is the JSON document persisted for one checkpoint tick.
type snapshot struct {
	RunID          string           `json:"runId"`
	TakenAt        int64            `json:"takenAtUnixMs"`
	Budget         budget.State     `json:"budget"`
	TaskStatuses   map[string]string `json:"taskStatuses"`
}

// Checkpoint writes one snapshot immediately. Run calls it once per tick of
// its ticker; a caller may also call it directly at any point.
func (c *Checkpointer) Checkpoint(ctx context.Context, nowUnixMs int64, budgetState *budget.State, taskStatuses map[string]string) error {
	snap := snapshot{RunID: c.runID, TakenAt: nowUnixMs, TaskStatuses: taskStatuses}
	if budgetState != nil {
		snap.Budget = *budgetState
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(), payload, c.ttl)
}

func (c *Checkpointer) key() string {
	return "execorch:checkpoint:" + c.runID
}

// Run starts a background ticker that checkpoints every Period until ctx is
// canceled. collect is called once per tick to gather the current state.
func (c *Checkpointer) Run(ctx context.Context, collect func() (*budget.State, map[string]string)) {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b, statuses := collect()
			_ = c.Checkpoint(ctx, time.Now().UnixMilli(), b, statuses)
		}
	}
}
