// Package redis provides a job queue on a Redis list, shared by the API
// process and any number of `bookchat worker` processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/bookchat/internal/adapters/driven/queue"
	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
	"github.com/custodia-labs/bookchat/internal/logger"
)

// Ensure Queue implements the interface.
var _ driven.JobQueue = (*Queue)(nil)

// Defaults.
const (
	DefaultKey         = "bookchat:jobs"
	DefaultWorkers     = 2
	DefaultPollTimeout = 5 * time.Second
	retryDelay         = time.Second
)

// Config configures the Redis queue.
type Config struct {
	// Addr is the Redis server address, e.g. "localhost:6379".
	Addr string

	// Key is the list jobs are pushed onto. In-flight jobs are parked on Key+":processing".
	Key string

	// Workers is the number of concurrent consumers in this process.
	Workers int

	// PollTimeout bounds each blocking pop so cancellation is noticed.
	PollTimeout time.Duration
}

// Queue pushes jobs with LPUSH and consumes them with BLMOVE so a job being
// handled stays in Redis until it finishes.
type Queue struct {
	client     *goredis.Client
	key        string
	processing string
	workers    int
	timeout    time.Duration
	closed     atomic.Bool
}

// New connects to the server in cfg. The connection is lazy; use Ping to check it.
func New(cfg Config) *Queue {
	return NewWithClient(goredis.NewClient(&goredis.Options{Addr: cfg.Addr}), cfg)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, cfg Config) *Queue {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	return &Queue{
		client:     client,
		key:        cfg.Key,
		processing: cfg.Key + ":processing",
		workers:    cfg.Workers,
		timeout:    cfg.PollTimeout,
	}
}

// Ping checks the server is reachable.
func (q *Queue) Ping(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Enqueue pushes job onto the list.
func (q *Queue) Enqueue(ctx context.Context, job domain.IngestionJob) error {
	if q.closed.Load() {
		return queue.ErrClosed
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
}

// Run consumes jobs until ctx is cancelled.
func (q *Queue) Run(ctx context.Context, handler driven.JobHandler) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range q.workers {
		g.Go(func() error {
			logger.Debug("Redis worker %d listening on %s", i, q.key)
			for gctx.Err() == nil && !q.closed.Load() {
				q.next(gctx, handler)
			}
			return nil
		})
	}
	return g.Wait()
}

// next pops and handles at most one job.
func (q *Queue) next(ctx context.Context, handler driven.JobHandler) {
	payload, err := q.client.BLMove(ctx, q.key, q.processing, "RIGHT", "LEFT", q.timeout).Result()
	if errors.Is(err, goredis.Nil) || ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Warn("redis pop: %v", err)
		select {
		case <-ctx.Done():
		case <-time.After(retryDelay):
		}
		return
	}

	var job domain.IngestionJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		logger.Error("dropping malformed job %q: %v", payload, err)
		q.ack(payload)
		return
	}
	err = handler(ctx, job)
	if ctx.Err() != nil {
		// Shutdown interrupted the job; it stays on the processing list
		// for `worker --recover`.
		logger.Warn("job %s (%s %s) interrupted, left for recovery", job.ID, job.Kind, job.Slug)
		return
	}
	if err != nil {
		logger.Warn("job %s (%s %s) failed: %v", job.ID, job.Kind, job.Slug, err)
	}
	q.ack(payload)
}

// ack removes a finished job from the processing list.
func (q *Queue) ack(payload string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.client.LRem(ctx, q.processing, 1, payload).Err(); err != nil {
		logger.Warn("redis ack: %v", err)
	}
}

// Recover moves jobs abandoned by a crashed worker back onto the queue.
// Only call it when no other worker is running.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.LMove(ctx, q.processing, q.key, "RIGHT", "RIGHT").Err()
		if errors.Is(err, goredis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("redis lmove: %w", err)
		}
		n++
	}
}

// Len returns the number of jobs waiting.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Close stops consuming and closes the client.
func (q *Queue) Close() error {
	if q.closed.Swap(true) {
		return nil
	}
	return q.client.Close()
}
