// Package cache keeps a cache-aside copy of the user directory in redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/thereayou/messagely/internal/logging"
	"github.com/thereayou/messagely/internal/models"
	"golang.org/x/sync/singleflight"
)

const (
	userListKey = "messagely:users:list"
	// userListGenKey counts invalidations. A snapshot is written back only
	// if no invalidation happened while it was being read.
	userListGenKey = "messagely:users:gen"
)

var errStaleSnapshot = errors.New("user list changed during read")

// UserLister is the source of truth the cache sits in front of.
type UserLister interface {
	ListUsersOrdered(ctx context.Context) ([]models.UserSummary, error)
}

// UserListCache serves the ordered user list from redis and falls back to the
// store on a miss. Concurrent misses share a single store query. Redis
// failures are logged and never surface to the caller.
type UserListCache struct {
	next UserLister
	rdb  *redis.Client
	ttl  time.Duration
	sf   singleflight.Group
	log  logging.Logger
}

// NewUserListCache wraps next. A nil client disables caching.
func NewUserListCache(next UserLister, rdb *redis.Client, ttl time.Duration, log logging.Logger) *UserListCache {
	if log == nil {
		log = logging.Nop()
	}
	return &UserListCache{next: next, rdb: rdb, ttl: ttl, log: log.With("module", "user_cache")}
}

// NewRedisClient parses a redis:// URL and checks the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (c *UserListCache) ListUsersOrdered(ctx context.Context) ([]models.UserSummary, error) {
	if c.rdb == nil {
		return c.next.ListUsersOrdered(ctx)
	}

	if users, ok := c.get(ctx); ok {
		return users, nil
	}

	// The shared query must not die with whichever caller happened to start
	// it; each caller still gives up on its own context.
	ch := c.sf.DoChan(userListKey, func() (interface{}, error) {
		fctx := context.WithoutCancel(ctx)
		gen, genOK := c.generation(fctx)
		users, err := c.next.ListUsersOrdered(fctx)
		if err != nil {
			return nil, err
		}
		if genOK {
			c.set(fctx, gen, users)
		}
		return users, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	// Callers sharing a flight must not share a backing array.
	shared := res.Val.([]models.UserSummary)
	users := make([]models.UserSummary, len(shared))
	copy(users, shared)
	return users, nil
}

// Invalidate drops the cached list and bumps the generation, so a read that
// started earlier cannot write its old snapshot back. Registration calls it
// so new users show up on the next read.
func (c *UserListCache) Invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Incr(ctx, userListGenKey).Err(); err != nil {
		c.log.Warn(ctx, "user list generation bump failed", "error", err)
	}
	if err := c.rdb.Del(ctx, userListKey).Err(); err != nil {
		c.log.Warn(ctx, "user list invalidate failed", "error", err)
	}
	c.sf.Forget(userListKey)
}

func (c *UserListCache) generation(ctx context.Context) (int64, bool) {
	gen, err := c.rdb.Get(ctx, userListGenKey).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, true
	case err != nil:
		c.log.Warn(ctx, "user list generation read failed", "error", err)
		return 0, false
	}
	return gen, true
}

func (c *UserListCache) get(ctx context.Context) ([]models.UserSummary, bool) {
	raw, err := c.rdb.Get(ctx, userListKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn(ctx, "user list cache read failed", "error", err)
		}
		return nil, false
	}

	users := make([]models.UserSummary, 0)
	if err := json.Unmarshal(raw, &users); err != nil {
		c.log.Warn(ctx, "user list cache entry corrupt", "error", err)
		return nil, false
	}
	return users, true
}

// set stores users unless the generation moved past gen. WATCH makes the
// check and the write atomic against a concurrent Invalidate.
func (c *UserListCache) set(ctx context.Context, gen int64, users []models.UserSummary) {
	raw, err := json.Marshal(users)
	if err != nil {
		c.log.Warn(ctx, "user list encode failed", "error", err)
		return
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, userListGenKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleSnapshot
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userListKey, raw, c.ttl)
			return nil
		})
		return err
	}, userListGenKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleSnapshot), errors.Is(err, redis.TxFailedErr):
		c.log.Debug(ctx, "user list snapshot discarded after invalidation")
	default:
		c.log.Warn(ctx, "user list cache write failed", "error", err)
	}
}
