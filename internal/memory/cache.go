package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"call-insights/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// CachedRepo keeps each user's most recent window in redis in front of a durable
// Repository. The durable store is always written first; cache errors only log.
//
// Appends never rewrite the cached window. They bump a per-user generation
// counter instead, and a cached window is served only while its generation matches
// the counter. The counters do not expire.
type CachedRepo struct {
	next   Repository
	rdb    redis.Cmdable
	window int
	ttl    time.Duration
}

func NewCachedRepo(next Repository, rdb redis.Cmdable, window int, ttl time.Duration) *CachedRepo {
	return &CachedRepo{next: next, rdb: rdb, window: window, ttl: ttl}
}

type cachedWindow struct {
	Gen     int64   `json:"gen"`
	Entries []Entry `json:"entries"`
}

func cacheKey(organisationID, userID string) string {
	return fmt.Sprintf("memory:%s:%s", organisationID, userID)
}

func genKey(organisationID, userID string) string {
	return cacheKey(organisationID, userID) + ":gen"
}

func (c *CachedRepo) Append(ctx context.Context, e Entry) error {
	if err := c.next.Append(ctx, e); err != nil {
		return err
	}
	if err := c.rdb.Incr(ctx, genKey(e.OrganisationID, e.UserID)).Err(); err != nil {
		logger.From(ctx).Warn("memory cache invalidate failed", "err", err)
		_ = c.rdb.Del(ctx, cacheKey(e.OrganisationID, e.UserID)).Err()
	}
	return nil
}

func (c *CachedRepo) Recent(ctx context.Context, organisationID, userID string, n int) ([]Entry, error) {
	if n > c.window {
		return c.next.Recent(ctx, organisationID, userID, n)
	}

	key := cacheKey(organisationID, userID)
	gen, cached, err := c.load(ctx, key, genKey(organisationID, userID))
	if err == nil && cached != nil && cached.Gen == gen {
		return trimWindow(cached.Entries, n), nil
	}

	entries, derr := c.next.Recent(ctx, organisationID, userID, c.window)
	if derr != nil {
		return nil, derr
	}
	// The generation was read before the durable query, so a window that raced
	// with an append is stored under a stale generation and never served.
	if err == nil {
		c.store(ctx, key, cachedWindow{Gen: gen, Entries: entries})
	}
	return trimWindow(entries, n), nil
}

// load reads the cached window and the current generation in one round trip.
// A missing window is returned as nil.
func (c *CachedRepo) load(ctx context.Context, key, gk string) (int64, *cachedWindow, error) {
	vals, err := c.rdb.MGet(ctx, key, gk).Result()
	if err != nil {
		logger.From(ctx).Warn("memory cache read failed", "err", err)
		return 0, nil, err
	}

	var gen int64
	if s, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseInt(s, 10, 64); err != nil {
			return 0, nil, err
		}
	}
	s, ok := vals[0].(string)
	if !ok {
		return gen, nil, nil
	}
	var w cachedWindow
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		logger.From(ctx).Warn("memory cache entry unreadable", "err", err)
		return gen, nil, nil
	}
	return gen, &w, nil
}

func (c *CachedRepo) store(ctx context.Context, key string, w cachedWindow) {
	data, err := json.Marshal(w)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.From(ctx).Warn("memory cache write failed", "err", err)
	}
}

// trimWindow keeps the newest n entries of a chronological slice.
func trimWindow(es []Entry, n int) []Entry {
	if n <= 0 {
		return nil
	}
	if len(es) <= n {
		return es
	}
	return es[len(es)-n:]
}
