// Package tracker holds the upstream boundary helpers: a TTL cache for
// fetched backlogs and an offline YAML snapshot source. All real tracker
// I/O (HTTP, auth, retries) lives outside the engine; implementations of
// model.IssueSource plug in here.
package tracker

import (
	"context"
	"sync"
	"time"

	errbuilder "github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/quillforge/sprintscale/internal/model"
)

// BacklogCache is a thread-safe in-memory cache of fetched backlogs with a
// TTL, so repeated questions about the same project do not re-hit the
// tracker. Entries are copied on read and write; callers can never mutate a
// cached snapshot after a scheduler has it.
type BacklogCache struct {
	store map[string]cacheItem
	mutex sync.RWMutex
	ttl   time.Duration
}

type cacheItem struct {
	issues     []model.RawIssue
	expiration int64
}

// DefaultBacklogTTL matches the upstream sync cadence.
const DefaultBacklogTTL = 60 * time.Second

// NewBacklogCache creates a backlog cache with the given TTL; zero or
// negative falls back to the default.
func NewBacklogCache(ttl time.Duration) *BacklogCache {
	if ttl <= 0 {
		ttl = DefaultBacklogTTL
	}
	return &BacklogCache{
		store: make(map[string]cacheItem),
		ttl:   ttl,
	}
}

// Get retrieves a cached backlog snapshot.
func (c *BacklogCache) Get(ctx context.Context, key string) ([]model.RawIssue, error) {
	if err := errbuilder.WrapIfContextDone(ctx, nil); err != nil {
		return nil, err
	}

	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, found := c.store[key]
	if !found {
		return nil, errbuilder.NotFoundErr(errbuilder.GenericErr("backlog not cached", nil))
	}
	if time.Now().UnixNano() > item.expiration {
		// Expired; lazy cleanup happens on the next Set.
		return nil, errbuilder.NotFoundErr(errbuilder.GenericErr("cached backlog expired", nil))
	}
	return copyIssues(item.issues), nil
}

// Set stores a backlog snapshot under key.
func (c *BacklogCache) Set(ctx context.Context, key string, issues []model.RawIssue) error {
	if err := errbuilder.WrapIfContextDone(ctx, nil); err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now().UnixNano()
	for k, item := range c.store {
		if now > item.expiration {
			delete(c.store, k)
		}
	}
	c.store[key] = cacheItem{
		issues:     copyIssues(issues),
		expiration: time.Now().Add(c.ttl).UnixNano(),
	}
	return nil
}

func copyIssues(issues []model.RawIssue) []model.RawIssue {
	out := make([]model.RawIssue, len(issues))
	copy(out, issues)
	return out
}

// CachedSource wraps an IssueSource with a BacklogCache.
type CachedSource struct {
	source model.IssueSource
	cache  *BacklogCache
}

// NewCachedSource builds a caching wrapper around source.
func NewCachedSource(source model.IssueSource, cache *BacklogCache) *CachedSource {
	if cache == nil {
		cache = NewBacklogCache(DefaultBacklogTTL)
	}
	return &CachedSource{source: source, cache: cache}
}

// FetchBacklog returns the cached snapshot when fresh, otherwise fetches
// from the wrapped source and caches the result.
func (s *CachedSource) FetchBacklog(ctx context.Context, projectKey string) ([]model.RawIssue, error) {
	if issues, err := s.cache.Get(ctx, projectKey); err == nil {
		return issues, nil
	}
	issues, err := s.source.FetchBacklog(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, projectKey, issues); err != nil {
		return nil, model.NewCacheError("sync", "set", err)
	}
	return issues, nil
}
