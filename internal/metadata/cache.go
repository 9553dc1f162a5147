package metadata

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Perlovich/phone-sharing-service/internal/logger"
	"github.com/Perlovich/phone-sharing-service/internal/metrics"
)

// Cache resolves metadata by phone name and keeps every result for the
// lifetime of the process. Concurrent lookups for one name share a single
// resolution, so the source sees at most one call per name.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Metadata
	group   singleflight.Group

	source  Source
	store   Store
	token   string
	offline bool

	log     logger.Logger
	metrics *metrics.Metrics
}

type Option func(*Cache)

// WithToken sets the Fonoapi token. Without one no outbound call is made.
func WithToken(token string) Option {
	return func(c *Cache) { c.token = token }
}

func WithOffline(offline bool) Option {
	return func(c *Cache) { c.offline = offline }
}

// WithStore adds a shared tier consulted before the source.
func WithStore(store Store) Option {
	return func(c *Cache) { c.store = store }
}

func WithLogger(log logger.Logger) Option {
	return func(c *Cache) { c.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

func NewCache(source Source, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]Metadata),
		source:  source,
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "metadata")
	return c
}

// Get never fails. If ctx ends before the shared resolution settles, the
// caller gets Default() and the resolution keeps running for later callers.
func (c *Cache) Get(ctx context.Context, name string) Metadata {
	if md, ok := c.cached(name); ok {
		c.metrics.MetadataLookup(metrics.LookupCached)
		return md
	}

	ch := c.group.DoChan(name, func() (interface{}, error) {
		return c.resolve(name), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Metadata)
	case <-ctx.Done():
		c.log.Warn("stopped waiting for metadata", "name", name, "error", ctx.Err())
		return Default()
	}
}

func (c *Cache) cached(name string) (Metadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	md, ok := c.entries[name]
	return md, ok
}

// resolve runs once per in-flight name, detached from every caller.
func (c *Cache) resolve(name string) Metadata {
	// A previous flight may have settled between the caller's miss and now.
	if md, ok := c.cached(name); ok {
		c.metrics.MetadataLookup(metrics.LookupCached)
		return md
	}

	md, result := c.lookup(context.Background(), name)

	c.mu.Lock()
	c.entries[name] = md
	c.mu.Unlock()

	c.metrics.MetadataLookup(result)
	return md
}

func (c *Cache) lookup(ctx context.Context, name string) (Metadata, string) {
	if c.token == "" {
		c.log.Warn("fonoapi token is not set, the request won't be sent", "name", name)
		return Default(), metrics.LookupDefault
	}
	if c.offline {
		c.log.Warn("offline mode is on, the request won't be sent", "name", name)
		return Default(), metrics.LookupDefault
	}

	if c.store != nil {
		md, ok, err := c.store.Load(ctx, name)
		if err != nil {
			c.log.Warn("metadata store read failed", "name", name, "error", err)
		} else if ok {
			return md, metrics.LookupStored
		}
	}

	start := time.Now()
	records, err := c.source.Lookup(ctx, name, c.token)
	c.metrics.ObserveOutbound(time.Since(start))
	if err != nil {
		c.log.Error("fonoapi lookup failed", "name", name, "error", err)
		return Default(), metrics.LookupDefault
	}
	if len(records) == 0 {
		c.log.Warn("fonoapi returned no devices", "name", name)
		return Default(), metrics.LookupDefault
	}

	md := FromRecord(records[0])
	if c.store != nil {
		if err := c.store.Save(ctx, name, md); err != nil {
			c.log.Warn("metadata store write failed", "name", name, "error", err)
		}
	}
	return md, metrics.LookupRemote
}
