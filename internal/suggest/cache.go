package suggest

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Cached memoizes a Source per exact query and collapses identical
// concurrent lookups into one upstream request. Errors are not cached.
type Cached struct {
	src   Source
	cache *expirable.LRU[string, []Suggestion]
	group singleflight.Group
}

// NewCached wraps src. A size below one disables the cache but keeps the
// request collapsing.
func NewCached(src Source, size int, ttl time.Duration) *Cached {
	c := &Cached{src: src}
	if size > 0 {
		c.cache = expirable.NewLRU[string, []Suggestion](size, nil, ttl)
	}
	return c
}

func (c *Cached) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	if c.cache != nil {
		if items, ok := c.cache.Get(query); ok {
			return items, nil
		}
	}

	// The shared lookup outlives any single caller; the client timeout
	// bounds it.
	ch := c.group.DoChan(query, func() (any, error) {
		items, err := c.src.Suggest(context.WithoutCancel(ctx), query)
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			c.cache.Add(query, items)
		}
		return items, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Suggestion), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Purge drops every cached response.
func (c *Cached) Purge() {
	if c.cache != nil {
		c.cache.Purge()
	}
}
