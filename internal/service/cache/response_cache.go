package cache

import (
	"strings"
	"time"

	domrepo "SentiPulse/internal/domain/repository"

	gocache "github.com/patrickmn/go-cache"
)

// ResponseCache keeps rendered read models in process memory.
type ResponseCache struct {
	c *gocache.Cache
}

// NewResponseCache creates a cache whose entries expire after ttl unless Set overrides it.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ResponseCache{c: gocache.New(ttl, 2*ttl)}
}

var _ domrepo.ResponseCache = (*ResponseCache)(nil)

func (r *ResponseCache) Get(key string) (interface{}, bool) {
	return r.c.Get(key)
}

func (r *ResponseCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	r.c.Set(key, value, ttl)
}

// DeletePrefix removes every key starting with prefix and returns how many were removed.
func (r *ResponseCache) DeletePrefix(prefix string) int {
	n := 0
	for k := range r.c.Items() {
		if strings.HasPrefix(k, prefix) {
			r.c.Delete(k)
			n++
		}
	}
	return n
}

func (r *ResponseCache) Flush() {
	r.c.Flush()
}

func (r *ResponseCache) Len() int {
	return r.c.ItemCount()
}
