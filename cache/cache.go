// Package cache holds large read-only objects, such as model files, that
// should be loaded once per process no matter how many bots ask for them.
package cache

import (
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/domino14/htmf/config"
)

// LoadFunc produces the object stored under key.
type LoadFunc func(cfg *config.Config, key string) (any, error)

type objectCache struct {
	mu      sync.RWMutex
	objects map[string]any
	loading singleflight.Group
}

var global = &objectCache{objects: map[string]any{}}

func (c *objectCache) get(cfg *config.Config, key string, load LoadFunc) (any, error) {
	c.mu.RLock()
	obj, ok := c.objects[key]
	c.mu.RUnlock()
	if ok {
		log.Debug().Str("key", key).Msg("cache-hit")
		return obj, nil
	}
	// Concurrent misses on the same key share one load; loads of other keys
	// are not blocked.
	obj, err, _ := c.loading.Do(key, func() (any, error) {
		c.mu.RLock()
		obj, ok := c.objects[key]
		c.mu.RUnlock()
		if ok {
			return obj, nil
		}
		log.Debug().Str("key", key).Msg("cache-load")
		obj, err := load(cfg, key)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.objects[key] = obj
		c.mu.Unlock()
		return obj, nil
	})
	return obj, err
}

// Load returns the object cached under key, calling load to produce it on
// the first request. Failed loads are not cached.
func Load(cfg *config.Config, key string, load LoadFunc) (any, error) {
	return global.get(cfg, key, load)
}

// Evict drops key so that the next Load reads it again.
func Evict(key string) {
	global.mu.Lock()
	delete(global.objects, key)
	global.mu.Unlock()
}
