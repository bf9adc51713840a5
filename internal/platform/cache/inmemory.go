package cache

import (
	"context"
	"sync"
	"time"
)

type inMemoryCache struct {
	ctx       context.Context
	cancel    context.CancelFunc
	entries   map[string]entry
	mutex     sync.Mutex
	waitGroup sync.WaitGroup
	once      sync.Once
	cfg       config
}

var _ Cache = (*inMemoryCache)(nil)

// NewInMemory returns an in-process Cache. A background sweep drops
// expired entries periodically; correctness relies only on lazy expiry
// at read time.
func NewInMemory(parent context.Context, opts ...Option) Cache {
	cfg := applyOptions(opts)
	ctx, cancel := context.WithCancel(parent)
	c := &inMemoryCache{
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]entry),
		cfg:     cfg,
	}
	c.waitGroup.Add(1)
	go c.sweep()
	return c
}

func (c *inMemoryCache) GetContext(_ context.Context, key string) (bool, any, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false, nil, nil
	}
	if e.expiresAt.Before(time.Now()) {
		delete(c.entries, key)
		return false, nil, nil
	}
	return true, e.object, nil
}

func (c *inMemoryCache) SetContext(_ context.Context, key string, val any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.cfg.defaultTTL
	}
	c.mutex.Lock()
	c.entries[key] = entry{object: val, expiresAt: time.Now().Add(ttl)}
	c.mutex.Unlock()
	return nil
}

func (c *inMemoryCache) ExpireContext(_ context.Context, key string) (bool, error) {
	c.mutex.Lock()
	_, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mutex.Unlock()
	return ok, nil
}

func (c *inMemoryCache) CloseContext(_ context.Context) error {
	c.once.Do(func() {
		c.cancel()
		c.waitGroup.Wait()
	})
	return nil
}

func (c *inMemoryCache) sweep() {
	defer c.waitGroup.Done()
	ticker := time.NewTicker(c.cfg.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			c.mutex.Lock()
			for key, e := range c.entries {
				if e.expiresAt.Before(now) {
					delete(c.entries, key)
				}
			}
			c.mutex.Unlock()
		}
	}
}
