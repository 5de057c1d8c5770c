package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryConfig configures the in-memory cache.
type MemoryConfig struct {
	// MaxEntries bounds the store. When full, the least-recently-inserted
	// entry is evicted before a new one is added.
	// Default: 1024
	MaxEntries int
}

// Memory is the in-memory Cache implementation.
type Memory struct {
	config MemoryConfig

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = oldest insertion
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// NewMemory creates an in-memory cache.
func NewMemory(config MemoryConfig) *Memory {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 1024
	}
	return &Memory{
		config:  config,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get retrieves a value. An entry past its TTL is treated as absent and
// removed.
func (c *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeLocked(elem)
		return nil, false
	}
	return entry.value, true
}

// Set stores a value. Re-setting an existing key counts as a fresh
// insertion for eviction ordering.
func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := ValidateKey(key); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}
	if c.order.Len() >= c.config.MaxEntries {
		if oldest := c.order.Front(); oldest != nil {
			c.removeLocked(oldest)
		}
	}

	c.entries[key] = c.order.PushBack(&memoryEntry{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Delete removes one key. Idempotent.
func (c *Memory) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}
	return nil
}

// DeletePrefix removes every key with the given prefix.
func (c *Memory) DeletePrefix(_ context.Context, prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, elem := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(elem)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Memory) removeLocked(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	delete(c.entries, entry.key)
	c.order.Remove(elem)
}

// Ensure Memory implements Cache
var _ Cache = (*Memory)(nil)
