package augment

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/leapstack-labs/apalint/pkg/core"
)

// Store is a persistent second cache tier shared across processes.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Fingerprint identifies one rule evaluation: the rule, the document
// content and the variant.
func Fingerprint(ruleID string, docHash uint64, variant core.Variant) string {
	h := xxhash.NewS64(0)
	_, _ = h.Write([]byte(ruleID + "\x00" + strconv.FormatUint(docHash, 16) + "\x00" + string(variant)))
	return strconv.FormatUint(h.Sum64(), 16)
}

// entry is a cached outcome. A nil Finding with an empty Text is a
// compliant rule answer.
type entry struct {
	Finding *core.Finding `json:"finding,omitempty"`
	Text    string        `json:"text,omitempty"`
}

func (e entry) encode() ([]byte, error) {
	if e.Finding != nil {
		f := *e.Finding
		f.Snippet = ""
		e.Finding = &f
	}
	return json.Marshal(e)
}

func decodeEntry(data []byte) (entry, error) {
	var e entry
	err := json.Unmarshal(data, &e)
	return e, err
}

type cached struct {
	entry   entry
	expires time.Time // zero never expires
	seq     uint64
}

// memoryCache is the in-process tier. Expired items are dropped on read
// and swept at most once per ttl on write; at most max items are held,
// evicting the oldest insertion first.
type memoryCache struct {
	mu        sync.Mutex
	items     map[string]cached
	ttl       time.Duration
	max       int
	seq       uint64
	nextSweep time.Time
	now       func() time.Time
}

func newMemoryCache(ttl time.Duration, maxEntries int) *memoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &memoryCache{items: make(map[string]cached), ttl: ttl, max: maxEntries, now: time.Now}
}

func (c *memoryCache) get(key string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		return entry{}, false
	}
	if it.expired(c.now()) {
		delete(c.items, key)
		return entry{}, false
	}
	return it.entry, true
}

func (c *memoryCache) put(key string, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if c.ttl > 0 && !now.Before(c.nextSweep) {
		c.sweep(now)
		c.nextSweep = now.Add(c.ttl)
	}
	if _, ok := c.items[key]; !ok && len(c.items) >= c.max {
		c.sweep(now)
		for len(c.items) >= c.max {
			c.evictOldest()
		}
	}
	c.seq++
	it := cached{entry: e, seq: c.seq}
	if c.ttl > 0 {
		it.expires = now.Add(c.ttl)
	}
	c.items[key] = it
}

func (c *memoryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *memoryCache) sweep(now time.Time) {
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
		}
	}
}

func (c *memoryCache) evictOldest() {
	var (
		oldest string
		seq    uint64
		found  bool
	)
	for k, it := range c.items {
		if !found || it.seq < seq {
			oldest, seq, found = k, it.seq, true
		}
	}
	if found {
		delete(c.items, oldest)
	}
}

func (it cached) expired(now time.Time) bool {
	return !it.expires.IsZero() && !now.Before(it.expires)
}
