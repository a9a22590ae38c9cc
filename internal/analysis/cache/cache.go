// Package cache provides the feature cache keyed by (fingerprint, chunk
// index, detector type). Concurrent requests for the same key share one
// computation; results live in a byte-bounded in-memory LRU with an optional
// JSON disk layer underneath.
package cache

import (
	"container/list"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/bakerbass/GuitarChops/internal/segment"
)

// Key identifies one detector's output for one chunk of one file.
type Key struct {
	Fingerprint segment.Fingerprint
	ChunkIndex  int
	Detector    segment.DetectorType
}

func (k Key) String() string {
	return fmt.Sprintf("%s_%d_%s", k.Fingerprint, k.ChunkIndex, k.Detector)
}

// ComputeFunc produces the candidate events for a missing key.
type ComputeFunc func() ([]segment.CandidateEvent, error)

// FeatureCache caches detector output. Safe for concurrent use. Eviction
// never invalidates an in-flight computation: the singleflight group holds
// the result until every waiter has received it.
type FeatureCache struct {
	group singleflight.Group

	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	bytes    int64
	maxBytes int64

	dir string // disk layer root, empty disables persistence

	hits   int64
	misses int64
}

type entry struct {
	key    string
	events []segment.CandidateEvent
	size   int64
}

// New creates a cache with the given in-memory byte budget. A non-empty dir
// enables the persistent JSON layer and is created if missing.
func New(maxBytes int64, dir string) (*FeatureCache, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	return &FeatureCache{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		maxBytes: maxBytes,
		dir:      dir,
	}, nil
}

// GetOrCompute returns the cached events for the key, or runs compute exactly
// once per key across concurrent callers and caches the result. A compute
// error is returned to every waiter and nothing is stored.
func (c *FeatureCache) GetOrCompute(key Key, compute ComputeFunc) ([]segment.CandidateEvent, error) {
	ks := key.String()

	if events, ok := c.lookup(ks); ok {
		return events, nil
	}

	v, err, _ := c.group.Do(ks, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have stored
		// the value between our lookup and the flight starting.
		if events, ok := c.lookup(ks); ok {
			return events, nil
		}
		if events, ok := c.loadDisk(ks); ok {
			c.store(ks, events)
			return events, nil
		}

		events, err := compute()
		if err != nil {
			return nil, err
		}
		c.store(ks, events)
		c.saveDisk(ks, events)
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]segment.CandidateEvent), nil
}

// lookup checks the in-memory layer and refreshes recency on a hit.
func (c *FeatureCache) lookup(ks string) ([]segment.CandidateEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[ks]
	if !ok {
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return el.Value.(*entry).events, true
}

// store inserts the value and evicts least-recently-used entries past the
// byte budget. A single value larger than the whole budget is still stored;
// it just evicts everything else.
func (c *FeatureCache) store(ks string, events []segment.CandidateEvent) {
	size := eventsSize(events)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[ks]; ok {
		c.bytes -= el.Value.(*entry).size
		c.order.Remove(el)
		delete(c.entries, ks)
	}

	c.entries[ks] = c.order.PushFront(&entry{key: ks, events: events, size: size})
	c.bytes += size

	for c.bytes > c.maxBytes && c.order.Len() > 1 {
		oldest := c.order.Back()
		e := oldest.Value.(*entry)
		c.order.Remove(oldest)
		delete(c.entries, e.key)
		c.bytes -= e.size
	}
}

// eventsSize approximates the in-memory footprint of a cached value.
func eventsSize(events []segment.CandidateEvent) int64 {
	const eventOverhead = 96
	size := int64(64)
	for i := range events {
		size += eventOverhead + int64(len(events[i].Key)) + int64(len(events[i].Type))
	}
	return size
}

// diskPath returns the JSON file backing a key.
func (c *FeatureCache) diskPath(ks string) string {
	return filepath.Join(c.dir, ks+".json")
}

func (c *FeatureCache) loadDisk(ks string) ([]segment.CandidateEvent, bool) {
	if c.dir == "" {
		return nil, false
	}
	raw, err := os.ReadFile(c.diskPath(ks))
	if err != nil {
		return nil, false
	}
	var events []segment.CandidateEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		// A corrupt entry is a miss, not a failure.
		_ = os.Remove(c.diskPath(ks))
		return nil, false
	}
	return events, true
}

func (c *FeatureCache) saveDisk(ks string, events []segment.CandidateEvent) {
	if c.dir == "" {
		return
	}
	raw, err := json.Marshal(events)
	if err != nil {
		return
	}
	tmp := c.diskPath(ks) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, c.diskPath(ks))
}

// Stats reports hit/miss counters and the current in-memory footprint.
func (c *FeatureCache) Stats() (hits, misses, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.bytes
}

// Len returns the number of in-memory entries.
func (c *FeatureCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
