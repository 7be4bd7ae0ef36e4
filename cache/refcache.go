// Package cache implements the generic content-addressed cache engine
// used by the rendercache hierarchies: reference-counted entries with
// LRU eviction bounded by total size. Keyed lookup goes through Go's
// native map, so there is no hand-rolled hash chain to maintain.
package cache

import (
	"errors"
	"hash/fnv"
	"sync"
)

// ErrConstructFailed is returned by Get when the value constructor fails;
// the cache records no entry for the key in this case.
var ErrConstructFailed = errors.New("cache: construct failed")

// Sized is implemented by cache values that know their own accounted
// size in bytes, used by Cut to bound total cache size.
type Sized interface {
	Size() int
}

// entry is one cache line: the value plus its bookkeeping. refCount
// counts external holders only (each Get and IncRef adds one, each
// DecRef removes one); membership in the LRU list is tracked by the
// separate linked flag. An entry is destroyed once it is both unlinked
// and at refCount zero.
type entry[V any] struct {
	value    V
	size     int
	refCount int
	node     *lruNode[uint64]
	linked   bool
}

// RefCache is a size-bounded, reference-counted, LRU-evicted cache. It
// backs the font, outline, bitmap, and composite caches of the render
// driver's cache hierarchy; the glyph-metrics cache uses the simpler
// internal/cache.Cache instead, having no downstream ref-count owners
// to keep alive across eviction.
//
// RefCache is safe for concurrent use even though the render driver
// itself is documented as single-threaded and non-reentrant: the cache
// outlives any one Renderer call and may be shared or inspected from
// tooling.
type RefCache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
	keyOf   map[uint64]K
	lru     *lruList[uint64]
	hashOf  func(K) uint64

	size     int
	maxSize  int
	hits     uint64
	misses   uint64
	evicted  uint64

	// destroy, if set, runs after an entry is finally destroyed
	// (ref-count zero and unlinked). It is invoked outside the cache
	// lock so it may call back into this or another cache — the hook
	// the render hierarchy uses to release a value's owning references
	// on other entries (border outline -> source outline, bitmap ->
	// outline, composite -> component bitmaps).
	destroy func(K, V)
}

// New creates a RefCache bounded by maxSize accounted units: bytes as
// reported by each value's Size method when the value implements Sized,
// else one unit per entry (entry-count bounding). hashOf computes a
// cache-local handle used only for LRU bookkeeping; it need not be
// collision-free across different RefCache instances.
func New[K comparable, V any](maxSize int, hashOf func(K) uint64) *RefCache[K, V] {
	return &RefCache[K, V]{
		entries: make(map[K]*entry[V]),
		keyOf:   make(map[uint64]K),
		lru:     newLRUList[uint64](),
		hashOf:  hashOf,
		maxSize: maxSize,
	}
}

// FNV64a hashes an arbitrary byte-serializable key's image. FNV-1a is
// the house hash for every cache key needing a byte-image hash (outline
// and composite keys); keeping one hash family keeps the caches uniform.
func FNV64a(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// Get returns the cached value for key, constructing it via construct
// on a miss. On a hit the entry moves to the LRU front (most recently
// used) and its ref-count is incremented; on a miss the constructed
// value is inserted with ref-count 1. Callers must pair every Get with
// a later DecRef.
func (c *RefCache[K, V]) Get(key K, construct func() (V, error)) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.hits++
		e.refCount++
		c.lru.MoveToFront(e.node)
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	c.misses++
	c.mu.Unlock()

	v, err := construct()
	if err != nil {
		var zero V
		return zero, errors.Join(ErrConstructFailed, err)
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		// Lost a race with another construct for the same key (only
		// possible if callers invoke Get concurrently); keep the
		// first winner and drop the redundant value.
		e.refCount++
		c.lru.MoveToFront(e.node)
		val := e.value
		c.mu.Unlock()
		return val, nil
	}

	h := c.hashOf(key)
	for {
		if _, used := c.keyOf[h]; !used {
			break
		}
		h++
	}
	node := c.lru.PushFront(h)
	size := sizeOf(v)
	c.entries[key] = &entry[V]{value: v, size: size, refCount: 1, node: node, linked: true}
	c.keyOf[h] = key
	c.size += size
	destroyed := c.evictLocked()
	c.mu.Unlock()
	c.runDestructors(destroyed)
	return v, nil
}

// sizeOf reports a value's accounted size: its Size method if it
// implements Sized, else 1 (entry-count accounting, used by the font
// and outline caches which the configuration bounds by entry count).
func sizeOf(v any) int {
	if s, ok := v.(Sized); ok {
		return s.Size()
	}
	return 1
}

// IncRef increments the reference count on the entry holding value's
// key. Callers that retain a value beyond the scope of a single Get
// (e.g. a border outline keeping its source outline alive) must call
// this explicitly; Get's own implicit reference only covers the call
// that produced the value.
func (c *RefCache[K, V]) IncRef(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.refCount++
	}
}

// SetDestructor installs the hook run when an entry is finally
// destroyed (ref-count zero and unlinked from the cache). Must be set
// before the first Get; the hook runs outside the cache lock.
func (c *RefCache[K, V]) SetDestructor(fn func(K, V)) {
	c.destroy = fn
}

// DecRef releases one reference. When the count reaches zero and the
// entry has already been unlinked from the cache (evicted by Cut), the
// entry is destroyed; otherwise it remains cached for a future Get.
func (c *RefCache[K, V]) DecRef(key K) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	e.refCount--
	var destroyed *entry[V]
	if e.refCount <= 0 && !e.linked {
		delete(c.entries, key)
		destroyed = e
	}
	c.mu.Unlock()
	if destroyed != nil && c.destroy != nil {
		c.destroy(key, destroyed.value)
	}
}

// Cut evicts entries from the LRU back (least recently used) until the
// cache's accounted size is at or below maxSize, or every remaining
// entry is still referenced. A popped entry with ref_count == 0 is
// destroyed immediately; one with outstanding references is marked
// unlinked and destroyed later by its final DecRef.
func (c *RefCache[K, V]) Cut() {
	c.mu.Lock()
	destroyed := c.evictLocked()
	c.mu.Unlock()
	c.runDestructors(destroyed)
}

type destroyedEntry[K comparable, V any] struct {
	key   K
	value V
}

func (c *RefCache[K, V]) runDestructors(list []destroyedEntry[K, V]) {
	if c.destroy == nil {
		return
	}
	for _, d := range list {
		c.destroy(d.key, d.value)
	}
}

func (c *RefCache[K, V]) evictLocked() []destroyedEntry[K, V] {
	var destroyed []destroyedEntry[K, V]
	for c.size > c.maxSize {
		h, ok := c.lru.Oldest()
		if !ok {
			return destroyed
		}
		key, ok := c.keyOf[h]
		if !ok {
			c.lru.RemoveOldest()
			continue
		}
		e := c.entries[key]
		if e == nil {
			c.lru.RemoveOldest()
			delete(c.keyOf, h)
			continue
		}
		c.lru.RemoveOldest()
		delete(c.keyOf, h)
		c.size -= e.size
		c.evicted++
		e.linked = false
		if e.refCount <= 0 {
			delete(c.entries, key)
			destroyed = append(destroyed, destroyedEntry[K, V]{key: key, value: e.value})
		}
	}
	return destroyed
}

// Len returns the number of live entries, linked or not.
func (c *RefCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Size returns the cache's total accounted size, in the units New
// describes (bytes for Sized values, else entries).
func (c *RefCache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats reports the ref-counted engine's counters.
type Stats struct {
	Len       int
	Size      int
	MaxSize   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

func (c *RefCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Len:       len(c.entries),
		Size:      c.size,
		MaxSize:   c.maxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evicted,
	}
}
