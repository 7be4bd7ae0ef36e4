// Package cache provides the simple LRU cache backing the glyph-metrics
// lookups of the render cache hierarchy.
//
// Cache[K, V] is a thread-safe LRU map with a soft entry limit: when the
// limit is exceeded, the oldest 25% of entries are evicted in one batch.
// It suits values that are cheap to rebuild and have no downstream
// owners — glyph metrics are reloaded through the outline cache on a
// miss, so eviction never invalidates anything.
//
//	c := cache.New[string, int](100)
//	c.Set("key", 42)
//	value, ok := c.Get("key")
//
// Values that other cache entries hold references on (outlines, bitmaps,
// composites) need the ref-counted engine in the top-level cache package
// instead.
//
// Cache is safe for concurrent use and must not be copied after creation
// (it contains a mutex).
package cache
