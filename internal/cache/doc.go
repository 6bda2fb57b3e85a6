// Package cache provides the generic LRU cache behind the renderer's
// shader, filter and lookup-table caches.
//
//	c := cache.New[string, *Filter](32)
//	c.OnEvict(func(_ string, f *Filter) { f.Free() })
//	f, err := c.GetOrCreate("spline36/64", build)
//
// Entries evicted by the soft limit, replaced by Set, or dropped by Purge
// are passed to the eviction callback so GPU-backed values can be released.
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
