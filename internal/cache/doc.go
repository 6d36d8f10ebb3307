// Package cache provides a small thread-safe LRU cache used for derived
// artifacts such as stage thumbnails. It is intentionally simple: a map
// plus an intrusive doubly-linked recency list, evicting the least recently
// used entries once a soft limit is exceeded.
package cache
