// Package cmap provides a concurrent map keyed by strings.
//
// Keys are spread across shards by their murmur3 hash and each shard has
// its own RWMutex, so unrelated keys never contend:
//
//	m := cmap.New[string, *Session]()
//	m.Set(id, session)
//	s, ok := m.Get(id)
//
// Count and Clear visit the shards one at a time and see a per-shard
// consistent view only.
//
// murmur3.Sum32 reads blocks through unsafe pointer arithmetic that
// checkptr rejects, so race runs of this package need
// -gcflags=all=-d=checkptr=0.
package cmap
