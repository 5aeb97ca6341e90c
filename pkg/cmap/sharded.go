package cmap

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is used when New is given no usable count.
const DefaultShardCount = 16

// Map is a string-keyed map split into independently locked shards.
type Map[K ~string, V any] struct {
	shards []shard[K, V]
	mask   uint32
}

type shard[K ~string, V any] struct {
	sync.RWMutex
	items map[K]V
}

// New returns a map with DefaultShardCount shards.
func New[K ~string, V any]() *Map[K, V] {
	return NewWithShards[K, V](DefaultShardCount)
}

// NewWithShards returns a map with n shards. n must be a power of two;
// anything else selects DefaultShardCount.
func NewWithShards[K ~string, V any](n int) *Map[K, V] {
	if n <= 0 || n&(n-1) != 0 {
		n = DefaultShardCount
	}
	m := &Map[K, V]{shards: make([]shard[K, V], n), mask: uint32(n - 1)}
	for i := range m.shards {
		m.shards[i].items = make(map[K]V)
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return &m.shards[murmur3.Sum32([]byte(key))&m.mask]
}

// ShardCount reports the number of shards.
func (m *Map[K, V]) ShardCount() int { return len(m.shards) }

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.RLock()
	v, ok := s.items[key]
	s.RUnlock()
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardFor(key)
	s.Lock()
	s.items[key] = value
	s.Unlock()
}

// Pop removes key and returns what was stored under it.
func (m *Map[K, V]) Pop(key K) (V, bool) {
	s := m.shardFor(key)
	s.Lock()
	defer s.Unlock()
	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return v, ok
}

// Count sums the shard sizes. Concurrent writers may make it stale.
func (m *Map[K, V]) Count() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.RLock()
		n += len(s.items)
		s.RUnlock()
	}
	return n
}

// Clear empties every shard and returns the values it held.
func (m *Map[K, V]) Clear() []V {
	var out []V
	for i := range m.shards {
		s := &m.shards[i]
		s.Lock()
		for _, v := range s.items {
			out = append(out, v)
		}
		s.items = make(map[K]V)
		s.Unlock()
	}
	return out
}
