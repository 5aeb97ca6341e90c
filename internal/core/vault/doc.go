// Package vault implements the in-memory, per-user, multi-valued key store.
//
// Each user owns a bounded directory of unique keys. Each key owns an
// ordered chain of values, in the order the values were inserted:
//
//	Vault
//	  └── directory (one per user, at most MaxKeys slots, no holes)
//	        └── chain (doubly-linked nodes sharing one key)
//
// The sequencer (Next, Prev, First, Last, Dump) flattens a user's pairs
// into one total order: directory slot first, chain position second.
//
// Thread Safety:
//
// A Vault is not safe for concurrent use. Callers establish mutual
// exclusion for the duration of each logical operation; see
// internal/core/service.Device for the locking transport.
package vault
