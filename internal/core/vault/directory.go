package vault

import (
	"slices"

	"github.com/yndnr/keyvault-go/internal/core/domain"
)

// directory is one user's ordered set of chain heads. len(slots) is the
// number of distinct keys; the slice itself is the no-holes invariant.
type directory struct {
	slots      []*Node
	totalPairs int
}

// numKeys returns the number of populated slots.
func (d *directory) numKeys() int {
	return len(d.slots)
}

// index returns the slot holding key, or -1.
func (d *directory) index(key string) int {
	for i, head := range d.slots {
		if head.pair.Key == key {
			return i
		}
	}
	return -1
}

// insert appends p to the chain for its key, or opens a new slot.
// On error nothing observable has changed.
func (d *directory) insert(p Pair, lim Limits, alloc Allocator) (*Node, error) {
	fresh := d.slots == nil
	if fresh {
		if err := alloc.Acquire(ResourceSlots, lim.MaxKeys); err != nil {
			return nil, domain.ErrAllocation.WithCause(err)
		}
		d.slots = make([]*Node, 0, lim.MaxKeys)
	}

	i := d.index(p.Key)
	if i < 0 && len(d.slots) >= lim.MaxKeys {
		return nil, domain.ErrCapacityExceeded
	}

	if err := alloc.Acquire(ResourceNode, 1); err != nil {
		if fresh {
			alloc.Release(ResourceSlots, lim.MaxKeys)
			d.slots = nil
		}
		return nil, domain.ErrAllocation.WithCause(err)
	}

	var n *Node
	if i >= 0 {
		n = appendTail(d.slots[i], p)
	} else {
		n = newChain(p)
		d.slots = append(d.slots, n)
	}

	// Cumulative: remove never decrements it.
	d.totalPairs++
	return n, nil
}

// find returns the first node for key whose value equals value.
func (d *directory) find(key, value string) *Node {
	i := d.index(key)
	if i < 0 {
		return nil
	}
	for n := d.slots[i]; n != nil; n = n.next {
		if n.pair.Value == value {
			return n
		}
	}
	return nil
}

// remove splices n out and compacts the slots if its chain became empty.
// It reports false if n does not belong to this directory.
func (d *directory) remove(n *Node) bool {
	if n == nil || n.detached {
		return false
	}
	i := d.index(n.pair.Key)
	if i < 0 || !d.owns(i, n) {
		return false
	}

	if d.slots[i] == n {
		if n.next == nil {
			// slices.Delete shifts left and zeroes the vacated tail slot.
			d.slots = slices.Delete(d.slots, i, i+1)
		} else {
			d.slots[i] = n.next
		}
	}
	unlink(n)
	return true
}

// owns reports whether n is reachable from slot i.
func (d *directory) owns(i int, n *Node) bool {
	for c := d.slots[i]; c != nil; c = c.next {
		if c == n {
			return true
		}
	}
	return false
}

// values returns every value of key's chain in insertion order.
func (d *directory) values(key string) []string {
	i := d.index(key)
	if i < 0 {
		return nil
	}
	out := make([]string, 0, chainLen(d.slots[i]))
	for n := d.slots[i]; n != nil; n = n.next {
		out = append(out, n.pair.Value)
	}
	return out
}

// clear releases every chain and the slot array.
func (d *directory) clear(lim Limits, alloc Allocator) {
	if d.slots == nil {
		return
	}
	for _, head := range d.slots {
		alloc.Release(ResourceNode, release(head))
	}
	alloc.Release(ResourceSlots, lim.MaxKeys)
	d.slots = nil
	d.totalPairs = 0
}
