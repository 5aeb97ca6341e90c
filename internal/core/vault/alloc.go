package vault

import (
	"fmt"
	"sync"
)

// Resource names a kind of backing storage requested by the vault.
type Resource int

const (
	// ResourceDirectories is the per-user directory array, sized num_users.
	ResourceDirectories Resource = iota
	// ResourceSlots is one user's key-slot array, sized MaxKeys.
	ResourceSlots
	// ResourceNode is a single value-chain node.
	ResourceNode
)

// String returns the resource name.
func (r Resource) String() string {
	switch r {
	case ResourceDirectories:
		return "directories"
	case ResourceSlots:
		return "slots"
	case ResourceNode:
		return "node"
	default:
		return fmt.Sprintf("resource(%d)", int(r))
	}
}

// Allocator grants backing storage to a Vault. Acquire returning an error
// is reported to callers as domain.ErrAllocation.
type Allocator interface {
	Acquire(r Resource, n int) error
	Release(r Resource, n int)
}

// heapAllocator never refuses a request.
type heapAllocator struct{}

func (heapAllocator) Acquire(Resource, int) error { return nil }
func (heapAllocator) Release(Resource, int)       {}

// Budget is an Allocator that caps the number of live value-chain nodes.
// Directory and slot requests are always granted.
type Budget struct {
	mu    sync.Mutex
	limit int
	used  int
}

// NewBudget returns a Budget allowing at most limit live nodes.
// A non-positive limit means no cap.
func NewBudget(limit int) *Budget {
	return &Budget{limit: limit}
}

// Acquire implements Allocator.
func (b *Budget) Acquire(r Resource, n int) error {
	if r != ResourceNode {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limit > 0 && b.used+n > b.limit {
		return fmt.Errorf("node budget exhausted: %d of %d in use", b.used, b.limit)
	}
	b.used += n
	return nil
}

// Release implements Allocator.
func (b *Budget) Release(r Resource, n int) {
	if r != ResourceNode {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.used -= n
	if b.used < 0 {
		b.used = 0
	}
}

// InUse returns the number of live nodes charged to the budget.
func (b *Budget) InUse() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}
