package vault

import (
	"github.com/yndnr/keyvault-go/internal/core/domain"
)

// Vault holds one directory per user. User ordinals are 1-indexed at the
// API and 0-indexed internally. The zero Vault has no users; every
// user-addressed call on it fails with domain.ErrInvalidUser.
type Vault struct {
	users  []directory
	limits Limits
	alloc  Allocator
}

// Option configures a Vault.
type Option func(*Vault)

// WithLimits sets the key, value and per-user key capacities.
func WithLimits(l Limits) Option {
	return func(v *Vault) {
		v.limits = l
	}
}

// WithAllocator sets the allocator charged for directories, slots and nodes.
func WithAllocator(a Allocator) Option {
	return func(v *Vault) {
		if a != nil {
			v.alloc = a
		}
	}
}

// New creates a vault for numUsers users. It fails with
// domain.ErrAllocation when storage cannot be obtained, and with
// domain.ErrInvalidArgument for a non-positive user count or capacity.
func New(numUsers int, opts ...Option) (*Vault, error) {
	v := &Vault{
		limits: DefaultLimits(),
		alloc:  heapAllocator{},
	}
	for _, opt := range opts {
		opt(v)
	}

	if !v.limits.valid() {
		return nil, domain.ErrInvalidArgument.WithDetails("capacities must be positive")
	}
	if numUsers < 1 {
		return nil, domain.ErrInvalidArgument.WithDetails("user count must be positive")
	}
	if err := v.alloc.Acquire(ResourceDirectories, numUsers); err != nil {
		return nil, domain.ErrAllocation.WithCause(err)
	}

	v.users = make([]directory, numUsers)
	return v, nil
}

// Close releases every node of every directory, then the directories.
// It is safe to call more than once.
func (v *Vault) Close() {
	if v.users == nil {
		return
	}
	for i := range v.users {
		v.users[i].clear(v.limits, v.alloc)
	}
	v.alloc.Release(ResourceDirectories, len(v.users))
	v.users = nil
}

// Users returns the number of users.
func (v *Vault) Users() int {
	return len(v.users)
}

// Limits returns the vault's capacities.
func (v *Vault) Limits() Limits {
	return v.limits
}

// directory resolves a 1-indexed user ordinal.
func (v *Vault) directory(user int) (*directory, error) {
	if user < 1 || user > len(v.users) {
		return nil, domain.ErrInvalidUser
	}
	return &v.users[user-1], nil
}

// KeyCount returns the number of distinct keys held by user.
func (v *Vault) KeyCount(user int) (int, error) {
	d, err := v.directory(user)
	if err != nil {
		return 0, err
	}
	return d.numKeys(), nil
}

// PairCount returns the number of pairs ever inserted for user.
// Deletions do not lower it.
func (v *Vault) PairCount(user int) (int, error) {
	d, err := v.directory(user)
	if err != nil {
		return 0, err
	}
	return d.totalPairs, nil
}

// RemainingCapacity returns how many more distinct keys user may insert.
func (v *Vault) RemainingCapacity(user int) (int, error) {
	d, err := v.directory(user)
	if err != nil {
		return 0, err
	}
	return v.limits.MaxKeys - d.numKeys(), nil
}

// TotalKeyCount sums KeyCount over all users.
func (v *Vault) TotalKeyCount() int {
	sum := 0
	for i := range v.users {
		sum += v.users[i].numKeys()
	}
	return sum
}

// TotalPairCount sums PairCount over all users.
func (v *Vault) TotalPairCount() int {
	sum := 0
	for i := range v.users {
		sum += v.users[i].totalPairs
	}
	return sum
}

// Insert adds (key, value) for user. A value for an existing key goes to
// the tail of that key's chain; a new key opens a new directory slot.
func (v *Vault) Insert(user int, key, value string) error {
	d, err := v.directory(user)
	if err != nil {
		return err
	}
	_, err = d.insert(v.limits.NewPair(key, value), v.limits, v.alloc)
	return err
}

// Delete removes the first pair matching (key, value). Deleting an absent
// pair is a no-op and reports false.
func (v *Vault) Delete(user int, key, value string) (bool, error) {
	d, err := v.directory(user)
	if err != nil {
		return false, err
	}
	p := v.limits.NewPair(key, value)
	return v.remove(d, d.find(p.Key, p.Value)), nil
}

// Remove deletes exactly the node n, which must belong to user. It reports
// false for nil, detached or foreign nodes.
func (v *Vault) Remove(user int, n *Node) (bool, error) {
	d, err := v.directory(user)
	if err != nil {
		return false, err
	}
	return v.remove(d, n), nil
}

func (v *Vault) remove(d *directory, n *Node) bool {
	if !d.remove(n) {
		return false
	}
	v.alloc.Release(ResourceNode, 1)
	return true
}

// FindKey returns the chain head for key and its slot index. The index is
// -1 and the node nil when the key or the user is absent.
func (v *Vault) FindKey(user int, key string) (*Node, int) {
	d, err := v.directory(user)
	if err != nil {
		return nil, -1
	}
	i := d.index(bound(key, v.limits.KeySize))
	if i < 0 {
		return nil, -1
	}
	return d.slots[i], i
}

// FindPair returns the first node holding (key, value), or nil.
func (v *Vault) FindPair(user int, key, value string) *Node {
	d, err := v.directory(user)
	if err != nil {
		return nil
	}
	p := v.limits.NewPair(key, value)
	return d.find(p.Key, p.Value)
}

// RetrieveValues returns every value stored under key, in insertion order.
// The result is empty when the key is absent.
func (v *Vault) RetrieveValues(user int, key string) []string {
	d, err := v.directory(user)
	if err != nil {
		return nil
	}
	return d.values(bound(key, v.limits.KeySize))
}

// Keys returns user's keys in directory order.
func (v *Vault) Keys(user int) []string {
	d, err := v.directory(user)
	if err != nil {
		return nil
	}
	out := make([]string, len(d.slots))
	for i, head := range d.slots {
		out[i] = head.pair.Key
	}
	return out
}
