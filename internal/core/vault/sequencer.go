package vault

import "strings"

// Direction selects a traversal order.
type Direction int

const (
	// Forward walks slot 0's head to the last slot's tail.
	Forward Direction = iota
	// Reverse walks the last slot's tail back to slot 0's head.
	Reverse
)

// String returns "forward" or "reverse".
func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// ParseDirection parses "forward" or "reverse" (case-insensitive).
// Anything else, including the empty string, is Forward.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, "reverse") || strings.EqualFold(s, "rev") {
		return Reverse
	}
	return Forward
}

// First returns the first pair of user's sequence, or nil.
func (v *Vault) First(user int) *Node {
	d, err := v.directory(user)
	if err != nil || len(d.slots) == 0 {
		return nil
	}
	return d.slots[0]
}

// Last returns the last pair of user's sequence, or nil.
func (v *Vault) Last(user int) *Node {
	d, err := v.directory(user)
	if err != nil || len(d.slots) == 0 {
		return nil
	}
	return d.slots[len(d.slots)-1].last()
}

// Next returns the pair after n in user's sequence: the chain successor,
// else the head of the following slot. It returns nil at the end.
func (v *Vault) Next(user int, n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.next != nil {
		return n.next
	}
	d, err := v.directory(user)
	if err != nil {
		return nil
	}
	i := d.index(n.pair.Key)
	if i < 0 || i == len(d.slots)-1 {
		return nil
	}
	return d.slots[i+1]
}

// Prev returns the pair before n in user's sequence: the chain
// predecessor, else the tail of the preceding slot. It returns nil at the
// start.
func (v *Vault) Prev(user int, n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.prev != nil {
		return n.prev
	}
	d, err := v.directory(user)
	if err != nil {
		return nil
	}
	i := d.index(n.pair.Key)
	if i <= 0 {
		return nil
	}
	return d.slots[i-1].last()
}

// Step moves one pair in the given direction.
func (v *Vault) Step(user int, n *Node, dir Direction) *Node {
	if dir == Reverse {
		return v.Prev(user, n)
	}
	return v.Next(user, n)
}

// Start returns where a traversal in dir begins for user.
func (v *Vault) Start(user int, dir Direction) *Node {
	if dir == Reverse {
		return v.Last(user)
	}
	return v.First(user)
}

// Walk calls fn for each of user's pairs in dir order until fn returns
// false.
func (v *Vault) Walk(user int, dir Direction, fn func(Pair) bool) {
	for n := v.Start(user, dir); n != nil; n = v.Step(user, n, dir) {
		if !fn(n.pair) {
			return
		}
	}
}

// UserPairs is one user's section of a dump.
type UserPairs struct {
	User  int    `json:"user" yaml:"user"`
	Pairs []Pair `json:"pairs" yaml:"pairs"`
}

// Dump returns every user's pairs. Forward visits users in ascending
// order, Reverse in descending order. Users with no keys are skipped.
func (v *Vault) Dump(dir Direction) []UserPairs {
	return v.DumpRange(1, len(v.users), dir)
}

// DumpRange is Dump restricted to users [from, to], clamped to the
// vault's users.
func (v *Vault) DumpRange(from, to int, dir Direction) []UserPairs {
	from = max(from, 1)
	to = min(to, len(v.users))
	if from > to {
		return nil
	}

	out := make([]UserPairs, 0, to-from+1)
	for u := from; u <= to; u++ {
		user := u
		if dir == Reverse {
			user = to - (u - from)
		}
		if v.users[user-1].numKeys() == 0 {
			continue
		}
		section := UserPairs{User: user}
		v.Walk(user, dir, func(p Pair) bool {
			section.Pairs = append(section.Pairs, p)
			return true
		})
		out = append(out, section)
	}
	return out
}
