package vault

// Node is one pair in a value chain. The forward edge owns the successor;
// the back edge is a plain reference to the predecessor.
type Node struct {
	pair     Pair
	next     *Node
	prev     *Node
	detached bool
}

// Pair returns the node's payload.
func (n *Node) Pair() Pair {
	return n.pair
}

// Key returns the node's key.
func (n *Node) Key() string {
	return n.pair.Key
}

// Value returns the node's value.
func (n *Node) Value() string {
	return n.pair.Value
}

// Detached reports whether the node has been removed from its vault.
// Cursors held across a deletion use this to notice they went stale.
func (n *Node) Detached() bool {
	return n.detached
}

// newChain creates a one-node chain.
func newChain(p Pair) *Node {
	return &Node{pair: p}
}

// last walks to the chain's tail.
func (n *Node) last() *Node {
	for n.next != nil {
		n = n.next
	}
	return n
}

// appendTail links a new node holding p after the last node of the chain
// starting at head, and returns it.
func appendTail(head *Node, p Pair) *Node {
	tail := head.last()
	n := &Node{pair: p, prev: tail}
	tail.next = n
	return n
}

// unlink splices n out of its chain. Either neighbour may be nil.
func unlink(n *Node) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	n.next = nil
	n.prev = nil
	n.detached = true
}

// chainLen counts the nodes from head to tail.
func chainLen(head *Node) int {
	c := 0
	for n := head; n != nil; n = n.next {
		c++
	}
	return c
}

// release detaches every node of the chain and returns how many there were.
func release(head *Node) int {
	c := 0
	for n := head; n != nil; {
		next := n.next
		n.next = nil
		n.prev = nil
		n.detached = true
		n = next
		c++
	}
	return c
}
