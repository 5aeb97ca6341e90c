package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_AppendAndUnlink(t *testing.T) {
	head := newChain(Pair{Key: "k", Value: "1"})
	assert.Nil(t, head.next)
	assert.Nil(t, head.prev)

	mid := appendTail(head, Pair{Key: "k", Value: "2"})
	tail := appendTail(head, Pair{Key: "k", Value: "3"})

	require.Equal(t, 3, chainLen(head))
	assert.Same(t, tail, head.last())
	assert.Same(t, mid, tail.prev)
	assert.Same(t, head, mid.prev)

	unlink(mid)
	assert.True(t, mid.Detached())
	assert.Same(t, tail, head.next)
	assert.Same(t, head, tail.prev)
	assert.Equal(t, 2, chainLen(head))

	unlink(tail)
	assert.Nil(t, head.next)
	assert.Equal(t, 1, chainLen(head))
}

func TestChain_Release(t *testing.T) {
	head := newChain(Pair{Key: "k", Value: "1"})
	second := appendTail(head, Pair{Key: "k", Value: "2"})

	assert.Equal(t, 2, release(head))
	assert.True(t, head.Detached())
	assert.True(t, second.Detached())
	assert.Nil(t, second.prev)
}

func TestLimits_NewPair(t *testing.T) {
	lim := Limits{KeySize: 3, ValueSize: 2, MaxKeys: 1}
	p := lim.NewPair("abcdef", "xyz")
	assert.Equal(t, Pair{Key: "abc", Value: "xy"}, p)
	assert.Equal(t, "abc xy", p.String())

	// Exactly at capacity stays intact.
	assert.Equal(t, Pair{Key: "abc", Value: "xy"}, lim.NewPair("abc", "xy"))
}

func TestBudget(t *testing.T) {
	b := NewBudget(1)
	require.NoError(t, b.Acquire(ResourceNode, 1))
	require.Error(t, b.Acquire(ResourceNode, 1))
	require.NoError(t, b.Acquire(ResourceSlots, 100))
	b.Release(ResourceNode, 1)
	assert.Equal(t, 0, b.InUse())
	b.Release(ResourceNode, 5)
	assert.Equal(t, 0, b.InUse())

	unlimited := NewBudget(0)
	for i := 0; i < 1000; i++ {
		require.NoError(t, unlimited.Acquire(ResourceNode, 1))
	}
}
