package vault

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/keyvault-go/internal/core/domain"
)

// collect walks user's sequence via Next or Prev.
func collect(v *Vault, user int, dir Direction) []Pair {
	var out []Pair
	for n := v.Start(user, dir); n != nil; n = v.Step(user, n, dir) {
		out = append(out, n.Pair())
	}
	return out
}

func reversed(p []Pair) []Pair {
	out := slices.Clone(p)
	slices.Reverse(out)
	return out
}

// requireSame treats nil and empty slices as equal.
func requireSame[T comparable](t *testing.T, want, got []T, msgAndArgs ...any) {
	t.Helper()
	if len(want) == 0 && len(got) == 0 {
		return
	}
	require.Equal(t, want, got, msgAndArgs...)
}

func TestSequencer_Boundaries(t *testing.T) {
	v, err := New(2)
	require.NoError(t, err)

	assert.Nil(t, v.First(1))
	assert.Nil(t, v.Last(1))
	assert.Nil(t, v.Next(1, nil))
	assert.Nil(t, v.Prev(1, nil))

	require.NoError(t, v.Insert(1, "a", "1"))
	require.NoError(t, v.Insert(1, "a", "2"))
	require.NoError(t, v.Insert(1, "b", "3"))
	require.NoError(t, v.Insert(1, "c", "4"))
	require.NoError(t, v.Insert(1, "c", "5"))

	first := v.First(1)
	assert.Equal(t, Pair{Key: "a", Value: "1"}, first.Pair())
	assert.Nil(t, v.Prev(1, first))

	last := v.Last(1)
	assert.Equal(t, Pair{Key: "c", Value: "5"}, last.Pair())
	assert.Nil(t, v.Next(1, last))

	// Chain end hops to the next slot's head.
	a2 := v.FindPair(1, "a", "2")
	assert.Equal(t, "b", v.Next(1, a2).Key())

	// Chain head hops back to the previous slot's tail.
	c4 := v.FindPair(1, "c", "4")
	assert.Equal(t, Pair{Key: "b", Value: "3"}, v.Prev(1, c4).Pair())
	b3 := v.FindPair(1, "b", "3")
	assert.Equal(t, Pair{Key: "a", Value: "2"}, v.Prev(1, b3).Pair())

	assert.Equal(t, pairsOf("a", "1", "a", "2", "b", "3", "c", "4", "c", "5"), collect(v, 1, Forward))
	assert.Empty(t, collect(v, 2, Forward))
}

func TestSequencer_Dump(t *testing.T) {
	v, err := New(3)
	require.NoError(t, err)

	require.NoError(t, v.Insert(1, "x", "1"))
	require.NoError(t, v.Insert(1, "y", "2"))
	require.NoError(t, v.Insert(3, "z", "3"))
	require.NoError(t, v.Insert(3, "z", "4"))

	forward := v.Dump(Forward)
	require.Len(t, forward, 2)
	assert.Equal(t, UserPairs{User: 1, Pairs: pairsOf("x", "1", "y", "2")}, forward[0])
	assert.Equal(t, UserPairs{User: 3, Pairs: pairsOf("z", "3", "z", "4")}, forward[1])

	reverse := v.Dump(Reverse)
	require.Len(t, reverse, 2)
	assert.Equal(t, UserPairs{User: 3, Pairs: pairsOf("z", "4", "z", "3")}, reverse[0])
	assert.Equal(t, UserPairs{User: 1, Pairs: pairsOf("y", "2", "x", "1")}, reverse[1])

	ranged := v.DumpRange(2, 9, Reverse)
	require.Len(t, ranged, 1)
	assert.Equal(t, 3, ranged[0].User)

	assert.Empty(t, v.DumpRange(3, 2, Forward))
}

func TestSequencer_Walk(t *testing.T) {
	v, err := New(1)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, v.Insert(1, fmt.Sprintf("k%d", i), "v"))
	}

	var seen []string
	v.Walk(1, Forward, func(p Pair) bool {
		seen = append(seen, p.Key)
		return len(seen) < 3
	})
	assert.Equal(t, []string{"k0", "k1", "k2"}, seen)
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
	}{
		{"", Forward},
		{"forward", Forward},
		{"REVERSE", Reverse},
		{"rev", Reverse},
		{"sideways", Forward},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseDirection(tt.in), tt.in)
	}
	assert.Equal(t, "reverse", Reverse.String())
	assert.Equal(t, "forward", Forward.String())
}

// model is a reference map-of-slices rendition of one user's directory.
type model struct {
	order  []string
	values map[string][]string
	max    int
}

func (m *model) insert(k, val string) error {
	if _, ok := m.values[k]; !ok {
		if len(m.order) == m.max {
			return domain.ErrCapacityExceeded
		}
		m.order = append(m.order, k)
	}
	m.values[k] = append(m.values[k], val)
	return nil
}

func (m *model) delete(k, val string) bool {
	vals, ok := m.values[k]
	if !ok {
		return false
	}
	i := slices.Index(vals, val)
	if i < 0 {
		return false
	}
	vals = slices.Delete(vals, i, i+1)
	if len(vals) == 0 {
		delete(m.values, k)
		m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == k })
		return true
	}
	m.values[k] = vals
	return true
}

func (m *model) flatten() []Pair {
	var out []Pair
	for _, k := range m.order {
		for _, val := range m.values[k] {
			out = append(out, Pair{Key: k, Value: val})
		}
	}
	return out
}

func TestSequencer_RandomizedAgainstModel(t *testing.T) {
	const (
		users  = 3
		rounds = 2000
	)
	lim := Limits{KeySize: 8, ValueSize: 8, MaxKeys: 5}
	v, err := New(users, WithLimits(lim))
	require.NoError(t, err)

	models := make([]*model, users)
	for i := range models {
		models[i] = &model{values: map[string][]string{}, max: lim.MaxKeys}
	}

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < rounds; round++ {
		user := rng.Intn(users) + 1
		m := models[user-1]
		k := fmt.Sprintf("k%d", rng.Intn(8))
		val := fmt.Sprintf("v%d", rng.Intn(4))

		if rng.Intn(10) < 6 {
			wantErr := m.insert(k, val)
			gotErr := v.Insert(user, k, val)
			if wantErr != nil {
				require.ErrorIs(t, gotErr, wantErr, "round %d", round)
			} else {
				require.NoError(t, gotErr, "round %d", round)
			}
		} else {
			want := m.delete(k, val)
			got, err := v.Delete(user, k, val)
			require.NoError(t, err)
			require.Equal(t, want, got, "round %d delete %s=%s", round, k, val)
		}

		requireNoHoles(t, v)

		forward := collect(v, user, Forward)
		requireSame(t, m.flatten(), forward, "round %d forward", round)
		requireSame(t, reversed(forward), collect(v, user, Reverse), "round %d reverse", round)

		keys, _ := v.KeyCount(user)
		require.Equal(t, len(m.order), keys)
		requireSame(t, m.order, v.Keys(user), "round %d keys", round)
	}
}
