package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func cloneInt(v int) int { return v }

func TestTransactionReadsFallThroughToBase(t *testing.T) {
	base := map[string]int{"a": 1}
	txn := NewTransaction(base, cloneInt)

	v, ok := txn.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = txn.Get("missing")
	require.False(t, ok)
}

func TestTransactionMutateDoesNotTouchBaseBeforeCommit(t *testing.T) {
	base := map[string]int{"a": 1}
	txn := NewTransaction(base, cloneInt)

	ok := txn.Mutate("a", func(v *int) { *v = 42 })
	require.True(t, ok)

	require.Equal(t, 1, base["a"], "base must be untouched until Commit")
	v, _ := txn.Get("a")
	require.Equal(t, 42, v)
}

func TestTransactionMutateUnknownKeyFails(t *testing.T) {
	base := map[string]int{}
	txn := NewTransaction(base, cloneInt)

	ok := txn.Mutate("missing", func(v *int) { *v = 1 })
	require.False(t, ok)
}

func TestTransactionCommitAppliesOverlay(t *testing.T) {
	base := map[string]int{"a": 1}
	txn := NewTransaction(base, cloneInt)

	txn.Mutate("a", func(v *int) { *v = 42 })
	txn.Insert("b", 7)
	txn.Commit()

	require.Equal(t, 42, base["a"])
	require.Equal(t, 7, base["b"])
}

func TestTransactionDroppedWithoutCommitLeavesBaseUntouched(t *testing.T) {
	base := map[string]int{"a": 1}
	txn := NewTransaction(base, cloneInt)

	txn.Insert("b", 99)
	txn.Mutate("a", func(v *int) { *v = 5 })

	require.Equal(t, map[string]int{"a": 1}, base)
}

func TestTransactionCloneIsolatesMutationFromConcurrentReference(t *testing.T) {
	type holder struct{ vals []int }
	cloneHolder := func(h holder) holder {
		return holder{vals: append([]int(nil), h.vals...)}
	}

	base := map[string]holder{"a": {vals: []int{1, 2, 3}}}
	txn := NewTransaction(base, cloneHolder)

	txn.Mutate("a", func(h *holder) { h.vals[0] = 99 })

	require.Equal(t, 1, base["a"].vals[0], "mutating the overlay's clone must not alias the base's slice")
}
