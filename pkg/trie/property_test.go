package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// genSyncIDs draws a small set of distinct sync-ids from random
// timestamp/tag pairs.
func genSyncIDs(t *rapid.T) []SyncID {
	n := rapid.IntRange(1, 20).Draw(t, "n")
	seen := map[SyncID]bool{}
	var out []SyncID
	for i := 0; i < n; i++ {
		ts := uint32(rapid.IntRange(1665000000, 1665999999).Draw(t, "ts"))
		tag := byte(rapid.IntRange(0, 255).Draw(t, "tag"))
		id := syncIDFor(ts, tag)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// TestPropertyInsertOrderIndependent generalizes TestOrderIndependence:
// for any set of sync-ids, inserting them in any two orders produces the
// same root hash (spec §4.5 invariant 2/3).
func TestPropertyInsertOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := genSyncIDs(t)
		perm := rapid.Permutation(ids).Draw(t, "perm")

		tr1, tr2 := New(), New()
		for _, id := range ids {
			require.NoError(t, tr1.Insert(id))
		}
		for _, id := range perm {
			require.NoError(t, tr2.Insert(id))
		}
		require.Equal(t, tr1.RootHash(), tr2.RootHash())
		require.Equal(t, tr1.Len(), tr2.Len())
	})
}

// TestPropertyInsertIsIdempotent: re-inserting an already-present sync-id
// never changes the root hash or count (spec §4.5 invariant 4).
func TestPropertyInsertIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := genSyncIDs(t)
		tr := New()
		for _, id := range ids {
			require.NoError(t, tr.Insert(id))
		}
		before := tr.RootHash()
		beforeLen := tr.Len()

		replay := rapid.SampledFrom(ids).Draw(t, "replay")
		require.NoError(t, tr.Insert(replay))

		require.Equal(t, before, tr.RootHash())
		require.Equal(t, beforeLen, tr.Len())
	})
}

// TestPropertyDeleteThenInsertRestores: deleting and reinserting the
// same sync-id returns the trie to its original root hash.
func TestPropertyDeleteThenInsertRestores(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := genSyncIDs(t)
		tr := New()
		for _, id := range ids {
			require.NoError(t, tr.Insert(id))
		}
		before := tr.RootHash()

		victim := rapid.SampledFrom(ids).Draw(t, "victim")
		require.NoError(t, tr.Delete(victim))
		require.NoError(t, tr.Insert(victim))

		require.Equal(t, before, tr.RootHash())
	})
}
