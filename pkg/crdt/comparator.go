// Package crdt implements the single comparator shared by every typed
// store (spec §4.2 step 4, reused per §4.3 "same comparator and merge
// skeleton"), and the win/no-op decision table built on top of it.
//
// Grounded in the same last-writer-wins-with-deterministic-tiebreak
// shape as the CRDT resolver pattern in the example pack (compare by
// logical clock/timestamp, then a deterministic secondary key on ties),
// generalized here to farcaster timestamp + remove-beats-add + hash
// tiebreak instead of vector clocks.
package crdt

import "github.com/meridianhub/hub/pkg/message"

// Entry is the minimal shape the comparator needs from a stored or
// candidate message: its timestamp, hash (for tiebreak) and whether it
// is the Remove half of its type pair.
type Entry struct {
	Timestamp uint32
	Hash      []byte
	IsRemove  bool
}

func EntryOf(m *message.Message) Entry {
	return Entry{Timestamp: m.Timestamp, Hash: m.Hash, IsRemove: m.Type.IsRemove()}
}

// Compare implements spec §4.2 step 4 exactly:
//  1. Higher timestamp wins.
//  2. Equal timestamp, Remove beats Add.
//  3. Equal timestamp and polarity: greater hash (bytewise) wins.
// Returns >0 if x beats y, <0 if y beats x, 0 if indistinguishable
// (only possible for two identical entries).
func Compare(x, y Entry) int {
	if x.Timestamp != y.Timestamp {
		if x.Timestamp > y.Timestamp {
			return 1
		}
		return -1
	}
	if x.IsRemove != y.IsRemove {
		if x.IsRemove {
			return 1
		}
		return -1
	}
	return compareBytes(x.Hash, y.Hash)
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] > b[i] {
				return 1
			}
			return -1
		}
	}
	switch {
	case len(a) > len(b):
		return 1
	case len(a) < len(b):
		return -1
	default:
		return 0
	}
}

// Wins decides, per spec §4.2 step 3, whether candidate beats the
// existing add/remove pair at a target. existingAdd/existingRemove may
// individually be nil if absent.
//
//  a. If a remove exists: candidate wins iff Compare(candidate, remove) > 0.
//     (A later Add beats an earlier Remove as much as a later Remove beats
//     an earlier one — spec's step 3a covers both polarities identically
//     once Compare already encodes "remove beats add at a tie".)
//  b. Else if an add exists (candidate of either polarity): wins iff
//     Compare(candidate, add) > 0.
//  c. Else (nothing exists yet): candidate always wins.
func Wins(candidate Entry, existingAdd, existingRemove *Entry) bool {
	if existingRemove != nil {
		return Compare(candidate, *existingRemove) > 0
	}
	if existingAdd != nil {
		return Compare(candidate, *existingAdd) > 0
	}
	return true
}
