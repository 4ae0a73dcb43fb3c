package message

// IdRegistryEventType distinguishes the two on-chain events the identity
// store ingests (spec §3).
type IdRegistryEventType uint8

const (
	IdRegistryRegister IdRegistryEventType = iota
	IdRegistryTransfer
)

// IdRegistryEvent mirrors spec §3's field list exactly. Ordered by
// (BlockNumber, LogIndex); From is nil for Register.
type IdRegistryEvent struct {
	Type            IdRegistryEventType
	BlockNumber     uint64
	LogIndex        uint64
	BlockHash       []byte
	TransactionHash []byte
	Fid             []byte
	From            []byte // nil for Register
	To              []byte
}

// Order returns the (blockNumber, logIndex) pair events are compared on.
func (e *IdRegistryEvent) Order() (uint64, uint64) { return e.BlockNumber, e.LogIndex }

// CompareOrder implements the lexicographic (blockNumber, logIndex)
// comparison spec §4.1 step 2 requires: negative if e < o, zero if
// equal, positive if e > o.
func (e *IdRegistryEvent) CompareOrder(o *IdRegistryEvent) int {
	if e.BlockNumber != o.BlockNumber {
		if e.BlockNumber < o.BlockNumber {
			return -1
		}
		return 1
	}
	if e.LogIndex != o.LogIndex {
		if e.LogIndex < o.LogIndex {
			return -1
		}
		return 1
	}
	return 0
}

// SameIdentity reports whether e and o, already known to have equal
// order, also agree on blockHash and transactionHash — the check spec
// §4.1 step 2 uses to detect a chain inconsistency ("conflict") versus a
// harmless duplicate delivery of the identical event.
func (e *IdRegistryEvent) SameIdentity(o *IdRegistryEvent) bool {
	return bytesEqual(e.BlockHash, o.BlockHash) && bytesEqual(e.TransactionHash, o.TransactionHash)
}
