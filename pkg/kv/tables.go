package kv

// Table name constants, laid out the way the teacher's erigon-lib/kv
// table registry documents key/value shapes inline as comments next to
// each constant (see erigon-lib/kv/tables.go DBSchemaVersion block).
//
// Per spec §6, a single RootPrefix byte discriminates tables; here each
// table is simply its own named bucket in the backend (memdb/mdbx both
// support arbitrarily many named tables), which is the direct analogue.

const (
	// IdRegistryEvent: fid -> current IdRegistryEvent bytes.
	IdRegistryEvent = "IdRegistryEvent"

	// IdRegistryEventByCustodyAddress: custody address -> current event
	// bytes, for the secondary "who holds custody" lookup.
	IdRegistryEventByCustodyAddress = "IdRegistryEventByCustodyAddress"

	// IdRegistrySuperseded: fid + blockNumber(8BE) + logIndex(8BE) ->
	// event bytes. Retained for audit per spec §3 but never indexed as
	// current.
	IdRegistrySuperseded = "IdRegistrySuperseded"

	// UserXxxMessage: fid(variable) + tsHash(24) -> message bytes.
	// One table per UserPostfix keeps cursor prefix-scans cheap instead
	// of multiplexing postfixes inside a single table, following the
	// teacher's one-table-per-concern convention.
	UserSignerMessage       = "UserSignerMessage"
	UserCastMessage         = "UserCastMessage"
	UserReactionMessage     = "UserReactionMessage"
	UserAmpMessage          = "UserAmpMessage"
	UserVerificationMessage = "UserVerificationMessage"
	UserDataMessage         = "UserDataMessage"

	// UserXxxBySigner: fid + signer + tsHash -> empty. Secondary index
	// used by revokeMessagesBySigner; one per store to avoid needing a
	// type tag inside the key.
	UserSignerMessageBySigner       = "UserSignerMessageBySigner"
	UserCastMessageBySigner         = "UserCastMessageBySigner"
	UserReactionMessageBySigner     = "UserReactionMessageBySigner"
	UserAmpMessageBySigner          = "UserAmpMessageBySigner"
	UserVerificationMessageBySigner = "UserVerificationMessageBySigner"
	UserDataMessageBySigner         = "UserDataMessageBySigner"

	// UserXxxByTarget: fid + target -> tsHash of the current winning Add
	// (AddByTarget) or Remove (RemoveByTarget); absent when that side has
	// no winner at the target. One per store; this is the
	// lookup spec §4.2 calls "existing add a" / "existing remove r".
	UserSignerAddByTarget       = "UserSignerAddByTarget"
	UserSignerRemoveByTarget    = "UserSignerRemoveByTarget"
	UserCastAddByTarget         = "UserCastAddByTarget"
	UserCastRemoveByTarget      = "UserCastRemoveByTarget"
	UserReactionAddByTarget     = "UserReactionAddByTarget"
	UserReactionRemoveByTarget  = "UserReactionRemoveByTarget"
	UserAmpAddByTarget          = "UserAmpAddByTarget"
	UserAmpRemoveByTarget       = "UserAmpRemoveByTarget"
	UserVerificationAddByTarget = "UserVerificationAddByTarget"
	UserVerificationRmByTarget  = "UserVerificationRmByTarget"
	UserDataAddByTarget         = "UserDataAddByTarget"

	// TrieNode: sync-id prefix (hex digits, as ASCII bytes '0'-'f') ->
	// encoded trie node metadata. Mirrors the merkle trie snapshot
	// structure of spec §4.5.
	TrieNode = "TrieNode"
)

// AllTables lists every table a backend must create on open. Kept as a
// slice (rather than discovered via reflection) so a new table is a
// one-line, reviewable addition — same spirit as erigon-lib's explicit
// ChaindataTables registry.
var AllTables = []string{
	IdRegistryEvent,
	IdRegistryEventByCustodyAddress,
	IdRegistrySuperseded,
	UserSignerMessage,
	UserCastMessage,
	UserReactionMessage,
	UserAmpMessage,
	UserVerificationMessage,
	UserDataMessage,
	UserSignerMessageBySigner,
	UserCastMessageBySigner,
	UserReactionMessageBySigner,
	UserAmpMessageBySigner,
	UserVerificationMessageBySigner,
	UserDataMessageBySigner,
	UserSignerAddByTarget,
	UserSignerRemoveByTarget,
	UserCastAddByTarget,
	UserCastRemoveByTarget,
	UserReactionAddByTarget,
	UserReactionRemoveByTarget,
	UserAmpAddByTarget,
	UserAmpRemoveByTarget,
	UserVerificationAddByTarget,
	UserVerificationRmByTarget,
	UserDataAddByTarget,
	TrieNode,
}
