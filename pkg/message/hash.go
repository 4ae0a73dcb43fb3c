package message

import "lukechampine.com/blake3"

// Hash32 returns the full 32-byte blake3 digest of data, used for
// EthereumAddress derivation and as the digest EIP-191 signatures cover.
func Hash32(data []byte) []byte {
	h := blake3.Sum256(data)
	return h[:]
}

// HashN returns the first n bytes of blake3(data). Messages use a
// truncated 20-byte digest (HashLen) to keep tsHash compact while still
// being collision-resistant enough for a per-user replica; the merkle
// trie separately hashes its nodes with its own 16-byte blake3 digest.
func HashN(data []byte, n int) []byte {
	h := blake3.Sum256(data)
	return h[:n]
}

// Hash returns blake3(data) truncated to HashLen, the digest stored in
// Message.Hash per spec §3 ("hash = blake3 of data").
func Hash(data []byte) []byte {
	return HashN(data, HashLen)
}
