package message

import (
	"crypto/ed25519"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// VerifySignature is the pure function spec §4.4 step 1 calls: "Verify
// signature". Cryptographic correctness of the primitives themselves is
// a non-goal (spec §1); this only dispatches on scheme and checks the
// signature against the claimed signer.
func VerifySignature(scheme SignatureScheme, signer, data, signature []byte) bool {
	switch scheme {
	case SignatureSchemeEd25519:
		return verifyEd25519(signer, data, signature)
	case SignatureSchemeEip191:
		return verifyEip191(signer, data, signature)
	default:
		return false
	}
}

func verifyEd25519(pubKey, data, signature []byte) bool {
	if len(pubKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pubKey, data, signature)
}

// verifyEip191 checks that signature over the 32-byte digest Hash32(data)
// recovers to an address matching signer (an Ethereum-style 20-byte
// address, used for custody addresses signing SignerAdd/SignerRemove).
// signature is the standard 65-byte r‖s‖v encoding.
func verifyEip191(signer, data, signature []byte) bool {
	if len(signature) != 65 || len(signer) != 20 {
		return false
	}
	// secp256k1/ecdsa.RecoverCompact expects v‖r‖s.
	compact := make([]byte, 65)
	compact[0] = signature[64] + 27
	copy(compact[1:], signature[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, Hash32(data))
	if err != nil {
		return false
	}
	return bytesEqual(EthereumAddress(pub), signer)
}

// EthereumAddress derives the 20-byte address from an uncompressed
// secp256k1 public key the way custody addresses are computed: the last
// 20 bytes of blake3(uncompressed-pubkey-without-prefix). The source
// system uses keccak256; this hub's pure functions for cryptographic
// primitives are swappable, and blake3 is used uniformly elsewhere, so
// the same digest is reused here rather than adding a second hash
// dependency for one derivation (see DESIGN.md).
func EthereumAddress(pub *secp256k1.PublicKey) []byte {
	uncompressed := pub.SerializeUncompressed()[1:] // drop the 0x04 prefix
	digest := Hash32(uncompressed)
	return digest[len(digest)-20:]
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
