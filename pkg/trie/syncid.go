package trie

import (
	"encoding/hex"
	"fmt"

	"github.com/meridianhub/hub/pkg/hubcore"
	"github.com/meridianhub/hub/pkg/message"
)

// SyncID is spec §4.5/GLOSSARY's sync-id: the 10-digit decimal farcaster
// timestamp of a message concatenated with the message's tsHash bytes,
// hex-encoded for trie-key purposes. Every character is therefore itself
// a single hex digit (0-9a-f), which is exactly the 16-ary alphabet the
// trie is keyed on — the decimal-timestamp prefix just happens to only
// ever use the 0-9 subset of it.
type SyncID string

// NewSyncID builds the canonical sync-id for a message's farcaster
// timestamp and tsHash.
func NewSyncID(timestamp uint32, ts message.TsHash) SyncID {
	return SyncID(fmt.Sprintf("%010d%s", timestamp, hex.EncodeToString(ts.Bytes())))
}

// path converts id to the trie's digit sequence: one 0-15 value per
// character, in order.
func (id SyncID) path() ([]byte, error) {
	out := make([]byte, len(id))
	for i := 0; i < len(id); i++ {
		v, err := hexVal(id[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func hexVal(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	default:
		return 0, hubcore.Newf(hubcore.CodeInvalidParam, "invalid sync-id character %q", c)
	}
}

// DigitsOf exposes the raw digit path of a literal trie-key prefix (a
// prefix may be shorter than a full sync-id, as in getSnapshot/
// getDivergencePrefix). Panics on an invalid character, since prefixes
// handed to the trie are always derived from SyncID strings or farcaster
// timestamps, never external untrusted input directly.
func DigitsOf(prefix string) []byte {
	d, err := SyncID(prefix).path()
	if err != nil {
		panic(err)
	}
	return d
}
