package message

import "time"

// Epoch is the fixed system epoch farcaster time is seconds-since (spec
// §3 GLOSSARY "Farcaster time"), matching the real network's genesis
// (2021-01-01T00:00:00Z).
var Epoch = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

// Now returns the current farcaster timestamp: seconds since Epoch,
// truncated to 32 bits as spec §3 requires of Message.Timestamp.
func Now() uint32 {
	return uint32(time.Since(Epoch).Seconds())
}
