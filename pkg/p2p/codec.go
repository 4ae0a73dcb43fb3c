package p2p

import (
	"encoding/binary"

	"github.com/meridianhub/hub/pkg/hubcore"
	"github.com/meridianhub/hub/pkg/message"
)

// Encode/Decode use the same length-prefixed deterministic scheme as
// pkg/message/codec.go, for the reason noted there: no flatbuffer/
// protobuf compiler is available in this environment.

func putBytes(buf []byte, b []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, b...)
}

func takeBytes(buf []byte) (val, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, hubcore.New(hubcore.CodeParseFailure, "truncated length prefix")
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return nil, nil, hubcore.New(hubcore.CodeParseFailure, "truncated field")
	}
	return buf[:n], buf[n:], nil
}

func Encode(m *GossipMessage) []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, byte(m.Kind))
	switch m.Kind {
	case ContentMessage:
		buf = putBytes(buf, m.Message.Encode())
	case ContentIdRegistryEvent:
		buf = putBytes(buf, m.IdEvent.Encode())
	case ContentContactInfo:
		buf = putBytes(buf, []byte(m.Contact.RPCAddr))
	}
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(m.Topics)))
	buf = append(buf, n[:]...)
	for _, t := range m.Topics {
		buf = putBytes(buf, []byte(t))
	}
	return buf
}

func Decode(buf []byte) (*GossipMessage, error) {
	if len(buf) < 1 {
		return nil, hubcore.New(hubcore.CodeParseFailure, "truncated gossip kind")
	}
	m := &GossipMessage{Kind: ContentKind(buf[0])}
	buf = buf[1:]

	payload, rest, err := takeBytes(buf)
	if err != nil {
		return nil, err
	}
	buf = rest

	switch m.Kind {
	case ContentMessage:
		if m.Message, err = message.Decode(payload); err != nil {
			return nil, err
		}
	case ContentIdRegistryEvent:
		if m.IdEvent, err = message.DecodeIdRegistryEvent(payload); err != nil {
			return nil, err
		}
	case ContentContactInfo:
		m.Contact = &ContactInfo{RPCAddr: string(payload)}
	default:
		return nil, hubcore.Newf(hubcore.CodeInvalidParam, "unknown gossip content kind %d", m.Kind)
	}

	if len(buf) < 4 {
		return nil, hubcore.New(hubcore.CodeParseFailure, "truncated topic count")
	}
	count := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	for i := uint32(0); i < count; i++ {
		var t []byte
		if t, buf, err = takeBytes(buf); err != nil {
			return nil, err
		}
		m.Topics = append(m.Topics, string(t))
	}
	return m, nil
}
