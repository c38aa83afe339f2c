package wire

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"net"
	"time"
)

// MsgVersion is the version message that opens every Bitcoin handshake.
// All fields are advisory; the probe decodes them but validates nothing
// beyond structure.
type MsgVersion struct {
	ProtocolVersion int32
	Services        uint64
	Timestamp       int64
	AddrRecv        NetAddress
	AddrFrom        NetAddress
	Nonce           uint64
	UserAgent       string
	StartHeight     int32
	Relay           bool
}

// NewMsgVersion builds the version message a probe advertises to remote.
// The nonce is drawn fresh per call; it only needs statistical
// uniqueness, nothing cryptographic rides on it.
func NewMsgVersion(local, remote *net.TCPAddr, userAgent string) *MsgVersion {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &MsgVersion{
		ProtocolVersion: ProtocolVersion,
		Services:        ServiceNone,
		Timestamp:       time.Now().Unix(),
		AddrRecv:        NewNetAddress(remote, ServiceNone),
		AddrFrom:        NewNetAddress(local, ServiceNone),
		Nonce:           rand.Uint64(),
		UserAgent:       userAgent,
		StartHeight:     0,
	}
}

// Encode serializes the version payload (envelope not included).
func (m *MsgVersion) Encode() []byte {
	buf := make([]byte, 0, 86+len(m.UserAgent))

	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.ProtocolVersion))
	buf = binary.LittleEndian.AppendUint64(buf, m.Services)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(m.Timestamp))

	var addr [netAddressSize]byte
	putNetAddress(addr[:], &m.AddrRecv)
	buf = append(buf, addr[:]...)
	putNetAddress(addr[:], &m.AddrFrom)
	buf = append(buf, addr[:]...)

	buf = binary.LittleEndian.AppendUint64(buf, m.Nonce)
	buf = appendVarInt(buf, uint64(len(m.UserAgent)))
	buf = append(buf, m.UserAgent...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.StartHeight))

	if m.ProtocolVersion >= BIP0037Version {
		relay := byte(0)
		if m.Relay {
			relay = 1
		}
		buf = append(buf, relay)
	}
	return buf
}

// DecodeVersion parses a version payload.
func DecodeVersion(payload []byte) (*MsgVersion, error) {
	// Fixed-width fields up to the user agent length prefix.
	if len(payload) < 4+8+8+2*netAddressSize+8 {
		return nil, fmt.Errorf("%w: version of %d bytes", ErrShortPayload, len(payload))
	}

	m := &MsgVersion{
		ProtocolVersion: int32(binary.LittleEndian.Uint32(payload[0:4])),
		Services:        binary.LittleEndian.Uint64(payload[4:12]),
		Timestamp:       int64(binary.LittleEndian.Uint64(payload[12:20])),
		AddrRecv:        parseNetAddress(payload[20:46]),
		AddrFrom:        parseNetAddress(payload[46:72]),
		Nonce:           binary.LittleEndian.Uint64(payload[72:80]),
	}

	ualen, n, err := readVarInt(payload[80:])
	if err != nil {
		return nil, err
	}
	off := 80 + n
	if ualen > uint64(len(payload)) || uint64(len(payload)) < uint64(off)+ualen+4 {
		return nil, fmt.Errorf("%w: version of %d bytes", ErrShortPayload, len(payload))
	}
	m.UserAgent = string(payload[off : off+int(ualen)])
	off += int(ualen)

	m.StartHeight = int32(binary.LittleEndian.Uint32(payload[off : off+4]))
	off += 4

	if m.ProtocolVersion >= BIP0037Version && off < len(payload) {
		m.Relay = payload[off] != 0
	}
	return m, nil
}

// appendVarInt encodes v as a Bitcoin CompactSize integer.
func appendVarInt(buf []byte, v uint64) []byte {
	switch {
	case v < 0xfd:
		return append(buf, byte(v))
	case v <= 0xffff:
		buf = append(buf, 0xfd)
		return binary.LittleEndian.AppendUint16(buf, uint16(v))
	case v <= 0xffffffff:
		buf = append(buf, 0xfe)
		return binary.LittleEndian.AppendUint32(buf, uint32(v))
	default:
		buf = append(buf, 0xff)
		return binary.LittleEndian.AppendUint64(buf, v)
	}
}

// readVarInt decodes a CompactSize integer, returning the value and the
// number of bytes consumed.
func readVarInt(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("%w: empty varint", ErrShortPayload)
	}
	switch tag := b[0]; {
	case tag < 0xfd:
		return uint64(tag), 1, nil
	case tag == 0xfd:
		if len(b) < 3 {
			return 0, 0, fmt.Errorf("%w: short varint", ErrShortPayload)
		}
		return uint64(binary.LittleEndian.Uint16(b[1:3])), 3, nil
	case tag == 0xfe:
		if len(b) < 5 {
			return 0, 0, fmt.Errorf("%w: short varint", ErrShortPayload)
		}
		return uint64(binary.LittleEndian.Uint32(b[1:5])), 5, nil
	default:
		if len(b) < 9 {
			return 0, 0, fmt.Errorf("%w: short varint", ErrShortPayload)
		}
		return binary.LittleEndian.Uint64(b[1:9]), 9, nil
	}
}
