package wire

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	commandSize = 12
	headerSize  = 24

	// maxPayloadSize caps decoded payloads. The handshake messages are
	// tiny, so anything near this limit is garbage or a different
	// protocol talking to us.
	maxPayloadSize = 1024 * 1024
)

var (
	ErrBadMagic        = errors.New("wire: bad network magic")
	ErrChecksum        = errors.New("wire: payload checksum mismatch")
	ErrUnknownCommand  = errors.New("wire: unknown command")
	ErrPayloadTooLarge = errors.New("wire: payload exceeds sanity limit")
	ErrShortPayload    = errors.New("wire: payload too short for message")
)

// Message is one decoded envelope: the command name and its raw payload.
// The payload is decoded separately per command, see DecodeVersion.
type Message struct {
	Command string
	Payload []byte
}

// checksum is the first four bytes of a double SHA256 of the payload.
func checksum(payload []byte) [4]byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	var c [4]byte
	copy(c[:], second[:4])
	return c
}

// WriteMessage wraps payload in an envelope for the given network and
// writes it to w in a single Write call.
func WriteMessage(w io.Writer, network Network, command string, payload []byte) error {
	if len(command) > commandSize {
		return fmt.Errorf("wire: command %q longer than %d bytes", command, commandSize)
	}

	buf := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(network))
	copy(buf[4:4+commandSize], command)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(payload)))
	ck := checksum(payload)
	copy(buf[20:24], ck[:])
	copy(buf[headerSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("wire: write %s message: %w", command, err)
	}
	return nil
}

// ReadMessage reads exactly one envelope from r, validating magic,
// checksum and command. A short read surfaces as an error wrapping
// io.EOF or io.ErrUnexpectedEOF so callers can tell truncation from a
// malformed but complete envelope.
func ReadMessage(r io.Reader, network Network) (*Message, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("wire: read message header: %w", err)
	}

	if magic := Network(binary.LittleEndian.Uint32(hdr[0:4])); magic != network {
		return nil, fmt.Errorf("%w: got %#08x, want %s", ErrBadMagic, uint32(magic), network)
	}

	command := string(bytes.TrimRight(hdr[4:4+commandSize], "\x00"))
	length := binary.LittleEndian.Uint32(hdr[16:20])
	if length > maxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: read %s payload: %w", command, err)
	}

	ck := checksum(payload)
	if !bytes.Equal(ck[:], hdr[20:24]) {
		return nil, fmt.Errorf("%w on %s message", ErrChecksum, command)
	}

	switch command {
	case CmdVersion:
	case CmdVerAck:
		// Verack carries no payload. A non-empty one means the peer is
		// not speaking the protocol we think it is.
		if length != 0 {
			return nil, fmt.Errorf("wire: verack with %d byte payload", length)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}

	return &Message{Command: command, Payload: payload}, nil
}
