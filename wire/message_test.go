package wire

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func testAddrs() (*net.TCPAddr, *net.TCPAddr) {
	local := &net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 52110}
	remote := &net.TCPAddr{IP: net.ParseIP("93.184.216.34"), Port: 8333}
	return local, remote
}

func TestVersionRoundTrip(t *testing.T) {
	local, remote := testAddrs()
	msg := NewMsgVersion(local, remote, "")

	var buf bytes.Buffer
	if err := WriteMessage(&buf, Mainnet, CmdVersion, msg.Encode()); err != nil {
		t.Fatal(err)
	}

	got, err := ReadMessage(&buf, Mainnet)
	if err != nil {
		t.Fatal(err)
	}
	if got.Command != CmdVersion {
		t.Fatalf("Command mismatch: %q != %q", got.Command, CmdVersion)
	}

	decoded, err := DecodeVersion(got.Payload)
	if err != nil {
		t.Fatal(err)
	}

	if decoded.ProtocolVersion != msg.ProtocolVersion {
		t.Fatalf("ProtocolVersion mismatch: %d != %d", decoded.ProtocolVersion, msg.ProtocolVersion)
	}
	if decoded.Services != msg.Services {
		t.Fatalf("Services mismatch: %d != %d", decoded.Services, msg.Services)
	}
	if decoded.Nonce != msg.Nonce {
		t.Fatalf("Nonce mismatch: %d != %d", decoded.Nonce, msg.Nonce)
	}
	if decoded.UserAgent != DefaultUserAgent {
		t.Fatalf("UserAgent mismatch: %q != %q", decoded.UserAgent, DefaultUserAgent)
	}
	if decoded.StartHeight != 0 {
		t.Fatalf("StartHeight mismatch: %d != 0", decoded.StartHeight)
	}
	if !decoded.AddrRecv.IP.Equal(remote.IP) || int(decoded.AddrRecv.Port) != remote.Port {
		t.Fatalf("AddrRecv mismatch: %v != %v", decoded.AddrRecv.TCPAddr(), remote)
	}
	if !decoded.AddrFrom.IP.Equal(local.IP) || int(decoded.AddrFrom.Port) != local.Port {
		t.Fatalf("AddrFrom mismatch: %v != %v", decoded.AddrFrom.TCPAddr(), local)
	}

	delta := time.Now().Unix() - decoded.Timestamp
	if delta < 0 || delta > 5 {
		t.Fatalf("Timestamp not near call time: delta %d seconds", delta)
	}
}

func TestVersionNonceFreshPerBuild(t *testing.T) {
	local, remote := testAddrs()
	a := NewMsgVersion(local, remote, "")
	b := NewMsgVersion(local, remote, "")
	if a.Nonce == b.Nonce {
		t.Fatalf("Nonce repeated across builds: %d", a.Nonce)
	}
}

func TestVerackRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	ack := &MsgVerAck{}
	if err := WriteMessage(&buf, Mainnet, CmdVerAck, ack.Encode()); err != nil {
		t.Fatal(err)
	}

	got, err := ReadMessage(&buf, Mainnet)
	if err != nil {
		t.Fatal(err)
	}
	if got.Command != CmdVerAck {
		t.Fatalf("Command mismatch: %q != %q", got.Command, CmdVerAck)
	}
	if len(got.Payload) != 0 {
		t.Fatalf("Verack payload not empty: %d bytes", len(got.Payload))
	}
}

func TestReadMessageBadMagic(t *testing.T) {
	local, remote := testAddrs()
	var buf bytes.Buffer
	if err := WriteMessage(&buf, Testnet3, CmdVersion, NewMsgVersion(local, remote, "").Encode()); err != nil {
		t.Fatal(err)
	}

	_, err := ReadMessage(&buf, Mainnet)
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestReadMessageChecksumMismatch(t *testing.T) {
	local, remote := testAddrs()
	var buf bytes.Buffer
	if err := WriteMessage(&buf, Mainnet, CmdVersion, NewMsgVersion(local, remote, "").Encode()); err != nil {
		t.Fatal(err)
	}

	// Flip a payload byte past the header.
	raw := buf.Bytes()
	raw[headerSize] ^= 0xff

	_, err := ReadMessage(bytes.NewReader(raw), Mainnet)
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
}

func TestReadMessageUnknownCommand(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, Mainnet, "sendheaders", nil); err != nil {
		t.Fatal(err)
	}

	_, err := ReadMessage(&buf, Mainnet)
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestReadMessageTruncated(t *testing.T) {
	local, remote := testAddrs()
	var buf bytes.Buffer
	if err := WriteMessage(&buf, Mainnet, CmdVersion, NewMsgVersion(local, remote, "").Encode()); err != nil {
		t.Fatal(err)
	}

	// Chop the stream mid-payload.
	raw := buf.Bytes()[:headerSize+10]

	_, err := ReadMessage(bytes.NewReader(raw), Mainnet)
	if err == nil {
		t.Fatal("expected error for truncated stream")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		t.Fatalf("truncation not surfaced as io error: %v", err)
	}
}

func TestReadMessageEmptyStream(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader(nil), Mainnet)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestDecodeVersionShortPayload(t *testing.T) {
	_, err := DecodeVersion(make([]byte, 30))
	if !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
}
