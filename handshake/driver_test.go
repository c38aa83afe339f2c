package handshake

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"peerprobe/wire"
)

const testNet = wire.Regtest

// startResponder listens on a loopback port and serves exactly one
// connection with handler.
func startResponder(t *testing.T, handler func(conn net.Conn)) *net.TCPAddr {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}()

	return l.Addr().(*net.TCPAddr)
}

// compliantPeer answers the full four-step exchange.
func compliantPeer(userAgent string) func(conn net.Conn) {
	return func(conn net.Conn) {
		msg, err := wire.ReadMessage(conn, testNet)
		if err != nil || msg.Command != wire.CmdVersion {
			return
		}

		local := conn.LocalAddr().(*net.TCPAddr)
		remote := conn.RemoteAddr().(*net.TCPAddr)
		ver := wire.NewMsgVersion(local, remote, userAgent)
		if err := wire.WriteMessage(conn, testNet, wire.CmdVersion, ver.Encode()); err != nil {
			return
		}

		if msg, err := wire.ReadMessage(conn, testNet); err != nil || msg.Command != wire.CmdVerAck {
			return
		}
		_ = wire.WriteMessage(conn, testNet, wire.CmdVerAck, nil)
	}
}

func TestEstablishCompleted(t *testing.T) {
	peer := startResponder(t, compliantPeer("/responder:1.0/"))

	drv := New(testNet)
	out := drv.Establish(context.Background(), peer)
	if !out.Completed() {
		t.Fatalf("handshake did not complete: %v", out.Err)
	}
	if out.Remote == nil || out.Remote.UserAgent != "/responder:1.0/" {
		t.Fatalf("remote version not captured: %+v", out.Remote)
	}
	if out.Reason() != "completed" {
		t.Fatalf("unexpected reason: %s", out.Reason())
	}
}

func TestEstablishImmediateClose(t *testing.T) {
	// Accept then close without sending a byte.
	peer := startResponder(t, func(conn net.Conn) {})

	drv := New(testNet)
	out := drv.Establish(context.Background(), peer)
	if out.Completed() {
		t.Fatal("handshake completed against a mute peer")
	}
	if out.TimedOut() {
		t.Fatalf("expected truncation failure, got timeout: %v", out.Err)
	}
	if !errors.Is(out.Err, ErrDecode) && !errors.Is(out.Err, ErrIO) {
		t.Fatalf("expected decode or io failure, got %v", out.Err)
	}
}

func TestEstablishProtocolViolation(t *testing.T) {
	// Send verack where a version is expected.
	peer := startResponder(t, func(conn net.Conn) {
		if _, err := wire.ReadMessage(conn, testNet); err != nil {
			return
		}
		_ = wire.WriteMessage(conn, testNet, wire.CmdVerAck, nil)
		// Hold the connection open so the driver, not the responder,
		// decides the outcome.
		buf := make([]byte, 1)
		_, _ = conn.Read(buf)
	})

	drv := New(testNet)
	out := drv.Establish(context.Background(), peer)
	if !errors.Is(out.Err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", out.Err)
	}
	if out.Reason() != "protocol" {
		t.Fatalf("unexpected reason: %s", out.Reason())
	}
}

func TestEstablishWrongNetworkMagic(t *testing.T) {
	peer := startResponder(t, func(conn net.Conn) {
		if _, err := wire.ReadMessage(conn, testNet); err != nil {
			return
		}
		local := conn.LocalAddr().(*net.TCPAddr)
		remote := conn.RemoteAddr().(*net.TCPAddr)
		ver := wire.NewMsgVersion(local, remote, "")
		_ = wire.WriteMessage(conn, wire.Mainnet, wire.CmdVersion, ver.Encode())
	})

	drv := New(testNet)
	out := drv.Establish(context.Background(), peer)
	if !errors.Is(out.Err, ErrDecode) {
		t.Fatalf("expected ErrDecode for foreign magic, got %v", out.Err)
	}
}

func TestEstablishTimeoutClosesSocket(t *testing.T) {
	peerClosed := make(chan error, 1)

	// Swallow the version, then stall without replying. The blocked read
	// observes the driver-side close caused by the timeout.
	peer := startResponder(t, func(conn net.Conn) {
		if _, err := wire.ReadMessage(conn, testNet); err != nil {
			peerClosed <- err
			return
		}
		buf := make([]byte, 1)
		_, err := conn.Read(buf)
		peerClosed <- err
	})

	drv := New(testNet, WithTimeout(50*time.Millisecond))
	start := time.Now()
	out := drv.Establish(context.Background(), peer)

	if !out.TimedOut() {
		t.Fatalf("expected timeout, got %v", out.Err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Establish did not return promptly after budget: %v", elapsed)
	}

	select {
	case err := <-peerClosed:
		if err == nil {
			t.Fatal("responder read succeeded, expected EOF or reset from driver-side close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("driver left the connection open after timeout")
	}
}

func TestEstablishConnectError(t *testing.T) {
	// Grab a port that nothing is listening on.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	dead := l.Addr().(*net.TCPAddr)
	l.Close()

	drv := New(testNet, WithTimeout(time.Second))
	out := drv.Establish(context.Background(), dead)
	if !errors.Is(out.Err, ErrConnect) && !out.TimedOut() {
		t.Fatalf("expected connect failure, got %v", out.Err)
	}
	if out.Completed() {
		t.Fatal("handshake completed against a closed port")
	}
}
