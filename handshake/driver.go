// Package handshake drives the four-message Bitcoin connection handshake
// against a single peer: send version, receive version, send verack,
// receive verack. One bounded attempt per call, no retries.
package handshake

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"peerprobe/metrics"
	"peerprobe/tracing"
	"peerprobe/wire"
)

// DefaultTimeout bounds a whole attempt, dial included.
const DefaultTimeout = 2 * time.Second

// Terminal error kinds for an attempt. Every non-nil Outcome.Err wraps
// exactly one of these.
var (
	ErrConnect  = errors.New("handshake: connect failed")
	ErrIO       = errors.New("handshake: read/write failed")
	ErrDecode   = errors.New("handshake: malformed or truncated message")
	ErrProtocol = errors.New("handshake: unexpected message for handshake step")
	ErrTimeout  = errors.New("handshake: timeout budget exceeded")
)

// Outcome is the definite result of one handshake attempt.
type Outcome struct {
	Peer     *net.TCPAddr
	Err      error // nil means the handshake completed
	Duration time.Duration

	// Remote is the peer's decoded version message, when one arrived.
	Remote *wire.MsgVersion
}

// Completed reports whether the full four-message exchange finished.
func (o *Outcome) Completed() bool {
	return o.Err == nil
}

// TimedOut reports whether the attempt was cut off by the budget.
func (o *Outcome) TimedOut() bool {
	return errors.Is(o.Err, ErrTimeout)
}

// Reason names the terminal error kind, or "completed".
func (o *Outcome) Reason() string {
	switch {
	case o.Err == nil:
		return "completed"
	case errors.Is(o.Err, ErrTimeout):
		return "timeout"
	case errors.Is(o.Err, ErrConnect):
		return "connect"
	case errors.Is(o.Err, ErrIO):
		return "io"
	case errors.Is(o.Err, ErrDecode):
		return "decode"
	case errors.Is(o.Err, ErrProtocol):
		return "protocol"
	}
	return "error"
}

// Driver performs handshake attempts. The zero value is not usable;
// construct with New.
type Driver struct {
	network   wire.Network
	userAgent string
	timeout   time.Duration
	dialer    net.Dialer
}

// Option configures a Driver.
type Option func(*Driver)

// WithUserAgent overrides the advertised user agent string.
func WithUserAgent(ua string) Option {
	return func(d *Driver) { d.userAgent = ua }
}

// WithTimeout overrides the per-attempt budget.
func WithTimeout(t time.Duration) Option {
	return func(d *Driver) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// New returns a Driver for the given network.
func New(network wire.Network, opts ...Option) *Driver {
	d := &Driver{
		network:   network,
		userAgent: wire.DefaultUserAgent,
		timeout:   DefaultTimeout,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Establish runs one handshake attempt against peer, bounded by the
// driver's timeout budget. When the budget elapses, the socket is closed
// and any blocked read or write aborts before Establish returns: no part
// of the attempt keeps running after the caller sees the outcome.
func (d *Driver) Establish(ctx context.Context, peer *net.TCPAddr) *Outcome {
	ctx, span := tracing.StartSpan(ctx, "handshake.establish")
	defer span()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	remote, err := d.attempt(ctx, peer)
	if err != nil && ctx.Err() != nil {
		// The budget fired mid-step; the I/O error is just the closed
		// socket surfacing.
		err = fmt.Errorf("%w after %v: %w", ErrTimeout, d.timeout, err)
	}

	out := &Outcome{
		Peer:     peer,
		Err:      err,
		Duration: time.Since(start),
		Remote:   remote,
	}
	metrics.Handshakes.WithLabelValues(out.Reason()).Inc()
	metrics.HandshakeDuration.Observe(out.Duration.Seconds())
	return out
}

// attempt walks the handshake steps in strict order. All four steps run
// under ctx; a monitor goroutine closes the connection as soon as ctx is
// done, and is reaped before attempt returns.
func (d *Driver) attempt(ctx context.Context, peer *net.TCPAddr) (*wire.MsgVersion, error) {
	conn, err := d.dialer.DialContext(ctx, "tcp", peer.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	defer conn.Close()

	finished := make(chan struct{})
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		select {
		case <-ctx.Done():
			conn.Close()
		case <-finished:
		}
	}()
	defer func() {
		close(finished)
		<-monitorDone
	}()

	localAddr, ok := conn.LocalAddr().(*net.TCPAddr)
	if !ok {
		localAddr = &net.TCPAddr{IP: net.IPv4zero}
	}

	// Step 1: advertise ourselves.
	ver := wire.NewMsgVersion(localAddr, peer, d.userAgent)
	if err := wire.WriteMessage(conn, d.network, wire.CmdVersion, ver.Encode()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	log.Debugf("Sent version to %s (nonce %d)", peer, ver.Nonce)

	// Step 2: the peer must answer with its own version.
	msg, err := wire.ReadMessage(conn, d.network)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if msg.Command != wire.CmdVersion {
		return nil, fmt.Errorf("%w: got %q, want version", ErrProtocol, msg.Command)
	}
	remote, err := wire.DecodeVersion(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	log.Debugf("Peer %s is %q, protocol %d, height %d",
		peer, remote.UserAgent, remote.ProtocolVersion, remote.StartHeight)

	// Step 3: acknowledge the peer's version.
	ack := &wire.MsgVerAck{}
	if err := wire.WriteMessage(conn, d.network, wire.CmdVerAck, ack.Encode()); err != nil {
		return remote, fmt.Errorf("%w: %w", ErrIO, err)
	}

	// Step 4: wait for the peer's acknowledgment of ours.
	msg, err = wire.ReadMessage(conn, d.network)
	if err != nil {
		return remote, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if msg.Command != wire.CmdVerAck {
		return remote, fmt.Errorf("%w: got %q, want verack", ErrProtocol, msg.Command)
	}

	return remote, nil
}
