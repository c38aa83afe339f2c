package commands

import (
	"context"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"peerprobe/config"
	"peerprobe/handshake"
	"peerprobe/ledger"
	"peerprobe/seeds"
)

func newDriver(cfg *config.Config) (*handshake.Driver, error) {
	network, err := cfg.WireNetwork()
	if err != nil {
		return nil, err
	}
	return handshake.New(network,
		handshake.WithUserAgent(cfg.Handshake.UserAgent),
		handshake.WithTimeout(cfg.HandshakeTimeout()),
	), nil
}

func openLedger(cfg *config.Config) (ledger.Ledger, error) {
	if cfg.DataStore.LedgerPath == "" {
		return ledger.NewMemory(), nil
	}
	return ledger.NewLevelDB(cfg.DataStore.LedgerPath)
}

// attemptPeer runs one handshake attempt and records its outcome.
func attemptPeer(ctx context.Context, drv *handshake.Driver, led ledger.Ledger, peer *net.TCPAddr) *handshake.Outcome {
	log.Infof("Trying to connect: %s", peer)
	out := drv.Establish(ctx, peer)

	entry := &ledger.Entry{Attempt: time.Now()}
	switch {
	case out.Completed():
		entry.Result = ledger.ResultCompleted
	case out.TimedOut():
		entry.Result = ledger.ResultTimedOut
		entry.Reason = out.Reason()
	default:
		entry.Result = ledger.ResultFailed
		entry.Reason = out.Reason()
	}
	if err := led.Record(peer.String(), entry); err != nil {
		log.Errorf("Failed to record outcome for %s: %v", peer, err)
	}

	if out.Completed() {
		log.Infof("Handshake completed with %s in %v", peer, out.Duration)
		if out.Remote != nil {
			log.Infof("Peer agent %q, protocol %d, height %d",
				out.Remote.UserAgent, out.Remote.ProtocolVersion, out.Remote.StartHeight)
		}
	} else {
		log.Errorf("Handshake with %s failed: %v", peer, out.Err)
	}
	return out
}

// RunHandshake performs one bounded handshake against an explicit
// host:port peer address.
func RunHandshake(ctx context.Context, cfg *config.Config, target string) error {
	peer, err := net.ResolveTCPAddr("tcp", target)
	if err != nil {
		return fmt.Errorf("bad peer address %q: %w", target, err)
	}

	drv, err := newDriver(cfg)
	if err != nil {
		return err
	}
	led, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	if out := attemptPeer(ctx, drv, led, peer); !out.Completed() {
		return out.Err
	}
	return nil
}

// RunHandshakeByIndex resolves the seed at seedIdx and performs one
// handshake against the peerIdx-th resolved address.
func RunHandshakeByIndex(ctx context.Context, cfg *config.Config, seedIdx, peerIdx int) error {
	hostname, err := seeds.At(seedIdx)
	if err != nil {
		return err
	}
	network, err := cfg.WireNetwork()
	if err != nil {
		return err
	}

	reg := seeds.New(cfg.PeerPort(network))
	addrs, err := reg.Resolve(ctx, hostname)
	if err != nil {
		return err
	}
	if peerIdx < 0 || peerIdx >= len(addrs) {
		return fmt.Errorf("peer index %d out of range: %s resolved to %d addresses", peerIdx, hostname, len(addrs))
	}

	log.Infof("Handshake by index: seed %s, peer %s", hostname, addrs[peerIdx])

	drv, err := newDriver(cfg)
	if err != nil {
		return err
	}
	led, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	if out := attemptPeer(ctx, drv, led, addrs[peerIdx]); !out.Completed() {
		return out.Err
	}
	return nil
}
