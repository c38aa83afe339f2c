// Package wire implements the subset of the Bitcoin P2P wire protocol
// needed to perform a version/verack handshake: the message envelope and
// the two handshake payloads.
package wire

// Network identifies the Bitcoin network a message belongs to. Its value
// is the four-byte magic that prefixes every envelope on the wire.
type Network uint32

const (
	Mainnet  Network = 0xd9b4bef9
	Testnet3 Network = 0x0709110b
	Regtest  Network = 0xdabfbfda
)

// DefaultPort returns the well-known P2P listen port for the network.
func (n Network) DefaultPort() uint16 {
	switch n {
	case Testnet3:
		return 18333
	case Regtest:
		return 18444
	default:
		return 8333
	}
}

func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet3:
		return "testnet3"
	case Regtest:
		return "regtest"
	}
	return "unknown"
}

const (
	// ProtocolVersion is the protocol version advertised in outgoing
	// version messages.
	ProtocolVersion int32 = 70016

	// DefaultUserAgent is advertised when the caller does not override it.
	DefaultUserAgent = "/peerprobe:0.1.0/"

	// BIP0037Version is the first protocol version whose version message
	// carries the trailing relay flag.
	BIP0037Version int32 = 70001
)

// ServiceNone advertises no services. The probe never serves blocks.
const ServiceNone uint64 = 0

// Commands understood by this package. The command field of the envelope
// is 12 bytes of NUL-padded ASCII.
const (
	CmdVersion = "version"
	CmdVerAck  = "verack"
)
