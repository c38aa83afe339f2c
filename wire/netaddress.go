package wire

import (
	"encoding/binary"
	"net"
)

// netAddressSize is the encoded size of a network address inside the
// version payload: services(8) + IPv6-mapped IP(16) + port(2). The
// timestamp prefix used by addr messages is absent in the version form.
const netAddressSize = 26

// NetAddress is a peer endpoint as carried inside a version message.
type NetAddress struct {
	Services uint64
	IP       net.IP
	Port     uint16
}

// NewNetAddress builds a NetAddress from a TCP address.
func NewNetAddress(addr *net.TCPAddr, services uint64) NetAddress {
	return NetAddress{
		Services: services,
		IP:       addr.IP,
		Port:     uint16(addr.Port),
	}
}

// TCPAddr converts back to the standard library representation.
func (na *NetAddress) TCPAddr() *net.TCPAddr {
	return &net.TCPAddr{IP: na.IP, Port: int(na.Port)}
}

func putNetAddress(b []byte, na *NetAddress) {
	binary.LittleEndian.PutUint64(b[0:8], na.Services)
	ip := na.IP.To16()
	if ip == nil {
		// Unroutable placeholder, same shape the reference client sends
		// for its own side.
		ip = net.IPv6zero
	}
	copy(b[8:24], ip)
	// Port is the lone big-endian field in the protocol.
	binary.BigEndian.PutUint16(b[24:26], na.Port)
}

func parseNetAddress(b []byte) NetAddress {
	ip := make(net.IP, 16)
	copy(ip, b[8:24])
	return NetAddress{
		Services: binary.LittleEndian.Uint64(b[0:8]),
		IP:       ip,
		Port:     binary.BigEndian.Uint16(b[24:26]),
	}
}
