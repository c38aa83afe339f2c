// Package seeds holds the well-known Bitcoin DNS seed hostnames and
// resolves them into candidate peer addresses.
package seeds

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	log "github.com/sirupsen/logrus"
)

// ErrIndexOutOfRange reports a seed index past the end of the table.
var ErrIndexOutOfRange = errors.New("seeds: index out of range")

// The mainnet seed list from Bitcoin Core's chainparams. The table is
// fixed at build time and its order is stable; commands refer to seeds
// by index.
var defaultHostnames = [...]string{
	"seed.bitcoin.sipa.be",
	"dnsseed.bluematt.me",
	"dnsseed.bitcoin.dashjr.org",
	"seed.bitcoinstats.com",
	"seed.bitcoin.jonasschnelli.ch",
	"seed.btc.petertodd.org",
	"seed.bitcoin.sprovoost.nl",
	"dnsseed.emzy.de",
	"seed.bitcoin.wiz.biz",
}

// Hostnames returns a copy of the seed table.
func Hostnames() []string {
	return append([]string(nil), defaultHostnames[:]...)
}

// Count returns the number of entries in the seed table.
func Count() int {
	return len(defaultHostnames)
}

// At returns the seed hostname at the given table index.
func At(i int) (string, error) {
	if i < 0 || i >= len(defaultHostnames) {
		return "", fmt.Errorf("%w: %d (table has %d entries)", ErrIndexOutOfRange, i, len(defaultHostnames))
	}
	return defaultHostnames[i], nil
}

// Registry resolves seed hostnames into peer addresses on a fixed port.
type Registry struct {
	port     uint16
	resolver *net.Resolver
}

// Option configures a Registry.
type Option func(*Registry)

// WithResolver overrides the DNS resolver, mainly for tests.
func WithResolver(r *net.Resolver) Option {
	return func(reg *Registry) { reg.resolver = r }
}

// New returns a Registry resolving against the given peer port.
func New(port uint16, opts ...Option) *Registry {
	reg := &Registry{port: port, resolver: net.DefaultResolver}
	for _, o := range opts {
		o(reg)
	}
	return reg
}

// Resolve looks up one hostname and returns every address the resolver
// answered with, paired with the registry port.
func (reg *Registry) Resolve(ctx context.Context, hostname string) ([]*net.TCPAddr, error) {
	ips, err := reg.resolver.LookupIP(ctx, "ip", hostname)
	if err != nil {
		return nil, fmt.Errorf("seeds: lookup %s: %w", hostname, err)
	}
	addrs := make([]*net.TCPAddr, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, &net.TCPAddr{IP: ip, Port: int(reg.port)})
	}
	return addrs, nil
}

// ResolveAll resolves every seed in the table and unions the results.
// Seeds that fail to resolve contribute nothing; the call itself never
// fails, even when every lookup does.
func (reg *Registry) ResolveAll(ctx context.Context) []*net.TCPAddr {
	var (
		mu  sync.Mutex
		out []*net.TCPAddr
	)
	seen := make(map[string]struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, hostname := range defaultHostnames {
		g.Go(func() error {
			addrs, err := reg.Resolve(gctx, hostname)
			if err != nil {
				log.Debugf("Seed %s did not resolve: %v", hostname, err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, a := range addrs {
				key := a.String()
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, a)
			}
			return nil
		})
	}
	// Lookup errors are swallowed above, so Wait only synchronizes.
	_ = g.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// JoinHostPort formats a hostname with the registry port for display.
func (reg *Registry) JoinHostPort(hostname string) string {
	return net.JoinHostPort(hostname, strconv.Itoa(int(reg.port)))
}
