package commands

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"peerprobe/config"
	"peerprobe/seeds"
)

// RunSeeds prints the built-in DNS seed table with indices.
func RunSeeds(ctx context.Context, cfg *config.Config) error {
	log.Info("DNS seeds:")
	for i, hostname := range seeds.Hostnames() {
		fmt.Printf("%d: %s\n", i, hostname)
	}
	return nil
}

// RunResolve resolves one seed, given either its table index or a
// hostname, and prints the candidate peer addresses with indices.
func RunResolve(ctx context.Context, cfg *config.Config, arg string) error {
	network, err := cfg.WireNetwork()
	if err != nil {
		return err
	}

	hostname := arg
	if i, err := strconv.Atoi(arg); err == nil {
		hostname, err = seeds.At(i)
		if err != nil {
			return err
		}
	}

	reg := seeds.New(cfg.PeerPort(network))
	addrs, err := reg.Resolve(ctx, hostname)
	if err != nil {
		return err
	}

	log.Infof("Peer addresses for %s:", hostname)
	for i, addr := range addrs {
		fmt.Printf("%d: %s\n", i, addr)
	}
	return nil
}
