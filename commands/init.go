// Package commands implements the peerprobe subcommands on top of the
// seeds, handshake and ledger packages.
package commands

import (
	"context"

	log "github.com/sirupsen/logrus"

	"peerprobe/config"
)

// RunInit writes a config file with default settings.
func RunInit(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Save(); err != nil {
		return err
	}
	log.Info("Wrote default config")
	return nil
}
