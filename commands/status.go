package commands

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"peerprobe/config"
)

// RunStatus dumps the recorded handshake outcomes from the ledger.
func RunStatus(ctx context.Context, cfg *config.Config) error {
	led, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	entries, err := led.All()
	if err != nil {
		return err
	}

	log.Infof("Ledger: %d peers attempted", len(entries))
	for addr, e := range entries {
		if e.Reason != "" {
			fmt.Printf("%s\t%s (%s)\t%s\n", addr, e.Result, e.Reason, e.Attempt.Format("2006-01-02 15:04:05"))
			continue
		}
		fmt.Printf("%s\t%s\t%s\n", addr, e.Result, e.Attempt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
