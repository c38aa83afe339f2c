package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"peerprobe/config"
	"peerprobe/helper/timer"
	"peerprobe/metrics"
	"peerprobe/seeds"
)

// RunProbe resolves all seeds and attempts handshakes sequentially until
// the first peer completes. With interval > 0 it keeps running rounds on
// a jittered ticker until the context is cancelled; metricsAddr, when
// set, exposes Prometheus metrics over HTTP for the duration.
func RunProbe(ctx context.Context, cfg *config.Config, interval time.Duration, metricsAddr string) error {
	metrics.Register()
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Errorf("Metrics listener failed: %v", err)
			}
		}()
		log.Infof("Serving metrics on http://%s/metrics", metricsAddr)
	}

	network, err := cfg.WireNetwork()
	if err != nil {
		return err
	}
	reg := seeds.New(cfg.PeerPort(network))

	drv, err := newDriver(cfg)
	if err != nil {
		return err
	}
	led, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	round := func(ctx context.Context) error {
		addrs := reg.ResolveAll(ctx)
		metrics.SeedsResolved.Set(float64(len(addrs)))
		log.Infof("Resolved %d candidate peers from %d seeds", len(addrs), seeds.Count())

		for _, peer := range addrs {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if out := attemptPeer(ctx, drv, led, peer); out.Completed() {
				return nil
			}
		}
		return fmt.Errorf("no candidate peer completed the handshake (%d tried)", len(addrs))
	}

	if interval <= 0 {
		return round(ctx)
	}

	// Watch mode: a failed round is logged and retried on the next tick
	// rather than terminating the loop.
	err = timer.RunWithTicker(ctx, "probe round", &timer.Interval{
		Duration: interval,
		Jitter:   interval / 10,
	}, func(ctx context.Context) error {
		if err := round(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warnf("Probe round failed: %v", err)
		}
		return ctx.Err()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
