// Package metrics exposes Prometheus instrumentation for probe runs.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	Handshakes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "peerprobe",
		Name:      "handshakes_total",
		Help:      "Total handshake attempts by terminal result",
	}, []string{"result"})

	HandshakeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "peerprobe",
		Name:      "handshake_duration_seconds",
		Help:      "Wall-clock duration of handshake attempts",
		Buckets:   prometheus.DefBuckets,
	})

	SeedsResolved = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "peerprobe",
		Name:      "seed_addresses",
		Help:      "Peer addresses produced by the last seed resolution",
	})
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(Handshakes)
		prometheus.MustRegister(HandshakeDuration)
		prometheus.MustRegister(SeedsResolved)
	})
}
