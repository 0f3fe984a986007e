// Package metrics exposes the prometheus instrumentation for the ledger
// engine: per-operation counters and gauges mirroring the treasury aggregate.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bizchain/core/types"
)

// Recorder implements the engine's metrics hook and the treasury gauges.
type Recorder struct {
	operations *prometheus.CounterVec

	reserve      prometheus.Gauge
	protocolFees prometheus.Gauge
	invested     prometheus.Gauge
	players      prometheus.Gauge
	businesses   prometheus.Gauge
}

var (
	recorderOnce sync.Once
	recorder     *Recorder
)

// Engine returns the lazily-initialised engine recorder registered on the
// default prometheus registry.
func Engine() *Recorder {
	recorderOnce.Do(func() {
		recorder = &Recorder{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "biz",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Engine operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			reserve: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "biz",
				Subsystem: "treasury",
				Name:      "reserve",
				Help:      "Pooled payout reserve.",
			}),
			protocolFees: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "biz",
				Subsystem: "treasury",
				Name:      "protocol_fees",
				Help:      "Accumulated protocol fees.",
			}),
			invested: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "biz",
				Subsystem: "treasury",
				Name:      "total_invested",
				Help:      "Lifetime invested amount.",
			}),
			players: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "biz",
				Subsystem: "treasury",
				Name:      "total_players",
				Help:      "Registered player records.",
			}),
			businesses: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "biz",
				Subsystem: "treasury",
				Name:      "total_businesses",
				Help:      "Lifetime businesses created.",
			}),
		}
		prometheus.MustRegister(
			recorder.operations,
			recorder.reserve,
			recorder.protocolFees,
			recorder.invested,
			recorder.players,
			recorder.businesses,
		)
	})
	return recorder
}

// ObserveOperation records one engine operation outcome.
func (r *Recorder) ObserveOperation(op string, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.operations.WithLabelValues(op, outcome).Inc()
}

// SetTreasury refreshes the aggregate gauges from a loaded treasury record.
func (r *Recorder) SetTreasury(t *types.Treasury) {
	if r == nil || t == nil {
		return
	}
	r.reserve.Set(float64(t.Reserve))
	r.protocolFees.Set(float64(t.ProtocolFees))
	r.invested.Set(float64(t.TotalInvested))
	r.players.Set(float64(t.TotalPlayers))
	r.businesses.Set(float64(t.TotalBusinesses))
}

// Handler serves the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
