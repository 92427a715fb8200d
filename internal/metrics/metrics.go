// Package metrics registers the prometheus collectors for the signal
// pipeline and exposes them on an HTTP endpoint.
//
// Registers:
//
//	#signalflow_alerts_dispatched_total
//	#signalflow_alerts_suppressed_total
//	#signalflow_messages_dropped_total
//	#signalflow_symbols_tracked / _tier1 / _tier2
//	#signalflow_trade_streams_active
//	#go_* and process_* system metrics
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"signalflow/logger"
)

var (
	once sync.Once

	alertsDispatched *prometheus.CounterVec
	alertsSuppressed *prometheus.CounterVec
	messagesDropped  *prometheus.CounterVec
	symbolsTracked   prometheus.Gauge
	symbolsTier1     prometheus.Gauge
	symbolsTier2     prometheus.Gauge
	tradeStreams     prometheus.Gauge
)

// Init registers collectors and serves /metrics on addr. Call once at
// startup; later calls are no-ops.
func Init(addr string) {
	once.Do(func() {
		alertsDispatched = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalflow_alerts_dispatched_total",
				Help: "Number of alerts delivered downstream",
			},
			[]string{"type"},
		)
		alertsSuppressed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalflow_alerts_suppressed_total",
				Help: "Number of alerts suppressed by cooldown or rate limiting",
			},
			[]string{"type", "reason"},
		)
		messagesDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalflow_messages_dropped_total",
				Help: "Number of inbound messages dropped on full channels",
			},
			[]string{"channel"},
		)
		symbolsTracked = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalflow_symbols_tracked",
			Help: "Number of symbols currently tracked by the engine",
		})
		symbolsTier1 = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalflow_symbols_tier1",
			Help: "Number of symbols currently in Tier 1",
		})
		symbolsTier2 = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalflow_symbols_tier2",
			Help: "Number of symbols currently in Tier 2",
		})
		tradeStreams = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalflow_trade_streams_active",
			Help: "Number of active per-symbol trade streams",
		})

		_ = prometheus.Register(alertsDispatched)
		_ = prometheus.Register(alertsSuppressed)
		_ = prometheus.Register(messagesDropped)
		_ = prometheus.Register(symbolsTracked)
		_ = prometheus.Register(symbolsTier1)
		_ = prometheus.Register(symbolsTier2)
		_ = prometheus.Register(tradeStreams)
		_ = prometheus.Register(collectors.NewGoCollector())
		_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		if addr == "" {
			addr = "0.0.0.0:2112"
		}

		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.GetLogger().WithComponent("metrics").WithError(err).Error("metrics server failed")
			}
		}()
	})
}

// IncrementAlertDispatched increases the dispatched counter for an alert type.
func IncrementAlertDispatched(alertType string) {
	if alertsDispatched != nil {
		alertsDispatched.WithLabelValues(alertType).Inc()
	}
}

// IncrementAlertSuppressed increases the suppressed counter. Reason is
// "cooldown" or "rate_limit".
func IncrementAlertSuppressed(alertType, reason string) {
	if alertsSuppressed != nil {
		alertsSuppressed.WithLabelValues(alertType, reason).Inc()
	}
}

// SetSymbolCounts updates the engine population gauges.
func SetSymbolCounts(total, tier1, tier2 int) {
	if symbolsTracked != nil {
		symbolsTracked.Set(float64(total))
		symbolsTier1.Set(float64(tier1))
		symbolsTier2.Set(float64(tier2))
	}
}

// SetActiveTradeStreams updates the active trade stream gauge.
func SetActiveTradeStreams(n int) {
	if tradeStreams != nil {
		tradeStreams.Set(float64(n))
	}
}
