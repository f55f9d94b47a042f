package main

import (
	"context"
	"log"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DecodeMetrics holds all Prometheus metric collectors for the decode service
type DecodeMetrics struct {
	// Decode outcome metrics (all with 'domain' label: log|probability)
	decodesTotal    *prometheus.CounterVec // All decode attempts
	decodesSuccess  *prometheus.CounterVec // Attempts reaching all 83 parity checks
	decodesFailed   *prometheus.CounterVec // Attempts returning a best guess only
	crcValid        *prometheus.CounterVec // Successful decodes with a valid CRC
	crcInvalid      *prometheus.CounterVec // Successful decodes with a bad CRC
	lastParityScore *prometheus.GaugeVec   // Parity score of the most recent attempt
	decodeDuration  *prometheus.HistogramVec

	// System metrics
	goroutines prometheus.Gauge
	heapBytes  prometheus.Gauge
	uptime     prometheus.Gauge
}

// NewDecodeMetrics creates and registers all metric collectors
func NewDecodeMetrics() *DecodeMetrics {
	return &DecodeMetrics{
		decodesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ft8ldpc_decodes_total",
			Help: "Total LDPC decode attempts",
		}, []string{"domain"}),
		decodesSuccess: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ft8ldpc_decodes_success_total",
			Help: "Decode attempts that satisfied all 83 parity checks",
		}, []string{"domain"}),
		decodesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ft8ldpc_decodes_failed_total",
			Help: "Decode attempts that exhausted the iteration budget",
		}, []string{"domain"}),
		crcValid: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ft8ldpc_crc_valid_total",
			Help: "Successful decodes whose payload CRC checked out",
		}, []string{"domain"}),
		crcInvalid: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ft8ldpc_crc_invalid_total",
			Help: "Successful decodes whose payload CRC did not match",
		}, []string{"domain"}),
		lastParityScore: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ft8ldpc_last_parity_score",
			Help: "Parity checks passed by the most recent decode (0-83)",
		}, []string{"domain"}),
		decodeDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ft8ldpc_decode_duration_seconds",
			Help:    "Wall time per decode attempt",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"domain"}),
		goroutines: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ft8ldpc_goroutines",
			Help: "Number of goroutines",
		}),
		heapBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ft8ldpc_heap_alloc_bytes",
			Help: "Heap bytes allocated and still in use",
		}),
		uptime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ft8ldpc_uptime_seconds",
			Help: "Seconds since process start",
		}),
	}
}

// RecordDecode updates the decode counters for one attempt
func (dm *DecodeMetrics) RecordDecode(domain string, success, crcOK bool, score int, elapsed time.Duration) {
	dm.decodesTotal.WithLabelValues(domain).Inc()
	dm.lastParityScore.WithLabelValues(domain).Set(float64(score))
	dm.decodeDuration.WithLabelValues(domain).Observe(elapsed.Seconds())
	if success {
		dm.decodesSuccess.WithLabelValues(domain).Inc()
		if crcOK {
			dm.crcValid.WithLabelValues(domain).Inc()
		} else {
			dm.crcInvalid.WithLabelValues(domain).Inc()
		}
	} else {
		dm.decodesFailed.WithLabelValues(domain).Inc()
	}
}

// StartSystemMetricsUpdater refreshes runtime gauges until ctx is cancelled
func (dm *DecodeMetrics) StartSystemMetricsUpdater(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("Metrics: system metrics updater stopped")
				return
			case <-ticker.C:
				var mem runtime.MemStats
				runtime.ReadMemStats(&mem)
				dm.goroutines.Set(float64(runtime.NumGoroutine()))
				dm.heapBytes.Set(float64(mem.HeapAlloc))
				dm.uptime.Set(time.Since(StartTime).Seconds())
			}
		}
	}()
}
