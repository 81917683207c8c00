//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package snapshot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	enabled         bool
	writeDuration   prometheus.Observer
	restoreDuration prometheus.Observer
	snapshotSize    prometheus.Gauge
	failures        *prometheus.CounterVec
}

// NewMetrics builds the snapshot metrics set on reg. A nil registerer returns
// a disabled instance whose methods are no-ops.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{enabled: false}
	}

	writeDuration := promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
		Namespace: "quiver",
		Name:      "snapshot_write_duration_seconds",
		Help:      "Time spent writing one snapshot file",
	})

	restoreDuration := promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
		Namespace: "quiver",
		Name:      "snapshot_restore_duration_seconds",
		Help:      "Time spent replaying one snapshot file into a graph",
	})

	snapshotSize := promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Namespace: "quiver",
		Name:      "snapshot_size_bytes",
		Help:      "Size of the most recently written snapshot file",
	})

	failures := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: "quiver",
		Name:      "snapshot_failures_total",
		Help:      "Snapshot operations that returned an error",
	}, []string{"operation"})

	return &Metrics{
		enabled:         true,
		writeDuration:   writeDuration,
		restoreDuration: restoreDuration,
		snapshotSize:    snapshotSize,
		failures:        failures,
	}
}

func (m *Metrics) WriteDone(start time.Time, sizeBytes int64) {
	if !m.enabled {
		return
	}

	m.writeDuration.Observe(time.Since(start).Seconds())
	m.snapshotSize.Set(float64(sizeBytes))
}

func (m *Metrics) RestoreDone(start time.Time) {
	if !m.enabled {
		return
	}

	m.restoreDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) Failure(operation string) {
	if !m.enabled {
		return
	}

	m.failures.WithLabelValues(operation).Inc()
}
