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

package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	enabled         bool
	nodesRestored   prometheus.Counter
	edgesRestored   prometheus.Counter
	nodeTombstones  prometheus.Gauge
	edgeTombstones  prometheus.Gauge
	multiPromotions prometheus.Counter
}

// NewMetrics builds the graph metrics set on reg. A nil registerer returns a
// disabled instance whose methods are no-ops.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{enabled: false}
	}

	nodesRestored := promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Namespace: "quiver",
		Name:      "nodes_restored_total",
		Help:      "Number of node slots claimed through the restore path",
	})

	edgesRestored := promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Namespace: "quiver",
		Name:      "edges_restored_total",
		Help:      "Number of edge slots claimed through the restore path",
	})

	nodeTombstones := promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Namespace: "quiver",
		Name:      "node_tombstones",
		Help:      "Number of tombstoned node identifiers awaiting reuse",
	})

	edgeTombstones := promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Namespace: "quiver",
		Name:      "edge_tombstones",
		Help:      "Number of tombstoned edge identifiers awaiting reuse",
	})

	multiPromotions := promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Namespace: "quiver",
		Name:      "multi_edge_promotions_total",
		Help:      "Number of relation cells promoted from a single edge to an edge list",
	})

	return &Metrics{
		enabled:         true,
		nodesRestored:   nodesRestored,
		edgesRestored:   edgesRestored,
		nodeTombstones:  nodeTombstones,
		edgeTombstones:  edgeTombstones,
		multiPromotions: multiPromotions,
	}
}

func (m *Metrics) NodeRestored() {
	if !m.enabled {
		return
	}

	m.nodesRestored.Inc()
}

func (m *Metrics) EdgeRestored() {
	if !m.enabled {
		return
	}

	m.edgesRestored.Inc()
}

func (m *Metrics) NodeTombstoned() {
	if !m.enabled {
		return
	}

	m.nodeTombstones.Inc()
}

func (m *Metrics) EdgeTombstoned() {
	if !m.enabled {
		return
	}

	m.edgeTombstones.Inc()
}

func (m *Metrics) NodeRecycled() {
	if !m.enabled {
		return
	}

	m.nodeTombstones.Dec()
}

func (m *Metrics) EdgeRecycled() {
	if !m.enabled {
		return
	}

	m.edgeTombstones.Dec()
}

func (m *Metrics) MultiEdgePromoted() {
	if !m.enabled {
		return
	}

	m.multiPromotions.Inc()
}

// Reset zeroes the tombstone gauges. Counters keep their totals.
func (m *Metrics) Reset() {
	if !m.enabled {
		return
	}

	m.nodeTombstones.Set(0)
	m.edgeTombstones.Set(0)
}
