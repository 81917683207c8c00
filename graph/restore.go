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
	"github.com/pkg/errors"

	"github.com/weaviate/quiver/graph/edgecell"
)

// RestoreNode claims the node slot at exactly id and stamps the diagonal of
// every listed label matrix. Identifiers come from the snapshot; the snapshot
// format guarantees their uniqueness, and a duplicate is reported as an error
// so the driver aborts instead of overwriting a live node.
func (g *Graph) RestoreNode(id uint64, labels []int) (*Node, error) {
	if err := g.checkLabels(labels); err != nil {
		return nil, errors.Wrapf(err, "restore node %d", id)
	}
	if id > MaxNodeID {
		return nil, errors.Errorf("restore node: node id %d overflows the matrix index space", id)
	}

	item, err := g.nodes.AllocateAtIndex(id)
	if err != nil {
		return nil, errors.Wrap(err, "restore node")
	}

	g.stampLabels(id, labels)
	g.metrics.NodeRestored()

	return &Node{ID: id, Labels: append([]int(nil), labels...), Item: item}, nil
}

// RestoreEdge claims the edge slot at exactly id and forms the connection.
// multiEdge tells the connection path whether this relation may hold parallel
// edges; replaying with false a relation that does hold them silently loses
// edges, so the flag must come from the snapshot, not from a guess.
func (g *Graph) RestoreEdge(id, src, dest uint64, relation int, multiEdge bool) (*Edge, error) {
	if err := g.checkRelation(relation); err != nil {
		return nil, errors.Wrapf(err, "restore edge %d", id)
	}
	if id > edgecell.MaxEdgeID {
		return nil, errors.Errorf("restore edge: edge id %d overflows the cell tag bit", id)
	}
	if err := checkEndpoints(src, dest); err != nil {
		return nil, errors.Wrapf(err, "restore edge %d", id)
	}

	item, err := g.edges.AllocateAtIndex(id)
	if err != nil {
		return nil, errors.Wrap(err, "restore edge")
	}

	g.formConnection(src, dest, relation, id, multiEdge)
	g.metrics.EdgeRestored()

	return &Edge{ID: id, Src: src, Dest: dest, Relation: relation, Item: item}, nil
}

// MaterializeNodeLabels projects every label matrix diagonal into its column
// of the combined node-label matrix. Columns are replaced wholesale, so the
// call is idempotent and must run once after all nodes are restored. Running
// it before that leaves the combined matrix stale, never wrong-shaped.
func (g *Graph) MaterializeNodeLabels() {
	for i, lm := range g.labels {
		g.nodeLabels.AssignColumn(uint64(i), lm.Diagonal())
	}

	g.logger.WithField("action", "materialize_node_labels").
		WithField("labels", len(g.labels)).
		Debug("node-label matrix rebuilt from label diagonals")
}

// TombstoneNodeOutOfOrder marks the node slot at id deleted and records the
// identifier for reuse. Replays call this for deletions that predate the
// snapshot, in file order, which the deleted-index list preserves.
func (g *Graph) TombstoneNodeOutOfOrder(id uint64) error {
	if id > MaxNodeID {
		return errors.Errorf("tombstone node: node id %d overflows the matrix index space", id)
	}
	if err := g.nodes.MarkDeletedOutOfOrder(id); err != nil {
		return errors.Wrap(err, "tombstone node")
	}
	g.metrics.NodeTombstoned()
	return nil
}

// TombstoneEdgeOutOfOrder is the edge-class counterpart of
// TombstoneNodeOutOfOrder. Relation cells are left untouched: a replayed
// deletion refers to an edge that was never formed in this process.
func (g *Graph) TombstoneEdgeOutOfOrder(id uint64) error {
	if id > edgecell.MaxEdgeID {
		return errors.Errorf("tombstone edge: edge id %d overflows the cell tag bit", id)
	}
	if err := g.edges.MarkDeletedOutOfOrder(id); err != nil {
		return errors.Wrap(err, "tombstone edge")
	}
	g.metrics.EdgeTombstoned()
	return nil
}

// DeletedNodeIndices returns the node deleted-index list in append order.
// The slice is a live view, not a copy.
func (g *Graph) DeletedNodeIndices() []uint64 {
	return g.nodes.DeletedIndices()
}

// DeletedEdgeIndices returns the edge deleted-index list in append order.
func (g *Graph) DeletedEdgeIndices() []uint64 {
	return g.edges.DeletedIndices()
}
