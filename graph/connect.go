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

// FormConnection records one edge in the matrices: adjacency at [src, dest]
// plus its mirror, and the relation cell pair at the same coordinates.
//
// With multiEdge false the relation cell is written as a single-edge word
// unconditionally. That is only sound when the caller guarantees the cell is
// empty, which in practice means replaying a relation whose snapshot header
// says it never held parallel edges. With multiEdge true the existing cell is
// decoded first: an absent cell takes the single-edge word, a single cell is
// promoted to a fresh owned edge list carrying both ids, a multi cell has the
// id appended in place.
//
// Forward and transpose always change in the same call. The per-relation
// statistic counts every call, including repeats of the same node pair.
func (g *Graph) FormConnection(src, dest uint64, relation int, edgeID uint64, multiEdge bool) error {
	if err := g.checkRelation(relation); err != nil {
		return errors.Wrap(err, "form connection")
	}
	if edgeID > edgecell.MaxEdgeID {
		return errors.Errorf("form connection: edge id %d overflows the cell tag bit", edgeID)
	}
	if err := checkEndpoints(src, dest); err != nil {
		return errors.Wrap(err, "form connection")
	}

	g.formConnection(src, dest, relation, edgeID, multiEdge)
	return nil
}

// formConnection is the validated core. Callers have checked the relation
// index, the edge id bound and the endpoint bounds.
func (g *Graph) formConnection(src, dest uint64, relation int, edgeID uint64, multiEdge bool) {
	g.adjacency.Set(src, dest)

	r := g.relations[relation]
	if !multiEdge {
		r.setWord(src, dest, edgecell.EncodeSingle(edgeID))
	} else {
		w, ok := r.word(src, dest)
		switch edgecell.Decode(w, ok) {
		case edgecell.Absent:
			r.setWord(src, dest, edgecell.EncodeSingle(edgeID))
		case edgecell.Single:
			existing, _ := w.Single()
			r.setWord(src, dest, r.arena.PromoteToMulti(existing, edgeID))
			r.multiCell = true
			g.metrics.MultiEdgePromoted()
		case edgecell.Multi:
			r.setWord(src, dest, r.arena.AppendToMulti(w, edgeID))
		}
	}

	g.stats.incEdgeCount(relation)
}
