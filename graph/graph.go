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

// Package graph holds the sparse-matrix graph representation. Nodes and edges
// live in fixed-identity slot stores; connectivity lives in matrices. Each
// relation owns a forward/transpose matrix pair whose cells pack the edge set
// of one (source, destination) pair into a single 64-bit word: one edge id
// directly, or a tagged handle to an owned edge-id list once parallel edges
// appear. A boolean adjacency pair answers "is there any edge at all", and
// per-label diagonal matrices project into a combined node-label matrix.
//
// All mutation of the matrix pairs goes through this package so the forward
// and transpose mirrors can never disagree. Nothing here locks: a build or
// restore pass is single-writer by contract (the snapshot reader, for one,
// replays strictly sequentially).
package graph

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/weaviate/sroar"

	"github.com/weaviate/quiver/graph/datablock"
	"github.com/weaviate/quiver/graph/edgecell"
	"github.com/weaviate/quiver/graph/matrix"
)

// MaxNodeID is the largest node identifier the graph accepts. Node ids index
// matrix rows and slot stores through int conversions, so the top bit must
// stay clear, the same reservation the edge cells make for their tag bit.
const MaxNodeID = edgecell.MaxEdgeID

// relationState bundles everything one relation owns: the mirrored cell
// matrices, the arena backing its multi-edge lists, and the flag recording
// that at least one cell was ever promoted to a list.
type relationState struct {
	cells     *matrix.Uint64Pair
	arena     *edgecell.Arena
	multiCell bool
}

func (r *relationState) word(src, dest uint64) (edgecell.Word, bool) {
	w, ok := r.cells.Get(src, dest)
	return edgecell.Word(w), ok
}

func (r *relationState) setWord(src, dest uint64, w edgecell.Word) {
	r.cells.Set(src, dest, uint64(w))
}

type Graph struct {
	nodes *datablock.DataBlock
	edges *datablock.DataBlock

	adjacency  *matrix.BoolPair
	relations  []*relationState
	labels     []*matrix.Bool
	nodeLabels *matrix.Columns

	stats   *Statistics
	metrics *Metrics
	logger  logrus.FieldLogger
}

type Option func(*Graph)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// WithPrometheusRegisterer enables graph metrics on reg. Without this option
// metrics stay disabled.
func WithPrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(g *Graph) {
		g.metrics = NewMetrics(reg)
	}
}

func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:      datablock.NewDataBlock(),
		edges:      datablock.NewDataBlock(),
		adjacency:  matrix.NewBoolPair(),
		nodeLabels: matrix.NewColumns(),
		stats:      NewStatistics(),
		logger:     logrus.New(),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.metrics == nil {
		g.metrics = NewMetrics(nil)
	}

	return g
}

// Node is the view handed back when a node slot is claimed. Item is the
// live slot, where the property layer attaches its data.
type Node struct {
	ID     uint64
	Labels []int
	Item   *datablock.Item
}

// Edge is the view handed back when an edge slot is claimed.
type Edge struct {
	ID       uint64
	Src      uint64
	Dest     uint64
	Relation int
	Item     *datablock.Item
}

// AddLabel registers a new label matrix and returns its index. Mapping label
// names to indices belongs to the schema layer above.
func (g *Graph) AddLabel() int {
	g.labels = append(g.labels, matrix.NewBool())
	return len(g.labels) - 1
}

// AddRelation registers a new relation, with its matrix pair and edge-list
// arena, and returns its index.
func (g *Graph) AddRelation() int {
	g.relations = append(g.relations, &relationState{
		cells: matrix.NewUint64Pair(),
		arena: edgecell.NewArena(),
	})
	g.stats.addRelation()
	return len(g.relations) - 1
}

// NewNode claims the next free node slot, recycling tombstoned identifiers
// first, and stamps the label diagonals. This is the normal-operation
// counterpart of RestoreNode.
func (g *Graph) NewNode(labels []int) (*Node, error) {
	if err := g.checkLabels(labels); err != nil {
		return nil, err
	}

	recycled := len(g.nodes.DeletedIndices()) > 0
	id, item := g.nodes.Allocate()
	if recycled {
		g.metrics.NodeRecycled()
	}

	g.stampLabels(id, labels)

	return &Node{ID: id, Labels: append([]int(nil), labels...), Item: item}, nil
}

// NewEdge claims the next free edge slot and forms the connection. multiEdge
// must be true unless the caller knows the relation holds no parallel edges
// and never will through this cell.
func (g *Graph) NewEdge(src, dest uint64, relation int, multiEdge bool) (*Edge, error) {
	if err := g.checkRelation(relation); err != nil {
		return nil, err
	}
	if err := checkEndpoints(src, dest); err != nil {
		return nil, err
	}

	recycled := len(g.edges.DeletedIndices()) > 0
	id, item := g.edges.Allocate()
	if recycled {
		g.metrics.EdgeRecycled()
	}

	g.formConnection(src, dest, relation, id, multiEdge)

	return &Edge{ID: id, Src: src, Dest: dest, Relation: relation, Item: item}, nil
}

// GetNode returns the live node slot at id.
func (g *Graph) GetNode(id uint64) (*datablock.Item, bool) {
	return g.nodes.Get(id)
}

// GetEdge returns the live edge slot at id.
func (g *Graph) GetEdge(id uint64) (*datablock.Item, bool) {
	return g.edges.Get(id)
}

// Connected reports whether any edge of any relation runs src to dest.
func (g *Graph) Connected(src, dest uint64) bool {
	return g.adjacency.Get(src, dest)
}

// ConnectedTransposed reads the adjacency mirror.
func (g *Graph) ConnectedTransposed(dest, src uint64) bool {
	return g.adjacency.GetTransposed(dest, src)
}

// EdgeIDs decodes the forward relation cell at [src, dest] into the edge ids
// it carries, in insertion order. Absent cells and unknown relations decode
// to nil. For multi cells the returned slice is the arena's backing list:
// read-only, valid until the next write to this relation.
func (g *Graph) EdgeIDs(relation int, src, dest uint64) []uint64 {
	if relation < 0 || relation >= len(g.relations) {
		return nil
	}
	r := g.relations[relation]
	w, ok := r.word(src, dest)
	return decodeCell(r, w, ok)
}

// EdgeCellKind reports how the forward relation cell at [src, dest] is
// encoded. Unknown relations read Absent.
func (g *Graph) EdgeCellKind(relation int, src, dest uint64) edgecell.Kind {
	if relation < 0 || relation >= len(g.relations) {
		return edgecell.Absent
	}
	r := g.relations[relation]
	w, ok := r.word(src, dest)
	return edgecell.Decode(w, ok)
}

// EdgeIDsTransposed decodes the transpose cell at [dest, src]. After any
// completed mutation it carries the same ids as the forward cell.
func (g *Graph) EdgeIDsTransposed(relation int, dest, src uint64) []uint64 {
	if relation < 0 || relation >= len(g.relations) {
		return nil
	}
	r := g.relations[relation]
	w, ok := r.cells.GetTransposed(dest, src)
	return decodeCell(r, edgecell.Word(w), ok)
}

// IterRelationCells visits every occupied forward cell of one relation in
// row, then column order. edgeIDs is only valid for the duration of fn.
func (g *Graph) IterRelationCells(relation int, fn func(src, dest uint64, edgeIDs []uint64)) {
	if relation < 0 || relation >= len(g.relations) {
		return
	}

	r := g.relations[relation]
	for row := uint64(0); row < uint64(r.cells.Rows()); row++ {
		for _, col := range r.cells.Cols(row) {
			w, ok := r.word(row, col)
			fn(row, col, decodeCell(r, w, ok))
		}
	}
}

// HasNodeLabel reads the combined node-label matrix. It only reflects label
// stamps after MaterializeNodeLabels has run.
func (g *Graph) HasNodeLabel(id uint64, label int) bool {
	return g.nodeLabels.Get(id, uint64(label))
}

// NodeLabelColumn returns the node-label matrix column of one label, or nil
// when empty. Read-only.
func (g *Graph) NodeLabelColumn(label int) *sroar.Bitmap {
	if label < 0 {
		return nil
	}
	return g.nodeLabels.Column(uint64(label))
}

// LabelDiagonal extracts the diagonal of one label matrix: the set of node
// ids carrying that label. The bitmap is freshly allocated. Unknown labels
// yield an empty bitmap.
func (g *Graph) LabelDiagonal(label int) *sroar.Bitmap {
	if label < 0 || label >= len(g.labels) {
		return sroar.NewBitmap()
	}
	return g.labels[label].Diagonal()
}

// RelationContainsMultiEdge reports whether any cell of the relation was ever
// promoted to an edge list. Snapshot writers persist this so replay can pick
// the single-edge fast path only where it is safe.
func (g *Graph) RelationContainsMultiEdge(relation int) bool {
	if relation < 0 || relation >= len(g.relations) {
		return false
	}
	return g.relations[relation].multiCell
}

// RelationEdgeCount returns the formed-connection count of one relation.
func (g *Graph) RelationEdgeCount(relation int) uint64 {
	return g.stats.EdgeCount(relation)
}

func (g *Graph) NodeCount() int {
	return g.nodes.LiveCount()
}

func (g *Graph) EdgeCount() int {
	return g.edges.LiveCount()
}

func (g *Graph) LabelCount() int {
	return len(g.labels)
}

func (g *Graph) RelationCount() int {
	return len(g.relations)
}

// IterNodes visits every live node slot in ascending identifier order.
func (g *Graph) IterNodes(fn func(id uint64, item *datablock.Item)) {
	g.nodes.IterLive(fn)
}

// Reset returns the graph to its empty state: slots, matrices, registered
// labels and relations, statistics. Arena-owned edge lists are dropped here,
// which is the release step for every multi cell still alive.
func (g *Graph) Reset() {
	g.nodes.Reset()
	g.edges.Reset()
	g.adjacency.Reset()
	for _, r := range g.relations {
		r.cells.Reset()
		r.arena.Reset()
	}
	g.relations = nil
	g.labels = nil
	g.nodeLabels.Reset()
	g.stats.reset()
	g.metrics.Reset()

	g.logger.WithField("action", "graph_reset").Debug("graph reset to empty state")
}

func decodeCell(r *relationState, w edgecell.Word, ok bool) []uint64 {
	switch edgecell.Decode(w, ok) {
	case edgecell.Absent:
		return nil
	case edgecell.Single:
		id, _ := w.Single()
		return []uint64{id}
	default:
		return r.arena.Edges(w)
	}
}

func (g *Graph) stampLabels(id uint64, labels []int) {
	for _, l := range labels {
		g.labels[l].Set(id, id)
	}
}

func (g *Graph) checkLabels(labels []int) error {
	for _, l := range labels {
		if l < 0 || l >= len(g.labels) {
			return errors.Errorf("label %d not registered, have %d labels", l, len(g.labels))
		}
	}
	return nil
}

func (g *Graph) checkRelation(relation int) error {
	if relation < 0 || relation >= len(g.relations) {
		return errors.Errorf("relation %d not registered, have %d relations", relation, len(g.relations))
	}
	return nil
}

func checkEndpoints(src, dest uint64) error {
	if src > MaxNodeID {
		return errors.Errorf("source id %d overflows the matrix index space", src)
	}
	if dest > MaxNodeID {
		return errors.Errorf("destination id %d overflows the matrix index space", dest)
	}
	return nil
}
