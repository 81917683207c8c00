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

// Package snapshot persists a graph to a single checksummed file and replays
// such files back into memory. The writer walks live slots and relation
// matrices in deterministic order; the reader is the deserialization driver
// that feeds the graph's restore surface, strictly sequentially. A bbolt
// sidecar keeps the graph's identity and the history of written snapshots.
package snapshot

import (
	"bufio"
	"hash/crc32"
	"io"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/quiver/graph"
	"github.com/weaviate/quiver/graph/datablock"
)

// Info summarizes one snapshot file: the header fields plus the section
// counts and the checksum trailer.
type Info struct {
	Version      uint8
	Labels       int
	Relations    int
	MultiEdge    []bool
	Nodes        uint64
	DeletedNodes uint64
	Edges        uint64
	DeletedEdges uint64
	Checksum     uint32
}

type Writer struct {
	logger  logrus.FieldLogger
	metrics *Metrics
}

// NewWriter builds a snapshot writer. metrics may be shared with a Reader and
// may be nil, which disables instrumentation.
func NewWriter(logger logrus.FieldLogger, metrics *Metrics) *Writer {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Writer{logger: logger, metrics: metrics}
}

// Write persists g to path. The file is assembled under a .tmp name and
// renamed into place only after a successful flush and fsync, so a crash
// mid-write never leaves a partial file under the final name.
func (w *Writer) Write(g *graph.Graph, path string) (*Info, error) {
	start := time.Now()

	info, size, err := w.write(g, path)
	if err != nil {
		w.metrics.Failure("write")
		return nil, err
	}

	w.metrics.WriteDone(start, size)
	w.logger.WithFields(logrus.Fields{
		"action": "snapshot_write",
		"path":   path,
		"nodes":  info.Nodes,
		"edges":  info.Edges,
		"bytes":  size,
	}).Info("snapshot written")

	return info, nil
}

func (w *Writer) write(g *graph.Graph, path string) (info *Info, size int64, err error) {
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "create snapshot file %q", tmp)
	}
	defer f.Close()
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	bufw := bufio.NewWriter(f)
	h := crc32.NewIEEE()

	info, err = writeGraphTo(g, io.MultiWriter(bufw, h))
	if err != nil {
		return nil, 0, errors.Wrapf(err, "writing snapshot file %q", tmp)
	}

	// the trailer itself is not part of the checksum
	info.Checksum = h.Sum32()
	if err = writeUint32(bufw, info.Checksum); err != nil {
		return nil, 0, errors.Wrapf(err, "writing snapshot checksum %q", tmp)
	}

	if err = bufw.Flush(); err != nil {
		return nil, 0, errors.Wrapf(err, "flushing snapshot file %q", tmp)
	}

	if err = f.Sync(); err != nil {
		return nil, 0, errors.Wrapf(err, "fsync snapshot file %q", tmp)
	}

	if err = f.Close(); err != nil {
		return nil, 0, errors.Wrapf(err, "close snapshot file %q", tmp)
	}

	if err = os.Rename(tmp, path); err != nil {
		return nil, 0, errors.Wrapf(err, "rename snapshot file %q", tmp)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "stat snapshot file %q", path)
	}

	return info, fi.Size(), nil
}

// writeGraphTo streams every section except the checksum trailer. Output is
// deterministic: nodes ascend by identifier, edges walk relations in index
// order and their forward matrices row by row, deleted indices keep their
// append order.
func writeGraphTo(g *graph.Graph, w io.Writer) (*Info, error) {
	info := &Info{
		Version:   Version,
		Labels:    g.LabelCount(),
		Relations: g.RelationCount(),
	}

	if err := writeByte(w, Version); err != nil {
		return nil, errors.Wrap(err, "write version")
	}
	if err := writeUint32(w, uint32(info.Labels)); err != nil {
		return nil, errors.Wrap(err, "write label count")
	}
	if err := writeUint32(w, uint32(info.Relations)); err != nil {
		return nil, errors.Wrap(err, "write relation count")
	}

	info.MultiEdge = make([]bool, info.Relations)
	for r := 0; r < info.Relations; r++ {
		info.MultiEdge[r] = g.RelationContainsMultiEdge(r)
		if err := writeBool(w, info.MultiEdge[r]); err != nil {
			return nil, errors.Wrap(err, "write multi-edge flag")
		}
	}

	if err := writeNodeSection(g, w, info); err != nil {
		return nil, err
	}

	if err := writeDeletedSection(w, g.DeletedNodeIndices()); err != nil {
		return nil, errors.Wrap(err, "write deleted nodes")
	}
	info.DeletedNodes = uint64(len(g.DeletedNodeIndices()))

	if err := writeEdgeSection(g, w, info); err != nil {
		return nil, err
	}

	if err := writeDeletedSection(w, g.DeletedEdgeIndices()); err != nil {
		return nil, errors.Wrap(err, "write deleted edges")
	}
	info.DeletedEdges = uint64(len(g.DeletedEdgeIndices()))

	return info, nil
}

// writeNodeSection emits the live nodes only. A tombstoned slot may still
// carry label bits on the diagonals, and those are dropped here: after a
// round trip a deleted identifier answers HasNodeLabel with false until the
// slot is recycled and stamped again.
func writeNodeSection(g *graph.Graph, w io.Writer, info *Info) error {
	// invert the label diagonals once so each node can be written with its
	// full label list in one pass
	labelsOf := make(map[uint64][]uint32)
	for l := 0; l < g.LabelCount(); l++ {
		for _, id := range g.LabelDiagonal(l).ToArray() {
			labelsOf[id] = append(labelsOf[id], uint32(l))
		}
	}

	info.Nodes = uint64(g.NodeCount())
	if err := writeUint64(w, info.Nodes); err != nil {
		return errors.Wrap(err, "write node count")
	}

	var nodeErr error
	g.IterNodes(func(id uint64, item *datablock.Item) {
		if nodeErr != nil {
			return
		}
		nodeErr = writeNode(w, id, labelsOf[id])
	})
	return nodeErr
}

func writeNode(w io.Writer, id uint64, labels []uint32) error {
	if len(labels) > math.MaxUint16 {
		return errors.Errorf("node %d: %d labels overflow uint16", id, len(labels))
	}

	if err := writeUint64(w, id); err != nil {
		return errors.Wrapf(err, "write node %d", id)
	}
	if err := writeUint16(w, uint16(len(labels))); err != nil {
		return errors.Wrapf(err, "write node %d label count", id)
	}
	for _, l := range labels {
		if err := writeUint32(w, l); err != nil {
			return errors.Wrapf(err, "write node %d label", id)
		}
	}
	return nil
}

func writeEdgeSection(g *graph.Graph, w io.Writer, info *Info) error {
	// the relation matrices are the source of truth for edges, so count
	// them there first: the section length precedes the entries
	for r := 0; r < info.Relations; r++ {
		g.IterRelationCells(r, func(src, dest uint64, edgeIDs []uint64) {
			info.Edges += uint64(len(edgeIDs))
		})
	}
	if err := writeUint64(w, info.Edges); err != nil {
		return errors.Wrap(err, "write edge count")
	}

	var edgeErr error
	for r := 0; r < info.Relations; r++ {
		relation := uint32(r)
		g.IterRelationCells(r, func(src, dest uint64, edgeIDs []uint64) {
			if edgeErr != nil {
				return
			}
			for _, id := range edgeIDs {
				if edgeErr = writeEdge(w, id, src, dest, relation); edgeErr != nil {
					return
				}
			}
		})
		if edgeErr != nil {
			return edgeErr
		}
	}
	return nil
}

func writeEdge(w io.Writer, id, src, dest uint64, relation uint32) error {
	if err := writeUint64(w, id); err != nil {
		return errors.Wrapf(err, "write edge %d", id)
	}
	if err := writeUint64(w, src); err != nil {
		return errors.Wrapf(err, "write edge %d source", id)
	}
	if err := writeUint64(w, dest); err != nil {
		return errors.Wrapf(err, "write edge %d destination", id)
	}
	if err := writeUint32(w, relation); err != nil {
		return errors.Wrapf(err, "write edge %d relation", id)
	}
	return nil
}

func writeDeletedSection(w io.Writer, deleted []uint64) error {
	if err := writeUint64(w, uint64(len(deleted))); err != nil {
		return errors.Wrap(err, "write count")
	}
	for _, id := range deleted {
		if err := writeUint64(w, id); err != nil {
			return errors.Wrapf(err, "write deleted id %d", id)
		}
	}
	return nil
}
