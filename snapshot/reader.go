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
	"bufio"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
	"time"

	"github.com/edsrzf/mmap-go"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/quiver/graph"
)

type Reader struct {
	logger  logrus.FieldLogger
	metrics *Metrics
}

// NewReader builds a snapshot reader. metrics may be shared with a Writer and
// may be nil, which disables instrumentation.
func NewReader(logger logrus.FieldLogger, metrics *Metrics) *Reader {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Reader{logger: logger, metrics: metrics}
}

// Restore replays the snapshot at path into a fresh graph. The file is read
// twice: a first sequential pass hashes the payload and compares it against
// the checksum trailer, a second pass replays the verified sections. Like
// RestoreMapped, a corrupted file is rejected before any of it is replayed.
//
// graphOpts are passed through to the graph constructor. The reader's own
// logger is applied first, so callers can still override it.
func (r *Reader) Restore(path string, graphOpts ...graph.Option) (*graph.Graph, *Info, error) {
	start := time.Now()

	g, info, err := r.restore(path, graphOpts)
	if err != nil {
		r.metrics.Failure("restore")
		return nil, nil, err
	}

	r.metrics.RestoreDone(start)
	r.logRestored(path, info)
	return g, info, nil
}

func (r *Reader) restore(path string, graphOpts []graph.Option) (*graph.Graph, *Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open snapshot file %q", path)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "stat snapshot file %q", path)
	}
	if fi.Size() < byteSize+uint32Size {
		return nil, nil, errors.Errorf("corrupted snapshot file %q, truncated", path)
	}
	payloadSize := fi.Size() - uint32Size

	h := crc32.NewIEEE()
	if _, err := io.CopyN(h, f, payloadSize); err != nil {
		return nil, nil, errors.Wrapf(err, "reading snapshot file %q", path)
	}
	expected, err := readUint32(f)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading snapshot checksum %q", path)
	}
	if expected != h.Sum32() {
		return nil, nil, errors.Errorf("corrupted snapshot file %q, checksum mismatch", path)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, nil, errors.Wrapf(err, "rewind snapshot file %q", path)
	}
	bufr := bufio.NewReader(io.LimitReader(f, payloadSize))

	g, info, err := r.replay(bufr, graphOpts)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading snapshot file %q", path)
	}
	info.Checksum = expected

	if _, err := bufr.ReadByte(); err == nil {
		return nil, nil, errors.Errorf("snapshot file %q has trailing data", path)
	} else if err != io.EOF {
		return nil, nil, errors.Wrapf(err, "reading snapshot file %q", path)
	}

	return g, info, nil
}

// RestoreMapped memory-maps the snapshot and verifies the checksum over the
// whole payload before any of it is replayed, so a corrupted file is rejected
// without mutating state.
func (r *Reader) RestoreMapped(path string, graphOpts ...graph.Option) (*graph.Graph, *Info, error) {
	start := time.Now()

	g, info, err := r.restoreMapped(path, graphOpts)
	if err != nil {
		r.metrics.Failure("restore")
		return nil, nil, err
	}

	r.metrics.RestoreDone(start)
	r.logRestored(path, info)
	return g, info, nil
}

func (r *Reader) restoreMapped(path string, graphOpts []graph.Option) (g *graph.Graph, info *Info, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open snapshot file %q", path)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "stat snapshot file %q", path)
	}

	contents, err := mmap.MapRegion(f, int(fi.Size()), mmap.RDONLY, 0, 0)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "mmap snapshot file %q", path)
	}
	defer func() {
		if unmapErr := contents.Unmap(); unmapErr != nil {
			err = multierror.Append(err, errors.Wrapf(unmapErr, "unmap snapshot file %q", path))
			g, info = nil, nil
		}
	}()

	if len(contents) < byteSize+uint32Size {
		return nil, nil, errors.Errorf("corrupted snapshot file %q, truncated", path)
	}

	payload := contents[:len(contents)-uint32Size]
	expected := binary.LittleEndian.Uint32(contents[len(contents)-uint32Size:])
	if crc32.ChecksumIEEE(payload) != expected {
		return nil, nil, errors.Errorf("corrupted snapshot file %q, checksum mismatch", path)
	}

	rd := bytes.NewReader(payload)
	g, info, err = r.replay(rd, graphOpts)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading snapshot file %q", path)
	}
	info.Checksum = expected

	if rd.Len() != 0 {
		return nil, nil, errors.Errorf("snapshot file %q has trailing data", path)
	}

	return g, info, nil
}

// replay drives the graph's restore surface from the serialized sections in
// file order. Nodes must be replayed before edges so the edge endpoints'
// slots exist, and label materialization runs once all nodes are in.
func (r *Reader) replay(rd io.Reader, graphOpts []graph.Option) (*graph.Graph, *Info, error) {
	version, err := readByte(rd)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read version")
	}
	if version > Version {
		return nil, nil, errors.Errorf("unsupported snapshot version %d, max supported %d", version, Version)
	}

	info := &Info{Version: version}

	labelCount, err := readUint32(rd)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read label count")
	}
	relationCount, err := readUint32(rd)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read relation count")
	}
	info.Labels = int(labelCount)
	info.Relations = int(relationCount)

	opts := append([]graph.Option{graph.WithLogger(r.logger)}, graphOpts...)
	g := graph.New(opts...)

	for i := 0; i < info.Labels; i++ {
		g.AddLabel()
	}

	info.MultiEdge = make([]bool, info.Relations)
	for i := 0; i < info.Relations; i++ {
		g.AddRelation()
		if info.MultiEdge[i], err = readBool(rd); err != nil {
			return nil, nil, errors.Wrap(err, "read multi-edge flag")
		}
	}

	if info.Nodes, err = replayNodes(rd, g); err != nil {
		return nil, nil, err
	}
	g.MaterializeNodeLabels()

	if info.DeletedNodes, err = replayDeleted(rd, g.TombstoneNodeOutOfOrder); err != nil {
		return nil, nil, errors.Wrap(err, "replay deleted nodes")
	}

	if info.Edges, err = replayEdges(rd, g, info.MultiEdge); err != nil {
		return nil, nil, err
	}

	if info.DeletedEdges, err = replayDeleted(rd, g.TombstoneEdgeOutOfOrder); err != nil {
		return nil, nil, errors.Wrap(err, "replay deleted edges")
	}

	return g, info, nil
}

func replayNodes(rd io.Reader, g *graph.Graph) (uint64, error) {
	count, err := readUint64(rd)
	if err != nil {
		return 0, errors.Wrap(err, "read node count")
	}

	var labels []int
	for i := uint64(0); i < count; i++ {
		id, err := readUint64(rd)
		if err != nil {
			return 0, errors.Wrapf(err, "read node %d of %d", i, count)
		}
		if id > MaxID {
			return 0, errors.Errorf("node id %d out of range, max %d", id, MaxID)
		}
		labelCount, err := readUint16(rd)
		if err != nil {
			return 0, errors.Wrapf(err, "read node %d label count", id)
		}

		labels = labels[:0]
		for j := uint16(0); j < labelCount; j++ {
			l, err := readUint32(rd)
			if err != nil {
				return 0, errors.Wrapf(err, "read node %d label", id)
			}
			labels = append(labels, int(l))
		}

		if _, err := g.RestoreNode(id, labels); err != nil {
			return 0, err
		}
	}
	return count, nil
}

func replayEdges(rd io.Reader, g *graph.Graph, multiEdge []bool) (uint64, error) {
	count, err := readUint64(rd)
	if err != nil {
		return 0, errors.Wrap(err, "read edge count")
	}

	for i := uint64(0); i < count; i++ {
		id, err := readUint64(rd)
		if err != nil {
			return 0, errors.Wrapf(err, "read edge %d of %d", i, count)
		}
		if id > MaxID {
			return 0, errors.Errorf("edge id %d out of range, max %d", id, MaxID)
		}
		src, err := readUint64(rd)
		if err != nil {
			return 0, errors.Wrapf(err, "read edge %d source", id)
		}
		dest, err := readUint64(rd)
		if err != nil {
			return 0, errors.Wrapf(err, "read edge %d destination", id)
		}
		if src > MaxID || dest > MaxID {
			return 0, errors.Errorf("edge %d endpoint %d -> %d out of range, max %d", id, src, dest, MaxID)
		}
		relation, err := readUint32(rd)
		if err != nil {
			return 0, errors.Wrapf(err, "read edge %d relation", id)
		}
		if int(relation) >= len(multiEdge) {
			return 0, errors.Errorf("edge %d references unknown relation %d", id, relation)
		}

		if _, err := g.RestoreEdge(id, src, dest, int(relation), multiEdge[relation]); err != nil {
			return 0, err
		}
	}
	return count, nil
}

func replayDeleted(rd io.Reader, tombstone func(uint64) error) (uint64, error) {
	count, err := readUint64(rd)
	if err != nil {
		return 0, errors.Wrap(err, "read count")
	}

	for i := uint64(0); i < count; i++ {
		id, err := readUint64(rd)
		if err != nil {
			return 0, errors.Wrapf(err, "read deleted id %d of %d", i, count)
		}
		if id > MaxID {
			return 0, errors.Errorf("deleted id %d out of range, max %d", id, MaxID)
		}
		if err := tombstone(id); err != nil {
			return 0, err
		}
	}
	return count, nil
}

func (r *Reader) logRestored(path string, info *Info) {
	r.logger.WithFields(logrus.Fields{
		"action": "snapshot_restore",
		"path":   path,
		"nodes":  info.Nodes,
		"edges":  info.Edges,
	}).Info("snapshot restored")
}
