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
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/quiver/graph"
)

func testLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

// buildSampleGraph assembles a graph touching every serialized section:
// labeled and unlabeled nodes, parallel edges, single edges, and tombstones
// in both slot classes, including ids that were never allocated.
func buildSampleGraph(t *testing.T) (*graph.Graph, int, int) {
	g := graph.New(graph.WithLogger(testLogger()))

	person := g.AddLabel()
	city := g.AddLabel()
	knows := g.AddRelation()
	visited := g.AddRelation()

	for _, labels := range [][]int{
		{person},         // node 0
		{person, city},   // node 1
		{city},           // node 2
		nil,              // node 3
		{person},         // node 4
	} {
		_, err := g.NewNode(labels)
		require.Nil(t, err)
	}
	g.MaterializeNodeLabels()

	_, err := g.NewEdge(0, 1, knows, true) // edge 0
	require.Nil(t, err)
	_, err = g.NewEdge(0, 1, knows, true) // edge 1, promotes (0,1) to multi
	require.Nil(t, err)
	_, err = g.NewEdge(1, 2, visited, false) // edge 2
	require.Nil(t, err)
	_, err = g.NewEdge(4, 0, knows, true) // edge 3
	require.Nil(t, err)

	require.Nil(t, g.TombstoneNodeOutOfOrder(3))
	require.Nil(t, g.TombstoneNodeOutOfOrder(7))
	require.Nil(t, g.TombstoneEdgeOutOfOrder(9))

	return g, knows, visited
}

type relationCell struct {
	src, dest uint64
	ids       []uint64
}

func relationCells(g *graph.Graph, relation int) []relationCell {
	var out []relationCell
	g.IterRelationCells(relation, func(src, dest uint64, edgeIDs []uint64) {
		out = append(out, relationCell{
			src:  src,
			dest: dest,
			ids:  append([]uint64(nil), edgeIDs...),
		})
	})
	return out
}

// resealChecksum recomputes the crc32 trailer over everything before it, so
// a deliberately tampered payload still passes the integrity check.
func resealChecksum(raw []byte) {
	binary.LittleEndian.PutUint32(raw[len(raw)-uint32Size:],
		crc32.ChecksumIEEE(raw[:len(raw)-uint32Size]))
}

// tinySnapshot writes a graph with one live node (id 0), one tombstoned node
// (id 1) and no relations, then returns the raw bytes. The fixed layout puts
// the live node id at bytes 17-24 and the deleted id at bytes 35-42, which
// the corruption tests patch directly.
func tinySnapshot(t *testing.T, w *Writer, path string) []byte {
	g := graph.New(graph.WithLogger(testLogger()))
	_, err := g.RestoreNode(0, nil)
	require.Nil(t, err)
	require.Nil(t, g.TombstoneNodeOutOfOrder(1))

	_, err = w.Write(g, path)
	require.Nil(t, err)

	raw, err := os.ReadFile(path)
	require.Nil(t, err)
	return raw
}

func assertGraphsEqual(t *testing.T, want, got *graph.Graph) {
	require.Equal(t, want.LabelCount(), got.LabelCount())
	require.Equal(t, want.RelationCount(), got.RelationCount())
	assert.Equal(t, want.NodeCount(), got.NodeCount())
	assert.Equal(t, want.EdgeCount(), got.EdgeCount())
	assert.Equal(t, want.DeletedNodeIndices(), got.DeletedNodeIndices())
	assert.Equal(t, want.DeletedEdgeIndices(), got.DeletedEdgeIndices())

	for l := 0; l < want.LabelCount(); l++ {
		assert.Equal(t, want.LabelDiagonal(l).ToArray(), got.LabelDiagonal(l).ToArray(),
			"label %d diagonal", l)
	}

	for r := 0; r < want.RelationCount(); r++ {
		assert.Equal(t, want.RelationContainsMultiEdge(r), got.RelationContainsMultiEdge(r),
			"relation %d multi-edge flag", r)
		assert.Equal(t, want.RelationEdgeCount(r), got.RelationEdgeCount(r),
			"relation %d edge count", r)
		assert.Equal(t, relationCells(want, r), relationCells(got, r),
			"relation %d cells", r)

		for _, c := range relationCells(want, r) {
			assert.True(t, got.Connected(c.src, c.dest))
			assert.True(t, got.ConnectedTransposed(c.dest, c.src))
		}
	}
}

func TestWriteRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	g, _, _ := buildSampleGraph(t)

	w := NewWriter(testLogger(), nil)
	r := NewReader(testLogger(), nil)

	path := filepath.Join(dir, "graph.snapshot")
	info, err := w.Write(g, path)
	require.Nil(t, err)

	t.Run("info reports the section counts", func(t *testing.T) {
		assert.Equal(t, Version, info.Version)
		assert.Equal(t, 2, info.Labels)
		assert.Equal(t, 2, info.Relations)
		assert.Equal(t, []bool{true, false}, info.MultiEdge)
		assert.Equal(t, uint64(4), info.Nodes)
		assert.Equal(t, uint64(2), info.DeletedNodes)
		assert.Equal(t, uint64(4), info.Edges)
		assert.Equal(t, uint64(1), info.DeletedEdges)
		assert.NotEqual(t, uint32(0), info.Checksum)
	})

	t.Run("streaming restore matches the source graph", func(t *testing.T) {
		restored, restoredInfo, err := r.Restore(path)
		require.Nil(t, err)
		assert.Equal(t, info, restoredInfo)
		assertGraphsEqual(t, g, restored)
	})

	t.Run("mapped restore matches the source graph", func(t *testing.T) {
		restored, restoredInfo, err := r.RestoreMapped(path)
		require.Nil(t, err)
		assert.Equal(t, info, restoredInfo)
		assertGraphsEqual(t, g, restored)
	})

	t.Run("allocators continue where the source graph left off", func(t *testing.T) {
		restored, _, err := r.Restore(path)
		require.Nil(t, err)

		// tombstoned slots are recycled newest first, then the tail resumes
		// past the highest id the snapshot mentioned
		n, err := restored.NewNode(nil)
		require.Nil(t, err)
		assert.Equal(t, uint64(7), n.ID)
		n, err = restored.NewNode(nil)
		require.Nil(t, err)
		assert.Equal(t, uint64(3), n.ID)
		n, err = restored.NewNode(nil)
		require.Nil(t, err)
		assert.Equal(t, uint64(8), n.ID)

		e, err := restored.NewEdge(0, 2, 1, false)
		require.Nil(t, err)
		assert.Equal(t, uint64(9), e.ID)
		e, err = restored.NewEdge(2, 0, 1, false)
		require.Nil(t, err)
		assert.Equal(t, uint64(10), e.ID)
	})

	t.Run("rewriting an unchanged graph is byte identical", func(t *testing.T) {
		other := filepath.Join(dir, "graph-again.snapshot")
		otherInfo, err := w.Write(g, other)
		require.Nil(t, err)
		assert.Equal(t, info.Checksum, otherInfo.Checksum)

		a, err := os.ReadFile(path)
		require.Nil(t, err)
		b, err := os.ReadFile(other)
		require.Nil(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("empty graph round trips", func(t *testing.T) {
		empty := graph.New(graph.WithLogger(testLogger()))
		emptyPath := filepath.Join(dir, "empty.snapshot")

		emptyInfo, err := w.Write(empty, emptyPath)
		require.Nil(t, err)
		assert.Equal(t, uint64(0), emptyInfo.Nodes)
		assert.Equal(t, uint64(0), emptyInfo.Edges)

		restored, _, err := r.Restore(emptyPath)
		require.Nil(t, err)
		assert.Equal(t, 0, restored.NodeCount())
		assert.Equal(t, 0, restored.LabelCount())
		assert.Equal(t, 0, restored.RelationCount())
	})

	t.Run("tombstoned nodes shed their label bits on the way through", func(t *testing.T) {
		labeled := graph.New(graph.WithLogger(testLogger()))
		l := labeled.AddLabel()
		_, err := labeled.RestoreNode(0, []int{l})
		require.Nil(t, err)
		_, err = labeled.RestoreNode(1, []int{l})
		require.Nil(t, err)
		labeled.MaterializeNodeLabels()
		require.Nil(t, labeled.TombstoneNodeOutOfOrder(0))

		// tombstoning leaves the diagonals alone, so the live graph still
		// answers true for the deleted id
		require.True(t, labeled.HasNodeLabel(0, l))

		p := filepath.Join(dir, "tombstoned-label.snapshot")
		_, err = w.Write(labeled, p)
		require.Nil(t, err)
		restored, _, err := r.Restore(p)
		require.Nil(t, err)

		// only live nodes carry labels through the file
		assert.False(t, restored.HasNodeLabel(0, l))
		assert.True(t, restored.HasNodeLabel(1, l))
		assert.Equal(t, []uint64{1}, restored.LabelDiagonal(l).ToArray())
		assert.Equal(t, []uint64{0}, restored.DeletedNodeIndices())
	})

	t.Run("temporary file is cleaned up", func(t *testing.T) {
		_, err := os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err))
	})
}

func TestRestoreRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	g, _, _ := buildSampleGraph(t)

	w := NewWriter(testLogger(), nil)
	r := NewReader(testLogger(), nil)

	path := filepath.Join(dir, "graph.snapshot")
	_, err := w.Write(g, path)
	require.Nil(t, err)

	valid, err := os.ReadFile(path)
	require.Nil(t, err)

	t.Run("missing file", func(t *testing.T) {
		_, _, err := r.Restore(filepath.Join(dir, "nope.snapshot"))
		assert.NotNil(t, err)
		_, _, err = r.RestoreMapped(filepath.Join(dir, "nope.snapshot"))
		assert.NotNil(t, err)
	})

	t.Run("corrupted trailer fails the checksum", func(t *testing.T) {
		corrupt := append([]byte(nil), valid...)
		corrupt[len(corrupt)-1] ^= 0xff
		p := filepath.Join(dir, "bad-trailer.snapshot")
		require.Nil(t, os.WriteFile(p, corrupt, 0o666))

		_, _, err := r.Restore(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "checksum mismatch")
	})

	t.Run("mapped restore verifies the checksum before replay", func(t *testing.T) {
		corrupt := append([]byte(nil), valid...)
		corrupt[len(corrupt)/2] ^= 0xff
		p := filepath.Join(dir, "bad-middle.snapshot")
		require.Nil(t, os.WriteFile(p, corrupt, 0o666))

		_, _, err := r.RestoreMapped(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "checksum mismatch")
	})

	t.Run("truncated file", func(t *testing.T) {
		p := filepath.Join(dir, "truncated.snapshot")
		require.Nil(t, os.WriteFile(p, valid[:len(valid)/2], 0o666))
		_, _, err := r.Restore(p)
		assert.NotNil(t, err)

		p = filepath.Join(dir, "stub.snapshot")
		require.Nil(t, os.WriteFile(p, valid[:3], 0o666))
		_, _, err = r.Restore(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "truncated")
		_, _, err = r.RestoreMapped(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "truncated")
	})

	t.Run("unsupported version", func(t *testing.T) {
		// the checksum is verified before any section is read, so the
		// version byte has to be patched together with the trailer
		patched := append([]byte(nil), valid...)
		patched[0] = 9
		resealChecksum(patched)
		p := filepath.Join(dir, "future.snapshot")
		require.Nil(t, os.WriteFile(p, patched, 0o666))

		_, _, err := r.Restore(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "unsupported snapshot version 9")

		_, _, err = r.RestoreMapped(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "unsupported snapshot version 9")
	})

	t.Run("trailing data", func(t *testing.T) {
		// surplus bytes inside a correctly checksummed payload: junk goes in
		// front of the trailer, and the trailer is resealed over it
		tampered := append([]byte(nil), valid[:len(valid)-uint32Size]...)
		tampered = append(tampered, 0x00)
		tampered = append(tampered, valid[len(valid)-uint32Size:]...)
		resealChecksum(tampered)
		p := filepath.Join(dir, "trailing.snapshot")
		require.Nil(t, os.WriteFile(p, tampered, 0o666))

		_, _, err := r.Restore(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "trailing data")

		_, _, err = r.RestoreMapped(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "trailing data")
	})

	t.Run("bytes appended after the trailer fail the checksum", func(t *testing.T) {
		p := filepath.Join(dir, "appended.snapshot")
		require.Nil(t, os.WriteFile(p, append(append([]byte(nil), valid...), 0x00), 0o666))

		_, _, err := r.Restore(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "checksum mismatch")

		_, _, err = r.RestoreMapped(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "checksum mismatch")
	})

	t.Run("payload corruption is caught before any replay", func(t *testing.T) {
		raw := tinySnapshot(t, w, filepath.Join(dir, "tiny.snapshot"))
		raw[24] ^= 0x80 // most significant byte of the live node id
		p := filepath.Join(dir, "bad-node-id.snapshot")
		require.Nil(t, os.WriteFile(p, raw, 0o666))

		_, _, err := r.Restore(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "checksum mismatch")
	})

	t.Run("node ids beyond the replayable range are rejected", func(t *testing.T) {
		raw := tinySnapshot(t, w, filepath.Join(dir, "tiny.snapshot"))
		binary.LittleEndian.PutUint64(raw[17:], uint64(1)<<45)
		resealChecksum(raw)
		p := filepath.Join(dir, "huge-node-id.snapshot")
		require.Nil(t, os.WriteFile(p, raw, 0o666))

		_, _, err := r.Restore(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "out of range")

		_, _, err = r.RestoreMapped(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("deleted ids beyond the replayable range are rejected", func(t *testing.T) {
		raw := tinySnapshot(t, w, filepath.Join(dir, "tiny.snapshot"))
		binary.LittleEndian.PutUint64(raw[35:], uint64(1)<<45)
		resealChecksum(raw)
		p := filepath.Join(dir, "huge-deleted-id.snapshot")
		require.Nil(t, os.WriteFile(p, raw, 0o666))

		_, _, err := r.Restore(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("edge endpoints beyond the replayable range are rejected", func(t *testing.T) {
		lone := graph.New(graph.WithLogger(testLogger()))
		rel := lone.AddRelation()
		_, err := lone.RestoreEdge(0, 1, 2, rel, true)
		require.Nil(t, err)

		p := filepath.Join(dir, "edge-endpoint.snapshot")
		_, err = w.Write(lone, p)
		require.Nil(t, err)
		raw, err := os.ReadFile(p)
		require.Nil(t, err)

		// the source endpoint of the only edge sits at bytes 42-49
		binary.LittleEndian.PutUint64(raw[42:], uint64(1)<<45)
		resealChecksum(raw)
		require.Nil(t, os.WriteFile(p, raw, 0o666))

		_, _, err = r.Restore(p)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})
}

func TestSnapshotMetrics(t *testing.T) {
	t.Run("writer and reader share one metrics instance", func(t *testing.T) {
		dir := t.TempDir()
		g, _, _ := buildSampleGraph(t)

		reg := prometheus.NewPedanticRegistry()
		metrics := NewMetrics(reg)
		w := NewWriter(testLogger(), metrics)
		r := NewReader(testLogger(), metrics)

		path := filepath.Join(dir, "graph.snapshot")
		_, err := w.Write(g, path)
		require.Nil(t, err)
		_, _, err = r.Restore(path)
		require.Nil(t, err)
		_, _, err = r.Restore(filepath.Join(dir, "nope.snapshot"))
		require.NotNil(t, err)

		assert.Greater(t, testutil.ToFloat64(metrics.snapshotSize), float64(0))
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.failures.WithLabelValues("restore")))

		families, err := reg.Gather()
		require.Nil(t, err)

		var writeSamples, restoreSamples uint64
		for _, fam := range families {
			switch fam.GetName() {
			case "quiver_snapshot_write_duration_seconds":
				writeSamples = fam.GetMetric()[0].GetHistogram().GetSampleCount()
			case "quiver_snapshot_restore_duration_seconds":
				restoreSamples = fam.GetMetric()[0].GetHistogram().GetSampleCount()
			}
		}
		assert.Equal(t, uint64(1), writeSamples)
		assert.Equal(t, uint64(1), restoreSamples)
	})

	t.Run("nil metrics disable instrumentation", func(t *testing.T) {
		dir := t.TempDir()
		g, _, _ := buildSampleGraph(t)

		w := NewWriter(testLogger(), nil)
		r := NewReader(testLogger(), nil)

		path := filepath.Join(dir, "graph.snapshot")
		_, err := w.Write(g, path)
		require.Nil(t, err)
		_, _, err = r.Restore(path)
		require.Nil(t, err)
	})
}
