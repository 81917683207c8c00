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

package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/sroar"
)

func TestGrownSize(t *testing.T) {
	t.Run("small sizes grow by the fixed delta", func(t *testing.T) {
		size := grownSize(0, 0)
		assert.Equal(t, growthDelta, size)
	})

	t.Run("large sizes grow geometrically", func(t *testing.T) {
		size := grownSize(100_000, 100_000)
		assert.Equal(t, 125_000, size)
	})

	t.Run("far out-of-order index jumps straight to fit", func(t *testing.T) {
		size := grownSize(10, 1_000_000)
		assert.Greater(t, size, 1_000_000)
	})

	t.Run("result always covers the requested index", func(t *testing.T) {
		for _, id := range []uint64{0, 1, 1999, 2000, 2001, 77_777} {
			assert.Greater(t, grownSize(0, id), int(id))
		}
	})
}

func TestBool(t *testing.T) {
	t.Run("unset cells read false", func(t *testing.T) {
		b := NewBool()
		assert.False(t, b.Get(0, 0))
		assert.False(t, b.Get(123, 456))
	})

	t.Run("set then get", func(t *testing.T) {
		b := NewBool()
		b.Set(3, 7)
		assert.True(t, b.Get(3, 7))
		assert.False(t, b.Get(7, 3))
	})

	t.Run("setting the same cell twice is idempotent", func(t *testing.T) {
		b := NewBool()
		b.Set(1, 2)
		b.Set(1, 2)
		assert.True(t, b.Get(1, 2))
		assert.Equal(t, 1, b.Row(1).GetCardinality())
	})

	t.Run("rows grow on demand", func(t *testing.T) {
		b := NewBool()
		b.Set(50_000, 1)
		assert.True(t, b.Get(50_000, 1))
		assert.Greater(t, b.Rows(), 50_000)
	})

	t.Run("row view reflects all columns of a row", func(t *testing.T) {
		b := NewBool()
		b.Set(4, 10)
		b.Set(4, 20)
		b.Set(4, 30)

		row := b.Row(4)
		require.NotNil(t, row)
		assert.Equal(t, []uint64{10, 20, 30}, row.ToArray())
	})

	t.Run("row view of an empty row is nil", func(t *testing.T) {
		b := NewBool()
		b.Set(4, 10)
		assert.Nil(t, b.Row(3))
		assert.Nil(t, b.Row(400))
	})

	t.Run("diagonal collects exactly the [i,i] cells", func(t *testing.T) {
		b := NewBool()
		b.Set(0, 0)
		b.Set(2, 2)
		b.Set(2, 5)
		b.Set(9, 9)
		b.Set(5, 2)

		assert.Equal(t, []uint64{0, 2, 9}, b.Diagonal().ToArray())
	})

	t.Run("reset drops everything", func(t *testing.T) {
		b := NewBool()
		b.Set(1, 1)
		b.Reset()
		assert.False(t, b.Get(1, 1))
		assert.Equal(t, 0, b.Rows())
	})
}

func TestBoolPair(t *testing.T) {
	t.Run("every set mirrors into the transpose", func(t *testing.T) {
		p := NewBoolPair()
		p.Set(1, 2)
		p.Set(1, 3)
		p.Set(7, 1)

		assert.True(t, p.Get(1, 2))
		assert.True(t, p.GetTransposed(2, 1))
		assert.True(t, p.Get(1, 3))
		assert.True(t, p.GetTransposed(3, 1))
		assert.True(t, p.Get(7, 1))
		assert.True(t, p.GetTransposed(1, 7))
	})

	t.Run("transpose does not leak into the forward orientation", func(t *testing.T) {
		p := NewBoolPair()
		p.Set(1, 2)
		assert.False(t, p.Get(2, 1))
		assert.False(t, p.GetTransposed(1, 2))
	})

	t.Run("self loop occupies the diagonal in both orientations", func(t *testing.T) {
		p := NewBoolPair()
		p.Set(5, 5)
		assert.True(t, p.Get(5, 5))
		assert.True(t, p.GetTransposed(5, 5))
	})

	t.Run("reset clears both orientations", func(t *testing.T) {
		p := NewBoolPair()
		p.Set(1, 2)
		p.Reset()
		assert.False(t, p.Get(1, 2))
		assert.False(t, p.GetTransposed(2, 1))
	})
}

func TestUint64(t *testing.T) {
	t.Run("absent cells are distinguishable from stored zero", func(t *testing.T) {
		m := NewUint64()
		_, ok := m.Get(0, 0)
		assert.False(t, ok)

		m.Set(0, 0, 0)
		v, ok := m.Get(0, 0)
		assert.True(t, ok)
		assert.Equal(t, uint64(0), v)
	})

	t.Run("set overwrites the prior word", func(t *testing.T) {
		m := NewUint64()
		m.Set(2, 3, 100)
		m.Set(2, 3, 200)

		v, ok := m.Get(2, 3)
		assert.True(t, ok)
		assert.Equal(t, uint64(200), v)
		assert.Equal(t, 1, m.Len())
	})

	t.Run("len counts present cells", func(t *testing.T) {
		m := NewUint64()
		m.Set(0, 1, 1)
		m.Set(0, 2, 2)
		m.Set(5, 1, 3)
		assert.Equal(t, 3, m.Len())
	})

	t.Run("cols returns ascending column indices", func(t *testing.T) {
		m := NewUint64()
		m.Set(4, 30, 1)
		m.Set(4, 10, 2)
		m.Set(4, 20, 3)

		assert.Equal(t, []uint64{10, 20, 30}, m.Cols(4))
		assert.Nil(t, m.Cols(3))
		assert.Nil(t, m.Cols(400))
	})

	t.Run("rows grow on demand", func(t *testing.T) {
		m := NewUint64()
		m.Set(80_000, 0, 9)
		v, ok := m.Get(80_000, 0)
		assert.True(t, ok)
		assert.Equal(t, uint64(9), v)
		assert.Greater(t, m.Rows(), 80_000)
	})

	t.Run("reset drops everything", func(t *testing.T) {
		m := NewUint64()
		m.Set(1, 1, 1)
		m.Reset()
		_, ok := m.Get(1, 1)
		assert.False(t, ok)
		assert.Equal(t, 0, m.Len())
	})
}

func TestUint64Pair(t *testing.T) {
	t.Run("forward and transpose carry the same word", func(t *testing.T) {
		p := NewUint64Pair()
		p.Set(1, 2, 42)

		fw, ok := p.Get(1, 2)
		require.True(t, ok)
		tr, ok := p.GetTransposed(2, 1)
		require.True(t, ok)
		assert.Equal(t, fw, tr)
		assert.Equal(t, uint64(42), fw)
	})

	t.Run("overwrite updates both orientations", func(t *testing.T) {
		p := NewUint64Pair()
		p.Set(1, 2, 42)
		p.Set(1, 2, 43)

		fw, _ := p.Get(1, 2)
		tr, _ := p.GetTransposed(2, 1)
		assert.Equal(t, uint64(43), fw)
		assert.Equal(t, uint64(43), tr)
	})

	t.Run("reverse direction is its own cell", func(t *testing.T) {
		p := NewUint64Pair()
		p.Set(1, 2, 42)

		_, ok := p.Get(2, 1)
		assert.False(t, ok)
		_, ok = p.GetTransposed(1, 2)
		assert.False(t, ok)

		p.Set(2, 1, 7)
		fw, ok := p.Get(2, 1)
		assert.True(t, ok)
		assert.Equal(t, uint64(7), fw)
		fw, ok = p.Get(1, 2)
		assert.True(t, ok)
		assert.Equal(t, uint64(42), fw)
	})

	t.Run("reset clears both orientations", func(t *testing.T) {
		p := NewUint64Pair()
		p.Set(1, 2, 42)
		p.Reset()
		_, ok := p.Get(1, 2)
		assert.False(t, ok)
		_, ok = p.GetTransposed(2, 1)
		assert.False(t, ok)
		assert.Equal(t, 0, p.Len())
	})
}

func TestColumns(t *testing.T) {
	t.Run("unset cells read false", func(t *testing.T) {
		c := NewColumns()
		assert.False(t, c.Get(0, 0))
		assert.False(t, c.Get(10, 10))
	})

	t.Run("set then get", func(t *testing.T) {
		c := NewColumns()
		c.Set(3, 1)
		assert.True(t, c.Get(3, 1))
		assert.False(t, c.Get(1, 3))
	})

	t.Run("assign column replaces prior contents wholesale", func(t *testing.T) {
		c := NewColumns()
		c.Set(1, 0)
		c.Set(2, 0)
		c.Set(3, 0)

		vec := sroar.NewBitmap()
		vec.Set(5)
		vec.Set(6)
		c.AssignColumn(0, vec)

		assert.False(t, c.Get(1, 0))
		assert.False(t, c.Get(2, 0))
		assert.False(t, c.Get(3, 0))
		assert.True(t, c.Get(5, 0))
		assert.True(t, c.Get(6, 0))
	})

	t.Run("assign nil clears the column", func(t *testing.T) {
		c := NewColumns()
		c.Set(1, 2)
		c.AssignColumn(2, nil)
		assert.False(t, c.Get(1, 2))
		assert.Nil(t, c.Column(2))
	})

	t.Run("assign grows the column extent", func(t *testing.T) {
		c := NewColumns()
		vec := sroar.NewBitmap()
		vec.Set(1)
		c.AssignColumn(40_000, vec)
		assert.True(t, c.Get(1, 40_000))
		assert.Greater(t, c.Cols(), 40_000)
	})

	t.Run("column view lists the rows set in it", func(t *testing.T) {
		c := NewColumns()
		c.Set(10, 3)
		c.Set(30, 3)
		c.Set(20, 3)

		col := c.Column(3)
		require.NotNil(t, col)
		assert.Equal(t, []uint64{10, 20, 30}, col.ToArray())
	})

	t.Run("columns are independent", func(t *testing.T) {
		c := NewColumns()
		c.Set(1, 0)
		c.Set(2, 1)
		assert.True(t, c.Get(1, 0))
		assert.False(t, c.Get(1, 1))
		assert.False(t, c.Get(2, 0))
		assert.True(t, c.Get(2, 1))
	})

	t.Run("reset drops everything", func(t *testing.T) {
		c := NewColumns()
		c.Set(1, 1)
		c.Reset()
		assert.False(t, c.Get(1, 1))
		assert.Equal(t, 0, c.Cols())
	})
}
