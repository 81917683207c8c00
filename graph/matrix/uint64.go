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

import "sort"

// Uint64 is a sparse matrix of 64-bit words stored row-major, one map per
// non-empty row. A cell is present iff its key exists, so the zero word and
// "no entry" stay distinguishable. The cell codec depends on that.
type Uint64 struct {
	rows  []map[uint64]uint64
	cells int
}

func NewUint64() *Uint64 {
	return &Uint64{}
}

// Set stores value at [row, col], overwriting any prior word.
func (m *Uint64) Set(row, col, value uint64) {
	m.grow(row)

	if m.rows[row] == nil {
		m.rows[row] = map[uint64]uint64{}
	}
	if _, ok := m.rows[row][col]; !ok {
		m.cells++
	}
	m.rows[row][col] = value
}

// Get returns the word at [row, col]. ok is false when the cell is absent.
func (m *Uint64) Get(row, col uint64) (value uint64, ok bool) {
	if row >= uint64(len(m.rows)) || m.rows[row] == nil {
		return 0, false
	}
	value, ok = m.rows[row][col]
	return value, ok
}

// Cols returns the column indices present in one row, ascending. The slice is
// freshly allocated.
func (m *Uint64) Cols(row uint64) []uint64 {
	if row >= uint64(len(m.rows)) || len(m.rows[row]) == 0 {
		return nil
	}

	cols := make([]uint64, 0, len(m.rows[row]))
	for col := range m.rows[row] {
		cols = append(cols, col)
	}
	sort.Slice(cols, func(a, b int) bool { return cols[a] < cols[b] })
	return cols
}

// Rows returns the current extent of the row slice.
func (m *Uint64) Rows() int {
	return len(m.rows)
}

// Len returns the number of present cells.
func (m *Uint64) Len() int {
	return m.cells
}

// Reset drops all rows.
func (m *Uint64) Reset() {
	m.rows = nil
	m.cells = 0
}

func (m *Uint64) grow(row uint64) {
	if row < uint64(len(m.rows)) {
		return
	}

	grown := make([]map[uint64]uint64, grownSize(len(m.rows), row))
	copy(grown, m.rows)
	m.rows = grown
}

// Uint64Pair is a transpose-mirrored pair of word matrices: the relation
// matrix layout. The forward and transpose cell always receive the same word
// in the same call, so decoding either orientation yields the identical edge
// set.
type Uint64Pair struct {
	forward   *Uint64
	transpose *Uint64
}

func NewUint64Pair() *Uint64Pair {
	return &Uint64Pair{
		forward:   NewUint64(),
		transpose: NewUint64(),
	}
}

// Set stores value at [src, dest] forward and [dest, src] transposed.
func (p *Uint64Pair) Set(src, dest, value uint64) {
	p.forward.Set(src, dest, value)
	p.transpose.Set(dest, src, value)
}

// Get reads the forward orientation.
func (p *Uint64Pair) Get(src, dest uint64) (uint64, bool) {
	return p.forward.Get(src, dest)
}

// GetTransposed reads the transpose orientation.
func (p *Uint64Pair) GetTransposed(dest, src uint64) (uint64, bool) {
	return p.transpose.Get(dest, src)
}

// Cols returns the forward column indices of one row, ascending.
func (p *Uint64Pair) Cols(row uint64) []uint64 {
	return p.forward.Cols(row)
}

// Rows returns the forward row extent.
func (p *Uint64Pair) Rows() int {
	return p.forward.Rows()
}

// Len returns the number of present forward cells.
func (p *Uint64Pair) Len() int {
	return p.forward.Len()
}

// Reset drops both orientations.
func (p *Uint64Pair) Reset() {
	p.forward.Reset()
	p.transpose.Reset()
}
