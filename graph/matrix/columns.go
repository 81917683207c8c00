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

import "github.com/weaviate/sroar"

// Columns is a sparse boolean matrix stored column-major, one bitmap of row
// indices per column. The node-label matrix uses this orientation because its
// write path replaces whole columns at once.
type Columns struct {
	cols []*sroar.Bitmap
}

func NewColumns() *Columns {
	return &Columns{}
}

// AssignColumn replaces column col with vec wholesale. Rows set before the
// call and absent from vec end up cleared. Columns takes ownership of vec;
// the caller must not touch it afterwards. A nil vec clears the column.
func (m *Columns) AssignColumn(col uint64, vec *sroar.Bitmap) {
	m.grow(col)
	m.cols[col] = vec
}

// Set sets [row, col] to true.
func (m *Columns) Set(row, col uint64) {
	m.grow(col)

	if m.cols[col] == nil {
		m.cols[col] = sroar.NewBitmap()
	}
	m.cols[col].Set(row)
}

// Get reports whether [row, col] is set.
func (m *Columns) Get(row, col uint64) bool {
	if col >= uint64(len(m.cols)) || m.cols[col] == nil {
		return false
	}
	return m.cols[col].Contains(row)
}

// Column returns the bitmap of row indices set in col, or nil when the column
// is empty. Callers must treat the result as read-only.
func (m *Columns) Column(col uint64) *sroar.Bitmap {
	if col >= uint64(len(m.cols)) {
		return nil
	}
	return m.cols[col]
}

// Cols returns the current extent of the column slice.
func (m *Columns) Cols() int {
	return len(m.cols)
}

// Reset drops all columns.
func (m *Columns) Reset() {
	m.cols = nil
}

func (m *Columns) grow(col uint64) {
	if col < uint64(len(m.cols)) {
		return
	}

	grown := make([]*sroar.Bitmap, grownSize(len(m.cols), col))
	copy(grown, m.cols)
	m.cols = grown
}
