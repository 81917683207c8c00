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

// Package matrix implements the sparse boolean and integer matrices the graph
// core stores its topology in. Matrices grow on write; transpose-mirrored
// pairs write both orientations in a single call so the mirror invariant
// cannot be broken by a caller.
package matrix

import "github.com/weaviate/sroar"

const (
	growthRate  = 1.25
	growthDelta = 2000
)

// grownSize returns the new length for a row slice that must cover id.
func grownSize(previous int, id uint64) int {
	var newSize int
	if (growthRate-1)*float64(previous) < growthDelta {
		newSize = previous + growthDelta
	} else {
		newSize = int(float64(previous) * growthRate)
	}

	if newSize <= int(id) {
		// ids can arrive far out of order during a restore, jump directly
		newSize = int(id) + growthDelta
	}

	return newSize
}

// Bool is a sparse boolean matrix stored row-major, one bitmap per non-empty
// row. Cells are set-only through this type; rows grow on demand.
type Bool struct {
	rows []*sroar.Bitmap
}

func NewBool() *Bool {
	return &Bool{}
}

// Set marks cell [row, col] true. Setting an already-true cell is a no-op.
func (b *Bool) Set(row, col uint64) {
	b.grow(row)

	if b.rows[row] == nil {
		b.rows[row] = sroar.NewBitmap()
	}
	b.rows[row].Set(col)
}

// Get reports whether cell [row, col] is true.
func (b *Bool) Get(row, col uint64) bool {
	if row >= uint64(len(b.rows)) || b.rows[row] == nil {
		return false
	}
	return b.rows[row].Contains(col)
}

// Row returns the bitmap backing one row, or nil for an empty row. Callers
// must treat it as read-only.
func (b *Bool) Row(row uint64) *sroar.Bitmap {
	if row >= uint64(len(b.rows)) {
		return nil
	}
	return b.rows[row]
}

// Rows returns the current extent of the row slice. It bounds every row index
// ever set, but rows below it may still be empty.
func (b *Bool) Rows() int {
	return len(b.rows)
}

// Diagonal extracts cells [i, i] as a fresh bitmap. The caller owns the
// result.
func (b *Bool) Diagonal() *sroar.Bitmap {
	diag := sroar.NewBitmap()
	for i, row := range b.rows {
		if row != nil && row.Contains(uint64(i)) {
			diag.Set(uint64(i))
		}
	}
	return diag
}

// Reset drops all rows.
func (b *Bool) Reset() {
	b.rows = nil
}

func (b *Bool) grow(row uint64) {
	if row < uint64(len(b.rows)) {
		return
	}

	grown := make([]*sroar.Bitmap, grownSize(len(b.rows), row))
	copy(grown, b.rows)
	b.rows = grown
}

// BoolPair is a transpose-mirrored pair of boolean matrices. Both
// orientations are written in the same call, which is what keeps
// [src, dest] in the forward matrix and [dest, src] in the transpose
// permanently in agreement.
type BoolPair struct {
	forward   *Bool
	transpose *Bool
}

func NewBoolPair() *BoolPair {
	return &BoolPair{
		forward:   NewBool(),
		transpose: NewBool(),
	}
}

// Set marks [src, dest] in the forward matrix and [dest, src] in the
// transpose.
func (p *BoolPair) Set(src, dest uint64) {
	p.forward.Set(src, dest)
	p.transpose.Set(dest, src)
}

// Get reads the forward orientation.
func (p *BoolPair) Get(src, dest uint64) bool {
	return p.forward.Get(src, dest)
}

// GetTransposed reads the transpose orientation.
func (p *BoolPair) GetTransposed(dest, src uint64) bool {
	return p.transpose.Get(dest, src)
}

// Reset drops both orientations.
func (p *BoolPair) Reset() {
	p.forward.Reset()
	p.transpose.Reset()
}
