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

package edgecell

import "fmt"

const (
	// tagBit marks a cell word as a handle into an Arena rather than a plain
	// edge id. Edge ids therefore occupy the lower 63 bits of the word.
	tagBit = uint64(1) << 63

	// MaxEdgeID is the largest edge identifier representable in a cell word
	// with the tag bit reserved. Identifier allocation never crosses it, which
	// is what keeps the tag state unambiguous.
	MaxEdgeID = tagBit - 1
)

// Word is the raw 64-bit value stored in a relation matrix cell. Tag bit
// clear: the word is a single edge id. Tag bit set: the remaining bits are a
// handle into the Arena that owns the multi-edge list. Absence is signaled by
// the matrix lookup itself, not by a sentinel word, so the zero Word is a
// valid single-edge word for edge id 0.
type Word uint64

type Kind uint8

const (
	Absent Kind = iota
	Single
	Multi
)

func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Single:
		return "single"
	case Multi:
		return "multi"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// EncodeSingle returns the cell word carrying exactly one edge id.
func EncodeSingle(id uint64) Word {
	if id > MaxEdgeID {
		panic(fmt.Sprintf("edgecell: edge id %d overflows into the tag bit", id))
	}
	return Word(id)
}

// Decode folds the matrix-level presence flag into the three cell states.
func Decode(w Word, present bool) Kind {
	if !present {
		return Absent
	}
	if w.IsMulti() {
		return Multi
	}
	return Single
}

func (w Word) IsMulti() bool {
	return uint64(w)&tagBit != 0
}

// Single returns the edge id carried by a single-edge word. ok is false for
// multi words.
func (w Word) Single() (id uint64, ok bool) {
	if w.IsMulti() {
		return 0, false
	}
	return uint64(w), true
}

func (w Word) handle() uint64 {
	return uint64(w) &^ tagBit
}

// Arena owns the growable edge-id lists referenced by multi-edge cell words.
// A logical cell is one (relation, source, destination) triple; its word is
// mirrored into the forward and transpose matrices, and the two mirrors
// together count as a single owner. A list is released exactly once: when the
// cell word is replaced by something that no longer references it, or when
// the owning matrix is reset. Released handles are recycled.
//
// The zero Arena is ready to use, but matrices share one arena per relation,
// so it is normally created alongside the relation matrix pair.
type Arena struct {
	lists [][]uint64
	free  []uint64
}

func NewArena() *Arena {
	return &Arena{}
}

// PromoteToMulti allocates a fresh list holding exactly [x, y] in that order
// and returns the tagged word referencing it. The prior single-edge word is
// never mutated in place; promotion always creates a new collection.
func (a *Arena) PromoteToMulti(x, y uint64) Word {
	if x > MaxEdgeID || y > MaxEdgeID {
		panic(fmt.Sprintf("edgecell: edge id %d overflows into the tag bit", max(x, y)))
	}

	var handle uint64
	if n := len(a.free); n > 0 {
		handle = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		handle = uint64(len(a.lists))
		a.lists = append(a.lists, nil)
	}

	a.lists[handle] = []uint64{x, y}
	return Word(handle | tagBit)
}

// AppendToMulti appends id to the list referenced by w, preserving insertion
// order. Duplicates are allowed. The returned word equals w: the handle is
// stable even when the backing array reallocates.
func (a *Arena) AppendToMulti(w Word, id uint64) Word {
	if id > MaxEdgeID {
		panic(fmt.Sprintf("edgecell: edge id %d overflows into the tag bit", id))
	}

	handle := a.mustLiveHandle(w)
	a.lists[handle] = append(a.lists[handle], id)
	return w
}

// Edges returns the list referenced by a multi word. The slice is owned by
// the arena; callers must treat it as read-only.
func (a *Arena) Edges(w Word) []uint64 {
	return a.lists[a.mustLiveHandle(w)]
}

// Release returns the list referenced by w to the free pool. Releasing a
// single-edge word is a no-op, since nothing is owned. Releasing the same
// multi word twice is a contract violation.
func (a *Arena) Release(w Word) {
	if !w.IsMulti() {
		return
	}

	handle := a.mustLiveHandle(w)
	a.lists[handle] = nil
	a.free = append(a.free, handle)
}

// Len reports the number of live multi-edge lists.
func (a *Arena) Len() int {
	return len(a.lists) - len(a.free)
}

// Reset drops all lists and recycled handles. Outstanding words become
// invalid; callers reset the owning matrices in the same motion.
func (a *Arena) Reset() {
	a.lists = a.lists[:0]
	a.free = a.free[:0]
}

func (a *Arena) mustLiveHandle(w Word) uint64 {
	if !w.IsMulti() {
		panic(fmt.Sprintf("edgecell: word %#x is not a multi-edge cell", uint64(w)))
	}

	handle := w.handle()
	if handle >= uint64(len(a.lists)) || a.lists[handle] == nil {
		panic(fmt.Sprintf("edgecell: handle %d does not reference a live list", handle))
	}
	return handle
}
