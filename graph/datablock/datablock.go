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

// Package datablock provides fixed-identity slot storage for graph entities.
// A slot keeps its identifier for its whole lifetime: allocation claims it,
// a tombstone marks it logically deleted without moving survivors, and the
// identifier only returns through the free list. Slots can be claimed out of
// order, which is how a snapshot replay places entities at the identifiers
// the file dictates rather than the next free ones.
//
// The store does no locking. A restore or build pass is single-writer by
// contract, the caller serializes everything else.
package datablock

import (
	"github.com/pkg/errors"
)

const (
	growthRate  = 1.25
	growthDelta = 2000
)

// Property is one entry of an item's property list. The store treats it as
// opaque; encoding and release belong to the property layer above.
type Property struct {
	Key   uint32
	Value []byte
}

// Item is the payload of one live or tombstoned slot: a property list and a
// liveness flag. A fresh allocation always starts with zero properties.
type Item struct {
	props []Property
	live  bool
}

// Live reports whether the slot currently holds a live entity.
func (i *Item) Live() bool {
	return i.live
}

// PropertyCount returns the number of properties attached to the item.
func (i *Item) PropertyCount() int {
	return len(i.props)
}

// AppendProperty attaches one property. Order is preserved.
func (i *Item) AppendProperty(p Property) {
	i.props = append(i.props, p)
}

// Properties returns the backing property list. Callers must treat it as
// read-only.
func (i *Item) Properties() []Property {
	return i.props
}

// ReleaseProperties drops the property list. The layer owning property
// contents calls this before the slot is tombstoned.
func (i *Item) ReleaseProperties() {
	i.props = nil
}

func (i *Item) reset() {
	i.props = nil
	i.live = true
}

// DataBlock is a growable slot array for one entity class (nodes or edges).
// Identifiers index the array directly, so a slot is found in constant time
// and never relocates.
type DataBlock struct {
	items   []*Item
	deleted []uint64
	tail    uint64
	live    int
}

func NewDataBlock() *DataBlock {
	return &DataBlock{}
}

// AllocateAtIndex claims the slot at exactly id. This is the restore-only
// path where identifiers come from a snapshot, not from the store. The
// backing array grows as needed, ids may arrive in any order. Claiming an
// identifier that is already live or already tombstoned means the snapshot
// repeated an id, which is a contract violation the caller must abort on.
func (b *DataBlock) AllocateAtIndex(id uint64) (*Item, error) {
	b.grow(id)

	if existing := b.items[id]; existing != nil {
		if existing.live {
			return nil, errors.Errorf("allocate slot %d: already live", id)
		}
		return nil, errors.Errorf("allocate slot %d: already tombstoned", id)
	}

	item := &Item{live: true}
	b.items[id] = item
	b.live++
	if id >= b.tail {
		b.tail = id + 1
	}
	return item, nil
}

// Allocate claims the next free slot: a recycled identifier from the free
// list when one exists, the tail otherwise. This is the normal-operation
// path, kept separate from AllocateAtIndex on purpose.
func (b *DataBlock) Allocate() (uint64, *Item) {
	if n := len(b.deleted); n > 0 {
		id := b.deleted[n-1]
		b.deleted = b.deleted[:n-1]

		item := b.items[id]
		item.reset()
		b.live++
		return id, item
	}

	id := b.tail
	b.grow(id)

	item := &Item{live: true}
	b.items[id] = item
	b.tail = id + 1
	b.live++
	return id, item
}

// MarkDeletedOutOfOrder tombstones the slot at id and appends id to the
// deleted-index list. No compaction happens, the slot stays in place until
// Allocate recycles its identifier. A live slot is flipped dead (its
// properties must have been released by the caller already); an unclaimed
// slot is claimed directly as tombstoned, which is how a replay records
// deletions that predate the snapshot. Tombstoning the same identifier twice
// is an error: the deleted-index list holds an id at most once.
func (b *DataBlock) MarkDeletedOutOfOrder(id uint64) error {
	b.grow(id)

	switch existing := b.items[id]; {
	case existing == nil:
		b.items[id] = &Item{}
	case existing.live:
		existing.live = false
		b.live--
	default:
		return errors.Errorf("tombstone slot %d: already tombstoned", id)
	}

	b.deleted = append(b.deleted, id)
	if id >= b.tail {
		b.tail = id + 1
	}
	return nil
}

// DeletedIndices returns the deleted-index list in append order. The slice is
// the live backing store, not a copy: callers must not mutate it, and must
// not hold it across further tombstone or allocate calls.
func (b *DataBlock) DeletedIndices() []uint64 {
	return b.deleted
}

// Get returns the live item at id. ok is false for unclaimed, out-of-range
// and tombstoned slots alike.
func (b *DataBlock) Get(id uint64) (*Item, bool) {
	if id >= uint64(len(b.items)) {
		return nil, false
	}
	item := b.items[id]
	if item == nil || !item.live {
		return nil, false
	}
	return item, true
}

// IterLive calls fn for every live slot in ascending identifier order.
func (b *DataBlock) IterLive(fn func(id uint64, item *Item)) {
	for id, item := range b.items {
		if item != nil && item.live {
			fn(uint64(id), item)
		}
	}
}

// LiveCount returns the number of live slots.
func (b *DataBlock) LiveCount() int {
	return b.live
}

// Capacity returns the current extent of the slot array.
func (b *DataBlock) Capacity() int {
	return len(b.items)
}

// Reset drops all slots and bookkeeping.
func (b *DataBlock) Reset() {
	b.items = nil
	b.deleted = nil
	b.tail = 0
	b.live = 0
}

func (b *DataBlock) grow(id uint64) {
	previous := len(b.items)
	if id < uint64(previous) {
		return
	}

	var newSize int
	if (growthRate-1)*float64(previous) < growthDelta {
		// typically grow by the fixed delta
		newSize = previous + growthDelta
	} else {
		newSize = int(float64(previous) * growthRate)
	}
	if newSize <= int(id) {
		// out-of-order ids can outrun the geometric step, jump straight
		// past the requested index
		newSize = int(id) + growthDelta
	}

	grown := make([]*Item, newSize)
	copy(grown, b.items)
	b.items = grown
}
