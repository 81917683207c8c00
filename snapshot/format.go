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
	"io"

	"github.com/pkg/errors"
)

// Version identifies the current snapshot layout. Readers reject anything
// newer than what they were built for.
const Version = uint8(0)

// MaxID is the largest node or edge identifier a snapshot may carry.
// Identifiers index dense slot stores, so the memory an id demands grows with
// its value. Refusing anything above this bound keeps a corrupted or crafted
// file from driving a huge allocation before the graph is even populated.
const MaxID = uint64(1)<<40 - 1

// The file is little-endian throughout:
//
//	u8  version
//	u32 label count, u32 relation count
//	u8 per relation: 1 if the relation ever held a multi-edge cell
//	nodes:         u64 count, per node u64 id, u16 label count, u32 labels
//	deleted nodes: u64 count, u64 ids in append order
//	edges:         u64 count, per edge u64 id, u64 src, u64 dest, u32 relation
//	deleted edges: u64 count, u64 ids in append order
//	u32 crc32 (IEEE) over every preceding byte
const (
	byteSize   = 1
	uint16Size = 2
	uint32Size = 4
	uint64Size = 8
)

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func writeBool(w io.Writer, b bool) error {
	if b {
		return writeByte(w, 1)
	}
	return writeByte(w, 0)
}

func writeUint16(w io.Writer, v uint16) error {
	var b [uint16Size]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	var b [uint32Size]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var b [uint64Size]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readByte(r io.Reader) (byte, error) {
	var b [byteSize]byte
	_, err := io.ReadFull(r, b[:])
	if err != nil {
		return 0, errors.Wrap(err, "failed to read byte")
	}

	return b[0], nil
}

func readBool(r io.Reader) (bool, error) {
	b, err := readByte(r)
	if err != nil {
		return false, err
	}

	return b != 0, nil
}

func readUint16(r io.Reader) (uint16, error) {
	var b [uint16Size]byte
	_, err := io.ReadFull(r, b[:])
	if err != nil {
		return 0, errors.Wrap(err, "failed to read uint16")
	}

	return binary.LittleEndian.Uint16(b[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [uint32Size]byte
	_, err := io.ReadFull(r, b[:])
	if err != nil {
		return 0, errors.Wrap(err, "failed to read uint32")
	}

	return binary.LittleEndian.Uint32(b[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var b [uint64Size]byte
	_, err := io.ReadFull(r, b[:])
	if err != nil {
		return 0, errors.Wrap(err, "failed to read uint64")
	}

	return binary.LittleEndian.Uint64(b[:]), nil
}
