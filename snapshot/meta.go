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
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

const (
	metaBucket      = "meta"
	snapshotsBucket = "snapshots"
	graphIDKey      = "graph_id"

	// snapshot record serialization version
	recordVersion = 1
)

// SnapshotRecord is one entry in the sidecar's snapshot history. Format is
// the version byte of the snapshot file itself, Version the msgpack schema
// of this record.
type SnapshotRecord struct {
	Version      uint32    `msgpack:"version"`
	Format       uint8     `msgpack:"format"`
	Labels       int       `msgpack:"labels"`
	Relations    int       `msgpack:"relations"`
	Nodes        uint64    `msgpack:"nodes"`
	DeletedNodes uint64    `msgpack:"deleted_nodes"`
	Edges        uint64    `msgpack:"edges"`
	DeletedEdges uint64    `msgpack:"deleted_edges"`
	Checksum     uint32    `msgpack:"checksum"`
	CreatedAt    time.Time `msgpack:"created_at"`
}

// Store is the bbolt sidecar next to a graph's snapshot files. It assigns
// the graph a stable identity and keeps an append-only history of written
// snapshots, so operators can tell files from different graphs apart.
type Store struct {
	db *bolt.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(metaBucket)); err != nil {
			return errors.Wrap(err, "create meta bucket")
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(snapshotsBucket)); err != nil {
			return errors.Wrap(err, "create snapshots bucket")
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "init metadata buckets %q", path)
	}

	return &Store{db: db}, nil
}

// GraphID returns the graph's identity, minting and persisting one on first
// call. The id survives reopening the store.
func (s *Store) GraphID() (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(metaBucket))
		if v := b.Get([]byte(graphIDKey)); v != nil {
			parsed, err := uuid.ParseBytes(v)
			if err != nil {
				return errors.Wrap(err, "parse stored graph id")
			}
			id = parsed
			return nil
		}

		id = uuid.New()
		return b.Put([]byte(graphIDKey), []byte(id.String()))
	})
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "graph id")
	}
	return id, nil
}

// RecordSnapshot appends one history entry for a successfully written
// snapshot file.
func (s *Store) RecordSnapshot(info *Info) error {
	rec := SnapshotRecord{
		Version:      recordVersion,
		Format:       info.Version,
		Labels:       info.Labels,
		Relations:    info.Relations,
		Nodes:        info.Nodes,
		DeletedNodes: info.DeletedNodes,
		Edges:        info.Edges,
		DeletedEdges: info.DeletedEdges,
		Checksum:     info.Checksum,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot record")
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(snapshotsBucket))
		seq, err := b.NextSequence()
		if err != nil {
			return errors.Wrap(err, "next sequence")
		}

		// big-endian keys keep the bucket iteration in insertion order
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
	if err != nil {
		return errors.Wrap(err, "record snapshot")
	}
	return nil
}

// Snapshots lists the recorded history, oldest first.
func (s *Store) Snapshots() ([]SnapshotRecord, error) {
	var records []SnapshotRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(snapshotsBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec SnapshotRecord
			if err := msgpack.Unmarshal(v, &rec); err != nil {
				return errors.Wrap(err, "unmarshal snapshot record")
			}
			if rec.Version > recordVersion {
				return errors.Errorf("unsupported snapshot record version %d, max supported: %d",
					rec.Version, recordVersion)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "list snapshots")
	}
	return records, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
