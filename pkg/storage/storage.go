// Package storage is the row store: a pebble-backed table of document
// bytes addressed by the ksuid row identifier that pkg/ebtindex.Store
// keeps per primary key. The primary index tells you which row a key maps
// to; RowStore is where that row's actual content lives.
package storage

import (
	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
)

// RowStore is a pebble-backed table of document bytes keyed by ksuid.
type RowStore struct {
	db *pebble.DB
}

// NewRowStore opens (or creates) the row store at path.
func NewRowStore(path string) (*RowStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &RowStore{db: db}, nil
}

// Put stores data under the given row id, creating or overwriting it.
func (s *RowStore) Put(id ksuid.KSUID, data []byte) error {
	return s.db.Set(id.Bytes(), data, pebble.NoSync)
}

// Get returns the document stored under id.
func (s *RowStore) Get(id ksuid.KSUID) ([]byte, error) {
	data, closer, err := s.db.Get(id.Bytes())
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := append([]byte(nil), data...)
	return out, nil
}

// Delete removes the document stored under id.
func (s *RowStore) Delete(id ksuid.KSUID) error {
	return s.db.Delete(id.Bytes(), pebble.NoSync)
}

// Close releases the underlying pebble handle.
func (s *RowStore) Close() error {
	return s.db.Close()
}
