// Package ebtindex is a value-carrying convenience layer over pkg/ebtree: a
// higher-level map that decorates the tree with an application payload,
// which the core library deliberately leaves out of scope. Store wires a
// fixed-width ebtree.ByteTree to a ksuid.KSUID payload per entry.
package ebtindex

import (
	"bytes"
	"fmt"
	"sync"
	"unsafe"

	"github.com/segmentio/ksuid"

	"github.com/ebtdb/ebtd/pkg/ebtree"
)

// entry extends ebtree.ByteNode with the row identifier pointing at the
// associated value in pkg/storage's row store. ByteNode must
// stay entry's first field: the package recovers *entry from the
// *ebtree.ByteNode the tree hands back using the same intrusive-container
// cast ebtree uses internally, one level deeper.
type entry struct {
	ebtree.ByteNode
	row ksuid.KSUID
}

func entryOf(n *ebtree.ByteNode) *entry {
	if n == nil {
		return nil
	}
	return (*entry)(unsafe.Pointer(n))
}

// Store is an ordered, fixed-width byte-keyed index mapping keys to row
// identifiers. It holds no values itself — pkg/storage's RowStore holds
// them, keyed by the KSUID a Store lookup returns — and Store can be
// rebuilt from scratch by replaying pkg/walog's put/delete commands in
// order, per SPEC_FULL's write-ahead story.
type Store struct {
	mu       sync.RWMutex
	tree     *ebtree.ByteTree
	keyWidth int
}

// NewStore creates an empty index whose keys are all keyWidth bytes long.
// Use FixedKey to pad variable-length application keys out to that width.
func NewStore(keyWidth int) *Store {
	return &Store{
		tree:     ebtree.NewByteTree(keyWidth, true),
		keyWidth: keyWidth,
	}
}

// KeyWidth returns the fixed width every key in this store must have.
func (s *Store) KeyWidth() int { return s.keyWidth }

// FixedKey right-pads key with zero bytes out to width, the same
// NUL-padding convention pkg/ebtree's ByteTree tests use for fixed-width
// keys built from variable-length application data. It truncates rather
// than erroring on an over-length key, since callers that need exact
// capacity checking should do so before calling Put.
func FixedKey(key []byte, width int) []byte {
	out := make([]byte, width)
	copy(out, key)
	return out
}

// Put links key to row, replacing whatever row was previously associated
// with it. It returns the row that was replaced, or the zero KSUID if key
// was not already present.
func (s *Store) Put(key []byte, row ksuid.KSUID) (ksuid.KSUID, error) {
	if len(key) != s.keyWidth {
		return ksuid.Nil, fmt.Errorf("ebtindex: key is %d bytes, store width is %d", len(key), s.keyWidth)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.tree.Lookup(key); existing != nil {
		e := entryOf(existing)
		old := e.row
		e.row = row
		return old, nil
	}

	e := &entry{ByteNode: *ebtree.NewByteNode(append([]byte(nil), key...)), row: row}
	s.tree.Insert(&e.ByteNode)
	return ksuid.Nil, nil
}

// Get returns the row associated with key, or false if key is absent.
func (s *Store) Get(key []byte) (ksuid.KSUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.tree.Lookup(key)
	if n == nil {
		return ksuid.Nil, false
	}
	return entryOf(n).row, true
}

// Delete removes key from the index. It reports whether key was present.
func (s *Store) Delete(key []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.tree.Lookup(key)
	if n == nil {
		return false
	}
	s.tree.Delete(n)
	return true
}

// LookupLE returns the key/row pair with the greatest key <= key, or false
// if every stored key is greater.
func (s *Store) LookupLE(key []byte) (k []byte, row ksuid.KSUID, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.tree.LookupLE(key)
	if n == nil {
		return nil, ksuid.Nil, false
	}
	return n.Key(), entryOf(n).row, true
}

// LookupGE returns the key/row pair with the least key >= key, or false if
// every stored key is smaller.
func (s *Store) LookupGE(key []byte) (k []byte, row ksuid.KSUID, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.tree.LookupGE(key)
	if n == nil {
		return nil, ksuid.Nil, false
	}
	return n.Key(), entryOf(n).row, true
}

// Range calls fn for every key in [start, end] in ascending order, stopping
// early if fn returns false. Either bound may be nil to mean unbounded on
// that side.
func (s *Store) Range(start, end []byte, fn func(key []byte, row ksuid.KSUID) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n *ebtree.ByteNode
	if start == nil {
		n = s.tree.First()
	} else {
		n = s.tree.LookupGE(start)
	}

	for n != nil {
		if end != nil && bytes.Compare(n.Key(), end) > 0 {
			return
		}
		if !fn(n.Key(), entryOf(n).row) {
			return
		}
		n = n.Next()
	}
}

// Len reports the number of keys currently indexed.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for c := s.tree.First(); c != nil; c = c.Next() {
		n++
	}
	return n
}
