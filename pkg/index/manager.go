// Package index is a secondary-index manager built on the elastic binary
// tree: composite keys (field value + primary key) are fixed-width byte
// strings stored in an ebtree.ByteTree, so range queries are implemented
// for real (ByteTree.LookupGE to find a lower bound, then an in-order walk)
// rather than left as stubs.
package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/segmentio/ksuid"

	"github.com/ebtdb/ebtd/pkg/ebtree"
)

const (
	tagInt byte = iota
	tagFloat
	tagString
)

const (
	valueWidth = 8
	tagWidth   = 1
	// keyWidth is the fixed composite key length every entry in a
	// SecondaryIndex's tree shares: a one-byte type tag, an 8-byte
	// order-preserving value encoding, and the ksuid primary key.
	keyWidth = tagWidth + valueWidth + ksuid.ByteLength
)

const signBit = uint64(1) << 63

// encodeValue projects an indexed field value onto a fixed-width,
// order-preserving byte encoding: big-endian with the sign bit flipped for
// integers (so two's-complement negatives sort below positives as
// unsigned bytes), the standard monotonic bit-flip for floats, and a
// fixed-width left-justified truncation for strings. A string field value
// longer than valueWidth bytes only orders correctly on its first 8 bytes;
// ties beyond that collapse.
func encodeValue(value interface{}) (byte, []byte) {
	buf := make([]byte, valueWidth)

	switch v := value.(type) {
	case int:
		binary.BigEndian.PutUint64(buf, uint64(int64(v))^signBit)
		return tagInt, buf
	case int64:
		binary.BigEndian.PutUint64(buf, uint64(v)^signBit)
		return tagInt, buf
	case float64:
		bits := math.Float64bits(v)
		if v < 0 {
			bits = ^bits
		} else {
			bits ^= signBit
		}
		binary.BigEndian.PutUint64(buf, bits)
		return tagFloat, buf
	case string:
		copy(buf, v)
		return tagString, buf
	default:
		copy(buf, fmt.Sprintf("%v", v))
		return tagString, buf
	}
}

// SecondaryIndex manages an ordered index over one field's value.
type SecondaryIndex struct {
	fieldName string
	tree      *ebtree.ByteTree
	mutex     sync.RWMutex
}

// NewSecondaryIndex creates a new secondary index for a field. order has no
// meaning for an elastic binary tree, which has no branching factor to
// tune, and is accepted only so callers can keep a uniform constructor
// signature across index types.
func NewSecondaryIndex(fieldName string, order int) *SecondaryIndex {
	return &SecondaryIndex{
		fieldName: fieldName,
		tree:      ebtree.NewByteTree(keyWidth, true),
	}
}

func compositeKey(fieldValue interface{}, primaryKey []byte) ([]byte, error) {
	if len(primaryKey) != ksuid.ByteLength {
		return nil, fmt.Errorf("index: primary key is %d bytes, want %d (a ksuid)", len(primaryKey), ksuid.ByteLength)
	}

	key := make([]byte, keyWidth)
	tag, val := encodeValue(fieldValue)
	key[0] = tag
	copy(key[tagWidth:tagWidth+valueWidth], val)
	copy(key[tagWidth+valueWidth:], primaryKey)
	return key, nil
}

func fieldPrefix(fieldValue interface{}) []byte {
	prefix := make([]byte, tagWidth+valueWidth)
	tag, val := encodeValue(fieldValue)
	prefix[0] = tag
	copy(prefix[tagWidth:], val)
	return prefix
}

// Insert adds a record to the secondary index. The index key is
// field_value + primary_key, so every (fieldValue, primaryKey) pair must
// be unique even if the field value repeats across records.
func (idx *SecondaryIndex) Insert(fieldValue interface{}, primaryKey []byte) error {
	key, err := compositeKey(fieldValue, primaryKey)
	if err != nil {
		return err
	}

	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.tree.Insert(ebtree.NewByteNode(key))
	return nil
}

// Delete removes a record from the secondary index.
func (idx *SecondaryIndex) Delete(fieldValue interface{}, primaryKey []byte) bool {
	key, err := compositeKey(fieldValue, primaryKey)
	if err != nil {
		return false
	}

	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	n := idx.tree.Lookup(key)
	if n == nil {
		return false
	}
	idx.tree.Delete(n)
	return true
}

// Search finds the primary keys of every record with an exact field value
// match, walking forward from the first composite key with that value's
// prefix until the prefix no longer matches.
func (idx *SecondaryIndex) Search(fieldValue interface{}) ([][]byte, error) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	prefix := fieldPrefix(fieldValue)
	start := make([]byte, keyWidth)
	copy(start, prefix)

	var results [][]byte
	for n := idx.tree.LookupGE(start); n != nil; n = n.Next() {
		k := n.Key()
		if !bytes.Equal(k[:len(prefix)], prefix) {
			break
		}
		results = append(results, append([]byte(nil), k[tagWidth+valueWidth:]...))
	}
	return results, nil
}

// SearchRange finds the primary keys of every record whose field value
// falls within [startValue, endValue], inclusive on both ends.
func (idx *SecondaryIndex) SearchRange(startValue, endValue interface{}) ([][]byte, error) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	startPrefix := fieldPrefix(startValue)
	endPrefix := fieldPrefix(endValue)
	start := make([]byte, keyWidth)
	copy(start, startPrefix)

	var results [][]byte
	for n := idx.tree.LookupGE(start); n != nil; n = n.Next() {
		k := n.Key()
		if bytes.Compare(k[:len(endPrefix)], endPrefix) > 0 {
			break
		}
		results = append(results, append([]byte(nil), k[tagWidth+valueWidth:]...))
	}
	return results, nil
}

// SearchGE finds the primary keys of every record whose field value is
// greater than or equal to startValue.
func (idx *SecondaryIndex) SearchGE(startValue interface{}) ([][]byte, error) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	startPrefix := fieldPrefix(startValue)
	start := make([]byte, keyWidth)
	copy(start, startPrefix)

	var results [][]byte
	for n := idx.tree.LookupGE(start); n != nil; n = n.Next() {
		results = append(results, append([]byte(nil), n.Key()[tagWidth+valueWidth:]...))
	}
	return results, nil
}

// SearchLE finds the primary keys of every record whose field value is
// less than or equal to endValue.
func (idx *SecondaryIndex) SearchLE(endValue interface{}) ([][]byte, error) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	endPrefix := fieldPrefix(endValue)

	var results [][]byte
	for n := idx.tree.First(); n != nil; n = n.Next() {
		if bytes.Compare(n.Key()[:len(endPrefix)], endPrefix) > 0 {
			break
		}
		results = append(results, append([]byte(nil), n.Key()[tagWidth+valueWidth:]...))
	}
	return results, nil
}

// Save persists the index to disk as a flat, ascending dump of composite
// keys: the tree itself is rebuilt by reinserting them on Load, so there is
// no need to serialize internal branch structure.
func (idx *SecondaryIndex) Save(dir string) error {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	filename := filepath.Join(dir, fmt.Sprintf("index_%s.dat", idx.fieldName))
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("index: creating %s: %w", filename, err)
	}
	defer file.Close()

	var count uint32
	for n := idx.tree.First(); n != nil; n = n.Next() {
		count++
	}
	if err := binary.Write(file, binary.LittleEndian, count); err != nil {
		return fmt.Errorf("index: writing entry count: %w", err)
	}

	for n := idx.tree.First(); n != nil; n = n.Next() {
		if _, err := file.Write(n.Key()); err != nil {
			return fmt.Errorf("index: writing entry: %w", err)
		}
	}
	return nil
}

// Load restores the index from disk.
func (idx *SecondaryIndex) Load(dir string) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	filename := filepath.Join(dir, fmt.Sprintf("index_%s.dat", idx.fieldName))
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil
	}

	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("index: opening %s: %w", filename, err)
	}
	defer file.Close()

	var count uint32
	if err := binary.Read(file, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("index: reading entry count: %w", err)
	}

	tree := ebtree.NewByteTree(keyWidth, true)
	key := make([]byte, keyWidth)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(file, key); err != nil {
			return fmt.Errorf("index: reading entry %d: %w", i, err)
		}
		tree.Insert(ebtree.NewByteNode(append([]byte(nil), key...)))
	}

	idx.tree = tree
	return nil
}

// IndexManager manages multiple secondary indexes for a partition.
type IndexManager struct {
	indexes map[string]*SecondaryIndex
	mutex   sync.RWMutex
	order   int
}

// NewIndexManager creates a new index manager.
func NewIndexManager(order int) *IndexManager {
	return &IndexManager{
		indexes: make(map[string]*SecondaryIndex),
		order:   order,
	}
}

// GetOrCreateIndex gets an existing index or creates a new one for a field.
func (im *IndexManager) GetOrCreateIndex(fieldName string) *SecondaryIndex {
	im.mutex.Lock()
	defer im.mutex.Unlock()

	if idx, exists := im.indexes[fieldName]; exists {
		return idx
	}

	idx := NewSecondaryIndex(fieldName, im.order)
	im.indexes[fieldName] = idx
	return idx
}

// SaveAll saves all indexes to disk.
func (im *IndexManager) SaveAll(dir string) error {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	for _, idx := range im.indexes {
		if err := idx.Save(dir); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll loads all indexes from disk.
func (im *IndexManager) LoadAll(dir string) error {
	im.mutex.Lock()
	defer im.mutex.Unlock()

	pattern := filepath.Join(dir, "index_*.dat")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, file := range files {
		filename := filepath.Base(file)
		if len(filename) < 10 {
			continue
		}
		fieldName := filename[6 : len(filename)-4]

		idx := NewSecondaryIndex(fieldName, im.order)
		if err := idx.Load(dir); err != nil {
			return err
		}
		im.indexes[fieldName] = idx
	}

	return nil
}
