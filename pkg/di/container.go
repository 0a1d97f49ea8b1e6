// Package di wires the service's layers together: config -> walog -> index
// -> api, as a single composition root, since this service has only one
// backend shape to assemble.
package di

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/segmentio/ksuid"

	"github.com/ebtdb/ebtd/pkg/config"
	"github.com/ebtdb/ebtd/pkg/ebtindex"
	"github.com/ebtdb/ebtd/pkg/index"
	"github.com/ebtdb/ebtd/pkg/query"
	"github.com/ebtdb/ebtd/pkg/storage"
	"github.com/ebtdb/ebtd/pkg/walog"
)

// primaryKeyWidth is the fixed width every application key is padded or
// truncated to before it is held in the in-memory primary ebtindex.Store.
const primaryKeyWidth = 64

// Container owns every long-lived dependency of the ebtd service and
// exposes the single backend surface pkg/api and cmd/ebtd drive: put, get,
// delete, bounded lookup, range iteration, and field queries.
type Container struct {
	mu sync.RWMutex

	cfg   *config.Config
	log   *walog.Log
	rows  *storage.RowStore
	prime *ebtindex.Store
	idx   *index.IndexManager
	query *query.SimpleQueryEngine

	extractor query.JSONFieldExtractor
}

// Open creates the Container's dependencies from cfg and replays the
// write-ahead log to rebuild the in-memory primary index and every
// secondary index.
func Open(cfg *config.Config) (*Container, error) {
	walDir := cfg.WALDir
	if walDir == "" {
		walDir = filepath.Join(cfg.DataDir, "wal")
	}

	l, err := walog.Open(walDir)
	if err != nil {
		return nil, fmt.Errorf("di: opening write-ahead log: %w", err)
	}

	rows, err := storage.NewRowStore(filepath.Join(cfg.DataDir, "rows"))
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("di: opening row store: %w", err)
	}

	idxMgr := index.NewIndexManager(0)

	c := &Container{
		cfg:   cfg,
		log:   l,
		rows:  rows,
		prime: ebtindex.NewStore(primaryKeyWidth),
		idx:   idxMgr,
	}
	c.query = query.NewSimpleQueryEngine(idxMgr, rows)

	if err := c.replay(); err != nil {
		rows.Close()
		l.Close()
		return nil, fmt.Errorf("di: replaying write-ahead log: %w", err)
	}

	return c, nil
}

// replay rebuilds the in-memory primary and secondary indexes from the
// durable command log. Each OpPut is given a fresh row id and its bytes
// re-stored in the row store under that id; an earlier row written for the
// same key under a previous id is abandoned rather than reclaimed (see
// DESIGN.md).
func (c *Container) replay() error {
	return c.log.Replay(func(cmd walog.Command) error {
		switch cmd.Op {
		case walog.OpPut:
			id := ksuid.New()
			if err := c.rows.Put(id, cmd.Value); err != nil {
				return err
			}
			c.indexOne(cmd.Key, id, cmd.Value)
			return nil
		case walog.OpDelete:
			c.deindexOne(cmd.Key)
			return nil
		default:
			return fmt.Errorf("di: replay: unknown op %d", cmd.Op)
		}
	})
}

// indexOne links key (padded to primaryKeyWidth) to id in the primary store
// and, if value decodes as a JSON object, adds one secondary index entry
// per top-level scalar field.
func (c *Container) indexOne(key []byte, id ksuid.KSUID, value []byte) {
	fixed := ebtindex.FixedKey(key, primaryKeyWidth)
	c.prime.Put(fixed, id)

	for field, v := range jsonScalarFields(value) {
		_ = c.idx.GetOrCreateIndex(field).Insert(v, id.Bytes())
	}
}

// deindexOne removes key's row and every secondary index entry it holds,
// reading the row back one last time to know which fields to deindex.
func (c *Container) deindexOne(key []byte) {
	fixed := ebtindex.FixedKey(key, primaryKeyWidth)
	id, ok := c.prime.Get(fixed)
	if !ok {
		return
	}

	if value, err := c.rows.Get(id); err == nil {
		c.deindexFields(value, id)
	}
	_ = c.rows.Delete(id)
	c.prime.Delete(fixed)
}

// jsonScalarFields extracts every top-level string/number/bool field from a
// JSON object, skipping nested objects and arrays, which pkg/index has no
// order-preserving encoding for.
func jsonScalarFields(value []byte) map[string]interface{} {
	out := make(map[string]interface{})
	var doc map[string]interface{}
	if json.Unmarshal(value, &doc) != nil {
		return out
	}
	for field, v := range doc {
		switch v.(type) {
		case string, float64, bool:
			out[field] = v
		}
	}
	return out
}

// Put stores value under key, replacing any previous value, and returns the
// row id assigned to this write.
func (c *Container) Put(key, value []byte) (ksuid.KSUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.log.PutCommand(key, value); err != nil {
		return ksuid.Nil, fmt.Errorf("di: put: %w", err)
	}

	fixed := ebtindex.FixedKey(key, primaryKeyWidth)
	if oldID, ok := c.prime.Get(fixed); ok {
		if oldValue, err := c.rows.Get(oldID); err == nil {
			c.deindexFields(oldValue, oldID)
		}
		_ = c.rows.Delete(oldID)
	}

	id := ksuid.New()
	if err := c.rows.Put(id, value); err != nil {
		return ksuid.Nil, fmt.Errorf("di: put: storing row: %w", err)
	}
	c.prime.Put(fixed, id)
	c.indexFields(value, id)

	return id, nil
}

func (c *Container) indexFields(value []byte, id ksuid.KSUID) {
	for field, v := range jsonScalarFields(value) {
		_ = c.idx.GetOrCreateIndex(field).Insert(v, id.Bytes())
	}
}

func (c *Container) deindexFields(value []byte, id ksuid.KSUID) {
	for field, v := range jsonScalarFields(value) {
		c.idx.GetOrCreateIndex(field).Delete(v, id.Bytes())
	}
}

// Get returns the value stored under key.
func (c *Container) Get(key []byte) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fixed := ebtindex.FixedKey(key, primaryKeyWidth)
	id, ok := c.prime.Get(fixed)
	if !ok {
		return nil, false, nil
	}
	value, err := c.rows.Get(id)
	if err != nil {
		return nil, false, fmt.Errorf("di: get: %w", err)
	}
	return value, true, nil
}

// Delete removes key, reporting whether it was present.
func (c *Container) Delete(key []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fixed := ebtindex.FixedKey(key, primaryKeyWidth)
	id, ok := c.prime.Get(fixed)
	if !ok {
		return false, nil
	}

	if _, err := c.log.DeleteCommand(key); err != nil {
		return false, fmt.Errorf("di: delete: %w", err)
	}

	if value, err := c.rows.Get(id); err == nil {
		c.deindexFields(value, id)
	}
	_ = c.rows.Delete(id)
	c.prime.Delete(fixed)

	return true, nil
}

// LookupLE returns the key/value pair with the greatest application key
// less than or equal to key.
func (c *Container) LookupLE(key []byte) (k, v []byte, ok bool) {
	return c.lookupBound(key, c.prime.LookupLE)
}

// LookupGE returns the key/value pair with the least application key
// greater than or equal to key.
func (c *Container) LookupGE(key []byte) (k, v []byte, ok bool) {
	return c.lookupBound(key, c.prime.LookupGE)
}

func (c *Container) lookupBound(key []byte, bound func([]byte) ([]byte, ksuid.KSUID, bool)) ([]byte, []byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fixed := ebtindex.FixedKey(key, primaryKeyWidth)
	fixedKey, id, ok := bound(fixed)
	if !ok {
		return nil, nil, false
	}
	value, err := c.rows.Get(id)
	if err != nil {
		return nil, nil, false
	}
	return bytes.TrimRight(fixedKey, "\x00"), value, true
}

// Range calls fn with every stored key/value pair in ascending key order,
// stopping early if fn returns false.
func (c *Container) Range(fn func(key, value []byte) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.prime.Range(nil, nil, func(fixedKey []byte, id ksuid.KSUID) bool {
		value, err := c.rows.Get(id)
		if err != nil {
			return true
		}
		return fn(bytes.TrimRight(fixedKey, "\x00"), value)
	})
}

// Query runs a single field comparison against the secondary indexes and
// returns every matching record.
func (c *Container) Query(field, operator string, value interface{}) ([]query.QueryResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, err := c.query.ExecuteQuery(context.Background(), "", query.FieldQuery{Field: field, Operator: operator, Value: value}, &c.extractor)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []query.QueryResult
	for it.Next() {
		out = append(out, it.Result())
	}
	return out, nil
}

// Len reports the number of keys currently stored.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prime.Len()
}

// Close releases every underlying resource.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rowsErr := c.rows.Close()
	logErr := c.log.Close()
	if rowsErr != nil {
		return rowsErr
	}
	return logErr
}
