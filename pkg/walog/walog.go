// Package walog is a write-ahead command log backed by pebble. Where
// pkg/storage keys each record by a freshly minted row identity, Log keys
// each record by a monotonically increasing sequence number, so iterating
// the database in key order replays commands in the order they were
// appended, rebuilding pkg/ebtindex.Store and the secondary indexes on
// restart.
package walog

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/ebtdb/ebtd/pkg/codec"
)

// Op identifies what a logged Command does to the index it is replayed
// into.
type Op byte

const (
	OpPut    Op = 1
	OpDelete Op = 2
)

// Command is one write-ahead log entry.
type Command struct {
	Op    Op
	Key   []byte
	Value []byte
}

// Log is a durable, ordered sequence of Commands.
type Log struct {
	mu      sync.Mutex
	db      *pebble.DB
	codec   *codec.RecordCodec
	nextSeq uint64
}

// Open opens (or creates) the log stored under dir.
func Open(dir string) (*Log, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("walog: opening %s: %w", dir, err)
	}

	l := &Log{db: db, codec: codec.NewRecordCodec()}

	last, err := l.lastSeq()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("walog: reading last sequence: %w", err)
	}
	l.nextSeq = last + 1

	return l, nil
}

func (l *Log) lastSeq() (uint64, error) {
	iter, err := l.db.NewIter(nil)
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, nil
	}
	return binary.BigEndian.Uint64(iter.Key()), nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

// Append records cmd durably and returns its sequence number. The command's
// op is packed as a leading byte on the key passed to codec.Encode, so the
// generic KV record format in pkg/codec needs no change to frame it.
func (l *Log) Append(cmd Command) (uint64, error) {
	packedKey := make([]byte, 0, len(cmd.Key)+1)
	packedKey = append(packedKey, byte(cmd.Op))
	packedKey = append(packedKey, cmd.Key...)

	encoded, err := l.codec.Encode(packedKey, cmd.Value)
	if err != nil {
		return 0, fmt.Errorf("walog: encoding command: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.nextSeq
	if err := l.db.Set(seqKey(seq), encoded, pebble.Sync); err != nil {
		return 0, fmt.Errorf("walog: appending: %w", err)
	}
	l.nextSeq = seq + 1

	return seq, nil
}

// PutCommand appends a put command for key/value.
func (l *Log) PutCommand(key, value []byte) (uint64, error) {
	return l.Append(Command{Op: OpPut, Key: key, Value: value})
}

// DeleteCommand appends a delete command for key.
func (l *Log) DeleteCommand(key []byte) (uint64, error) {
	return l.Append(Command{Op: OpDelete, Key: key})
}

// Replay calls fn once per command in append order. It stops and returns
// fn's error as soon as fn reports one.
func (l *Log) Replay(fn func(Command) error) error {
	iter, err := l.db.NewIter(nil)
	if err != nil {
		return fmt.Errorf("walog: replay: %w", err)
	}
	defer iter.Close()

	for valid := iter.First(); valid; valid = iter.Next() {
		rec, err := l.codec.Decode(iter.Value())
		if err != nil {
			return fmt.Errorf("walog: replay: decoding record: %w", err)
		}
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("walog: replay: %w", err)
		}
		if len(rec.Key) == 0 {
			return fmt.Errorf("walog: replay: command record is missing its op byte")
		}

		cmd := Command{Op: Op(rec.Key[0]), Key: rec.Key[1:], Value: rec.Value}
		if err := fn(cmd); err != nil {
			return err
		}
	}

	return nil
}

// Close releases the underlying pebble handle.
func (l *Log) Close() error {
	return l.db.Close()
}
