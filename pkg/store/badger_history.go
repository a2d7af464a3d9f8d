package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/types"
)

var _ History = &BadgerHistory{}

// BadgerHistory keeps revisions in a BadgerDB directory. At most Limit
// revisions are retained when Limit is positive.
type BadgerHistory struct {
	db     *badger.DB
	path   string
	limit  int
	logger log.Logger
}

// OpenBadgerHistory opens or creates the database at path.
func OpenBadgerHistory(path string, limit int, logger log.Logger) (*BadgerHistory, error) {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	logger = logger.WithComponent("history")

	opts := badger.DefaultOptions(path)
	opts.Logger = &badgerLogAdapter{logger: logger}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	logger.Debug("Revision history opened", log.Path(path))
	return &BadgerHistory{db: db, path: path, limit: limit, logger: logger}, nil
}

// Close closes the database.
func (h *BadgerHistory) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Record stores rev and prunes revisions beyond the retention limit.
func (h *BadgerHistory) Record(_ context.Context, rev *Revision) error {
	prepareRevision(rev)
	data, err := json.Marshal(rev)
	if err != nil {
		return fmt.Errorf("failed to serialize revision: %w", err)
	}
	key := MakeRevisionKey(rev)

	return h.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("failed to store revision: %w", err)
		}
		if err := txn.Set(MakeRevisionIndexKey(rev.ID), key); err != nil {
			return fmt.Errorf("failed to index revision: %w", err)
		}
		return h.prune(txn, key)
	})
}

// prune deletes the oldest revisions beyond the limit. justWritten is not
// yet visible to iterators of txn's read snapshot.
func (h *BadgerHistory) prune(txn *badger.Txn, justWritten []byte) error {
	if h.limit <= 0 {
		return nil
	}
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(revisionPrefix)
	kept := 0
	var stale [][]byte
	var staleIDs []string
	for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		if string(key) == string(justWritten) {
			kept++
			continue
		}
		if kept < h.limit {
			kept++
			continue
		}
		var rev Revision
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rev) }); err != nil {
			return fmt.Errorf("failed to deserialize revision: %w", err)
		}
		stale = append(stale, key)
		staleIDs = append(staleIDs, rev.ID)
	}
	for i, key := range stale {
		if err := txn.Delete(key); err != nil {
			return err
		}
		if err := txn.Delete(MakeRevisionIndexKey(staleIDs[i])); err != nil {
			return err
		}
	}
	if len(stale) > 0 {
		h.logger.Debug("Pruned revisions", log.Int("count", len(stale)))
	}
	return nil
}

// Revisions lists revisions newest first.
func (h *BadgerHistory) Revisions(_ context.Context) ([]Revision, error) {
	var revs []Revision
	err := h.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(revisionPrefix)
		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rev Revision
				if err := json.Unmarshal(val, &rev); err != nil {
					return fmt.Errorf("failed to deserialize revision: %w", err)
				}
				rev.Document = nil
				revs = append(revs, rev)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return revs, err
}

// Revision returns the revision with the given id.
func (h *BadgerHistory) Revision(_ context.Context, id string) (*Revision, error) {
	var rev Revision
	err := h.db.View(func(txn *badger.Txn) error {
		idx, err := txn.Get(MakeRevisionIndexKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return types.NotFoundf("revision %s not found", id)
		} else if err != nil {
			return fmt.Errorf("failed to get revision: %w", err)
		}
		key, err := idx.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return fmt.Errorf("failed to get revision: %w", err)
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &rev) })
	})
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

type badgerLogAdapter struct {
	logger log.Logger
}

// Errorf implements badger.Logger.
func (l *badgerLogAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Errorf("BadgerDB: "+format, args...)
}

// Warningf implements badger.Logger.
func (l *badgerLogAdapter) Warningf(format string, args ...interface{}) {
	l.logger.Warnf("BadgerDB: "+format, args...)
}

// Infof implements badger.Logger.
func (l *badgerLogAdapter) Infof(format string, args ...interface{}) {
	l.logger.Debugf("BadgerDB: "+format, args...)
}

// Debugf implements badger.Logger.
func (l *badgerLogAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Debugf("BadgerDB: "+format, args...)
}
