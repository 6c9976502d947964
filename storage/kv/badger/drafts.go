// Package badgerkv persists editor drafts in an embedded badger key-value store.
package badgerkv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/editor"
)

const draftPrefix = "draft/"

type DraftStore struct {
	db  *badger.DB
	ttl time.Duration
}

var _ editor.DraftStore = (*DraftStore)(nil) // interface compliance check

// Open opens the store under conf.Editor.DraftsPath, or in memory when conf.Editor.DraftsInMemory is set.
// Drafts expire after ttl (never when ttl is 0).
func Open(conf *core.Config, ttl time.Duration, logger core.Logger) (*DraftStore, error) {
	opts := badger.DefaultOptions(conf.Editor.DraftsPath)
	if conf.Editor.DraftsInMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening draft store")
	}
	return &DraftStore{db: db, ttl: ttl}, nil
}

func (s *DraftStore) Close() error {
	return errors.Wrap(s.db.Close(), "closing draft store")
}

// storeErr wraps err; a closed store is unrecoverable and asks the server to shut down.
func storeErr(err error, msg string) error {
	if errors.Cause(err) == badger.ErrDBClosed {
		return errors.Wrap(core.NewShutdownError("draft store closed"), msg)
	}
	return errors.Wrap(err, msg)
}

func draftKey(documentID, userID string) []byte {
	return []byte(draftPrefix + documentID + "/" + userID)
}

func (s *DraftStore) GetDraft(_ context.Context, documentID, userID string) (editor.Draft, error) {
	var d editor.Draft
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(draftKey(documentID, userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &d)
		})
	})
	if err == badger.ErrKeyNotFound {
		return editor.Draft{}, editor.ErrDraftNotFound
	}
	if err != nil {
		return editor.Draft{}, storeErr(err, "reading draft")
	}
	return d, nil
}

func (s *DraftStore) PutDraft(_ context.Context, d editor.Draft) error {
	val, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "encoding draft")
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(draftKey(d.DocumentID, d.UserID), val)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
	return storeErr(err, "writing draft")
}

func (s *DraftStore) DeleteDraft(_ context.Context, documentID, userID string) error {
	key := draftKey(documentID, userID)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err == badger.ErrKeyNotFound {
		return editor.ErrDraftNotFound
	}
	return storeErr(err, "deleting draft")
}

// DocumentDrafts lists the drafts kept for a document, whoever their author.
func (s *DraftStore) DocumentDrafts(documentID string) ([]editor.Draft, error) {
	prefix := []byte(draftPrefix + documentID + "/")
	drafts := make([]editor.Draft, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var d editor.Draft
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &d) }); err != nil {
				return err
			}
			drafts = append(drafts, d)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "listing drafts")
	}
	return drafts, nil
}

// badgerLogger forwards badger's own logs; info and debug chatter is dropped.
type badgerLogger struct {
	logger core.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error("badger: " + fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn("badger: " + fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(string, ...interface{})  {}
func (l badgerLogger) Debugf(string, ...interface{}) {}
