package cacheutil

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"

	"relaygate.dev/internal/chk"
)

// BadgerCache backs Cache with an embedded badger KV store, the same
// dependency the teacher uses for its own on-disk store.
type BadgerCache struct {
	db *badger.DB
}

// OpenBadger opens (creating if absent) a badger database at dir.
func OpenBadger(dir string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if chk.E(err) {
		return nil, err
	}
	return &BadgerCache{db: db}, nil
}

func (b *BadgerCache) Close() error { return b.db.Close() }

// GetQuery returns the stored entry for key together with its age in
// seconds, or found=false if absent or expired.
func (b *BadgerCache) GetQuery(key string) (entry *Entry, ageSeconds int64, found bool, err error) {
	err = b.db.View(
		func(txn *badger.Txn) error {
			item, getErr := txn.Get([]byte(key))
			if getErr == badger.ErrKeyNotFound {
				return nil
			}
			if getErr != nil {
				return getErr
			}
			found = true
			return item.Value(
				func(val []byte) error {
					var e Entry
					if unmarshalErr := json.Unmarshal(val, &e); unmarshalErr != nil {
						return unmarshalErr
					}
					entry = &e
					return nil
				},
			)
		},
	)
	if chk.E(err) {
		return nil, 0, false, err
	}
	if !found {
		return nil, 0, false, nil
	}
	age := time.Now().Unix() - entry.Timestamp
	if age < 0 {
		age = 0
	}
	return entry, age, true, nil
}

// PutQuery stamps entry.Timestamp to now, serializes it, and writes it
// with the given TTL.
func (b *BadgerCache) PutQuery(key string, entry *Entry, ttlSeconds int) error {
	entry.Timestamp = time.Now().Unix()
	val, err := json.Marshal(entry)
	if chk.E(err) {
		return err
	}
	return b.db.Update(
		func(txn *badger.Txn) error {
			e := badger.NewEntry([]byte(key), val).WithTTL(
				time.Duration(ttlSeconds) * time.Second,
			)
			return txn.SetEntry(e)
		},
	)
}

// GetStatus returns the PublishStatus row for eventID.
func (b *BadgerCache) GetStatus(eventID string) (status *PublishStatus, found bool, err error) {
	err = b.db.View(
		func(txn *badger.Txn) error {
			item, getErr := txn.Get([]byte(StatusKey(eventID)))
			if getErr == badger.ErrKeyNotFound {
				return nil
			}
			if getErr != nil {
				return getErr
			}
			found = true
			return item.Value(
				func(val []byte) error {
					var s PublishStatus
					if unmarshalErr := json.Unmarshal(val, &s); unmarshalErr != nil {
						return unmarshalErr
					}
					status = &s
					return nil
				},
			)
		},
	)
	if chk.E(err) {
		return nil, false, err
	}
	return status, found, nil
}

// SetStatus writes status for eventID with the fixed 24h status TTL,
// overwriting any prior row.
func (b *BadgerCache) SetStatus(eventID string, status *PublishStatus) error {
	val, err := json.Marshal(status)
	if chk.E(err) {
		return err
	}
	return b.db.Update(
		func(txn *badger.Txn) error {
			e := badger.NewEntry(
				[]byte(StatusKey(eventID)), val,
			).WithTTL(StatusTTLSeconds * time.Second)
			return txn.SetEntry(e)
		},
	)
}
