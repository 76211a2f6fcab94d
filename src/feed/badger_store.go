package feed

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/halo/src/common"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/mosaicnetworks/halo/src/timeframe"
)

const (
	feedPrefix      = "feed"
	messagePrefix   = "msg"
	timeframePrefix = "timeframe"
)

// BadgerStore is a Store backed by a badger database. Messages are cached in
// an InmemStore; the database is the source of truth on restart.
type BadgerStore struct {
	inmemStore *InmemStore
	db         *badger.DB
	path       string
}

// NewBadgerStore creates a brand new Store with a new database
func NewBadgerStore(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	handle, err := openDB(path)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		inmemStore: NewInmemStore(),
		db:         handle,
		path:       path,
	}

	return store, nil
}

// LoadBadgerStore creates a Store from an existing database and loads every
// feed into the cache.
func LoadBadgerStore(path string) (*BadgerStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	handle, err := openDB(path)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		inmemStore: NewInmemStore(),
		db:         handle,
		path:       path,
	}

	feeds, err := store.dbGetFeedKeys()
	if err != nil {
		handle.Close()
		return nil, err
	}

	for _, f := range feeds {
		msgs, err := store.dbGetMessages(f)
		if err != nil {
			handle.Close()
			return nil, err
		}
		for _, m := range msgs {
			if err := store.inmemStore.Append(m); err != nil {
				handle.Close()
				return nil, err
			}
		}
	}

	return store, nil
}

// LoadOrCreateBadgerStore loads the database at path if it exists, or
// creates a new one.
func LoadOrCreateBadgerStore(path string) (*BadgerStore, error) {
	store, err := LoadBadgerStore(path)

	if err != nil {
		store, err = NewBadgerStore(path)

		if err != nil {
			return nil, err
		}
	}

	return store, nil
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false
	return badger.Open(opts)
}

//==============================================================================
//Keys

func feedIndexKey(index int) []byte {
	return []byte(fmt.Sprintf("%s_%09d", feedPrefix, index))
}

func messageKey(feedKey keys.PublicKey, seq int64) []byte {
	return []byte(fmt.Sprintf("%s_%s_%09d", messagePrefix, feedKey.Hex(), seq))
}

func messagePrefixKey(feedKey keys.PublicKey) []byte {
	return []byte(fmt.Sprintf("%s_%s_", messagePrefix, feedKey.Hex()))
}

func timeframeKey(name string) []byte {
	return []byte(fmt.Sprintf("%s_%s", timeframePrefix, name))
}

//==============================================================================
//Implement the Store interface

// Append implements the Store interface.
func (s *BadgerStore) Append(msg *Message) error {
	newFeed := s.inmemStore.Length(msg.FeedKey) == 0

	if err := s.inmemStore.Append(msg); err != nil {
		return err
	}

	feedIndex := -1
	if newFeed {
		feedIndex = len(s.inmemStore.FeedKeys()) - 1
	}

	return s.dbAppend(msg, feedIndex)
}

// Get implements the Store interface.
func (s *BadgerStore) Get(feedKey keys.PublicKey, seq int64) (*Message, error) {
	msg, err := s.inmemStore.Get(feedKey, seq)
	if err != nil {
		msg, err = s.dbGetMessage(feedKey, seq)
	}
	return msg, mapError(err, "Message", string(messageKey(feedKey, seq)))
}

// Messages implements the Store interface.
func (s *BadgerStore) Messages(feedKey keys.PublicKey) ([]*Message, error) {
	return s.inmemStore.Messages(feedKey)
}

// Length implements the Store interface.
func (s *BadgerStore) Length(feedKey keys.PublicKey) int64 {
	return s.inmemStore.Length(feedKey)
}

// FeedKeys implements the Store interface.
func (s *BadgerStore) FeedKeys() []keys.PublicKey {
	return s.inmemStore.FeedKeys()
}

// SetTimeframe implements the Store interface.
func (s *BadgerStore) SetTimeframe(name string, tf *timeframe.Timeframe) error {
	if err := s.inmemStore.SetTimeframe(name, tf); err != nil {
		return err
	}
	return s.dbSetTimeframe(name, tf)
}

// GetTimeframe implements the Store interface.
func (s *BadgerStore) GetTimeframe(name string) (*timeframe.Timeframe, error) {
	tf, err := s.inmemStore.GetTimeframe(name)
	if err != nil {
		tf, err = s.dbGetTimeframe(name)
	}
	return tf, mapError(err, "Timeframe", string(timeframeKey(name)))
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	if err := s.inmemStore.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

// StorePath implements the Store interface.
func (s *BadgerStore) StorePath() string {
	return s.path
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//DB Methods

func (s *BadgerStore) dbAppend(msg *Message, feedIndex int) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	val, err := msg.Marshal()
	if err != nil {
		return err
	}

	//insert [msg_feed_seq] => [message bytes]
	if err := tx.Set(messageKey(msg.FeedKey, msg.Seq), val); err != nil {
		return err
	}

	//insert [feed_index] => [feed key] the first time a feed is written
	if feedIndex >= 0 {
		if err := tx.Set(feedIndexKey(feedIndex), msg.FeedKey.Bytes()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *BadgerStore) dbGetMessage(feedKey keys.PublicKey, seq int64) (*Message, error) {
	var msgBytes []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(messageKey(feedKey, seq))
		if err != nil {
			return err
		}
		msgBytes, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, err
	}

	msg := new(Message)
	if err := msg.Unmarshal(msgBytes); err != nil {
		return nil, err
	}

	return msg, nil
}

func (s *BadgerStore) dbGetMessages(feedKey keys.PublicKey) ([]*Message, error) {
	res := []*Message{}

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := messagePrefixKey(feedKey)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			msg := new(Message)
			if err := msg.Unmarshal(v); err != nil {
				return err
			}

			res = append(res, msg)
		}

		return nil
	})

	return res, err
}

func (s *BadgerStore) dbGetFeedKeys() ([]keys.PublicKey, error) {
	res := []keys.PublicKey{}

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(feedPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			k, err := keys.PublicKeyFromBytes(v)
			if err != nil {
				return err
			}

			res = append(res, k)
		}

		return nil
	})

	return res, err
}

func (s *BadgerStore) dbSetTimeframe(name string, tf *timeframe.Timeframe) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	val, err := tf.Marshal()
	if err != nil {
		return err
	}

	if err := tx.Set(timeframeKey(name), val); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *BadgerStore) dbGetTimeframe(name string) (*timeframe.Timeframe, error) {
	var tfBytes []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(timeframeKey(name))
		if err != nil {
			return err
		}
		tfBytes, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, err
	}

	tf := timeframe.New()
	if err := tf.Unmarshal(tfBytes); err != nil {
		return nil, err
	}

	return tf, nil
}

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return cm.NewStoreErr(name, cm.KeyNotFound, key)
		}
	}
	return err
}
