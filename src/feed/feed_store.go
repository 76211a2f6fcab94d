package feed

import (
	"context"
	"fmt"
	"sync"

	cm "github.com/mosaicnetworks/halo/src/common"
	"github.com/mosaicnetworks/halo/src/credentials"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/mosaicnetworks/halo/src/timeframe"
	"github.com/sirupsen/logrus"
)

// FeedStore manages the feeds of a space on top of a Store.
type FeedStore struct {
	// appendLock serializes appends so that OnAppend observes messages in
	// the order they were stored.
	appendLock sync.Mutex

	l      sync.RWMutex
	store  Store
	open   map[keys.PublicKey]bool // feed key => writable
	order  []keys.PublicKey
	closed bool

	// OnAppend is emitted after every message written locally or replicated.
	OnAppend cm.Event[*Message]

	logger *logrus.Entry
}

// NewFeedStore returns a FeedStore over store. Feeds already present in store
// are opened read-only.
func NewFeedStore(store Store, logger *logrus.Entry) *FeedStore {
	fs := &FeedStore{
		store:  store,
		open:   make(map[keys.PublicKey]bool),
		logger: logger,
	}

	for _, k := range store.FeedKeys() {
		fs.open[k] = false
		fs.order = append(fs.order, k)
	}

	return fs
}

// OpenFeed registers a feed. Opening a feed that is already open can only
// upgrade it to writable.
func (fs *FeedStore) OpenFeed(feedKey keys.PublicKey, writable bool) {
	fs.l.Lock()
	defer fs.l.Unlock()
	fs.openLocked(feedKey, writable)
}

func (fs *FeedStore) openLocked(feedKey keys.PublicKey, writable bool) {
	w, ok := fs.open[feedKey]
	if !ok {
		fs.order = append(fs.order, feedKey)
	}
	fs.open[feedKey] = w || writable

	fs.logger.WithFields(logrus.Fields{
		"feed":     feedKey.String(),
		"writable": fs.open[feedKey],
	}).Debug("Open feed")
}

// IsOpen ...
func (fs *FeedStore) IsOpen(feedKey keys.PublicKey) bool {
	fs.l.RLock()
	defer fs.l.RUnlock()
	_, ok := fs.open[feedKey]
	return ok
}

// IsWritable ...
func (fs *FeedStore) IsWritable(feedKey keys.PublicKey) bool {
	fs.l.RLock()
	defer fs.l.RUnlock()
	return fs.open[feedKey]
}

// Feeds returns the open feeds in the order they were opened.
func (fs *FeedStore) Feeds() []keys.PublicKey {
	fs.l.RLock()
	defer fs.l.RUnlock()

	res := make([]keys.PublicKey, len(fs.order))
	copy(res, fs.order)

	return res
}

// Append writes c at the end of a local writable feed.
func (fs *FeedStore) Append(ctx context.Context, feedKey keys.PublicKey, c *credentials.Credential) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.appendLock.Lock()
	defer fs.appendLock.Unlock()

	fs.l.Lock()
	if fs.closed {
		fs.l.Unlock()
		return nil, cm.NewStoreErr("FeedStore", cm.Closed, "")
	}
	if !fs.open[feedKey] {
		fs.l.Unlock()
		return nil, cm.NewStoreErr("Feed", cm.ReadOnly, feedKey.String())
	}

	msg := NewMessage(feedKey, fs.store.Length(feedKey), c)
	err := fs.store.Append(msg)
	fs.l.Unlock()

	if err != nil {
		fs.logger.WithError(err).WithField("message", msg.String()).Error("Append")
		return nil, err
	}

	fs.logger.WithFields(logrus.Fields{
		"message":    msg.String(),
		"credential": c.ID.String(),
	}).Debug("Append")

	fs.OnAppend.Emit(msg)

	return msg, nil
}

// Replicate appends a message received from a peer. Unknown feeds are
// opened read-only. Messages already present are ignored and reported as
// false; messages that would leave a gap return a SkippedIndex StoreErr.
func (fs *FeedStore) Replicate(msg *Message) (bool, error) {
	fs.appendLock.Lock()
	defer fs.appendLock.Unlock()

	fs.l.Lock()
	if fs.closed {
		fs.l.Unlock()
		return false, cm.NewStoreErr("FeedStore", cm.Closed, "")
	}
	if _, ok := fs.open[msg.FeedKey]; !ok {
		fs.openLocked(msg.FeedKey, false)
	}
	err := fs.store.Append(msg)
	fs.l.Unlock()

	if err != nil {
		if cm.IsStore(err, cm.KeyAlreadyExists) {
			return false, nil
		}
		return false, err
	}

	fs.OnAppend.Emit(msg)

	return true, nil
}

// Get returns the message at seq in feedKey.
func (fs *FeedStore) Get(feedKey keys.PublicKey, seq int64) (*Message, error) {
	return fs.store.Get(feedKey, seq)
}

// Range returns the messages of feedKey with from <= seq <= to. The range is
// clipped to the length of the feed.
func (fs *FeedStore) Range(feedKey keys.PublicKey, from, to int64) ([]*Message, error) {
	if from < 0 {
		from = 0
	}
	if last := fs.store.Length(feedKey) - 1; to > last {
		to = last
	}

	res := []*Message{}
	for seq := from; seq <= to; seq++ {
		msg, err := fs.store.Get(feedKey, seq)
		if err != nil {
			return nil, err
		}
		res = append(res, msg)
	}

	return res, nil
}

// Length returns the number of messages in feedKey.
func (fs *FeedStore) Length(feedKey keys.PublicKey) int64 {
	return fs.store.Length(feedKey)
}

// Timeframe returns the highest sequence number of every non-empty feed.
func (fs *FeedStore) Timeframe() *timeframe.Timeframe {
	tf := timeframe.New()
	for _, k := range fs.Feeds() {
		if n := fs.store.Length(k); n > 0 {
			tf.Set(k, n-1)
		}
	}
	return tf
}

// Writer returns a Writer that appends to feedKey.
func (fs *FeedStore) Writer(feedKey keys.PublicKey) (Writer, error) {
	if !fs.IsWritable(feedKey) {
		return nil, fmt.Errorf("feed %s is not writable", feedKey)
	}

	return WriterFunc(func(ctx context.Context, c *credentials.Credential) error {
		_, err := fs.Append(ctx, feedKey, c)
		return err
	}), nil
}

// Store returns the underlying Store.
func (fs *FeedStore) Store() Store {
	return fs.store
}

// Close closes the underlying Store.
func (fs *FeedStore) Close() error {
	fs.l.Lock()
	defer fs.l.Unlock()

	if fs.closed {
		return nil
	}
	fs.closed = true

	return fs.store.Close()
}
