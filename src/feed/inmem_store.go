package feed

import (
	"fmt"
	"sync"

	cm "github.com/mosaicnetworks/halo/src/common"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/mosaicnetworks/halo/src/timeframe"
)

// InmemStore is a Store that keeps everything in memory.
type InmemStore struct {
	l          sync.RWMutex
	feeds      map[keys.PublicKey][]*Message
	order      []keys.PublicKey
	timeframes map[string]*timeframe.Timeframe
	closed     bool
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		feeds:      make(map[keys.PublicKey][]*Message),
		timeframes: make(map[string]*timeframe.Timeframe),
	}
}

// Append implements the Store interface.
func (s *InmemStore) Append(msg *Message) error {
	s.l.Lock()
	defer s.l.Unlock()

	if s.closed {
		return cm.NewStoreErr("InmemStore", cm.Closed, "")
	}

	msgs, ok := s.feeds[msg.FeedKey]
	length := int64(len(msgs))

	switch {
	case msg.Seq < length:
		return cm.NewStoreErr("Message", cm.KeyAlreadyExists, msg.String())
	case msg.Seq > length:
		return cm.NewStoreErr("Message", cm.SkippedIndex, msg.String())
	}

	if !ok {
		s.order = append(s.order, msg.FeedKey)
	}
	s.feeds[msg.FeedKey] = append(msgs, msg)

	return nil
}

// Get implements the Store interface.
func (s *InmemStore) Get(feedKey keys.PublicKey, seq int64) (*Message, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	msgs := s.feeds[feedKey]
	if seq < 0 || seq >= int64(len(msgs)) {
		return nil, cm.NewStoreErr("Message", cm.KeyNotFound, fmt.Sprintf("%s[%d]", feedKey, seq))
	}

	return msgs[seq], nil
}

// Messages implements the Store interface.
func (s *InmemStore) Messages(feedKey keys.PublicKey) ([]*Message, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	msgs, ok := s.feeds[feedKey]
	if !ok {
		return nil, cm.NewStoreErr("Feed", cm.KeyNotFound, feedKey.String())
	}

	res := make([]*Message, len(msgs))
	copy(res, msgs)

	return res, nil
}

// Length implements the Store interface.
func (s *InmemStore) Length(feedKey keys.PublicKey) int64 {
	s.l.RLock()
	defer s.l.RUnlock()
	return int64(len(s.feeds[feedKey]))
}

// FeedKeys implements the Store interface.
func (s *InmemStore) FeedKeys() []keys.PublicKey {
	s.l.RLock()
	defer s.l.RUnlock()

	res := make([]keys.PublicKey, len(s.order))
	copy(res, s.order)

	return res
}

// SetTimeframe implements the Store interface.
func (s *InmemStore) SetTimeframe(name string, tf *timeframe.Timeframe) error {
	s.l.Lock()
	defer s.l.Unlock()
	s.timeframes[name] = tf.Copy()
	return nil
}

// GetTimeframe implements the Store interface.
func (s *InmemStore) GetTimeframe(name string) (*timeframe.Timeframe, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	tf, ok := s.timeframes[name]
	if !ok {
		return nil, cm.NewStoreErr("Timeframe", cm.KeyNotFound, name)
	}

	return tf.Copy(), nil
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	s.l.Lock()
	defer s.l.Unlock()
	s.closed = true
	return nil
}

// StorePath implements the Store interface.
func (s *InmemStore) StorePath() string {
	return ""
}
