package feed

import (
	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/mosaicnetworks/halo/src/timeframe"
)

// Store persists feed messages and named Timeframe snapshots.
type Store interface {
	// Append adds msg at the end of its feed. msg.Seq must equal the current
	// length of the feed: lower sequences return a KeyAlreadyExists StoreErr,
	// higher ones a SkippedIndex StoreErr.
	Append(msg *Message) error
	Get(feedKey keys.PublicKey, seq int64) (*Message, error)
	Messages(feedKey keys.PublicKey) ([]*Message, error)
	Length(feedKey keys.PublicKey) int64
	// FeedKeys returns every feed with at least one message, in the order
	// they were first written.
	FeedKeys() []keys.PublicKey
	SetTimeframe(name string, tf *timeframe.Timeframe) error
	GetTimeframe(name string) (*timeframe.Timeframe, error)
	Close() error
	StorePath() string
}
