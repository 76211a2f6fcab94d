package party

import (
	"fmt"

	"github.com/mosaicnetworks/halo/src/common"
	"github.com/mosaicnetworks/halo/src/credentials"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

// FeedInfo describes a feed admitted into a space. Parent is the feed on
// which the admitting credential was recorded. The genesis feed is its own
// parent.
type FeedInfo struct {
	Key        keys.PublicKey
	Credential *credentials.Credential
	Assertion  *credentials.AdmittedFeed
	Parent     keys.PublicKey
}

// IsGenesis reports whether the feed admitted itself.
func (f *FeedInfo) IsGenesis() bool {
	return f.Key == f.Parent
}

// FeedStateMachine tracks the tree of feeds admitted into one space.
type FeedStateMachine struct {
	spaceKey keys.PublicKey
	feeds    map[keys.PublicKey]*FeedInfo
	order    []keys.PublicKey

	// OnFeedAdmitted is emitted after a feed is inserted.
	OnFeedAdmitted common.Event[*FeedInfo]
}

// NewFeedStateMachine ...
func NewFeedStateMachine(spaceKey keys.PublicKey) *FeedStateMachine {
	return &FeedStateMachine{
		spaceKey: spaceKey,
		feeds:    make(map[keys.PublicKey]*FeedInfo),
	}
}

// Process admits the subject of c, recorded on fromFeed. c must carry an
// AdmittedFeed assertion for this space and its subject must not be known
// yet. Violations panic.
func (f *FeedStateMachine) Process(c *credentials.Credential, fromFeed keys.PublicKey) *FeedInfo {
	assertion, ok := c.Assertion.(*credentials.AdmittedFeed)
	if !ok {
		panic(fmt.Sprintf("feed state machine: unexpected assertion %q", c.Type()))
	}
	if assertion.SpaceKey != f.spaceKey {
		panic(fmt.Sprintf("feed state machine: credential for space %s processed by %s",
			assertion.SpaceKey, f.spaceKey))
	}
	if f.Has(c.Subject) {
		panic(fmt.Sprintf("feed state machine: feed already exists: %s", c.Subject))
	}

	info := &FeedInfo{
		Key:        c.Subject,
		Credential: c,
		Assertion:  assertion,
		Parent:     fromFeed,
	}
	f.feeds[c.Subject] = info
	f.order = append(f.order, c.Subject)

	f.OnFeedAdmitted.Emit(info)

	return info
}

// Get ...
func (f *FeedStateMachine) Get(key keys.PublicKey) (*FeedInfo, bool) {
	info, ok := f.feeds[key]
	return info, ok
}

// Has ...
func (f *FeedStateMachine) Has(key keys.PublicKey) bool {
	_, ok := f.feeds[key]
	return ok
}

// Feeds returns the feeds in admission order.
func (f *FeedStateMachine) Feeds() []*FeedInfo {
	res := make([]*FeedInfo, len(f.order))
	for i, k := range f.order {
		res[i] = f.feeds[k]
	}
	return res
}

// Len ...
func (f *FeedStateMachine) Len() int {
	return len(f.order)
}
