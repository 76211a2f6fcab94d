// Package pipeline feeds the credentials written to a space's control feeds
// into its state machine, in feed order.
package pipeline

import (
	"sync"

	"github.com/mosaicnetworks/halo/src/credentials"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/mosaicnetworks/halo/src/feed"
	"github.com/mosaicnetworks/halo/src/party"
	"github.com/mosaicnetworks/halo/src/timeframe"
	"github.com/sirupsen/logrus"
)

// ProcessedTimeframe is the name under which the processed Timeframe is
// saved in the feed Store.
const ProcessedTimeframe = "processed"

// Processor observes every credential read from a control feed, whether or
// not the state machine accepted it.
type Processor interface {
	Process(c *credentials.Credential)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(c *credentials.Credential)

// Process implements Processor.
func (f ProcessorFunc) Process(c *credentials.Credential) {
	f(c)
}

// Pipeline reads tracked feeds from a FeedStore and applies their messages
// to a PartyStateMachine. The genesis feed is tracked explicitly; every
// CONTROL feed admitted afterwards is tracked automatically.
type Pipeline struct {
	l sync.Mutex

	feeds      *feed.FeedStore
	state      *party.PartyStateMachine
	processors []Processor

	tracked    []keys.PublicKey
	trackedSet map[keys.PublicKey]bool
	processed  *timeframe.Timeframe

	unsubscribe func()

	logger *logrus.Entry
}

// NewPipeline ...
func NewPipeline(feeds *feed.FeedStore, state *party.PartyStateMachine, logger *logrus.Entry) *Pipeline {
	p := &Pipeline{
		feeds:      feeds,
		state:      state,
		trackedSet: make(map[keys.PublicKey]bool),
		processed:  timeframe.New(),
		logger:     logger,
	}

	// The state machine is only driven from Drain, which holds the lock.
	p.unsubscribe = state.FeedStateMachine().OnFeedAdmitted.On(func(info *party.FeedInfo) {
		if info.Assertion.Designation == credentials.DesignationControl {
			p.trackLocked(info.Key)
		}
	})

	return p
}

// AddProcessor registers proc. Processors run in registration order after
// the state machine.
func (p *Pipeline) AddProcessor(proc Processor) {
	p.l.Lock()
	defer p.l.Unlock()
	p.processors = append(p.processors, proc)
}

// Track starts reading feedKey.
func (p *Pipeline) Track(feedKey keys.PublicKey) {
	p.l.Lock()
	defer p.l.Unlock()
	p.trackLocked(feedKey)
}

func (p *Pipeline) trackLocked(feedKey keys.PublicKey) {
	if p.trackedSet[feedKey] {
		return
	}
	p.trackedSet[feedKey] = true
	p.tracked = append(p.tracked, feedKey)

	p.logger.WithField("feed", feedKey.String()).Debug("Track feed")
}

// Tracked returns the tracked feeds in the order they were added.
func (p *Pipeline) Tracked() []keys.PublicKey {
	p.l.Lock()
	defer p.l.Unlock()

	res := make([]keys.PublicKey, len(p.tracked))
	copy(res, p.tracked)

	return res
}

// IsTracked ...
func (p *Pipeline) IsTracked(feedKey keys.PublicKey) bool {
	p.l.Lock()
	defer p.l.Unlock()
	return p.trackedSet[feedKey]
}

// Processed returns a copy of the processed Timeframe.
func (p *Pipeline) Processed() *timeframe.Timeframe {
	p.l.Lock()
	defer p.l.Unlock()
	return p.processed.Copy()
}

// Drain applies every unprocessed message of the tracked feeds, feed by feed
// in tracking order, until no more progress is made. Feeds admitted while
// draining are read in the same call. It returns the number of messages
// applied.
func (p *Pipeline) Drain() int {
	p.l.Lock()
	defer p.l.Unlock()

	count := 0
	for {
		progress := false

		// p.tracked may grow while iterating.
		for i := 0; i < len(p.tracked); i++ {
			n := p.drainFeed(p.tracked[i])
			if n > 0 {
				count += n
				progress = true
			}
		}

		if !progress {
			break
		}
	}

	if count > 0 {
		if err := p.feeds.Store().SetTimeframe(ProcessedTimeframe, p.processed); err != nil {
			p.logger.WithError(err).Error("Saving processed timeframe")
		}

		p.logger.WithFields(logrus.Fields{
			"messages":  count,
			"processed": p.processed.String(),
		}).Debug("Drain")
	}

	return count
}

func (p *Pipeline) drainFeed(feedKey keys.PublicKey) int {
	next := int64(0)
	if seq, ok := p.processed.Get(feedKey); ok {
		next = seq + 1
	}

	length := p.feeds.Length(feedKey)

	count := 0
	for seq := next; seq < length; seq++ {
		msg, err := p.feeds.Get(feedKey, seq)
		if err != nil {
			p.logger.WithError(err).WithField("feed", feedKey.String()).Error("Reading feed")
			break
		}

		if msg.Credential != nil {
			p.state.Process(msg.Credential, feedKey)
			for _, proc := range p.processors {
				proc.Process(msg.Credential)
			}
		}

		p.processed.Set(feedKey, seq)
		count++
	}

	return count
}

// Close stops tracking newly admitted feeds.
func (p *Pipeline) Close() {
	p.l.Lock()
	defer p.l.Unlock()

	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
}
