package notarization

import (
	"context"
	"time"

	"github.com/mosaicnetworks/halo/src/credentials"
	"github.com/sirupsen/logrus"
)

type taskState int

const (
	// no attempt in progress, waiting for a wake-up
	idle taskState = iota
	// a Notarize RPC to one peer is in flight
	attempting
	// a peer accepted the request, pausing for SuccessDelay
	waitingSuccess
	// every connected peer has been tried since the last reset
	exhausted
	// waiting RetryTimeout after exhausting the peers
	waitingBackoff
)

func (s taskState) String() string {
	switch s {
	case idle:
		return "Idle"
	case attempting:
		return "Attempting"
	case waitingSuccess:
		return "WaitingSuccess"
	case exhausted:
		return "Exhausted"
	case waitingBackoff:
		return "WaitingBackoff"
	default:
		return "Unknown"
	}
}

// retryTask asks connected peers, one at a time, to notarize a set of
// credentials. Every reason to make an attempt (first run, failed RPC,
// expired backoff, new peer) goes through the same wake channel, so
// concurrent triggers coalesce into a single attempt.
type retryTask struct {
	plugin *Plugin
	creds  []*credentials.Credential

	retryTimeout time.Duration
	successDelay time.Duration

	wakeCh chan struct{}

	// only accessed from run
	state   taskState
	tried   map[*Extension]bool
	backoff *time.Timer

	logger *logrus.Entry
}

func newRetryTask(p *Plugin, creds []*credentials.Credential, conf *Config, logger *logrus.Entry) *retryTask {
	return &retryTask{
		plugin:       p,
		creds:        creds,
		retryTimeout: conf.RetryTimeout,
		successDelay: conf.SuccessDelay,
		wakeCh:       make(chan struct{}, 1),
		state:        idle,
		tried:        make(map[*Extension]bool),
		logger:       logger,
	}
}

// schedule requests an attempt. It never blocks.
func (t *retryTask) schedule() {
	select {
	case t.wakeCh <- struct{}{}:
	default:
	}
}

func (t *retryTask) run(ctx context.Context) {
	defer func() {
		if t.backoff != nil {
			t.backoff.Stop()
		}
	}()

	t.schedule()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.wakeCh:
			t.attempt(ctx)
		}
	}
}

func (t *retryTask) attempt(ctx context.Context) {
	peers := t.plugin.extensions.Snapshot()
	if len(peers) == 0 {
		t.setState(idle)
		return
	}

	var peer *Extension
	for _, p := range peers {
		if !t.tried[p] {
			peer = p
			break
		}
	}

	if peer == nil {
		t.setState(exhausted)
		t.logger.WithField("retry_in", t.retryTimeout).Info("Exhausted all peers to notarize with")

		t.tried = make(map[*Extension]bool)
		t.setState(waitingBackoff)
		if t.backoff != nil {
			t.backoff.Stop()
		}
		t.backoff = time.AfterFunc(t.retryTimeout, t.schedule)
		return
	}

	t.tried[peer] = true
	t.setState(attempting)

	pending := t.plugin.unprocessed(t.creds)
	if len(pending) == 0 {
		t.setState(idle)
		return
	}

	t.logger.WithFields(logrus.Fields{
		"peer":        peer.RemoteAddr,
		"credentials": len(pending),
	}).Debug("Try notarizing")

	written, err := peer.Notarize(ctx, pending)
	if err != nil {
		if ctx.Err() == nil && !IsWriterNotSet(err) {
			t.logger.WithError(err).WithField("peer", peer.RemoteAddr).Info("Error notarizing (recoverable)")
		}
		t.setState(idle)
		t.schedule()
		return
	}

	t.logger.WithFields(logrus.Fields{
		"peer":    peer.RemoteAddr,
		"written": written,
	}).Debug("Notarize request accepted")

	t.setState(waitingSuccess)
	timer := time.NewTimer(t.successDelay)
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	timer.Stop()

	t.setState(idle)
}

func (t *retryTask) setState(s taskState) {
	t.state = s
}
