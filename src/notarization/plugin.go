package notarization

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mosaicnetworks/halo/src/credentials"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/mosaicnetworks/halo/src/feed"
	"github.com/mosaicnetworks/halo/src/net"
	"github.com/sirupsen/logrus"
)

// Plugin is both sides of the notarization protocol for one space. It is a
// pipeline processor: Process must be called with every credential read from
// the space's control feeds.
type Plugin struct {
	conf *Config

	l         sync.Mutex
	writer    feed.Writer
	processed map[keys.PublicKey]bool
	waiters   map[keys.PublicKey]chan struct{}
	tasks     map[*retryTask]context.CancelFunc
	closed    bool

	extensions Extensions

	closeCh chan struct{}
	wg      sync.WaitGroup

	logger *logrus.Entry
}

// NewPlugin returns a Plugin with the given timings. A nil conf means
// DefaultConfig.
func NewPlugin(conf *Config, logger *logrus.Entry) *Plugin {
	if conf == nil {
		conf = DefaultConfig()
	}

	return &Plugin{
		conf:      conf,
		processed: make(map[keys.PublicKey]bool),
		waiters:   make(map[keys.PublicKey]chan struct{}),
		tasks:     make(map[*retryTask]context.CancelFunc),
		closeCh:   make(chan struct{}),
		logger:    logger,
	}
}

// Notarize asks connected peers to write creds to the space and blocks until
// every one of them has been processed locally. It returns a *TimeoutError if
// that takes longer than the configured Timeout, ErrClosed if the plugin is
// closed first, and ctx.Err() if ctx is done first.
func (p *Plugin) Notarize(ctx context.Context, creds []*credentials.Credential) error {
	for _, c := range creds {
		if c == nil || !c.HasID() {
			return ErrMissingID
		}
	}

	p.l.Lock()
	if p.closed {
		p.l.Unlock()
		return ErrClosed
	}

	pending := make([]chan struct{}, 0, len(creds))
	for _, c := range creds {
		if p.processed[c.ID] {
			continue
		}
		ch, ok := p.waiters[c.ID]
		if !ok {
			ch = make(chan struct{})
			p.waiters[c.ID] = ch
		}
		pending = append(pending, ch)
	}

	if len(pending) == 0 {
		p.l.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)

	// A space with a local writer records the credentials itself. Asking a
	// peer as well would write them twice.
	if writer := p.writer; writer != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if _, err := p.writeCredentials(ctx, writer, creds); err != nil {
				select {
				case errCh <- err:
				default:
				}
			}
		}()
	} else {
		task := newRetryTask(p, creds, p.conf, p.logger)
		p.tasks[task] = cancel
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			task.run(ctx)
		}()

		defer func() {
			p.l.Lock()
			delete(p.tasks, task)
			p.l.Unlock()
		}()
	}
	p.l.Unlock()

	p.logger.WithField("credentials", len(creds)).Debug("Notarize")

	var timeoutCh <-chan time.Time
	if p.conf.Timeout > 0 {
		timer := time.NewTimer(p.conf.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for i, ch := range pending {
		select {
		case <-ch:
		case <-timeoutCh:
			p.logger.WithFields(logrus.Fields{
				"timeout": p.conf.Timeout,
				"peers":   p.peerAddrs(),
			}).Warn("Notarization timeout")
			return &TimeoutError{Timeout: p.conf.Timeout, Pending: len(pending) - i}
		case err := <-errCh:
			p.logger.WithError(err).Warn("Notarization error")
			return err
		case <-p.closeCh:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.logger.Debug("Notarize done")

	return nil
}

// Process records a credential read from the control pipeline and releases
// the Notarize calls waiting for it. Credentials without an id are ignored.
func (p *Plugin) Process(c *credentials.Credential) {
	if c == nil || !c.HasID() {
		return
	}

	p.l.Lock()
	defer p.l.Unlock()

	if p.processed[c.ID] {
		return
	}
	p.processed[c.ID] = true

	if ch, ok := p.waiters[c.ID]; ok {
		close(ch)
		delete(p.waiters, c.ID)
	}
}

// IsProcessed reports whether the credential with the given id has been
// processed.
func (p *Plugin) IsProcessed(id keys.PublicKey) bool {
	p.l.Lock()
	defer p.l.Unlock()
	return p.processed[id]
}

// SetWriter installs the writer used to answer notarization requests. It
// panics if a writer is already set.
func (p *Plugin) SetWriter(w feed.Writer) {
	p.l.Lock()
	defer p.l.Unlock()

	if p.writer != nil {
		panic("notarization: writer already set")
	}
	p.writer = w
}

// HasWriter ...
func (p *Plugin) HasWriter() bool {
	p.l.Lock()
	defer p.l.Unlock()
	return p.writer != nil
}

// AddExtension registers a connected peer and wakes every Notarize call in
// progress so it can try the new peer.
func (p *Plugin) AddExtension(ext *Extension) {
	if !p.extensions.Add(ext) {
		return
	}

	p.logger.WithField("peer", ext.RemoteAddr).Debug("Extension opened")

	p.l.Lock()
	defer p.l.Unlock()
	for t := range p.tasks {
		t.schedule()
	}
}

// RemoveExtension unregisters a peer.
func (p *Plugin) RemoveExtension(ext *Extension) {
	if p.extensions.Remove(ext) {
		p.logger.WithField("peer", ext.RemoteAddr).Debug("Extension closed")
	}
}

// Extensions returns the registry of connected peers.
func (p *Plugin) Extensions() *Extensions {
	return &p.extensions
}

// OnNotarize answers a Notarize request from another peer: it verifies and
// writes every credential that has not been processed yet, and returns how
// many were written.
func (p *Plugin) OnNotarize(ctx context.Context, req *net.NotarizeRequest) (int, error) {
	p.l.Lock()
	writer := p.writer
	p.l.Unlock()

	if writer == nil {
		return 0, ErrWriterNotSet
	}

	p.logger.WithFields(logrus.Fields{
		"from":        req.FromAddr,
		"credentials": len(req.Credentials),
	}).Debug("OnNotarize")

	return p.writeCredentials(ctx, writer, req.Credentials)
}

func (p *Plugin) writeCredentials(ctx context.Context, writer feed.Writer, creds []*credentials.Credential) (int, error) {
	written := 0
	for _, c := range creds {
		if c == nil || !c.HasID() {
			return written, ErrMissingID
		}
		if p.IsProcessed(c.ID) {
			continue
		}

		if res := credentials.VerifyCredential(c); !res.OK() {
			return written, errors.New(res.Error())
		}

		if err := writer.Write(ctx, c); err != nil {
			return written, err
		}
		written++
	}

	return written, nil
}

// Close rejects pending Notarize calls and stops their retry tasks without
// waiting for in-flight peer requests. Calls made after Close return
// ErrClosed.
func (p *Plugin) Close() {
	p.l.Lock()
	if p.closed {
		p.l.Unlock()
		return
	}
	p.closed = true
	close(p.closeCh)
	for _, cancel := range p.tasks {
		cancel()
	}
	// Waiters of timed out calls are never released by Process.
	p.waiters = make(map[keys.PublicKey]chan struct{})
	p.l.Unlock()

	p.wg.Wait()
}

// unprocessed filters out the credentials that have already been processed.
func (p *Plugin) unprocessed(creds []*credentials.Credential) []*credentials.Credential {
	p.l.Lock()
	defer p.l.Unlock()

	res := make([]*credentials.Credential, 0, len(creds))
	for _, c := range creds {
		if !p.processed[c.ID] {
			res = append(res, c)
		}
	}

	return res
}

func (p *Plugin) peerAddrs() []string {
	exts := p.extensions.Snapshot()
	res := make([]string, len(exts))
	for i, e := range exts {
		res[i] = e.RemoteAddr
	}
	return res
}
