package notarization

import (
	"context"
	"sync"

	"github.com/mosaicnetworks/halo/src/credentials"
	"github.com/mosaicnetworks/halo/src/net"
)

// Extension is a session with a connected peer that can be asked to
// notarize credentials.
type Extension struct {
	RemoteAddr string
	trans      net.Transport
}

// NewExtension returns an Extension that reaches remoteAddr through trans.
func NewExtension(remoteAddr string, trans net.Transport) *Extension {
	return &Extension{
		RemoteAddr: remoteAddr,
		trans:      trans,
	}
}

type notarizeResult struct {
	written int
	err     error
}

// Notarize sends a Notarize RPC to the remote peer and returns the number of
// credentials it reports having written. It returns ctx.Err() as soon as ctx
// is done; the RPC itself is left to the transport deadline.
func (e *Extension) Notarize(ctx context.Context, creds []*credentials.Credential) (int, error) {
	args := &net.NotarizeRequest{
		FromAddr:    e.trans.LocalAddr(),
		Credentials: creds,
	}

	resCh := make(chan notarizeResult, 1)
	go func() {
		var out net.NotarizeResponse
		err := e.trans.Notarize(e.RemoteAddr, args, &out)
		resCh <- notarizeResult{written: out.Written, err: err}
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			return 0, res.err
		}
		return res.written, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Extensions is the set of connected peers, in connection order. Readers get
// a snapshot so retry tasks never observe a set that changes under them.
type Extensions struct {
	l    sync.RWMutex
	list []*Extension
}

// Add registers ext and reports whether it was not already present.
func (es *Extensions) Add(ext *Extension) bool {
	es.l.Lock()
	defer es.l.Unlock()

	for _, e := range es.list {
		if e == ext {
			return false
		}
	}
	es.list = append(es.list, ext)

	return true
}

// Remove unregisters ext and reports whether it was present.
func (es *Extensions) Remove(ext *Extension) bool {
	es.l.Lock()
	defer es.l.Unlock()

	for i, e := range es.list {
		if e == ext {
			es.list = append(es.list[:i:i], es.list[i+1:]...)
			return true
		}
	}

	return false
}

// ByAddr returns the first extension connected to addr, if any.
func (es *Extensions) ByAddr(addr string) (*Extension, bool) {
	es.l.RLock()
	defer es.l.RUnlock()

	for _, e := range es.list {
		if e.RemoteAddr == addr {
			return e, true
		}
	}

	return nil, false
}

// Snapshot returns a copy of the current set.
func (es *Extensions) Snapshot() []*Extension {
	es.l.RLock()
	defer es.l.RUnlock()

	res := make([]*Extension, len(es.list))
	copy(res, es.list)

	return res
}

// Len ...
func (es *Extensions) Len() int {
	es.l.RLock()
	defer es.l.RUnlock()
	return len(es.list)
}
