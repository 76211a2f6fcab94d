package net

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultInmemTimeout bounds an in-memory Sync.
	DefaultInmemTimeout = 200 * time.Millisecond

	// DefaultInmemNotarizeTimeout bounds an in-memory Notarize, which waits
	// for a feed write on the remote side.
	DefaultInmemNotarizeTimeout = time.Second
)

// NewInmemAddr returns a random in-memory address.
func NewInmemAddr() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("failed to read random bytes: %v", err))
	}
	return fmt.Sprintf("inmem://%x-%x-%x-%x-%x", buf[0:4], buf[4:6], buf[6:8], buf[8:10], buf[10:16])
}

// InmemTransport implements the Transport interface by routing requests
// directly to the consumer channel of other InmemTransports.
type InmemTransport struct {
	sync.RWMutex
	consumerCh      chan RPC
	localAddr       string
	peers           map[string]*InmemTransport
	timeout         time.Duration
	notarizeTimeout time.Duration
	closed          bool
}

// NewInmemTransport is used to initialize a new transport
// and generates a random local address if none is specified
func NewInmemTransport(addr string) (string, *InmemTransport) {
	if addr == "" {
		addr = NewInmemAddr()
	}
	trans := &InmemTransport{
		consumerCh:      make(chan RPC, 16),
		localAddr:       addr,
		peers:           make(map[string]*InmemTransport),
		timeout:         DefaultInmemTimeout,
		notarizeTimeout: DefaultInmemNotarizeTimeout,
	}
	return addr, trans
}

// SetTimeouts changes the time outbound Sync and Notarize requests wait for
// a response. A zero notarizeTimeout waits forever.
func (i *InmemTransport) SetTimeouts(timeout, notarizeTimeout time.Duration) {
	i.Lock()
	defer i.Unlock()
	i.timeout = timeout
	i.notarizeTimeout = notarizeTimeout
}

// Consumer implements the Transport interface.
func (i *InmemTransport) Consumer() <-chan RPC {
	return i.consumerCh
}

// LocalAddr implements the Transport interface.
func (i *InmemTransport) LocalAddr() string {
	return i.localAddr
}

// AdvertiseAddr implements the Transport interface.
func (i *InmemTransport) AdvertiseAddr() string {
	return i.localAddr
}

// Notarize implements the Transport interface.
func (i *InmemTransport) Notarize(target string, args *NotarizeRequest, resp *NotarizeResponse) error {
	i.RLock()
	timeout := i.notarizeTimeout
	i.RUnlock()

	out, err := i.makeRPC(target, args, timeout)
	if r, ok := out.(*NotarizeResponse); ok && r != nil {
		*resp = *r
	}
	return err
}

// Sync implements the Transport interface.
func (i *InmemTransport) Sync(target string, args *SyncRequest, resp *SyncResponse) error {
	i.RLock()
	timeout := i.timeout
	i.RUnlock()

	out, err := i.makeRPC(target, args, timeout)
	if r, ok := out.(*SyncResponse); ok && r != nil {
		*resp = *r
	}
	return err
}

// makeRPC hands args to the consumer of target and waits for the answer.
func (i *InmemTransport) makeRPC(target string, args interface{}, timeout time.Duration) (interface{}, error) {
	i.RLock()
	closed := i.closed
	peer, ok := i.peers[target]
	i.RUnlock()

	if closed {
		return nil, ErrTransportShutdown
	}
	if !ok {
		return nil, fmt.Errorf("failed to connect to peer: %v", target)
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	respCh := make(chan RPCResponse, 1)
	select {
	case peer.consumerCh <- RPC{Command: args, RespChan: respCh}:
	case <-timeoutCh:
		return nil, fmt.Errorf("command timed out")
	}

	select {
	case resp := <-respCh:
		return resp.Response, resp.Error
	case <-timeoutCh:
		return nil, fmt.Errorf("command timed out")
	}
}

// Connect is used to connect this transport to another transport for
// a given peer name. This allows for local routing.
func (i *InmemTransport) Connect(peer string, t Transport) {
	trans := t.(*InmemTransport)
	i.Lock()
	defer i.Unlock()
	i.peers[peer] = trans
}

// Disconnect is used to remove the ability to route to a given peer.
func (i *InmemTransport) Disconnect(peer string) {
	i.Lock()
	defer i.Unlock()
	delete(i.peers, peer)
}

// Close drops every route. Later requests fail with ErrTransportShutdown.
func (i *InmemTransport) Close() error {
	i.Lock()
	defer i.Unlock()
	i.closed = true
	i.peers = make(map[string]*InmemTransport)
	return nil
}

// Listen is a no-op; requests are delivered as soon as peers are connected.
func (i *InmemTransport) Listen() {
}
