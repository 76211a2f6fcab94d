package net

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")
)

/*
NetworkTransport carries halo RPCs over a StreamLayer.

A request frame is one byte giving the rpcType followed by the msgpack
encoded request. The response is an error string followed by the response
object, both msgpack encoded. A connection carries one request at a time and
is pooled once its response was read.
*/
type NetworkTransport struct {
	logger *logrus.Entry

	pool *connPool

	consumeCh chan RPC

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	// inbound connections being served, closed on shutdown
	inbound     map[net.Conn]struct{}
	inboundLock sync.Mutex
	handlers    sync.WaitGroup

	stream StreamLayer

	timeout         time.Duration
	notarizeTimeout time.Duration
}

// NewNetworkTransport creates a new network transport over stream. maxPool
// controls how many idle connections are kept per target. timeout bounds a
// Sync round trip; notarizeTimeout bounds a Notarize round trip, which waits
// for a feed write on the remote side. A zero timeout disables the deadline.
func NewNetworkTransport(
	stream StreamLayer,
	maxPool int,
	timeout time.Duration,
	notarizeTimeout time.Duration,
	logger *logrus.Entry,
) *NetworkTransport {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &NetworkTransport{
		logger:          logger,
		pool:            newConnPool(maxPool),
		consumeCh:       make(chan RPC),
		shutdownCh:      make(chan struct{}),
		inbound:         make(map[net.Conn]struct{}),
		stream:          stream,
		timeout:         timeout,
		notarizeTimeout: notarizeTimeout,
	}
}

// Close stops listening, closes every connection, and waits for the
// inbound handlers to return.
func (n *NetworkTransport) Close() error {
	n.shutdownLock.Lock()
	if n.shutdown {
		n.shutdownLock.Unlock()
		return nil
	}
	n.shutdown = true
	close(n.shutdownCh)
	n.shutdownLock.Unlock()

	err := n.stream.Close()

	n.pool.close()

	n.inboundLock.Lock()
	for conn := range n.inbound {
		conn.Close()
	}
	n.inboundLock.Unlock()

	n.handlers.Wait()

	return err
}

// Consumer implements the Transport interface.
func (n *NetworkTransport) Consumer() <-chan RPC {
	return n.consumeCh
}

// LocalAddr implements the Transport interface.
func (n *NetworkTransport) LocalAddr() string {
	if addr := n.stream.Addr(); addr != nil {
		return addr.String()
	}
	return ""
}

// AdvertiseAddr implements the Transport interface.
func (n *NetworkTransport) AdvertiseAddr() string {
	return n.stream.AdvertiseAddr()
}

// IsShutdown is used to check if the transport is shutdown.
func (n *NetworkTransport) IsShutdown() bool {
	select {
	case <-n.shutdownCh:
		return true
	default:
		return false
	}
}

// Notarize implements the Transport interface.
func (n *NetworkTransport) Notarize(target string, args *NotarizeRequest, resp *NotarizeResponse) error {
	return n.genericRPC(target, rpcNotarize, n.notarizeTimeout, args, resp)
}

// Sync implements the Transport interface.
func (n *NetworkTransport) Sync(target string, args *SyncRequest, resp *SyncResponse) error {
	return n.genericRPC(target, rpcSync, n.timeout, args, resp)
}

func (n *NetworkTransport) getConn(target string, timeout time.Duration) (*netConn, error) {
	if conn := n.pool.get(target); conn != nil {
		return conn, nil
	}

	conn, err := n.stream.Dial(target, timeout)
	if err != nil {
		return nil, err
	}

	return newNetConn(target, conn), nil
}

// genericRPC sends one request and decodes its response. The connection is
// pooled again only if the exchange completed at the framing level.
func (n *NetworkTransport) genericRPC(target string, t rpcType, timeout time.Duration, args interface{}, resp interface{}) error {
	if n.IsShutdown() {
		return ErrTransportShutdown
	}

	conn, err := n.getConn(target, timeout)
	if err != nil {
		return err
	}

	if timeout > 0 {
		conn.conn.SetDeadline(time.Now().Add(timeout))
	} else {
		conn.conn.SetDeadline(time.Time{})
	}

	if err := sendRPC(conn, t, args); err != nil {
		conn.Release()
		return err
	}

	rpcErr, err := decodeResponse(conn, resp)
	if err != nil {
		conn.Release()
		return err
	}

	n.pool.put(conn)

	if rpcErr != "" {
		return errors.New(rpcErr)
	}
	return nil
}

func sendRPC(conn *netConn, t rpcType, args interface{}) error {
	if err := conn.w.WriteByte(byte(t)); err != nil {
		return err
	}
	if err := conn.enc.Encode(args); err != nil {
		return err
	}
	return conn.w.Flush()
}

// decodeResponse returns the error string sent by the remote side, empty on
// success.
func decodeResponse(conn *netConn, resp interface{}) (string, error) {
	var rpcError string
	if err := conn.dec.Decode(&rpcError); err != nil {
		return "", err
	}

	if err := conn.dec.Decode(resp); err != nil {
		return "", err
	}

	return rpcError, nil
}

// Listen accepts incoming connections until the transport is closed.
func (n *NetworkTransport) Listen() {
	for {
		conn, err := n.stream.Accept()
		if err != nil {
			if n.IsShutdown() {
				return
			}
			n.logger.WithField("error", err).Error("Failed to accept connection")
			continue
		}

		if !n.trackConn(conn) {
			conn.Close()
			return
		}

		n.logger.WithFields(logrus.Fields{
			"node": conn.LocalAddr(),
			"from": conn.RemoteAddr(),
		}).Debug("accepted connection")

		go n.handleConn(conn)
	}
}

// trackConn registers an inbound connection. It fails once the transport is
// shut down.
func (n *NetworkTransport) trackConn(conn net.Conn) bool {
	n.inboundLock.Lock()
	defer n.inboundLock.Unlock()

	if n.IsShutdown() {
		return false
	}
	n.inbound[conn] = struct{}{}
	n.handlers.Add(1)
	return true
}

func (n *NetworkTransport) untrackConn(conn net.Conn) {
	n.inboundLock.Lock()
	delete(n.inbound, conn)
	n.inboundLock.Unlock()

	conn.Close()
	n.handlers.Done()
}

// handleConn serves the requests of an inbound connection, one at a time.
func (n *NetworkTransport) handleConn(conn net.Conn) {
	defer n.untrackConn(conn)

	r := bufio.NewReaderSize(conn, bufSize)
	w := bufio.NewWriterSize(conn, bufSize)
	dec := codec.NewDecoder(r, newMsgpackHandle())
	enc := codec.NewEncoder(w, newMsgpackHandle())

	for {
		if err := n.handleCommand(r, dec, enc); err != nil {
			switch {
			case err == io.EOF, n.IsShutdown():
			default:
				n.logger.WithField("error", err).Error("Failed to handle incoming command")
			}
			return
		}
		if err := w.Flush(); err != nil {
			if !n.IsShutdown() {
				n.logger.WithField("error", err).Error("Failed to flush response")
			}
			return
		}
	}
}

// handleCommand decodes a single request, hands it to the consumer, and
// encodes the answer.
func (n *NetworkTransport) handleCommand(r *bufio.Reader, dec *codec.Decoder, enc *codec.Encoder) error {
	b, err := r.ReadByte()
	if err != nil {
		return err
	}

	t := rpcType(b)
	cmd, err := newCommand(t)
	if err != nil {
		return err
	}
	if err := dec.Decode(cmd); err != nil {
		return err
	}

	respCh := make(chan RPCResponse, 1)
	rpc := RPC{
		Command:  cmd,
		RespChan: respCh,
	}

	select {
	case n.consumeCh <- rpc:
	case <-n.shutdownCh:
		return ErrTransportShutdown
	}

	select {
	case resp := <-respCh:
		respErr := ""
		if resp.Error != nil {
			respErr = resp.Error.Error()
			n.logger.WithFields(logrus.Fields{
				"rpc":   t.String(),
				"error": respErr,
			}).Debug("Responding with error")
		}
		if err := enc.Encode(respErr); err != nil {
			return err
		}
		return enc.Encode(resp.Response)
	case <-n.shutdownCh:
		return ErrTransportShutdown
	}
}
