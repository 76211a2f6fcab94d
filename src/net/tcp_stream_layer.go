package net

import (
	"errors"
	"net"
	"time"
)

const tcpKeepAlive = 30 * time.Second

var (
	errNotAdvertisable = errors.New("local bind address is not advertisable")
	errNotTCP          = errors.New("local address is not a TCP address")
)

// TCPStreamLayer is a StreamLayer over plain TCP connections.
type TCPStreamLayer struct {
	advertise string
	listener  *net.TCPListener
}

// NewTCPStreamLayer listens on bindAddr. The address advertised to peers is
// advertise when set, the bound address otherwise; either way it must be a
// specific IP.
func NewTCPStreamLayer(bindAddr, advertise string) (*TCPStreamLayer, error) {
	list, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}

	resolved := list.Addr()
	if advertise != "" {
		resolved, err = net.ResolveTCPAddr("tcp", advertise)
		if err != nil {
			list.Close()
			return nil, err
		}
	}

	addr, ok := resolved.(*net.TCPAddr)
	if !ok {
		list.Close()
		return nil, errNotTCP
	}
	if addr.IP.IsUnspecified() {
		list.Close()
		return nil, errNotAdvertisable
	}

	return &TCPStreamLayer{
		advertise: advertise,
		listener:  list.(*net.TCPListener),
	}, nil
}

// Dial implements the StreamLayer interface.
func (t *TCPStreamLayer) Dial(address string, timeout time.Duration) (net.Conn, error) {
	dialer := net.Dialer{
		Timeout:   timeout,
		KeepAlive: tcpKeepAlive,
	}
	return dialer.Dial("tcp", address)
}

// Accept implements the net.Listener interface. Accepted connections use
// TCP keep-alives.
func (t *TCPStreamLayer) Accept() (net.Conn, error) {
	conn, err := t.listener.AcceptTCP()
	if err != nil {
		return nil, err
	}
	conn.SetKeepAlive(true)
	conn.SetKeepAlivePeriod(tcpKeepAlive)
	return conn, nil
}

// Close implements the net.Listener interface.
func (t *TCPStreamLayer) Close() error {
	return t.listener.Close()
}

// Addr implements the net.Listener interface.
func (t *TCPStreamLayer) Addr() net.Addr {
	return t.listener.Addr()
}

// AdvertiseAddr implements the StreamLayer interface.
func (t *TCPStreamLayer) AdvertiseAddr() string {
	if t.advertise != "" {
		return t.advertise
	}
	return t.listener.Addr().String()
}
