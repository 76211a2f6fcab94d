package net

import (
	"net"
	"time"
)

// Transport provides an interface for network transports
// to allow a peer to communicate with other peers.
type Transport interface {

	// Starts the transport listening
	Listen()

	// Consumer returns a channel that can be used to
	// consume and respond to RPC requests.
	Consumer() <-chan RPC

	// LocalAddr is used to return our local address
	LocalAddr() string

	// AdvertiseAddr is used to return our advertise address where other peers
	// can reach us
	AdvertiseAddr() string

	// Notarize asks the target to write credentials to its control feed.
	Notarize(target string, args *NotarizeRequest, resp *NotarizeResponse) error

	// Sync pulls the feed messages that the target knows and we do not.
	Sync(target string, args *SyncRequest, resp *SyncResponse) error

	// Close permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Close() error
}

// StreamLayer provides the connections carrying a NetworkTransport.
type StreamLayer interface {
	net.Listener

	// Dial is used to create a new outgoing connection
	Dial(address string, timeout time.Duration) (net.Conn, error)

	// AdvertiseAddr returns the publicly-reachable address of the stream
	AdvertiseAddr() string
}
