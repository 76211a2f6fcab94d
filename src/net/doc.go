// Package net implements the transports used by halo peers to talk to each
// other.
//
// A Transport carries two request/response RPCs: Notarize, which asks a peer
// to write credentials to its control feed, and Sync, which pulls feed
// messages a peer has and the requester lacks. Incoming requests are exposed
// on the Consumer channel and answered through RPC.Respond.
//
// There are two implementations:
//
// - Inmem: in-memory transport used for testing
//
// - TCP: a NetworkTransport over plain TCP. Each request is framed by a byte
// that indicates the RPC type, followed by the msgpack encoded request. The
// response is an error string followed by the response object.
//
// To use a TCP transport, set the following configuration options in the
// Config object (cf config package):
//
// - BindAddr: the IP:PORT of the TCP socket to bind to.
//
// - AdvertiseAddr: (optional) The address that is advertised to other peers.
// If BindAddr is a local address not reachable by other peers, set
// AdvertiseAddr to the reachable public address.
package net
