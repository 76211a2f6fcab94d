// Package peers defines the peers a halo node gossips with and persists them
// in a peers.json file.
//
// A peer is identified by its public key, in the 0X-prefixed hex form used
// throughout halo, and reached at NetAddr. Moniker is a non-unique
// user-friendly name. Peers are not members of a space: membership is decided
// by credentials, peers only relay feeds.
//
// Upon starting up, halo looks for a peers.json file in its data directory
// and connects to every peer listed there except itself.
package peers
