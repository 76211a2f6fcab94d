package space

import (
	"math/rand"

	"github.com/mosaicnetworks/halo/src/peers"
)

// PeerSelector defines an interface for Peer Selectors
type PeerSelector interface {
	Peers() *peers.PeerSet
	SetPeers(peerSet *peers.PeerSet)
	UpdateLast(addr string)
	Next() *peers.Peer
}

// RandomPeerSelector selects a random peer, avoiding the last one gossiped
// with when there is a choice.
type RandomPeerSelector struct {
	peers           *peers.PeerSet
	selfAddr        string
	selectablePeers []*peers.Peer
	last            string
}

// NewRandomPeerSelector returns a RandomPeerSelector over peerSet that never
// selects selfAddr.
func NewRandomPeerSelector(peerSet *peers.PeerSet, selfAddr string) *RandomPeerSelector {
	ps := &RandomPeerSelector{
		selfAddr: selfAddr,
	}
	ps.SetPeers(peerSet)
	return ps
}

// Peers returns the peers the selector chooses from, self included.
func (ps *RandomPeerSelector) Peers() *peers.PeerSet {
	return ps.peers
}

// SetPeers replaces the peer set.
func (ps *RandomPeerSelector) SetPeers(peerSet *peers.PeerSet) {
	_, selectablePeers := peers.ExcludePeer(peerSet.Peers, ps.selfAddr)
	ps.peers = peerSet
	ps.selectablePeers = selectablePeers
}

// UpdateLast sets the last peer
func (ps *RandomPeerSelector) UpdateLast(addr string) {
	ps.last = addr
}

// Next returns the next peer, or nil if there is none.
func (ps *RandomPeerSelector) Next() *peers.Peer {
	selectablePeers := ps.selectablePeers

	if len(selectablePeers) == 0 {
		return nil
	}

	if len(selectablePeers) > 1 {
		_, selectablePeers = peers.ExcludePeer(selectablePeers, ps.last)
	}

	return selectablePeers[rand.Intn(len(selectablePeers))]
}
