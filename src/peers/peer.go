package peers

import (
	"github.com/mosaicnetworks/halo/src/common"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

// Peer is a remote halo node.
type Peer struct {
	NetAddr   string
	PubKeyHex string
	Moniker   string
}

// NewPeer ...
func NewPeer(pubKeyHex, netAddr, moniker string) *Peer {
	return &Peer{
		PubKeyHex: pubKeyHex,
		NetAddr:   netAddr,
		Moniker:   moniker,
	}
}

// NewPeerFromKey returns a Peer identified by key.
func NewPeerFromKey(key keys.PublicKey, netAddr, moniker string) *Peer {
	return NewPeer(common.EncodeToString(key.Bytes()), netAddr, moniker)
}

// PubKey decodes PubKeyHex.
func (p *Peer) PubKey() (keys.PublicKey, error) {
	return keys.ParsePublicKey(p.PubKeyHex)
}

// ExcludePeer is used to exclude a single peer, identified by its address,
// from a list of peers.
func ExcludePeer(peers []*Peer, addr string) (int, []*Peer) {
	index := -1
	otherPeers := make([]*Peer, 0, len(peers))
	for i, p := range peers {
		if p.NetAddr != addr {
			otherPeers = append(otherPeers, p)
		} else {
			index = i
		}
	}
	return index, otherPeers
}
