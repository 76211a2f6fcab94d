package peers

import (
	"bytes"
	"encoding/json"

	"github.com/mosaicnetworks/halo/src/common"
	"github.com/mosaicnetworks/halo/src/crypto"
)

// PeerSet is an ordered set of Peers indexed by public key and address.
type PeerSet struct {
	Peers    []*Peer          `json:"peers"`
	ByPubKey map[string]*Peer `json:"-"`
	ByAddr   map[string]*Peer `json:"-"`

	//cached value
	hash []byte
}

// NewPeerSet creates a new PeerSet from a list of Peers. Later duplicates of
// a public key are dropped.
func NewPeerSet(peers []*Peer) *PeerSet {
	peerSet := &PeerSet{
		ByPubKey: make(map[string]*Peer),
		ByAddr:   make(map[string]*Peer),
	}

	for _, peer := range peers {
		if _, ok := peerSet.ByPubKey[peer.PubKeyHex]; ok {
			continue
		}
		peerSet.ByPubKey[peer.PubKeyHex] = peer
		peerSet.ByAddr[peer.NetAddr] = peer
		peerSet.Peers = append(peerSet.Peers, peer)
	}

	return peerSet
}

// NewPeerSetFromPeerSliceBytes creates a new PeerSet from a JSON list of
// peers.
func NewPeerSetFromPeerSliceBytes(peerSliceBytes []byte) (*PeerSet, error) {
	peers := []*Peer{}

	dec := json.NewDecoder(bytes.NewBuffer(peerSliceBytes))
	if err := dec.Decode(&peers); err != nil {
		return nil, err
	}

	return NewPeerSet(peers), nil
}

// WithNewPeer returns a new PeerSet with a list of peers including the new one.
func (peerSet *PeerSet) WithNewPeer(peer *Peer) *PeerSet {
	peers := make([]*Peer, len(peerSet.Peers), len(peerSet.Peers)+1)
	copy(peers, peerSet.Peers)
	peers = append(peers, peer)
	return NewPeerSet(peers)
}

// WithRemovedPeer returns a new PeerSet with a list of peers excluding the
// provided one
func (peerSet *PeerSet) WithRemovedPeer(peer *Peer) *PeerSet {
	peers := []*Peer{}
	for _, p := range peerSet.Peers {
		if p.PubKeyHex != peer.PubKeyHex {
			peers = append(peers, p)
		}
	}
	return NewPeerSet(peers)
}

// PubKeys returns the PeerSet's slice of public keys
func (peerSet *PeerSet) PubKeys() []string {
	res := []string{}
	for _, peer := range peerSet.Peers {
		res = append(res, peer.PubKeyHex)
	}
	return res
}

// Len returns the number of Peers in the PeerSet
func (peerSet *PeerSet) Len() int {
	return len(peerSet.Peers)
}

// Hash uniquely identifies a PeerSet. It is computed by hashing their public
// keys together, one by one.
func (peerSet *PeerSet) Hash() ([]byte, error) {
	if len(peerSet.hash) == 0 {
		hash := []byte{}
		for _, p := range peerSet.Peers {
			pk, err := common.DecodeFromString(p.PubKeyHex)
			if err != nil {
				return nil, err
			}
			h := crypto.HashFromTwoHashes(hash, pk)
			hash = h[:]
		}
		peerSet.hash = hash
	}
	return peerSet.hash, nil
}

// Hex is the hexadecimal representation of Hash
func (peerSet *PeerSet) Hex() string {
	hash, err := peerSet.Hash()
	if err != nil {
		return ""
	}
	return common.EncodeToString(hash)
}

// Marshal marshals the list of peers
func (peerSet *PeerSet) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(peerSet.Peers); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
