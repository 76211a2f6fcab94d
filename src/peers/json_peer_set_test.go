package peers

import (
	"fmt"
	"io/ioutil"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

func testPeers(n int) []*Peer {
	peers := []*Peer{}
	for i := 0; i < n; i++ {
		peers = append(peers, NewPeerFromKey(
			keys.RandomPublicKey(),
			fmt.Sprintf("addr%d", i),
			fmt.Sprintf("peer%d", i),
		))
	}
	return peers
}

func TestJSONPeerSet(t *testing.T) {
	dir, err := ioutil.TempDir("", "halo")
	if err != nil {
		t.Fatalf("err: %v ", err)
	}
	defer os.RemoveAll(dir)

	store := NewJSONPeerSet(dir)

	// Try a read, should get nothing
	peerSet, err := store.PeerSet()
	if err == nil {
		t.Fatalf("store.PeerSet() should generate an error")
	}
	if peerSet != nil {
		t.Fatalf("peerSet: %v", peerSet)
	}

	peers := testPeers(3)
	if err := store.Write(peers); err != nil {
		t.Fatalf("err: %v", err)
	}

	peerSet, err = store.PeerSet()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if !reflect.DeepEqual(peers, peerSet.Peers) {
		t.Fatalf("peers should be %v, not %v", peers, peerSet.Peers)
	}
}

func TestJSONPeerSetCleansKeys(t *testing.T) {
	dir, err := ioutil.TempDir("", "halo")
	if err != nil {
		t.Fatalf("err: %v ", err)
	}
	defer os.RemoveAll(dir)

	store := NewJSONPeerSet(dir)

	peer := testPeers(1)[0]
	lower := *peer
	lower.PubKeyHex = strings.ToLower(strings.TrimPrefix(peer.PubKeyHex, "0X"))

	if err := store.Write([]*Peer{&lower}); err != nil {
		t.Fatalf("err: %v", err)
	}

	peerSet, err := store.PeerSet()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if peerSet.Peers[0].PubKeyHex != peer.PubKeyHex {
		t.Fatalf("public key should be %s, not %s", peer.PubKeyHex, peerSet.Peers[0].PubKeyHex)
	}

	k, err := peerSet.Peers[0].PubKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if expected, _ := peer.PubKey(); k != expected {
		t.Fatalf("decoded key should be %v, not %v", expected, k)
	}
}
