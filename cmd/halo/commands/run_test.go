package commands

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/mosaicnetworks/halo/src/config"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

func withTestConfig(t *testing.T) func() {
	dir, err := ioutil.TempDir("", "halo-cmd")
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	old := _config
	_config = NewDefaultCLIConfig()
	_config.Halo = *config.NewTestConfig(t, config.LogLevel("info"))
	_config.Halo.SetDataDir(dir)

	return func() {
		_config = old
		os.RemoveAll(dir)
	}
}

func TestLoadKeysWithoutDeviceKey(t *testing.T) {
	defer withTestConfig(t)()

	if _, err := loadKeys(); err == nil {
		t.Fatalf("loading keys without a device key should fail")
	}
}

func TestLoadKeysGenesis(t *testing.T) {
	defer withTestConfig(t)()

	if _, err := keys.NewSimpleKeyfile(_config.Halo.Keyfile()).LoadInto(keys.NewKeyring(), true); err != nil {
		t.Fatalf("err: %v", err)
	}

	_config.Halo.Genesis = true

	first, err := loadKeys()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if first.genesisFeed != first.controlFeed {
		t.Fatalf("a founder writes the genesis on its own control feed")
	}
	for _, k := range []keys.PublicKey{first.space, first.identity, first.controlFeed, first.device} {
		if !first.keyring.Has(k) {
			t.Fatalf("keyring should hold %s", k)
		}
	}

	second, err := loadKeys()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if second.space != first.space || second.controlFeed != first.controlFeed || second.identity != first.identity {
		t.Fatalf("keys should be read back from the data directory")
	}
}

func TestLoadKeysJoin(t *testing.T) {
	defer withTestConfig(t)()

	if _, err := keys.NewSimpleKeyfile(_config.Halo.Keyfile()).LoadInto(keys.NewKeyring(), true); err != nil {
		t.Fatalf("err: %v", err)
	}

	spaceKey := keys.RandomPublicKey()
	genesisFeed := keys.RandomPublicKey()
	_config.Halo.SpaceKey = spaceKey.Hex()
	_config.Halo.GenesisFeed = genesisFeed.Hex()

	sk, err := loadKeys()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if sk.space != spaceKey || sk.genesisFeed != genesisFeed {
		t.Fatalf("space keys should come from the configuration")
	}
	if !sk.controlFeed.IsZero() {
		t.Fatalf("a node without feed key is read-only")
	}

	_config.Halo.GenesisFeed = "zz"
	if _, err := loadKeys(); err == nil {
		t.Fatalf("an invalid genesis feed should be rejected")
	}
}

func TestLoadPeersMissingFile(t *testing.T) {
	defer withTestConfig(t)()

	peerSet, err := loadPeers()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if peerSet.Len() != 0 {
		t.Fatalf("missing peers.json should give no peers")
	}
}
