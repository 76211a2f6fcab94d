package net

import (
	"testing"

	"github.com/mosaicnetworks/halo/src/common"
)

func TestTCPTransport_BadAddr(t *testing.T) {
	_, err := NewTCPTransport("0.0.0.0:0", "", 1, 0, 0, common.NewTestEntry(t, common.TestLogLevel))
	if err != errNotAdvertisable {
		t.Fatalf("err: %v", err)
	}
}

func TestTCPTransport_WithAdvertise(t *testing.T) {
	trans, err := NewTCPTransport("0.0.0.0:0", "127.0.0.1:12345", 1, 0, 0, common.NewTestEntry(t, common.TestLogLevel))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer trans.Close()

	if trans.AdvertiseAddr() != "127.0.0.1:12345" {
		t.Fatalf("bad: %v", trans.AdvertiseAddr())
	}
}

func TestTCPTransport_ReusesConnection(t *testing.T) {
	trans1 := NewTestTransport(TCP, "127.0.0.1:0", t).(*NetworkTransport)
	defer trans1.Close()

	trans2 := NewTestTransport(TCP, "127.0.0.1:0", t).(*NetworkTransport)
	defer trans2.Close()

	go func() {
		for i := 0; i < 2; i++ {
			rpc := <-trans1.Consumer()
			rpc.Respond(&SyncResponse{FromAddr: trans1.LocalAddr()}, nil)
		}
	}()

	for i := 0; i < 2; i++ {
		var out SyncResponse
		if err := trans2.Sync(trans1.LocalAddr(), &SyncRequest{FromAddr: trans2.LocalAddr()}, &out); err != nil {
			t.Fatalf("err: %v", err)
		}
		if n := trans2.pool.size(trans1.LocalAddr()); n != 1 {
			t.Fatalf("connection should be pooled after sync %d, pool has %d", i, n)
		}
	}
}

func TestTCPTransport_Closed(t *testing.T) {
	trans1 := NewTestTransport(TCP, "127.0.0.1:0", t)
	defer trans1.Close()

	trans2 := NewTestTransport(TCP, "127.0.0.1:0", t)
	if err := trans2.Close(); err != nil {
		t.Fatalf("err: %v", err)
	}

	var out SyncResponse
	if err := trans2.Sync(trans1.LocalAddr(), &SyncRequest{}, &out); err != ErrTransportShutdown {
		t.Fatalf("closed transport should fail with ErrTransportShutdown, got %v", err)
	}

	// Close is idempotent
	if err := trans2.Close(); err != nil {
		t.Fatalf("err: %v", err)
	}
}
