package net

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/halo/src/common"
	"github.com/mosaicnetworks/halo/src/credentials"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/mosaicnetworks/halo/src/feed"
)

const (
	INMEM = iota
	TCP
	numTestTransports // NOTE: must be last
)

func NewTestTransport(ttype int, addr string, t *testing.T) Transport {
	switch ttype {
	case INMEM:
		_, it := NewInmemTransport(addr)
		return it
	case TCP:
		tt, err := NewTCPTransport(addr, "", 2, time.Second, 2*time.Second, common.NewTestEntry(t, common.TestLogLevel))
		if err != nil {
			t.Fatal(err)
		}
		go tt.Listen()
		return tt
	default:
		panic("Unknown transport type")
	}
}

// connectTestTransports routes in-memory transports to each other. Network
// transports need no setup.
func connectTestTransports(trans1, trans2 Transport) {
	itrans1, ok1 := trans1.(*InmemTransport)
	itrans2, ok2 := trans2.(*InmemTransport)
	if ok1 && ok2 {
		itrans1.Connect(itrans2.LocalAddr(), itrans2)
		itrans2.Connect(itrans1.LocalAddr(), itrans1)
	}
}

func testCredentials(t *testing.T) (keys.PublicKey, []*credentials.Credential) {
	keyring := keys.NewKeyring()
	_, agent, genesis := credentials.NewTestSpace(t, keyring)
	return agent.ControlFeedKey, genesis
}

func TestTransport_StartStop(t *testing.T) {
	for ttype := 0; ttype < numTestTransports; ttype++ {
		trans := NewTestTransport(ttype, "127.0.0.1:0", t)
		if err := trans.Close(); err != nil {
			t.Fatalf("err: %v", err)
		}
	}
}

func TestTransport_Notarize(t *testing.T) {
	_, creds := testCredentials(t)

	for ttype := 0; ttype < numTestTransports; ttype++ {
		trans1 := NewTestTransport(ttype, "127.0.0.1:0", t)
		defer trans1.Close()
		rpcCh := trans1.Consumer()

		trans2 := NewTestTransport(ttype, "127.0.0.1:0", t)
		defer trans2.Close()

		connectTestTransports(trans1, trans2)

		// Make the RPC request
		args := NotarizeRequest{
			FromAddr:    trans2.LocalAddr(),
			Credentials: creds,
		}
		resp := NotarizeResponse{
			FromAddr: trans1.LocalAddr(),
			Written:  len(creds),
		}

		// Listen for a request
		errCh := make(chan error, 8)
		go func() {
			select {
			case rpc := <-rpcCh:
				// Verify the command
				req := rpc.Command.(*NotarizeRequest)
				if !reflect.DeepEqual(req, &args) {
					errCh <- errors.New("command mismatch")
				}
				for _, c := range req.Credentials {
					if res := credentials.VerifyCredential(c); !res.OK() {
						errCh <- res
					}
				}
				rpc.Respond(&resp, nil)

			case <-time.After(time.Second):
				errCh <- errors.New("timeout")
			}
			close(errCh)
		}()

		var out NotarizeResponse
		if err := trans2.Notarize(trans1.LocalAddr(), &args, &out); err != nil {
			t.Fatalf("err: %v", err)
		}

		for err := range errCh {
			t.Fatalf("transport %d: %v", ttype, err)
		}

		// Verify the response
		if !reflect.DeepEqual(resp, out) {
			t.Fatalf("response mismatch: %#v %#v", resp, out)
		}
	}
}

func TestTransport_Sync(t *testing.T) {
	feedKey, creds := testCredentials(t)

	for ttype := 0; ttype < numTestTransports; ttype++ {
		trans1 := NewTestTransport(ttype, "127.0.0.1:0", t)
		defer trans1.Close()
		rpcCh := trans1.Consumer()

		trans2 := NewTestTransport(ttype, "127.0.0.1:0", t)
		defer trans2.Close()

		connectTestTransports(trans1, trans2)

		// Make the RPC request
		args := SyncRequest{
			FromAddr:  trans2.LocalAddr(),
			SyncLimit: 20,
			Known: map[string]int64{
				feedKey.Hex(): 0,
			},
		}

		msgs := []*feed.Message{}
		for i, c := range creds[1:] {
			msgs = append(msgs, feed.NewMessage(feedKey, int64(i+1), c))
		}
		resp := SyncResponse{
			FromAddr: trans1.LocalAddr(),
			Messages: msgs,
			Known: map[string]int64{
				feedKey.Hex(): int64(len(creds) - 1),
			},
		}

		// Listen for a request
		errCh := make(chan error, 8)
		go func() {
			select {
			case rpc := <-rpcCh:
				req := rpc.Command.(*SyncRequest)
				if !reflect.DeepEqual(req, &args) {
					errCh <- errors.New("command mismatch")
				}
				rpc.Respond(&resp, nil)

			case <-time.After(time.Second):
				errCh <- errors.New("timeout")
			}
			close(errCh)
		}()

		var out SyncResponse
		if err := trans2.Sync(trans1.LocalAddr(), &args, &out); err != nil {
			t.Fatalf("err: %v", err)
		}

		for err := range errCh {
			t.Fatalf("transport %d: %v", ttype, err)
		}

		if !reflect.DeepEqual(resp, out) {
			t.Fatalf("response mismatch: %#v %#v", resp, out)
		}
	}
}

func TestTransport_Error(t *testing.T) {
	for ttype := 0; ttype < numTestTransports; ttype++ {
		trans1 := NewTestTransport(ttype, "127.0.0.1:0", t)
		defer trans1.Close()
		rpcCh := trans1.Consumer()

		trans2 := NewTestTransport(ttype, "127.0.0.1:0", t)
		defer trans2.Close()

		connectTestTransports(trans1, trans2)

		go func() {
			select {
			case rpc := <-rpcCh:
				rpc.Respond(&NotarizeResponse{}, errors.New("WRITER_NOT_SET: no writer"))
			case <-time.After(time.Second):
			}
		}()

		var out NotarizeResponse
		err := trans2.Notarize(trans1.LocalAddr(), &NotarizeRequest{}, &out)
		if err == nil || !strings.Contains(err.Error(), "WRITER_NOT_SET") {
			t.Fatalf("transport %d: error should be carried to the caller, got %v", ttype, err)
		}
	}
}

func TestInmemTransport_Unknown(t *testing.T) {
	_, trans := NewInmemTransport("")

	var out SyncResponse
	if err := trans.Sync("unknown", &SyncRequest{}, &out); err == nil {
		t.Fatalf("sync to an unknown peer should fail")
	}
}

func TestInmemTransport_Disconnect(t *testing.T) {
	_, trans1 := NewInmemTransport("")
	_, trans2 := NewInmemTransport("")
	connectTestTransports(trans1, trans2)

	go func() {
		rpc := <-trans1.Consumer()
		rpc.Respond(&SyncResponse{FromAddr: trans1.LocalAddr()}, nil)
	}()

	var out SyncResponse
	if err := trans2.Sync(trans1.LocalAddr(), &SyncRequest{}, &out); err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.FromAddr != trans1.LocalAddr() {
		t.Fatalf("unexpected response %#v", out)
	}

	trans2.Disconnect(trans1.LocalAddr())
	if err := trans2.Sync(trans1.LocalAddr(), &SyncRequest{}, &out); err == nil {
		t.Fatalf("sync to a disconnected peer should fail")
	}

	trans2.Close()
	if err := trans2.Sync(trans1.LocalAddr(), &SyncRequest{}, &out); err != ErrTransportShutdown {
		t.Fatalf("closed transport should fail with ErrTransportShutdown, got %v", err)
	}
}

func TestInmemTransport_Timeout(t *testing.T) {
	_, trans1 := NewInmemTransport("")
	_, trans2 := NewInmemTransport("")
	connectTestTransports(trans1, trans2)
	trans2.SetTimeouts(20*time.Millisecond, 20*time.Millisecond)

	// nobody consumes trans1's requests
	var out NotarizeResponse
	start := time.Now()
	err := trans2.Notarize(trans1.LocalAddr(), &NotarizeRequest{}, &out)
	if err == nil {
		t.Fatalf("unanswered request should time out")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("request took too long to time out")
	}
}
