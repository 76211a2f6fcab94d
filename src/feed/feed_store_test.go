package feed

import (
	"context"
	"testing"

	"github.com/mosaicnetworks/halo/src/common"
	"github.com/mosaicnetworks/halo/src/credentials"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

func newTestFeedStore(t *testing.T) (*FeedStore, keys.PublicKey, []*credentials.Credential) {
	keyring := keys.NewKeyring()
	_, agent, genesis := credentials.NewTestSpace(t, keyring)

	fs := NewFeedStore(NewInmemStore(), common.NewTestEntry(t, common.TestLogLevel))
	fs.OpenFeed(agent.ControlFeedKey, true)

	return fs, agent.ControlFeedKey, genesis
}

func TestFeedStoreAppend(t *testing.T) {
	fs, feedKey, genesis := newTestFeedStore(t)

	appended := []*Message{}
	fs.OnAppend.On(func(m *Message) {
		appended = append(appended, m)
	})

	for i, c := range genesis {
		msg, err := fs.Append(context.Background(), feedKey, c)
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if msg.Seq != int64(i) {
			t.Fatalf("seq should be %d, not %d", i, msg.Seq)
		}
	}

	if len(appended) != len(genesis) {
		t.Fatalf("OnAppend should be emitted %d times, not %d", len(genesis), len(appended))
	}
	if fs.Length(feedKey) != int64(len(genesis)) {
		t.Fatalf("length should be %d, not %d", len(genesis), fs.Length(feedKey))
	}

	msgs, err := fs.Range(feedKey, 1, 100)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(msgs) != len(genesis)-1 || msgs[0].Credential.ID != genesis[1].ID {
		t.Fatalf("range should return messages 1 to %d", len(genesis)-1)
	}

	tf := fs.Timeframe()
	if seq, ok := tf.Get(feedKey); !ok || seq != int64(len(genesis)-1) {
		t.Fatalf("timeframe should be at %d, not %d", len(genesis)-1, seq)
	}
}

func TestFeedStoreReadOnly(t *testing.T) {
	fs, _, genesis := newTestFeedStore(t)

	other := keys.RandomPublicKey()
	fs.OpenFeed(other, false)

	_, err := fs.Append(context.Background(), other, genesis[0])
	if !common.IsStore(err, common.ReadOnly) {
		t.Fatalf("err should be ReadOnly, not %v", err)
	}

	if _, err := fs.Writer(other); err == nil {
		t.Fatalf("Writer should fail for read-only feeds")
	}

	// Opening again as writable upgrades the feed.
	fs.OpenFeed(other, true)
	w, err := fs.Writer(other)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := w.Write(context.Background(), genesis[0]); err != nil {
		t.Fatalf("err: %v", err)
	}
}

func TestFeedStoreReplicate(t *testing.T) {
	fs, _, genesis := newTestFeedStore(t)

	remote := keys.RandomPublicKey()

	ok, err := fs.Replicate(NewMessage(remote, 1, genesis[1]))
	if !common.IsStore(err, common.SkippedIndex) {
		t.Fatalf("err should be SkippedIndex, not %v", err)
	}
	if ok {
		t.Fatalf("gap should not be replicated")
	}

	ok, err = fs.Replicate(NewMessage(remote, 0, genesis[0]))
	if err != nil || !ok {
		t.Fatalf("first message should be replicated: %v", err)
	}

	ok, err = fs.Replicate(NewMessage(remote, 0, genesis[0]))
	if err != nil || ok {
		t.Fatalf("duplicate should be ignored: %v", err)
	}

	if !fs.IsOpen(remote) || fs.IsWritable(remote) {
		t.Fatalf("replicated feed should be open read-only")
	}

	_, err = fs.Append(context.Background(), remote, genesis[1])
	if !common.IsStore(err, common.ReadOnly) {
		t.Fatalf("err should be ReadOnly, not %v", err)
	}
}

func TestFeedStoreClosed(t *testing.T) {
	fs, feedKey, genesis := newTestFeedStore(t)

	if err := fs.Close(); err != nil {
		t.Fatalf("err: %v", err)
	}

	_, err := fs.Append(context.Background(), feedKey, genesis[0])
	if !common.IsStore(err, common.Closed) {
		t.Fatalf("err should be Closed, not %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fs.Append(ctx, feedKey, genesis[0]); err != context.Canceled {
		t.Fatalf("err should be context.Canceled, not %v", err)
	}
}
