package feed

import (
	"bytes"
	"fmt"

	"github.com/mosaicnetworks/halo/src/credentials"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/ugorji/go/codec"
)

// Message is one entry of a feed.
type Message struct {
	FeedKey    keys.PublicKey          `codec:"feedKey"`
	Seq        int64                   `codec:"seq"`
	Credential *credentials.Credential `codec:"credential"`
}

// NewMessage ...
func NewMessage(feedKey keys.PublicKey, seq int64, c *credentials.Credential) *Message {
	return &Message{
		FeedKey:    feedKey,
		Seq:        seq,
		Credential: c,
	}
}

// String ...
func (m *Message) String() string {
	return fmt.Sprintf("%s[%d]", m.FeedKey, m.Seq)
}

// Marshal - json encoding of Message
func (m *Message) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(m); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (m *Message) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(m); err != nil {
		return err
	}

	return nil
}
