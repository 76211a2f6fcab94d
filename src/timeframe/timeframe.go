// Package timeframe implements a vector clock over feeds: a mapping from feed
// key to the highest sequence number known for that feed.
package timeframe

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/ugorji/go/codec"
)

// Frame is a single feed position.
type Frame struct {
	Key keys.PublicKey
	Seq int64
}

// Timeframe maps feed keys to sequence numbers. Apart from Set, every
// operation returns a new Timeframe and leaves its inputs untouched. A nil
// *Timeframe reads as empty.
type Timeframe struct {
	frames map[keys.PublicKey]int64
}

// New returns a Timeframe holding frames. Later frames overwrite earlier ones
// with the same key.
func New(frames ...Frame) *Timeframe {
	tf := &Timeframe{
		frames: make(map[keys.PublicKey]int64, len(frames)),
	}
	for _, f := range frames {
		tf.Set(f.Key, f.Seq)
	}
	return tf
}

// Get returns the sequence number for key.
func (tf *Timeframe) Get(key keys.PublicKey) (int64, bool) {
	if tf == nil {
		return 0, false
	}
	seq, ok := tf.frames[key]
	return seq, ok
}

// Set upserts the sequence number for key. It is the only mutating operation.
func (tf *Timeframe) Set(key keys.PublicKey, seq int64) {
	if seq < 0 {
		panic(fmt.Sprintf("timeframe: negative sequence %d for %s", seq, key))
	}
	if tf.frames == nil {
		tf.frames = make(map[keys.PublicKey]int64)
	}
	tf.frames[key] = seq
}

// Size returns the number of feeds in the Timeframe.
func (tf *Timeframe) Size() int {
	if tf == nil {
		return 0
	}
	return len(tf.frames)
}

// IsEmpty ...
func (tf *Timeframe) IsEmpty() bool {
	return tf.Size() == 0
}

// Keys returns the feed keys sorted by their bytes.
func (tf *Timeframe) Keys() []keys.PublicKey {
	if tf == nil {
		return nil
	}
	res := make([]keys.PublicKey, 0, len(tf.frames))
	for k := range tf.frames {
		res = append(res, k)
	}
	sort.Slice(res, func(i, j int) bool {
		return bytes.Compare(res[i][:], res[j][:]) < 0
	})
	return res
}

// Frames returns the entries sorted by key.
func (tf *Timeframe) Frames() []Frame {
	ks := tf.Keys()
	res := make([]Frame, len(ks))
	for i, k := range ks {
		res[i] = Frame{Key: k, Seq: tf.frames[k]}
	}
	return res
}

// Copy ...
func (tf *Timeframe) Copy() *Timeframe {
	res := New()
	if tf == nil {
		return res
	}
	for k, seq := range tf.frames {
		res.frames[k] = seq
	}
	return res
}

// Merge returns, for every key in any of timeframes, the highest sequence
// number. Merge() is empty.
func Merge(timeframes ...*Timeframe) *Timeframe {
	res := New()
	for _, tf := range timeframes {
		if tf == nil {
			continue
		}
		for k, seq := range tf.frames {
			if cur, ok := res.frames[k]; !ok || seq > cur {
				res.frames[k] = seq
			}
		}
	}
	return res
}

// Dependencies returns the entries of a that b has not incorporated: those
// whose key is missing from b or whose sequence is ahead of b's.
func Dependencies(a, b *Timeframe) *Timeframe {
	res := New()
	if a == nil {
		return res
	}
	for k, seq := range a.frames {
		other, ok := b.Get(k)
		if !ok || other < seq {
			res.frames[k] = seq
		}
	}
	return res
}

// WithoutKeys returns a copy of tf without the listed keys.
func (tf *Timeframe) WithoutKeys(ks ...keys.PublicKey) *Timeframe {
	res := tf.Copy()
	for _, k := range ks {
		delete(res.frames, k)
	}
	return res
}

// Map returns a Timeframe built by applying fn to every frame.
func (tf *Timeframe) Map(fn func(Frame) Frame) *Timeframe {
	res := New()
	for _, f := range tf.Frames() {
		mapped := fn(f)
		res.Set(mapped.Key, mapped.Seq)
	}
	return res
}

// TotalMessages counts the log positions 0..seq of every feed.
func (tf *Timeframe) TotalMessages() int64 {
	if tf == nil {
		return 0
	}
	var total int64
	for _, seq := range tf.frames {
		total += seq + 1
	}
	return total
}

// NewMessages counts the positions present in tf but absent from base.
func (tf *Timeframe) NewMessages(base *Timeframe) int64 {
	if tf == nil {
		return 0
	}
	var total int64
	for k, seq := range tf.frames {
		baseSeq, ok := base.Get(k)
		if !ok {
			baseSeq = -1
		}
		if d := seq - baseSeq; d > 0 {
			total += d
		}
	}
	return total
}

// Equals reports whether both Timeframes hold exactly the same entries.
func (tf *Timeframe) Equals(other *Timeframe) bool {
	if tf.Size() != other.Size() {
		return false
	}
	for _, f := range tf.Frames() {
		seq, ok := other.Get(f.Key)
		if !ok || seq != f.Seq {
			return false
		}
	}
	return true
}

// String ...
func (tf *Timeframe) String() string {
	frames := tf.Frames()
	parts := make([]string, len(frames))
	for i, f := range frames {
		parts[i] = fmt.Sprintf("%s[%d]", f.Key, f.Seq)
	}
	return fmt.Sprintf("Timeframe{%s}", strings.Join(parts, ", "))
}

// ToMap returns the entries keyed by the hex encoding of the feed key.
func (tf *Timeframe) ToMap() map[string]int64 {
	res := make(map[string]int64, tf.Size())
	if tf == nil {
		return res
	}
	for k, seq := range tf.frames {
		res[k.Hex()] = seq
	}
	return res
}

// FromMap is the inverse of ToMap.
func FromMap(m map[string]int64) (*Timeframe, error) {
	res := New()
	for h, seq := range m {
		k, err := keys.ParsePublicKey(h)
		if err != nil {
			return nil, err
		}
		if seq < 0 {
			return nil, fmt.Errorf("negative sequence %d for %s", seq, h)
		}
		res.frames[k] = seq
	}
	return res, nil
}

// Marshal returns the canonical JSON encoding of the Timeframe.
func (tf *Timeframe) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(tf.ToMap()); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal replaces the content of tf with the decoded data.
func (tf *Timeframe) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	m := make(map[string]int64)
	if err := dec.Decode(&m); err != nil {
		return err
	}

	parsed, err := FromMap(m)
	if err != nil {
		return err
	}
	tf.frames = parsed.frames

	return nil
}
