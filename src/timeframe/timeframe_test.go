package timeframe

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

var (
	feedA = keys.RandomPublicKey()
	feedB = keys.RandomPublicKey()
	feedC = keys.RandomPublicKey()
)

func randomTimeframe(r *rand.Rand, pool []keys.PublicKey) *Timeframe {
	tf := New()
	for _, k := range pool {
		if r.Intn(2) == 0 {
			tf.Set(k, int64(r.Intn(20)))
		}
	}
	return tf
}

func TestTimeframeGetSet(t *testing.T) {
	tf := New(Frame{feedA, 1}, Frame{feedB, 2})

	if seq, ok := tf.Get(feedA); !ok || seq != 1 {
		t.Fatalf("feedA should be 1, not %d (%v)", seq, ok)
	}
	if _, ok := tf.Get(feedC); ok {
		t.Fatalf("feedC should not be set")
	}

	tf.Set(feedA, 5)
	if seq, _ := tf.Get(feedA); seq != 5 {
		t.Fatalf("feedA should be 5, not %d", seq)
	}
	if tf.Size() != 2 {
		t.Fatalf("size should be 2, not %d", tf.Size())
	}
}

func TestMergeMonoid(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	pool := []keys.PublicKey{feedA, feedB, feedC}

	if !Merge().IsEmpty() {
		t.Fatalf("Merge() should be empty")
	}

	for i := 0; i < 100; i++ {
		a := randomTimeframe(r, pool)
		b := randomTimeframe(r, pool)
		c := randomTimeframe(r, pool)

		if !Merge(a, b).Equals(Merge(b, a)) {
			t.Fatalf("merge should be commutative: %v %v", a, b)
		}
		if !Merge(Merge(a, b), c).Equals(Merge(a, Merge(b, c))) {
			t.Fatalf("merge should be associative: %v %v %v", a, b, c)
		}
		if !Merge(a, a).Equals(a) {
			t.Fatalf("merge should be idempotent: %v", a)
		}
	}
}

func TestMergeKeepsMax(t *testing.T) {
	a := New(Frame{feedA, 1}, Frame{feedB, 7})
	b := New(Frame{feedA, 3}, Frame{feedC, 0})

	merged := Merge(a, b)
	expected := New(Frame{feedA, 3}, Frame{feedB, 7}, Frame{feedC, 0})

	if !merged.Equals(expected) {
		t.Fatalf("merged should be %v, not %v", expected, merged)
	}

	// inputs are untouched
	if seq, _ := a.Get(feedA); seq != 1 {
		t.Fatalf("merge should not mutate its inputs")
	}
}

func TestDependencies(t *testing.T) {
	tf1 := New(Frame{feedA, 10}, Frame{feedB, 10})
	tf2 := New(Frame{feedA, 10}, Frame{feedB, 9})

	deps := Dependencies(tf1, tf2)
	if deps.Size() != 1 {
		t.Fatalf("dependencies should have size 1, not %d", deps.Size())
	}
	if !deps.Equals(New(Frame{feedB, 10})) {
		t.Fatalf("dependencies should be {B:10}, not %v", deps)
	}

	r := rand.New(rand.NewSource(2))
	pool := []keys.PublicKey{feedA, feedB, feedC}
	for i := 0; i < 100; i++ {
		tf := randomTimeframe(r, pool)
		if !Dependencies(tf, tf).IsEmpty() {
			t.Fatalf("dependencies(tf, tf) should be empty: %v", tf)
		}
		if !Dependencies(tf, New()).Equals(tf) {
			t.Fatalf("dependencies(tf, empty) should be tf: %v", tf)
		}
	}
}

func TestWithoutKeysAndMap(t *testing.T) {
	tf := New(Frame{feedA, 1}, Frame{feedB, 2}, Frame{feedC, 3})

	without := tf.WithoutKeys(feedA, feedC)
	if !without.Equals(New(Frame{feedB, 2})) {
		t.Fatalf("without should be {B:2}, not %v", without)
	}
	if tf.Size() != 3 {
		t.Fatalf("WithoutKeys should not mutate the receiver")
	}

	doubled := tf.Map(func(f Frame) Frame {
		return Frame{Key: f.Key, Seq: f.Seq * 2}
	})
	if seq, _ := doubled.Get(feedC); seq != 6 {
		t.Fatalf("feedC should be 6, not %d", seq)
	}
}

func TestMessageCounts(t *testing.T) {
	tf := New(Frame{feedA, 2}, Frame{feedB, 0})

	if total := tf.TotalMessages(); total != 4 {
		t.Fatalf("total messages should be 4, not %d", total)
	}

	base := New(Frame{feedA, 1}, Frame{feedB, 5})
	if n := tf.NewMessages(base); n != 1 {
		t.Fatalf("new messages should be 1, not %d", n)
	}

	if n := tf.NewMessages(New()); n != tf.TotalMessages() {
		t.Fatalf("new messages against empty should be %d, not %d", tf.TotalMessages(), n)
	}
}

func TestTimeframeMarshal(t *testing.T) {
	tf := New(Frame{feedA, 4}, Frame{feedB, 0})

	data, err := tf.Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	var decoded Timeframe
	if err := decoded.Unmarshal(data); err != nil {
		t.Fatalf("err: %v", err)
	}

	if !decoded.Equals(tf) {
		t.Fatalf("decoded should be %v, not %v", tf, &decoded)
	}

	fromMap, err := FromMap(tf.ToMap())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !reflect.DeepEqual(fromMap.Frames(), tf.Frames()) {
		t.Fatalf("FromMap(ToMap()) should be %v, not %v", tf, fromMap)
	}
}
