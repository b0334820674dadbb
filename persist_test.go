package partkv

import (
	"slices"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestContainerMsgpackRoundTrip(t *testing.T) {
	ct, _ := threeGroupContainer(t)
	ct.Primary().SetStrict(true)

	data, err := msgpack.Marshal(ct)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Container[int]
	if err := msgpack.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	deepEqual(t, len(decoded.Groups()), 3)
	deepEqual(t, decoded.Strict(), true)
	deepEqual(t, decoded.Dirty(), false)
	for i, g := range ct.Groups() {
		dg := decoded.Groups()[i]
		deepEqual(t, slices.Collect(dg.Keys(FullRange())), slices.Collect(g.Keys(FullRange())))
		for j, c := range g.Collections() {
			deepEqual(t, dg.Collection(j).ID(), c.ID())
			deepEqual(t, dg.Collection(j).MaxSize(), c.MaxSize())
		}
	}
	deepEqual(t, decoded.ReadOr("m", 0), 3)
}

func TestCollectionDecodeSortsKeys(t *testing.T) {
	// hand-made record with keys out of order
	var bb bytesBuilder
	enc := msgpack.NewEncoder(&bb)
	ensureNoErr(t, enc.EncodeArrayLen(4))
	ensureNoErr(t, enc.EncodeString("c"))
	ensureNoErr(t, enc.EncodeInt(10))
	ensureNoErr(t, enc.EncodeBool(false))
	ensureNoErr(t, enc.EncodeMapLen(3))
	for _, k := range []string{"b", "a", "c"} {
		ensureNoErr(t, enc.EncodeString(k))
		ensureNoErr(t, enc.EncodeInt(int64(k[0])))
	}

	var c Collection[int]
	ensureNoErr(t, decodeValue(bb.Buf, &c))
	deepEqual(t, slices.Collect(c.Keys(FullRange())), []string{"a", "b", "c"})
	deepEqual(t, c.GetOr("b", 0), int('b'))
}

func TestDirtyTracking(t *testing.T) {
	ct := New[int](10, 10, false)
	deepEqual(t, ct.Dirty(), true)
	ct.markClean()
	deepEqual(t, ct.Dirty(), false)
	deepEqual(t, ct.Primary().Dirty(), false)

	ensureNoErr(t, ct.Write("a", 1))
	deepEqual(t, ct.Primary().Dirty(), true)
	deepEqual(t, ct.Dirty(), false)
	deepEqual(t, len(ct.dirtyCollections()), 1)

	ct.markClean()
	ct.Primary().PopOr("missing", 0)
	deepEqual(t, ct.Primary().Dirty(), false)
}
