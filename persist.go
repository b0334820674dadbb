package partkv

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Persistable is implemented by Collection, Group and Container. The store
// rewrites only what reports itself dirty.
type Persistable interface {
	Dirty() bool
	MarkDirty()
	msgpack.CustomEncoder
	msgpack.CustomDecoder
}

var (
	_ Persistable = (*Collection[any])(nil)
	_ Persistable = (*Group[any])(nil)
	_ Persistable = (*Container[any])(nil)
)

const collectionFields = 4

func (c *Collection[V]) Dirty() bool { return c.dirty }
func (c *Collection[V]) MarkDirty()  { c.dirty = true }
func (c *Collection[V]) markClean()  { c.dirty = false }

// EncodeMsgpack writes [id, max_size, strict, {key: value...}] with keys in
// order.
func (c *Collection[V]) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(collectionFields); err != nil {
		return err
	}
	if err := enc.EncodeString(c.id); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(c.maxSize)); err != nil {
		return err
	}
	if err := enc.EncodeBool(c.strict); err != nil {
		return err
	}
	if err := enc.EncodeMapLen(c.data.len()); err != nil {
		return err
	}
	for _, e := range c.data.items {
		if err := enc.EncodeString(e.key); err != nil {
			return err
		}
		if err := enc.Encode(e.value); err != nil {
			return fmt.Errorf("%s: value of %q: %w", c.id, e.key, err)
		}
	}
	return nil
}

func (c *Collection[V]) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != collectionFields {
		return fmt.Errorf("collection: got %d fields, wanted %d", n, collectionFields)
	}
	if c.id, err = dec.DecodeString(); err != nil {
		return err
	}
	if c.maxSize, err = dec.DecodeInt(); err != nil {
		return err
	}
	if c.strict, err = dec.DecodeBool(); err != nil {
		return err
	}
	n, err = dec.DecodeMapLen()
	if err != nil {
		return err
	}
	c.data.items = make([]entry[V], 0, max(n, 0))
	for range n {
		k, err := dec.DecodeString()
		if err != nil {
			return err
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("%s: value of %q: %w", c.id, k, err)
		}
		if last, ok := c.data.last(); ok && last.key >= k {
			c.data.put(k, v)
		} else {
			c.data.items = append(c.data.items, entry[V]{key: k, value: v})
		}
	}
	c.dirty = false
	return nil
}

// Dirty reports whether any member is dirty.
func (g *Group[V]) Dirty() bool {
	for _, c := range g.collections {
		if c.dirty {
			return true
		}
	}
	return false
}

func (g *Group[V]) MarkDirty() {
	for _, c := range g.collections {
		c.MarkDirty()
	}
}

func (g *Group[V]) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(len(g.collections)); err != nil {
		return err
	}
	for _, c := range g.collections {
		if err := c.EncodeMsgpack(enc); err != nil {
			return err
		}
	}
	return nil
}

func (g *Group[V]) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n < 1 {
		return invalidConfigf("group needs at least one collection")
	}
	colls := make([]*Collection[V], n)
	for i := range colls {
		colls[i] = new(Collection[V])
		if err := colls[i].DecodeMsgpack(dec); err != nil {
			return err
		}
	}
	decoded, err := NewGroup(colls...)
	if err != nil {
		return err
	}
	*g = *decoded
	return nil
}

// Dirty reports whether the group list changed since the last save. Member
// collections track their own state.
func (ct *Container[V]) Dirty() bool { return ct.dirty }
func (ct *Container[V]) MarkDirty()  { ct.dirty = true }

// markClean resets the dirty flags of the container and all its collections.
func (ct *Container[V]) markClean() {
	ct.dirty = false
	for _, g := range ct.groups {
		for _, c := range g.collections {
			c.markClean()
		}
	}
}

func (ct *Container[V]) shape() containerShape {
	shape := containerShape{Groups: make([][]string, len(ct.groups))}
	for i, g := range ct.groups {
		ids := make([]string, len(g.collections))
		for j, c := range g.collections {
			ids[j] = c.id
		}
		shape.Groups[i] = ids
	}
	return shape
}

func (ct *Container[V]) dirtyCollections() []*Collection[V] {
	var result []*Collection[V]
	for _, g := range ct.groups {
		for _, c := range g.collections {
			if c.dirty {
				result = append(result, c)
			}
		}
	}
	return result
}

// EncodeMsgpack writes the whole container, data included.
func (ct *Container[V]) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(len(ct.groups)); err != nil {
		return err
	}
	for _, g := range ct.groups {
		if err := g.EncodeMsgpack(enc); err != nil {
			return err
		}
	}
	return nil
}

func (ct *Container[V]) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n < 1 {
		return invalidConfigf("container needs at least one group")
	}
	groups := make([]*Group[V], n)
	for i := range groups {
		groups[i] = new(Group[V])
		if err := groups[i].DecodeMsgpack(dec); err != nil {
			return err
		}
	}
	ct.groups = groups
	ct.dirty = false
	return nil
}
