package partkv

import (
	"iter"
	"maps"

	"github.com/google/uuid"
)

// Collection is a bounded ordered map, the unit of partitioning. In strict
// mode it refuses to grow past MaxSize.
type Collection[V any] struct {
	id      string
	maxSize int
	strict  bool
	data    sortedMap[V]
	dirty   bool
}

// NewCollection returns an empty collection. An empty id gets a random UUID,
// a non-positive maxSize becomes DefaultPartitionSize.
func NewCollection[V any](id string, maxSize int, strict bool) *Collection[V] {
	if id == "" {
		id = uuid.NewString()
	}
	if maxSize <= 0 {
		maxSize = DefaultPartitionSize
	}
	return &Collection[V]{
		id:      id,
		maxSize: maxSize,
		strict:  strict,
		dirty:   true,
	}
}

func (c *Collection[V]) ID() string     { return c.id }
func (c *Collection[V]) MaxSize() int   { return c.maxSize }
func (c *Collection[V]) Size() int      { return c.data.len() }
func (c *Collection[V]) Strict() bool   { return c.strict }
func (c *Collection[V]) Usage() float64 { return usageOf(c.Size(), c.maxSize) }
func (c *Collection[V]) Status() Status { return statusFor(c.Size(), c.maxSize) }
func (c *Collection[V]) IsEmpty() bool  { return c.data.len() == 0 }

func (c *Collection[V]) Has(key string) bool {
	_, ok := c.data.find(key)
	return ok
}

func (c *Collection[V]) SetStrict(strict bool) {
	if c.strict != strict {
		c.strict = strict
		c.MarkDirty()
	}
}

func (c *Collection[V]) Get(key string) (V, bool) {
	return c.data.get(key)
}

// GetOr returns the value for key, or def if the key is absent.
func (c *Collection[V]) GetOr(key string, def V) V {
	if v, ok := c.data.get(key); ok {
		return v
	}
	return def
}

// Insert stores the value, overwriting any previous one. Adding a new key to
// a full strict collection fails with a *CapacityError.
func (c *Collection[V]) Insert(key string, value V) error {
	if c.strict && !c.Has(key) && c.Size() >= c.maxSize {
		return &CapacityError{Collection: c.id, Key: key, Size: c.Size(), MaxSize: c.maxSize, Incoming: 1}
	}
	c.data.put(key, value)
	c.MarkDirty()
	return nil
}

// Update stores every pair of items. Either all of them are applied or,
// if the new keys would not fit into a strict collection, none are.
func (c *Collection[V]) Update(items map[string]V) error {
	if err := c.checkRoom(maps.Keys(items)); err != nil {
		return err
	}
	for k, v := range items {
		c.data.put(k, v)
	}
	if len(items) > 0 {
		c.MarkDirty()
	}
	return nil
}

func (c *Collection[V]) checkRoom(keys iter.Seq[string]) error {
	if !c.strict {
		return nil
	}
	n := c.data.countNew(keys)
	if n > 0 && c.Size()+n > c.maxSize {
		return &CapacityError{Collection: c.id, Size: c.Size(), MaxSize: c.maxSize, Incoming: n}
	}
	return nil
}

// Delete removes the key and reports whether it was present.
func (c *Collection[V]) Delete(key string) bool {
	_, ok := c.data.remove(key)
	if ok {
		c.MarkDirty()
	}
	return ok
}

// Pop removes the key and returns its value, or ErrKeyNotFound.
func (c *Collection[V]) Pop(key string) (V, error) {
	v, ok := c.data.remove(key)
	if !ok {
		return v, keyNotFound(key)
	}
	c.MarkDirty()
	return v, nil
}

// PopOr removes the key and returns its value, or def if it is absent.
func (c *Collection[V]) PopOr(key string, def V) V {
	v, err := c.Pop(key)
	if err != nil {
		return def
	}
	return v
}

// PopItem removes and returns the pair with the smallest key.
func (c *Collection[V]) PopItem() (string, V, error) {
	e, ok := c.data.first()
	if !ok {
		return "", e.value, ErrKeyNotFound
	}
	c.data.remove(e.key)
	c.MarkDirty()
	return e.key, e.value, nil
}

// SetDefault returns the existing value for key; if there is none, it stores
// value and returns it.
func (c *Collection[V]) SetDefault(key string, value V) (V, error) {
	if v, ok := c.data.get(key); ok {
		return v, nil
	}
	if err := c.Insert(key, value); err != nil {
		var zero V
		return zero, err
	}
	return value, nil
}

func (c *Collection[V]) Clear() {
	if c.data.len() > 0 {
		c.data.clear()
		c.MarkDirty()
	}
}

func (c *Collection[V]) MinKey() (string, bool) {
	e, ok := c.data.first()
	return e.key, ok
}

func (c *Collection[V]) MaxKey() (string, bool) {
	e, ok := c.data.last()
	return e.key, ok
}

// Items iterates over the pairs within rang in key order (or reverse key
// order for a reversed range).
func (c *Collection[V]) Items(rang Range) iter.Seq2[string, V] {
	return c.data.scan(rang)
}

func (c *Collection[V]) Keys(rang Range) iter.Seq[string] {
	return func(yield func(string) bool) {
		for k := range c.data.scan(rang) {
			if !yield(k) {
				return
			}
		}
	}
}

func (c *Collection[V]) Values(rang Range) iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range c.data.scan(rang) {
			if !yield(v) {
				return
			}
		}
	}
}
