package partkv

import (
	"iter"
	"maps"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Group is a fixed set of collections. Every key is routed to exactly one
// member by hashing.
type Group[V any] struct {
	collections []*Collection[V]
}

// NewGroup assembles a group out of existing collections. Membership cannot
// change afterwards.
func NewGroup[V any](collections ...*Collection[V]) (*Group[V], error) {
	if len(collections) == 0 {
		return nil, invalidConfigf("group needs at least one collection")
	}
	seen := make(map[string]bool, len(collections))
	for i, c := range collections {
		if c == nil {
			return nil, invalidConfigf("collection %d is nil", i)
		}
		if seen[c.id] {
			return nil, invalidConfigf("duplicate collection %s", c.id)
		}
		seen[c.id] = true
	}
	return &Group[V]{collections: slices.Clone(collections)}, nil
}

// BuildGroup creates count empty collections of maxCollectionSize each.
func BuildGroup[V any](count, maxCollectionSize int, strict bool) (*Group[V], error) {
	return BuildCustomGroup[V](count, maxCollectionSize, strict, nil)
}

// BuildCustomGroup is like BuildGroup, but custom overrides the size of the
// collections at the given indexes.
func BuildCustomGroup[V any](count, maxCollectionSize int, strict bool, custom map[int]int) (*Group[V], error) {
	if count < 1 {
		return nil, invalidConfigf("group needs at least one collection, got count %d", count)
	}
	for idx, size := range custom {
		if idx < 0 {
			return nil, invalidConfigf("negative partition index %d", idx)
		}
		if idx >= count {
			return nil, invalidConfigf("partition index %d out of range for count %d", idx, count)
		}
		if size <= 0 {
			return nil, invalidConfigf("partition %d: size must be positive, got %d", idx, size)
		}
	}
	colls := make([]*Collection[V], count)
	for i := range colls {
		size := maxCollectionSize
		if s, ok := custom[i]; ok {
			size = s
		}
		colls[i] = NewCollection[V]("", size, strict)
	}
	return &Group[V]{collections: colls}, nil
}

// Index returns the partition a key belongs to.
func (g *Group[V]) Index(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(g.collections)))
}

// Route returns the collection responsible for key.
func (g *Group[V]) Route(key string) *Collection[V] {
	return g.collections[g.Index(key)]
}

// Len returns the partition count.
func (g *Group[V]) Len() int {
	return len(g.collections)
}

func (g *Group[V]) Collection(i int) *Collection[V] {
	return g.collections[i]
}

// Collections returns the members in partition order.
func (g *Group[V]) Collections() []*Collection[V] {
	return slices.Clone(g.collections)
}

func (g *Group[V]) Get(key string) (V, bool) {
	return g.Route(key).Get(key)
}

func (g *Group[V]) GetOr(key string, def V) V {
	return g.Route(key).GetOr(key, def)
}

func (g *Group[V]) Has(key string) bool {
	return g.Route(key).Has(key)
}

func (g *Group[V]) Insert(key string, value V) error {
	return g.Route(key).Insert(key, value)
}

// Update stores all items. If any partition lacks room for its share,
// nothing is written.
func (g *Group[V]) Update(items map[string]V) error {
	parts := make(map[int]map[string]V)
	for k, v := range items {
		idx := g.Index(k)
		p := parts[idx]
		if p == nil {
			p = make(map[string]V)
			parts[idx] = p
		}
		p[k] = v
	}
	for idx, p := range parts {
		if err := g.collections[idx].checkRoom(maps.Keys(p)); err != nil {
			return err
		}
	}
	for idx, p := range parts {
		if err := g.collections[idx].Update(p); err != nil {
			return err
		}
	}
	return nil
}

func (g *Group[V]) Delete(key string) bool {
	return g.Route(key).Delete(key)
}

func (g *Group[V]) Pop(key string) (V, error) {
	return g.Route(key).Pop(key)
}

func (g *Group[V]) PopOr(key string, def V) V {
	return g.Route(key).PopOr(key, def)
}

func (g *Group[V]) SetDefault(key string, value V) (V, error) {
	return g.Route(key).SetDefault(key, value)
}

// PopItem removes the smallest key of the whole group.
func (g *Group[V]) PopItem() (string, V, error) {
	var best *Collection[V]
	var bestKey string
	for _, c := range g.collections {
		if k, ok := c.MinKey(); ok && (best == nil || k < bestKey) {
			best, bestKey = c, k
		}
	}
	if best == nil {
		var zero V
		return "", zero, ErrKeyNotFound
	}
	return best.PopItem()
}

func (g *Group[V]) Clear() {
	for _, c := range g.collections {
		c.Clear()
	}
}

func (g *Group[V]) MinKey() (string, bool) {
	var result string
	var found bool
	for _, c := range g.collections {
		if k, ok := c.MinKey(); ok && (!found || k < result) {
			result, found = k, true
		}
	}
	return result, found
}

func (g *Group[V]) MaxKey() (string, bool) {
	var result string
	var found bool
	for _, c := range g.collections {
		if k, ok := c.MaxKey(); ok && (!found || k > result) {
			result, found = k, true
		}
	}
	return result, found
}

// Items iterates over the whole group in key order by merging the members.
func (g *Group[V]) Items(rang Range) iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		var cursors []*mergeCursor[V]
		for _, c := range g.collections {
			next, stop := iter.Pull2(c.Items(rang))
			defer stop()
			mc := &mergeCursor[V]{next: next}
			if mc.advance() {
				cursors = append(cursors, mc)
			}
		}
		for len(cursors) > 0 {
			bi := 0
			for i := 1; i < len(cursors); i++ {
				if rang.Reverse == (cursors[i].key > cursors[bi].key) {
					bi = i
				}
			}
			cur := cursors[bi]
			if !yield(cur.key, cur.value) {
				return
			}
			if !cur.advance() {
				cursors = slices.Delete(cursors, bi, bi+1)
			}
		}
	}
}

func (g *Group[V]) Keys(rang Range) iter.Seq[string] {
	return func(yield func(string) bool) {
		for k := range g.Items(rang) {
			if !yield(k) {
				return
			}
		}
	}
}

func (g *Group[V]) Values(rang Range) iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range g.Items(rang) {
			if !yield(v) {
				return
			}
		}
	}
}

// entries snapshots the whole group in key order.
func (g *Group[V]) entries() []entry[V] {
	var out []entry[V]
	for k, v := range g.Items(FullRange()) {
		out = append(out, entry[V]{key: k, value: v})
	}
	return out
}

type mergeCursor[V any] struct {
	next  func() (string, V, bool)
	key   string
	value V
}

func (mc *mergeCursor[V]) advance() bool {
	k, v, ok := mc.next()
	if ok {
		mc.key, mc.value = k, v
	}
	return ok
}

func (g *Group[V]) Size() int {
	var n int
	for _, c := range g.collections {
		n += c.Size()
	}
	return n
}

func (g *Group[V]) MaxSize() int {
	var n int
	for _, c := range g.collections {
		n += c.maxSize
	}
	return n
}

// MaxCollectionSize is the largest member limit.
func (g *Group[V]) MaxCollectionSize() int {
	var n int
	for _, c := range g.collections {
		n = max(n, c.maxSize)
	}
	return n
}

func (g *Group[V]) Usage() float64 { return usageOf(g.Size(), g.MaxSize()) }

// CollectionUsage maps member ids to their usage.
func (g *Group[V]) CollectionUsage() map[string]float64 {
	m := make(map[string]float64, len(g.collections))
	for _, c := range g.collections {
		m[c.id] = c.Usage()
	}
	return m
}

func (g *Group[V]) HighestCollectionUsage() float64 {
	var u float64
	for _, c := range g.collections {
		u = max(u, c.Usage())
	}
	return u
}

func (g *Group[V]) LowestCollectionUsage() float64 {
	u := g.collections[0].Usage()
	for _, c := range g.collections[1:] {
		u = min(u, c.Usage())
	}
	return u
}

// Status is the worst status among the members.
func (g *Group[V]) Status() Status {
	s := Healthy
	for _, c := range g.collections {
		s = max(s, c.Status())
	}
	return s
}

// Strict reports whether every member is strict.
func (g *Group[V]) Strict() bool {
	for _, c := range g.collections {
		if !c.strict {
			return false
		}
	}
	return true
}

func (g *Group[V]) SetStrict(strict bool) {
	for _, c := range g.collections {
		c.SetStrict(strict)
	}
}

func (g *Group[V]) IsEmpty() bool {
	for _, c := range g.collections {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}
