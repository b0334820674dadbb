package partkv

import "slices"

// Container is the unit callers address. Writes go to the primary group
// (groups[0]); reads fall back through the older groups that are still
// being migrated.
type Container[V any] struct {
	groups []*Group[V]
	dirty  bool
}

// New creates a container able to hold capacity keys in partitions of at
// most partitionSize keys. Non-positive arguments select the defaults.
func New[V any](capacity, partitionSize int, strict bool) *Container[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if partitionSize <= 0 {
		partitionSize = DefaultPartitionSize
	}
	return &Container[V]{
		groups: []*Group[V]{newGroup[V](capacity, partitionSize, strict)},
		dirty:  true,
	}
}

// FromGroups assembles a container out of existing groups, the first one
// becoming the primary. strict is applied to the primary only.
func FromGroups[V any](strict bool, groups ...*Group[V]) (*Container[V], error) {
	if len(groups) == 0 {
		return nil, invalidConfigf("container needs at least one group")
	}
	seen := make(map[string]bool)
	for i, g := range groups {
		if g == nil {
			return nil, invalidConfigf("group %d is nil", i)
		}
		for _, c := range g.collections {
			if seen[c.id] {
				return nil, invalidConfigf("collection %s appears in more than one group", c.id)
			}
			seen[c.id] = true
		}
	}
	ct := &Container[V]{groups: slices.Clone(groups), dirty: true}
	ct.groups[0].SetStrict(strict)
	return ct, nil
}

func newGroup[V any](capacity, partitionSize int, strict bool) *Group[V] {
	count := PartitionsFor(capacity, partitionSize)
	g, err := BuildGroup[V](count, PartitionSize(capacity, partitionSize), strict)
	if err != nil {
		panic(err) // count is always positive
	}
	return g
}

func (ct *Container[V]) Primary() *Group[V] { return ct.groups[0] }

// Groups returns the primary followed by the retired groups, newest first.
func (ct *Container[V]) Groups() []*Group[V] { return slices.Clone(ct.groups) }

// Migrating reports whether old groups are still attached.
func (ct *Container[V]) Migrating() bool { return len(ct.groups) > 1 }

// Read returns the value from the first group holding key.
func (ct *Container[V]) Read(key string) (V, bool) {
	for _, g := range ct.groups {
		if v, ok := g.Get(key); ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}

func (ct *Container[V]) ReadOr(key string, def V) V {
	if v, ok := ct.Read(key); ok {
		return v
	}
	return def
}

// Write stores the value in the primary group.
func (ct *Container[V]) Write(key string, value V) error {
	return ct.groups[0].Insert(key, value)
}

// WriteMany stores all items in the primary group, or nothing if they don't fit.
func (ct *Container[V]) WriteMany(items map[string]V) error {
	return ct.groups[0].Update(items)
}

// Delete removes key from every group and returns the removed values,
// primary first.
func (ct *Container[V]) Delete(key string) []V {
	var removed []V
	for _, g := range ct.groups {
		if v, err := g.Pop(key); err == nil {
			removed = append(removed, v)
		}
	}
	return removed
}

// Has returns the number of groups holding key.
func (ct *Container[V]) Has(key string) int {
	var n int
	for _, g := range ct.groups {
		if g.Has(key) {
			n++
		}
	}
	return n
}

// Resize installs a new primary group sized for newCapacity and migrates
// data into it. With condense, every old group is merged; otherwise only the
// previous primary is, and older groups stay attached as they are.
//
// The returned groups are the ones detached after a transfer.
func (ct *Container[V]) Resize(newCapacity, partitionSize int, condense, transfer bool) ([]*Group[V], error) {
	if partitionSize <= 0 {
		partitionSize = DefaultPartitionSize
	}
	count := PartitionsFor(newCapacity, partitionSize)
	if cur := ct.groups[0].Len(); count <= cur {
		return nil, invalidConfigf("resize to capacity %d yields %d partitions, currently %d", newCapacity, count, cur)
	}

	g := newGroup[V](newCapacity, partitionSize, ct.Strict())
	ct.groups = slices.Insert(ct.groups, 0, g)
	ct.MarkDirty()

	if condense {
		return ct.Condense(transfer)
	}

	rest := slices.Clone(ct.groups[2:])
	ct.groups = ct.groups[:2]
	discarded, err := ct.Condense(transfer)
	ct.groups = append(ct.groups, rest...)
	return discarded, err
}

// Grow resizes to the partition count GrowPartitions recommends for the
// current primary, or to the next prime above the current count when that
// recommendation would not add partitions.
func (ct *Container[V]) Grow(partitionSize int, condense, transfer bool) ([]*Group[V], error) {
	if partitionSize <= 0 {
		partitionSize = DefaultPartitionSize
	}
	count := GrowPartitions(ct.groups[0].MaxSize(), partitionSize)
	if cur := ct.groups[0].Len(); count <= cur {
		count = nextPrime(cur + 1)
	}
	return ct.Resize(count*partitionSize, partitionSize, condense, transfer)
}

// Condense copies every key missing from the primary out of the secondary
// groups, oldest last, so that newer values win. With transfer, keys are
// removed from their source and the emptied groups are detached and returned.
//
// On error the group list is left as is; keys moved so far stay moved.
func (ct *Container[V]) Condense(transfer bool) ([]*Group[V], error) {
	primary := ct.groups[0]
	for _, g := range ct.groups[1:] {
		for _, e := range g.entries() {
			if !primary.Has(e.key) {
				if err := primary.Insert(e.key, e.value); err != nil {
					return nil, err
				}
			}
			if transfer {
				g.Delete(e.key)
			}
		}
	}
	if !transfer {
		return nil, nil
	}

	var discarded []*Group[V]
	kept := []*Group[V]{primary}
	for _, g := range ct.groups[1:] {
		if g.IsEmpty() {
			discarded = append(discarded, g)
		} else {
			kept = append(kept, g)
		}
	}
	if len(discarded) > 0 {
		ct.groups = kept
		ct.MarkDirty()
	}
	return discarded, nil
}

// Size counts keys in every group; a key present in two groups counts twice.
func (ct *Container[V]) Size() int {
	var n int
	for _, g := range ct.groups {
		n += g.Size()
	}
	return n
}

func (ct *Container[V]) MaxSize() int {
	var n int
	for _, g := range ct.groups {
		n += g.MaxSize()
	}
	return n
}

func (ct *Container[V]) Capacity() int  { return ct.groups[0].MaxSize() }
func (ct *Container[V]) Used() int      { return ct.groups[0].Size() }
func (ct *Container[V]) Usage() float64 { return ct.groups[0].Usage() }
func (ct *Container[V]) Status() Status { return ct.groups[0].Status() }
func (ct *Container[V]) Strict() bool   { return ct.groups[0].Strict() }

// SetStrict changes the strictness of the primary group.
func (ct *Container[V]) SetStrict(strict bool) {
	ct.groups[0].SetStrict(strict)
}
