package partkv

import (
	"iter"
	"slices"
	"sort"
)

type entry[V any] struct {
	key   string
	value V
}

// sortedMap is an ordered string-keyed map backed by a sorted slice.
// Partitions are bounded, so O(n) inserts are fine.
type sortedMap[V any] struct {
	items []entry[V] // sorted by key
}

func (m *sortedMap[V]) len() int { return len(m.items) }

func (m *sortedMap[V]) find(key string) (idx int, ok bool) {
	items := m.items
	i := sort.Search(len(items), func(i int) bool {
		return items[i].key >= key
	})
	if i < len(items) && items[i].key == key {
		return i, true
	}
	return i, false
}

func (m *sortedMap[V]) get(key string) (V, bool) {
	i, ok := m.find(key)
	if !ok {
		var zero V
		return zero, false
	}
	return m.items[i].value, true
}

// put returns true if the key is new.
func (m *sortedMap[V]) put(key string, value V) bool {
	i, ok := m.find(key)
	if ok {
		m.items[i].value = value
		return false
	}
	m.items = slices.Insert(m.items, i, entry[V]{key: key, value: value})
	return true
}

func (m *sortedMap[V]) remove(key string) (V, bool) {
	i, ok := m.find(key)
	if !ok {
		var zero V
		return zero, false
	}
	v := m.items[i].value
	m.items = slices.Delete(m.items, i, i+1)
	return v, true
}

func (m *sortedMap[V]) clear() {
	clear(m.items)
	m.items = m.items[:0]
}

func (m *sortedMap[V]) first() (entry[V], bool) {
	if len(m.items) == 0 {
		return entry[V]{}, false
	}
	return m.items[0], true
}

func (m *sortedMap[V]) last() (entry[V], bool) {
	if len(m.items) == 0 {
		return entry[V]{}, false
	}
	return m.items[len(m.items)-1], true
}

// countNew returns how many of the keys are not in the map yet.
func (m *sortedMap[V]) countNew(keys iter.Seq[string]) int {
	var n int
	for k := range keys {
		if _, ok := m.find(k); !ok {
			n++
		}
	}
	return n
}

func (m *sortedMap[V]) keyAt(i int) string { return m.items[i].key }

// scan yields entries within rang. Every call of the returned function
// copies the matching entries first, so the map may be modified while the
// loop runs; such changes are not seen by that loop.
func (m *sortedMap[V]) scan(rang Range) iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		lo, hi := rang.span(len(m.items), m.keyAt)
		items := slices.Clone(m.items[lo:hi])
		if rang.Reverse {
			slices.Reverse(items)
		}
		for _, e := range items {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}
