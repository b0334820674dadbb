package partkv

import (
	"errors"
	"maps"
	"slices"
	"sync"
)

var (
	errMemClosed      = errors.New("storage closed")
	errMemNotWritable = errors.New("tx not writable")
)

// memStorage keeps buckets in memory. A transaction works on a copy of the
// bucket set and Commit swaps it in; writers are serialized by wmu.
type memStorage struct {
	wmu sync.Mutex

	mu      sync.Mutex
	buckets map[memBucketID]*sortedMap[[]byte]
	closed  bool
}

type memBucketID struct {
	name, sub string
}

func newMemStorage() storage {
	return &memStorage{buckets: make(map[memBucketID]*sortedMap[[]byte])}
}

func (s *memStorage) BeginTx(writable bool) (storageTx, error) {
	if writable {
		s.wmu.Lock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if writable {
			s.wmu.Unlock()
		}
		return nil, errMemClosed
	}

	// Buckets are cloned lazily, on first write access.
	return &memTx{
		s:        s,
		writable: writable,
		buckets:  maps.Clone(s.buckets),
		owned:    make(map[memBucketID]bool),
	}, nil
}

func (s *memStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.buckets = nil
	return nil
}

type memTx struct {
	s        *memStorage
	writable bool
	buckets  map[memBucketID]*sortedMap[[]byte]
	owned    map[memBucketID]bool
	done     bool
}

func (tx *memTx) Writable() bool { return tx.writable }

func (tx *memTx) Bucket(name, sub string) storageBucket {
	if tx.done {
		panic("tx is closed")
	}
	id := memBucketID{name, sub}
	if tx.buckets[id] == nil {
		return nil
	}
	return &memBucket{tx: tx, id: id}
}

func (tx *memTx) CreateBucket(name, sub string) (storageBucket, error) {
	if tx.done {
		panic("tx is closed")
	}
	if !tx.writable {
		return nil, errMemNotWritable
	}
	for _, id := range []memBucketID{{name, ""}, {name, sub}} {
		if tx.buckets[id] == nil {
			tx.buckets[id] = &sortedMap[[]byte]{}
			tx.owned[id] = true
		}
	}
	return &memBucket{tx: tx, id: memBucketID{name, sub}}, nil
}

func (tx *memTx) DeleteBucket(name, sub string) error {
	if tx.done {
		panic("tx is closed")
	}
	if !tx.writable {
		return errMemNotWritable
	}
	id := memBucketID{name, sub}
	if sub == "" || tx.buckets[id] == nil {
		return ErrBucketNotFound
	}
	delete(tx.buckets, id)
	delete(tx.owned, id)
	return nil
}

// mutable returns the transaction's private copy of the bucket.
func (tx *memTx) mutable(id memBucketID) *sortedMap[[]byte] {
	m := tx.buckets[id]
	if !tx.owned[id] {
		m = &sortedMap[[]byte]{items: slices.Clone(m.items)}
		tx.buckets[id] = m
		tx.owned[id] = true
	}
	return m
}

func (tx *memTx) Commit() error {
	if tx.done {
		return nil
	}
	if !tx.writable {
		return errMemNotWritable
	}
	tx.s.mu.Lock()
	closed := tx.s.closed
	if !closed {
		tx.s.buckets = tx.buckets
	}
	tx.s.mu.Unlock()
	tx.finish()
	if closed {
		return errMemClosed
	}
	return nil
}

func (tx *memTx) Rollback() error {
	tx.finish()
	return nil
}

func (tx *memTx) finish() {
	if tx.done {
		return
	}
	tx.done = true
	if tx.writable {
		tx.s.wmu.Unlock()
	}
}

func (tx *memTx) Size() int64 { return 0 }

type memBucket struct {
	tx *memTx
	id memBucketID
}

func (b *memBucket) data() *sortedMap[[]byte] {
	return b.tx.buckets[b.id]
}

func (b *memBucket) Get(key []byte) []byte {
	v, _ := b.data().get(string(key))
	return v
}

func (b *memBucket) Put(key, value []byte) error {
	if !b.tx.writable {
		return errMemNotWritable
	}
	b.tx.mutable(b.id).put(string(key), slices.Clone(value))
	return nil
}

func (b *memBucket) Delete(key []byte) error {
	if !b.tx.writable {
		return errMemNotWritable
	}
	if m := b.data(); m != nil {
		if _, ok := m.find(string(key)); ok {
			b.tx.mutable(b.id).remove(string(key))
		}
	}
	return nil
}

func (b *memBucket) Cursor() storageCursor {
	return &memCursor{m: b.data(), pos: -1}
}

func (b *memBucket) Stats() bucketStats {
	m := b.data()
	var inuse int64
	for _, e := range m.items {
		inuse += int64(len(e.key) + len(e.value))
	}
	return bucketStats{
		KeyN:      m.len(),
		LeafInuse: inuse,
		LeafAlloc: inuse,
	}
}

type memCursor struct {
	m   *sortedMap[[]byte]
	pos int
}

func (c *memCursor) at() ([]byte, []byte) {
	if c.pos < 0 || c.pos >= c.m.len() {
		return nil, nil
	}
	e := c.m.items[c.pos]
	return []byte(e.key), e.value
}

func (c *memCursor) First() ([]byte, []byte) {
	c.pos = 0
	return c.at()
}

func (c *memCursor) Seek(seek []byte) ([]byte, []byte) {
	c.pos, _ = c.m.find(string(seek))
	return c.at()
}

func (c *memCursor) Next() ([]byte, []byte) {
	c.pos++
	return c.at()
}
