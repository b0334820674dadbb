package partkv

import "errors"

// ErrBucketNotFound is returned when deleting a container bucket that isn't there.
var ErrBucketNotFound = errors.New("bucket not found")

// storage is a transactional sorted key-value backend: bbolt on disk, or a
// transient in-memory copy for tests and scratch use.
type storage interface {
	BeginTx(writable bool) (storageTx, error)
	Close() error
}

// storageTx addresses buckets by a root name plus an optional nested name.
// partkv uses two roots: the catalog, and containers with one nested bucket
// per container.
type storageTx interface {
	Writable() bool

	// Bucket returns nil when the bucket is missing.
	Bucket(name, sub string) storageBucket

	// CreateBucket creates the root and, for a non-empty sub, the nested
	// bucket, reusing whatever already exists.
	CreateBucket(name, sub string) (storageBucket, error)

	// DeleteBucket only removes nested buckets.
	DeleteBucket(name, sub string) error

	Commit() error

	// Rollback is a no-op after Commit or a previous Rollback.
	Rollback() error

	// Size is the size of the data file, or 0 for in-memory backends.
	Size() int64
}

// storageBucket values returned by Get stay valid until the transaction ends
// and must not be modified. Values passed to Put must not be modified until
// then either.
type storageBucket interface {
	Get(key []byte) []byte
	Put(key, value []byte) error
	Delete(key []byte) error
	Cursor() storageCursor
	Stats() bucketStats
}

// bucketStats reports sizes for monitoring; backends that don't track
// allocation report what they hold.
type bucketStats struct {
	KeyN        int
	LeafInuse   int64
	LeafAlloc   int64
	BranchAlloc int64
}

func (s bucketStats) TotalAlloc() int64 { return s.BranchAlloc + s.LeafAlloc }

// storageCursor iterates over a sorted bucket. A nil key means the cursor
// ran off the end.
type storageCursor interface {
	First() (key, value []byte)
	Seek(seek []byte) (key, value []byte)
	Next() (key, value []byte)
}
