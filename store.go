package partkv

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var (
	metaKey             = []byte("meta")
	collectionKeyPrefix = []byte("c:")
)

// CatalogEntry describes a stored container without loading its data.
type CatalogEntry struct {
	Name          string    `msgpack:"n" json:"name"`
	Created       time.Time `msgpack:"c" json:"created"`
	Updated       time.Time `msgpack:"u" json:"updated"`
	Capacity      int       `msgpack:"cap" json:"capacity"`
	PartitionSize int       `msgpack:"ps" json:"partition_size"`
	Partitions    int       `msgpack:"p" json:"partitions"`
	Groups        int       `msgpack:"g" json:"groups"`
	Used          int       `msgpack:"used" json:"used"`
	Strict        bool      `msgpack:"s" json:"strict"`
	InMigration   bool      `msgpack:"m" json:"in_migration"`
}

// containerShape is what the meta record holds: collection ids per group,
// primary first.
type containerShape struct {
	Groups [][]string `msgpack:"g"`
}

func collectionKey(id string) []byte {
	return append(bytes.Clone(collectionKeyPrefix), id...)
}

// LookupEntry returns the catalog entry of the named container.
func LookupEntry(tx *Tx, name string) (*CatalogEntry, error) {
	raw := tx.stx.Bucket(catalogBucket, "").Get(unsafeBytesFromString(name))
	if raw == nil {
		return nil, containerErrf(name, "", ErrContainerNotFound, "")
	}
	entry := new(CatalogEntry)
	if err := decodeValue(raw, entry); err != nil {
		return nil, containerErrf(name, "", err, "catalog entry")
	}
	return entry, nil
}

// Exists reports whether a container with the given name is stored.
func Exists(tx *Tx, name string) bool {
	return tx.stx.Bucket(catalogBucket, "").Get(unsafeBytesFromString(name)) != nil
}

// Names lists the stored containers in name order.
func Names(tx *Tx) []string {
	var names []string
	c := tx.stx.Bucket(catalogBucket, "").Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		names = append(names, string(k))
	}
	return names
}

// Catalog returns the entries of all stored containers in name order.
func Catalog(tx *Tx) ([]*CatalogEntry, error) {
	var result []*CatalogEntry
	c := tx.stx.Bucket(catalogBucket, "").Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		entry := new(CatalogEntry)
		if err := decodeValue(v, entry); err != nil {
			return nil, containerErrf(string(k), "", err, "catalog entry")
		}
		result = append(result, entry)
	}
	return result, nil
}

// Create stores a new empty container and returns it.
func Create[V any](tx *Tx, name string, capacity, partitionSize int, strict bool) (*Container[V], error) {
	if err := tx.ensureWritable(); err != nil {
		return nil, err
	}
	if name == "" || strings.ContainsRune(name, 0) {
		return nil, invalidConfigf("invalid container name %q", name)
	}
	if Exists(tx, name) {
		return nil, containerErrf(name, "", ErrContainerExists, "")
	}
	ct := New[V](capacity, partitionSize, strict)
	if err := saveContainer(tx, name, ct, &CatalogEntry{Name: name, Created: time.Now()}); err != nil {
		return nil, err
	}
	if tx.db.verbose {
		tx.db.logf("partkv: CREATE %s partitions=%d capacity=%d strict=%v", name, ct.Primary().Len(), ct.Capacity(), strict)
	}
	return ct, nil
}

// Load decodes the named container with values of type V.
func Load[V any](tx *Tx, name string) (*Container[V], error) {
	if !Exists(tx, name) {
		return nil, containerErrf(name, "", ErrContainerNotFound, "")
	}
	b := tx.stx.Bucket(containersBucket, name)
	if b == nil {
		return nil, containerErrf(name, "", ErrContainerNotFound, "missing data bucket")
	}
	raw := b.Get(metaKey)
	if raw == nil {
		return nil, containerErrf(name, "", ErrContainerNotFound, "missing meta record")
	}
	var shape containerShape
	if err := decodeValue(raw, &shape); err != nil {
		return nil, containerErrf(name, "", err, "meta")
	}

	ct := &Container[V]{groups: make([]*Group[V], 0, len(shape.Groups))}
	seen := make(map[string]int)
	for gi, ids := range shape.Groups {
		colls := make([]*Collection[V], len(ids))
		for i, id := range ids {
			if prev, ok := seen[id]; ok && prev != gi {
				return nil, containerErrf(name, id, ErrInvalidConfiguration, "collection listed in groups %d and %d", prev, gi)
			}
			seen[id] = gi
			raw := b.Get(collectionKey(id))
			if raw == nil {
				return nil, containerErrf(name, id, ErrKeyNotFound, "missing collection of group %d", gi)
			}
			c := new(Collection[V])
			if err := decodeValue(raw, c); err != nil {
				tx.db.logger.LogAttrs(context.Background(), slog.LevelError, "partkv: undecodable collection",
					slog.String("container", name),
					slog.String("collection", id),
					hexAttr("head", raw[:min(len(raw), 32)]))
				return nil, containerErrf(name, id, err, "")
			}
			if c.id != id {
				return nil, containerErrf(name, id, nil, "record holds collection %s", c.id)
			}
			colls[i] = c
		}
		g, err := NewGroup(colls...)
		if err != nil {
			return nil, containerErrf(name, "", err, "group %d", gi)
		}
		ct.groups = append(ct.groups, g)
	}
	if len(ct.groups) == 0 {
		return nil, containerErrf(name, "", ErrInvalidConfiguration, "no groups stored")
	}
	return ct, nil
}

// Save writes the parts of ct that changed since it was created or loaded.
func Save[V any](tx *Tx, name string, ct *Container[V]) error {
	if err := tx.ensureWritable(); err != nil {
		return err
	}
	entry, err := LookupEntry(tx, name)
	if err != nil {
		return err
	}
	return saveContainer(tx, name, ct, entry)
}

func saveContainer[V any](tx *Tx, name string, ct *Container[V], entry *CatalogEntry) error {
	b, err := tx.stx.CreateBucket(containersBucket, name)
	if err != nil {
		return containerErrf(name, "", err, "creating bucket")
	}

	shape := ct.shape()
	var written int
	for _, c := range ct.dirtyCollections() {
		buf, err := encodeValue(tx.valueBuf(), c)
		if err != nil {
			return containerErrf(name, c.ID(), err, "")
		}
		tx.keepValueBuf(buf)
		if err := b.Put(collectionKey(c.ID()), buf); err != nil {
			return containerErrf(name, c.ID(), err, "")
		}
		written++
	}

	var removed int
	if ct.Dirty() {
		buf, err := encodeValue(nil, &shape)
		if err != nil {
			return containerErrf(name, "", err, "meta")
		}
		if err := b.Put(metaKey, buf); err != nil {
			return containerErrf(name, "", err, "meta")
		}
		removed, err = deleteStaleCollections(b, shape)
		if err != nil {
			return containerErrf(name, "", err, "removing discarded collections")
		}
	}

	now := time.Now()
	entry.Updated = now
	entry.Capacity = ct.Capacity()
	entry.PartitionSize = ct.Primary().MaxCollectionSize()
	entry.Partitions = ct.Primary().Len()
	entry.Groups = len(shape.Groups)
	entry.Used = ct.Used()
	entry.Strict = ct.Strict()
	entry.InMigration = ct.Migrating()
	raw, err := encodeValue(nil, entry)
	if err != nil {
		return containerErrf(name, "", err, "catalog entry")
	}
	if err := tx.stx.Bucket(catalogBucket, "").Put([]byte(name), raw); err != nil {
		return containerErrf(name, "", err, "catalog entry")
	}

	ct.markClean()

	if tx.db.verbose {
		tx.db.logf("partkv: SAVE %s groups=%d written=%d removed=%d used=%d/%d", name, entry.Groups, written, removed, entry.Used, entry.Capacity)
	}
	if st := ct.Status(); st >= Warning {
		tx.db.logger.LogAttrs(context.Background(), slog.LevelWarn, "partkv: container near capacity",
			slog.String("container", name),
			slog.String("status", st.String()),
			slog.Int("used", entry.Used),
			slog.Int("capacity", entry.Capacity))
	}
	return nil
}

func deleteStaleCollections(b storageBucket, shape containerShape) (int, error) {
	live := make(map[string]bool)
	for _, ids := range shape.Groups {
		for _, id := range ids {
			live[id] = true
		}
	}
	var stale [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(collectionKeyPrefix); k != nil && bytes.HasPrefix(k, collectionKeyPrefix); k, _ = c.Next() {
		if !live[string(k[len(collectionKeyPrefix):])] {
			stale = append(stale, bytes.Clone(k))
		}
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

// Drop deletes the named container and all its data.
func Drop(tx *Tx, name string) error {
	if err := tx.ensureWritable(); err != nil {
		return err
	}
	if !Exists(tx, name) {
		return containerErrf(name, "", ErrContainerNotFound, "")
	}
	if err := tx.stx.DeleteBucket(containersBucket, name); err != nil && err != ErrBucketNotFound {
		return containerErrf(name, "", err, "deleting data")
	}
	if err := tx.stx.Bucket(catalogBucket, "").Delete([]byte(name)); err != nil {
		return containerErrf(name, "", err, "deleting catalog entry")
	}
	if tx.db.verbose {
		tx.db.logf("partkv: DROP %s", name)
	}
	return nil
}

// Update loads the named container in a writable transaction, calls f and
// saves the result. Returning an error from f discards every change.
func Update[V any](db *DB, name string, f func(ct *Container[V]) error) error {
	return db.Tx(true, func(tx *Tx) error {
		ct, err := Load[V](tx, name)
		if err != nil {
			return err
		}
		if err := f(ct); err != nil {
			return err
		}
		return Save(tx, name, ct)
	})
}

// View loads the named container in a read-only transaction and calls f.
// Changes f makes are not saved.
func View[V any](db *DB, name string, f func(ct *Container[V]) error) error {
	return db.Tx(false, func(tx *Tx) error {
		ct, err := Load[V](tx, name)
		if err != nil {
			return err
		}
		return f(ct)
	})
}

// Resize applies Container.Resize to the named container and returns the
// number of groups it discarded.
func Resize[V any](db *DB, name string, newCapacity, partitionSize int, condense, transfer bool) (int, error) {
	return migrate[V](db, name, "RESIZE", func(ct *Container[V]) ([]*Group[V], error) {
		return ct.Resize(newCapacity, partitionSize, condense, transfer)
	})
}

// Grow applies Container.Grow to the named container.
func Grow[V any](db *DB, name string, partitionSize int, condense, transfer bool) (int, error) {
	return migrate[V](db, name, "GROW", func(ct *Container[V]) ([]*Group[V], error) {
		return ct.Grow(partitionSize, condense, transfer)
	})
}

// Condense applies Container.Condense to the named container.
func Condense[V any](db *DB, name string, transfer bool) (int, error) {
	return migrate[V](db, name, "CONDENSE", func(ct *Container[V]) ([]*Group[V], error) {
		return ct.Condense(transfer)
	})
}

func migrate[V any](db *DB, name, op string, f func(ct *Container[V]) ([]*Group[V], error)) (int, error) {
	var discarded int
	err := Update(db, name, func(ct *Container[V]) error {
		before := ct.Primary().Len()
		groups, err := f(ct)
		if err != nil {
			return fmt.Errorf("%s %s: %w", strings.ToLower(op), name, err)
		}
		discarded = len(groups)
		if db.verbose {
			db.logf("partkv: %s %s %d->%d groups=%d discarded=%d", op, name, before, ct.Primary().Len(), len(ct.groups), discarded)
		}
		if ct.Migrating() {
			db.logger.LogAttrs(context.Background(), slog.LevelInfo, "partkv: container migrating",
				slog.String("container", name),
				slog.Int("groups", len(ct.groups)))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return discarded, nil
}
