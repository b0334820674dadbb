/*
Package partkv implements a partitioned key-value container that can be
resized while staying readable, plus an embedded store (on top of Bolt) that
persists such containers.

We implement:

1. Collections, bounded ordered maps with string keys. A strict collection
refuses to grow past its maximum size.

2. Groups, fixed sets of collections. A key always lives in the collection
picked by xxhash64(key) mod partition count.

3. Containers, a primary group receiving writes plus older groups that are
still consulted by reads until their data is condensed into the primary.

4. The store: named containers saved and loaded inside transactions.

# Sizing

A container of capacity C with partitions of at most P keys gets the smallest
prime count of partitions not below ceil(C/P); 1 counts as prime. Growing
recommends room for 150% of the current primary.

# Migration

Resize installs a larger primary in front of the existing groups. Condense
copies keys the primary lacks out of the older groups, newest group first, so
a key's most recent value wins. With transfer, the copied keys are deleted
from their source and emptied groups are detached.

# Storage layout

**Catalog.** Root bucket "catalog" maps container names to a msgpack
CatalogEntry summary, so listing containers never touches their data.

**Container data.** Nested bucket "containers/<name>" holds:
1. "meta": msgpack of the collection ids of every group, primary first.
2. "c:<collection id>": one record per collection, a msgpack array of
id, max size, strict flag and the ordered key/value map.

Saving rewrites only dirty collections, and rewrites meta (deleting records of
collections that are no longer referenced) only when the group list changed.
*/
package partkv
