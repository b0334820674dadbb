package partkv

import "github.com/vmihailenco/msgpack/v5"

type CollectionStats struct {
	ID      string  `json:"id"`
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Usage   float64 `json:"usage"`
	Status  Status  `json:"status"`
	Strict  bool    `json:"strict"`
	Bytes   int     `json:"bytes,omitempty"`
}

type GroupStats struct {
	Partitions  int               `json:"partitions"`
	Size        int               `json:"size"`
	MaxSize     int               `json:"max_size"`
	Usage       float64           `json:"usage"`
	Highest     float64           `json:"highest_collection_usage"`
	Lowest      float64           `json:"lowest_collection_usage"`
	Status      Status            `json:"status"`
	Strict      bool              `json:"strict"`
	Collections []CollectionStats `json:"collections"`
}

type ContainerStats struct {
	Name      string       `json:"name"`
	Size      int          `json:"size"`
	MaxSize   int          `json:"max_size"`
	Capacity  int          `json:"capacity"`
	Used      int          `json:"used"`
	Usage     float64      `json:"usage"`
	Status    Status       `json:"status"`
	Strict    bool         `json:"strict"`
	Migrating bool         `json:"migrating"`
	Groups    []GroupStats `json:"groups"`

	DataSize  int64 `json:"data_size,omitempty"`
	DataAlloc int64 `json:"data_alloc,omitempty"`
}

func (cs *ContainerStats) Partitions() int {
	var n int
	for _, g := range cs.Groups {
		n += g.Partitions
	}
	return n
}

// StatsOf computes the health figures of an in-memory container.
func StatsOf[V any](name string, ct *Container[V]) ContainerStats {
	result := ContainerStats{
		Name:      name,
		Size:      ct.Size(),
		MaxSize:   ct.MaxSize(),
		Capacity:  ct.Capacity(),
		Used:      ct.Used(),
		Usage:     ct.Usage(),
		Status:    ct.Status(),
		Strict:    ct.Strict(),
		Migrating: ct.Migrating(),
	}
	for _, g := range ct.groups {
		gs := GroupStats{
			Partitions: g.Len(),
			Size:       g.Size(),
			MaxSize:    g.MaxSize(),
			Usage:      g.Usage(),
			Highest:    g.HighestCollectionUsage(),
			Lowest:     g.LowestCollectionUsage(),
			Status:     g.Status(),
			Strict:     g.Strict(),
		}
		for _, c := range g.collections {
			gs.Collections = append(gs.Collections, CollectionStats{
				ID:      c.id,
				Size:    c.Size(),
				MaxSize: c.maxSize,
				Usage:   c.Usage(),
				Status:  c.Status(),
				Strict:  c.strict,
			})
		}
		result.Groups = append(result.Groups, gs)
	}
	return result
}

// Stats reads a stored container without decoding its values.
func Stats(tx *Tx, name string) (*ContainerStats, error) {
	ct, err := Load[msgpack.RawMessage](tx, name)
	if err != nil {
		return nil, err
	}
	result := StatsOf(name, ct)

	b := tx.stx.Bucket(containersBucket, name)
	bs := b.Stats()
	result.DataSize = bs.LeafInuse
	result.DataAlloc = bs.TotalAlloc()
	for gi := range result.Groups {
		colls := result.Groups[gi].Collections
		for ci := range colls {
			colls[ci].Bytes = len(b.Get(collectionKey(colls[ci].ID)))
		}
	}
	return &result, nil
}
