package partkv

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

type DumpFlags uint64

const (
	DumpHeaders = DumpFlags(1 << iota)
	DumpStats
	DumpCollections
	DumpEntries

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump describes the stored containers (all of them when names is empty)
// in a human-readable form.
func Dump(tx *Tx, f DumpFlags, names ...string) (string, error) {
	if len(names) == 0 {
		names = Names(tx)
	}
	var buf strings.Builder
	for _, name := range names {
		if err := dumpContainer(&buf, tx, f, name); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func dumpContainer(w *strings.Builder, tx *Tx, f DumpFlags, name string) error {
	ct, err := Load[msgpack.RawMessage](tx, name)
	if err != nil {
		return err
	}

	if f.Contains(DumpHeaders) {
		fmt.Fprintln(w, dumpSep1)
		state := "steady"
		if ct.Migrating() {
			state = "MIGRATING"
		}
		fmt.Fprintf(w, "%s (%d keys, %d groups, %s)\n", name, ct.Size(), len(ct.groups), state)
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(w, "%s.stats: capacity = %d, used = %d, usage = %.3f, status = %v, strict = %v, max_size = %d\n", name, ct.Capacity(), ct.Used(), ct.Usage(), ct.Status(), ct.Strict(), ct.MaxSize())
	}
	for gi, g := range ct.groups {
		prefix := fmt.Sprintf("%s.g%d", name, gi)
		if f.Contains(DumpCollections) {
			fmt.Fprintln(w, dumpSep2)
			fmt.Fprintf(w, "%s: %d partitions, %d/%d keys, status = %v\n", prefix, g.Len(), g.Size(), g.MaxSize(), g.Status())
			for ci, c := range g.collections {
				fmt.Fprintf(w, "%s.%d %s: %d/%d%s\n", prefix, ci, c.id, c.Size(), c.maxSize, map[bool]string{false: "", true: " strict"}[c.strict])
			}
		}
		if f.Contains(DumpEntries) {
			var pos int
			for k, v := range g.Items(FullRange()) {
				pos++
				fmt.Fprintf(w, "%s.%d: %q = %s\n", prefix, pos, k, loggableRaw(v))
			}
		}
	}
	return nil
}

// loggableRaw renders a stored value as JSON, falling back to hex.
func loggableRaw(raw msgpack.RawMessage) string {
	var v any
	if err := msgpack.Unmarshal(raw, &v); err != nil {
		return "** " + hexstr(raw)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
