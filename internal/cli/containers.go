package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/andreyvit/partkv"
	"github.com/spf13/cobra"
)

var (
	createCapacity      int
	createPartitionSize int
	createLax           bool
	dumpEntries         bool
)

var createCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an empty container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg *Config, db *partkv.DB) error {
			capacity := pick(createCapacity, cfg.Capacity)
			partitionSize := pick(createPartitionSize, cfg.PartitionSize)
			strict := cfg.StrictOrDefault() && !createLax
			return runCreate(db, cmd.OutOrStdout(), args[0], capacity, partitionSize, strict)
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored containers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg *Config, db *partkv.DB) error {
			return runList(db, cmd.OutOrStdout(), jsonOutput)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats NAME",
	Short: "Show usage of a container and each of its partitions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg *Config, db *partkv.DB) error {
			return runStats(db, cmd.OutOrStdout(), args[0], jsonOutput)
		})
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump [NAME...]",
	Short: "Print the layout of containers, optionally with every entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg *Config, db *partkv.DB) error {
			return runDump(db, cmd.OutOrStdout(), args, dumpEntries)
		})
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop NAME",
	Short: "Delete a container and all its data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg *Config, db *partkv.DB) error {
			return runDrop(db, cmd.OutOrStdout(), args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(createCmd, listCmd, statsCmd, dumpCmd, dropCmd)
	createCmd.Flags().IntVar(&createCapacity, "capacity", 0, "number of keys the container must hold (default from config, then 100000)")
	createCmd.Flags().IntVar(&createPartitionSize, "partition-size", 0, "maximum keys per partition (default from config, then 5000)")
	createCmd.Flags().BoolVar(&createLax, "lax", false, "let partitions grow past their maximum size")
	dumpCmd.Flags().BoolVar(&dumpEntries, "entries", false, "include every key and value")
}

func pick(flag, configured int) int {
	if flag > 0 {
		return flag
	}
	return configured
}

func runCreate(db *partkv.DB, w io.Writer, name string, capacity, partitionSize int, strict bool) error {
	var ct *partkv.Container[any]
	err := db.Tx(true, func(tx *partkv.Tx) error {
		var err error
		ct, err = partkv.Create[any](tx, name, capacity, partitionSize, strict)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Created %s: %d partitions of %d keys, capacity %d\n", name, ct.Primary().Len(), ct.Primary().MaxCollectionSize(), ct.Capacity())
	return nil
}

func runList(db *partkv.DB, w io.Writer, asJSON bool) error {
	var entries []*partkv.CatalogEntry
	err := db.ReadErr(func(tx *partkv.Tx) error {
		var err error
		entries, err = partkv.Catalog(tx)
		return err
	})
	if err != nil {
		return err
	}
	if asJSON {
		if entries == nil {
			entries = []*partkv.CatalogEntry{}
		}
		return writeJSON(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No containers.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tUSED\tCAPACITY\tPARTITIONS\tGROUPS\tSTRICT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%v\n", e.Name, e.Used, e.Capacity, e.Partitions, e.Groups, e.Strict)
	}
	return tw.Flush()
}

func runStats(db *partkv.DB, w io.Writer, name string, asJSON bool) error {
	var st *partkv.ContainerStats
	err := db.ReadErr(func(tx *partkv.Tx) error {
		var err error
		st, err = partkv.Stats(tx, name)
		return err
	})
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, st)
	}
	fmt.Fprint(w, formatStatsHuman(st))
	return nil
}

func formatStatsHuman(st *partkv.ContainerStats) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Container:  %s\n", st.Name)
	fmt.Fprintf(&buf, "Used:       %d of %d (%s) [%s]\n", st.Used, st.Capacity, percent(st.Usage), st.Status)
	fmt.Fprintf(&buf, "Partitions: %d\n", st.Groups[0].Partitions)
	if st.Migrating {
		fmt.Fprintf(&buf, "Migrating:  %d groups, %d keys total\n", len(st.Groups), st.Size)
	}
	for gi, g := range st.Groups {
		role := "primary"
		if gi > 0 {
			role = "retired"
		}
		fmt.Fprintf(&buf, "\nGroup %d (%s): %d/%d, highest %s, lowest %s\n", gi, role, g.Size, g.MaxSize, percent(g.Highest), percent(g.Lowest))
		for ci, c := range g.Collections {
			fmt.Fprintf(&buf, "  %3d  %-36s  %6d/%-6d  %6s  %s\n", ci, c.ID, c.Size, c.MaxSize, percent(c.Usage), c.Status)
		}
	}
	return buf.String()
}

func runDump(db *partkv.DB, w io.Writer, names []string, entries bool) error {
	flags := partkv.DumpHeaders | partkv.DumpStats | partkv.DumpCollections
	if entries {
		flags |= partkv.DumpEntries
	}
	var out string
	err := db.ReadErr(func(tx *partkv.Tx) error {
		var err error
		out, err = partkv.Dump(tx, flags, names...)
		return err
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func runDrop(db *partkv.DB, w io.Writer, name string) error {
	err := db.Tx(true, func(tx *partkv.Tx) error {
		return partkv.Drop(tx, name)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Dropped %s\n", name)
	return nil
}
