package cli

import (
	"fmt"
	"io"

	"github.com/andreyvit/partkv"
	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put NAME KEY=VALUE...",
	Short: "Store values in the primary group of a container",
	Long: `Store values in the primary group of a container.

Values that parse as JSON are stored as JSON values, anything else as a
string. With several pairs, either all of them are stored or none is.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg *Config, db *partkv.DB) error {
			return runPut(db, cmd.OutOrStdout(), args[0], args[1:])
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get NAME KEY...",
	Short: "Print values, looking through every group",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg *Config, db *partkv.DB) error {
			return runGet(db, cmd.OutOrStdout(), args[0], args[1:], jsonOutput)
		})
	},
}

var delCmd = &cobra.Command{
	Use:   "del NAME KEY...",
	Short: "Delete keys from every group",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg *Config, db *partkv.DB) error {
			return runDel(db, cmd.OutOrStdout(), args[0], args[1:])
		})
	},
}

var hasCmd = &cobra.Command{
	Use:   "has NAME KEY",
	Short: "Print how many groups hold a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg *Config, db *partkv.DB) error {
			return runHas(db, cmd.OutOrStdout(), args[0], args[1])
		})
	},
}

func init() {
	rootCmd.AddCommand(putCmd, getCmd, delCmd, hasCmd)
}

func runPut(db *partkv.DB, w io.Writer, name string, pairs []string) error {
	items, err := parsePairs(pairs)
	if err != nil {
		return err
	}
	var used, capacity int
	err = partkv.Update(db, name, func(ct *partkv.Container[any]) error {
		if err := ct.WriteMany(items); err != nil {
			return err
		}
		used, capacity = ct.Used(), ct.Capacity()
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Stored %d keys in %s (%d of %d used)\n", len(items), name, used, capacity)
	return nil
}

func runGet(db *partkv.DB, w io.Writer, name string, keys []string, asJSON bool) error {
	found := make(map[string]any, len(keys))
	err := partkv.View(db, name, func(ct *partkv.Container[any]) error {
		for _, k := range keys {
			v, ok := ct.Read(k)
			if !ok {
				return fmt.Errorf("%s: %w: %q", name, partkv.ErrKeyNotFound, k)
			}
			found[k] = v
		}
		return nil
	})
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, found)
	}
	for _, k := range keys {
		if len(keys) == 1 {
			fmt.Fprintln(w, formatValue(found[k]))
		} else {
			fmt.Fprintf(w, "%s\t%s\n", k, formatValue(found[k]))
		}
	}
	return nil
}

func runDel(db *partkv.DB, w io.Writer, name string, keys []string) error {
	var removed int
	err := partkv.Update(db, name, func(ct *partkv.Container[any]) error {
		for _, k := range keys {
			removed += len(ct.Delete(k))
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Removed %d values from %s\n", removed, name)
	return nil
}

func runHas(db *partkv.DB, w io.Writer, name, key string) error {
	return partkv.View(db, name, func(ct *partkv.Container[any]) error {
		_, err := fmt.Fprintln(w, ct.Has(key))
		return err
	})
}
