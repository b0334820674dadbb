package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/andreyvit/partkv"
	"github.com/spf13/cobra"
)

var (
	migratePartitionSize int
	migrateNoCondense    bool
	migrateKeep          bool
)

var resizeCmd = &cobra.Command{
	Use:   "resize NAME CAPACITY",
	Short: "Install a bigger primary group and move the data into it",
	Long: `Install a bigger primary group and move the data into it.

The new capacity must produce more partitions than the container has now.
By default every old group is condensed into the new one and emptied groups
are discarded; --no-condense only merges the previous primary, --keep
copies instead of moving so that old groups stay attached.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		capacity, err := strconv.Atoi(args[1])
		if err != nil || capacity <= 0 {
			return fmt.Errorf("invalid capacity %q", args[1])
		}
		return withDB(func(cfg *Config, db *partkv.DB) error {
			ps := pick(migratePartitionSize, cfg.PartitionSize)
			return runResize(db, cmd.OutOrStdout(), args[0], capacity, ps, !migrateNoCondense, !migrateKeep)
		})
	},
}

var growCmd = &cobra.Command{
	Use:   "grow NAME",
	Short: "Resize to the next recommended partition count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg *Config, db *partkv.DB) error {
			ps := pick(migratePartitionSize, cfg.PartitionSize)
			return runGrow(db, cmd.OutOrStdout(), args[0], ps, !migrateNoCondense, !migrateKeep)
		})
	},
}

var condenseCmd = &cobra.Command{
	Use:   "condense NAME",
	Short: "Move keys from retired groups into the primary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg *Config, db *partkv.DB) error {
			return runCondense(db, cmd.OutOrStdout(), args[0], !migrateKeep)
		})
	},
}

func init() {
	rootCmd.AddCommand(resizeCmd, growCmd, condenseCmd)
	for _, c := range []*cobra.Command{resizeCmd, growCmd} {
		c.Flags().IntVar(&migratePartitionSize, "partition-size", 0, "maximum keys per partition of the new group")
		c.Flags().BoolVar(&migrateNoCondense, "no-condense", false, "merge only the previous primary group")
	}
	for _, c := range []*cobra.Command{resizeCmd, growCmd, condenseCmd} {
		c.Flags().BoolVar(&migrateKeep, "keep", false, "copy keys instead of moving them")
	}
}

func runResize(db *partkv.DB, w io.Writer, name string, capacity, partitionSize int, condense, transfer bool) error {
	discarded, err := partkv.Resize[any](db, name, capacity, partitionSize, condense, transfer)
	if err != nil {
		return err
	}
	return reportMigration(db, w, name, "Resized", discarded)
}

func runGrow(db *partkv.DB, w io.Writer, name string, partitionSize int, condense, transfer bool) error {
	discarded, err := partkv.Grow[any](db, name, partitionSize, condense, transfer)
	if err != nil {
		return err
	}
	return reportMigration(db, w, name, "Grew", discarded)
}

func runCondense(db *partkv.DB, w io.Writer, name string, transfer bool) error {
	discarded, err := partkv.Condense[any](db, name, transfer)
	if err != nil {
		return err
	}
	return reportMigration(db, w, name, "Condensed", discarded)
}

func reportMigration(db *partkv.DB, w io.Writer, name, verb string, discarded int) error {
	var entry *partkv.CatalogEntry
	err := db.ReadErr(func(tx *partkv.Tx) error {
		var err error
		entry, err = partkv.LookupEntry(tx, name)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s: %d partitions, capacity %d, %d groups attached, %d discarded\n", verb, name, entry.Partitions, entry.Capacity, entry.Groups, discarded)
	return nil
}
