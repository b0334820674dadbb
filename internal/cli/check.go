package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andreyvit/partkv"
	"github.com/spf13/cobra"
)

var checkLevel string

// errThresholdExceeded makes the process exit non-zero without usage output.
var errThresholdExceeded = errors.New("containers above threshold")

var checkCmd = &cobra.Command{
	Use:   "check [NAME...]",
	Short: "Fail when a container reaches a status level",
	Long: `Check the status of containers (all of them by default) and exit non-zero
if any has reached the given level.

Levels: healthy, acceptable (60%), alert (70%), warning (80%), critical (90%).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLevel(checkLevel)
		if err != nil {
			return err
		}
		return withDB(func(cfg *Config, db *partkv.DB) error {
			return runCheck(db, cmd.OutOrStdout(), args, level, jsonOutput)
		})
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkLevel, "level", "warning", "status level that fails the check")
}

func parseLevel(s string) (partkv.Status, error) {
	for _, st := range []partkv.Status{partkv.Healthy, partkv.Acceptable, partkv.Alert, partkv.Warning, partkv.Critical} {
		if strings.EqualFold(s, st.String()) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown status level %q", s)
}

type checkResult struct {
	Name   string        `json:"name"`
	Usage  float64       `json:"usage"`
	Status partkv.Status `json:"status"`
	Passed bool          `json:"passed"`
}

func runCheck(db *partkv.DB, w io.Writer, names []string, level partkv.Status, asJSON bool) error {
	var results []checkResult
	err := db.ReadErr(func(tx *partkv.Tx) error {
		if len(names) == 0 {
			names = partkv.Names(tx)
		}
		for _, name := range names {
			st, err := partkv.Stats(tx, name)
			if err != nil {
				return err
			}
			results = append(results, checkResult{
				Name:   name,
				Usage:  st.Usage,
				Status: st.Status,
				Passed: st.Status < level,
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	var failed int
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}
	if asJSON {
		if results == nil {
			results = []checkResult{}
		}
		if err := writeJSON(w, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			mark := "✓"
			if !r.Passed {
				mark = "✗"
			}
			fmt.Fprintf(w, "%s %s: %s [%s]\n", mark, r.Name, percent(r.Usage), r.Status)
		}
		fmt.Fprintf(w, "%d passed, %d failed\n", len(results)-failed, failed)
	}
	if failed > 0 {
		return errThresholdExceeded
	}
	return nil
}
