package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/entity-profile/internal/audit"
	"github.com/danielpatrickdp/entity-profile/internal/store"
)

var (
	inspectLast int
	inspectJSON bool
)

// #region command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show recent profile requests from the audit log",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent requests")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of table")
}
// #endregion command

// #region run
func runInspect(cmd *cobra.Command, args []string) error {
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	log, err := audit.NewLog(st.DB())
	if err != nil {
		return err
	}
	entries, err := log.List(cmd.Context(), inspectLast)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no profile requests recorded")
		return nil
	}

	if inspectJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	printTable(entries)
	return nil
}

func printTable(entries []audit.Entry) {
	fmt.Printf("%-10s  %-16s  %-16s  %-16s  %8s  %-20s  %s\n",
		"Request", "Detector", "Entity", "Outcome", "Millis", "Time", "Reason")
	fmt.Printf("%-10s+-%-16s+-%-16s+-%-16s+-%8s+-%-20s+-%s\n",
		"----------", "----------------", "----------------", "----------------", "--------", "--------------------", "------")
	for _, e := range entries {
		fmt.Printf("%-10s  %-16s  %-16s  %-16s  %8d  %-20s  %s\n",
			shortID(e.RequestID), truncate(e.DetectorID, 16), truncate(e.EntityValue, 16),
			e.Outcome, e.DurationMs, e.CreatedAt.Format("2006-01-02T15:04:05Z"), e.Reason)
	}
}
// #endregion run

// #region helpers
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}
// #endregion helpers
