package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/GenreGenius/internal/journal"
	"github.com/himanishpuri/GenreGenius/pkg/genregenius"
)

func init() {
	rootCmd.AddCommand(journalCmd)

	journalCmd.Flags().IntP("limit", "n", 20, "Number of entries to show (0 for all)")
	journalCmd.Flags().Bool("failures", false, "Show failed predictions only")
	journalCmd.Flags().String("kind", "", "With --failures, filter by error kind (e.g. prediction_failed)")
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recent prediction outcomes with their diagnostics",
	Long: `List entries from the operator journal configured under [journal].path.
Entries include the raw service diagnostics that are never shown by predict.`,
	Args: cobra.NoArgs,
	RunE: runJournal,
}

func runJournal(cmd *cobra.Command, args []string) error {
	if cfg.Journal.Path == "" {
		return errors.New("no journal configured; set [journal].path in the config file")
	}
	limit, _ := cmd.Flags().GetInt("limit")
	failuresOnly, _ := cmd.Flags().GetBool("failures")
	kind, _ := cmd.Flags().GetString("kind")

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer j.Close()

	var entries []journal.Entry
	if failuresOnly {
		entries, err = j.Failures(cmd.Context(), genregenius.ErrorKind(kind))
		if err == nil && limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}
	} else {
		entries, err = j.Recent(cmd.Context(), limit)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No journal entries.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSTATUS\tKIND\tPREDICTED\tDURATION\tSOURCE\tDIAGNOSTIC")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			e.Status,
			dash(e.Kind),
			dash(e.Predicted),
			(time.Duration(e.DurationMs) * time.Millisecond).String(),
			e.SourceURL,
			dash(truncate(e.Diagnostic, 60)),
		)
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
