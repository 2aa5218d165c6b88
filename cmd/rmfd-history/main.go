package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"rmfd/internal/config"
	"rmfd/internal/exitcodes"
	"rmfd/internal/history"
)

type queryOptions struct {
	dbPath     string
	recent     int
	action     string
	path       string
	run        string
	stats      bool
	days       int
	prune      int
	limit      int
	jsonOutput bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	o := &queryOptions{}
	code := exitcodes.Success

	cmd := &cobra.Command{
		Use:   "rmfd-history",
		Short: "Query the removal history recorded by rmfd",
		Example: `  rmfd-history --recent 10            # 10 most recent events
  rmfd-history --stats --days 7       # statistics for the last week
  rmfd-history --action DECLINE       # everything the user kept
  rmfd-history --path '/var/log/%'    # events below /var/log
  rmfd-history --run <run-id>         # one invocation, in order
  rmfd-history --prune 90             # forget events older than 90 days`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code = query(cmd, o, stdout)
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVar(&o.dbPath, "db", "", "path to the history database (default: history_db from ~/.rmfd/config.yaml)")
	flags.IntVar(&o.recent, "recent", 0, "show the N most recent events")
	flags.StringVar(&o.action, "action", "", "filter by action (REMOVE, DRY_RUN, DECLINE, ERROR, SKIP)")
	flags.StringVar(&o.path, "path", "", "filter by path pattern (SQL LIKE syntax)")
	flags.StringVar(&o.run, "run", "", "show every event of one run")
	flags.BoolVar(&o.stats, "stats", false, "show statistics")
	flags.IntVar(&o.days, "days", 30, "number of days for statistics")
	flags.IntVar(&o.prune, "prune", 0, "delete events older than N days")
	flags.IntVar(&o.limit, "limit", 100, "maximum number of events for --action and --path")
	flags.BoolVar(&o.jsonOutput, "json", false, "output in JSON format")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "rmfd-history: %v\n", err)
		return exitcodes.Usage
	}
	return code
}

func query(cmd *cobra.Command, o *queryOptions, out io.Writer) int {
	stderr := cmd.ErrOrStderr()

	dbPath, err := resolveDB(o.dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitcodes.InvalidConfig
	}
	if dbPath == "" {
		fmt.Fprintln(stderr, "ERROR: no history database; pass --db or set history_db in the configuration")
		return exitcodes.InvalidConfig
	}

	db, err := history.Open(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: Failed to open database %s: %v\n", dbPath, err)
		return exitcodes.Failure
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(stderr, "ERROR: Failed to close database: %v\n", err)
		}
	}()

	switch {
	case o.prune > 0:
		n, err := db.DeleteOlderThan(o.prune)
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: Failed to prune history: %v\n", err)
			return exitcodes.Failure
		}
		fmt.Fprintf(out, "Deleted %d events older than %d days\n", n, o.prune)
		return exitcodes.Success
	case o.stats:
		return showStats(db, o, out, stderr)
	case o.recent > 0:
		records, err := db.Recent(o.recent)
		return show(records, err, "", o.jsonOutput, out, stderr)
	case o.run != "":
		records, err := db.ByRun(o.run)
		return show(records, err, fmt.Sprintf("Events of run %s", o.run), o.jsonOutput, out, stderr)
	case o.action != "":
		records, err := db.ByAction(o.action, o.limit)
		return show(records, err, fmt.Sprintf("Events with action: %s", o.action), o.jsonOutput, out, stderr)
	case o.path != "":
		records, err := db.ByPath(o.path, o.limit)
		return show(records, err, fmt.Sprintf("Events matching path pattern: %s", o.path), o.jsonOutput, out, stderr)
	default:
		fmt.Fprintln(stderr, cmd.UsageString())
		return exitcodes.Usage
	}
}

// resolveDB falls back to the history_db setting of the user's
// configuration.
func resolveDB(flagPath string) (string, error) {
	if flagPath != "" {
		return filepath.Abs(flagPath)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	cfg, err := config.LoadOrDefault(config.DefaultPath(home), home)
	if err != nil {
		return "", err
	}
	return cfg.HistoryDB, nil
}

func showStats(db *history.DB, o *queryOptions, out, stderr io.Writer) int {
	stats, err := db.Stats(o.days)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: Failed to get statistics: %v\n", err)
		return exitcodes.Failure
	}

	if o.jsonOutput {
		return writeJSON(out, stderr, stats)
	}

	fmt.Fprintf(out, "Removal Statistics (Last %d days)\n", o.days)
	fmt.Fprintf(out, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(out, "Runs:            %d\n", stats.Runs)
	fmt.Fprintf(out, "Total Removed:   %d\n", stats.TotalRemoved)
	fmt.Fprintf(out, "Total Declined:  %d\n", stats.TotalDeclined)
	fmt.Fprintf(out, "Total Skipped:   %d\n", stats.TotalSkipped)
	fmt.Fprintf(out, "Total Errors:    %d\n", stats.TotalErrors)
	fmt.Fprintf(out, "Space Freed:     %s\n", humanize.IBytes(uint64(stats.BytesRemoved)))

	if len(stats.ByAction) > 0 {
		fmt.Fprintln(out, "\nBy Action (all time):")
		actions := make([]string, 0, len(stats.ByAction))
		for a := range stats.ByAction {
			actions = append(actions, a)
		}
		sort.Strings(actions)
		for _, a := range actions {
			fmt.Fprintf(out, "  %-15s %d\n", a, stats.ByAction[a])
		}
	}
	return exitcodes.Success
}

func show(records []history.Record, err error, title string, jsonOutput bool, out, stderr io.Writer) int {
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: Query failed: %v\n", err)
		return exitcodes.Failure
	}
	if jsonOutput {
		return writeJSON(out, stderr, records)
	}
	if title != "" {
		fmt.Fprintf(out, "%s\n\n", title)
	}
	printRecords(out, records)
	return exitcodes.Success
}

func writeJSON(out, stderr io.Writer, v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitcodes.Failure
	}
	fmt.Fprintln(out, string(data))
	return exitcodes.Success
}

func printRecords(out io.Writer, records []history.Record) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tWhen\tAction\tType\tSize\tPath\tError")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t----\t----\t----\t-----")

	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, humanize.Time(r.Timestamp), r.Action, r.ObjectType,
			humanize.IBytes(uint64(max(r.Size, 0))), r.Path, r.ErrorMessage)
	}
	_ = w.Flush()
}
