package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openquant/tradebatch/pkg/results"
)

var resultsCmd = &cobra.Command{
	Use:   "results [symbol] [date]",
	Short: "Aggregate outcome records",
	Long: `Scan the result store for outcome records. Symbol and date accept
glob patterns and default to everything. Every attempt is listed, including
repeated runs for the same symbol/date; a malformed record file is reported
in place without aborting the scan.

Example:
  tradebatch results AAPL
  tradebatch results '*' 2024-01-*`,
	Args: cobra.MaximumNArgs(2),
	RunE: runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)

	resultsCmd.Flags().Bool("json", false, "Output as JSON")
}

// resultRow is the JSON shape emitted per scanned record.
type resultRow struct {
	Path    string          `json:"path"`
	Variant results.Variant `json:"variant"`
	Record  *results.Record `json:"record,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func runResults(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	symbolPat, datePat := "", ""
	if len(args) > 0 {
		symbolPat = args[0]
	}
	if len(args) > 1 {
		datePat = args[1]
	}

	store := results.NewStore(cfg.ResultsDir)
	seq, err := store.Collect(symbolPat, datePat)
	if err != nil {
		if errors.Is(err, results.ErrNoRecords) {
			_, _ = fmt.Fprintln(os.Stdout, "No results found")
			return nil
		}
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		for e := range seq {
			row := resultRow{Path: e.Path, Variant: e.Variant, Record: e.Record}
			if e.Err != nil {
				row.Error = e.Err.Error()
			}
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "SYMBOL\tDATE\tVARIANT\tJOB ID\tDECISION / ERROR")
	for e := range seq {
		if e.Err != nil {
			_, _ = fmt.Fprintf(w, "-\t-\tmalformed\t-\t%s: %v\n", e.Path, e.Err)
			continue
		}
		detail := e.Record.Decision
		if e.Variant == results.VariantFailure {
			detail = e.Record.Error
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Record.Symbol, e.Record.Date, e.Variant, e.Record.JobID, detail)
	}
	return nil
}
