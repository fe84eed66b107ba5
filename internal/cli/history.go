package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/aerocheck/aerocheck/internal/observability/receipt"
	"github.com/aerocheck/aerocheck/internal/report"
	"github.com/aerocheck/aerocheck/internal/store"
	"github.com/spf13/cobra"
)

// AEROCHECK_HISTORY supplies --history when the flag is not set
const historyEnv = "AEROCHECK_HISTORY"

type historyFlags struct {
	dsn    string
	format string
	limit  int
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	f := &historyFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse reports recorded with --history",
	}
	cmd.PersistentFlags().StringVar(&f.dsn, "history", "", "History store (sqlite://path or postgres://...); default $"+historyEnv)
	cmd.PersistentFlags().StringVar(&f.format, "format", formatText, "Output format: text or json")

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			inv := g.begin(cmd, "history.list")
			defer func() { inv.end(err) }()
			out := cmd.OutOrStdout()

			st, err := f.open(cmd, inv)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.List(inv.ctx, f.limit)
			if err != nil {
				return fail(out, f.format, err)
			}
			inv.set("records", len(records))

			if f.format == formatJSON {
				if records == nil {
					records = []store.Record{}
				}
				return writeJSON(out, records)
			}
			printHistory(out, records)
			return nil
		},
	}
	list.Flags().IntVarP(&f.limit, "limit", "n", 20, "Maximum number of reports")

	show := &cobra.Command{
		Use:   "show <report-id>",
		Short: "Print a recorded report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			inv := g.begin(cmd, "history.show")
			defer func() { inv.end(err) }()
			out := cmd.OutOrStdout()

			st, err := f.open(cmd, inv)
			if err != nil {
				return err
			}
			defer st.Close()

			env, err := st.Get(inv.ctx, args[0])
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fail(out, f.format, fmt.Errorf("report %s not found", args[0]))
				}
				return fail(out, f.format, err)
			}

			if f.format == formatJSON {
				data, err := report.FormatJSON(env)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			fmt.Fprint(out, report.FormatText(env, report.TextOptions{Color: g.color(out)}))
			return nil
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func (f *historyFlags) open(cmd *cobra.Command, inv *invocation) (*store.Store, error) {
	if err := checkFormat(f.format); err != nil {
		return nil, err
	}
	dsn := f.dsn
	if dsn == "" {
		dsn = os.Getenv(historyEnv)
	}
	if dsn == "" {
		return nil, usageErr(errors.New("no history store: pass --history or set " + historyEnv))
	}
	inv.record(receipt.WithHistory(dsn))
	inv.set("history", store.Redact(dsn))

	st, err := store.Open(inv.ctx, dsn)
	if err != nil {
		return nil, fail(cmd.OutOrStdout(), f.format, err)
	}
	return st, nil
}

func printHistory(w io.Writer, records []store.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No reports recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPORT ID\tGENERATED\tSTATUS\tSCORE\tTYPE\tCATALOG\tDOCUMENT")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s %s\t%s\n",
			r.ReportID, r.GeneratedAt.Format("2006-01-02 15:04:05Z"), r.Status, r.RiskScore,
			r.DocumentType, r.Catalog, r.CatalogVersion, r.Document)
	}
	_ = tw.Flush()
}
