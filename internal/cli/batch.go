package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aerocheck/aerocheck/internal/extract"
	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/aerocheck/aerocheck/internal/observability/receipt"
	"github.com/aerocheck/aerocheck/internal/report"
	"github.com/aerocheck/aerocheck/internal/service"
	"github.com/spf13/cobra"
)

type batchFlags struct {
	kind        string
	catalog     string
	preset      string
	format      string
	history     string
	concurrency int
}

// BatchOutput is the JSON shape of a batch run
type BatchOutput struct {
	Catalog string          `json:"catalog"`
	Summary BatchSummary    `json:"summary"`
	Results []BatchDocument `json:"results"`
}

type BatchSummary struct {
	Documents int `json:"documents"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Errored   int `json:"errored"`
}

// BatchDocument holds either a report or the failure that prevented one
type BatchDocument struct {
	Document string           `json:"document"`
	Report   *report.Envelope `json:"report,omitempty"`
	Error    *FailureDetail   `json:"error,omitempty"`
}

func newBatchCmd(g *globalFlags) *cobra.Command {
	f := &batchFlags{}
	cmd := &cobra.Command{
		Use:   "batch <dir|file>...",
		Short: "Validate many documents concurrently",
		Long: `Batch validates every supported document under the given files and
directories against one catalog. Directories are walked recursively; hidden
entries and unsupported extensions are skipped.

Exit codes: 0 all PASS, 1 at least one FAIL, 2 at least one document could
not be processed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, g, f, args)
		},
	}
	cmd.Flags().StringVar(&f.kind, "type", "", "Force input type for every document: drawing, bom or facts")
	cmd.Flags().StringVar(&f.catalog, "catalog", "", "Rule catalog: file path, preset:<name>, oci://<ref> or https:// URL")
	cmd.Flags().StringVar(&f.preset, "preset", "", "Built-in rule catalog name")
	cmd.Flags().StringVar(&f.format, "format", formatText, "Output format: text or json")
	cmd.Flags().StringVar(&f.history, "history", "", "Record every report in a history store")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "j", service.DefaultConcurrency, "Documents validated in parallel")
	return cmd
}

func runBatch(cmd *cobra.Command, g *globalFlags, f *batchFlags, args []string) (err error) {
	inv := g.begin(cmd, "batch")
	defer func() { inv.end(err) }()
	ctx := inv.ctx
	out := cmd.OutOrStdout()

	if err := checkFormat(f.format); err != nil {
		return err
	}
	if f.concurrency < 1 {
		return usageErr(fmt.Errorf("--concurrency must be at least 1"))
	}
	kind, err := extract.ParseKind(f.kind)
	if err != nil {
		return usageErr(err)
	}
	src, err := catalogSource(f.catalog, f.preset)
	if err != nil {
		return err
	}

	paths, err := service.Expand(args)
	if err != nil {
		return fail(out, f.format, err)
	}
	if len(paths) == 0 {
		return fail(out, f.format, errors.New("no supported documents found"))
	}

	svc, err := service.Open(ctx, src)
	if err != nil {
		return fail(out, f.format, err)
	}
	cat, ref := svc.Catalog()
	inv.record(receipt.WithCatalog(receipt.CatalogRef{Name: cat.Name(), Version: cat.Version(), Source: ref.String(), SHA256: ref.SHA256}))

	outcomes, err := svc.ValidateBatch(ctx, paths, service.BatchOptions{Kind: kind, Concurrency: f.concurrency})
	if err != nil {
		return fail(out, f.format, err)
	}

	result := BatchOutput{Catalog: fmt.Sprintf("%s %s", cat.Name(), cat.Version())}
	var issued []*report.Envelope
	for _, o := range outcomes {
		doc := BatchDocument{Document: o.Document, Report: o.Envelope}
		switch {
		case o.Err != nil:
			doc.Error = &FailureDetail{Kind: errorKind(o.Err), Message: o.Err.Error()}
			result.Summary.Errored++
		case o.Envelope.Status == models.StatusFail:
			result.Summary.Failed++
			issued = append(issued, o.Envelope)
		default:
			result.Summary.Passed++
			issued = append(issued, o.Envelope)
		}
		result.Results = append(result.Results, doc)
	}
	result.Summary.Documents = len(outcomes)

	inv.record(receipt.WithBatch(receipt.BatchSummary(result.Summary)))
	inv.set("documents", result.Summary.Documents)
	inv.set("failed", result.Summary.Failed)
	inv.set("errored", result.Summary.Errored)

	if f.format == formatJSON {
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		printBatch(out, result, g.color(out))
	}

	if f.history != "" && len(issued) > 0 {
		inv.record(receipt.WithHistory(f.history))
		if err := saveHistory(ctx, f.history, issued...); err != nil {
			return historyErr(err, issued...)
		}
	}

	switch {
	case result.Summary.Errored > 0:
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("%d document(s) could not be processed", result.Summary.Errored), Reported: true}
	case result.Summary.Failed > 0:
		return errFailed
	default:
		return nil
	}
}

func printBatch(w io.Writer, result BatchOutput, color bool) {
	fmt.Fprintf(w, "Catalog: %s\n\n", result.Catalog)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tSCORE\tFINDINGS\tDOCUMENT")
	for _, r := range result.Results {
		switch {
		case r.Error != nil:
			fmt.Fprintf(tw, "%s\t-\t-\t%s (%s)\n", paintIf(color, colorYellow, "ERROR"), r.Document, r.Error.Message)
		case r.Report.Status == models.StatusFail:
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", paintIf(color, colorRed, "FAIL"), r.Report.RiskScore, len(r.Report.RuleIDs()), r.Document)
		default:
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", paintIf(color, colorGreen, "PASS"), r.Report.RiskScore, len(r.Report.RuleIDs()), r.Document)
		}
	}
	_ = tw.Flush()

	s := result.Summary
	fmt.Fprintf(w, "\n%d documents: %d passed, %d failed, %d errored\n", s.Documents, s.Passed, s.Failed, s.Errored)
}
