package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/aerocheck/aerocheck/internal/extract"
	otelobs "github.com/aerocheck/aerocheck/internal/observability/otel"
	"github.com/aerocheck/aerocheck/internal/observability/receipt"
	"github.com/aerocheck/aerocheck/internal/report"
	"github.com/aerocheck/aerocheck/internal/service"
	"github.com/aerocheck/aerocheck/internal/store"
	"github.com/spf13/cobra"
)

type validateFlags struct {
	kind    string
	catalog string
	preset  string
	format  string
	history string
	out     string
	sign    string
}

func newValidateCmd(g *globalFlags) *cobra.Command {
	f := &validateFlags{}
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate one drawing, BOM or facts document",
		Long: `Validate extracts facts from a document and checks them against the rule
catalog. The input type is inferred from the extension (.txt drawing, .csv
BOM, .json/.yaml facts) unless --type is given.

Exit codes: 0 PASS, 1 FAIL, 2 the document or catalog could not be processed.

Examples:
  aerocheck validate bracket-rev-c.txt
  aerocheck validate assembly-bom.csv --format json --history sqlite://./history.db
  aerocheck validate facts.yaml --catalog oci://registry.example.com/rules/aero:1.2.0
  aerocheck validate bracket-rev-c.txt --out bracket.json --sign aerocheck.key`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, g, f, args[0])
		},
	}
	cmd.Flags().StringVar(&f.kind, "type", "", "Input type: drawing, bom or facts (default: by extension)")
	cmd.Flags().StringVar(&f.catalog, "catalog", "", "Rule catalog: file path, preset:<name>, oci://<ref> or https:// URL")
	cmd.Flags().StringVar(&f.preset, "preset", "", "Built-in rule catalog name (aerospace, itar-only)")
	cmd.Flags().StringVar(&f.format, "format", formatText, "Output format: text or json")
	cmd.Flags().StringVar(&f.history, "history", "", "Record the report in a history store (sqlite://path or postgres://...)")
	cmd.Flags().StringVar(&f.out, "out", "", "Also write the JSON report to this file")
	cmd.Flags().StringVar(&f.sign, "sign", "", "Sign the --out report with this private key, writing <out>.sig")
	return cmd
}

func runValidate(cmd *cobra.Command, g *globalFlags, f *validateFlags, path string) (err error) {
	inv := g.begin(cmd, "validate", otelobs.AttrDocument.String(path))
	defer func() { inv.end(err) }()
	ctx := inv.ctx
	out := cmd.OutOrStdout()

	if err := checkFormat(f.format); err != nil {
		return err
	}
	if f.sign != "" && f.out == "" {
		return usageErr(fmt.Errorf("--sign requires --out"))
	}
	kind, err := extract.ParseKind(f.kind)
	if err != nil {
		return usageErr(err)
	}
	src, err := catalogSource(f.catalog, f.preset)
	if err != nil {
		return err
	}

	svc, err := service.Open(ctx, src)
	if err != nil {
		return fail(out, f.format, err)
	}
	cat, ref := svc.Catalog()
	inv.record(receipt.WithCatalog(receipt.CatalogRef{
		Name:    cat.Name(),
		Version: cat.Version(),
		Source:  ref.String(),
		SHA256:  ref.SHA256,
	}))

	env, err := svc.ValidateFile(ctx, path, kind)
	if err != nil {
		inv.record(receipt.WithDocument(path, string(kind)))
		return fail(out, f.format, err)
	}
	inv.record(
		receipt.WithDocument(path, env.Metadata.DocumentType),
		receipt.WithValidation(validationSummary(env)),
	)
	inv.set("status", string(env.Status))
	inv.set("risk_score", env.RiskScore)
	inv.set("report_id", env.Metadata.ReportID)
	inv.span.SetAttributes(
		otelobs.AttrDocumentType.String(env.Metadata.DocumentType),
		otelobs.AttrStatus.String(string(env.Status)),
		otelobs.AttrRiskScore.Int(env.RiskScore),
		otelobs.AttrCatalog.String(cat.Name()+" "+cat.Version()),
		otelobs.AttrViolations.Int(len(env.Violations)),
	)

	data, err := report.FormatJSON(env)
	if err != nil {
		return fail(out, f.format, err)
	}
	if f.out != "" {
		if err := os.WriteFile(f.out, append(data, '\n'), 0644); err != nil {
			return fail(out, f.format, fmt.Errorf("failed to write report: %w", err))
		}
	}
	if f.sign != "" {
		sigPath, err := signReport(f.out, data, f.sign)
		if err != nil {
			return fail(out, f.format, err)
		}
		inv.set("signature", sigPath)
	}

	if f.format == formatJSON {
		fmt.Fprintln(out, string(data))
	} else {
		fmt.Fprint(out, report.FormatText(env, report.TextOptions{Color: g.color(out)}))
	}

	// the report is already out; a history failure must not hide it
	if f.history != "" {
		inv.record(receipt.WithHistory(f.history))
		if err := saveHistory(ctx, f.history, env); err != nil {
			return historyErr(err, env)
		}
	}

	if env.Blocking() {
		return errFailed
	}
	return nil
}

// historyErr reports a failed history write after the reports were printed
func historyErr(err error, envs ...*report.Envelope) error {
	return &ExitError{Code: ExitUsage, Err: fmt.Errorf("%d report(s) issued but not recorded: %w", len(envs), err)}
}

func saveHistory(ctx context.Context, dsn string, envs ...*report.Envelope) error {
	st, err := store.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.Close()
	for _, env := range envs {
		if err := st.Save(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

func validationSummary(env *report.Envelope) receipt.ValidationSummary {
	v := receipt.ValidationSummary{
		ReportID:  env.Metadata.ReportID,
		Status:    string(env.Status),
		RiskScore: env.RiskScore,
		Digest:    env.Metadata.Digest,
	}
	for _, f := range env.Violations {
		v.Violations = append(v.Violations, f.Rule)
	}
	for _, f := range env.Warnings {
		v.Warnings = append(v.Warnings, f.Rule)
	}
	return v
}
