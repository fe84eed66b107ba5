package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/aerocheck/aerocheck/internal/differ"
	"github.com/spf13/cobra"
)

// --fail-on values
const (
	failOnAny      = "any"
	failOnCritical = "critical"
	failOnNone     = "none"
)

type diffFlags struct {
	format string
	failOn string
}

func newDiffCmd(g *globalFlags) *cobra.Command {
	f := &diffFlags{}
	cmd := &cobra.Command{
		Use:   "diff <old-report.json> <new-report.json>",
		Short: "Compare two compliance reports",
		Long: `Diff compares two JSON reports and explains what changed in plain terms:
new and resolved findings, status and risk score movement, and the change
in estimated cost exposure. Report ids and timestamps are ignored.

Exit codes: 0 no changes (or below --fail-on), 1 changes detected, 2 a
report could not be read.

Examples:
  aerocheck diff rev-b.json rev-c.json
  aerocheck diff baseline.json current.json --fail-on critical`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			inv := g.begin(cmd, "diff")
			defer func() { inv.end(err) }()
			out := cmd.OutOrStdout()

			if err := checkFormat(f.format); err != nil {
				return err
			}
			switch f.failOn {
			case failOnAny, failOnCritical, failOnNone:
			default:
				return usageErr(fmt.Errorf("invalid --fail-on: %s (use any, critical or none)", f.failOn))
			}

			oldData, err := os.ReadFile(args[0])
			if err != nil {
				return fail(out, f.format, fmt.Errorf("failed to read old report: %w", err))
			}
			newData, err := os.ReadFile(args[1])
			if err != nil {
				return fail(out, f.format, fmt.Errorf("failed to read new report: %w", err))
			}

			result, err := differ.CompareJSON(oldData, newData)
			if err != nil {
				return fail(out, f.format, err)
			}
			worst := differ.Worst(result.Changes)
			inv.set("changes", len(result.Changes))
			inv.set("worst", differ.SeverityString(worst))

			if f.format == formatJSON {
				if err := writeJSON(out, result); err != nil {
					return err
				}
			} else {
				printDiff(out, result, g.color(out))
			}

			if !result.HasChanges {
				return nil
			}
			if f.failOn == failOnAny || (f.failOn == failOnCritical && worst == differ.SeverityCritical) {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.format, "format", formatText, "Output format: text or json")
	cmd.Flags().StringVar(&f.failOn, "fail-on", failOnAny, "Exit 1 on: any change, critical changes, or none")
	return cmd
}

func printDiff(w io.Writer, result *differ.Result, color bool) {
	if !result.HasChanges {
		fmt.Fprintln(w, paintIf(color, colorGreen, "✓ No changes detected - reports are equivalent"))
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, paintIf(color, colorYellow, "╔══════════════════════════════════════╗"))
	fmt.Fprintln(w, paintIf(color, colorYellow, "║         CHANGES DETECTED             ║"))
	fmt.Fprintln(w, paintIf(color, colorYellow, "╚══════════════════════════════════════╝"))
	fmt.Fprintln(w)

	for _, c := range result.Changes {
		fmt.Fprintf(w, "%s %s\n", paintIf(color, getColorForSeverity(c.Severity), changeIcon(c.Type)), c.Message)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d change(s), worst: %s\n", len(result.Changes), differ.SeverityString(differ.Worst(result.Changes)))
}

func changeIcon(t differ.ChangeType) string {
	switch t {
	case differ.ChangeNewFinding:
		return "[+]"
	case differ.ChangeResolvedFinding:
		return "[-]"
	default:
		return "[~]"
	}
}

func getColorForSeverity(severity differ.SeverityLevel) string {
	switch severity {
	case differ.SeverityCritical:
		return colorRed
	case differ.SeverityModerate:
		return colorYellow
	case differ.SeveritySafe:
		return colorGreen
	default:
		return colorReset
	}
}
