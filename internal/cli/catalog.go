package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aerocheck/aerocheck/internal/catalog"
	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/aerocheck/aerocheck/internal/observability/receipt"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const formatMarkdown = "markdown"

type catalogFlags struct {
	catalog string
	preset  string
	format  string
}

func newCatalogCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and lint rule catalogs",
	}
	cmd.AddCommand(
		newCatalogListCmd(g),
		newCatalogShowCmd(g),
		newCatalogLintCmd(g),
		newCatalogPresetsCmd(),
	)
	return cmd
}

func (f *catalogFlags) bind(cmd *cobra.Command, formats string) {
	cmd.Flags().StringVar(&f.catalog, "catalog", "", "Rule catalog: file path, preset:<name>, oci://<ref> or https:// URL")
	cmd.Flags().StringVar(&f.preset, "preset", "", "Built-in rule catalog name")
	cmd.Flags().StringVar(&f.format, "format", formatText, "Output format: "+formats)
}

// CatalogListOutput is the JSON shape of catalog list
type CatalogListOutput struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Source  string            `json:"source"`
	SHA256  string            `json:"sha256"`
	Rules   []models.RuleSpec `json:"rules"`
}

func newCatalogListCmd(g *globalFlags) *cobra.Command {
	f := &catalogFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rules of a catalog in evaluation order",
		Long: `List prints every rule of the selected catalog, ordered by standard and id.
Markdown output is suitable for compliance documentation.

Examples:
  aerocheck catalog list
  aerocheck catalog list --preset itar-only --format json
  aerocheck catalog list --catalog ./rules.yaml --format markdown > RULES.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			inv := g.begin(cmd, "catalog.list")
			defer func() { inv.end(err) }()
			out := cmd.OutOrStdout()

			if f.format != formatText && f.format != formatJSON && f.format != formatMarkdown {
				return usageErr(fmt.Errorf("invalid format: %s (use text, json or markdown)", f.format))
			}
			src, err := catalogSource(f.catalog, f.preset)
			if err != nil {
				return err
			}
			c, ref, err := catalog.Load(inv.ctx, src)
			if err != nil {
				return fail(out, f.format, err)
			}
			inv.record(receipt.WithCatalog(receipt.CatalogRef{Name: c.Name(), Version: c.Version(), Source: ref.String(), SHA256: ref.SHA256}))
			inv.set("rules", c.Len())

			switch f.format {
			case formatJSON:
				listing := CatalogListOutput{Name: c.Name(), Version: c.Version(), Source: ref.String(), SHA256: ref.SHA256}
				for _, r := range c.Rules() {
					listing.Rules = append(listing.Rules, r.Spec)
				}
				return writeJSON(out, listing)
			case formatMarkdown:
				writeCatalogMarkdown(out, c, ref)
			default:
				writeCatalogTable(out, c, ref)
			}
			return nil
		},
	}
	f.bind(cmd, "text, json or markdown")
	return cmd
}

func writeCatalogTable(w io.Writer, c *catalog.Catalog, ref catalog.SourceRef) {
	fmt.Fprintf(w, "%s %s (%s, %d rules)\n\n", c.Name(), c.Version(), ref, c.Len())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTANDARD\tSEVERITY\tAPPLIES TO\tCHECK\tCOST")
	for _, r := range c.Rules() {
		s := r.Spec
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Standard, s.Severity, appliesTo(s), predicateSummary(s.Predicate), costRange(s.CostRange))
	}
	_ = tw.Flush()
}

func writeCatalogMarkdown(w io.Writer, c *catalog.Catalog, ref catalog.SourceRef) {
	fmt.Fprintf(w, "# Rule catalog: %s %s\n\n", c.Name(), c.Version())
	fmt.Fprintf(w, "**Source**: `%s`\n\n", ref)
	fmt.Fprintln(w, "| Rule | Standard | Severity | Applies to | Check | Cost impact | Reference | Fix |")
	fmt.Fprintln(w, "|------|----------|----------|------------|-------|-------------|-----------|-----|")
	for _, r := range c.Rules() {
		s := r.Spec
		reference := s.Reference
		if reference == "" {
			reference = "-"
		}
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			s.ID, s.Standard, s.Severity, appliesTo(s), mdEscape(predicateSummary(s.Predicate)),
			costRange(s.CostRange), mdEscape(reference), mdEscape(s.Fix))
	}
	fmt.Fprintln(w)
}

func appliesTo(s models.RuleSpec) string {
	types := make([]string, len(s.AppliesTo))
	for i, t := range s.AppliesTo {
		types[i] = string(t)
	}
	return strings.Join(types, ",")
}

// predicateSummary is a one-line description of a check
func predicateSummary(p models.PredicateSpec) string {
	switch p.Kind {
	case models.PredicatePresence:
		if len(p.Keywords)+len(p.Patterns) > 0 {
			return fmt.Sprintf("presence %s (%d markers)", p.Field, len(p.Keywords)+len(p.Patterns))
		}
		return "presence " + p.Field
	case models.PredicatePattern:
		return fmt.Sprintf("pattern %s (%d patterns)", p.Field, len(p.Patterns))
	case models.PredicateMembership:
		return fmt.Sprintf("%s-list %s (%d values)", p.Mode, p.Field, len(p.Values))
	case models.PredicateCrossField:
		if p.When != nil && p.Require != nil {
			return fmt.Sprintf("%s requires %s", p.When.Field, p.Require.Field)
		}
		return "cross_field"
	case models.PredicateCEL:
		return "cel " + truncate(strings.Join(strings.Fields(p.Expr), " "), 48)
	default:
		return string(p.Kind)
	}
}

func costRange(c models.CostRange) string {
	return fmt.Sprintf("%d-%d", c.Min, c.Max)
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func newCatalogShowCmd(g *globalFlags) *cobra.Command {
	f := &catalogFlags{}
	cmd := &cobra.Command{
		Use:   "show <rule-id>",
		Short: "Show one rule as configured",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			inv := g.begin(cmd, "catalog.show")
			defer func() { inv.end(err) }()
			out := cmd.OutOrStdout()

			if err := checkFormat(f.format); err != nil {
				return err
			}
			src, err := catalogSource(f.catalog, f.preset)
			if err != nil {
				return err
			}
			c, _, err := catalog.Load(inv.ctx, src)
			if err != nil {
				return fail(out, f.format, err)
			}
			rule, ok := c.Rule(args[0])
			if !ok {
				return fail(out, f.format, fmt.Errorf("rule %q not found in %s %s", args[0], c.Name(), c.Version()))
			}

			if f.format == formatJSON {
				return writeJSON(out, rule.Spec)
			}
			data, err := yaml.Marshal(rule.Spec)
			if err != nil {
				return fmt.Errorf("failed to encode rule: %w", err)
			}
			_, err = out.Write(data)
			return err
		},
	}
	f.bind(cmd, "text (YAML) or json")
	return cmd
}

// LintOutput is the JSON shape of catalog lint
type LintOutput struct {
	Source   string   `json:"source"`
	Valid    bool     `json:"valid"`
	Name     string   `json:"name,omitempty"`
	Version  string   `json:"version,omitempty"`
	Rules    int      `json:"rules,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

func newCatalogLintCmd(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "lint <source>",
		Short: "Check a catalog for every configuration problem",
		Long: `Lint loads a catalog and reports all problems at once: schema violations,
duplicate ids, invalid cost ranges, bad regular expressions or CEL, and
unsupported engine versions.

Exit codes: 0 valid, 1 invalid, 2 the catalog could not be read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			inv := g.begin(cmd, "catalog.lint")
			defer func() { inv.end(err) }()
			out := cmd.OutOrStdout()

			if err := checkFormat(format); err != nil {
				return err
			}
			result := LintOutput{Source: args[0]}
			c, ref, err := catalog.Load(inv.ctx, args[0])
			var ce *models.CatalogError
			switch {
			case errors.As(err, &ce):
				result.Problems = ce.Problems
			case err != nil:
				return fail(out, format, err)
			default:
				result.Valid = true
				result.Source = ref.String()
				result.Name, result.Version, result.Rules = c.Name(), c.Version(), c.Len()
			}
			inv.set("valid", result.Valid)
			inv.set("problems", len(result.Problems))

			if format == formatJSON {
				if err := writeJSON(out, result); err != nil {
					return err
				}
			} else if result.Valid {
				fmt.Fprintf(out, "✓ %s: %s %s, %d rules\n", result.Source, result.Name, result.Version, result.Rules)
			} else {
				fmt.Fprintf(out, "✗ %s: %d problem(s)\n", result.Source, len(result.Problems))
				for _, p := range result.Problems {
					fmt.Fprintf(out, "  - %s\n", p)
				}
			}

			if !result.Valid {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text or json")
	return cmd
}

func newCatalogPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List built-in catalogs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range catalog.ListPresetNames() {
				c := catalog.GetPreset(name)
				if c == nil {
					continue
				}
				marker := " "
				if name == catalog.DefaultPreset {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-12s %s %s (%d rules)\n", marker, name, c.Name(), c.Version(), c.Len())
			}
			return nil
		},
	}
}
