package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/aerocheck/aerocheck/internal/bundler"
	"github.com/aerocheck/aerocheck/internal/catalog"
	"github.com/aerocheck/aerocheck/internal/crypto"
	"github.com/aerocheck/aerocheck/internal/differ"
	"github.com/spf13/cobra"
)

const defaultBundlePath = "evidence.zip"

type bundleFlags struct {
	output        string
	signature     string
	key           string
	noCatalog     bool
	allowUnsigned bool
}

func newBundleCmd(g *globalFlags) *cobra.Command {
	f := &bundleFlags{}
	cmd := &cobra.Command{
		Use:   "bundle <report.json>",
		Short: "Package a report and its evidence into a deterministic ZIP",
		Long: `Bundle packages a JSON report for auditors:

  manifest.json     report identity and the sha256 of every file
  catalog.yaml      the exact rule catalog the report was issued against
  public.key        verification key (with --key)
  report.json       the report
  report.json.sig   its signature (from validate --sign)
  README.txt        findings summary

Identical inputs produce byte-identical bundles. The catalog is re-fetched
from the report's catalog source and must match the recorded sha256.

Example:
  aerocheck bundle bracket.json --key aerocheck.pub -o bracket-evidence.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			inv := g.begin(cmd, "bundle")
			defer func() { inv.end(err) }()
			out := cmd.OutOrStdout()

			reportPath := args[0]
			reportData, err := os.ReadFile(reportPath)
			if err != nil {
				return usageErr(fmt.Errorf("failed to read report: %w", err))
			}
			env, err := differ.Parse(reportData)
			if err != nil {
				return usageErr(err)
			}
			contents := bundler.Contents{Report: reportData}

			sigPath := f.signature
			if sigPath == "" {
				sigPath = reportPath + signatureSuffix
			}
			contents.Signature, err = os.ReadFile(sigPath)
			switch {
			case errors.Is(err, fs.ErrNotExist) && f.allowUnsigned:
				contents.Signature = nil
			case err != nil:
				return usageErr(fmt.Errorf("signature not found at %s: sign with validate --sign or pass --allow-unsigned", sigPath))
			}

			if f.key != "" {
				contents.PublicKey, err = os.ReadFile(f.key)
				if err != nil {
					return usageErr(fmt.Errorf("failed to read public key: %w", err))
				}
				if contents.Signature != nil {
					if _, err := crypto.VerifyReport(reportData, contents.Signature, f.key); err != nil {
						return usageErr(fmt.Errorf("refusing to bundle: %w", err))
					}
				}
			}

			if !f.noCatalog {
				contents.Catalog, err = catalogEvidence(cmd, env.Metadata.CatalogSource, env.Metadata.CatalogSHA256)
				if err != nil {
					return usageErr(err)
				}
			}

			manifest := bundler.GenerateManifest(env, contents)
			if err := bundler.CreateBundle(f.output, contents, bundler.Readme(env, manifest), manifest); err != nil {
				return fmt.Errorf("bundle creation failed: %w", err)
			}
			inv.set("bundle", f.output)
			inv.set("signed", manifest.Signed)

			fmt.Fprintln(out, paintIf(g.color(out), colorGreen, "✓ Bundle created: "+f.output))
			fmt.Fprintln(out, "\nBundle contents:")
			fmt.Fprintln(out, "  • manifest.json")
			for _, file := range manifest.Files {
				fmt.Fprintf(out, "  • %s\n", file.Name)
			}
			fmt.Fprintln(out, "  • README.txt")
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", defaultBundlePath, "Path for the output ZIP file")
	cmd.Flags().StringVarP(&f.signature, "signature", "s", "", "Signature file (default <report>.sig)")
	cmd.Flags().StringVarP(&f.key, "key", "k", "", "Public key to include; the signature is verified against it")
	cmd.Flags().BoolVar(&f.noCatalog, "no-catalog", false, "Do not include the rule catalog")
	cmd.Flags().BoolVar(&f.allowUnsigned, "allow-unsigned", false, "Bundle a report that has no signature")
	return cmd
}

// catalogEvidence re-fetches the catalog a report names and checks it is
// the same document the report was issued against
func catalogEvidence(cmd *cobra.Command, source, wantSHA string) ([]byte, error) {
	if source == "" {
		return nil, fmt.Errorf("report does not record its catalog source (use --no-catalog)")
	}
	data, ref, err := catalog.Fetch(cmd.Context(), source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog %s: %w", source, err)
	}
	if wantSHA != "" && ref.SHA256 != wantSHA {
		return nil, fmt.Errorf("catalog %s has changed since the report was issued (sha256 %s, report has %s)", source, ref.SHA256, wantSHA)
	}
	return data, nil
}
