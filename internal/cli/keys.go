package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/aerocheck/aerocheck/internal/crypto"
	"github.com/spf13/cobra"
)

const (
	defaultPrivateKeyPath = "aerocheck.key"
	defaultPublicKeyPath  = "aerocheck.pub"
	signatureSuffix       = ".sig"
)

func newKeygenCmd(g *globalFlags) *cobra.Command {
	var private, public string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 keypair for signing reports",
		Long: `Generate a new Ed25519 keypair for signing compliance reports.

  aerocheck.key: keep this secret, used by validate --sign
  aerocheck.pub: share with auditors, used by verify

Example:
  aerocheck keygen
  aerocheck keygen --private qa-signing.key --public qa-signing.pub`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			inv := g.begin(cmd, "keygen")
			defer func() { inv.end(err) }()
			out := cmd.OutOrStdout()

			for _, p := range []string{private, public} {
				if _, err := os.Stat(p); err == nil {
					return usageErr(fmt.Errorf("%s already exists (use a different path or delete it)", p))
				}
			}
			if err := crypto.GenerateKeys(private, public); err != nil {
				return fmt.Errorf("key generation failed: %w", err)
			}
			pub, err := crypto.LoadPublicKey(public)
			if err != nil {
				return err
			}
			inv.set("key_id", crypto.KeyID(pub))

			color := g.color(out)
			fmt.Fprintln(out, paintIf(color, colorGreen, "✓ Private key saved: "+private))
			fmt.Fprintln(out, paintIf(color, colorGreen, "✓ Public key saved:  "+public))
			fmt.Fprintf(out, "  Key ID: %s\n", crypto.KeyID(pub))
			fmt.Fprintln(out, paintIf(color, colorRed, "\n⚠ Keep your private key secret!"))
			return nil
		},
	}
	cmd.Flags().StringVar(&private, "private", defaultPrivateKeyPath, "Path for the private key file")
	cmd.Flags().StringVar(&public, "public", defaultPublicKeyPath, "Path for the public key file")
	return cmd
}

// VerifyOutput is the JSON shape of verify
type VerifyOutput struct {
	Report   string `json:"report"`
	Valid    bool   `json:"valid"`
	KeyID    string `json:"key_id,omitempty"`
	ReportID string `json:"report_id,omitempty"`
	Digest   string `json:"digest,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func newVerifyCmd(g *globalFlags) *cobra.Command {
	var signature, key, format string
	cmd := &cobra.Command{
		Use:   "verify <report.json>",
		Short: "Verify a signed compliance report",
		Long: `Verify checks that a JSON report matches the signature written by
validate --sign. Whitespace and key order do not matter; any change to a
value does.

Exit codes: 0 valid, 1 tampered or signed by another key, 2 unreadable input.

Example:
  aerocheck verify report.json --key aerocheck.pub
  aerocheck verify report.json --signature evidence/report.sig --key qa.pub`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			inv := g.begin(cmd, "verify")
			defer func() { inv.end(err) }()
			out := cmd.OutOrStdout()

			if err := checkFormat(format); err != nil {
				return err
			}
			if signature == "" {
				signature = args[0] + signatureSuffix
			}
			reportData, err := os.ReadFile(args[0])
			if err != nil {
				return fail(out, format, fmt.Errorf("failed to read report: %w", err))
			}
			sigData, err := os.ReadFile(signature)
			if err != nil {
				return fail(out, format, fmt.Errorf("failed to read signature: %w", err))
			}

			result := VerifyOutput{Report: args[0]}
			env, err := crypto.VerifyReport(reportData, sigData, key)
			switch {
			case errors.Is(err, crypto.ErrTampered), errors.Is(err, crypto.ErrWrongKey):
				result.Reason = err.Error()
			case err != nil:
				return fail(out, format, err)
			default:
				result.Valid = true
			}
			if env != nil {
				result.KeyID, result.ReportID, result.Digest = env.Header.KeyID, env.Header.ReportID, env.Header.Digest
			}
			inv.set("valid", result.Valid)

			if format == formatJSON {
				if err := writeJSON(out, result); err != nil {
					return err
				}
			} else {
				color := g.color(out)
				if result.Valid {
					fmt.Fprintln(out, paintIf(color, colorGreen, "✅ Signature verified"))
					fmt.Fprintf(out, "  Report: %s (%s)\n  Key ID: %s\n", result.ReportID, result.Digest, result.KeyID)
				} else {
					fmt.Fprintln(out, paintIf(color, colorRed, "❌ TAMPER DETECTED: "+result.Reason))
				}
			}

			if !result.Valid {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&signature, "signature", "s", "", "Signature file (default <report>.sig)")
	cmd.Flags().StringVarP(&key, "key", "k", defaultPublicKeyPath, "Public key")
	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text or json")
	return cmd
}

// signReport writes <reportPath>.sig next to an already written report
func signReport(reportPath string, reportJSON []byte, keyPath string) (string, error) {
	sig, err := crypto.SignReport(reportJSON, keyPath)
	if err != nil {
		return "", fmt.Errorf("signing failed: %w", err)
	}
	sigPath := reportPath + signatureSuffix
	if err := os.WriteFile(sigPath, sig, 0644); err != nil {
		return "", fmt.Errorf("failed to write signature: %w", err)
	}
	return sigPath, nil
}
