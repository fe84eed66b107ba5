package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aerocheck/aerocheck/internal/observability"
	"github.com/aerocheck/aerocheck/internal/observability/logging"
	otelobs "github.com/aerocheck/aerocheck/internal/observability/otel"
	"github.com/aerocheck/aerocheck/internal/observability/receipt"
	"github.com/aerocheck/aerocheck/internal/version"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every command
type globalFlags struct {
	logFormat string
	logLevel  string
	logOutput string

	otelEnabled     bool
	otelEndpoint    string
	otelProtocol    string
	otelInsecure    bool
	otelSampleRatio float64

	receiptPath string
	receiptMode string

	noColor bool

	// raw command line, recorded in receipts
	args []string

	// closers run after the command, in reverse order
	closers []func(context.Context) error
}

// NewRootCmd builds the aerocheck command tree
func NewRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *globalFlags) {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "aerocheck",
		Short: "Compliance checks for aerospace drawings and BOMs",
		Long: `aerocheck validates drawing metadata and bills of materials against a
versioned catalog of ITAR, AS9100 and FAR rules, and reports a risk score
with an estimated cost exposure.

Exit codes: 0 PASS, 1 FAIL, 2 could not run.`,
		Version:           version.BuildVersion(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: g.setup,
	}
	root.SetVersionTemplate(fmt.Sprintf("aerocheck {{.Version}} (engine %s)\n", version.EngineVersion))

	pf := root.PersistentFlags()
	pf.StringVar(&g.logFormat, "log-format", logging.FormatPretty, "Log format: pretty, text or jsonl")
	pf.StringVar(&g.logLevel, "log-level", logging.LevelInfo, "Log level: debug, info, warn or error")
	pf.StringVar(&g.logOutput, "log-output", "stderr", "Log destination: stderr, stdout or a file path")
	pf.BoolVar(&g.otelEnabled, "otel", false, "Export OpenTelemetry traces")
	pf.StringVar(&g.otelEndpoint, "otel-endpoint", "", "OTLP endpoint (default from OTEL_EXPORTER_OTLP_ENDPOINT)")
	pf.StringVar(&g.otelProtocol, "otel-protocol", otelobs.ProtocolHTTP, "OTLP protocol: otlphttp or otlpgrpc")
	pf.BoolVar(&g.otelInsecure, "otel-insecure", false, "Disable TLS for the OTLP exporter")
	pf.Float64Var(&g.otelSampleRatio, "otel-sample-ratio", 1.0, "Trace sample ratio between 0 and 1")
	pf.StringVar(&g.receiptPath, "receipt", "", "Write an audit receipt to this path")
	pf.StringVar(&g.receiptMode, "receipt-mode", string(receipt.ModeOverwrite), "Receipt mode: overwrite or append")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable colored text output")

	root.AddCommand(
		newValidateCmd(g),
		newBatchCmd(g),
		newCatalogCmd(g),
		newDiffCmd(g),
		newHistoryCmd(g),
		newKeygenCmd(g),
		newVerifyCmd(g),
		newBundleCmd(g),
	)
	return root, g
}

// setup installs op id, logger, tracer and receipt writer into the command context
func (g *globalFlags) setup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = observability.WithOpID(ctx)

	logger, err := logging.NewLogger(logging.Config{
		Format: g.logFormat,
		Level:  g.logLevel,
		Output: g.logOutput,
	})
	if err != nil {
		return usageErr(fmt.Errorf("invalid logging options: %w", err))
	}
	g.closers = append(g.closers, func(context.Context) error { return logger.Close() })
	ctx = logging.WithLogger(ctx, logger)

	if g.otelEnabled {
		cfg := otelobs.DefaultConfig()
		cfg.Enabled = true
		cfg.Endpoint = g.otelEndpoint
		cfg.Protocol = g.otelProtocol
		cfg.Insecure = g.otelInsecure
		cfg.SampleRatio = g.otelSampleRatio

		h, err := otelobs.Init(ctx, cfg)
		if err != nil {
			return usageErr(fmt.Errorf("failed to initialize tracing: %w", err))
		}
		g.closers = append(g.closers, h.Shutdown)
		ctx = otelobs.WithHandle(ctx, h)
	}

	if g.receiptPath != "" {
		w, err := receipt.NewWriter(g.receiptPath, g.receiptMode)
		if err != nil {
			return usageErr(err)
		}
		g.closers = append(g.closers, func(context.Context) error { return w.Close() })
		ctx = receipt.WithWriter(ctx, w)
	}

	cmd.SetContext(ctx)
	return nil
}

func (g *globalFlags) cleanup() {
	for i := len(g.closers) - 1; i >= 0; i-- {
		_ = g.closers[i](context.Background())
	}
	g.closers = nil
}

func (g *globalFlags) color(w io.Writer) bool {
	if g.noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// Execute runs the root command and exits with its status
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes args and returns the process exit code
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root, g := newRoot()
	g.args = args
	defer g.cleanup()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitPass
	}

	var ee *ExitError
	if errors.As(err, &ee) {
		if ee.Err != nil && !ee.Reported {
			fmt.Fprintf(stderr, "Error: %v\n", ee.Err)
		}
		return ee.Code
	}
	// flag parsing and unknown commands
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitUsage
}
