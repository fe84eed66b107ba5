package cli

import (
	"context"
	"errors"
	"time"

	"github.com/aerocheck/aerocheck/internal/observability/logging"
	otelobs "github.com/aerocheck/aerocheck/internal/observability/otel"
	"github.com/aerocheck/aerocheck/internal/observability/receipt"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// invocation wraps one command run with its receipt, span and events
type invocation struct {
	ctx   context.Context
	name  string
	log   logging.Logger
	sess  *receipt.Session
	span  trace.Span
	start time.Time

	receipts []receipt.Option
	fields   map[string]any
}

func (g *globalFlags) begin(cmd *cobra.Command, name string, attrs ...attribute.KeyValue) *invocation {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	inv := &invocation{
		name:   name,
		log:    logging.From(ctx),
		sess:   receipt.Start(ctx, "aerocheck "+name, g.args),
		start:  time.Now(),
		fields: map[string]any{},
	}
	attrs = append(attrs, otelobs.AttrCommand.String(name))
	inv.ctx, inv.span = otelobs.Start(ctx, "aerocheck."+name, attrs...)
	inv.log.Event(inv.ctx, name+".start", nil)
	return inv
}

// set adds a field to the completion event
func (inv *invocation) set(key string, value any) {
	inv.fields[key] = value
}

func (inv *invocation) record(opts ...receipt.Option) {
	inv.receipts = append(inv.receipts, opts...)
}

// end closes span, event and receipt. A FAIL report is a successful run.
func (inv *invocation) end(err error) {
	runErr := err
	result := "success"
	var ee *ExitError
	if errors.As(err, &ee) && ee.Code == ExitFail {
		runErr = nil
		result = "fail"
	} else if err != nil {
		result = "error"
	}

	otelobs.End(inv.span, runErr)

	inv.fields["duration_ms"] = time.Since(inv.start).Milliseconds()
	inv.fields["result"] = result
	if runErr != nil {
		inv.fields["error_kind"] = errorKind(runErr)
	}
	inv.log.Event(inv.ctx, inv.name+".complete", inv.fields)

	if err := inv.sess.Finish(runErr, inv.receipts...); err != nil {
		inv.log.Warn("cli", "failed to write receipt", "error", err.Error())
	}
}
