package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/aerocheck/aerocheck/internal/observability"
)

// MaxErrorLength caps error strings in receipts
const MaxErrorLength = 2048

type writerKey struct{}

// WithWriter makes every session started under ctx write its receipt to w
func WithWriter(ctx context.Context, w Writer) context.Context {
	return context.WithValue(ctx, writerKey{}, w)
}

func writerFrom(ctx context.Context) Writer {
	w, _ := ctx.Value(writerKey{}).(Writer)
	return w
}

// Session tracks one command execution
type Session struct {
	ctx     context.Context
	start   time.Time
	command string
	args    []string
}

// Start a session; Finish writes the receipt if a writer is in ctx
func Start(ctx context.Context, cmd string, args []string) *Session {
	return &Session{
		ctx:     ctx,
		start:   time.Now(),
		command: cmd,
		args:    args,
	}
}

// Option fills a receipt section
type Option func(*Receipt)

// WithCatalog records the catalog in effect
func WithCatalog(ref CatalogRef) Option {
	return func(r *Receipt) {
		if ref.Name == "" && ref.Source == "" {
			return
		}
		r.Catalog = &ref
	}
}

// WithDocument records the input path and, if readable, its SHA-256
func WithDocument(path, docType string) Option {
	return func(r *Receipt) {
		if path == "" {
			return
		}
		ref := &DocumentRef{Path: path, Type: docType}
		if hash, err := computeSHA256(path); err == nil {
			ref.SHA256 = hash
		}
		r.Document = ref
	}
}

// WithValidation records the issued report
func WithValidation(v ValidationSummary) Option {
	return func(r *Receipt) {
		r.Validation = &v
	}
}

// WithBatch records batch counts
func WithBatch(b BatchSummary) Option {
	return func(r *Receipt) {
		r.Batch = &b
	}
}

// WithHistory records the history store, password removed
func WithHistory(dsn string) Option {
	return func(r *Receipt) {
		r.History = RedactURL(dsn)
	}
}

// Finish writes the receipt. Without a writer in ctx it does nothing.
func (s *Session) Finish(err error, opts ...Option) error {
	w := writerFrom(s.ctx)
	if w == nil {
		return nil
	}

	args, redacted := RedactArgs(s.args)
	r := Receipt{
		SchemaVersion: ReceiptSchemaVersion,
		OpID:          observability.OpID(s.ctx),
		TsStart:       s.start.UTC().Format(time.RFC3339Nano),
		TsEnd:         time.Now().UTC().Format(time.RFC3339Nano),
		Command:       s.command,
		Args:          args,
		ArgsRedacted:  redacted,
		Result:        Result{Status: "success"},
	}
	if err != nil {
		r.Result = Result{Status: "fail", Error: truncateError(err.Error())}
	}

	for _, opt := range opts {
		opt(&r)
	}
	return w.Write(r)
}

func computeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func truncateError(s string) string {
	if len(s) <= MaxErrorLength {
		return s
	}
	return s[:MaxErrorLength-3] + "..."
}
