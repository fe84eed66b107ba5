// Package service runs validations against the published rule catalog.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aerocheck/aerocheck/internal/catalog"
	"github.com/aerocheck/aerocheck/internal/engine"
	"github.com/aerocheck/aerocheck/internal/extract"
	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/aerocheck/aerocheck/internal/observability/logging"
	otelobs "github.com/aerocheck/aerocheck/internal/observability/otel"
	"github.com/aerocheck/aerocheck/internal/report"
	"github.com/aerocheck/aerocheck/internal/scorer"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds batch fan-out when none is given
const DefaultConcurrency = 4

// Service evaluates documents against the catalog held in its Holder.
// Safe for concurrent use; Reload may run alongside validations.
type Service struct {
	holder *catalog.Holder
	engine *engine.Engine
	now    func() time.Time
}

// New serves c, described by ref
func New(c *catalog.Catalog, ref catalog.SourceRef) *Service {
	return &Service{
		holder: catalog.NewHolder(c, ref),
		engine: engine.New(),
		now:    time.Now,
	}
}

// Open loads the catalog at src and serves it
func Open(ctx context.Context, src string) (*Service, error) {
	c, ref, err := catalog.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return New(c, ref), nil
}

// Catalog returns the catalog currently served and its source
func (s *Service) Catalog() (*catalog.Catalog, catalog.SourceRef) {
	return s.holder.Snapshot()
}

// Reload loads src and swaps it in. On failure the current catalog stays.
func (s *Service) Reload(ctx context.Context, src string) error {
	log := logging.From(ctx)
	c, ref, err := catalog.Load(ctx, src)
	if err != nil {
		log.Warn("service", "catalog reload failed, keeping current catalog", "source", src, "error", err.Error())
		return fmt.Errorf("reload %s: %w", src, err)
	}
	prev := s.holder.Swap(c, ref)
	fields := []any{"source", ref.String(), "name", c.Name(), "version", c.Version(), "rules", c.Len()}
	if prev != nil {
		fields = append(fields, "previous_version", prev.Version())
	}
	log.Info("service", "catalog reloaded", fields...)
	return nil
}

// Check is the pure core: evaluate facts with the catalog current at call
// time and score the result. Identical inputs yield identical reports.
func (s *Service) Check(facts *models.DocumentFacts) (models.ComplianceReport, error) {
	c, _ := s.holder.Snapshot()
	return s.check(c, facts)
}

func (s *Service) check(c *catalog.Catalog, facts *models.DocumentFacts) (models.ComplianceReport, error) {
	if c == nil {
		return models.ComplianceReport{}, errors.New("no catalog loaded")
	}
	violations, err := s.engine.Evaluate(c, facts)
	if err != nil {
		return models.ComplianceReport{}, err
	}
	return scorer.Score(violations), nil
}

// Validate checks facts and wraps the result in an issued envelope.
// document names the input in report metadata.
func (s *Service) Validate(ctx context.Context, document string, facts *models.DocumentFacts) (*report.Envelope, error) {
	// pin one catalog for the whole evaluation
	c, ref := s.holder.Snapshot()

	ctx, span := otelobs.Start(ctx, "aerocheck.evaluate",
		otelobs.AttrDocument.String(document),
		otelobs.AttrItems.Int(facts.ItemCount()),
	)
	env, err := s.validate(c, ref, document, facts)
	if env != nil {
		span.SetAttributes(
			otelobs.AttrDocumentType.String(env.Metadata.DocumentType),
			otelobs.AttrStatus.String(string(env.Status)),
			otelobs.AttrRiskScore.Int(env.RiskScore),
			otelobs.AttrViolations.Int(len(env.Violations)),
		)
	}
	otelobs.End(span, err)

	if err != nil {
		logging.From(ctx).Debug("service", "validation failed", "document", document, "error", err.Error())
		return nil, err
	}
	logging.From(ctx).Debug("service", "validated", "document", document,
		"status", string(env.Status), "risk_score", env.RiskScore, "report_id", env.Metadata.ReportID)
	return env, nil
}

func (s *Service) validate(c *catalog.Catalog, ref catalog.SourceRef, document string, facts *models.DocumentFacts) (*report.Envelope, error) {
	result, err := s.check(c, facts)
	if err != nil {
		return nil, err
	}
	return report.Build(result, report.Meta{
		GeneratedAt:    s.now(),
		Document:       document,
		DocumentType:   facts.DocumentType,
		Catalog:        c.Name(),
		CatalogVersion: c.Version(),
		CatalogSource:  ref.String(),
		CatalogSHA256:  ref.SHA256,
	})
}

// ValidateFile extracts facts from path and validates them
func (s *Service) ValidateFile(ctx context.Context, path string, kind extract.Kind) (*report.Envelope, error) {
	facts, err := extract.Load(path, kind)
	if err != nil {
		return nil, err
	}
	return s.Validate(ctx, path, facts)
}

// Outcome of one document in a batch. Exactly one of Envelope and Err is set.
type Outcome struct {
	Document string
	Envelope *report.Envelope
	Err      error
}

// BatchOptions tune ValidateBatch
type BatchOptions struct {
	Kind        extract.Kind
	Concurrency int
}

// ValidateBatch validates every path concurrently. Per-document failures
// are reported in their Outcome and never stop the batch; only ctx
// cancellation aborts it. Outcomes keep the order of paths.
func (s *Service) ValidateBatch(ctx context.Context, paths []string, opts BatchOptions) ([]Outcome, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	outcomes := make([]Outcome, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			env, err := s.ValidateFile(gctx, path, opts.Kind)
			outcomes[i] = Outcome{Document: path, Envelope: env, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Expand turns files and directories into the sorted list of supported
// documents. Directories are walked recursively; hidden entries are skipped.
func Expand(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if p != arg && len(name) > 0 && name[0] == '.' {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && extract.Supported(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}
	sort.Strings(out)
	return out, nil
}
