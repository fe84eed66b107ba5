package store

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/aerocheck/aerocheck/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEnvelope(t *testing.T, id string, at time.Time) *report.Envelope {
	t.Helper()
	env, err := report.Build(models.ComplianceReport{
		Status:     models.StatusPass,
		RiskScore:  100,
		Violations: []models.Violation{},
		Warnings:   []models.Violation{},
	}, report.Meta{
		ReportID:       id,
		GeneratedAt:    at,
		Document:       "bracket.txt",
		DocumentType:   models.DocumentDrawing,
		Catalog:        "Aerospace Baseline",
		CatalogVersion: "1.2.0",
	})
	require.NoError(t, err)
	return env
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS reports")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := New(context.Background(), db, DialectPostgres)
	require.NoError(t, err)
	return s, mock
}

func TestStore_SavePostgres(t *testing.T) {
	s, mock := newMockStore(t)
	env := sampleEnvelope(t, "r-1", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reports (report_id, generated_at, document, document_type, catalog, catalog_version, status, risk_score, digest, envelope) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)")).
		WithArgs("r-1", "2026-03-01T12:00:00Z", "bracket.txt", "drawing", "Aerospace Baseline", "1.2.0", "PASS", 100, env.Metadata.Digest, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Save(context.Background(), env))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT envelope FROM reports WHERE report_id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"envelope"}))

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListScans(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"report_id", "generated_at", "document", "document_type", "catalog", "catalog_version", "status", "risk_score", "digest"}).
		AddRow("r-2", "2026-03-02T00:00:00Z", "bom.csv", "bom", "Aerospace Baseline", "1.2.0", "FAIL", 65, "sha256:ab")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT report_id")).
		WithArgs(5).
		WillReturnRows(rows)

	records, err := s.List(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.StatusFail, records[0].Status)
	assert.Equal(t, 65, records[0].RiskScore)
	assert.Equal(t, 2026, records[0].GeneratedAt.Year())
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "history.db")
	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	older := sampleEnvelope(t, "r-old", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := sampleEnvelope(t, "r-new", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))
	assert.Error(t, s.Save(ctx, newer), "duplicate report id")

	got, err := s.Get(ctx, "r-old")
	require.NoError(t, err)
	assert.Equal(t, older.Metadata.Digest, got.Metadata.Digest)
	assert.Equal(t, older.Status, got.Status)

	records, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "r-new", records[0].ReportID)
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn     string
		dialect Dialect
		source  string
		wantErr bool
	}{
		{"sqlite://./h.db", DialectSQLite, "./h.db", false},
		{"sqlite://", "", "", true},
		{"postgres://u:p@db/x", DialectPostgres, "postgres://u:p@db/x", false},
		{"mysql://u:p@db/x", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			d, src, err := ParseDSN(tt.dsn)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, d)
			assert.Equal(t, tt.source, src)
		})
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "postgres://alice:xxxxx@db:5432/h", Redact("postgres://alice:s3cret@db:5432/h"))
	assert.Equal(t, "sqlite://./h.db", Redact("sqlite://./h.db"))
	assert.Equal(t, "postgres://alice@db/h", Redact("postgres://alice@db/h"))
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: DialectPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	lite := &Store{dialect: DialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}
