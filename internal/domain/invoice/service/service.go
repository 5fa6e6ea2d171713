// Package service orchestrates the invoice conversion run: it walks the
// input directory, pushes every PDF through the sanitize/extract/reconcile
// pipeline, writes per-document reports, and merges the aggregate report.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/FACorreiaa/ovhbill/internal/domain/export"
	"github.com/FACorreiaa/ovhbill/internal/domain/invoice"
	"github.com/FACorreiaa/ovhbill/internal/domain/invoice/extractor"
	"github.com/FACorreiaa/ovhbill/internal/domain/invoice/pdftext"
	"github.com/FACorreiaa/ovhbill/internal/domain/invoice/sanitizer"
	"github.com/FACorreiaa/ovhbill/pkg/config"
	"github.com/FACorreiaa/ovhbill/pkg/storage"
)

// TextExtractor yields the raw text lines of one PDF document. It is the
// boundary to the external text-extraction collaborator and is replaceable
// in tests.
type TextExtractor func(path string) ([]string, error)

// AggregateName is the file name of the merged CSV report.
const AggregateName = "report.csv"

// Service runs the conversion pipeline.
type Service struct {
	cfg   *config.Config
	store storage.Store
	log   *slog.Logger
	san   *sanitizer.Sanitizer
	ext   *extractor.Extractor

	// TextExtract may be replaced before Run, e.g. by tests.
	TextExtract TextExtractor
}

// New creates a Service. A nil logger falls back to slog.Default.
func New(cfg *config.Config, store storage.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:         cfg,
		store:       store,
		log:         log,
		san:         sanitizer.New(log),
		ext:         extractor.New(),
		TextExtract: pdftext.Extract,
	}
}

// RunResult summarizes one conversion run.
type RunResult struct {
	Processed  int // documents parsed and written
	Failed     int // documents that could not be processed
	Duplicates int // documents excluded from the aggregate as duplicates
	Items      int // line items in the aggregate report
	ReportPath string
}

// Run processes every PDF in the input directory. One document's failure is
// logged and does not stop the rest of the run; a failure writing the
// aggregate report is fatal, since that is the primary deliverable.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	entries, err := os.ReadDir(s.cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	result := &RunResult{}
	report := invoice.NewReport()

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		inv, err := s.processDocument(filepath.Join(s.cfg.InputDir, name))
		if err != nil {
			s.log.Error("could not process document", "file", name, "error", err)
			result.Failed++
			continue
		}

		if !inv.Reconciled(s.cfg.Tolerance) {
			s.log.Warn("printed total does not match extracted items",
				"file", name, "missing", inv.Gap().String())
		}

		docReport := strings.TrimSuffix(name, filepath.Ext(name)) + ".csv"
		if err := s.writeReport(ctx, docReport, export.WriteCSV, inv.Items); err != nil {
			s.log.Error("could not write document report", "file", name, "error", err)
			result.Failed++
			continue
		}
		result.Processed++

		if report.Add(inv) {
			s.log.Info("processed document",
				"file", name, "invoice", inv.Reference, "items", len(inv.Items))
		} else {
			s.log.Info("duplicate invoice reference, excluded from aggregate",
				"file", name, "invoice", inv.Reference)
			result.Duplicates++
		}
	}

	path, err := s.writeAggregate(ctx, report.Items())
	if err != nil {
		return nil, err
	}
	result.ReportPath = path
	result.Items = report.Len()
	return result, nil
}

// processDocument runs the full pipeline for one file. Any failure inside
// sanitizing or extraction surfaces here; the document is all-or-nothing.
func (s *Service) processDocument(path string) (*invoice.Invoice, error) {
	lines, err := s.TextExtract(path)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	res, err := s.san.Sanitize(lines)
	if err != nil {
		return nil, fmt.Errorf("sanitize: %w", err)
	}

	inv, err := s.ext.Extract(res.Lines, res.Meta)
	if err != nil {
		return nil, fmt.Errorf("extract items: %w", err)
	}
	return inv, nil
}

func (s *Service) writeAggregate(ctx context.Context, items []invoice.LineItem) (string, error) {
	if err := s.writeReport(ctx, AggregateName, export.WriteCSV, items); err != nil {
		return "", fmt.Errorf("write aggregate report: %w", err)
	}
	if s.cfg.WriteXLSX {
		name := replaceExt(AggregateName, ".xlsx")
		if err := s.writeReport(ctx, name, export.WriteXLSX, items); err != nil {
			return "", fmt.Errorf("write aggregate workbook: %w", err)
		}
	}
	if s.cfg.WriteJSON {
		name := replaceExt(AggregateName, ".json")
		if err := s.writeReport(ctx, name, export.WriteJSON, items); err != nil {
			return "", fmt.Errorf("write aggregate JSON: %w", err)
		}
	}
	return filepath.Join(s.cfg.OutputDir, AggregateName), nil
}

type writeFunc func(w io.Writer, items []invoice.LineItem) error

func (s *Service) writeReport(ctx context.Context, name string, write writeFunc, items []invoice.LineItem) error {
	var buf bytes.Buffer
	if err := write(&buf, items); err != nil {
		return err
	}
	_, err := s.store.Write(ctx, name, &buf)
	return err
}

func replaceExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
