// Package sanitizer reconstructs logical invoice lines from the linearized
// text stream a PDF extractor produces. The extractor yields one raw line per
// visual text fragment, so a single invoice row arrives split across many raw
// lines; this package reassembles them using textual anchors (fixed column
// headers, the page footer, a terminal currency-amount pattern) instead of
// layout coordinates.
package sanitizer

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/FACorreiaa/ovhbill/internal/domain/invoice"
	"github.com/FACorreiaa/ovhbill/internal/domain/invoice/normalizer"
)

// Textual anchors fixed by the vendor's document layout.
const (
	ReferenceLabel   = "Référence de la facture"
	SectionLabel     = "Rubrique"
	totalLabel       = "Total de la facture HT"
	issueDateLabel   = "Date d'émission :"
	headerStartLabel = "Abonnement Référence Quantité"
	headerEndSuffix  = "Prix HT"
	pageFooterSuffix = "javascript:history.back()"
)

var (
	reTotal     = regexp.MustCompile(`^Total de la facture HT ([\d\s]*,?[\d\s]*) €$`)
	reIssueDate = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})$`)
	reItemEnd   = regexp.MustCompile(`,\d{2} €$`)
)

// Result holds the sanitized line sequence of one document together with the
// invoice-scoped metadata discovered along the way.
type Result struct {
	Lines []string
	Meta  invoice.Meta
}

// Sanitizer turns raw extracted text lines into sanitized logical lines.
// It is stateless across documents; all per-document state lives in the run.
type Sanitizer struct {
	log *slog.Logger
}

// New creates a Sanitizer. A nil logger falls back to slog.Default.
func New(log *slog.Logger) *Sanitizer {
	if log == nil {
		log = slog.Default()
	}
	return &Sanitizer{log: log}
}

// run is the per-document state machine. buffer accumulates the raw
// fragments of the logical line currently being reassembled; carry preserves
// a partial item block across a page break.
type run struct {
	out      []string
	buffer   []string
	carry    []string
	inHeader bool
	inItem   bool
	meta     invoice.Meta
}

// rule is one line-classification step. Rules are evaluated in order; a
// non-terminal rule lets the same line flow into later rules (a metadata
// line inside an item block is also part of that block's buffer).
type rule struct {
	name     string
	match    func(r *run, line string) bool
	handle   func(s *Sanitizer, r *run, line string) error
	terminal bool
}

var rules = []rule{
	{
		name:   "printed-total",
		match:  func(_ *run, line string) bool { return strings.HasPrefix(line, totalLabel) },
		handle: (*Sanitizer).handleTotal,
	},
	{
		name:   "issue-date",
		match:  func(_ *run, line string) bool { return strings.HasPrefix(line, issueDateLabel) },
		handle: (*Sanitizer).handleIssueDate,
	},
	{
		name:   "invoice-reference",
		match:  func(_ *run, line string) bool { return strings.HasPrefix(line, ReferenceLabel) },
		handle: (*Sanitizer).handleMetadata,
	},
	{
		name:   "section",
		match:  func(_ *run, line string) bool { return strings.HasPrefix(line, SectionLabel) },
		handle: (*Sanitizer).handleMetadata,
	},
	{
		name:     "header-start",
		match:    func(_ *run, line string) bool { return strings.HasPrefix(line, headerStartLabel) },
		handle:   (*Sanitizer).handleHeaderStart,
		terminal: true,
	},
	{
		name:     "header-end",
		match:    func(r *run, line string) bool { return r.inHeader && strings.HasSuffix(line, headerEndSuffix) },
		handle:   (*Sanitizer).handleHeaderEnd,
		terminal: true,
	},
	{
		name:     "page-break",
		match:    func(_ *run, line string) bool { return strings.HasSuffix(line, pageFooterSuffix) },
		handle:   (*Sanitizer).handlePageBreak,
		terminal: true,
	},
	{
		name:     "header-accumulate",
		match:    func(r *run, _ string) bool { return r.inHeader },
		handle:   (*Sanitizer).handleAccumulate,
		terminal: true,
	},
	{
		name:     "item-accumulate",
		match:    func(r *run, _ string) bool { return r.inItem },
		handle:   (*Sanitizer).handleItem,
		terminal: true,
	},
}

// Sanitize runs the state machine over one document's raw lines.
func (s *Sanitizer) Sanitize(raw []string) (*Result, error) {
	r := &run{}

	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, rl := range rules {
			if !rl.match(r, line) {
				continue
			}
			if err := rl.handle(s, r, line); err != nil {
				return nil, fmt.Errorf("%s: %w", rl.name, err)
			}
			if rl.terminal {
				break
			}
		}
	}

	return &Result{Lines: r.out, Meta: r.meta}, nil
}

func (s *Sanitizer) handleTotal(r *run, line string) error {
	m := reTotal.FindStringSubmatch(line)
	if m == nil {
		s.log.Warn("cannot parse printed total", "line", line)
		return nil
	}
	total, err := normalizer.ParseDecimal(m[1])
	if err != nil {
		s.log.Warn("cannot parse printed total", "line", line, "error", err)
		return nil
	}
	r.meta.PrintedTotal = total
	r.meta.HasTotal = true
	return nil
}

func (s *Sanitizer) handleIssueDate(r *run, line string) error {
	m := reIssueDate.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("no date on issue-date line %q", line)
	}
	issued, ok := normalizer.ParseDate(m[1])
	if !ok {
		return fmt.Errorf("invalid issue date %q", m[1])
	}
	end := normalizer.AddMonths(issued, 1)
	r.meta.IssueDate = &issued
	r.meta.DefaultPeriodStart = &issued
	r.meta.DefaultPeriodEnd = &end
	return nil
}

// handleMetadata emits reference and section lines verbatim, regardless of
// buffering state. The rule is non-terminal: inside an item block the same
// line is also accumulated, exactly as it appears in the text stream.
func (s *Sanitizer) handleMetadata(r *run, line string) error {
	r.out = append(r.out, line)
	return nil
}

func (s *Sanitizer) handleHeaderStart(r *run, line string) error {
	// A column header in the middle of an item block means the item
	// continues on the next page; keep the partial row aside.
	if r.inItem && len(r.buffer) > 0 {
		r.carry = r.buffer
	}
	r.inItem = false
	r.inHeader = true
	r.buffer = []string{line}

	// The whole header may arrive as a single raw line.
	if strings.HasSuffix(line, headerEndSuffix) {
		return s.handleHeaderEnd(r, "")
	}
	return nil
}

func (s *Sanitizer) handleHeaderEnd(r *run, line string) error {
	if line != "" {
		r.buffer = append(r.buffer, line)
	}
	r.flush()
	r.inHeader = false
	r.inItem = true

	// Resume the item row interrupted by the page break.
	r.buffer = r.carry
	r.carry = nil
	return nil
}

func (s *Sanitizer) handlePageBreak(r *run, line string) error {
	// Mid-item the footer is navigation noise; drop it and keep the
	// partial row so the item reassembles into one logical line.
	if r.inItem && len(r.buffer) > 0 {
		return nil
	}
	r.buffer = append(r.buffer, line)
	r.flush()
	r.inHeader = false
	return nil
}

func (s *Sanitizer) handleAccumulate(r *run, line string) error {
	r.buffer = append(r.buffer, line)
	return nil
}

func (s *Sanitizer) handleItem(r *run, line string) error {
	r.buffer = append(r.buffer, line)
	if reItemEnd.MatchString(line) {
		r.flush()
	}
	return nil
}

// flush joins the buffered fragments into one sanitized line and clears the
// buffer. Interior space runs are kept: a quantity-less item row is only
// recognizable by its doubled separator.
func (r *run) flush() {
	if len(r.buffer) == 0 {
		return
	}
	joined := strings.TrimSpace(strings.Join(r.buffer, " "))
	if joined != "" {
		r.out = append(r.out, joined)
	}
	r.buffer = nil
}
