// Package invoice defines the domain model for extracted OVH invoice data:
// line items, per-document invoices with total reconciliation, and the
// cross-document report with reference-based deduplication.
package invoice

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoReference is returned when a document's text never yields an invoice
// reference. Such a document cannot be deduplicated and is rejected whole.
var ErrNoReference = errors.New("no invoice reference found in document")

// LineItem is one billed product or service. Price is not guaranteed to equal
// UnitCount*UnitPrice: vendor lines include proration, discounts and credits,
// and negative amounts are valid.
type LineItem struct {
	Invoice     string
	Section     string
	Description string
	Reference   string
	UnitCount   decimal.Decimal
	UnitPrice   decimal.Decimal
	Price       decimal.Decimal

	// Billing period. Nil means absent, which is distinct from any real
	// date; absent endpoints serialize as empty fields.
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// Meta carries the invoice-scoped values discovered while sanitizing one
// document. It is created per document, never shared, so nothing leaks
// between files.
type Meta struct {
	Reference    string
	IssueDate    *time.Time
	PrintedTotal decimal.Decimal
	HasTotal     bool

	// Default billing period, derived from the issue date as
	// [issue date, issue date + 1 month).
	DefaultPeriodStart *time.Time
	DefaultPeriodEnd   *time.Time
}

// Invoice is the ordered set of line items extracted from one document,
// together with the totals used for reconciliation.
type Invoice struct {
	Reference     string
	IssueDate     *time.Time
	PrintedTotal  decimal.Decimal
	ComputedTotal decimal.Decimal
	Items         []LineItem
}

// Gap returns the difference between the printed and the computed total.
func (inv *Invoice) Gap() decimal.Decimal {
	return inv.PrintedTotal.Sub(inv.ComputedTotal)
}

// Reconciled reports whether the computed total matches the printed total
// within the given absolute tolerance. A mismatch is a data-quality signal,
// not a rejection: unmodeled rows such as taxes can account for it.
func (inv *Invoice) Reconciled(tolerance decimal.Decimal) bool {
	return inv.Gap().Abs().LessThanOrEqual(tolerance)
}

// Report accumulates line items across documents, keeping at most one
// invoice per distinct reference.
type Report struct {
	items []LineItem
	seen  map[string]struct{}
}

// NewReport returns an empty aggregate report.
func NewReport() *Report {
	return &Report{seen: make(map[string]struct{})}
}

// Add merges an invoice's items into the report. The first invoice bearing a
// reference wins; a later invoice with the same reference is skipped whole
// and Add reports false.
func (r *Report) Add(inv *Invoice) bool {
	if _, dup := r.seen[inv.Reference]; dup {
		return false
	}
	r.seen[inv.Reference] = struct{}{}
	r.items = append(r.items, inv.Items...)
	return true
}

// Items returns the merged line items in insertion order.
func (r *Report) Items() []LineItem {
	return r.items
}

// Len returns the number of merged line items.
func (r *Report) Len() int {
	return len(r.items)
}
