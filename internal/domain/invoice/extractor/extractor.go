// Package extractor turns sanitized invoice lines into typed line items. It
// runs each line through small repair stages (hyphen-wrapped references,
// thousands-grouping spaces) before matching the item-row pattern, so each
// stage's failure mode stays independently testable.
package extractor

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ovhbill/internal/domain/invoice"
	"github.com/FACorreiaa/ovhbill/internal/domain/invoice/normalizer"
	"github.com/FACorreiaa/ovhbill/internal/domain/invoice/sanitizer"
)

var (
	// Vendor codes get line-wrapped with a spurious space after a hyphen.
	reHyphenWrap = regexp.MustCompile(`(\S-)\s`)

	// Two consecutive "<amount> €" groups preceded by the quantity; used to
	// strip thousands-grouping spaces so the row pattern sees one token per
	// amount.
	reAmountPair = regexp.MustCompile(`\s\d*\s(-?(?:\d+|\d{1,3}(?:\s\d{3})*)(?:,\d*)?\s€)\s(-?(?:\d+|\d{1,3}(?:\s\d{3})*)(?:,\d*)?\s€)`)

	// description, reference, quantity, unit price, price. The description
	// is greedy: it runs up to the last token run that still satisfies the
	// trailing reference/quantity/amount shape.
	reItemRow = regexp.MustCompile(`(.*)\s([^ ]*)\s(\d*)\s(-?\d*,\d*)€\s(-?\d*,\d*)€`)

	// Explicit billing period embedded in the description.
	rePeriod = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})-(\d{2}/\d{2}/\d{4})\)`)
)

const referencePrefix = sanitizer.ReferenceLabel + " : "

// Extractor scans a document's sanitized lines for item rows, carrying the
// current section and invoice reference between lines.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract builds the document's invoice from its sanitized lines. Malformed
// financial data on a matched row is an error (it must not be silently
// zeroed), as is a document that never names its invoice reference.
func (e *Extractor) Extract(lines []string, meta invoice.Meta) (*invoice.Invoice, error) {
	inv := &invoice.Invoice{
		IssueDate:    meta.IssueDate,
		PrintedTotal: meta.PrintedTotal,
	}
	section := ""

	for _, line := range lines {
		if strings.HasPrefix(line, sanitizer.SectionLabel) {
			section = strings.TrimPrefix(line, sanitizer.SectionLabel+" ")
		}
		if strings.HasPrefix(line, referencePrefix) {
			inv.Reference = strings.TrimPrefix(line, referencePrefix)
		}

		line = repairHyphenWrap(line)
		line = repairThousands(line)

		m := reItemRow.FindStringSubmatch(line)
		if m == nil {
			// Section headers, absorbed continuations, noise.
			continue
		}

		item, err := e.buildItem(m, inv.Reference, section, meta)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", line, err)
		}
		inv.ComputedTotal = inv.ComputedTotal.Add(item.Price)
		inv.Items = append(inv.Items, *item)
	}

	if inv.Reference == "" {
		return nil, invoice.ErrNoReference
	}
	return inv, nil
}

func (e *Extractor) buildItem(m []string, reference, section string, meta invoice.Meta) (*invoice.LineItem, error) {
	description, itemRef, quantity := m[1], m[2], m[3]

	unitCount := decimal.Zero
	if quantity != "" {
		var err error
		if unitCount, err = normalizer.ParseDecimal(quantity); err != nil {
			return nil, err
		}
	}
	unitPrice, err := normalizer.ParseDecimal(m[4])
	if err != nil {
		return nil, err
	}
	price, err := normalizer.ParseDecimal(m[5])
	if err != nil {
		return nil, err
	}

	start, end, err := e.billingPeriod(description, meta)
	if err != nil {
		return nil, err
	}

	return &invoice.LineItem{
		Invoice:     normalizer.Transliterate(reference),
		Section:     normalizer.Transliterate(section),
		Description: normalizer.Transliterate(strings.TrimSpace(description)),
		Reference:   normalizer.Transliterate(itemRef),
		UnitCount:   unitCount,
		UnitPrice:   unitPrice,
		Price:       price,
		PeriodStart: start,
		PeriodEnd:   end,
	}, nil
}

// billingPeriod resolves an item's period: the explicit range embedded in the
// description when present, the invoice-wide default otherwise. Explicit but
// unparseable endpoints degrade to absent rather than failing the document.
func (e *Extractor) billingPeriod(description string, meta invoice.Meta) (*time.Time, *time.Time, error) {
	if m := rePeriod.FindStringSubmatch(description); m != nil {
		start := parseEndpoint(m[1])
		end := parseEndpoint(m[2])
		if start != nil && end != nil && start.After(*end) {
			// An inverted range carries no usable period information.
			return nil, nil, nil
		}
		return start, end, nil
	}

	if meta.DefaultPeriodStart == nil {
		return nil, nil, fmt.Errorf("no explicit period and no issue date to derive one from")
	}
	return meta.DefaultPeriodStart, meta.DefaultPeriodEnd, nil
}

func parseEndpoint(s string) *time.Time {
	t, ok := normalizer.ParseDate(s)
	if !ok {
		return nil
	}
	return &t
}

// repairHyphenWrap removes the spurious space the text extraction leaves
// after a hyphen-terminated token of a wrapped vendor code.
func repairHyphenWrap(line string) string {
	return reHyphenWrap.ReplaceAllString(line, "$1")
}

// repairThousands drops the grouping spaces inside the two trailing amount
// tokens ("1 234,56 €" -> "1234,56€") so the row pattern is not confused.
func repairThousands(line string) string {
	m := reAmountPair.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	for _, amount := range m[1:] {
		line = strings.Replace(line, amount, strings.ReplaceAll(amount, " ", ""), 1)
	}
	return line
}
