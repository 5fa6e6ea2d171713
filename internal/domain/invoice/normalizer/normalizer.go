// Package normalizer converts the locale-formatted values found on OVH
// invoices (decimal-comma amounts, DD/MM/YYYY dates, accented labels) into
// canonical Go values.
package normalizer

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DateLayout is the only date format the vendor uses.
const DateLayout = "02/01/2006"

// ParseDecimal parses an amount using a comma as the decimal separator and an
// optional space as the thousands separator ("1 234,56", "-45,00").
func ParseDecimal(s string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(s, " ", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// ParseDate parses a DD/MM/YYYY date. Malformed or empty input means "no date
// information" for the caller, not a failure, so it reports ok=false instead
// of an error.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AddMonths returns the same day-of-month n calendar months after t, clamped
// to the last valid day of the target month (31 Jan -> 28/29 Feb). time.Date
// alone would normalize the overflow into the following month instead.
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()

	m := int(month) - 1 + n
	y := year + m/12
	m = m%12 + 1

	if last := daysIn(y, time.Month(m)); day > last {
		day = last
	}
	return time.Date(y, time.Month(m), day, 0, 0, 0, 0, t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var asciiFold = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	norm.NFC,
)

// Transliterate folds a string to plain ASCII: accents are stripped
// ("Référence" -> "Reference") and any remaining non-ASCII rune is dropped.
func Transliterate(s string) string {
	out, _, err := transform.String(asciiFold, s)
	if err != nil {
		return s
	}
	return out
}
