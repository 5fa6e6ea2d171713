package invoice

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInvoiceReconciled(t *testing.T) {
	tolerance := decimal.RequireFromString("0.1")

	t.Run("within tolerance", func(t *testing.T) {
		inv := &Invoice{
			PrintedTotal:  decimal.RequireFromString("100.00"),
			ComputedTotal: decimal.RequireFromString("99.95"),
		}
		assert.True(t, inv.Reconciled(tolerance))
	})

	t.Run("beyond tolerance", func(t *testing.T) {
		inv := &Invoice{
			PrintedTotal:  decimal.RequireFromString("100.00"),
			ComputedTotal: decimal.RequireFromString("99.50"),
		}
		assert.False(t, inv.Reconciled(tolerance))
		assert.True(t, inv.Gap().Equal(decimal.RequireFromString("0.5")))
	})

	t.Run("computed above printed", func(t *testing.T) {
		inv := &Invoice{
			PrintedTotal:  decimal.RequireFromString("10.00"),
			ComputedTotal: decimal.RequireFromString("10.50"),
		}
		assert.False(t, inv.Reconciled(tolerance))
	})
}

func TestReportAdd(t *testing.T) {
	item := func(ref, desc string) LineItem {
		return LineItem{Invoice: ref, Description: desc, Price: decimal.New(1, 0)}
	}

	t.Run("first invoice per reference wins", func(t *testing.T) {
		r := NewReport()

		first := &Invoice{Reference: "FR123", Items: []LineItem{item("FR123", "a"), item("FR123", "b")}}
		dup := &Invoice{Reference: "FR123", Items: []LineItem{item("FR123", "c")}}
		other := &Invoice{Reference: "FR456", Items: []LineItem{item("FR456", "d")}}

		assert.True(t, r.Add(first))
		assert.False(t, r.Add(dup), "same reference processed twice")
		assert.True(t, r.Add(other))

		assert.Equal(t, 3, r.Len())
		assert.Equal(t, "a", r.Items()[0].Description)
		assert.Equal(t, "d", r.Items()[2].Description)
	})

	t.Run("duplicate invoice contributes nothing", func(t *testing.T) {
		r := NewReport()
		r.Add(&Invoice{Reference: "FR1", Items: []LineItem{item("FR1", "x")}})
		r.Add(&Invoice{Reference: "FR1", Items: []LineItem{item("FR1", "y"), item("FR1", "z")}})
		assert.Equal(t, 1, r.Len())
	})
}

func TestMetaDefaultPeriod(t *testing.T) {
	issue := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	m := Meta{IssueDate: &issue, DefaultPeriodStart: &issue, DefaultPeriodEnd: &end}

	assert.Equal(t, issue, *m.DefaultPeriodStart)
	assert.True(t, m.DefaultPeriodStart.Before(*m.DefaultPeriodEnd))
}
