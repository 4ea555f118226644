// Package core implements the pure aggregation engine: given a materialized
// set of records already filtered to a period, it produces totals, ranked
// category breakdowns, period-over-period changes, and recent-activity
// selections. Every function here is deterministic and stateless; calling it
// twice with the same snapshot yields identical output, and independent
// periods can be aggregated concurrently.
package core

import (
	"sort"
	"time"
)

type (
	// CategoryAmount is one entry of a ranked category breakdown.
	// Share is a relative-scale percentage: the largest entry is always 100.
	CategoryAmount struct {
		CategoryID string
		Name       string
		Amount     Money
		Share      float64
	}

	// Change compares a current-period total against the prior period.
	Change struct {
		Delta Money
		Pct   float64
	}

	// MonthOverview is the full summary for one month's snapshot.
	MonthOverview struct {
		Month      Month
		Total      Money
		ByCategory []CategoryAmount
		Change     Change
		Recent     []Record
	}

	// MonthTotal pairs a month with its spending total.
	MonthTotal struct {
		Month Month
		Total Money
	}

	// YearReport summarizes a full calendar year.
	YearReport struct {
		Year       int
		Total      Money
		ByMonth    []MonthTotal
		ByCategory []CategoryAmount
		Change     Change
	}
)

// Total sums record amounts. Negative cents contribute zero: a record
// should never reach this fold malformed, but one that does must not
// corrupt the whole period's sum.
func Total(records []Record) Money {
	var sum int64
	for _, r := range records {
		if r.Amount.Cents > 0 {
			sum += r.Amount.Cents
		}
	}
	return Money{Cents: sum}
}

// RankByCategory folds records into per-category sums and returns them
// ranked by descending total. Ties keep first-encountered input order, so
// output is deterministic for a fixed snapshot iteration order. Records
// referencing a category absent from names land in the "Unknown" bucket
// rather than being dropped. An empty snapshot yields an empty slice.
func RankByCategory(records []Record, names map[string]string) []CategoryAmount {
	sums := make(map[string]int64)
	var order []string
	for _, r := range records {
		if r.Amount.Cents <= 0 {
			continue
		}
		if _, seen := sums[r.CategoryID]; !seen {
			order = append(order, r.CategoryID)
		}
		sums[r.CategoryID] += r.Amount.Cents
	}

	ranked := make([]CategoryAmount, 0, len(order))
	for _, id := range order {
		name, ok := names[id]
		if !ok {
			name = UnknownCategory
		}
		ranked = append(ranked, CategoryAmount{
			CategoryID: id,
			Name:       name,
			Amount:     Money{Cents: sums[id]},
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Amount.Cents > ranked[j].Amount.Cents
	})

	if len(ranked) > 0 {
		max := ranked[0].Amount.Cents
		for i := range ranked {
			if max > 0 {
				ranked[i].Share = 100 * float64(ranked[i].Amount.Cents) / float64(max)
			}
		}
	}
	return ranked
}

// Compare computes the delta and percentage change between a current and a
// prior period total. New spending where there was none reports a
// conventional 100% instead of dividing by zero; two empty periods report
// 0%, keeping "no change" distinguishable from "new spending".
func Compare(curr, prev Money) Change {
	c := Change{Delta: Money{Cents: curr.Cents - prev.Cents}}
	switch {
	case prev.Cents <= 0 && curr.Cents > 0:
		c.Pct = 100
	case prev.Cents <= 0:
		c.Pct = 0
	default:
		c.Pct = 100 * float64(curr.Cents-prev.Cents) / float64(prev.Cents)
	}
	return c
}

// RecentN returns the n most recent records ordered by OccurredOn
// descending, ties broken by CreatedAt descending. The input slice is
// never reordered; callers may share one snapshot across consumers.
func RecentN(records []Record, n int) []Record {
	if n <= 0 || len(records) == 0 {
		return nil
	}
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].OccurredOn.Equal(sorted[j].OccurredOn.Time) {
			return sorted[i].OccurredOn.After(sorted[j].OccurredOn.Time)
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// NewMonthOverview assembles the complete month summary from one snapshot.
// prev is the preceding month's total; recent limits the activity feed.
func NewMonthOverview(m Month, records []Record, cats []Category, prev Money, recent int) MonthOverview {
	total := Total(records)
	return MonthOverview{
		Month:      m,
		Total:      total,
		ByCategory: RankByCategory(records, CategoryNames(cats)),
		Change:     Compare(total, prev),
		Recent:     RecentN(records, recent),
	}
}

// MonthlyTotals splits a year's records into twelve month totals.
// Records outside the year are ignored.
func MonthlyTotals(year int, records []Record) []MonthTotal {
	totals := make([]MonthTotal, 12)
	for i := range totals {
		totals[i].Month = Month{Year: year, Month: time.Month(i + 1)}
	}
	for _, r := range records {
		m := MonthOf(r.OccurredOn.Time)
		if m.Year != year || r.Amount.Cents <= 0 {
			continue
		}
		totals[int(m.Month)-1].Total.Cents += r.Amount.Cents
	}
	return totals
}

// NewYearReport assembles the yearly summary. prev is the prior year's total.
func NewYearReport(year int, records []Record, cats []Category, prev Money) YearReport {
	total := Total(records)
	return YearReport{
		Year:       year,
		Total:      total,
		ByMonth:    MonthlyTotals(year, records),
		ByCategory: RankByCategory(records, CategoryNames(cats)),
		Change:     Compare(total, prev),
	}
}
