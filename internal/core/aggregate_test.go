package core

import (
	"reflect"
	"testing"
	"time"
)

func rec(id, cat string, cents int64, day Day, created time.Time) Record {
	return Record{
		ID:         id,
		OwnerID:    "owner",
		Amount:     Money{Cents: cents},
		CategoryID: cat,
		OccurredOn: day,
		CreatedAt:  created,
	}
}

func TestTotal(t *testing.T) {
	records := []Record{
		rec("1", "a", 12000, NewDay(2026, 1, 3), time.Time{}),
		rec("2", "a", 4550, NewDay(2026, 1, 5), time.Time{}),
		rec("3", "b", 0, NewDay(2026, 1, 9), time.Time{}), // degraded invalid entry
	}
	if got := Total(records); got.Cents != 16550 {
		t.Fatalf("Total = %d, want 16550", got.Cents)
	}
}

func TestTotalIgnoresNegative(t *testing.T) {
	records := []Record{
		rec("1", "a", 100, NewDay(2026, 1, 1), time.Time{}),
		rec("2", "a", -500, NewDay(2026, 1, 2), time.Time{}),
	}
	if got := Total(records); got.Cents != 100 {
		t.Fatalf("Total = %d, want 100", got.Cents)
	}
}

func TestTotalEmpty(t *testing.T) {
	if got := Total(nil); got.Cents != 0 {
		t.Fatalf("Total(nil) = %d", got.Cents)
	}
}

func TestRankByCategory(t *testing.T) {
	records := []Record{
		rec("1", "a", 20000, NewDay(2026, 1, 1), time.Time{}),
		rec("2", "b", 30000, NewDay(2026, 1, 2), time.Time{}),
		rec("3", "a", 10000, NewDay(2026, 1, 3), time.Time{}),
		rec("4", "c", 10000, NewDay(2026, 1, 4), time.Time{}),
	}
	names := map[string]string{"a": "Groceries", "b": "Rent", "c": "Transport"}

	ranked := RankByCategory(records, names)
	if len(ranked) != 3 {
		t.Fatalf("len = %d, want 3", len(ranked))
	}
	// a and b both total 30000; a was encountered first and must stay first.
	if ranked[0].Name != "Groceries" || ranked[1].Name != "Rent" || ranked[2].Name != "Transport" {
		t.Fatalf("order = %s, %s, %s", ranked[0].Name, ranked[1].Name, ranked[2].Name)
	}
	if ranked[0].Share != 100 || ranked[1].Share != 100 {
		t.Fatalf("max entries must have share 100, got %v and %v", ranked[0].Share, ranked[1].Share)
	}
	if want := 100 * float64(10000) / float64(30000); ranked[2].Share != want {
		t.Fatalf("share = %v, want %v", ranked[2].Share, want)
	}
}

func TestRankByCategoryUnknown(t *testing.T) {
	records := []Record{
		rec("1", "gone", 500, NewDay(2026, 1, 1), time.Time{}),
	}
	ranked := RankByCategory(records, map[string]string{"other": "Other"})
	if len(ranked) != 1 {
		t.Fatalf("len = %d, want 1", len(ranked))
	}
	if ranked[0].Name != UnknownCategory {
		t.Fatalf("name = %q, want %q", ranked[0].Name, UnknownCategory)
	}
	if ranked[0].Amount.Cents != 500 {
		t.Fatalf("orphaned amount dropped: %d", ranked[0].Amount.Cents)
	}
}

func TestRankByCategoryEmpty(t *testing.T) {
	if got := RankByCategory(nil, nil); len(got) != 0 {
		t.Fatalf("expected empty ranking, got %v", got)
	}
}

func TestCompare(t *testing.T) {
	cases := []struct {
		prev, curr int64
		delta      int64
		pct        float64
	}{
		{0, 50000, 50000, 100}, // new spending from zero caps at 100
		{0, 0, 0, 0},
		{20000, 10000, -10000, -50},
		{10000, 15000, 5000, 50},
		{-100, 200, 300, 100}, // degraded negative prior behaves as zero
	}
	for i, tc := range cases {
		got := Compare(Money{Cents: tc.curr}, Money{Cents: tc.prev})
		if got.Delta.Cents != tc.delta || got.Pct != tc.pct {
			t.Fatalf("case %d Compare = {%d %v}, want {%d %v}", i, got.Delta.Cents, got.Pct, tc.delta, tc.pct)
		}
	}
}

func TestRecentN(t *testing.T) {
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	var records []Record
	for i := 0; i < 10; i++ {
		records = append(records, rec(
			string(rune('a'+i)), "cat", 100,
			NewDay(2026, 1, 1+i%5), // duplicated days force CreatedAt tie-breaks
			base.Add(time.Duration(i)*time.Minute),
		))
	}
	input := make([]Record, len(records))
	copy(input, records)

	recent := RecentN(records, 8)
	if len(recent) != 8 {
		t.Fatalf("len = %d, want 8", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		prev, curr := recent[i-1], recent[i]
		if curr.OccurredOn.After(prev.OccurredOn.Time) {
			t.Fatalf("entry %d out of date order", i)
		}
		if curr.OccurredOn.Equal(prev.OccurredOn.Time) && curr.CreatedAt.After(prev.CreatedAt) {
			t.Fatalf("entry %d breaks CreatedAt tie-break", i)
		}
	}
	// Input ordering must survive for other consumers of the snapshot.
	if !reflect.DeepEqual(records, input) {
		t.Fatal("RecentN mutated its input")
	}
}

func TestRecentNShorterThanN(t *testing.T) {
	records := []Record{rec("1", "a", 100, NewDay(2026, 1, 1), time.Time{})}
	if got := RecentN(records, 8); len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got := RecentN(nil, 8); got != nil {
		t.Fatalf("RecentN(nil) = %v", got)
	}
}

func TestNewMonthOverviewIdempotent(t *testing.T) {
	m := Month{2026, time.January}
	records := []Record{
		rec("1", "a", 12000, NewDay(2026, 1, 3), time.Unix(100, 0)),
		rec("2", "b", 4550, NewDay(2026, 1, 5), time.Unix(200, 0)),
	}
	cats := []Category{{ID: "a", OwnerID: "owner", Name: "Groceries"}}

	first := NewMonthOverview(m, records, cats, Money{Cents: 20000}, 5)
	second := NewMonthOverview(m, records, cats, Money{Cents: 20000}, 5)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical input produced different overviews")
	}
	if first.Total.Cents != 16550 {
		t.Fatalf("total = %d", first.Total.Cents)
	}
	if first.Change.Delta.Cents != -3450 {
		t.Fatalf("delta = %d", first.Change.Delta.Cents)
	}
}

func TestNewMonthOverviewEmpty(t *testing.T) {
	ov := NewMonthOverview(Month{2026, time.March}, nil, nil, Money{}, 8)
	if ov.Total.Cents != 0 || len(ov.ByCategory) != 0 || len(ov.Recent) != 0 {
		t.Fatalf("empty period must yield zero overview: %+v", ov)
	}
	if ov.Change.Pct != 0 {
		t.Fatalf("pct = %v, want 0", ov.Change.Pct)
	}
}

func TestMonthlyTotals(t *testing.T) {
	records := []Record{
		rec("1", "a", 1000, NewDay(2026, 1, 15), time.Time{}),
		rec("2", "a", 2000, NewDay(2026, 1, 31), time.Time{}),
		rec("3", "a", 500, NewDay(2026, 12, 1), time.Time{}),
		rec("4", "a", 900, NewDay(2025, 12, 31), time.Time{}), // outside year
	}
	totals := MonthlyTotals(2026, records)
	if len(totals) != 12 {
		t.Fatalf("len = %d", len(totals))
	}
	if totals[0].Total.Cents != 3000 {
		t.Fatalf("january = %d", totals[0].Total.Cents)
	}
	if totals[11].Total.Cents != 500 {
		t.Fatalf("december = %d", totals[11].Total.Cents)
	}
	var sum int64
	for _, mt := range totals {
		sum += mt.Total.Cents
	}
	if sum != 3500 {
		t.Fatalf("sum = %d", sum)
	}
}
