package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ndegwamoche/budget-tracker/internal/core"
)

// JSON views of the core aggregates. Amounts are carried twice: as cents
// for arithmetic on the client and as a formatted decimal for display.

type recordView struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	CategoryID  string `json:"category_id"`
	Note        string `json:"note,omitempty"`
	OccurredOn  string `json:"occurred_on"`
	Paid        bool   `json:"paid"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type categoryView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type categoryAmountView struct {
	CategoryID  string  `json:"category_id"`
	Name        string  `json:"name"`
	AmountCents int64   `json:"amount_cents"`
	Amount      string  `json:"amount"`
	Share       float64 `json:"share"`
}

type changeView struct {
	DeltaCents int64   `json:"delta_cents"`
	Delta      string  `json:"delta"`
	Pct        float64 `json:"pct"`
}

type overviewView struct {
	Month      string               `json:"month"`
	Label      string               `json:"label"`
	PrevMonth  string               `json:"prev_month"`
	NextMonth  string               `json:"next_month"`
	TotalCents int64                `json:"total_cents"`
	Total      string               `json:"total"`
	ByCategory []categoryAmountView `json:"by_category"`
	Change     changeView           `json:"change"`
	Recent     []recordView         `json:"recent"`
}

type monthTotalView struct {
	Month      string `json:"month"`
	Label      string `json:"label"`
	TotalCents int64  `json:"total_cents"`
	Total      string `json:"total"`
}

type reportView struct {
	Year       int                  `json:"year"`
	TotalCents int64                `json:"total_cents"`
	Total      string               `json:"total"`
	ByMonth    []monthTotalView     `json:"by_month"`
	ByCategory []categoryAmountView `json:"by_category"`
	Change     changeView           `json:"change"`
}

func monthKey(m core.Month) string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func toRecordView(r core.Record) recordView {
	return recordView{
		ID:          r.ID,
		AmountCents: r.Amount.Cents,
		Amount:      r.Amount.String(),
		CategoryID:  r.CategoryID,
		Note:        r.Note,
		OccurredOn:  r.OccurredOn.Label(),
		Paid:        r.Paid,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toRecordViews(records []core.Record) []recordView {
	views := make([]recordView, 0, len(records))
	for _, r := range records {
		views = append(views, toRecordView(r))
	}
	return views
}

func toCategoryView(c core.Category) categoryView {
	return categoryView{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toCategoryAmountViews(ranked []core.CategoryAmount) []categoryAmountView {
	views := make([]categoryAmountView, 0, len(ranked))
	for _, ca := range ranked {
		views = append(views, categoryAmountView{
			CategoryID:  ca.CategoryID,
			Name:        ca.Name,
			AmountCents: ca.Amount.Cents,
			Amount:      ca.Amount.String(),
			Share:       ca.Share,
		})
	}
	return views
}

func toChangeView(c core.Change) changeView {
	return changeView{
		DeltaCents: c.Delta.Cents,
		Delta:      c.Delta.String(),
		Pct:        c.Pct,
	}
}

func toOverviewView(ov core.MonthOverview) overviewView {
	return overviewView{
		Month:      monthKey(ov.Month),
		Label:      ov.Month.Label(),
		PrevMonth:  monthKey(ov.Month.Prev()),
		NextMonth:  monthKey(ov.Month.Next()),
		TotalCents: ov.Total.Cents,
		Total:      ov.Total.String(),
		ByCategory: toCategoryAmountViews(ov.ByCategory),
		Change:     toChangeView(ov.Change),
		Recent:     toRecordViews(ov.Recent),
	}
}

func toReportView(rep core.YearReport) reportView {
	months := make([]monthTotalView, 0, len(rep.ByMonth))
	for _, mt := range rep.ByMonth {
		months = append(months, monthTotalView{
			Month:      monthKey(mt.Month),
			Label:      mt.Month.Label(),
			TotalCents: mt.Total.Cents,
			Total:      mt.Total.String(),
		})
	}
	return reportView{
		Year:       rep.Year,
		TotalCents: rep.Total.Cents,
		Total:      rep.Total.String(),
		ByMonth:    months,
		ByCategory: toCategoryAmountViews(rep.ByCategory),
		Change:     toChangeView(rep.Change),
	}
}

// queryMonth reads year and month query parameters, defaulting to the
// current month.
func queryMonth(r *http.Request) core.Month {
	m := core.MonthOf(time.Now().UTC())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			m.Year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if mo, err := strconv.Atoi(v); err == nil {
			m.Month = time.Month(mo)
		}
	}
	return m
}

// queryYear reads the year query parameter, defaulting to the current year.
func queryYear(r *http.Request) int {
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			return y
		}
	}
	return time.Now().UTC().Year()
}
