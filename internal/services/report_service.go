package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ndegwamoche/budget-tracker/internal/core"
	"github.com/ndegwamoche/budget-tracker/internal/store"
)

// ReportService assembles the aggregated views served by the API. Reads
// for a view are independent, so they run concurrently.
type ReportService struct {
	records    store.RecordStore
	categories store.CategoryStore

	// recentLimit bounds the latest-records strip on the overview.
	recentLimit int
}

func NewReportService(records store.RecordStore, categories store.CategoryStore, recentLimit int) *ReportService {
	if recentLimit <= 0 {
		recentLimit = 8
	}
	return &ReportService{records: records, categories: categories, recentLimit: recentLimit}
}

// RecentLimit exposes the configured recent-records cap so other layers
// assembling overviews stay consistent with it.
func (s *ReportService) RecentLimit() int {
	return s.recentLimit
}

// MonthOverview builds the dashboard view for one month: total, ranked
// category breakdown, change against the previous month, recent records.
func (s *ReportService) MonthOverview(ctx context.Context, ownerID string, month core.Month) (core.MonthOverview, error) {
	if !month.Valid() {
		return core.MonthOverview{}, fmt.Errorf("%w: invalid month", ErrValidation)
	}

	var (
		records []core.Record
		prev    []core.Record
		cats    []core.Category
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start, end := month.Bounds()
		var err error
		records, err = s.records.RecordsInRange(gctx, ownerID, start, end)
		return err
	})
	g.Go(func() error {
		start, end := month.Prev().Bounds()
		var err error
		prev, err = s.records.RecordsInRange(gctx, ownerID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.categories.Categories(gctx, ownerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthOverview{}, fmt.Errorf("load month overview: %w", err)
	}

	return core.NewMonthOverview(month, records, cats, core.Total(prev), s.recentLimit), nil
}

// YearReport builds the yearly view: total, per-month totals, category
// breakdown, change against the previous year.
func (s *ReportService) YearReport(ctx context.Context, ownerID string, year int) (core.YearReport, error) {
	if year < 1 {
		return core.YearReport{}, fmt.Errorf("%w: invalid year", ErrValidation)
	}

	var (
		records []core.Record
		prev    []core.Record
		cats    []core.Category
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start, end := core.YearBounds(year)
		var err error
		records, err = s.records.RecordsInRange(gctx, ownerID, start, end)
		return err
	})
	g.Go(func() error {
		start, end := core.YearBounds(year - 1)
		var err error
		prev, err = s.records.RecordsInRange(gctx, ownerID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.categories.Categories(gctx, ownerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.YearReport{}, fmt.Errorf("load year report: %w", err)
	}

	return core.NewYearReport(year, records, cats, core.Total(prev)), nil
}
