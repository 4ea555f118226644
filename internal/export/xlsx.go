// Package export renders reports into spreadsheet form for download.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ndegwamoche/budget-tracker/internal/core"
)

const (
	summarySheet    = "Summary"
	categoriesSheet = "Categories"
)

// WriteYearReport writes a two-sheet workbook: monthly totals on Summary,
// the ranked category breakdown on Categories. Amounts are written in
// currency units, not cents, so spreadsheet formulas work on them directly.
func WriteYearReport(w io.Writer, rep core.YearReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := writeSummary(f, rep); err != nil {
		return err
	}

	if _, err := f.NewSheet(categoriesSheet); err != nil {
		return fmt.Errorf("add categories sheet: %w", err)
	}
	if err := writeCategories(f, rep.ByCategory); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, rep core.YearReport) error {
	cells := []struct {
		cell  string
		value interface{}
	}{
		{"A1", fmt.Sprintf("Spending report %d", rep.Year)},
		{"A3", "Month"},
		{"B3", "Total"},
	}
	for _, c := range cells {
		if err := f.SetCellValue(summarySheet, c.cell, c.value); err != nil {
			return fmt.Errorf("write cell %s: %w", c.cell, err)
		}
	}

	row := 4
	for _, mt := range rep.ByMonth {
		if err := setRow(f, summarySheet, row, mt.Month.Label(), mt.Total.Units()); err != nil {
			return err
		}
		row++
	}

	if err := setRow(f, summarySheet, row+1, "Total", rep.Total.Units()); err != nil {
		return err
	}
	if err := setRow(f, summarySheet, row+2, "Change vs previous year", rep.Change.Delta.Units()); err != nil {
		return err
	}
	if err := f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row+2),
		fmt.Sprintf("%.1f%%", rep.Change.Pct)); err != nil {
		return fmt.Errorf("write change pct: %w", err)
	}
	return nil
}

func writeCategories(f *excelize.File, ranked []core.CategoryAmount) error {
	headers := map[string]string{"A1": "Category", "B1": "Total", "C1": "Share"}
	for cell, value := range headers {
		if err := f.SetCellValue(categoriesSheet, cell, value); err != nil {
			return fmt.Errorf("write cell %s: %w", cell, err)
		}
	}

	for i, ca := range ranked {
		row := i + 2
		if err := setRow(f, categoriesSheet, row, ca.Name, ca.Amount.Units()); err != nil {
			return err
		}
		if err := f.SetCellValue(categoriesSheet, fmt.Sprintf("C%d", row),
			fmt.Sprintf("%.1f%%", ca.Share)); err != nil {
			return fmt.Errorf("write share row %d: %w", row, err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, label string, amount float64) error {
	if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", row), label); err != nil {
		return fmt.Errorf("write label row %d: %w", row, err)
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", row), amount); err != nil {
		return fmt.Errorf("write amount row %d: %w", row, err)
	}
	return nil
}
