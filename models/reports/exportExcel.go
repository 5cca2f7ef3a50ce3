package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	accountsSheet = "Accounts"
	weeksSheet    = "Weeks"
)

// NewStatisticsWorkbook lays global statistics out on three sheets: totals, per-account breakdown
// and the weekly buckets.
func NewStatisticsWorkbook(stats *GlobalStatistics) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	summary := [][]interface{}{
		{"Metric", "Value"},
		{"Accounts", stats.TotalAccounts},
		{"Persons", stats.TotalPersons},
		{"Reports filed", stats.TotalReports},
		{"Valid reports", stats.ValidReports},
		{"Expected reports", stats.TotalExpectedReports},
		{"Actual reports", stats.TotalActualReports},
		{"Missing reports", stats.TotalMissingReports},
		{"Completion rate (%)", stats.ReportCompletionRate},
	}
	if stats.OrphanWarning != nil {
		summary = append(summary, []interface{}{"Orphaned reports", stats.OrphanWarning.Count})
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(accountsSheet); err != nil {
		return nil, err
	}
	accounts := [][]interface{}{
		{"User ID", "Username", "Name", "Persons", "Reports", "Expected", "Actual", "Missing", "Completion rate (%)"},
	}
	for _, a := range stats.AccountBreakdown {
		accounts = append(accounts, []interface{}{
			a.UserId, a.Username, a.Name, a.TotalPersons, a.TotalReports,
			a.TotalExpectedReports, a.TotalActualReports, a.TotalMissingReports, a.ReportCompletionRate,
		})
	}
	if err := writeRows(f, accountsSheet, accounts); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(weeksSheet); err != nil {
		return nil, err
	}
	weeks := [][]interface{}{
		{"Week start", "Expected", "Actual", "Missing", "Completion rate (%)"},
	}
	for _, w := range stats.WeekStats {
		weeks = append(weeks, []interface{}{w.WeekStart, w.Expected, w.Actual, w.Missing, w.CompletionRate})
	}
	if err := writeRows(f, weeksSheet, weeks); err != nil {
		return nil, err
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func WriteStatisticsWorkbook(w io.Writer, stats *GlobalStatistics) error {
	f, err := NewStatisticsWorkbook(stats)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func SaveStatisticsWorkbook(filename string, stats *GlobalStatistics) error {
	f, err := NewStatisticsWorkbook(stats)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(filename)
}
