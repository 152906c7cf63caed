package services

import (
	"fmt"
	"time"

	"cartrack-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Reports"

// exportHeader lists the fixed columns; station columns follow Fields() order
var exportHeader = []string{
	"Created", "Service Date", "Start", "End", "Duration (min)", "Status",
	"Ready Line", "VIP Line", "Overflow Kiosk", "Overflow 2", "Black Top", "Return Line", "Mecanico", "Gas Run",
	"Total Cleaned", "Forecasted Drops", "Email Status", "Email Attempts", "Notes",
}

// ExportReports renders reports as an XLSX workbook with a totals row
func ExportReports(reports []models.Report, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeader))
	if err := f.SetCellStyle(exportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	var totalCleaned, totalDrops int
	for i := range reports {
		r := &reports[i]
		row := []interface{}{
			r.CreatedIn(loc).Format("2006-01-02 15:04"),
			valueOr(r.ServiceDate, ""),
			valueOr(r.StartTime, ""),
			valueOr(r.EndTime, ""),
			"",
			string(r.Status),
		}
		if d := r.DurationMinutes(); d != nil {
			row[4] = *d
		}
		for _, field := range r.StationCounts.Fields() {
			row = append(row, field.Count)
		}
		row = append(row,
			r.TotalCleaned,
			r.ForecastedDrops,
			string(r.EmailDelivery.Status),
			r.Attempts,
			valueOr(r.Notes, ""),
		)

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
		totalCleaned += r.TotalCleaned
		totalDrops += r.ForecastedDrops
	}

	totalsRow := len(reports) + 2
	totals := []interface{}{"Total"}
	cell, _ := excelize.CoordinatesToCellName(1, totalsRow)
	if err := f.SetSheetRow(exportSheet, cell, &totals); err != nil {
		return nil, fmt.Errorf("failed to write totals: %w", err)
	}
	// Total Cleaned and Forecasted Drops columns
	for col, value := range map[int]int{15: totalCleaned, 16: totalDrops} {
		cell, _ := excelize.CoordinatesToCellName(col, totalsRow)
		if err := f.SetCellValue(exportSheet, cell, value); err != nil {
			return nil, fmt.Errorf("failed to write totals: %w", err)
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "A", 18); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(exportSheet, "S", "S", 40); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
