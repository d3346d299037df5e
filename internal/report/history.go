// Package report 饮水历史导出
package report

import (
	"fmt"
	"io"
	"math"

	"github.com/Hans-Rafael/glup-water-reminder/internal/i18n"
	"github.com/Hans-Rafael/glup-water-reminder/internal/models"

	"github.com/xuri/excelize/v2"
)

var columnWidths = []float64{14, 10, 10, 10, 16}

// WriteHistoryXLSX 把每日汇总写成 Excel 文件（表头按语言本地化）
func WriteHistoryXLSX(w io.Writer, totals []models.DailyTotal, goalLiters float64, lang models.Language) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := i18n.HistorySheet(lang)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	headers := i18n.HistoryHeaders(lang)
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, name, name, columnWidths[col]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, day := range totals {
		row := i + 2
		liters := math.Round(day.Liters*100) / 100
		values := []interface{}{
			day.Day.Format("2006-01-02"),
			liters,
			day.Drinks,
			goalLiters,
			i18n.YesNo(lang, goalLiters > 0 && liters >= goalLiters),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
