// Package audit renders booking exports for the administrator.
package audit

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"manibot/internal/models"
)

var exportColumns = []string{"User ID", "Имя", "День", "Слот", "Время", "Создана"}

// BuildWorkbook renders the bookings into a single-sheet xlsx workbook
// and returns its bytes, ready to be sent as a document.
func BuildWorkbook(bookings []models.Booking) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Записи"
	f.SetSheetName("Sheet1", sheet)

	for i, col := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return nil, err
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
		_ = f.SetCellStyle(sheet, "A1", endCell, style)
	}

	for rowIdx, b := range bookings {
		for colIdx, val := range bookingRow(b) {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return nil, fmt.Errorf("write row %d: %w", rowIdx+2, err)
			}
		}
	}

	_ = f.SetColWidth(sheet, "A", "F", 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func bookingRow(b models.Booking) []interface{} {
	created := ""
	if !b.CreatedAt.IsZero() {
		created = b.CreatedAt.Format("2006-01-02 15:04:05")
	}
	return []interface{}{
		b.UserID,
		b.Name,
		b.DayLabel,
		string(b.SlotKey),
		b.TimeSlot,
		created,
	}
}

// ExportFileName returns the suggested attachment name for an export
// generated at the given time.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("bookings_%s.xlsx", now.Format("2006-01-02"))
}
