package audit

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"manibot/internal/models"
)

func TestBuildWorkbook(t *testing.T) {
	created := time.Date(2026, 1, 14, 12, 30, 0, 0, time.UTC)
	bookings := []models.Booking{
		{UserID: 1, Name: "Анна", DayLabel: "Пн, 19.01", SlotKey: "curr_mon", TimeSlot: "11:00", CreatedAt: created},
		{UserID: 2, Name: "Мария", DayLabel: "Вт, 20.01", SlotKey: "curr_tue", TimeSlot: "13:00", CreatedAt: created},
	}

	data, err := BuildWorkbook(bookings)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Записи")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "User ID", rows[0][0])
	assert.Equal(t, []string{"1", "Анна", "Пн, 19.01", "curr_mon", "11:00", "2026-01-14 12:30:00"}, rows[1])
	assert.Equal(t, "Мария", rows[2][1])
}

func TestBuildWorkbookEmpty(t *testing.T) {
	data, err := BuildWorkbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Записи")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}

func TestExportFileName(t *testing.T) {
	now := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "bookings_2026-01-14.xlsx", ExportFileName(now))
}
