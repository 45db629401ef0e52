package calendar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bookwise/internal/domain"
	"bookwise/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Exporter выгружает календарь компании за период в Excel файл.
type Exporter struct {
	repo      domain.Repository
	snapshots domain.SnapshotBuilder
	path      string
	logger    *zerolog.Logger
}

func NewExporter(repo domain.Repository, snapshots domain.SnapshotBuilder, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{repo: repo, snapshots: snapshots, path: path, logger: logger}
}

// ExportCalendar создает Excel файл с расписаниями компании за период.
// Расписания без сохранённого снимка материализуются на лету.
func (e *Exporter) ExportCalendar(ctx context.Context, companyID int64, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	schedules, err := e.repo.GetSchedulesByDateRange(ctx, companyID, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting schedules: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Календарь"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Период: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	headers := []string{"Дата", "Время", "Событие", "Клиент", "Персонал", "Статус", "Оплата"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	row := 3
	for _, schedule := range schedules {
		snapshot := schedule.Snapshot
		if snapshot == nil {
			bindings, err := e.repo.GetScheduleBindings(ctx, schedule.ID)
			if err != nil {
				return "", fmt.Errorf("error getting bindings: %v", err)
			}
			snapshot, err = e.snapshots.Materialize(ctx, schedule, bindings)
			if err != nil {
				e.logger.Warn().Err(err).Int64("schedule_id", schedule.ID).Msg("Снимок не собрался, строка пропущена")
				continue
			}
		}
		e.writeSnapshotRow(f, sheetName, row, snapshot)
		row++
	}

	_ = f.SetColWidth(sheetName, "A", "B", 14)
	_ = f.SetColWidth(sheetName, "C", "E", 28)
	_ = f.SetColWidth(sheetName, "F", "G", 12)
	_ = f.MergeCell(sheetName, "A1", "G1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("calendar_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("rows", row-3).Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) writeSnapshotRow(f *excelize.File, sheetName string, row int, snapshot *models.CalendarSnapshot) {
	paid := "нет"
	if snapshot.IsPaid {
		paid = "да"
	}

	names := make([]string, 0, len(snapshot.AssignedPersonnel))
	for _, p := range snapshot.AssignedPersonnel {
		names = append(names, strings.TrimSpace(p.FirstName+" "+p.LastName))
	}

	values := []interface{}{
		snapshot.Window.Start.Format("02.01.2006"),
		fmt.Sprintf("%s - %s", snapshot.Window.Start.Format("15:04"), snapshot.Window.End.Format("15:04")),
		snapshot.Title,
		strings.TrimSpace(snapshot.Customer.FirstName + " " + snapshot.Customer.LastName),
		strings.Join(names, ", "),
		snapshot.Status,
		paid,
	}
	for i, value := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheetName, cell, value)
	}
}
