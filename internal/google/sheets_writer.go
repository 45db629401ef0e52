package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"bookwise/internal/models"

	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const calendarSheetName = "Календарь"

var errRowNotFound = errors.New("schedule row not found")

// CalendarSheetWriter публикует снимки календаря в Google Sheets.
// Строки идентифицируются по GUID расписания в колонке A.
type CalendarSheetWriter struct {
	service       *sheets.Service
	spreadsheetID string
	limiter       *rate.Limiter
	rowCache      map[string]int
	cacheMu       sync.RWMutex
}

func NewCalendarSheetWriter(credentialsFile, spreadsheetID string) (*CalendarSheetWriter, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	writer := &CalendarSheetWriter{
		service:       srv,
		spreadsheetID: spreadsheetID,
		limiter:       rate.NewLimiter(rate.Limit(models.SheetsRateLimitRPS), 1),
		rowCache:      make(map[string]int),
	}

	// Warm up cache in background
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		writer.WarmUpCache(ctx)
	}()

	return writer, nil
}

// TestConnection проверяет доступ к таблице
func (w *CalendarSheetWriter) TestConnection(ctx context.Context) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := w.service.Spreadsheets.Values.Get(w.spreadsheetID, calendarSheetName+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail возвращает email сервисного аккаунта
func (w *CalendarSheetWriter) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}

	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}

// WarmUpCache читает колонку GUID и строит индекс строк.
func (w *CalendarSheetWriter) WarmUpCache(ctx context.Context) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := w.service.Spreadsheets.Values.Get(w.spreadsheetID, calendarSheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	w.cacheMu.Lock()
	defer w.cacheMu.Unlock()
	w.rowCache = make(map[string]int)

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		guid, ok := row[0].(string)
		if !ok || guid == "" {
			continue
		}
		w.rowCache[guid] = i + 1
	}
	return nil
}

// UpsertScheduleRow updates the snapshot's row or appends a new one if not found.
func (w *CalendarSheetWriter) UpsertScheduleRow(ctx context.Context, snapshot *models.CalendarSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if snapshot.ScheduleGUID == "" {
		return fmt.Errorf("snapshot has no schedule guid")
	}

	rowIdx, err := w.findScheduleRow(ctx, snapshot.ScheduleGUID)
	if err != nil {
		if errors.Is(err, errRowNotFound) {
			return w.appendRow(ctx, snapshot)
		}
		return err
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}
	rangeData := fmt.Sprintf("%s!A%d:H%d", calendarSheetName, rowIdx, rowIdx)
	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{snapshotRowValues(snapshot)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// ReplaceCalendar перезаписывает лист целиком набором снимков.
func (w *CalendarSheetWriter) ReplaceCalendar(ctx context.Context, snapshots []*models.CalendarSnapshot) error {
	values := [][]interface{}{
		{"GUID", "Дата", "Время", "Событие", "Клиент", "Персонал", "Статус", "Оплата"},
	}
	for _, snapshot := range snapshots {
		if snapshot == nil {
			continue
		}
		values = append(values, snapshotRowValues(snapshot))
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}
	clearRange := calendarSheetName + "!A:H"
	if _, err := w.service.Spreadsheets.Values.Clear(w.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear calendar sheet: %v", err)
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := w.service.Spreadsheets.Values.Update(w.spreadsheetID, calendarSheetName+"!A1", &sheets.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write calendar sheet: %v", err)
	}

	// Перестраиваем кэш по новому содержимому
	w.cacheMu.Lock()
	w.rowCache = make(map[string]int)
	for i, row := range values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if guid, ok := row[0].(string); ok && guid != "" {
			w.rowCache[guid] = i + 1
		}
	}
	w.cacheMu.Unlock()

	return nil
}

func (w *CalendarSheetWriter) appendRow(ctx context.Context, snapshot *models.CalendarSnapshot) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := w.service.Spreadsheets.Values.Append(w.spreadsheetID, calendarSheetName+"!A:A", &sheets.ValueRange{
		Values: [][]interface{}{snapshotRowValues(snapshot)},
	}).ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// findScheduleRow locates the 1-based row index for a schedule GUID, with cache.
func (w *CalendarSheetWriter) findScheduleRow(ctx context.Context, guid string) (int, error) {
	if row, ok := w.getCachedRow(guid); ok {
		return row, nil
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	resp, err := w.service.Spreadsheets.Values.Get(w.spreadsheetID, calendarSheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if v, ok := row[0].(string); ok && v == guid {
			rowIdx := i + 1 // Values are zero-based; sheet rows are 1-based
			w.setCachedRow(guid, rowIdx)
			return rowIdx, nil
		}
	}

	return 0, errRowNotFound
}

func (w *CalendarSheetWriter) getCachedRow(guid string) (int, bool) {
	w.cacheMu.RLock()
	defer w.cacheMu.RUnlock()
	row, ok := w.rowCache[guid]
	return row, ok
}

func (w *CalendarSheetWriter) setCachedRow(guid string, row int) {
	w.cacheMu.Lock()
	defer w.cacheMu.Unlock()
	w.rowCache[guid] = row
}

// ClearCache сбрасывает индекс строк.
func (w *CalendarSheetWriter) ClearCache() {
	w.cacheMu.Lock()
	defer w.cacheMu.Unlock()
	w.rowCache = make(map[string]int)
}

func snapshotRowValues(snapshot *models.CalendarSnapshot) []interface{} {
	personnel := make([]string, 0, len(snapshot.AssignedPersonnel))
	for _, p := range snapshot.AssignedPersonnel {
		personnel = append(personnel, strings.TrimSpace(p.FirstName+" "+p.LastName))
	}

	paid := "нет"
	if snapshot.IsPaid {
		paid = "да"
	}

	return []interface{}{
		snapshot.ScheduleGUID,
		snapshot.Window.Start.Format("2006-01-02"),
		fmt.Sprintf("%s - %s", snapshot.Window.Start.Format("15:04"), snapshot.Window.End.Format("15:04")),
		snapshot.Title,
		strings.TrimSpace(snapshot.Customer.FirstName + " " + snapshot.Customer.LastName),
		strings.Join(personnel, ", "),
		snapshot.Status,
		paid,
	}
}
