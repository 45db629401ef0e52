package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookwise/internal/models"
)

const scheduleColumns = `id, guid, display_id, booking_id, service_id, company_id, name,
                 start_at, end_at, status, is_paid, payment_method, payment_id,
                 payment_data, notes, snapshot, created_at, updated_at, version`

func (db *DB) CreateSchedule(ctx context.Context, schedule *models.Schedule) error {
	if !schedule.Window().Valid() {
		return ErrInvalidWindow
	}
	if schedule.Status == "" {
		schedule.Status = models.ScheduleStatusDraft
	}
	if schedule.PaymentMethod == "" {
		schedule.PaymentMethod = models.PaymentMethodAtCounter
	}

	paymentData, err := marshalPaymentData(schedule.PaymentData)
	if err != nil {
		return err
	}

	query := `INSERT INTO schedules (
				guid, display_id, booking_id, service_id, company_id, name,
				start_at, end_at, status, is_paid, payment_method, payment_id,
				payment_data, notes, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		schedule.GUID,
		schedule.DisplayID,
		schedule.BookingID,
		schedule.ServiceID,
		schedule.CompanyID,
		schedule.Name,
		schedule.Start,
		schedule.End,
		schedule.Status,
		schedule.IsPaid,
		schedule.PaymentMethod,
		schedule.PaymentID,
		paymentData,
		schedule.Notes,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	schedule.ID = id
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	schedule.Version = 1
	return nil
}

func (db *DB) UpdateSchedule(ctx context.Context, schedule *models.Schedule) error {
	if !schedule.Window().Valid() {
		return ErrInvalidWindow
	}

	paymentData, err := marshalPaymentData(schedule.PaymentData)
	if err != nil {
		return err
	}

	query := `UPDATE schedules SET
				guid = ?, display_id = ?, name = ?, start_at = ?, end_at = ?, status = ?,
				is_paid = ?, payment_method = ?, payment_id = ?, payment_data = ?, notes = ?,
				version = version + 1, updated_at = ?
			  WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query,
		schedule.GUID,
		schedule.DisplayID,
		schedule.Name,
		schedule.Start,
		schedule.End,
		schedule.Status,
		schedule.IsPaid,
		schedule.PaymentMethod,
		schedule.PaymentID,
		paymentData,
		schedule.Notes,
		time.Now(),
		schedule.ID,
		schedule.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	schedule.Version++
	return nil
}

func (db *DB) GetSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ?`
	return db.querySchedule(ctx, query, id)
}

func (db *DB) GetScheduleByGUID(ctx context.Context, guid string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE guid = ?`
	return db.querySchedule(ctx, query, guid)
}

func (db *DB) querySchedule(ctx context.Context, query string, args ...interface{}) (*models.Schedule, error) {
	row := db.QueryRowContext(ctx, query, args...)
	schedule, err := scanSchedule(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return schedule, nil
}

// GetBookingSchedules возвращает расписания брони хронологически, раньше - первыми.
// Порядок обязателен для распределения платежа по сеансам.
func (db *DB) GetBookingSchedules(ctx context.Context, bookingID int64) ([]*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE booking_id = ? ORDER BY start_at ASC, id ASC`
	rows, err := db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, schedule)
	}
	return schedules, nil
}

// GetSchedulesByDateRange возвращает расписания компании в окне [from, to)
// для экспорта и синхронизации календаря.
func (db *DB) GetSchedulesByDateRange(ctx context.Context, companyID int64, from, to time.Time) ([]*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules
              WHERE company_id = ? AND end_at > ? AND start_at < ?
              ORDER BY start_at ASC, id ASC`
	rows, err := db.QueryContext(ctx, query, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedules by date range: %w", err)
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, schedule)
	}
	return schedules, nil
}

func (db *DB) CountBookingSchedules(ctx context.Context, bookingID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schedules WHERE booking_id = ?`, bookingID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count booking schedules: %w", err)
	}
	return count, nil
}

// GetOverlappingSchedules находит расписания компании, чьи сырые окна пересекают
// [from, to) строго и которые держат привязку нужного типа (и ресурса, если задан).
// Считаются только конкурирующие статусы; терминальные ресурсы не блокируют.
// Привязки возвращаются предзагруженными.
func (db *DB) GetOverlappingSchedules(
	ctx context.Context,
	companyID int64,
	resourceType models.ResourceType,
	resourceID int64,
	from, to time.Time,
	excludedScheduleIDs []int64,
) ([]*models.Schedule, map[int64][]models.ScheduleResourceBinding, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT DISTINCT s.id, s.guid, s.display_id, s.booking_id, s.service_id, s.company_id, s.name,
                     s.start_at, s.end_at, s.status, s.is_paid, s.payment_method, s.payment_id,
                     s.payment_data, s.notes, s.snapshot, s.created_at, s.updated_at, s.version
              FROM schedules s
              JOIN schedule_resource_bindings b ON b.schedule_id = s.id
              WHERE s.company_id = ?
                AND s.end_at > ? AND s.start_at < ?
                AND s.status IN (?, ?, ?)
                AND b.type = ?`)
	args := []interface{}{
		companyID, from, to,
		models.ScheduleStatusDraft, models.ScheduleStatusPending, models.ScheduleStatusActive,
		resourceType,
	}

	if resourceID != 0 {
		sb.WriteString(` AND b.resource_id = ?`)
		args = append(args, resourceID)
	}
	if len(excludedScheduleIDs) > 0 {
		sb.WriteString(` AND s.id NOT IN (` + placeholders(len(excludedScheduleIDs)) + `)`)
		for _, id := range excludedScheduleIDs {
			args = append(args, id)
		}
	}
	sb.WriteString(` ORDER BY s.start_at ASC`)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get overlapping schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*models.Schedule
	var ids []int64
	for rows.Next() {
		schedule, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, schedule)
		ids = append(ids, schedule.ID)
	}

	bindings, err := db.GetBindingsForSchedules(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return schedules, bindings, nil
}

// UpdateScheduleSnapshot сохраняет снимок календаря последним шагом аллокации.
func (db *DB) UpdateScheduleSnapshot(ctx context.Context, scheduleID int64, snapshot *models.CalendarSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `UPDATE schedules SET snapshot = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, string(data), time.Now(), scheduleID)
	if err != nil {
		return fmt.Errorf("failed to update schedule snapshot: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func marshalPaymentData(data *models.PaymentData) (interface{}, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment data: %w", err)
	}
	return string(raw), nil
}

func scanSchedule(scan func(dest ...interface{}) error) (*models.Schedule, error) {
	var s models.Schedule
	var paymentData, snapshot sql.NullString
	err := scan(
		&s.ID, &s.GUID, &s.DisplayID, &s.BookingID, &s.ServiceID, &s.CompanyID, &s.Name,
		&s.Start, &s.End, &s.Status, &s.IsPaid, &s.PaymentMethod, &s.PaymentID,
		&paymentData, &s.Notes, &snapshot, &s.CreatedAt, &s.UpdatedAt, &s.Version,
	)
	if err != nil {
		return nil, err
	}

	if paymentData.Valid && paymentData.String != "" {
		var pd models.PaymentData
		if err := json.Unmarshal([]byte(paymentData.String), &pd); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payment data: %w", err)
		}
		s.PaymentData = &pd
	}
	if snapshot.Valid && snapshot.String != "" {
		var snap models.CalendarSnapshot
		if err := json.Unmarshal([]byte(snapshot.String), &snap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		s.Snapshot = &snap
	}
	return &s, nil
}
