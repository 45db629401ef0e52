package database

import (
	"context"
	"fmt"
	"time"

	"bookwise/internal/models"
)

// ReplaceScheduleBindings атомарно заменяет весь набор привязок расписания.
// Вставка новых и удаление прежних идут в одной транзакции: читатель видит
// либо старый набор целиком, либо новый, но не смесь.
func (db *DB) ReplaceScheduleBindings(ctx context.Context, scheduleID int64, bindings []models.ScheduleResourceBinding) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	newIDs := make([]int64, 0, len(bindings))

	queryInsert := `INSERT INTO schedule_resource_bindings (
				schedule_id, type, resource_id, allocated_quantity,
				preparation_minutes, finalization_minutes, company_id, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for i := range bindings {
		bindings[i].ScheduleID = scheduleID
		result, err := tx.ExecContext(ctx, queryInsert,
			bindings[i].ScheduleID,
			bindings[i].Type,
			bindings[i].ResourceID,
			bindings[i].AllocatedQuantity,
			bindings[i].PreparationMinutes,
			bindings[i].FinalizationMinutes,
			bindings[i].CompanyID,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert binding in tx: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id in tx: %w", err)
		}
		bindings[i].ID = id
		bindings[i].CreatedAt = now
		newIDs = append(newIDs, id)
	}

	// Удаляем вытесненный набор после успешной вставки нового
	queryDelete := `DELETE FROM schedule_resource_bindings WHERE schedule_id = ?`
	args := []interface{}{scheduleID}
	if len(newIDs) > 0 {
		queryDelete += ` AND id NOT IN (` + placeholders(len(newIDs)) + `)`
		for _, id := range newIDs {
			args = append(args, id)
		}
	}
	if _, err := tx.ExecContext(ctx, queryDelete, args...); err != nil {
		return fmt.Errorf("failed to delete superseded bindings in tx: %w", err)
	}

	return tx.Commit()
}

func (db *DB) GetScheduleBindings(ctx context.Context, scheduleID int64) ([]models.ScheduleResourceBinding, error) {
	query := `SELECT id, schedule_id, type, resource_id, allocated_quantity,
	                 preparation_minutes, finalization_minutes, company_id, created_at
              FROM schedule_resource_bindings WHERE schedule_id = ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule bindings: %w", err)
	}
	defer rows.Close()

	var bindings []models.ScheduleResourceBinding
	for rows.Next() {
		var b models.ScheduleResourceBinding
		err := rows.Scan(
			&b.ID, &b.ScheduleID, &b.Type, &b.ResourceID, &b.AllocatedQuantity,
			&b.PreparationMinutes, &b.FinalizationMinutes, &b.CompanyID, &b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan binding: %w", err)
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}

// GetBindingsForSchedules пакетно загружает привязки для набора расписаний.
func (db *DB) GetBindingsForSchedules(ctx context.Context, scheduleIDs []int64) (map[int64][]models.ScheduleResourceBinding, error) {
	result := make(map[int64][]models.ScheduleResourceBinding)
	if len(scheduleIDs) == 0 {
		return result, nil
	}

	query := `SELECT id, schedule_id, type, resource_id, allocated_quantity,
	                 preparation_minutes, finalization_minutes, company_id, created_at
              FROM schedule_resource_bindings WHERE schedule_id IN (` + placeholders(len(scheduleIDs)) + `) ORDER BY id ASC`

	args := make([]interface{}, len(scheduleIDs))
	for i, id := range scheduleIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get bindings for schedules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b models.ScheduleResourceBinding
		err := rows.Scan(
			&b.ID, &b.ScheduleID, &b.Type, &b.ResourceID, &b.AllocatedQuantity,
			&b.PreparationMinutes, &b.FinalizationMinutes, &b.CompanyID, &b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan binding: %w", err)
		}
		result[b.ScheduleID] = append(result[b.ScheduleID], b)
	}
	return result, nil
}
