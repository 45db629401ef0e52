package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookwise/internal/models"
)

func (db *DB) CreateService(ctx context.Context, service *models.Service) error {
	query := `INSERT INTO services (company_id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, service.CompanyID, service.Name, now, now)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	service.ID = id
	service.CreatedAt = now
	service.UpdatedAt = now

	for i := range service.Requirements {
		service.Requirements[i].ServiceID = id
		service.Requirements[i].CompanyID = service.CompanyID
		if err := db.CreateRequirement(ctx, &service.Requirements[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetService возвращает услугу с предзагруженными требованиями.
func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	var service models.Service
	query := `SELECT id, company_id, name, created_at, updated_at FROM services WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&service.ID, &service.CompanyID, &service.Name, &service.CreatedAt, &service.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}

	requirements, err := db.GetServiceRequirements(ctx, id)
	if err != nil {
		return nil, err
	}
	service.Requirements = requirements

	return &service, nil
}

func (db *DB) CreateRequirement(ctx context.Context, req *models.ServiceResourceRequirement) error {
	query := `INSERT INTO service_resource_requirements (
				service_id, company_id, type, name, required_quantity,
				preparation_minutes, finalization_minutes, resource_id, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		req.ServiceID,
		req.CompanyID,
		req.Type,
		req.Name,
		req.RequiredQuantity,
		req.PreparationMinutes,
		req.FinalizationMinutes,
		req.ResourceID,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create requirement: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	req.ID = id

	// Порядок пула фиксируется явно: от него зависит, кого дублирует переаллокация
	for position, personnelID := range req.PersonnelIDs {
		poolQuery := `INSERT INTO requirement_personnel (requirement_id, personnel_id, position) VALUES (?, ?, ?)`
		if _, err := db.ExecContext(ctx, poolQuery, id, personnelID, position); err != nil {
			return fmt.Errorf("failed to add personnel %d to requirement pool: %w", personnelID, err)
		}
	}
	return nil
}

func (db *DB) GetServiceRequirements(ctx context.Context, serviceID int64) ([]models.ServiceResourceRequirement, error) {
	query := `SELECT id, service_id, company_id, type, name, required_quantity,
	                 preparation_minutes, finalization_minutes, COALESCE(resource_id, 0)
              FROM service_resource_requirements WHERE service_id = ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get service requirements: %w", err)
	}
	defer rows.Close()

	var requirements []models.ServiceResourceRequirement
	for rows.Next() {
		var req models.ServiceResourceRequirement
		err := rows.Scan(
			&req.ID, &req.ServiceID, &req.CompanyID, &req.Type, &req.Name,
			&req.RequiredQuantity, &req.PreparationMinutes, &req.FinalizationMinutes, &req.ResourceID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		requirements = append(requirements, req)
	}

	for i := range requirements {
		if requirements[i].Type != models.ResourcePersonnel {
			continue
		}
		pool, err := db.getRequirementPersonnel(ctx, requirements[i].ID)
		if err != nil {
			return nil, err
		}
		requirements[i].PersonnelIDs = pool
	}
	return requirements, nil
}

func (db *DB) getRequirementPersonnel(ctx context.Context, requirementID int64) ([]int64, error) {
	query := `SELECT personnel_id FROM requirement_personnel WHERE requirement_id = ? ORDER BY position ASC`
	rows, err := db.QueryContext(ctx, query, requirementID)
	if err != nil {
		return nil, fmt.Errorf("failed to get requirement personnel: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan personnel id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
