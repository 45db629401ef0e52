package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookwise/internal/models"
)

func (db *DB) CreateResource(ctx context.Context, resource *models.Resource) error {
	query := `INSERT INTO resources (company_id, name, type, quantity, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		resource.CompanyID, resource.Name, resource.Type, resource.Quantity, resource.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	resource.ID = id
	resource.CreatedAt = now
	resource.UpdatedAt = now

	db.mu.Lock()
	db.resourcesCache[id] = *resource
	db.mu.Unlock()

	return nil
}

// GetResourceByID отвечает из кэша, при промахе идет в БД.
func (db *DB) GetResourceByID(ctx context.Context, id int64) (*models.Resource, error) {
	if cached, ok := db.cachedResource(id); ok {
		return &cached, nil
	}

	var resource models.Resource
	query := `SELECT id, company_id, name, type, quantity, is_active, created_at, updated_at
              FROM resources WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&resource.ID, &resource.CompanyID, &resource.Name, &resource.Type,
		&resource.Quantity, &resource.IsActive, &resource.CreatedAt, &resource.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}

	db.mu.Lock()
	db.resourcesCache[id] = resource
	db.mu.Unlock()

	return &resource, nil
}

// SyncResources выполняет upsert каталога пулов из seed-файла и
// перечитывает кэш. Вызывается один раз при старте.
func (db *DB) SyncResources(ctx context.Context, resources []models.Resource) error {
	query := `INSERT INTO resources (company_id, name, type, quantity, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(company_id, name) DO UPDATE SET
                type = excluded.type,
                quantity = excluded.quantity,
                is_active = excluded.is_active,
                updated_at = excluded.updated_at`
	now := time.Now()
	for _, r := range resources {
		if _, err := db.ExecContext(ctx, query, r.CompanyID, r.Name, r.Type, r.Quantity, r.IsActive, now, now); err != nil {
			return fmt.Errorf("failed to sync resource %q: %w", r.Name, err)
		}
	}

	rows, err := db.QueryContext(ctx, `SELECT id, company_id, name, type, quantity, is_active, created_at, updated_at FROM resources`)
	if err != nil {
		return fmt.Errorf("failed to reload resources: %w", err)
	}
	defer rows.Close()

	var all []models.Resource
	for rows.Next() {
		var r models.Resource
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.Name, &r.Type, &r.Quantity, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan resource: %w", err)
		}
		all = append(all, r)
	}
	db.SetResources(all)
	return nil
}

func (db *DB) GetActiveResources(ctx context.Context, companyID int64) ([]models.Resource, error) {
	query := `SELECT id, company_id, name, type, quantity, is_active, created_at, updated_at
              FROM resources WHERE company_id = ? AND is_active = 1 ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active resources: %w", err)
	}
	defer rows.Close()

	var resources []models.Resource
	for rows.Next() {
		var r models.Resource
		err := rows.Scan(&r.ID, &r.CompanyID, &r.Name, &r.Type, &r.Quantity, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, r)
	}
	return resources, nil
}

func (db *DB) CreatePersonnel(ctx context.Context, person *models.Personnel) error {
	query := `INSERT INTO personnel (company_id, first_name, last_name, email, status, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	if person.Status == "" {
		person.Status = "ACTIVE"
	}
	result, err := db.ExecContext(ctx, query,
		person.CompanyID, person.FirstName, person.LastName, person.Email, person.Status, person.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create personnel: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	person.ID = id
	person.CreatedAt = now
	person.UpdatedAt = now
	return nil
}

// GetPersonnelByIDs возвращает сотрудников в порядке запрошенных идентификаторов.
func (db *DB) GetPersonnelByIDs(ctx context.Context, ids []int64) ([]models.Personnel, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := fmt.Sprintf(`SELECT id, company_id, first_name, last_name, email, status, is_active, created_at, updated_at
              FROM personnel WHERE id IN (%s)`, placeholders)

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get personnel: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]models.Personnel, len(ids))
	for rows.Next() {
		var p models.Personnel
		err := rows.Scan(&p.ID, &p.CompanyID, &p.FirstName, &p.LastName, &p.Email, &p.Status, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan personnel: %w", err)
		}
		byID[p.ID] = p
	}

	var result []models.Personnel
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := byID[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}
