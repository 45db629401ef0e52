package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"bookwise/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type DB struct {
	*sql.DB
	mu             sync.RWMutex
	resourcesCache map[int64]models.Resource
	logger         *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	// Создаем директорию для БД, если её нет
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, resourcesCache: make(map[int64]models.Resource), logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Услуги и их требования к ресурсам
		`CREATE TABLE IF NOT EXISTS services (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            company_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS service_resource_requirements (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            service_id INTEGER NOT NULL,
            company_id INTEGER NOT NULL,
            type TEXT NOT NULL,
            name TEXT NOT NULL,
            required_quantity INTEGER NOT NULL DEFAULT 1,
            preparation_minutes INTEGER NOT NULL DEFAULT 0,
            finalization_minutes INTEGER NOT NULL DEFAULT 0,
            resource_id INTEGER,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Пул сотрудников требования, порядок важен для политики переаллокации
		`CREATE TABLE IF NOT EXISTS requirement_personnel (
            requirement_id INTEGER NOT NULL,
            personnel_id INTEGER NOT NULL,
            position INTEGER NOT NULL DEFAULT 0,
            PRIMARY KEY (requirement_id, personnel_id)
        )`,
		`CREATE TABLE IF NOT EXISTS personnel (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            company_id INTEGER NOT NULL,
            first_name TEXT NOT NULL,
            last_name TEXT,
            email TEXT,
            status TEXT NOT NULL DEFAULT 'ACTIVE',
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Пулы инструментов и расходников, quantity = ёмкость пула
		`CREATE TABLE IF NOT EXISTS resources (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            company_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            type TEXT NOT NULL,
            quantity INTEGER NOT NULL DEFAULT 0,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS customers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            company_id INTEGER NOT NULL,
            first_name TEXT NOT NULL,
            last_name TEXT,
            email TEXT,
            phone TEXT,
            status TEXT NOT NULL DEFAULT 'ACTIVE',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            ref TEXT NOT NULL,
            company_id INTEGER NOT NULL,
            customer_id INTEGER NOT NULL,
            service_id INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'ACTIVE',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS schedules (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            guid TEXT NOT NULL DEFAULT '',
            display_id TEXT NOT NULL DEFAULT '',
            booking_id INTEGER NOT NULL,
            service_id INTEGER NOT NULL,
            company_id INTEGER NOT NULL,
            name TEXT NOT NULL DEFAULT '',
            start_at DATETIME NOT NULL,
            end_at DATETIME NOT NULL,
            status TEXT NOT NULL DEFAULT 'DRAFT',
            is_paid BOOLEAN NOT NULL DEFAULT 0,
            payment_method TEXT NOT NULL DEFAULT 'AT_COUNTER',
            payment_id INTEGER NOT NULL DEFAULT 0,
            payment_data TEXT,
            notes TEXT NOT NULL DEFAULT '',
            snapshot TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS schedule_resource_bindings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            schedule_id INTEGER NOT NULL,
            type TEXT NOT NULL,
            resource_id INTEGER NOT NULL,
            allocated_quantity INTEGER NOT NULL DEFAULT 1,
            preparation_minutes INTEGER NOT NULL DEFAULT 0,
            finalization_minutes INTEGER NOT NULL DEFAULT 0,
            company_id INTEGER NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS booking_payments (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id INTEGER NOT NULL,
            session_count INTEGER NOT NULL DEFAULT 1,
            paid BOOLEAN NOT NULL DEFAULT 0,
            payment_method TEXT NOT NULL DEFAULT 'AT_COUNTER',
            payment_link TEXT,
            invoice_pdf_url TEXT,
            paid_at DATETIME,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            schedule_id INTEGER NOT NULL,
            payload TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_resources_company_name ON resources(company_id, name)`,
		`CREATE INDEX IF NOT EXISTS idx_requirements_service_id ON service_resource_requirements(service_id)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_booking_id ON schedules(booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_company_window ON schedules(company_id, start_at, end_at)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_status ON schedules(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bindings_schedule_id ON schedule_resource_bindings(schedule_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bindings_type_resource ON schedule_resource_bindings(type, resource_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_booking_id ON booking_payments(booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, next_retry_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// SetResources наполняет кэш пулов для быстрых проверок ёмкости.
func (db *DB) SetResources(resources []models.Resource) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.resourcesCache = make(map[int64]models.Resource, len(resources))
	for _, r := range resources {
		db.resourcesCache[r.ID] = r
	}
}

func (db *DB) cachedResource(id int64) (models.Resource, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	r, ok := db.resourcesCache[id]
	return r, ok
}

func (db *DB) Close() error {
	return db.DB.Close()
}
