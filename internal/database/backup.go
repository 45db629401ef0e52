package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bookwise/internal/config"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

const backupFilePrefix = "bookwise_"

// BackupService периодически снимает копию sqlite базы через VACUUM INTO
// и подчищает устаревшие файлы по retention_days.
type BackupService struct {
	dbPath string
	config config.BackupConfig
	logger *zerolog.Logger
}

func NewBackupService(dbPath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{
		dbPath: dbPath,
		config: cfg,
		logger: logger,
	}
}

func (s *BackupService) interval() time.Duration {
	if s.config.Schedule == "" {
		return 24 * time.Hour
	}
	d, err := time.ParseDuration(s.config.Schedule)
	if err != nil {
		s.logger.Warn().Err(err).Str("schedule", s.config.Schedule).Msg("не удалось разобрать расписание бэкапа, берем 24h")
		return 24 * time.Hour
	}
	return d
}

// Start блокируется до отмены контекста. Первый бэкап снимается сразу.
func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("бэкапы выключены")
		return
	}

	interval := s.interval()
	s.logger.Info().Dur("interval", interval).Str("path", s.config.StoragePath).Msg("сервис бэкапов запущен")

	if err := s.PerformBackup(); err != nil {
		s.logger.Error().Err(err).Msg("стартовый бэкап не удался")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PerformBackup(); err != nil {
				s.logger.Error().Err(err).Msg("плановый бэкап не удался")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup снимает копию базы в StoragePath. VACUUM INTO дает
// консистентный снимок при живых писателях; файловое копирование — запасной
// путь на случай старого sqlite.
func (s *BackupService) PerformBackup() error {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := backupFilePrefix + time.Now().Format("20060102_150405") + ".db"
	target := filepath.Join(s.config.StoragePath, name)

	if err := s.vacuumInto(target); err != nil {
		s.logger.Warn().Err(err).Msg("VACUUM INTO не сработал, копируем файл")
		if err := s.copyDatabaseFile(target); err != nil {
			return fmt.Errorf("fallback copy: %w", err)
		}
	}

	s.logger.Info().Str("file", name).Msg("бэкап готов")
	return nil
}

func (s *BackupService) vacuumInto(target string) error {
	db, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("open source database: %w", err)
	}
	defer db.Close()

	_, err = db.Exec(fmt.Sprintf("VACUUM INTO '%s'", target))
	return err
}

// copyDatabaseFile не атомарен для sqlite: при одновременной записи копия
// может выйти битой. Используется только когда VACUUM INTO недоступен.
func (s *BackupService) copyDatabaseFile(target string) error {
	source, err := os.Open(s.dbPath)
	if err != nil {
		return err
	}
	defer source.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, source)
	return err
}

// CleanupOldBackups удаляет файлы с нашим префиксом старше retention_days.
// Чужие файлы в каталоге не трогаем.
func (s *BackupService) CleanupOldBackups() {
	if s.config.RetentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("не удалось прочитать каталог бэкапов")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), backupFilePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		s.logger.Info().Str("file", entry.Name()).Msg("удаляем старый бэкап")
		os.Remove(filepath.Join(s.config.StoragePath, entry.Name()))
	}
}
