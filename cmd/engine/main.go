package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"bookwise/internal/allocation"
	"bookwise/internal/availability"
	"bookwise/internal/calendar"
	"bookwise/internal/config"
	"bookwise/internal/database"
	"bookwise/internal/domain"
	"bookwise/internal/events"
	"bookwise/internal/google"
	"bookwise/internal/logging"
	"bookwise/internal/metrics"
	"bookwise/internal/models"
	"bookwise/internal/repository"
	"bookwise/internal/service"
	"bookwise/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, resources, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, resources, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, snapshotCache := initSnapshotCache(ctx, cfg, &logger)

	// Воркер синхронизации календаря в Google Sheets
	var syncWorker *worker.CalendarSyncWorker
	if cfg.Engine.SheetsSyncEnabled {
		sheetsWriter, err := initCalendarWriter(ctx, cfg, &logger)
		if err != nil {
			return err
		}
		retryPolicy := worker.RetryPolicy{
			MaxRetries:    cfg.Engine.MaxSyncRetries,
			InitialDelay:  2 * time.Second,
			MaxDelay:      time.Minute,
			BackoffFactor: 2,
		}
		syncWorker = worker.NewCalendarSyncWorker(db, sheetsWriter, redisClient, cfg.Engine.CompanyID, retryPolicy, nil)
		go syncWorker.Start(ctx)
	}

	eventBus := events.NewEventBus()
	subscribeScheduleEvents(eventBus, &logger)

	// Инициализация движка
	snapshotBuilder := calendar.NewBuilder(db, nil, &logger)
	checker := availability.NewChecker(db, &logger)
	allocator := allocation.NewAllocator(db, snapshotBuilder, snapshotCache, &logger)

	var workerIface domain.SyncWorker
	if syncWorker != nil {
		workerIface = syncWorker
	}
	scheduleService := service.NewScheduleService(db, checker, allocator, snapshotBuilder, snapshotCache, eventBus, nil, workerIface, &logger)
	resourceService := service.NewResourceService(db, resources, &logger)

	logger.Info().
		Int("active_resources", len(resourceService.GetActiveResources(ctx))).
		Msg("Каталог ресурсов загружен")

	// Прогреваем кэш снимков и ставим полную пересборку листа на ближайшую неделю
	go warmUpCalendar(ctx, cfg, scheduleService, syncWorker, &logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	metrics.Register()
	go startMonitoringServer(ctx, cfg, db, redisClient, &logger)

	logger.Info().
		Str("db", cfg.Database.Path).
		Int64("company_id", cfg.Engine.CompanyID).
		Bool("sheets_sync", cfg.Engine.SheetsSyncEnabled).
		Msg("Движок распределения запущен")

	<-ctx.Done()
	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, []models.Resource, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "engine-main").Logger()

	resourcesPath := os.Getenv("RESOURCES_PATH")
	if resourcesPath == "" {
		resourcesPath = cfg.Engine.ResourcesFile
	}
	if resourcesPath == "" {
		resourcesPath = "configs/resources.yaml"
	}
	resourcesData, err := os.ReadFile(resourcesPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Ошибка чтения %s", resourcesPath)
		return nil, nil, zerolog.Logger{}, closer, err
	}

	var resourcesConfig struct {
		Resources []models.Resource `yaml:"resources"`
	}
	if err := yaml.Unmarshal(resourcesData, &resourcesConfig); err != nil {
		logger.Error().Err(err).Msg("Ошибка парсинга resources.yaml")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	if err := config.ValidateResources(resourcesConfig.Resources); err != nil {
		logger.Error().Err(err).Msg("Resources validation failed")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	return cfg, resourcesConfig.Resources, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

func initDatabase(cfg *config.Config, resources []models.Resource, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return nil, err
	}

	for i := range resources {
		if resources[i].CompanyID == 0 {
			resources[i].CompanyID = cfg.Engine.CompanyID
		}
	}
	if err := db.SyncResources(context.Background(), resources); err != nil {
		logger.Error().Err(err).Msg("Ошибка синхронизации каталога ресурсов")
	}
	return db, nil
}

func initCalendarWriter(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*google.CalendarSheetWriter, error) {
	writer, err := google.NewCalendarSheetWriter(
		cfg.Google.GoogleCredentialsFile,
		cfg.Google.CalendarSpreadSheetID,
	)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Google Sheets writer")
		return nil, err
	}

	if err := writer.TestConnection(ctx); err != nil {
		logger.Error().Err(err).Msg("Google Sheets connection test failed")
		return nil, err
	}

	logger.Info().Msg("Google Sheets writer initialized successfully")
	return writer, nil
}

func initSnapshotCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.SnapshotCache) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	ttl := time.Duration(cfg.Engine.SnapshotTTLSeconds) * time.Second
	primary := repository.NewRedisSnapshotCache(redisClient, ttl)
	fallback := repository.NewMemorySnapshotCache(ttl)
	return redisClient, repository.NewFailoverSnapshotCache(primary, fallback, logger)
}

func warmUpCalendar(ctx context.Context, cfg *config.Config, schedules *service.ScheduleService, syncWorker *worker.CalendarSyncWorker, logger *zerolog.Logger) {
	from := time.Now().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, 7)

	snapshots, err := schedules.GetCalendar(ctx, cfg.Engine.CompanyID, from, to)
	if err != nil {
		logger.Warn().Err(err).Msg("Прогрев кэша календаря не удался")
		return
	}
	logger.Info().Int("snapshots", len(snapshots)).Msg("Кэш календаря прогрет")

	if syncWorker != nil {
		if err := syncWorker.EnqueueSyncCalendar(ctx, from, to); err != nil {
			logger.Warn().Err(err).Msg("Не удалось поставить пересборку листа календаря")
		}
	}
}

func subscribeScheduleEvents(bus *events.EventBus, logger *zerolog.Logger) {
	if bus == nil {
		return
	}

	bus.Subscribe(events.EventSnapshotDegraded, func(ev *events.Event) error {
		var payload events.ScheduleEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		logger.Warn().
			Int64("schedule_id", payload.ScheduleID).
			Str("schedule_guid", payload.ScheduleGUID).
			Msg("event bus: schedule degraded, snapshot stale")
		return nil
	})
}

func startMonitoringServer(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) {
	port := cfg.Monitoring.HealthCheckPort
	if cfg.Monitoring.PrometheusEnabled && cfg.Monitoring.PrometheusPort != 0 {
		port = cfg.Monitoring.PrometheusPort
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK

		if err := db.PingContext(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if redisClient != nil {
			if err := repository.Ping(r.Context(), redisClient); err != nil {
				status["redis"] = err.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("monitoring server error")
	}
}
