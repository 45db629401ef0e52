package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"bookwise/internal/database"
	"bookwise/internal/domain"
	"bookwise/internal/metrics"
	"bookwise/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	TaskUpsert       = "upsert"
	TaskSyncCalendar = "sync_calendar"
)

// calendarTaskPayload is persisted in SyncTask.Payload as JSON.
type calendarTaskPayload struct {
	ScheduleID int64                    `json:"schedule_id,omitempty"`
	Snapshot   *models.CalendarSnapshot `json:"snapshot,omitempty"`
	StartDate  time.Time                `json:"start_date,omitempty"`
	EndDate    time.Time                `json:"end_date,omitempty"`
}

// CalendarSyncWorker consumes sync_queue tasks and pushes calendar
// snapshots to the external spreadsheet.
type CalendarSyncWorker struct {
	db            *database.DB
	writer        domain.CalendarWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	companyID     int64
	logger        *log.Logger
}

// NewCalendarSyncWorker builds a worker with sane defaults.
func NewCalendarSyncWorker(db *database.DB, writer domain.CalendarWriter, redisClient *redis.Client, companyID int64, retry RetryPolicy, logger *log.Logger) *CalendarSyncWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if logger == nil {
		logger = log.Default()
	}

	return &CalendarSyncWorker{
		db:            db,
		writer:        writer,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.SyncTask, 128),
		redisQueueKey: "calendar:queue",
		deadLetterKey: "calendar:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		companyID:     companyID,
		logger:        logger,
	}
}

// EnqueueTask persists the task to DB and schedules it via redis or the
// in-memory queue.
func (w *CalendarSyncWorker) EnqueueTask(ctx context.Context, taskType string, scheduleID int64, snapshot *models.CalendarSnapshot) error {
	if taskType == "" {
		return errors.New("task type is required")
	}
	if scheduleID == 0 {
		return errors.New("schedule id is required")
	}

	payload := calendarTaskPayload{
		ScheduleID: scheduleID,
		Snapshot:   snapshot,
	}
	return w.enqueue(ctx, taskType, scheduleID, payload)
}

// EnqueueSyncCalendar schedules a full calendar rebuild for the period.
func (w *CalendarSyncWorker) EnqueueSyncCalendar(ctx context.Context, startDate, endDate time.Time) error {
	payload := calendarTaskPayload{
		StartDate: startDate,
		EndDate:   endDate,
	}
	return w.enqueue(ctx, TaskSyncCalendar, 0, payload)
}

func (w *CalendarSyncWorker) enqueue(ctx context.Context, taskType string, scheduleID int64, payload calendarTaskPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	syncTask := models.SyncTask{
		TaskType:   taskType,
		ScheduleID: scheduleID,
		Payload:    string(payloadBytes),
		Status:     "pending",
		CreatedAt:  time.Now(),
	}

	if err := w.db.CreateSyncTask(ctx, &syncTask); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	// Try redis first for durability.
	if w.redis != nil {
		if err := w.pushRedis(ctx, syncTask); err != nil {
			w.logger.Printf("calendar_worker: redis push failed, fallback to memory queue: %v", err)
		} else {
			return nil
		}
	}

	// Fallback to in-memory queue if redis missing or failed.
	select {
	case w.queue <- syncTask:
		metrics.SetSyncQueueDepth(len(w.queue))
	default:
		w.logger.Printf("calendar_worker: in-memory queue full, task %d dropped to polling", syncTask.ID)
	}

	return nil
}

// Start launches main loop; stops when ctx is done.
func (w *CalendarSyncWorker) Start(ctx context.Context) {
	w.logger.Printf("calendar_worker: started")
	defer w.logger.Printf("calendar_worker: stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.db.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Printf("calendar_worker: fetch pending: %v", err)
			time.Sleep(w.pollInterval)
			continue
		}
		if len(tasks) == 0 {
			time.Sleep(w.pollInterval)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *CalendarSyncWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		metrics.SetSyncQueueDepth(len(w.queue))
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *CalendarSyncWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return models.SyncTask{}, false
		}
		w.logger.Printf("calendar_worker: redis BRPOP error: %v", err)
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Printf("calendar_worker: decode redis task: %v", err)
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *CalendarSyncWorker) processTask(ctx context.Context, task *models.SyncTask) {
	payload, err := w.decodePayload(task.Payload)
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.handleCalendarTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "completed", "", nil); err != nil {
		w.logger.Printf("calendar_worker: mark completed %d: %v", task.ID, err)
	}
}

func (w *CalendarSyncWorker) handleCalendarTask(ctx context.Context, taskType string, payload calendarTaskPayload) error {
	switch taskType {
	case TaskUpsert:
		snapshot := payload.Snapshot
		if snapshot == nil {
			// Снимок не передали - берём сохранённый на расписании
			schedule, err := w.db.GetSchedule(ctx, payload.ScheduleID)
			if err != nil {
				return fmt.Errorf("load schedule %d: %w", payload.ScheduleID, err)
			}
			snapshot = schedule.Snapshot
		}
		if snapshot == nil {
			return fmt.Errorf("schedule %d has no snapshot", payload.ScheduleID)
		}
		return w.writer.UpsertScheduleRow(ctx, snapshot)
	case TaskSyncCalendar:
		if payload.StartDate.IsZero() || payload.EndDate.IsZero() {
			return errors.New("date range missing")
		}
		schedules, err := w.db.GetSchedulesByDateRange(ctx, w.companyID, payload.StartDate, payload.EndDate)
		if err != nil {
			return fmt.Errorf("load schedules: %w", err)
		}
		snapshots := make([]*models.CalendarSnapshot, 0, len(schedules))
		for _, s := range schedules {
			if s.Snapshot != nil {
				snapshots = append(snapshots, s.Snapshot)
			}
		}
		return w.writer.ReplaceCalendar(ctx, snapshots)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *CalendarSyncWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "failed", cause.Error(), nil); err != nil {
			w.logger.Printf("calendar_worker: mark failed %d: %v", task.ID, err)
		}
		w.pushDeadLetter(ctx, task)
		return
	}

	nextDelay := w.retryPolicy.NextDelay(attempt)
	nextTime := time.Now().Add(nextDelay)
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "retry", cause.Error(), &nextTime); err != nil {
		w.logger.Printf("calendar_worker: mark retry %d: %v", task.ID, err)
	}
}

func (w *CalendarSyncWorker) failTask(ctx context.Context, task *models.SyncTask, err error) {
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "failed", err.Error(), nil); err != nil {
		w.logger.Printf("calendar_worker: mark failed %d: %v", task.ID, err)
	}
	w.pushDeadLetter(ctx, task)
}

func (w *CalendarSyncWorker) decodePayload(raw string) (calendarTaskPayload, error) {
	var payload calendarTaskPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func (w *CalendarSyncWorker) pushRedis(ctx context.Context, task models.SyncTask) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *CalendarSyncWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Printf("calendar_worker: encode deadletter %d: %v", task.ID, err)
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Printf("calendar_worker: deadletter push %d: %v", task.ID, err)
	}
}
