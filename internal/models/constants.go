package models

const (
	ScheduleStatusDraft     = "DRAFT"
	ScheduleStatusPending   = "PENDING"
	ScheduleStatusActive    = "ACTIVE"
	ScheduleStatusCancelled = "CANCELLED"
	ScheduleStatusCompleted = "COMPLETED"
	ScheduleStatusNoShow    = "NO_SHOW"
)

const (
	PaymentMethodAtCounter     = "AT_COUNTER"
	PaymentMethodSendInvoice   = "SEND_INVOICE"
	PaymentMethodBankTransfer  = "BANK_TRANSFER"
	PaymentMethodOnlineBooking = "ONLINE_BOOKING"
	PaymentMethodOther         = "OTHER"
)

// EventTypeService - единственный тип события календаря на данный момент.
const EventTypeService = "SERVICE"

const (
	// DefaultSnapshotTTL время жизни снимка календаря в Redis
	DefaultSnapshotTTL = 24 * 60 * 60 // 24 часа в секундах

	// WorkerQueueSize размер очереди воркера синхронизации
	WorkerQueueSize = 1000

	// DefaultScheduleNameLayout формат даты в имени сеанса по умолчанию
	DefaultScheduleNameLayout = "02 Jan 06"

	// SheetsRateLimitRPS ограничение запросов к Sheets API
	SheetsRateLimitRPS = 1.0
)
