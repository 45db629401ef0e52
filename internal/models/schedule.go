package models

import "time"

// Schedule - одно конкретное временное окно в рамках бронирования.
type Schedule struct {
	ID            int64             `json:"id"`
	GUID          string            `json:"guid"`
	DisplayID     string            `json:"display_id"`
	BookingID     int64             `json:"booking_id"`
	ServiceID     int64             `json:"service_id"`
	CompanyID     int64             `json:"company_id"`
	Name          string            `json:"name"`
	Start         time.Time         `json:"start"`
	End           time.Time         `json:"end"`
	Status        string            `json:"status"` // DRAFT, PENDING, ACTIVE, CANCELLED, COMPLETED, NO_SHOW
	IsPaid        bool              `json:"is_paid"`
	PaymentMethod string            `json:"payment_method"`
	PaymentID     int64             `json:"payment_id,omitempty"`
	PaymentData   *PaymentData      `json:"payment_data,omitempty"`
	Notes         string            `json:"notes"`
	Snapshot      *CalendarSnapshot `json:"snapshot,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Version       int64             `json:"version"`
}

// PaymentData - снимок платёжной привязки, хранится на расписании как JSON.
type PaymentData struct {
	PaymentLink   string    `json:"payment_link,omitempty"`
	InvoicePDFURL string    `json:"invoice_pdf_url,omitempty"`
	IsPaid        bool      `json:"is_paid"`
	PaidAt        time.Time `json:"paid_at,omitempty"`
}

func (s *Schedule) Window() Window {
	return Window{Start: s.Start, End: s.End}
}

// HasPaymentData сообщает, была ли запись уже привязана к платежу.
func (s *Schedule) HasPaymentData() bool {
	return s.PaymentData != nil || s.PaymentID != 0
}

// IsTerminalStatus: терминальные статусы замораживают привязки ресурсов.
func IsTerminalStatus(status string) bool {
	switch status {
	case ScheduleStatusCancelled, ScheduleStatusCompleted, ScheduleStatusNoShow:
		return true
	}
	return false
}

// IsEditableStatus: только DRAFT/PENDING/ACTIVE редактируемы и конкурируют за ресурсы.
func IsEditableStatus(status string) bool {
	switch status {
	case "", ScheduleStatusDraft, ScheduleStatusPending, ScheduleStatusActive:
		return true
	}
	return false
}
