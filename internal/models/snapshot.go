package models

import "time"

// PersonnelSummary - краткая карточка сотрудника для календаря.
type PersonnelSummary struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// CustomerSummary - краткая карточка клиента для календаря.
type CustomerSummary struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Status    string `json:"status,omitempty"`
}

// CalendarSnapshot - денормализованное представление расписания для отображения.
// Всегда восстановимо из Schedule + привязок + связанных сущностей; не авторитетно.
type CalendarSnapshot struct {
	ScheduleGUID      string             `json:"schedule_guid"`
	DisplayID         string             `json:"display_id"`
	BookingRef        string             `json:"booking_ref"`
	ServiceID         int64              `json:"service_id"`
	Title             string             `json:"title"`
	Window            Window             `json:"window"`
	EventType         string             `json:"event_type"`
	IsEditable        bool               `json:"is_editable"`
	AssignedPersonnel []PersonnelSummary `json:"assigned_personnel"`
	Customer          CustomerSummary    `json:"customer"`
	IsPaid            bool               `json:"is_paid"`
	Status            string             `json:"status"`
	PaymentMethod     string             `json:"payment_method"`
	Notes             string             `json:"notes"`
	GeneratedAt       time.Time          `json:"generated_at"`
}
