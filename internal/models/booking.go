package models

import "time"

// Booking - родительская сущность: один заказ клиента, одна услуга, несколько расписаний.
type Booking struct {
	ID         int64     `json:"id"`
	Ref        string    `json:"ref"`
	CompanyID  int64     `json:"company_id"`
	CustomerID int64     `json:"customer_id"`
	ServiceID  int64     `json:"service_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Customer struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Payment - подтверждённый внешним коллаборатором пакетный платёж по брони.
// SessionCount задаёт, сколько расписаний покрывает платёж.
type Payment struct {
	ID            int64     `json:"id"`
	BookingID     int64     `json:"booking_id"`
	SessionCount  int64     `json:"session_count"`
	Paid          bool      `json:"paid"`
	PaymentMethod string    `json:"payment_method"`
	PaymentLink   string    `json:"payment_link,omitempty"`
	InvoicePDFURL string    `json:"invoice_pdf_url,omitempty"`
	PaidAt        time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
