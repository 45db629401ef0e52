package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookwise/internal/models"
)

func (db *DB) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `INSERT INTO customers (company_id, first_name, last_name, email, phone, status, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	if customer.Status == "" {
		customer.Status = "ACTIVE"
	}
	result, err := db.ExecContext(ctx, query,
		customer.CompanyID, customer.FirstName, customer.LastName, customer.Email, customer.Phone, customer.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	customer.ID = id
	customer.CreatedAt = now
	customer.UpdatedAt = now
	return nil
}

func (db *DB) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	query := `SELECT id, company_id, first_name, last_name, email, phone, status, created_at, updated_at
              FROM customers WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID, &customer.CompanyID, &customer.FirstName, &customer.LastName,
		&customer.Email, &customer.Phone, &customer.Status, &customer.CreatedAt, &customer.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (ref, company_id, customer_id, service_id, status, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	if booking.Status == "" {
		booking.Status = "ACTIVE"
	}
	result, err := db.ExecContext(ctx, query,
		booking.Ref, booking.CompanyID, booking.CustomerID, booking.ServiceID, booking.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT id, ref, company_id, customer_id, service_id, status, created_at, updated_at
              FROM bookings WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&booking.ID, &booking.Ref, &booking.CompanyID, &booking.CustomerID,
		&booking.ServiceID, &booking.Status, &booking.CreatedAt, &booking.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (db *DB) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `INSERT INTO booking_payments (booking_id, session_count, paid, payment_method, payment_link, invoice_pdf_url, paid_at, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	var paidAt interface{}
	if !payment.PaidAt.IsZero() {
		paidAt = payment.PaidAt
	}
	result, err := db.ExecContext(ctx, query,
		payment.BookingID, payment.SessionCount, payment.Paid, payment.PaymentMethod,
		payment.PaymentLink, payment.InvoicePDFURL, paidAt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	payment.ID = id
	payment.CreatedAt = now
	return nil
}

func (db *DB) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	var paidAt sql.NullTime
	var link, pdf sql.NullString
	query := `SELECT id, booking_id, session_count, paid, payment_method, payment_link, invoice_pdf_url, paid_at, created_at
              FROM booking_payments WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&payment.ID, &payment.BookingID, &payment.SessionCount, &payment.Paid,
		&payment.PaymentMethod, &link, &pdf, &paidAt, &payment.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	payment.PaymentLink = link.String
	payment.InvoicePDFURL = pdf.String
	if paidAt.Valid {
		payment.PaidAt = paidAt.Time
	}
	return &payment, nil
}
