package database

import (
	"context"
	"testing"
	"time"

	"bookwise/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerAndBookingRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	customer := &models.Customer{CompanyID: 1, FirstName: "Ivan", LastName: "Petrov", Phone: "+70001112233"}
	require.NoError(t, db.CreateCustomer(ctx, customer))

	loaded, err := db.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ivan", loaded.FirstName)
	assert.Equal(t, "+70001112233", loaded.Phone)

	booking := &models.Booking{Ref: "BK-1001", CompanyID: 1, CustomerID: customer.ID, ServiceID: 2, Status: "CONFIRMED"}
	require.NoError(t, db.CreateBooking(ctx, booking))

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "BK-1001", got.Ref)
	assert.Equal(t, customer.ID, got.CustomerID)

	_, err = db.GetBooking(ctx, 9999)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	_, err = db.GetCustomer(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	paidAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	payment := &models.Payment{
		BookingID:     7,
		SessionCount:  3,
		Paid:          true,
		PaymentMethod: models.PaymentMethodSendInvoice,
		PaymentLink:   "https://pay.example/42",
		InvoicePDFURL: "https://pay.example/42.pdf",
		PaidAt:        paidAt,
	}
	require.NoError(t, db.CreatePayment(ctx, payment))

	loaded, err := db.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), loaded.BookingID)
	assert.Equal(t, int64(3), loaded.SessionCount)
	assert.True(t, loaded.Paid)
	assert.Equal(t, "https://pay.example/42", loaded.PaymentLink)
	assert.True(t, loaded.PaidAt.Equal(paidAt))

	_, err = db.GetPayment(ctx, 9999)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}
