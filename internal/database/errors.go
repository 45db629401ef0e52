package database

import "errors"

var (
	// ErrNotFound базовая ошибка отсутствия записи
	ErrNotFound = errors.New("record not found")

	// ErrServiceNotFound услуга не найдена
	ErrServiceNotFound = errors.New("service not found")

	// ErrResourceNotFound ресурс не найден
	ErrResourceNotFound = errors.New("resource not found")

	// ErrScheduleNotFound расписание не найдено
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrBookingNotFound бронирование не найдено
	ErrBookingNotFound = errors.New("booking not found")

	// ErrPaymentNotFound платеж не найден
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrInvalidWindow некорректное временное окно (start >= end)
	ErrInvalidWindow = errors.New("invalid schedule window")

	// ErrConcurrentModification конфликт версий при оптимистичной блокировке
	ErrConcurrentModification = errors.New("concurrent modification detected")
)
