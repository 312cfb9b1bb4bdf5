package errors

import "errors"

var (
	ErrNotFound = errors.New("exhibition not found")

	ErrInvalidID = errors.New("invalid exhibition ID format")

	ErrDuplicateName = errors.New("exhibition name already exists")

	ErrInsufficientQuota = errors.New("insufficient booth quota")

	ErrHasBookings = errors.New("exhibition has active bookings")
)
