package storage

import "errors"

var (
	// ErrUserNotFound is returned when a user account is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when registering an email that already exists
	ErrEmailTaken = errors.New("email already registered")

	// ErrUsageLogNotFound is returned when a usage log record is not found
	ErrUsageLogNotFound = errors.New("usage log not found")
)
