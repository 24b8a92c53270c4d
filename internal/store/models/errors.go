package models

import "errors"

// Common domain errors returned by internal/store implementations.
var (
	ErrTerminusNotFound  = errors.New("terminus not found")
	ErrDuplicateTerminus = errors.New("terminus already exists")

	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrUserDisabled       = errors.New("user account is disabled")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
