package models

import "errors"

var (
	// Store-level errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// Request-level errors
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
