package domain

import "errors"

// ErrNotFound is returned when no record with the requested ID exists.
// Handlers map this to HTTP 404; shell events treat it as a no-op.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when user input fails the editor rules
// (blank location, blank feelings, missing or malformed visit date).
// Handlers map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a record with the same ID is already present.
// Handlers map this to HTTP 409.
var ErrConflict = errors.New("conflict")
