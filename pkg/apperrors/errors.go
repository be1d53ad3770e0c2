package apperrors

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrNotConfigured = errors.New("not configured")
	ErrValidation    = errors.New("validation failed")
	ErrUpstream      = errors.New("upstream error")
)
