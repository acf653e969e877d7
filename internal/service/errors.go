package service

import (
	"errors"
)

var (
	ErrValidation        = errors.New("validation")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	ErrUnavailable       = errors.New("storage unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
)
