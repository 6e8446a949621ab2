package domain

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("rejected by access policy")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)
