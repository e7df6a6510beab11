package model

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid session state")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrExternalService  = errors.New("external service failure")
	ErrConflict         = errors.New("conflict")
)
