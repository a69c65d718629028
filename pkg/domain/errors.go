package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrWrongSigner       = errors.New("wrong signer")
	ErrDeedNotExecuted   = errors.New("deed not executed")
	ErrAlreadyMinted     = errors.New("already minted")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q invalid: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
