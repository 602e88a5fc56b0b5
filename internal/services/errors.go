package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Error kinds. Every error returned by a service wraps exactly one of them.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyReversed     = errors.New("transaction already reversed")
	ErrValidation          = errors.New("validation failed")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrUnauthorized        = errors.New("unauthorized")
)

// Error is a service failure with a stable, dotted machine-readable code.
type Error struct {
	Code   string
	Kind   error
	Detail map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, code string) *Error {
	return &Error{Code: code, Kind: kind}
}

func (e *Error) withDetail(detail map[string]string) *Error {
	e.Detail = detail
	return e
}

func (e *Error) wrap(err error) *Error {
	e.Err = err
	return e
}

func insufficientBalance(code string) *Error {
	return newError(ErrInsufficientBalance, code).withDetail(map[string]string{
		"code":    "BALANCE_NEGATIVE",
		"message": "insufficient balance for debit",
	})
}

// StatusCode maps an error kind to its HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrConstraintViolation), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadyReversed), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

type storeViolation int

const (
	violationNone storeViolation = iota
	violationCheck
	violationUnique
	violationForeignKey
	violationContention
)

// classifyStoreError recognizes constraint violations and lock contention
// raised by Postgres or SQLite.
func classifyStoreError(err error) storeViolation {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23514":
			return violationCheck
		case "23505":
			return violationUnique
		case "23503":
			return violationForeignKey
		case "40001", "40P01":
			return violationContention
		}
		return violationNone
	}

	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return violationNone
	}
	switch liteErr.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return violationContention
	case sqlite3.ErrConstraint:
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintCheck:
			return violationCheck
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return violationUnique
		case sqlite3.ErrConstraintForeignKey:
			return violationForeignKey
		}
	}
	return violationNone
}
