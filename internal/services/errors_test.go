package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := newError(ErrConflict, "account.create.exists").wrap(cause)

	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "account.create.exists: boom", err.Error())

	wrapped := fmt.Errorf("outer: %w", newError(ErrNotFound, "card.show.notfound"))
	var svcErr *Error
	assert.True(t, errors.As(wrapped, &svcErr))
	assert.Equal(t, "card.show.notfound", svcErr.Error())
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{newError(ErrNotFound, "x"), http.StatusNotFound},
		{insufficientBalance("x"), http.StatusBadRequest},
		{newError(ErrConstraintViolation, "x"), http.StatusBadRequest},
		{newError(ErrValidation, "x"), http.StatusBadRequest},
		{newError(ErrAlreadyReversed, "x"), http.StatusConflict},
		{newError(ErrConflict, "x"), http.StatusConflict},
		{newError(ErrForbidden, "x"), http.StatusForbidden},
		{newError(ErrUnauthorized, "x"), http.StatusUnauthorized},
		{errors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error()+fmt.Sprint(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestClassifyStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want storeViolation
	}{
		{"pq check", &pq.Error{Code: "23514"}, violationCheck},
		{"pq unique", &pq.Error{Code: "23505"}, violationUnique},
		{"pq foreign key", &pq.Error{Code: "23503"}, violationForeignKey},
		{"pq serialization", &pq.Error{Code: "40001"}, violationContention},
		{"pq deadlock", &pq.Error{Code: "40P01"}, violationContention},
		{"pq other", &pq.Error{Code: "42P01"}, violationNone},
		{"wrapped pq", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), violationUnique},
		{"sqlite check", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintCheck}, violationCheck},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, violationUnique},
		{"sqlite primary key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, violationUnique},
		{"sqlite foreign key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, violationForeignKey},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, violationContention},
		{"sqlite locked", sqlite3.Error{Code: sqlite3.ErrLocked}, violationContention},
		{"plain", errors.New("x"), violationNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyStoreError(tt.err))
		})
	}
}
