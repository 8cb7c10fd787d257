package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrConflict is returned when a write would duplicate a unique email.
	ErrConflict = errors.New("account email already exists")
	// ErrInvalid is returned when a field is missing or too long on write.
	ErrInvalid = errors.New("invalid account")
)

const (
	pqUniqueViolation     = "23505"
	pqStringDataTruncated = "22001"
)

// invalidError is an ErrInvalid carrying the client-facing reason.
type invalidError struct {
	reason string
}

func (e *invalidError) Error() string { return ErrInvalid.Error() + ": " + e.reason }

func (e *invalidError) Unwrap() error { return ErrInvalid }

// Invalidf builds an ErrInvalid whose reason is shown to the client.
func Invalidf(format string, args ...any) error {
	return &invalidError{reason: fmt.Sprintf(format, args...)}
}

// InvalidReason returns what was wrong with the account for an ErrInvalid
// error, however deeply it is wrapped.
func InvalidReason(err error) string {
	var ie *invalidError
	if errors.As(err, &ie) {
		return ie.reason
	}
	return ""
}

// isUniqueViolation reports whether err is the backend rejecting a duplicate
// value for a UNIQUE column.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

// valueTooLong reports the column PostgreSQL rejected for exceeding its
// declared length. SQLite does not enforce VARCHAR lengths.
func valueTooLong(err error) (column string, ok bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqStringDataTruncated {
		return pqErr.Column, true
	}
	return "", false
}
