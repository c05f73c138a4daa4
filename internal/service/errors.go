package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors, use with errors.Is()
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStorage           = errors.New("storage failure")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username or store name already exists")
	ErrUnauthorized       = errors.New("not authenticated")
)

// ValidationError is malformed or missing input; the caller can correct and resend
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError covers both "absent" and "owned by another tenant"
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
	Name     string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q not found", e.Resource, e.Name)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type OutOfStockError struct {
	ItemID   uuid.UUID
	ItemName string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("%q is out of stock", e.ItemName)
}

func (e *OutOfStockError) Unwrap() error { return ErrOutOfStock }

type InsufficientStockError struct {
	ItemID    uuid.UUID
	ItemName  string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	if e.Available < 0 {
		return fmt.Sprintf("insufficient stock for %q: requested %d", e.ItemName, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for %q: only %d available but %d requested",
		e.ItemName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ConcurrencyConflictError is raised when stock passed the pre-check but the conditional
// decrement matched no row at commit time. Callers see it as an InsufficientStockError.
type ConcurrencyConflictError struct {
	InsufficientStockError
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: stock changed while the transaction was being recorded, %d requested",
		e.ItemName, e.Requested)
}

func (e *ConcurrencyConflictError) Unwrap() error { return &e.InsufficientStockError }

// StorageError is an unexpected persistence failure. Anything the failed unit wrote has
// already been rolled back when this is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsClientError returns true if the error is due to invalid client input
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrInsufficientStock)
}
