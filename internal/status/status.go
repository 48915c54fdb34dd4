package status

import (
	"errors"
	"fmt"
)

var (
	ErrTicketNotFound    = errors.New("ticket: ticket not found")
	ErrTicketNotEnabled  = errors.New("ticket: ticket is not enabled")
	ErrTicketNotReleased = errors.New("ticket: ticket is not released")
	ErrTicketExpired     = errors.New("ticket: ticket has expired")
	ErrInsufficientStock = errors.New("ticket: insufficient stock")
	ErrNoFieldsToUpdate  = errors.New("ticket: no fields to update")
	ErrInvalidQuantity   = errors.New("ticket: invalid purchase quantity")
	ErrInvalidTicket     = errors.New("ticket: invalid ticket data")
	ErrPersistence       = errors.New("ticket: persistence failure")
)

// PersistenceError wraps a failed storage call. It is never retried by the store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ticket: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsPurchaseRejection reports whether err is one of the purchase precondition failures.
func IsPurchaseRejection(err error) bool {
	return errors.Is(err, ErrTicketNotEnabled) ||
		errors.Is(err, ErrTicketNotReleased) ||
		errors.Is(err, ErrTicketExpired) ||
		errors.Is(err, ErrInsufficientStock)
}
