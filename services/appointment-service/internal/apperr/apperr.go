// Package apperr defines the error kinds appointment operations surface to callers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindCustomerNotFound    Kind = "CUSTOMER_NOT_FOUND"
	KindHelperNotFound      Kind = "HELPER_NOT_FOUND"
	KindAppointmentNotFound Kind = "APPOINTMENT_NOT_FOUND"
	KindInvalidDate         Kind = "INVALID_DATE"
	KindInvalidInput        Kind = "INVALID_INPUT"
	KindInvalidTransition   Kind = "INVALID_TRANSITION"
	KindSlotTaken           Kind = "SLOT_TAKEN"
	KindChecklistNotFound   Kind = "CHECKLIST_ITEM_NOT_FOUND"
	KindUnexpected          Kind = "UNEXPECTED"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrHelperNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

var (
	ErrCustomerNotFound    = &Error{Kind: KindCustomerNotFound}
	ErrHelperNotFound      = &Error{Kind: KindHelperNotFound}
	ErrAppointmentNotFound = &Error{Kind: KindAppointmentNotFound}
	ErrInvalidDate         = &Error{Kind: KindInvalidDate}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrSlotTaken           = &Error{Kind: KindSlotTaken}
	ErrChecklistNotFound   = &Error{Kind: KindChecklistNotFound}
	ErrUnexpected          = &Error{Kind: KindUnexpected}
)

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func CustomerNotFound(id string) *Error {
	return New(KindCustomerNotFound, "customer %q not found", id)
}

func HelperNotFound(id string) *Error {
	return New(KindHelperNotFound, "helper %q not found", id)
}

func AppointmentNotFound(id string) *Error {
	return New(KindAppointmentNotFound, "appointment %q not found", id)
}

func InvalidDate(raw string) *Error {
	return New(KindInvalidDate, "cannot parse %q as a calendar day", raw)
}

func InvalidInput(format string, args ...any) *Error {
	return New(KindInvalidInput, format, args...)
}

func InvalidTransition(from, to string) *Error {
	return New(KindInvalidTransition, "cannot move appointment from %s to %s", from, to)
}

func SlotTaken(day, startTime string) *Error {
	return New(KindSlotTaken, "a series occurrence already holds %s %s for this customer", day, startTime)
}

func ChecklistItemNotFound(id string) *Error {
	return New(KindChecklistNotFound, "checklist item %q not found", id)
}

// Unexpected wraps err; the wrapped detail is for logs only.
func Unexpected(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: KindUnexpected, Message: op, Err: err}
}

// KindOf reports the kind of err, treating anything unclassified as unexpected.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnexpected
}
