package models

import (
	"fmt"
	"strings"
)

// ValidationErrorKind is the closed set of validation failure categories.
type ValidationErrorKind string

const (
	// ValidationErrMissingField covers absent or out-of-range guest fields
	ValidationErrMissingField ValidationErrorKind = "missing_field"
	// ValidationErrDuplicateBed means a bed id appears twice in one request
	ValidationErrDuplicateBed ValidationErrorKind = "duplicate_bed"
	// ValidationErrBadBedID means the bed id is not a well-formed identifier
	ValidationErrBadBedID ValidationErrorKind = "bad_bed_id"
	// ValidationErrBedNotFound means no bed exists with the given id
	ValidationErrBedNotFound ValidationErrorKind = "bed_not_found"
	// ValidationErrBedUnavailable means the bed exists but is not available
	ValidationErrBedUnavailable ValidationErrorKind = "bed_unavailable"
	// ValidationErrPhoneInUse means the guest phone belongs to an active resident
	ValidationErrPhoneInUse ValidationErrorKind = "phone_in_use"
)

// ValidationError describes one failed check for one guest entry
type ValidationError struct {
	Kind       ValidationErrorKind `json:"kind"`
	GuestIndex int                 `json:"guest_index"`
	Field      string              `json:"field,omitempty"`
	BedID      string              `json:"bed_id,omitempty"`
	BedStatus  BedStatus           `json:"bed_status,omitempty"`
	HeldBy     string              `json:"held_by,omitempty"`
	Message    string              `json:"message"`
}

// ValidationWarningKind is the closed set of non-blocking validation findings.
type ValidationWarningKind string

const (
	// WarnPhonePendingElsewhere means the phone also appears on another
	// still-pending booking's claim. First come first served at confirmation,
	// so this does not block creation.
	WarnPhonePendingElsewhere ValidationWarningKind = "phone_pending_elsewhere"
)

// ValidationWarning describes one non-blocking finding for one guest entry
type ValidationWarning struct {
	Kind       ValidationWarningKind `json:"kind"`
	GuestIndex int                   `json:"guest_index"`
	Message    string                `json:"message"`
}

// ValidationResult is the outcome of pre-flight booking validation
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Errors   []ValidationError   `json:"errors,omitempty"`
	Warnings []ValidationWarning `json:"warnings,omitempty"`
}

// ValidationFailedError wraps an invalid ValidationResult as an error
type ValidationFailedError struct {
	Result *ValidationResult
}

func (e *ValidationFailedError) Error() string {
	kinds := make([]string, 0, len(e.Result.Errors))
	for _, ve := range e.Result.Errors {
		kinds = append(kinds, string(ve.Kind))
	}
	return fmt.Sprintf("booking validation failed: %s", strings.Join(kinds, ", "))
}

// BedConflictError is returned when beds changed state between validation and
// the transactional re-check. The caller should re-query availability.
type BedConflictError struct {
	BedIDs []string
}

func (e *BedConflictError) Error() string {
	return fmt.Sprintf("beds no longer available: %s", strings.Join(e.BedIDs, ", "))
}

// BookingStatusError is returned when an operation is attempted against a
// booking whose status does not permit it.
type BookingStatusError struct {
	BookingID string
	Status    BookingStatus
	Operation string
}

func (e *BookingStatusError) Error() string {
	return fmt.Sprintf("cannot %s booking %s in status %s", e.Operation, e.BookingID, e.Status)
}

// BookingNotFoundError is returned when no booking exists for the given id
type BookingNotFoundError struct {
	BookingID string
}

func (e *BookingNotFoundError) Error() string {
	return fmt.Sprintf("booking %s not found", e.BookingID)
}
