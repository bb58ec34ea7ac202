package models

import (
	"time"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPending            BookingStatus = "pending"
	BookingStatusConfirmed          BookingStatus = "confirmed"
	BookingStatusPartiallyConfirmed BookingStatus = "partially_confirmed"
	BookingStatusCancelled          BookingStatus = "cancelled"
	BookingStatusCompleted          BookingStatus = "completed"
)

// IsTerminal reports whether no further engine transition is allowed
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

// GuestClaimStatus represents the lifecycle status of a single guest's claim
type GuestClaimStatus string

const (
	GuestClaimStatusPending    GuestClaimStatus = "pending"
	GuestClaimStatusConfirmed  GuestClaimStatus = "confirmed"
	GuestClaimStatusCheckedIn  GuestClaimStatus = "checked_in"
	GuestClaimStatusCheckedOut GuestClaimStatus = "checked_out"
	GuestClaimStatusCancelled  GuestClaimStatus = "cancelled"
)

// IsTerminal reports whether the claim can no longer change
func (s GuestClaimStatus) IsTerminal() bool {
	return s == GuestClaimStatusCheckedOut || s == GuestClaimStatusCancelled
}

// AutoAssignBedID is the sentinel bed id accepted for single-guest bookings
// where the caller defers bed selection to the engine.
const AutoAssignBedID = "auto"

// Booking is the aggregate root grouping guest claims under one contact person
type Booking struct {
	ID               string        `json:"id" db:"id"`
	BookingReference string        `json:"booking_reference" db:"booking_reference"`
	ContactName      string        `json:"contact_name" db:"contact_name"`
	ContactPhone     string        `json:"contact_phone" db:"contact_phone"`
	ContactEmail     *string       `json:"contact_email,omitempty" db:"contact_email"`
	Status           BookingStatus `json:"status" db:"status"`

	// TotalGuests is fixed at creation; ConfirmedGuests is written only by
	// the confirm transaction.
	TotalGuests     int `json:"total_guests" db:"total_guests"`
	ConfirmedGuests int `json:"confirmed_guests" db:"confirmed_guests"`

	CheckInDate   *time.Time `json:"check_in_date,omitempty" db:"check_in_date"`
	DurationDays  *int       `json:"duration_days,omitempty" db:"duration_days"`
	Notes         *string    `json:"notes,omitempty" db:"notes"`
	Source        *string    `json:"source,omitempty" db:"source"`
	ProcessedBy   *string    `json:"processed_by,omitempty" db:"processed_by"`
	ProcessedDate *time.Time `json:"processed_date,omitempty" db:"processed_date"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelledBy        *string    `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancellationReason *string    `json:"cancellation_reason,omitempty" db:"cancellation_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Guests []GuestClaim `json:"guests,omitempty"`
}

// GuestClaim is one guest's claim on exactly one bed within a booking
type GuestClaim struct {
	ID        string           `json:"id" db:"id"`
	BookingID string           `json:"booking_id" db:"booking_id"`
	BedID     string           `json:"bed_id" db:"bed_id"`
	Name      string           `json:"name" db:"name"`
	Age       int              `json:"age" db:"age"`
	Gender    string           `json:"gender" db:"gender"`
	Phone     string           `json:"phone" db:"phone"`
	Email     *string          `json:"email,omitempty" db:"email"`
	Status    GuestClaimStatus `json:"status" db:"status"`

	// Display copies of the assigned room/bed identifiers, written at
	// creation and refreshed only when the claim is confirmed.
	AssignedRoom string `json:"assigned_room" db:"assigned_room"`
	AssignedBed  string `json:"assigned_bed" db:"assigned_bed"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ============================================================================
// REQUEST / RESPONSE TYPES
// ============================================================================

// GuestClaimRequest is one proposed (bed, guest) pair in a booking request
type GuestClaimRequest struct {
	BedID  string  `json:"bed_id"`
	Name   string  `json:"name"`
	Age    int     `json:"age"`
	Gender string  `json:"gender"`
	Phone  string  `json:"phone"`
	Email  *string `json:"email,omitempty"`
}

// CreateBookingRequest is the payload for creating a booking
type CreateBookingRequest struct {
	ContactName  string              `json:"contact_name" binding:"required"`
	ContactPhone string              `json:"contact_phone" binding:"required"`
	ContactEmail *string             `json:"contact_email,omitempty"`
	Guests       []GuestClaimRequest `json:"guests" binding:"required,min=1"`
	CheckInDate  *time.Time          `json:"check_in_date,omitempty"`
	DurationDays *int                `json:"duration_days,omitempty"`
	Notes        *string             `json:"notes,omitempty"`
	Source       *string             `json:"source,omitempty"`
}

// ConfirmBookingRequest is the payload for confirming a booking
type ConfirmBookingRequest struct {
	ConfirmedBy string `json:"confirmed_by"`
}

// CancelBookingRequest is the payload for cancelling a booking
type CancelBookingRequest struct {
	Reason      string `json:"reason" binding:"required"`
	CancelledBy string `json:"cancelled_by"`
}

// ProfileFailure reports one guest whose downstream profile creation failed
type ProfileFailure struct {
	GuestClaimID string `json:"guest_claim_id"`
	GuestName    string `json:"guest_name"`
	Error        string `json:"error"`
}

// ConfirmBookingResult is the structured outcome of a confirmation.
// Partial success is a normal outcome here, not an error: FailedBedIDs names
// the beds that were no longer reserved for this booking.
type ConfirmBookingResult struct {
	Booking         *Booking         `json:"booking"`
	ConfirmedGuests int              `json:"confirmed_guests"`
	TotalGuests     int              `json:"total_guests"`
	FailedBedIDs    []string         `json:"failed_bed_ids,omitempty"`
	ProfileFailures []ProfileFailure `json:"profile_failures,omitempty"`
}

// BookingListItem is a flattened row for booking list endpoints
type BookingListItem struct {
	ID               string        `json:"id" db:"id"`
	BookingReference string        `json:"booking_reference" db:"booking_reference"`
	ContactName      string        `json:"contact_name" db:"contact_name"`
	ContactPhone     string        `json:"contact_phone" db:"contact_phone"`
	Status           BookingStatus `json:"status" db:"status"`
	TotalGuests      int           `json:"total_guests" db:"total_guests"`
	ConfirmedGuests  int           `json:"confirmed_guests" db:"confirmed_guests"`
	CheckInDate      *time.Time    `json:"check_in_date,omitempty" db:"check_in_date"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}
