package database

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mghostels/booking-backend/internal/models"
)

const bookingColumns = `
	id, booking_reference, contact_name, contact_phone, contact_email,
	status, total_guests, confirmed_guests,
	check_in_date, duration_days, notes, source,
	processed_by, processed_date,
	cancelled_at, cancelled_by, cancellation_reason,
	created_at, updated_at`

const guestClaimColumns = `
	id, booking_id, bed_id, name, age, gender, phone, email,
	status, assigned_room, assigned_bed, created_at, updated_at`

// BookingRepository handles booking and guest claim database operations
type BookingRepository struct {
	db             *sqlx.DB
	refPrefix      string
	refMaxAttempts int
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB, refPrefix string, refMaxAttempts int) *BookingRepository {
	return &BookingRepository{
		db:             db,
		refPrefix:      refPrefix,
		refMaxAttempts: refMaxAttempts,
	}
}

// ============================================================================
// REFERENCE GENERATION
// ============================================================================

const referenceCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateBookingReference generates a globally unique booking reference.
// Format: prefix + 6-digit compacted unix timestamp + 6-char random suffix.
// Example: MGB123456ABC123
func (r *BookingRepository) GenerateBookingReference() (string, error) {
	return r.generateBookingReference(r.db)
}

// generateBookingReference reads through q so in-transaction callers check
// uniqueness against their own snapshot rather than the pool.
func (r *BookingRepository) generateBookingReference(q sqlx.Queryer) (string, error) {
	for attempts := 0; attempts < r.refMaxAttempts; attempts++ {
		randomBytes := make([]byte, 6)
		if _, err := rand.Read(randomBytes); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}

		suffix := make([]byte, 6)
		for i, b := range randomBytes {
			suffix[i] = referenceCharset[int(b)%len(referenceCharset)]
		}

		newRef := fmt.Sprintf("%s%06d%s", r.refPrefix, time.Now().Unix()%1000000, suffix)

		var count int
		err := sqlx.Get(q, &count, `SELECT COUNT(*) FROM bookings WHERE booking_reference = $1`, newRef)
		if err != nil {
			return "", fmt.Errorf("failed to check reference uniqueness: %w", err)
		}

		if count == 0 {
			return newRef, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique booking reference after %d attempts", r.refMaxAttempts)
}

// insertBooking inserts the booking row, retrying with a fresh reference when
// the unique index on booking_reference trips under concurrency. Each attempt
// runs under a savepoint so a violation does not abort the transaction.
func (r *BookingRepository) insertBooking(tx *sqlx.Tx, booking *models.Booking) error {
	for attempts := 0; attempts < r.refMaxAttempts; attempts++ {
		ref, err := r.generateBookingReference(tx)
		if err != nil {
			return err
		}
		booking.BookingReference = ref

		if _, err := tx.Exec(`SAVEPOINT booking_insert`); err != nil {
			return fmt.Errorf("failed to set savepoint: %w", err)
		}

		err = tx.QueryRowx(`
			INSERT INTO bookings (
				booking_reference, contact_name, contact_phone, contact_email,
				status, total_guests, confirmed_guests,
				check_in_date, duration_days, notes, source
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
			) RETURNING id, created_at, updated_at`,
			booking.BookingReference, booking.ContactName, booking.ContactPhone, booking.ContactEmail,
			booking.Status, booking.TotalGuests, booking.ConfirmedGuests,
			booking.CheckInDate, booking.DurationDays, booking.Notes, booking.Source,
		).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
		if err == nil {
			return nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, "booking_reference") {
			if _, rbErr := tx.Exec(`ROLLBACK TO SAVEPOINT booking_insert`); rbErr != nil {
				return fmt.Errorf("failed to roll back savepoint: %w", rbErr)
			}
			continue
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return fmt.Errorf("failed to generate unique booking reference after %d attempts", r.refMaxAttempts)
}

// ============================================================================
// CREATE
// ============================================================================

// CreateBooking creates a booking with its guest claims and reserves every
// referenced bed, all in one transaction. Beds are re-read under row locks
// inside the transaction; if any is no longer available the whole creation
// fails with a BedConflictError and nothing is committed.
func (r *BookingRepository) CreateBooking(
	booking *models.Booking,
	claims []models.GuestClaim,
	bedRepo *BedRepository,
) (*models.Booking, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Resolve the auto-assign sentinel before locking the explicit set.
	// Validation already limited the sentinel to single-guest requests.
	for i := range claims {
		if claims[i].BedID == models.AutoAssignBedID {
			bed, err := bedRepo.LockAnyAvailableBed(tx)
			if err == sql.ErrNoRows {
				return nil, &models.BedConflictError{BedIDs: []string{models.AutoAssignBedID}}
			}
			if err != nil {
				return nil, fmt.Errorf("failed to auto-assign bed: %w", err)
			}
			claims[i].BedID = bed.ID
		}
	}

	bedIDs := make([]string, len(claims))
	for i, claim := range claims {
		bedIDs[i] = claim.BedID
	}

	// Lock and re-check every bed. Creation is all-or-nothing: one lost bed
	// aborts the whole request.
	beds, err := bedRepo.LockAndFetchBeds(tx, bedIDs)
	if err != nil {
		return nil, err
	}

	bedMap := make(map[string]models.Bed, len(beds))
	for _, bed := range beds {
		bedMap[bed.ID] = bed
	}

	var conflicts []string
	for _, id := range bedIDs {
		bed, found := bedMap[id]
		if !found || bed.Status != models.BedStatusAvailable {
			conflicts = append(conflicts, id)
		}
	}
	if len(conflicts) > 0 {
		return nil, &models.BedConflictError{BedIDs: conflicts}
	}

	booking.Status = models.BookingStatusPending
	booking.TotalGuests = len(claims)
	booking.ConfirmedGuests = 0

	if err := r.insertBooking(tx, booking); err != nil {
		return nil, err
	}

	// Insert guest claims with denormalized display identifiers, then
	// reserve each bed under the booking reference.
	for i := range claims {
		bed := bedMap[claims[i].BedID]
		claims[i].BookingID = booking.ID
		claims[i].Status = models.GuestClaimStatusPending
		claims[i].AssignedRoom = bed.RoomNumber
		claims[i].AssignedBed = bed.BedNumber

		err = tx.QueryRowx(`
			INSERT INTO guest_claims (
				booking_id, bed_id, name, age, gender, phone, email,
				status, assigned_room, assigned_bed
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
			) RETURNING id, created_at, updated_at`,
			claims[i].BookingID, claims[i].BedID, claims[i].Name, claims[i].Age,
			claims[i].Gender, claims[i].Phone, claims[i].Email,
			claims[i].Status, claims[i].AssignedRoom, claims[i].AssignedBed,
		).Scan(&claims[i].ID, &claims[i].CreatedAt, &claims[i].UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create guest claim for %s: %w", claims[i].Name, err)
		}

		if err := bedRepo.ReserveBed(tx, claims[i].BedID, booking.BookingReference); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	booking.Guests = claims
	return booking, nil
}

// ============================================================================
// CONFIRM
// ============================================================================

// ConfirmOutcome carries the committed state of a confirmation plus the
// claims that were newly confirmed, for the post-commit profile handoff.
type ConfirmOutcome struct {
	Booking         *models.Booking
	ConfirmedClaims []models.GuestClaim
	FailedBedIDs    []string
}

// ConfirmBooking confirms a pending booking inside one transaction. Claims
// whose beds are still reserved for this booking become confirmed and their
// beds occupied; claims whose beds were lost become cancelled. Partial
// success commits normally; only an empty still-reserved set aborts.
func (r *BookingRepository) ConfirmBooking(
	bookingID, processedBy string,
	bedRepo *BedRepository,
) (*ConfirmOutcome, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := r.lockBooking(tx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, &models.BookingNotFoundError{BookingID: bookingID}
	}
	if booking.Status != models.BookingStatusPending {
		return nil, &models.BookingStatusError{
			BookingID: bookingID,
			Status:    booking.Status,
			Operation: "confirm",
		}
	}

	claims, err := r.claimsForBooking(tx, bookingID)
	if err != nil {
		return nil, err
	}

	bedIDs := make([]string, len(claims))
	for i, claim := range claims {
		bedIDs[i] = claim.BedID
	}

	beds, err := bedRepo.LockAndFetchBeds(tx, bedIDs)
	if err != nil {
		return nil, err
	}
	bedMap := make(map[string]models.Bed, len(beds))
	for _, bed := range beds {
		bedMap[bed.ID] = bed
	}

	// Partition claims by whether the reservation marker is still ours.
	outcome := &ConfirmOutcome{}
	var lostClaims []models.GuestClaim
	for _, claim := range claims {
		bed, found := bedMap[claim.BedID]
		stillReserved := found &&
			bed.Status == models.BedStatusReserved &&
			bed.ReservedBy != nil &&
			*bed.ReservedBy == booking.BookingReference
		if stillReserved {
			outcome.ConfirmedClaims = append(outcome.ConfirmedClaims, claim)
		} else {
			lostClaims = append(lostClaims, claim)
			outcome.FailedBedIDs = append(outcome.FailedBedIDs, claim.BedID)
		}
	}

	if len(outcome.ConfirmedClaims) == 0 {
		return nil, &models.BedConflictError{BedIDs: outcome.FailedBedIDs}
	}

	for i := range outcome.ConfirmedClaims {
		claim := &outcome.ConfirmedClaims[i]
		bed := bedMap[claim.BedID]

		// Refresh the denormalized display identifiers at confirmation time.
		err = tx.QueryRowx(`
			UPDATE guest_claims
			SET status = 'confirmed',
			    assigned_room = $1,
			    assigned_bed = $2,
			    updated_at = NOW()
			WHERE id = $3
			RETURNING updated_at`,
			bed.RoomNumber, bed.BedNumber, claim.ID,
		).Scan(&claim.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to confirm guest claim %s: %w", claim.ID, err)
		}
		claim.Status = models.GuestClaimStatusConfirmed
		claim.AssignedRoom = bed.RoomNumber
		claim.AssignedBed = bed.BedNumber

		if err := bedRepo.OccupyBed(tx, claim.BedID, booking.BookingReference, claim.Name); err != nil {
			return nil, err
		}
	}

	for _, claim := range lostClaims {
		_, err = tx.Exec(`
			UPDATE guest_claims
			SET status = 'cancelled',
			    updated_at = NOW()
			WHERE id = $1`, claim.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to cancel lost guest claim %s: %w", claim.ID, err)
		}
	}

	confirmedCount := len(outcome.ConfirmedClaims)
	newStatus := models.BookingStatusPartiallyConfirmed
	if confirmedCount == booking.TotalGuests {
		newStatus = models.BookingStatusConfirmed
	}

	now := time.Now()
	_, err = tx.Exec(`
		UPDATE bookings
		SET status = $1,
		    confirmed_guests = $2,
		    processed_by = $3,
		    processed_date = $4,
		    updated_at = NOW()
		WHERE id = $5`,
		newStatus, confirmedCount, processedBy, now, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	booking.Status = newStatus
	booking.ConfirmedGuests = confirmedCount
	booking.ProcessedBy = &processedBy
	booking.ProcessedDate = &now
	outcome.Booking = booking
	return outcome, nil
}

// ============================================================================
// CANCEL
// ============================================================================

// CancelBooking cancels a booking, cancels every non-terminal guest claim and
// releases every bed the booking still holds, in one transaction.
func (r *BookingRepository) CancelBooking(
	bookingID, reason, cancelledBy string,
	bedRepo *BedRepository,
) (*models.Booking, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := r.lockBooking(tx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, &models.BookingNotFoundError{BookingID: bookingID}
	}
	if booking.Status.IsTerminal() {
		return nil, &models.BookingStatusError{
			BookingID: bookingID,
			Status:    booking.Status,
			Operation: "cancel",
		}
	}

	claims, err := r.claimsForBooking(tx, bookingID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = tx.Exec(`
		UPDATE bookings
		SET status = 'cancelled',
		    cancelled_at = $1,
		    cancelled_by = $2,
		    cancellation_reason = $3,
		    updated_at = NOW()
		WHERE id = $4`,
		now, cancelledBy, reason, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE guest_claims
		SET status = 'cancelled',
		    updated_at = NOW()
		WHERE booking_id = $1
		  AND status NOT IN ('cancelled', 'checked_out')`,
		bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel guest claims: %w", err)
	}

	// Reserved beds carry the booking reference as holder; occupied beds
	// carry the confirmed guest's name. Release both, scoped to this
	// booking's beds so a shared guest name cannot alias another booking.
	holders := []string{booking.BookingReference}
	bedIDs := make([]string, 0, len(claims))
	for _, claim := range claims {
		bedIDs = append(bedIDs, claim.BedID)
		if claim.Status == models.GuestClaimStatusConfirmed || claim.Status == models.GuestClaimStatusCheckedIn {
			holders = append(holders, claim.Name)
		}
	}
	if err := bedRepo.ReleaseBeds(tx, bedIDs, holders); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	booking.Status = models.BookingStatusCancelled
	booking.CancelledAt = &now
	booking.CancelledBy = &cancelledBy
	booking.CancellationReason = &reason
	return booking, nil
}

// ============================================================================
// READS
// ============================================================================

// GetBookingByID retrieves a booking with its guest claims. Returns nil when
// no booking exists.
func (r *BookingRepository) GetBookingByID(bookingID string) (*models.Booking, error) {
	booking := &models.Booking{}
	err := r.db.Get(booking, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1`, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	var claims []models.GuestClaim
	err = r.db.Select(&claims, `
		SELECT `+guestClaimColumns+`
		FROM guest_claims
		WHERE booking_id = $1
		ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guest claims: %w", err)
	}
	booking.Guests = claims
	return booking, nil
}

// GetBookingByReference retrieves a booking by its human-facing reference
func (r *BookingRepository) GetBookingByReference(reference string) (*models.Booking, error) {
	var bookingID string
	err := r.db.Get(&bookingID, `SELECT id FROM bookings WHERE booking_reference = $1`, reference)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by reference: %w", err)
	}
	return r.GetBookingByID(bookingID)
}

// ListBookings retrieves bookings ordered by creation time, optionally
// filtered by status
func (r *BookingRepository) ListBookings(status *models.BookingStatus, limit, offset int) ([]models.BookingListItem, error) {
	var bookings []models.BookingListItem
	if status != nil {
		err := r.db.Select(&bookings, `
			SELECT id, booking_reference, contact_name, contact_phone,
			       status, total_guests, confirmed_guests, check_in_date, created_at
			FROM bookings
			WHERE status = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`, *status, limit, offset)
		return bookings, err
	}

	err := r.db.Select(&bookings, `
		SELECT id, booking_reference, contact_name, contact_phone,
		       status, total_guests, confirmed_guests, check_in_date, created_at
		FROM bookings
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	return bookings, err
}

// CountPendingClaimsByPhone counts pending guest claims on pending bookings
// that carry the given phone. Used for the contact-uniqueness soft check.
func (r *BookingRepository) CountPendingClaimsByPhone(phone string) (int, error) {
	var count int
	err := r.db.Get(&count, `
		SELECT COUNT(*)
		FROM guest_claims gc
		JOIN bookings b ON b.id = gc.booking_id
		WHERE gc.phone = $1
		  AND gc.status = 'pending'
		  AND b.status = 'pending'`, phone)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending claims: %w", err)
	}
	return count, nil
}

// ============================================================================
// TX HELPERS
// ============================================================================

// lockBooking loads a booking under FOR UPDATE so concurrent confirm/cancel
// calls serialize on the aggregate row. Returns nil when not found.
func (r *BookingRepository) lockBooking(tx *sqlx.Tx, bookingID string) (*models.Booking, error) {
	booking := &models.Booking{}
	err := tx.Get(booking, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
		FOR UPDATE`, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) claimsForBooking(tx *sqlx.Tx, bookingID string) ([]models.GuestClaim, error) {
	var claims []models.GuestClaim
	err := tx.Select(&claims, `
		SELECT `+guestClaimColumns+`
		FROM guest_claims
		WHERE booking_id = $1
		ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guest claims: %w", err)
	}
	return claims, nil
}
