package database

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mghostels/booking-backend/internal/models"
)

var bedTestColumns = []string{
	"id", "room_id", "room_number", "bed_number", "status", "gender",
	"reserved_by", "occupant_name", "maintenance_reason", "created_at", "updated_at",
}

var bookingTestColumns = []string{
	"id", "booking_reference", "contact_name", "contact_phone", "contact_email",
	"status", "total_guests", "confirmed_guests",
	"check_in_date", "duration_days", "notes", "source",
	"processed_by", "processed_date",
	"cancelled_at", "cancelled_by", "cancellation_reason",
	"created_at", "updated_at",
}

var claimTestColumns = []string{
	"id", "booking_id", "bed_id", "name", "age", "gender", "phone", "email",
	"status", "assigned_room", "assigned_bed", "created_at", "updated_at",
}

func newBookingTestRepos(t *testing.T) (*BookingRepository, *BedRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewBookingRepository(sqlxDB, "MGB", 5), NewBedRepository(sqlxDB), mock, func() { db.Close() }
}

func addBedRow(rows *sqlmock.Rows, id, roomNumber, bedNumber string, status models.BedStatus, reservedBy interface{}) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "room-1", roomNumber, bedNumber, string(status), "any", reservedBy, nil, nil, now, now)
}

func addBookingRow(rows *sqlmock.Rows, id, reference string, status models.BookingStatus, totalGuests int) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, reference, "Kasun Perera", "0771234567", nil,
		string(status), totalGuests, 0,
		nil, nil, nil, nil,
		nil, nil,
		nil, nil, nil,
		now, now,
	)
}

func addClaimRow(rows *sqlmock.Rows, id, bookingID, bedID, name string, status models.GuestClaimStatus) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, bookingID, bedID, name, 25, "male", "0771234567", nil,
		string(status), "R1", "R1-01", now, now)
}

func TestGenerateBookingReference(t *testing.T) {
	repo, _, mock, closeFn := newBookingTestRepos(t)
	defer closeFn()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		ref, err := repo.GenerateBookingReference()
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^MGB\d{6}[A-Z0-9]{6}$`), ref)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Retries On Collision", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`SELECT COUNT`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		ref, err := repo.GenerateBookingReference()
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^MGB\d{6}[A-Z0-9]{6}$`), ref)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Exhausts Attempts", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			mock.ExpectQuery(`SELECT COUNT`).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		}

		_, err := repo.GenerateBookingReference()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "after 5 attempts")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateBooking(t *testing.T) {
	t.Run("Two Guests Both Beds Available", func(t *testing.T) {
		repo, bedRepo, mock, closeFn := newBookingTestRepos(t)
		defer closeFn()

		now := time.Now()

		mock.ExpectBegin()
		bedRows := sqlmock.NewRows(bedTestColumns)
		addBedRow(bedRows, "B1", "R1", "R1-01", models.BedStatusAvailable, nil)
		addBedRow(bedRows, "B2", "R1", "R1-02", models.BedStatusAvailable, nil)
		mock.ExpectQuery(`SELECT (.+) FROM beds WHERE id IN (.+) FOR UPDATE`).
			WithArgs("B1", "B2").
			WillReturnRows(bedRows)
		mock.ExpectQuery(`SELECT COUNT`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`SAVEPOINT booking_insert`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow("BK1", now, now))
		mock.ExpectQuery(`INSERT INTO guest_claims`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow("GC1", now, now))
		mock.ExpectExec(`UPDATE beds`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO guest_claims`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow("GC2", now, now))
		mock.ExpectExec(`UPDATE beds`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking := &models.Booking{
			ContactName:  "Kasun Perera",
			ContactPhone: "0771234567",
		}
		claims := []models.GuestClaim{
			{BedID: "B1", Name: "Kasun Perera", Age: 28, Gender: "male", Phone: "0771234567"},
			{BedID: "B2", Name: "Nimal Silva", Age: 31, Gender: "male", Phone: "0772345678"},
		}

		created, err := repo.CreateBooking(booking, claims, bedRepo)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusPending, created.Status)
		assert.Equal(t, 2, created.TotalGuests)
		assert.Equal(t, 0, created.ConfirmedGuests)
		assert.Regexp(t, regexp.MustCompile(`^MGB\d{6}[A-Z0-9]{6}$`), created.BookingReference)
		require.Len(t, created.Guests, 2)
		assert.Equal(t, models.GuestClaimStatusPending, created.Guests[0].Status)
		assert.Equal(t, "R1", created.Guests[0].AssignedRoom)
		assert.Equal(t, "R1-01", created.Guests[0].AssignedBed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Bed Already Reserved", func(t *testing.T) {
		repo, bedRepo, mock, closeFn := newBookingTestRepos(t)
		defer closeFn()

		mock.ExpectBegin()
		bedRows := sqlmock.NewRows(bedTestColumns)
		addBedRow(bedRows, "B1", "R1", "R1-01", models.BedStatusReserved, "MGB111111AAAAAA")
		addBedRow(bedRows, "B2", "R1", "R1-02", models.BedStatusAvailable, nil)
		mock.ExpectQuery(`SELECT (.+) FROM beds WHERE id IN (.+) FOR UPDATE`).
			WithArgs("B1", "B2").
			WillReturnRows(bedRows)
		mock.ExpectRollback()

		booking := &models.Booking{ContactName: "Kasun Perera", ContactPhone: "0771234567"}
		claims := []models.GuestClaim{
			{BedID: "B1", Name: "Kasun Perera", Age: 28, Gender: "male", Phone: "0771234567"},
			{BedID: "B2", Name: "Nimal Silva", Age: 31, Gender: "male", Phone: "0772345678"},
		}

		_, err := repo.CreateBooking(booking, claims, bedRepo)
		var conflictErr *models.BedConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, []string{"B1"}, conflictErr.BedIDs)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Bed Missing", func(t *testing.T) {
		repo, bedRepo, mock, closeFn := newBookingTestRepos(t)
		defer closeFn()

		mock.ExpectBegin()
		bedRows := sqlmock.NewRows(bedTestColumns)
		mock.ExpectQuery(`SELECT (.+) FROM beds WHERE id IN (.+) FOR UPDATE`).
			WithArgs("B9").
			WillReturnRows(bedRows)
		mock.ExpectRollback()

		booking := &models.Booking{ContactName: "Kasun Perera", ContactPhone: "0771234567"}
		claims := []models.GuestClaim{
			{BedID: "B9", Name: "Kasun Perera", Age: 28, Gender: "male", Phone: "0771234567"},
		}

		_, err := repo.CreateBooking(booking, claims, bedRepo)
		var conflictErr *models.BedConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, []string{"B9"}, conflictErr.BedIDs)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Auto Assign Single Guest", func(t *testing.T) {
		repo, bedRepo, mock, closeFn := newBookingTestRepos(t)
		defer closeFn()

		now := time.Now()

		mock.ExpectBegin()
		autoRows := sqlmock.NewRows(bedTestColumns)
		addBedRow(autoRows, "B7", "R2", "R2-03", models.BedStatusAvailable, nil)
		mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
			WillReturnRows(autoRows)
		lockRows := sqlmock.NewRows(bedTestColumns)
		addBedRow(lockRows, "B7", "R2", "R2-03", models.BedStatusAvailable, nil)
		mock.ExpectQuery(`SELECT (.+) FROM beds WHERE id IN (.+) FOR UPDATE`).
			WithArgs("B7").
			WillReturnRows(lockRows)
		mock.ExpectQuery(`SELECT COUNT`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`SAVEPOINT booking_insert`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow("BK1", now, now))
		mock.ExpectQuery(`INSERT INTO guest_claims`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow("GC1", now, now))
		mock.ExpectExec(`UPDATE beds`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking := &models.Booking{ContactName: "Kasun Perera", ContactPhone: "0771234567"}
		claims := []models.GuestClaim{
			{BedID: models.AutoAssignBedID, Name: "Kasun Perera", Age: 28, Gender: "male", Phone: "0771234567"},
		}

		created, err := repo.CreateBooking(booking, claims, bedRepo)
		require.NoError(t, err)
		require.Len(t, created.Guests, 1)
		assert.Equal(t, "B7", created.Guests[0].BedID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Reference Collision At Insert Retries", func(t *testing.T) {
		repo, bedRepo, mock, closeFn := newBookingTestRepos(t)
		defer closeFn()

		now := time.Now()

		mock.ExpectBegin()
		bedRows := sqlmock.NewRows(bedTestColumns)
		addBedRow(bedRows, "B1", "R1", "R1-01", models.BedStatusAvailable, nil)
		mock.ExpectQuery(`SELECT (.+) FROM beds WHERE id IN (.+) FOR UPDATE`).
			WithArgs("B1").
			WillReturnRows(bedRows)

		// First attempt: pre-check passes but a concurrent commit wins the
		// unique index race. The savepoint rollback keeps the tx usable.
		mock.ExpectQuery(`SELECT COUNT`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`SAVEPOINT booking_insert`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "bookings_booking_reference_key"})
		mock.ExpectExec(`ROLLBACK TO SAVEPOINT booking_insert`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		// Second attempt succeeds with a fresh reference.
		mock.ExpectQuery(`SELECT COUNT`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`SAVEPOINT booking_insert`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow("BK1", now, now))
		mock.ExpectQuery(`INSERT INTO guest_claims`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow("GC1", now, now))
		mock.ExpectExec(`UPDATE beds`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking := &models.Booking{ContactName: "Kasun Perera", ContactPhone: "0771234567"}
		claims := []models.GuestClaim{
			{BedID: "B1", Name: "Kasun Perera", Age: 28, Gender: "male", Phone: "0771234567"},
		}

		created, err := repo.CreateBooking(booking, claims, bedRepo)
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^MGB\d{6}[A-Z0-9]{6}$`), created.BookingReference)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Auto Assign No Beds Left", func(t *testing.T) {
		repo, bedRepo, mock, closeFn := newBookingTestRepos(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		booking := &models.Booking{ContactName: "Kasun Perera", ContactPhone: "0771234567"}
		claims := []models.GuestClaim{
			{BedID: models.AutoAssignBedID, Name: "Kasun Perera", Age: 28, Gender: "male", Phone: "0771234567"},
		}

		_, err := repo.CreateBooking(booking, claims, bedRepo)
		var conflictErr *models.BedConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, []string{models.AutoAssignBedID}, conflictErr.BedIDs)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConfirmBooking(t *testing.T) {
	const reference = "MGB123456ABC123"

	t.Run("Full Confirmation", func(t *testing.T) {
		repo, bedRepo, mock, closeFn := newBookingTestRepos(t)
		defer closeFn()

		now := time.Now()

		mock.ExpectBegin()
		bookingRows := sqlmock.NewRows(bookingTestColumns)
		addBookingRow(bookingRows, "BK1", reference, models.BookingStatusPending, 2)
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs("BK1").
			WillReturnRows(bookingRows)

		claimRows := sqlmock.NewRows(claimTestColumns)
		addClaimRow(claimRows, "GC1", "BK1", "B1", "Kasun Perera", models.GuestClaimStatusPending)
		addClaimRow(claimRows, "GC2", "BK1", "B2", "Nimal Silva", models.GuestClaimStatusPending)
		mock.ExpectQuery(`SELECT (.+) FROM guest_claims`).
			WithArgs("BK1").
			WillReturnRows(claimRows)

		bedRows := sqlmock.NewRows(bedTestColumns)
		addBedRow(bedRows, "B1", "R1", "R1-01", models.BedStatusReserved, reference)
		addBedRow(bedRows, "B2", "R1", "R1-02", models.BedStatusReserved, reference)
		mock.ExpectQuery(`SELECT (.+) FROM beds WHERE id IN (.+) FOR UPDATE`).
			WithArgs("B1", "B2").
			WillReturnRows(bedRows)

		for range []string{"B1", "B2"} {
			mock.ExpectQuery(`UPDATE guest_claims`).
				WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
			mock.ExpectExec(`UPDATE beds`).
				WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		outcome, err := repo.ConfirmBooking("BK1", "warden01", bedRepo)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, outcome.Booking.Status)
		assert.Equal(t, 2, outcome.Booking.ConfirmedGuests)
		assert.Len(t, outcome.ConfirmedClaims, 2)
		assert.Empty(t, outcome.FailedBedIDs)
		require.NotNil(t, outcome.Booking.ProcessedBy)
		assert.Equal(t, "warden01", *outcome.Booking.ProcessedBy)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Partial Confirmation Bed In Maintenance", func(t *testing.T) {
		repo, bedRepo, mock, closeFn := newBookingTestRepos(t)
		defer closeFn()

		now := time.Now()

		mock.ExpectBegin()
		bookingRows := sqlmock.NewRows(bookingTestColumns)
		addBookingRow(bookingRows, "BK1", reference, models.BookingStatusPending, 2)
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs("BK1").
			WillReturnRows(bookingRows)

		claimRows := sqlmock.NewRows(claimTestColumns)
		addClaimRow(claimRows, "GC1", "BK1", "B1", "Kasun Perera", models.GuestClaimStatusPending)
		addClaimRow(claimRows, "GC2", "BK1", "B2", "Nimal Silva", models.GuestClaimStatusPending)
		mock.ExpectQuery(`SELECT (.+) FROM guest_claims`).
			WithArgs("BK1").
			WillReturnRows(claimRows)

		bedRows := sqlmock.NewRows(bedTestColumns)
		addBedRow(bedRows, "B1", "R1", "R1-01", models.BedStatusReserved, reference)
		addBedRow(bedRows, "B2", "R1", "R1-02", models.BedStatusMaintenance, nil)
		mock.ExpectQuery(`SELECT (.+) FROM beds WHERE id IN (.+) FOR UPDATE`).
			WithArgs("B1", "B2").
			WillReturnRows(bedRows)

		// B1's claim confirms, B2's claim is cancelled. B2's bed stays
		// untouched.
		mock.ExpectQuery(`UPDATE guest_claims`).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
		mock.ExpectExec(`UPDATE beds`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE guest_claims`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		outcome, err := repo.ConfirmBooking("BK1", "warden01", bedRepo)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusPartiallyConfirmed, outcome.Booking.Status)
		assert.Equal(t, 1, outcome.Booking.ConfirmedGuests)
		assert.Equal(t, 2, outcome.Booking.TotalGuests)
		require.Len(t, outcome.ConfirmedClaims, 1)
		assert.Equal(t, "B1", outcome.ConfirmedClaims[0].BedID)
		assert.Equal(t, []string{"B2"}, outcome.FailedBedIDs)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nothing Still Reserved", func(t *testing.T) {
		repo, bedRepo, mock, closeFn := newBookingTestRepos(t)
		defer closeFn()

		mock.ExpectBegin()
		bookingRows := sqlmock.NewRows(bookingTestColumns)
		addBookingRow(bookingRows, "BK1", reference, models.BookingStatusPending, 1)
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs("BK1").
			WillReturnRows(bookingRows)

		claimRows := sqlmock.NewRows(claimTestColumns)
		addClaimRow(claimRows, "GC1", "BK1", "B1", "Kasun Perera", models.GuestClaimStatusPending)
		mock.ExpectQuery(`SELECT (.+) FROM guest_claims`).
			WithArgs("BK1").
			WillReturnRows(claimRows)

		bedRows := sqlmock.NewRows(bedTestColumns)
		addBedRow(bedRows, "B1", "R1", "R1-01", models.BedStatusReserved, "MGB999999ZZZZZZ")
		mock.ExpectQuery(`SELECT (.+) FROM beds WHERE id IN (.+) FOR UPDATE`).
			WithArgs("B1").
			WillReturnRows(bedRows)
		mock.ExpectRollback()

		_, err := repo.ConfirmBooking("BK1", "warden01", bedRepo)
		var conflictErr *models.BedConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, []string{"B1"}, conflictErr.BedIDs)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Confirmed", func(t *testing.T) {
		repo, bedRepo, mock, closeFn := newBookingTestRepos(t)
		defer closeFn()

		mock.ExpectBegin()
		bookingRows := sqlmock.NewRows(bookingTestColumns)
		addBookingRow(bookingRows, "BK1", reference, models.BookingStatusConfirmed, 1)
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs("BK1").
			WillReturnRows(bookingRows)
		mock.ExpectRollback()

		_, err := repo.ConfirmBooking("BK1", "warden01", bedRepo)
		var statusErr *models.BookingStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, "confirm", statusErr.Operation)
		assert.Equal(t, models.BookingStatusConfirmed, statusErr.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		repo, bedRepo, mock, closeFn := newBookingTestRepos(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := repo.ConfirmBooking("missing", "warden01", bedRepo)
		var notFoundErr *models.BookingNotFoundError
		assert.ErrorAs(t, err, &notFoundErr)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCancelBooking(t *testing.T) {
	const reference = "MGB123456ABC123"

	t.Run("Pending Booking Releases Bed", func(t *testing.T) {
		repo, bedRepo, mock, closeFn := newBookingTestRepos(t)
		defer closeFn()

		mock.ExpectBegin()
		bookingRows := sqlmock.NewRows(bookingTestColumns)
		addBookingRow(bookingRows, "BK1", reference, models.BookingStatusPending, 1)
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs("BK1").
			WillReturnRows(bookingRows)

		claimRows := sqlmock.NewRows(claimTestColumns)
		addClaimRow(claimRows, "GC1", "BK1", "B1", "Kasun Perera", models.GuestClaimStatusPending)
		mock.ExpectQuery(`SELECT (.+) FROM guest_claims`).
			WithArgs("BK1").
			WillReturnRows(claimRows)

		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(sqlmock.AnyArg(), "warden01", "guest request", "BK1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE guest_claims`).
			WithArgs("BK1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE beds`).
			WithArgs("B1", reference).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := repo.CancelBooking("BK1", "guest request", "warden01", bedRepo)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, booking.Status)
		require.NotNil(t, booking.CancellationReason)
		assert.Equal(t, "guest request", *booking.CancellationReason)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Partially Confirmed Releases By Guest Name Too", func(t *testing.T) {
		repo, bedRepo, mock, closeFn := newBookingTestRepos(t)
		defer closeFn()

		mock.ExpectBegin()
		bookingRows := sqlmock.NewRows(bookingTestColumns)
		addBookingRow(bookingRows, "BK1", reference, models.BookingStatusPartiallyConfirmed, 2)
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs("BK1").
			WillReturnRows(bookingRows)

		claimRows := sqlmock.NewRows(claimTestColumns)
		addClaimRow(claimRows, "GC1", "BK1", "B1", "Kasun Perera", models.GuestClaimStatusConfirmed)
		addClaimRow(claimRows, "GC2", "BK1", "B2", "Nimal Silva", models.GuestClaimStatusCancelled)
		mock.ExpectQuery(`SELECT (.+) FROM guest_claims`).
			WithArgs("BK1").
			WillReturnRows(claimRows)

		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE guest_claims`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE beds`).
			WithArgs("B1", "B2", reference, "Kasun Perera").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := repo.CancelBooking("BK1", "no show", "warden01", bedRepo)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Cancelled", func(t *testing.T) {
		repo, bedRepo, mock, closeFn := newBookingTestRepos(t)
		defer closeFn()

		mock.ExpectBegin()
		bookingRows := sqlmock.NewRows(bookingTestColumns)
		addBookingRow(bookingRows, "BK1", reference, models.BookingStatusCancelled, 1)
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs("BK1").
			WillReturnRows(bookingRows)
		mock.ExpectRollback()

		_, err := repo.CancelBooking("BK1", "again", "warden01", bedRepo)
		var statusErr *models.BookingStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, "cancel", statusErr.Operation)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetBookingByID(t *testing.T) {
	repo, _, mock, closeFn := newBookingTestRepos(t)
	defer closeFn()

	t.Run("Found With Claims", func(t *testing.T) {
		bookingRows := sqlmock.NewRows(bookingTestColumns)
		addBookingRow(bookingRows, "BK1", "MGB123456ABC123", models.BookingStatusPending, 1)
		mock.ExpectQuery(`SELECT (.+) FROM bookings`).
			WithArgs("BK1").
			WillReturnRows(bookingRows)

		claimRows := sqlmock.NewRows(claimTestColumns)
		addClaimRow(claimRows, "GC1", "BK1", "B1", "Kasun Perera", models.GuestClaimStatusPending)
		mock.ExpectQuery(`SELECT (.+) FROM guest_claims`).
			WithArgs("BK1").
			WillReturnRows(claimRows)

		booking, err := repo.GetBookingByID("BK1")
		require.NoError(t, err)
		require.NotNil(t, booking)
		assert.Len(t, booking.Guests, 1)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		booking, err := repo.GetBookingByID("missing")
		require.NoError(t, err)
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings`).
			WithArgs("BK1").
			WillReturnError(fmt.Errorf("database error"))

		_, err := repo.GetBookingByID("BK1")
		assert.Error(t, err)
		assert.True(t, !errors.Is(err, sql.ErrNoRows))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCountPendingClaimsByPhone(t *testing.T) {
	repo, _, mock, closeFn := newBookingTestRepos(t)
	defer closeFn()

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs("0771234567").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountPendingClaimsByPhone("0771234567")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}
