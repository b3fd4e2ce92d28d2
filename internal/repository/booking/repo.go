package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/luxserv365/guest-concierge/internal/model"
)

var ErrBookingNotFound = errors.New("booking not found")

// Repository provides access to the bookings table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new booking repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// CreateBooking inserts a booking received through the webhook.
func (r *Repository) CreateBooking(ctx context.Context, b model.Booking) error {
	query := `
		INSERT INTO bookings (
		    id, guest_name, guest_email, property_address, check_in_date,
		    check_out_date, source, external_ref, welcome_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
    `

	_, err := r.db.ExecContext(
		ctx, query,
		b.ID, b.GuestName, b.GuestEmail, b.PropertyAddress, b.CheckInDate,
		b.CheckOutDate, b.Source, b.ExternalRef, string(b.WelcomeStatus), b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetWelcomeStatusByID retrieves the welcome-message status of a booking.
func (r *Repository) GetWelcomeStatusByID(ctx context.Context, id uuid.UUID) (model.WelcomeStatus, error) {
	query := `
		SELECT welcome_status
		FROM bookings
		WHERE id = $1;
    `

	var status string
	err := r.db.Master.QueryRowContext(ctx, query, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrBookingNotFound
		}

		return "", fmt.Errorf("failed to get welcome status: %w", err)
	}

	return model.WelcomeStatus(status), nil
}

// UpdateWelcomeStatus transitions the welcome-message status of a booking.
func (r *Repository) UpdateWelcomeStatus(ctx context.Context, id uuid.UUID, status model.WelcomeStatus) error {
	query := `
		UPDATE bookings
		SET welcome_status = $1
		WHERE id = $2;
    `

	res, err := r.db.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update welcome status: %w", err)
	}

	rows, _ := res.RowsAffected()

	if rows == 0 {
		return ErrBookingNotFound
	}

	return nil
}
