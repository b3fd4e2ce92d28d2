// Package booking receives booking webhooks and drives the welcome-message
// flow through the queue.
package booking

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/luxserv365/guest-concierge/internal/model"
	"github.com/luxserv365/guest-concierge/internal/rabbitmq/queue"
)

// ErrValidation marks a malformed webhook payload.
var ErrValidation = errors.New("validation error")

type bookingRepository interface {
	CreateBooking(ctx context.Context, b model.Booking) error
	GetWelcomeStatusByID(ctx context.Context, id uuid.UUID) (model.WelcomeStatus, error)
	UpdateWelcomeStatus(ctx context.Context, id uuid.UUID, status model.WelcomeStatus) error
}

type welcomeQueue interface {
	Publish(msg queue.WelcomeMessage, strategy retry.Strategy) error
}

// Notifier is the email channel used for welcome messages.
type Notifier interface {
	Send(to, subject, msg string) error
}

type Service struct {
	repo   bookingRepository
	queue  welcomeQueue
	mailer Notifier
}

func NewService(repo bookingRepository, queue welcomeQueue, mailer Notifier) *Service {
	return &Service{repo: repo, queue: queue, mailer: mailer}
}

// Intake is a booking webhook payload from an upstream channel manager.
type Intake struct {
	GuestName       string
	GuestEmail      string
	PropertyAddress string
	CheckInDate     string
	CheckOutDate    string
	Source          string
	ExternalRef     string
}

// Receive records the booking and enqueues its welcome message. A publish
// failure is logged and leaves the booking in the pending state for a later
// sweep; the webhook itself still succeeds.
func (s *Service) Receive(ctx context.Context, strategy retry.Strategy, in Intake) (model.Booking, error) {
	if err := validate(in); err != nil {
		return model.Booking{}, err
	}

	b := model.Booking{
		ID:              uuid.New(),
		GuestName:       strings.TrimSpace(in.GuestName),
		GuestEmail:      in.GuestEmail,
		PropertyAddress: strings.TrimSpace(in.PropertyAddress),
		CheckInDate:     in.CheckInDate,
		CheckOutDate:    in.CheckOutDate,
		Source:          in.Source,
		ExternalRef:     in.ExternalRef,
		WelcomeStatus:   model.WelcomePending,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.repo.CreateBooking(ctx, b); err != nil {
		return model.Booking{}, fmt.Errorf("create booking: %w", err)
	}

	msg := queue.WelcomeMessage{
		BookingID:       b.ID,
		GuestName:       b.GuestName,
		GuestEmail:      b.GuestEmail,
		PropertyAddress: b.PropertyAddress,
		CheckInDate:     b.CheckInDate,
	}

	if err := s.queue.Publish(msg, strategy); err != nil {
		zlog.Logger.Error().Err(err).Str("booking_id", b.ID.String()).Msg("failed to publish welcome message")
	}

	return b, nil
}

// SendWelcome delivers the welcome email for one queued booking.
func (s *Service) SendWelcome(msg queue.WelcomeMessage) error {
	subject := fmt.Sprintf("Welcome to %s", msg.PropertyAddress)
	body := welcomeBody(msg)

	if err := s.mailer.Send(msg.GuestEmail, subject, body); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}

	return nil
}

// GetWelcomeStatusByID returns the welcome-message status of a booking.
func (s *Service) GetWelcomeStatusByID(ctx context.Context, id uuid.UUID) (model.WelcomeStatus, error) {
	status, err := s.repo.GetWelcomeStatusByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get welcome status: %w", err)
	}

	return status, nil
}

// SetWelcomeStatus transitions the welcome-message status of a booking.
func (s *Service) SetWelcomeStatus(ctx context.Context, id uuid.UUID, status model.WelcomeStatus) error {
	if err := s.repo.UpdateWelcomeStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update welcome status: %w", err)
	}

	return nil
}

func validate(in Intake) error {
	if strings.TrimSpace(in.GuestName) == "" {
		return fmt.Errorf("%w: guest name is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(in.GuestEmail); err != nil {
		return fmt.Errorf("%w: invalid guest email", ErrValidation)
	}
	if strings.TrimSpace(in.PropertyAddress) == "" {
		return fmt.Errorf("%w: property address is required", ErrValidation)
	}
	if in.CheckInDate == "" || in.CheckOutDate == "" {
		return fmt.Errorf("%w: check-in and check-out dates are required", ErrValidation)
	}

	return nil
}

func welcomeBody(msg queue.WelcomeMessage) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Hi %s,\n\n", msg.GuestName)
	fmt.Fprintf(&b, "We are delighted to host you at %s starting %s.\n\n", msg.PropertyAddress, msg.CheckInDate)
	fmt.Fprintf(&b, "Need anything before or during your stay? Submit a request through the guest portal ")
	fmt.Fprintf(&b, "and our concierge team will take care of it.\n\n")
	fmt.Fprintf(&b, "See you soon,\nThe Concierge Team\n")

	return b.String()
}
