package welcome

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/luxserv365/guest-concierge/internal/model"
	"github.com/luxserv365/guest-concierge/internal/rabbitmq/queue"
	"github.com/luxserv365/guest-concierge/internal/repository/booking"
)

type bookingService interface {
	SendWelcome(msg queue.WelcomeMessage) error
	SetWelcomeStatus(ctx context.Context, id uuid.UUID, status model.WelcomeStatus) error
}

type Handler struct {
	service bookingService
}

func NewHandler(svc bookingService) *Handler {
	return &Handler{
		service: svc,
	}
}

// HandleMessage sends one welcome email with retries and records the
// terminal outcome on the booking.
func (h *Handler) HandleMessage(ctx context.Context, msg queue.WelcomeMessage, strategy retry.Strategy) {
	zlog.Logger.Info().Msgf("Handle Message: Got welcome message for booking %s", msg.BookingID)

	err := retry.Do(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			zlog.Logger.Printf("Handle Message: Sending welcome email for booking %s", msg.BookingID)
			return h.service.SendWelcome(msg)
		}
	}, strategy)

	if err != nil {
		zlog.Logger.Printf("Handle Message: Welcome for booking %s failed, moving to DLQ: %v", msg.BookingID, err)
		if setErr := h.service.SetWelcomeStatus(ctx, msg.BookingID, model.WelcomeFailed); setErr != nil {
			if errors.Is(setErr, booking.ErrBookingNotFound) {
				zlog.Logger.Warn().Interface("booking_id", msg.BookingID).Err(err).Msg("booking not found")
			}

			zlog.Logger.Error().Err(setErr).Msgf("failed to set welcome_status=welcome-failed for %s", msg.BookingID)
		}
		return
	}

	zlog.Logger.Info().Msgf("Handle Message: Welcome for booking %s sent successfully", msg.BookingID)
	if setErr := h.service.SetWelcomeStatus(ctx, msg.BookingID, model.WelcomeSent); setErr != nil {
		if errors.Is(setErr, booking.ErrBookingNotFound) {
			zlog.Logger.Warn().Interface("booking_id", msg.BookingID).Err(err).Msg("booking not found")
		}

		zlog.Logger.Error().Err(setErr).Msgf("failed to set welcome_status=welcomed for %s", msg.BookingID)
	}
}
