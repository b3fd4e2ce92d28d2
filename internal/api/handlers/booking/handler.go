// Package booking exposes the booking webhook for upstream channel managers.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/luxserv365/guest-concierge/internal/api/respond"
	"github.com/luxserv365/guest-concierge/internal/config"
	"github.com/luxserv365/guest-concierge/internal/model"
	bookingsvc "github.com/luxserv365/guest-concierge/internal/service/booking"
)

type bookingService interface {
	Receive(ctx context.Context, strategy retry.Strategy, in bookingsvc.Intake) (model.Booking, error)
}

type Handler struct {
	service   bookingService
	validator *validator.Validate
	cfg       *config.Config
}

func NewHandler(s bookingService, v *validator.Validate, cfg *config.Config) *Handler {
	return &Handler{service: s, validator: v, cfg: cfg}
}

// WebhookRequest represents the JSON body of a booking webhook.
type WebhookRequest struct {
	GuestName       string `json:"guest_name" validate:"required,max=100"`
	GuestEmail      string `json:"guest_email" validate:"required,email"`
	PropertyAddress string `json:"property_address" validate:"required,max=200"`
	CheckInDate     string `json:"check_in_date" validate:"required"`
	CheckOutDate    string `json:"check_out_date" validate:"required"`
	Source          string `json:"source"`
	ExternalRef     string `json:"external_ref"`
}

// Webhook records a new booking and queues its welcome message.
func (h *Handler) Webhook(c *ginext.Context) {
	var req WebhookRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	b, err := h.service.Receive(c.Request.Context(), h.cfg.Retry, bookingsvc.Intake{
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		PropertyAddress: req.PropertyAddress,
		CheckInDate:     req.CheckInDate,
		CheckOutDate:    req.CheckOutDate,
		Source:          req.Source,
		ExternalRef:     req.ExternalRef,
	})
	if err != nil {
		if errors.Is(err, bookingsvc.ErrValidation) {
			respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, err)
			return
		}

		zlog.Logger.Error().Err(err).Msg("failed to record booking")
		respond.Fail(c.Writer, http.StatusInternalServerError, respond.CodeServer, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, b)
}
