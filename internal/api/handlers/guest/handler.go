// Package guest exposes the public portal endpoints: request submission,
// confirmation lookup, status polling, and photo retrieval.
package guest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/luxserv365/guest-concierge/internal/api/respond"
	"github.com/luxserv365/guest-concierge/internal/config"
	"github.com/luxserv365/guest-concierge/internal/model"
	"github.com/luxserv365/guest-concierge/internal/photostore"
	reqrepo "github.com/luxserv365/guest-concierge/internal/repository/request"
	requestsvc "github.com/luxserv365/guest-concierge/internal/service/request"
)

const maxUploadBytes = 32 << 20

type requestService interface {
	Submit(ctx context.Context, strategy retry.Strategy, in requestsvc.SubmitInput, attachments []requestsvc.Attachment) (model.GuestRequest, error)
	LookupByConfirmation(ctx context.Context, code string) (model.GuestRequest, error)
	StatusByConfirmation(ctx context.Context, strategy retry.Strategy, code string) (model.Status, error)
}

type photoOpener interface {
	Open(name string) (io.ReadCloser, error)
}

type Handler struct {
	service   requestService
	photos    photoOpener
	validator *validator.Validate
	cfg       *config.Config
}

func NewHandler(
	s requestService,
	photos photoOpener,
	v *validator.Validate,
	cfg *config.Config,
) *Handler {
	return &Handler{service: s, photos: photos, validator: v, cfg: cfg}
}

// submitForm mirrors the multipart fields of the portal form.
type submitForm struct {
	GuestName       string `validate:"required,max=100"`
	GuestEmail      string `validate:"required,email"`
	GuestPhone      string `validate:"omitempty"`
	PropertyAddress string `validate:"required,max=200"`
	CheckInDate     string `validate:"required"`
	CheckOutDate    string `validate:"required"`
	UnitNumber      string `validate:"omitempty,max=50"`
	RequestType     string `validate:"required"`
	Priority        string `validate:"omitempty"`
	Message         string `validate:"required,max=2000"`
}

// Submit handles the multipart portal form. Photo parts are optional and a
// request without any survives an attachment failure.
func (h *Handler) Submit(c *ginext.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to parse multipart form")
		respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, fmt.Errorf("invalid multipart form"))
		return
	}

	form := submitForm{
		GuestName:       c.Request.FormValue("guest_name"),
		GuestEmail:      c.Request.FormValue("guest_email"),
		GuestPhone:      c.Request.FormValue("guest_phone"),
		PropertyAddress: c.Request.FormValue("property_address"),
		CheckInDate:     c.Request.FormValue("check_in_date"),
		CheckOutDate:    c.Request.FormValue("check_out_date"),
		UnitNumber:      c.Request.FormValue("unit_number"),
		RequestType:     c.Request.FormValue("request_type"),
		Priority:        c.Request.FormValue("priority"),
		Message:         c.Request.FormValue("message"),
	}

	if err := h.validator.Struct(form); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate submission form")
		respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	in := requestsvc.SubmitInput{
		GuestName:       form.GuestName,
		GuestEmail:      form.GuestEmail,
		GuestPhone:      form.GuestPhone,
		PropertyAddress: form.PropertyAddress,
		CheckInDate:     form.CheckInDate,
		CheckOutDate:    form.CheckOutDate,
		UnitNumber:      form.UnitNumber,
		RequestType:     form.RequestType,
		Priority:        form.Priority,
		Message:         form.Message,
	}

	if v := c.Request.FormValue("number_of_guests"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, fmt.Errorf("invalid number_of_guests"))
			return
		}
		in.NumberOfGuests = n
	}

	if v := c.Request.FormValue("booking_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, fmt.Errorf("invalid booking_id"))
			return
		}
		in.BookingID = uuid.NullUUID{UUID: id, Valid: true}
	}

	var attachments []requestsvc.Attachment
	if c.Request.MultipartForm != nil {
		for _, fh := range c.Request.MultipartForm.File["photos"] {
			file, err := fh.Open()
			if err != nil {
				zlog.Logger.Error().Err(err).Str("photo", fh.Filename).Msg("failed to open uploaded photo")
				continue
			}
			defer file.Close()

			attachments = append(attachments, requestsvc.Attachment{
				OriginalName: fh.Filename,
				ContentType:  fh.Header.Get("Content-Type"),
				Data:         file,
			})
		}
	}

	req, err := h.service.Submit(c.Request.Context(), h.cfg.Retry, in, attachments)
	if err != nil {
		if errors.Is(err, requestsvc.ErrValidation) {
			zlog.Logger.Warn().Err(err).Msg("rejected guest request submission")
			respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, err)
			return
		}

		zlog.Logger.Error().Err(err).Msg("failed to create guest request")
		respond.Fail(c.Writer, http.StatusInternalServerError, respond.CodeServer, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, req)
}

// Lookup returns the full request behind a confirmation code.
func (h *Handler) Lookup(c *ginext.Context) {
	code := c.Param("confirmation")

	req, err := h.service.LookupByConfirmation(c.Request.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, requestsvc.ErrValidation):
			respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, err)
		case errors.Is(err, reqrepo.ErrRequestNotFound):
			zlog.Logger.Warn().Str("confirmation", code).Msg("guest request not found")
			respond.Fail(c.Writer, http.StatusNotFound, respond.CodeNotFound, fmt.Errorf("request not found"))
		default:
			zlog.Logger.Error().Err(err).Str("confirmation", code).Msg("failed to look up guest request")
			respond.Fail(c.Writer, http.StatusInternalServerError, respond.CodeServer, fmt.Errorf("internal server error"))
		}
		return
	}

	respond.OK(c.Writer, req)
}

// Status returns only the lifecycle status, served cache-first so guests can
// poll it cheaply.
func (h *Handler) Status(c *ginext.Context) {
	code := c.Param("confirmation")

	status, err := h.service.StatusByConfirmation(c.Request.Context(), h.cfg.Retry, code)
	if err != nil {
		switch {
		case errors.Is(err, requestsvc.ErrValidation):
			respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, err)
		case errors.Is(err, reqrepo.ErrRequestNotFound):
			respond.Fail(c.Writer, http.StatusNotFound, respond.CodeNotFound, fmt.Errorf("request not found"))
		default:
			zlog.Logger.Error().Err(err).Str("confirmation", code).Msg("failed to get request status")
			respond.Fail(c.Writer, http.StatusInternalServerError, respond.CodeServer, fmt.Errorf("internal server error"))
		}
		return
	}

	respond.OK(c.Writer, map[string]string{"status": string(status)})
}

// Photo streams a stored photo back to the browser.
func (h *Handler) Photo(c *ginext.Context) {
	name := c.Param("filename")

	rc, err := h.photos.Open(name)
	if err != nil {
		if errors.Is(err, photostore.ErrPhotoNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, respond.CodeNotFound, fmt.Errorf("photo not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("photo", name).Msg("failed to open photo")
		respond.Fail(c.Writer, http.StatusInternalServerError, respond.CodeServer, fmt.Errorf("internal server error"))
		return
	}
	defer rc.Close()

	c.Writer.Header().Set("Content-Type", photostore.ContentType(name))
	c.Writer.WriteHeader(http.StatusOK)

	if _, err := io.Copy(c.Writer, rc); err != nil {
		zlog.Logger.Error().Err(err).Str("photo", name).Msg("failed to stream photo")
	}
}
