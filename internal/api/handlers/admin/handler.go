// Package admin exposes the staff dashboard endpoints behind the login.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/luxserv365/guest-concierge/internal/api/respond"
	"github.com/luxserv365/guest-concierge/internal/config"
	"github.com/luxserv365/guest-concierge/internal/model"
	reqrepo "github.com/luxserv365/guest-concierge/internal/repository/request"
	adminsvc "github.com/luxserv365/guest-concierge/internal/service/admin"
)

type triageService interface {
	List(ctx context.Context, f reqrepo.ListFilter) (adminsvc.Page, error)
	Update(ctx context.Context, strategy retry.Strategy, id uuid.UUID, patch adminsvc.Patch) (model.GuestRequest, bool, error)
	BulkUpdate(ctx context.Context, strategy retry.Strategy, ids []uuid.UUID, patch adminsvc.Patch) (adminsvc.BulkResult, error)
	Reply(ctx context.Context, strategy retry.Strategy, id uuid.UUID, subject, message, adminUsername string) (model.GuestRequest, error)
}

type analyticsService interface {
	Summarize(ctx context.Context) (model.AnalyticsSnapshot, error)
}

type Handler struct {
	triage    triageService
	analytics analyticsService
	validator *validator.Validate
	cfg       *config.Config
}

func NewHandler(
	t triageService,
	a analyticsService,
	v *validator.Validate,
	cfg *config.Config,
) *Handler {
	return &Handler{triage: t, analytics: a, validator: v, cfg: cfg}
}

// LoginRequest represents the JSON body of a dashboard login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login checks the static dashboard credentials and issues an opaque
// session token.
func (h *Handler) Login(c *ginext.Context) {
	var req LoginRequest

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

	if req.Username != h.cfg.Admin.Username || req.Password != h.cfg.Admin.Password {
		zlog.Logger.Warn().Str("username", req.Username).Msg("rejected admin login")
		respond.Fail(c.Writer, http.StatusUnauthorized, respond.CodeAuth, fmt.Errorf("invalid credentials"))
		return
	}

	respond.OK(c.Writer, map[string]string{
		"token":    uuid.NewString(),
		"username": req.Username,
	})
}

// List returns one page of requests, filtered by the query parameters.
func (h *Handler) List(c *ginext.Context) {
	filter := reqrepo.ListFilter{
		Search:      c.Query("search"),
		Status:      c.Query("status"),
		Priority:    c.Query("priority"),
		RequestType: c.Query("request_type"),
	}

	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, fmt.Errorf("invalid page"))
			return
		}
		filter.Page = n
	}

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, fmt.Errorf("invalid limit"))
			return
		}
		filter.Limit = n
	}

	if v := c.Query("date_from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, fmt.Errorf("invalid date_from"))
			return
		}
		filter.DateFrom = &t
	}

	if v := c.Query("date_to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, fmt.Errorf("invalid date_to"))
			return
		}
		filter.DateTo = &t
	}

	page, err := h.triage.List(c.Request.Context(), filter)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to list guest requests")
		respond.Fail(c.Writer, http.StatusInternalServerError, respond.CodeServer, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, page)
}

// UpdateRequest represents the JSON body of a single-request update.
type UpdateRequest struct {
	Status        string `json:"status"`
	Priority      string `json:"priority"`
	InternalNote  string `json:"internalNote"`
	AdminUsername string `json:"adminUsername" validate:"required"`
}

// Update applies a partial update to one request.
func (h *Handler) Update(c *ginext.Context) {
	id, ok := h.parseID(c, c.Param("id"))
	if !ok {
		return
	}

	var req UpdateRequest
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

	patch := adminsvc.Patch{
		Status:        model.Status(req.Status),
		Priority:      model.Priority(req.Priority),
		InternalNote:  req.InternalNote,
		AdminUsername: req.AdminUsername,
	}

	updated, changed, err := h.triage.Update(c.Request.Context(), h.cfg.Retry, id, patch)
	if err != nil {
		h.failUpdate(c, id, err)
		return
	}

	if !changed {
		respond.OKWithMessage(c.Writer, updated, "no changes")
		return
	}

	respond.OK(c.Writer, updated)
}

// BulkUpdateRequest represents the JSON body of a bulk update.
type BulkUpdateRequest struct {
	RequestIDs    []uuid.UUID `json:"requestIds" validate:"required,min=1"`
	Status        string      `json:"status"`
	Priority      string      `json:"priority"`
	InternalNote  string      `json:"internalNote"`
	AdminUsername string      `json:"adminUsername" validate:"required"`
}

// BulkUpdate applies one patch to many requests, reporting per-id failures.
func (h *Handler) BulkUpdate(c *ginext.Context) {
	var req BulkUpdateRequest
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

	patch := adminsvc.Patch{
		Status:        model.Status(req.Status),
		Priority:      model.Priority(req.Priority),
		InternalNote:  req.InternalNote,
		AdminUsername: req.AdminUsername,
	}

	result, err := h.triage.BulkUpdate(c.Request.Context(), h.cfg.Retry, req.RequestIDs, patch)
	if err != nil {
		if errors.Is(err, adminsvc.ErrValidation) {
			respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, err)
			return
		}

		zlog.Logger.Error().Err(err).Msg("failed to bulk update guest requests")
		respond.Fail(c.Writer, http.StatusInternalServerError, respond.CodeServer, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, result)
}

// ReplyRequest represents the JSON body of a guest reply.
type ReplyRequest struct {
	RequestID     uuid.UUID `json:"requestId" validate:"required"`
	Subject       string    `json:"subject" validate:"required"`
	Message       string    `json:"message" validate:"required"`
	AdminUsername string    `json:"adminUsername" validate:"required"`
}

// Reply emails the guest and records the reply on the request. A delivery
// failure maps to 502 and leaves the record untouched.
func (h *Handler) Reply(c *ginext.Context) {
	var req ReplyRequest
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

	updated, err := h.triage.Reply(c.Request.Context(), h.cfg.Retry, req.RequestID, req.Subject, req.Message, req.AdminUsername)
	if err != nil {
		switch {
		case errors.Is(err, adminsvc.ErrValidation):
			respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, err)
		case errors.Is(err, reqrepo.ErrRequestNotFound):
			respond.Fail(c.Writer, http.StatusNotFound, respond.CodeNotFound, fmt.Errorf("request not found"))
		case errors.Is(err, adminsvc.ErrReplyNotSent):
			respond.Fail(c.Writer, http.StatusBadGateway, respond.CodeNotify, fmt.Errorf("reply could not be delivered"))
		default:
			zlog.Logger.Error().Err(err).Str("id", req.RequestID.String()).Msg("failed to reply to guest request")
			respond.Fail(c.Writer, http.StatusInternalServerError, respond.CodeServer, fmt.Errorf("internal server error"))
		}
		return
	}

	respond.OK(c.Writer, updated)
}

// Analytics returns the dashboard summary.
func (h *Handler) Analytics(c *ginext.Context) {
	snapshot, err := h.analytics.Summarize(c.Request.Context())
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to summarize guest requests")
		respond.Fail(c.Writer, http.StatusInternalServerError, respond.CodeServer, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, snapshot)
}

func (h *Handler) parseID(c *ginext.Context, idStr string) (uuid.UUID, bool) {
	id, err := uuid.Parse(idStr)
	if err != nil || id == uuid.Nil {
		zlog.Logger.Warn().Str("id", idStr).Msg("invalid request id")
		respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, fmt.Errorf("invalid id"))
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) failUpdate(c *ginext.Context, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, adminsvc.ErrValidation):
		respond.Fail(c.Writer, http.StatusBadRequest, respond.CodeValidation, err)
	case errors.Is(err, reqrepo.ErrRequestNotFound):
		zlog.Logger.Warn().Str("id", id.String()).Msg("guest request not found")
		respond.Fail(c.Writer, http.StatusNotFound, respond.CodeNotFound, fmt.Errorf("request not found"))
	default:
		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to update guest request")
		respond.Fail(c.Writer, http.StatusInternalServerError, respond.CodeServer, fmt.Errorf("internal server error"))
	}
}

// parseDate accepts a plain date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}

	return time.Parse(time.RFC3339, s)
}
