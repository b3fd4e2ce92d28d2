// Package admin implements the triage workflow: filtered listing, field
// updates with an append-only note log, bulk updates, and guest replies.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/luxserv365/guest-concierge/internal/model"
	reqrepo "github.com/luxserv365/guest-concierge/internal/repository/request"
)

var (
	// ErrValidation marks a malformed patch or reply, rejected before any write.
	ErrValidation = errors.New("validation error")
	// ErrReplyNotSent marks a reply whose email could not be delivered; the
	// record is left untouched in that case.
	ErrReplyNotSent = errors.New("reply not sent")
)

const defaultLimit = 50

type triageRepository interface {
	GetRequestByID(ctx context.Context, id uuid.UUID) (model.GuestRequest, error)
	ApplyUpdate(ctx context.Context, id uuid.UUID, u reqrepo.Update) error
	ListRequests(ctx context.Context, f reqrepo.ListFilter) ([]model.GuestRequest, int, error)
}

// Notifier is the email channel used for guest replies.
type Notifier interface {
	Send(to, subject, msg string) error
}

type cache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
}

// Service is a stateless coordinator over the request repository.
type Service struct {
	repo   triageRepository
	mailer Notifier
	cache  cache
}

func NewService(repo triageRepository, mailer Notifier, cache cache) *Service {
	return &Service{repo: repo, mailer: mailer, cache: cache}
}

// Pagination describes one page of the listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Page is the listing result.
type Page struct {
	Requests   []model.GuestRequest `json:"requests"`
	Pagination Pagination           `json:"pagination"`
}

// List returns one page of requests matching the filter, newest first.
func (s *Service) List(ctx context.Context, f reqrepo.ListFilter) (Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 200 {
		f.Limit = defaultLimit
	}

	requests, total, err := s.repo.ListRequests(ctx, f)
	if err != nil {
		return Page{}, fmt.Errorf("list requests: %w", err)
	}

	return Page{
		Requests: requests,
		Pagination: Pagination{
			Page:       f.Page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: (total + f.Limit - 1) / f.Limit,
		},
	}, nil
}

// Patch is a partial admin mutation of a single request. All fields are
// optional except the actor identity.
type Patch struct {
	Status        model.Status
	Priority      model.Priority
	InternalNote  string
	AdminUsername string
}

func (p Patch) validate() error {
	if strings.TrimSpace(p.AdminUsername) == "" {
		return fmt.Errorf("%w: admin username is required", ErrValidation)
	}
	if p.Status != "" && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, p.Status)
	}
	if p.Priority != "" && !p.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, p.Priority)
	}

	return nil
}

// Update applies a patch to one request. It reports whether any field other
// than the actor stamp actually changed, so callers can distinguish a
// no-changes outcome from a regular update. The actor stamp is written
// either way.
func (s *Service) Update(ctx context.Context, strategy retry.Strategy, id uuid.UUID, patch Patch) (model.GuestRequest, bool, error) {
	if err := patch.validate(); err != nil {
		return model.GuestRequest{}, false, err
	}

	terminal := patch.Status != "" && patch.Status.Terminal()

	return s.apply(ctx, strategy, id, patch, terminal)
}

// BulkFailure records why one id in a bulk update was not modified.
type BulkFailure struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

// BulkResult summarizes a bulk update.
type BulkResult struct {
	UpdatedCount int           `json:"updated_count"`
	Total        int           `json:"total"`
	Failures     []BulkFailure `json:"failures"`
}

// BulkUpdate applies the patch independently to each id. Individual
// failures (not-found, no-changes, write errors) are collected and never
// abort the remaining ids. Bulk updates additionally treat cancelled as a
// terminal status.
func (s *Service) BulkUpdate(ctx context.Context, strategy retry.Strategy, ids []uuid.UUID, patch Patch) (BulkResult, error) {
	if len(ids) == 0 {
		return BulkResult{}, fmt.Errorf("%w: request ids are required", ErrValidation)
	}
	if err := patch.validate(); err != nil {
		return BulkResult{}, err
	}

	terminal := patch.Status != "" && (patch.Status.Terminal() || patch.Status == model.StatusCancelled)

	result := BulkResult{Total: len(ids), Failures: []BulkFailure{}}
	for _, id := range ids {
		_, changed, err := s.apply(ctx, strategy, id, patch, terminal)
		switch {
		case errors.Is(err, reqrepo.ErrRequestNotFound):
			result.Failures = append(result.Failures, BulkFailure{ID: id, Reason: "not found"})
		case err != nil:
			zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("bulk update failed for request")
			result.Failures = append(result.Failures, BulkFailure{ID: id, Reason: "update failed"})
		case !changed:
			result.Failures = append(result.Failures, BulkFailure{ID: id, Reason: "no changes"})
		default:
			result.UpdatedCount++
		}
	}

	return result, nil
}

// Reply sends an email to the guest and, only after the send is confirmed,
// records the reply as an internal note and stamps respondedAt. A failed
// send leaves the record byte-for-byte unchanged.
func (s *Service) Reply(ctx context.Context, strategy retry.Strategy, id uuid.UUID, subject, message, adminUsername string) (model.GuestRequest, error) {
	if strings.TrimSpace(adminUsername) == "" {
		return model.GuestRequest{}, fmt.Errorf("%w: admin username is required", ErrValidation)
	}
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(message) == "" {
		return model.GuestRequest{}, fmt.Errorf("%w: subject and message are required", ErrValidation)
	}

	current, err := s.repo.GetRequestByID(ctx, id)
	if err != nil {
		return model.GuestRequest{}, fmt.Errorf("get request: %w", err)
	}

	if err := s.mailer.Send(current.GuestEmail, subject, message); err != nil {
		zlog.Logger.Error().Err(err).
			Str("confirmation", current.ConfirmationCode).
			Str("channel", "email").
			Msg("failed to send admin reply")

		return model.GuestRequest{}, fmt.Errorf("%w: %v", ErrReplyNotSent, err)
	}

	now := time.Now().UTC()
	update := reqrepo.Update{
		Note:           formatNote(now, adminUsername, "Reply sent to guest - subject: "+subject),
		SetRespondedAt: true,
		UpdatedBy:      adminUsername,
		UpdatedAt:      now,
	}

	if err := s.repo.ApplyUpdate(ctx, id, update); err != nil {
		return model.GuestRequest{}, fmt.Errorf("record reply: %w", err)
	}

	updated, err := s.repo.GetRequestByID(ctx, id)
	if err != nil {
		return model.GuestRequest{}, fmt.Errorf("get updated request: %w", err)
	}

	return updated, nil
}

// apply performs the shared read-check-update cycle. Overlapping field
// updates from concurrent admins are last-writer-wins; note appends are
// atomic at the storage layer and never drop.
func (s *Service) apply(ctx context.Context, strategy retry.Strategy, id uuid.UUID, patch Patch, terminal bool) (model.GuestRequest, bool, error) {
	current, err := s.repo.GetRequestByID(ctx, id)
	if err != nil {
		return model.GuestRequest{}, false, fmt.Errorf("get request: %w", err)
	}

	changed := (patch.Status != "" && patch.Status != current.Status) ||
		(patch.Priority != "" && patch.Priority != current.Priority) ||
		strings.TrimSpace(patch.InternalNote) != ""

	now := time.Now().UTC()
	update := reqrepo.Update{
		Status:         patch.Status,
		Priority:       patch.Priority,
		SetRespondedAt: terminal && changed,
		UpdatedBy:      patch.AdminUsername,
		UpdatedAt:      now,
	}
	if note := strings.TrimSpace(patch.InternalNote); note != "" {
		update.Note = formatNote(now, patch.AdminUsername, note)
	}

	if err := s.repo.ApplyUpdate(ctx, id, update); err != nil {
		return model.GuestRequest{}, false, fmt.Errorf("apply update: %w", err)
	}

	updated, err := s.repo.GetRequestByID(ctx, id)
	if err != nil {
		return model.GuestRequest{}, false, fmt.Errorf("get updated request: %w", err)
	}

	if patch.Status != "" {
		if err := s.cache.SetWithRetry(ctx, strategy, updated.ConfirmationCode, string(updated.Status)); err != nil {
			zlog.Logger.Error().Err(err).Str("confirmation", updated.ConfirmationCode).Msg("failed to cache request status")
		}
	}

	return updated, changed, nil
}

func formatNote(ts time.Time, admin, text string) string {
	return fmt.Sprintf("[%s] %s: %s", ts.Format(time.RFC3339), admin, text)
}
