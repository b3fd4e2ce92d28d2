// Package request implements the guest request lifecycle: validation,
// construction, photo persistence, and best-effort notification fan-out.
package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/luxserv365/guest-concierge/internal/model"
	"github.com/luxserv365/guest-concierge/internal/photostore"
)

// ErrValidation marks input rejected before any side effect occurred.
// Callers can always recover by resubmitting corrected input.
var ErrValidation = errors.New("validation error")

type requestRepository interface {
	CreateRequest(ctx context.Context, req model.GuestRequest) error
	GetRequestByConfirmation(ctx context.Context, code string) (model.GuestRequest, error)
	GetStatusByConfirmation(ctx context.Context, code string) (model.Status, error)
}

// PhotoStore persists uploaded attachments and returns a stable reference.
type PhotoStore interface {
	Save(name string, r io.Reader) (string, error)
}

// Notifier is one channel of the notification gateway. A Send failure is
// never fatal to the operation that triggered it.
type Notifier interface {
	Send(to, subject, msg string) error
}

type cache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

// Route binds a notification channel to its destination address.
type Route struct {
	Notifier Notifier
	To       string
}

// Service coordinates the submission flow. It holds no per-request state.
type Service struct {
	repo          requestRepository
	photos        PhotoStore
	routes        map[string]Route
	cache         cache
	types         model.RequestTypeSet
	notifyTimeout time.Duration
}

func NewService(
	repo requestRepository,
	photos PhotoStore,
	routes map[string]Route,
	cache cache,
	types model.RequestTypeSet,
	notifyTimeout time.Duration,
) *Service {
	if notifyTimeout <= 0 {
		notifyTimeout = 15 * time.Second
	}

	return &Service{
		repo:          repo,
		photos:        photos,
		routes:        routes,
		cache:         cache,
		types:         types,
		notifyTimeout: notifyTimeout,
	}
}

// SubmitInput carries the validated guest submission fields.
type SubmitInput struct {
	GuestName       string
	GuestEmail      string
	GuestPhone      string
	NumberOfGuests  int
	PropertyAddress string
	CheckInDate     string
	CheckOutDate    string
	UnitNumber      string
	BookingID       uuid.NullUUID
	RequestType     string
	Priority        string
	Message         string
}

// Attachment is a single uploaded file. Non-image attachments are skipped
// during submission, never rejected as a whole.
type Attachment struct {
	OriginalName string
	ContentType  string
	Data         io.Reader
}

// Submit validates the input, persists accepted photos, writes the record,
// and fans notifications out across the configured channels. Channel and
// photo-store failures are logged and swallowed; only validation and the
// repository write can fail the submission.
func (s *Service) Submit(ctx context.Context, strategy retry.Strategy, in SubmitInput, attachments []Attachment) (model.GuestRequest, error) {
	priority, err := s.validate(in)
	if err != nil {
		return model.GuestRequest{}, err
	}

	now := time.Now().UTC()
	req := model.GuestRequest{
		ID:              uuid.New(),
		GuestName:       strings.TrimSpace(in.GuestName),
		GuestEmail:      in.GuestEmail,
		GuestPhone:      in.GuestPhone,
		NumberOfGuests:  in.NumberOfGuests,
		PropertyAddress: strings.TrimSpace(in.PropertyAddress),
		CheckInDate:     in.CheckInDate,
		CheckOutDate:    in.CheckOutDate,
		UnitNumber:      in.UnitNumber,
		BookingID:       in.BookingID,
		RequestType:     in.RequestType,
		Priority:        priority,
		Message:         in.Message,
		Photos:          []model.Photo{},
		Status:          model.StatusPending,
		InternalNotes:   []string{},
		CreatedAt:       now,
	}
	req.ConfirmationCode = model.ConfirmationCode(req.ID)

	for i, a := range attachments {
		if !strings.HasPrefix(a.ContentType, "image/") {
			continue
		}

		name := photostore.DerivedName(req.ID.String(), i, a.OriginalName)
		stored, err := s.photos.Save(name, a.Data)
		if err != nil {
			zlog.Logger.Error().Err(err).
				Str("confirmation", req.ConfirmationCode).
				Str("photo", a.OriginalName).
				Msg("failed to store photo, skipping attachment")
			continue
		}

		req.Photos = append(req.Photos, model.Photo{
			ID:           uuid.New(),
			Filename:     stored,
			OriginalName: a.OriginalName,
			UploadedAt:   now,
		})
	}

	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return model.GuestRequest{}, fmt.Errorf("create guest request: %w", err)
	}

	if err := s.cache.SetWithRetry(ctx, strategy, req.ConfirmationCode, string(req.Status)); err != nil {
		zlog.Logger.Error().Err(err).Str("confirmation", req.ConfirmationCode).Msg("failed to cache request status")
	}

	s.fanOut(req)

	return req, nil
}

// fanOut dispatches the new-request alert to every configured channel.
// Channels run in detached goroutines bounded by the notify timeout, so a
// slow or failing channel never delays or fails the submission.
func (s *Service) fanOut(req model.GuestRequest) {
	subject := alertSubject(req)
	body := alertBody(req)

	for channel, route := range s.routes {
		go func(channel string, route Route) {
			done := make(chan error, 1)
			go func() {
				done <- route.Notifier.Send(route.To, subject, body)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Logger.Error().Err(err).
						Str("confirmation", req.ConfirmationCode).
						Str("channel", channel).
						Msg("failed to send new-request alert")
					return
				}

				zlog.Logger.Info().
					Str("confirmation", req.ConfirmationCode).
					Str("channel", channel).
					Msg("new-request alert sent")
			case <-time.After(s.notifyTimeout):
				zlog.Logger.Warn().
					Str("confirmation", req.ConfirmationCode).
					Str("channel", channel).
					Msg("new-request alert timed out")
			}
		}(channel, route)
	}
}

// LookupByConfirmation returns the request whose id derives the given
// confirmation code. The match is case-insensitive.
func (s *Service) LookupByConfirmation(ctx context.Context, code string) (model.GuestRequest, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.GuestRequest{}, fmt.Errorf("%w: confirmation code is required", ErrValidation)
	}

	req, err := s.repo.GetRequestByConfirmation(ctx, code)
	if err != nil {
		return model.GuestRequest{}, fmt.Errorf("get request by confirmation: %w", err)
	}

	return req, nil
}

// StatusByConfirmation returns the lifecycle status for a confirmation code,
// reading through the cache first and falling back to the repository.
func (s *Service) StatusByConfirmation(ctx context.Context, strategy retry.Strategy, code string) (model.Status, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", fmt.Errorf("%w: confirmation code is required", ErrValidation)
	}

	cached, err := s.cache.GetWithRetry(ctx, strategy, code)
	if err != nil && !errors.Is(err, redis.Nil) {
		zlog.Logger.Error().Err(err).Str("confirmation", code).Msg("failed to get request status from cache")
	}

	if err == nil && cached != "" {
		return model.Status(cached), nil
	}

	status, err := s.repo.GetStatusByConfirmation(ctx, code)
	if err != nil {
		return "", fmt.Errorf("get request status: %w", err)
	}

	if err := s.cache.SetWithRetry(ctx, strategy, code, string(status)); err != nil {
		zlog.Logger.Error().Err(err).Str("confirmation", code).Msg("failed to cache request status")
	}

	return status, nil
}

func (s *Service) validate(in SubmitInput) (model.Priority, error) {
	name := strings.TrimSpace(in.GuestName)
	if name == "" || len(name) > 100 {
		return "", fmt.Errorf("%w: guest name must be 1-100 characters", ErrValidation)
	}

	if _, err := mail.ParseAddress(in.GuestEmail); err != nil {
		return "", fmt.Errorf("%w: invalid guest email", ErrValidation)
	}

	if in.GuestPhone != "" && digitCount(in.GuestPhone) < 10 {
		return "", fmt.Errorf("%w: phone number must have at least 10 digits", ErrValidation)
	}

	if in.NumberOfGuests != 0 && (in.NumberOfGuests < 1 || in.NumberOfGuests > 20) {
		return "", fmt.Errorf("%w: number of guests must be between 1 and 20", ErrValidation)
	}

	address := strings.TrimSpace(in.PropertyAddress)
	if address == "" || len(address) > 200 {
		return "", fmt.Errorf("%w: property address must be 1-200 characters", ErrValidation)
	}

	// Check-in/check-out ordering is deliberately not cross-validated; the
	// portal has always accepted either order.
	if in.CheckInDate == "" || in.CheckOutDate == "" {
		return "", fmt.Errorf("%w: check-in and check-out dates are required", ErrValidation)
	}

	if len(in.UnitNumber) > 50 {
		return "", fmt.Errorf("%w: unit number must be at most 50 characters", ErrValidation)
	}

	if !s.types.Contains(in.RequestType) {
		return "", fmt.Errorf("%w: unknown request type %q", ErrValidation, in.RequestType)
	}

	priority := model.Priority(in.Priority)
	if in.Priority == "" {
		priority = model.PriorityNormal
	}
	if !priority.Valid() {
		return "", fmt.Errorf("%w: priority must be urgent, high or normal", ErrValidation)
	}

	if in.Message == "" || len(in.Message) > 2000 {
		return "", fmt.Errorf("%w: message must be 1-2000 characters", ErrValidation)
	}

	return priority, nil
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}

	return n
}
