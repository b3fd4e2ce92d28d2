package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"

	"github.com/luxserv365/guest-concierge/internal/model"
	"github.com/luxserv365/guest-concierge/internal/rabbitmq/queue"
	bookingrepo "github.com/luxserv365/guest-concierge/internal/repository/booking"
)

type fakeRepo struct {
	bookings  map[uuid.UUID]model.Booking
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{bookings: map[uuid.UUID]model.Booking{}}
}

func (f *fakeRepo) CreateBooking(_ context.Context, b model.Booking) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeRepo) GetWelcomeStatusByID(_ context.Context, id uuid.UUID) (model.WelcomeStatus, error) {
	b, ok := f.bookings[id]
	if !ok {
		return "", bookingrepo.ErrBookingNotFound
	}
	return b.WelcomeStatus, nil
}

func (f *fakeRepo) UpdateWelcomeStatus(_ context.Context, id uuid.UUID, status model.WelcomeStatus) error {
	b, ok := f.bookings[id]
	if !ok {
		return bookingrepo.ErrBookingNotFound
	}
	b.WelcomeStatus = status
	f.bookings[id] = b
	return nil
}

type fakeQueue struct {
	published []queue.WelcomeMessage
	err       error
}

func (f *fakeQueue) Publish(msg queue.WelcomeMessage, _ retry.Strategy) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) Send(to, subject, msg string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to+"|"+subject)
	return nil
}

func validIntake() Intake {
	return Intake{
		GuestName:       "Jamie Rivera",
		GuestEmail:      "jamie@example.com",
		PropertyAddress: "123 Ocean Drive",
		CheckInDate:     "2026-09-10",
		CheckOutDate:    "2026-09-14",
		Source:          "airbnb",
	}
}

func TestReceive_CreatesAndPublishes(t *testing.T) {
	repo := newFakeRepo()
	q := &fakeQueue{}
	svc := NewService(repo, q, &fakeMailer{})

	b, err := svc.Receive(context.Background(), retry.Strategy{}, validIntake())
	require.NoError(t, err)

	assert.Equal(t, model.WelcomePending, b.WelcomeStatus)
	assert.Contains(t, repo.bookings, b.ID)

	require.Len(t, q.published, 1)
	assert.Equal(t, b.ID, q.published[0].BookingID)
	assert.Equal(t, "jamie@example.com", q.published[0].GuestEmail)
}

func TestReceive_PublishFailureStillSucceeds(t *testing.T) {
	repo := newFakeRepo()
	q := &fakeQueue{err: errors.New("broker down")}
	svc := NewService(repo, q, &fakeMailer{})

	b, err := svc.Receive(context.Background(), retry.Strategy{}, validIntake())
	require.NoError(t, err)

	// The booking stays pending for a later sweep.
	status, err := svc.GetWelcomeStatusByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WelcomePending, status)
}

func TestReceive_Validation(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeQueue{}, &fakeMailer{})

	in := validIntake()
	in.GuestEmail = "nope"

	_, err := svc.Receive(context.Background(), retry.Strategy{}, in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSendWelcome(t *testing.T) {
	mailer := &fakeMailer{}
	svc := NewService(newFakeRepo(), &fakeQueue{}, mailer)

	err := svc.SendWelcome(queue.WelcomeMessage{
		GuestName:       "Jamie",
		GuestEmail:      "jamie@example.com",
		PropertyAddress: "123 Ocean Drive",
		CheckInDate:     "2026-09-10",
	})
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "jamie@example.com|Welcome to 123 Ocean Drive", mailer.sent[0])
}

func TestSetWelcomeStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeQueue{}, &fakeMailer{})

	b, err := svc.Receive(context.Background(), retry.Strategy{}, validIntake())
	require.NoError(t, err)

	require.NoError(t, svc.SetWelcomeStatus(context.Background(), b.ID, model.WelcomeSent))

	status, err := svc.GetWelcomeStatusByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WelcomeSent, status)

	err = svc.SetWelcomeStatus(context.Background(), uuid.New(), model.WelcomeSent)
	assert.ErrorIs(t, err, bookingrepo.ErrBookingNotFound)
}
