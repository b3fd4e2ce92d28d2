package welcome

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
)

type fakeBookingService struct {
	sendErr  error
	attempts int
	statuses map[uuid.UUID]model.WelcomeStatus
}

func newFakeBookingService(sendErr error) *fakeBookingService {
	return &fakeBookingService{sendErr: sendErr, statuses: map[uuid.UUID]model.WelcomeStatus{}}
}

func (f *fakeBookingService) SendWelcome(_ queue.WelcomeMessage) error {
	f.attempts++
	return f.sendErr
}

func (f *fakeBookingService) SetWelcomeStatus(_ context.Context, id uuid.UUID, status model.WelcomeStatus) error {
	f.statuses[id] = status
	return nil
}

func TestHandleMessage_Success(t *testing.T) {
	svc := newFakeBookingService(nil)
	handler := NewHandler(svc)

	msg := queue.WelcomeMessage{BookingID: uuid.New(), GuestEmail: "jamie@example.com"}
	handler.HandleMessage(context.Background(), msg, retry.Strategy{Attempts: 1})

	assert.Equal(t, 1, svc.attempts)
	assert.Equal(t, model.WelcomeSent, svc.statuses[msg.BookingID])
}

func TestHandleMessage_FailureMarksBooking(t *testing.T) {
	svc := newFakeBookingService(errors.New("smtp down"))
	handler := NewHandler(svc)

	msg := queue.WelcomeMessage{BookingID: uuid.New()}
	handler.HandleMessage(context.Background(), msg, retry.Strategy{Attempts: 2})

	require.GreaterOrEqual(t, svc.attempts, 2)
	assert.Equal(t, model.WelcomeFailed, svc.statuses[msg.BookingID])
}
