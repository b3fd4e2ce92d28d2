package request

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"

	"github.com/luxserv365/guest-concierge/internal/model"
	reqrepo "github.com/luxserv365/guest-concierge/internal/repository/request"
)

type fakeRepo struct {
	created   []model.GuestRequest
	byCode    map[string]model.GuestRequest
	createErr error
}

func (f *fakeRepo) CreateRequest(_ context.Context, req model.GuestRequest) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, req)
	return nil
}

func (f *fakeRepo) GetRequestByConfirmation(_ context.Context, code string) (model.GuestRequest, error) {
	req, ok := f.byCode[strings.ToUpper(code)]
	if !ok {
		return model.GuestRequest{}, reqrepo.ErrRequestNotFound
	}
	return req, nil
}

func (f *fakeRepo) GetStatusByConfirmation(_ context.Context, code string) (model.Status, error) {
	req, ok := f.byCode[strings.ToUpper(code)]
	if !ok {
		return "", reqrepo.ErrRequestNotFound
	}
	return req.Status, nil
}

type fakeStore struct {
	saved   []string
	saveErr error
}

func (f *fakeStore) Save(name string, r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	io.Copy(io.Discard, r)
	f.saved = append(f.saved, name)
	return name, nil
}

type fakeNotifier struct {
	sent chan string
	err  error
}

func newFakeNotifier(err error) *fakeNotifier {
	return &fakeNotifier{sent: make(chan string, 8), err: err}
}

func (f *fakeNotifier) Send(to, subject, msg string) error {
	f.sent <- subject
	return f.err
}

type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}}
}

func (f *fakeCache) SetWithRetry(_ context.Context, _ retry.Strategy, key string, value interface{}) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value.(string)
	return nil
}

func (f *fakeCache) GetWithRetry(_ context.Context, _ retry.Strategy, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func validInput() SubmitInput {
	return SubmitInput{
		GuestName:       "Jamie Rivera",
		GuestEmail:      "jamie@example.com",
		PropertyAddress: "123 Ocean Drive",
		CheckInDate:     "2026-09-10",
		CheckOutDate:    "2026-09-14",
		RequestType:     "property-issues",
		Message:         "The AC is rattling.",
	}
}

func newTestService(repo *fakeRepo, store *fakeStore, cache *fakeCache, notifiers ...Notifier) *Service {
	routes := map[string]Route{}
	for i, n := range notifiers {
		routes[[]string{"email", "telegram"}[i]] = Route{Notifier: n, To: "staff"}
	}

	return NewService(repo, store, routes, cache, model.NewRequestTypeSet(nil), time.Second)
}

func TestSubmit_Success(t *testing.T) {
	repo := &fakeRepo{}
	store := &fakeStore{}
	cache := newFakeCache()
	notifier := newFakeNotifier(nil)
	svc := newTestService(repo, store, cache, notifier)

	req, err := svc.Submit(context.Background(), retry.Strategy{}, validInput(), nil)
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, req.Status)
	assert.Equal(t, model.PriorityNormal, req.Priority)
	assert.Equal(t, model.ConfirmationCode(req.ID), req.ConfirmationCode)
	assert.Len(t, req.ConfirmationCode, 8)
	require.Len(t, repo.created, 1)

	// Status is cached under the confirmation code.
	assert.Equal(t, "pending", cache.values[req.ConfirmationCode])

	select {
	case subject := <-notifier.sent:
		assert.Contains(t, subject, "NORMAL")
		assert.Contains(t, subject, req.ConfirmationCode)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a staff alert")
	}
}

func TestSubmit_PhotosStoredAndNamed(t *testing.T) {
	repo := &fakeRepo{}
	store := &fakeStore{}
	svc := newTestService(repo, store, newFakeCache())

	attachments := []Attachment{
		{OriginalName: "Broken AC.JPG", ContentType: "image/jpeg", Data: strings.NewReader("img")},
		{OriginalName: "notes.pdf", ContentType: "application/pdf", Data: strings.NewReader("pdf")},
	}

	req, err := svc.Submit(context.Background(), retry.Strategy{}, validInput(), attachments)
	require.NoError(t, err)

	// Non-image parts are skipped, not rejected.
	require.Len(t, req.Photos, 1)
	assert.Equal(t, "Broken AC.JPG", req.Photos[0].OriginalName)
	assert.True(t, strings.HasPrefix(req.Photos[0].Filename, req.ID.String()+"_"))
	assert.Len(t, store.saved, 1)
}

func TestSubmit_PhotoStoreFailureIsSkipped(t *testing.T) {
	repo := &fakeRepo{}
	store := &fakeStore{saveErr: errors.New("disk full")}
	svc := newTestService(repo, store, newFakeCache())

	attachments := []Attachment{
		{OriginalName: "a.jpg", ContentType: "image/jpeg", Data: strings.NewReader("img")},
	}

	req, err := svc.Submit(context.Background(), retry.Strategy{}, validInput(), attachments)
	require.NoError(t, err)
	assert.Empty(t, req.Photos)
	require.Len(t, repo.created, 1)
}

func TestSubmit_NotifierFailureDoesNotFailSubmission(t *testing.T) {
	repo := &fakeRepo{}
	notifier := newFakeNotifier(errors.New("smtp down"))
	svc := newTestService(repo, &fakeStore{}, newFakeCache(), notifier)

	_, err := svc.Submit(context.Background(), retry.Strategy{}, validInput(), nil)
	assert.NoError(t, err)

	select {
	case <-notifier.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a staff alert attempt")
	}
}

func TestSubmit_RepoFailureFailsSubmission(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("db down")}
	svc := newTestService(repo, &fakeStore{}, newFakeCache())

	_, err := svc.Submit(context.Background(), retry.Strategy{}, validInput(), nil)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestSubmit_Validation(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeStore{}, newFakeCache())

	cases := []struct {
		name   string
		mutate func(*SubmitInput)
	}{
		{"empty name", func(in *SubmitInput) { in.GuestName = "  " }},
		{"long name", func(in *SubmitInput) { in.GuestName = strings.Repeat("a", 101) }},
		{"bad email", func(in *SubmitInput) { in.GuestEmail = "not-an-email" }},
		{"short phone", func(in *SubmitInput) { in.GuestPhone = "555-123" }},
		{"too many guests", func(in *SubmitInput) { in.NumberOfGuests = 21 }},
		{"missing address", func(in *SubmitInput) { in.PropertyAddress = "" }},
		{"missing check-in", func(in *SubmitInput) { in.CheckInDate = "" }},
		{"unknown type", func(in *SubmitInput) { in.RequestType = "skydiving" }},
		{"unknown priority", func(in *SubmitInput) { in.Priority = "low" }},
		{"empty message", func(in *SubmitInput) { in.Message = "" }},
		{"long message", func(in *SubmitInput) { in.Message = strings.Repeat("m", 2001) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)

			_, err := svc.Submit(context.Background(), retry.Strategy{}, in, nil)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSubmit_DefaultsPriorityToNormal(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeStore{}, newFakeCache())

	in := validInput()
	in.Priority = ""

	req, err := svc.Submit(context.Background(), retry.Strategy{}, in, nil)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityNormal, req.Priority)
}

func TestLookupByConfirmation(t *testing.T) {
	stored := model.GuestRequest{ConfirmationCode: "A1B2C3D4", GuestName: "Jamie"}
	repo := &fakeRepo{byCode: map[string]model.GuestRequest{"A1B2C3D4": stored}}
	svc := newTestService(repo, &fakeStore{}, newFakeCache())

	got, err := svc.LookupByConfirmation(context.Background(), "a1b2c3d4")
	require.NoError(t, err)
	assert.Equal(t, "Jamie", got.GuestName)

	_, err = svc.LookupByConfirmation(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.LookupByConfirmation(context.Background(), "FFFFFFFF")
	assert.ErrorIs(t, err, reqrepo.ErrRequestNotFound)
}

func TestStatusByConfirmation_CacheMissFallsBack(t *testing.T) {
	stored := model.GuestRequest{ConfirmationCode: "A1B2C3D4", Status: model.StatusInProgress}
	repo := &fakeRepo{byCode: map[string]model.GuestRequest{"A1B2C3D4": stored}}
	cache := newFakeCache()
	svc := newTestService(repo, &fakeStore{}, cache)

	status, err := svc.StatusByConfirmation(context.Background(), retry.Strategy{}, "a1b2c3d4")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, status)

	// The repository answer is written back to the cache.
	assert.Equal(t, "in-progress", cache.values["A1B2C3D4"])
}

func TestStatusByConfirmation_CacheHitSkipsRepo(t *testing.T) {
	repo := &fakeRepo{} // empty: a repo lookup would return not found
	cache := newFakeCache()
	cache.values["A1B2C3D4"] = "completed"
	svc := newTestService(repo, &fakeStore{}, cache)

	status, err := svc.StatusByConfirmation(context.Background(), retry.Strategy{}, "A1B2C3D4")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, status)
}
