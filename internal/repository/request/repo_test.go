package request

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/wb-go/wbf/dbpg"

	"github.com/luxserv365/guest-concierge/internal/model"
)

func setupMockDB(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open mock db: %v", err)
	}

	wrappedDB := &dbpg.DB{Master: db}
	repo := NewRepository(wrappedDB)

	return repo, mock
}

func requestRowColumns() []string {
	return []string{
		"id", "confirmation_code", "guest_name", "guest_email", "guest_phone",
		"number_of_guests", "property_address", "check_in_date", "check_out_date",
		"unit_number", "booking_id", "request_type", "priority", "message", "photos",
		"status", "internal_notes", "created_at", "responded_at", "last_updated_by",
		"last_updated_at",
	}
}

func addRequestRow(rows *sqlmock.Rows, req model.GuestRequest) *sqlmock.Rows {
	return rows.AddRow(
		req.ID, req.ConfirmationCode, req.GuestName, req.GuestEmail, req.GuestPhone,
		req.NumberOfGuests, req.PropertyAddress, req.CheckInDate, req.CheckOutDate,
		req.UnitNumber, nil, req.RequestType, string(req.Priority), req.Message, []byte(`[]`),
		string(req.Status), []byte(`{}`), req.CreatedAt, nil, req.LastUpdatedBy,
		nil,
	)
}

func sampleRequest() model.GuestRequest {
	id := uuid.New()

	return model.GuestRequest{
		ID:               id,
		ConfirmationCode: model.ConfirmationCode(id),
		GuestName:        "Jamie Rivera",
		GuestEmail:       "jamie@example.com",
		GuestPhone:       "555-123-4567",
		NumberOfGuests:   2,
		PropertyAddress:  "123 Ocean Drive",
		CheckInDate:      "2026-09-10",
		CheckOutDate:     "2026-09-14",
		RequestType:      "property-issues",
		Priority:         model.PriorityNormal,
		Message:          "The AC is rattling.",
		Photos:           []model.Photo{},
		Status:           model.StatusPending,
		InternalNotes:    []string{},
		CreatedAt:        time.Now().UTC(),
	}
}

func TestCreateRequest(t *testing.T) {
	repo, mock := setupMockDB(t)

	req := sampleRequest()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO guest_requests")).
		WithArgs(
			req.ID, req.ConfirmationCode, req.GuestName, req.GuestEmail, nullString(req.GuestPhone),
			nullInt(req.NumberOfGuests), req.PropertyAddress, req.CheckInDate, req.CheckOutDate,
			nullString(req.UnitNumber), req.BookingID, req.RequestType, string(req.Priority), req.Message, []byte(`[]`),
			string(req.Status), pq.Array(req.InternalNotes), req.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRequest(context.Background(), req)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRequestByConfirmation(t *testing.T) {
	repo, mock := setupMockDB(t)

	req := sampleRequest()
	rows := addRequestRow(sqlmock.NewRows(requestRowColumns()), req)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE confirmation_code = upper($1)")).
		WithArgs(req.ConfirmationCode).
		WillReturnRows(rows)

	got, err := repo.GetRequestByConfirmation(context.Background(), req.ConfirmationCode)
	assert.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, req.ConfirmationCode, got.ConfirmationCode)
	assert.Equal(t, req.GuestPhone, got.GuestPhone)
	assert.Equal(t, []string{}, got.InternalNotes)
	assert.Equal(t, []model.Photo{}, got.Photos)
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE confirmation_code = upper($1)")).
		WithArgs("DEADBEEF").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetRequestByConfirmation(context.Background(), "DEADBEEF")
	assert.ErrorIs(t, err, ErrRequestNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatusByConfirmation(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT status
		FROM guest_requests
		WHERE confirmation_code = upper($1);
    `)).
		WithArgs("A1B2C3D4").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("in-progress"))

	status, err := repo.GetStatusByConfirmation(context.Background(), "A1B2C3D4")
	assert.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRequests_WithFilter(t *testing.T) {
	repo, mock := setupMockDB(t)

	req := sampleRequest()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM guest_requests WHERE status = $1")).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := addRequestRow(sqlmock.NewRows(requestRowColumns()), req)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC")).
		WithArgs("pending", 50, 0).
		WillReturnRows(rows)

	requests, total, err := repo.ListRequests(context.Background(), ListFilter{
		Status: "pending",
		Page:   1,
		Limit:  50,
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, requests, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRequests_EmptyPageSkipsSelect(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM guest_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	requests, total, err := repo.ListRequests(context.Background(), ListFilter{Page: 1, Limit: 50})
	assert.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, requests)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyUpdate(t *testing.T) {
	repo, mock := setupMockDB(t)

	id := uuid.New()
	now := time.Now().UTC()
	u := Update{
		Status:         model.StatusCompleted,
		Note:           "[2026-09-01T10:00:00Z] sarah: done",
		SetRespondedAt: true,
		UpdatedBy:      "sarah",
		UpdatedAt:      now,
	}

	mock.ExpectExec(regexp.QuoteMeta(
		"SET last_updated_by = $1, last_updated_at = $2, status = $3, " +
			"responded_at = COALESCE(responded_at, $4), " +
			"internal_notes = array_append(internal_notes, $5)",
	)).
		WithArgs(u.UpdatedBy, u.UpdatedAt, string(u.Status), u.UpdatedAt, u.Note, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyUpdate(context.Background(), id, u)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyUpdate_NotFound(t *testing.T) {
	repo, mock := setupMockDB(t)

	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE guest_requests")).
		WithArgs("sarah", now, id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ApplyUpdate(context.Background(), id, Update{UpdatedBy: "sarah", UpdatedAt: now})
	assert.ErrorIs(t, err, ErrRequestNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummarize(t *testing.T) {
	repo, mock := setupMockDB(t)

	since := time.Now().UTC().Add(-7 * 24 * time.Hour)

	mock.ExpectBegin()

	mock.ExpectQuery(regexp.QuoteMeta("count(*) FILTER (WHERE status = 'pending')")).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "completed", "urgent", "recent"}).
			AddRow(10, 4, 3, 2, 5))

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY request_type")).
		WillReturnRows(sqlmock.NewRows([]string{"request_type", "count"}).
			AddRow("property-issues", 6).
			AddRow("concierge-services", 4))

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 4).
			AddRow("completed", 3).
			AddRow("in-progress", 3))

	mock.ExpectCommit()

	snapshot, err := repo.Summarize(context.Background(), since)
	assert.NoError(t, err)
	assert.Equal(t, 10, snapshot.Overview.TotalRequests)
	assert.Equal(t, 4, snapshot.Overview.PendingRequests)
	assert.Equal(t, 3, snapshot.Overview.CompletedRequests)
	assert.Equal(t, 2, snapshot.Overview.UrgentRequests)
	assert.Equal(t, 5, snapshot.Overview.RecentRequests)
	assert.Equal(t, []model.BucketCount{{Key: "property-issues", Count: 6}, {Key: "concierge-services", Count: 4}}, snapshot.RequestTypes)
	assert.Len(t, snapshot.StatusBreakdown, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}
