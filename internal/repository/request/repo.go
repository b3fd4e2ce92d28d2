package request

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"

	"github.com/luxserv365/guest-concierge/internal/model"
)

var (
	ErrRequestNotFound = errors.New("guest request not found")
)

const requestColumns = `
		id, confirmation_code, guest_name, guest_email, guest_phone,
		number_of_guests, property_address, check_in_date, check_out_date,
		unit_number, booking_id, request_type, priority, message, photos,
		status, internal_notes, created_at, responded_at, last_updated_by,
		last_updated_at`

// ListFilter narrows and pages the admin listing. Absent fields are simply
// omitted from the conjunction.
type ListFilter struct {
	Search      string
	Status      string
	Priority    string
	RequestType string
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	Limit       int
}

// Update is a partial mutation of a single request. Zero-valued fields are
// left untouched; the actor stamp is always written.
type Update struct {
	Status         model.Status   // empty = unchanged
	Priority       model.Priority // empty = unchanged
	Note           string         // formatted note entry; empty = no append
	SetRespondedAt bool           // stamp responded_at if not already set
	UpdatedBy      string
	UpdatedAt      time.Time
}

// Repository provides access to the guest_requests table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new guest request repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// CreateRequest inserts a fully constructed request record. The id and
// confirmation code are assigned by the caller before any photo upload, so
// they are never regenerated on retry.
func (r *Repository) CreateRequest(ctx context.Context, req model.GuestRequest) error {
	query := `
		INSERT INTO guest_requests (
		    id, confirmation_code, guest_name, guest_email, guest_phone,
		    number_of_guests, property_address, check_in_date, check_out_date,
		    unit_number, booking_id, request_type, priority, message, photos,
		    status, internal_notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
    `

	photos, err := json.Marshal(req.Photos)
	if err != nil {
		return fmt.Errorf("marshal photos: %w", err)
	}

	_, err = r.db.ExecContext(
		ctx, query,
		req.ID, req.ConfirmationCode, req.GuestName, req.GuestEmail, nullString(req.GuestPhone),
		nullInt(req.NumberOfGuests), req.PropertyAddress, req.CheckInDate, req.CheckOutDate,
		nullString(req.UnitNumber), req.BookingID, req.RequestType, string(req.Priority), req.Message, photos,
		string(req.Status), pq.Array(req.InternalNotes), req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create guest request: %w", err)
	}

	return nil
}

// GetRequestByID retrieves a single request by its id.
func (r *Repository) GetRequestByID(ctx context.Context, id uuid.UUID) (model.GuestRequest, error) {
	query := `
		SELECT` + requestColumns + `
		FROM guest_requests
		WHERE id = $1;
    `

	req, err := scanRequest(r.db.Master.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.GuestRequest{}, ErrRequestNotFound
		}

		return model.GuestRequest{}, fmt.Errorf("failed to get guest request: %w", err)
	}

	return req, nil
}

// GetRequestByConfirmation retrieves a request by its confirmation code.
// The code is stored as an indexed column at write time, so the lookup is a
// case-insensitive equality match rather than a collection scan.
func (r *Repository) GetRequestByConfirmation(ctx context.Context, code string) (model.GuestRequest, error) {
	query := `
		SELECT` + requestColumns + `
		FROM guest_requests
		WHERE confirmation_code = upper($1);
    `

	req, err := scanRequest(r.db.Master.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.GuestRequest{}, ErrRequestNotFound
		}

		return model.GuestRequest{}, fmt.Errorf("failed to get guest request by confirmation: %w", err)
	}

	return req, nil
}

// GetStatusByConfirmation retrieves only the lifecycle status of the request
// matching the confirmation code.
func (r *Repository) GetStatusByConfirmation(ctx context.Context, code string) (model.Status, error) {
	query := `
		SELECT status
		FROM guest_requests
		WHERE confirmation_code = upper($1);
    `

	var status string
	err := r.db.Master.QueryRowContext(ctx, query, code).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrRequestNotFound
		}

		return "", fmt.Errorf("failed to get guest request status: %w", err)
	}

	return model.Status(status), nil
}

// ListRequests returns one page of requests matching the filter plus the
// total matching count. Ordering is newest first with the id as tiebreak so
// the sort is total.
func (r *Repository) ListRequests(ctx context.Context, f ListFilter) ([]model.GuestRequest, int, error) {
	where, args := buildFilter(f)

	var total int
	countQuery := `SELECT count(*) FROM guest_requests` + where
	if err := r.db.Master.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count guest requests: %w", err)
	}

	if total == 0 {
		return []model.GuestRequest{}, 0, nil
	}

	query := fmt.Sprintf(`
		SELECT`+requestColumns+`
		FROM guest_requests
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d;
    `, where, len(args)+1, len(args)+2)

	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list guest requests: %w", err)
	}
	defer rows.Close()

	requests := []model.GuestRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}

		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list guest requests: %w", err)
	}

	return requests, total, nil
}

// ApplyUpdate performs a partial update of a single request. Note entries
// are appended with array_append, a single atomic list push, so concurrent
// appends never drop each other. responded_at is only ever set once.
func (r *Repository) ApplyUpdate(ctx context.Context, id uuid.UUID, u Update) error {
	set := []string{"last_updated_by = $1", "last_updated_at = $2"}
	args := []interface{}{u.UpdatedBy, u.UpdatedAt}

	if u.Status != "" {
		args = append(args, string(u.Status))
		set = append(set, fmt.Sprintf("status = $%d", len(args)))
	}
	if u.SetRespondedAt {
		args = append(args, u.UpdatedAt)
		set = append(set, fmt.Sprintf("responded_at = COALESCE(responded_at, $%d)", len(args)))
	}
	if u.Priority != "" {
		args = append(args, string(u.Priority))
		set = append(set, fmt.Sprintf("priority = $%d", len(args)))
	}
	if u.Note != "" {
		args = append(args, u.Note)
		set = append(set, fmt.Sprintf("internal_notes = array_append(internal_notes, $%d)", len(args)))
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE guest_requests
		SET %s
		WHERE id = $%d;
    `, strings.Join(set, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update guest request: %w", err)
	}

	rows, _ := res.RowsAffected()

	if rows == 0 {
		return ErrRequestNotFound
	}

	return nil
}

// Summarize computes the analytics snapshot inside a single repeatable-read
// transaction so the overview counters and both breakdowns describe one
// point-in-time state of the collection.
func (r *Repository) Summarize(ctx context.Context, recentSince time.Time) (model.AnalyticsSnapshot, error) {
	var snapshot model.AnalyticsSnapshot

	tx, err := r.db.Master.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return snapshot, fmt.Errorf("failed to begin analytics tx: %w", err)
	}
	defer tx.Rollback()

	overviewQuery := `
		SELECT count(*),
		       count(*) FILTER (WHERE status = 'pending'),
		       count(*) FILTER (WHERE status IN ('completed', 'resolved')),
		       count(*) FILTER (WHERE priority = 'urgent'),
		       count(*) FILTER (WHERE created_at >= $1)
		FROM guest_requests;
    `

	err = tx.QueryRowContext(ctx, overviewQuery, recentSince).Scan(
		&snapshot.Overview.TotalRequests,
		&snapshot.Overview.PendingRequests,
		&snapshot.Overview.CompletedRequests,
		&snapshot.Overview.UrgentRequests,
		&snapshot.Overview.RecentRequests,
	)
	if err != nil {
		return snapshot, fmt.Errorf("failed to compute overview: %w", err)
	}

	snapshot.RequestTypes, err = groupCount(ctx, tx, "request_type")
	if err != nil {
		return snapshot, err
	}

	snapshot.StatusBreakdown, err = groupCount(ctx, tx, "status")
	if err != nil {
		return snapshot, err
	}

	if err := tx.Commit(); err != nil {
		return snapshot, fmt.Errorf("failed to commit analytics tx: %w", err)
	}

	return snapshot, nil
}

func groupCount(ctx context.Context, tx *sql.Tx, column string) ([]model.BucketCount, error) {
	// column is one of two fixed identifiers, never user input.
	query := fmt.Sprintf(`
		SELECT %s, count(*)
		FROM guest_requests
		GROUP BY %s
		ORDER BY count(*) DESC, %s ASC;
    `, column, column, column)

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to group by %s: %w", column, err)
	}
	defer rows.Close()

	buckets := []model.BucketCount{}
	for rows.Next() {
		var b model.BucketCount
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, err
		}

		buckets = append(buckets, b)
	}

	return buckets, rows.Err()
}

func buildFilter(f ListFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(guest_name ILIKE $%d OR guest_email ILIKE $%d OR property_address ILIKE $%d OR message ILIKE $%d)",
			n, n, n, n,
		))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		where = append(where, fmt.Sprintf("priority = $%d", len(args)))
	}
	if f.RequestType != "" {
		args = append(args, f.RequestType)
		where = append(where, fmt.Sprintf("request_type = $%d", len(args)))
	}
	if f.DateFrom != nil {
		args = append(args, *f.DateFrom)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.DateTo != nil {
		args = append(args, *f.DateTo)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	if len(where) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(where, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (model.GuestRequest, error) {
	var (
		req                    model.GuestRequest
		phone, unit, updatedBy sql.NullString
		guests                 sql.NullInt64
		photos                 []byte
		notes                  pq.StringArray
		respondedAt, updatedAt sql.NullTime
	)

	err := row.Scan(
		&req.ID, &req.ConfirmationCode, &req.GuestName, &req.GuestEmail, &phone,
		&guests, &req.PropertyAddress, &req.CheckInDate, &req.CheckOutDate,
		&unit, &req.BookingID, &req.RequestType, &req.Priority, &req.Message, &photos,
		&req.Status, &notes, &req.CreatedAt, &respondedAt, &updatedBy,
		&updatedAt,
	)
	if err != nil {
		return model.GuestRequest{}, err
	}

	req.GuestPhone = phone.String
	req.UnitNumber = unit.String
	req.NumberOfGuests = int(guests.Int64)
	req.LastUpdatedBy = updatedBy.String
	req.InternalNotes = []string(notes)
	if req.InternalNotes == nil {
		req.InternalNotes = []string{}
	}

	req.Photos = []model.Photo{}
	if len(photos) > 0 {
		if err := json.Unmarshal(photos, &req.Photos); err != nil {
			return model.GuestRequest{}, fmt.Errorf("unmarshal photos: %w", err)
		}
	}

	if respondedAt.Valid {
		t := respondedAt.Time
		req.RespondedAt = &t
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		req.LastUpdatedAt = &t
	}

	return req, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
