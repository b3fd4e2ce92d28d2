package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a guest request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusResolved   Status = "resolved"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusResolved, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether a transition into s should stamp RespondedAt.
// Cancelled counts as terminal only for bulk updates, which pass it explicitly.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusResolved
}

// Priority is the triage priority of a guest request.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal:
		return true
	}
	return false
}

// DefaultRequestTypes is the built-in set of accepted request types. The
// effective set is configuration-driven; this is only the fallback when the
// config does not override it.
var DefaultRequestTypes = []string{
	"property-issues",
	"housekeeping-requests",
	"pre-arrival-grocery-stocking",
	"concierge-services",
	"beach-recreation-gear",
	"transportation-assistance",
	"celebration-services",
	"emergency-urgent",
	"general-inquiry",
	"pet-services",
}

// RequestTypeSet is the closed set of request types accepted at the boundary.
type RequestTypeSet map[string]struct{}

func NewRequestTypeSet(values []string) RequestTypeSet {
	if len(values) == 0 {
		values = DefaultRequestTypes
	}

	set := make(RequestTypeSet, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}

	return set
}

func (s RequestTypeSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Photo describes a stored request attachment.
type Photo struct {
	ID           uuid.UUID `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// GuestRequest is a single service inquiry submitted by a lodging guest.
type GuestRequest struct {
	ID               uuid.UUID     `json:"id"`
	ConfirmationCode string        `json:"confirmation_code"`
	GuestName        string        `json:"guest_name"`
	GuestEmail       string        `json:"guest_email"`
	GuestPhone       string        `json:"guest_phone,omitempty"`
	NumberOfGuests   int           `json:"number_of_guests,omitempty"`
	PropertyAddress  string        `json:"property_address"`
	CheckInDate      string        `json:"check_in_date"`
	CheckOutDate     string        `json:"check_out_date"`
	UnitNumber       string        `json:"unit_number,omitempty"`
	BookingID        uuid.NullUUID `json:"booking_id,omitempty"`
	RequestType      string        `json:"request_type"`
	Priority         Priority      `json:"priority"`
	Message          string        `json:"message"`
	Photos           []Photo       `json:"photos"`
	Status           Status        `json:"status"`
	InternalNotes    []string      `json:"internal_notes"`
	CreatedAt        time.Time     `json:"created_at"`
	RespondedAt      *time.Time    `json:"responded_at,omitempty"`
	LastUpdatedBy    string        `json:"last_updated_by,omitempty"`
	LastUpdatedAt    *time.Time    `json:"last_updated_at,omitempty"`
}

// ConfirmationCode derives the human-shareable confirmation code for a
// request id: the first 8 characters of the id, upper-cased. The code is a
// pure function of the id and stable for the lifetime of the request.
func ConfirmationCode(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}
