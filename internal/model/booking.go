package model

import (
	"time"

	"github.com/google/uuid"
)

// WelcomeStatus tracks the automated welcome message for a booking.
type WelcomeStatus string

const (
	WelcomePending WelcomeStatus = "pending"
	WelcomeSent    WelcomeStatus = "welcomed"
	WelcomeFailed  WelcomeStatus = "welcome-failed"
)

// Booking is a reservation received through the booking webhook.
type Booking struct {
	ID              uuid.UUID     `json:"id"`
	GuestName       string        `json:"guest_name"`
	GuestEmail      string        `json:"guest_email"`
	PropertyAddress string        `json:"property_address"`
	CheckInDate     string        `json:"check_in_date"`
	CheckOutDate    string        `json:"check_out_date"`
	Source          string        `json:"source,omitempty"`
	ExternalRef     string        `json:"external_ref,omitempty"`
	WelcomeStatus   WelcomeStatus `json:"welcome_status"`
	CreatedAt       time.Time     `json:"created_at"`
}
