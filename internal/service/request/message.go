package request

import (
	"fmt"
	"strings"

	"github.com/luxserv365/guest-concierge/internal/model"
)

// responseWindow is the staff response target communicated per priority.
var responseWindow = map[model.Priority]string{
	model.PriorityUrgent: "2 hours",
	model.PriorityHigh:   "4 hours",
	model.PriorityNormal: "24 hours",
}

func alertSubject(req model.GuestRequest) string {
	return fmt.Sprintf(
		"New Guest Request - %s Priority - %s",
		strings.ToUpper(string(req.Priority)), req.ConfirmationCode,
	)
}

// alertBody renders the plain-text staff alert sent over every channel.
func alertBody(req model.GuestRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "New Guest Request\n\n")
	fmt.Fprintf(&b, "Priority: %s\n", strings.ToUpper(string(req.Priority)))
	fmt.Fprintf(&b, "Confirmation Number: %s\n", req.ConfirmationCode)
	fmt.Fprintf(&b, "Response Required Within: %s\n\n", responseWindow[req.Priority])

	fmt.Fprintf(&b, "Request Type: %s\n", req.RequestType)
	fmt.Fprintf(&b, "Property: %s\n", req.PropertyAddress)
	fmt.Fprintf(&b, "Stay: %s to %s\n\n", req.CheckInDate, req.CheckOutDate)

	fmt.Fprintf(&b, "Guest: %s\n", req.GuestName)
	fmt.Fprintf(&b, "Email: %s\n", req.GuestEmail)
	if req.GuestPhone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", req.GuestPhone)
	}
	if len(req.Photos) > 0 {
		fmt.Fprintf(&b, "Photos Attached: %d\n", len(req.Photos))
	}

	fmt.Fprintf(&b, "\nMessage:\n%s\n", req.Message)

	return b.String()
}
