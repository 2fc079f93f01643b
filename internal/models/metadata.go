package models

// SessionMetadata is the typed view of the three string-encoded JSON blobs a
// checkout session carries. Each field degrades independently to its zero
// value when the corresponding blob is absent or malformed.
type SessionMetadata struct {
	User      UserRecord
	Tickets   []Ticket
	Organizer OrganizerRecord
}

// UserRecord is the purchaser identity plus the event the tickets are for.
// All fields are validated at checkout creation time but may be partially
// absent when read back out of session metadata.
type UserRecord struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EventID       string `json:"eventId"`
	EventTitle    string `json:"eventTitle"`
	EventDate     string `json:"eventDate"`
	EventTime     string `json:"eventTime"`
	EventLocation string `json:"eventLocation"`
	EventImage    string `json:"eventImage"`
	Refunds       bool   `json:"refunds"`
}

// IsZero reports whether no user data was recovered from metadata.
func (u UserRecord) IsZero() bool {
	return u == UserRecord{}
}

// Ticket statuses.
const (
	TicketValid    = "valid"
	TicketRefunded = "refunded"
)

// Ticket is one purchasable line item. ID and Status are empty in metadata
// and assigned exactly once during materialization.
type Ticket struct {
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	BookingFee float64 `json:"bookingFee"`
	Quantity   int     `json:"quantity"`
	ID         string  `json:"id,omitempty"`
	Status     string  `json:"status,omitempty"`
}

type OrganizerRecord struct {
	OrganizerID string `json:"organizerId"`
	Name        string `json:"organizer"`
}
