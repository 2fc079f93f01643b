package models

import "time"

// Overall transaction statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Refund placeholder status for freshly materialized records.
const RefundNotRefunded = "not_refunded"

// TermsVersion recorded on every materialized transaction.
const TermsVersion = "v1.0"

// Record origins. Payment-origin records additionally produce a schedule
// entry; checkout-origin records do not.
const (
	OriginPayment  = "payment"
	OriginCheckout = "checkout"
)

// TransactionRecord is the canonical persisted entity, keyed by the
// provider's payment intent id. Two events for the same intent merge into one
// record: the payment-origin record owns the payment sub-object, the
// checkout-origin record owns the checkout sub-object, and neither clobbers
// the other's.
type TransactionRecord struct {
	TransactionID string `json:"transactionId"`
	SessionID     string `json:"sessionId,omitempty"`
	UserID        string `json:"userId,omitempty"`
	Origin        string `json:"origin,omitempty"`

	Payment  *PaymentInfo  `json:"payment,omitempty"`
	Checkout *CheckoutInfo `json:"checkout,omitempty"`

	QRCodeURL    string           `json:"qrCodeUrl,omitempty"`
	EventDetails *EventDetails    `json:"eventDetails,omitempty"`
	Tickets      []Ticket         `json:"tickets,omitempty"`
	Organizer    *OrganizerInfo   `json:"organizerDetails,omitempty"`
	Status       string           `json:"status,omitempty"`
	Verified     bool             `json:"verified"`
	TermsVersion string           `json:"termsVersion,omitempty"`
	Failure      *FailureInfo     `json:"failure,omitempty"`
}

// PaymentInfo holds provider charge details. Amount is in major currency
// units; the minor-unit division happens once, at materialization.
type PaymentInfo struct {
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	Created       time.Time         `json:"created"`
	PaymentMethod PaymentMethodInfo `json:"paymentMethod"`
	Refund        RefundInfo        `json:"refund"`
}

type PaymentMethodInfo struct {
	Last4 string `json:"last4"`
	Brand string `json:"brand"`
}

type RefundInfo struct {
	Status string     `json:"status"`
	Amount *float64   `json:"amount"`
	Date   *time.Time `json:"date"`
}

type CheckoutInfo struct {
	AmountTotal   float64   `json:"amountTotal"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerID    string    `json:"customerId"`
	CustomerName  string    `json:"customerName"`
	Created       time.Time `json:"created"`
}

type EventDetails struct {
	EventID       string `json:"eventId"`
	EventTitle    string `json:"eventTitle"`
	EventLocation string `json:"eventLocation"`
	EventDate     string `json:"eventDate"`
	EventTime     string `json:"eventTime"`
	EventImage    string `json:"eventImage,omitempty"`
	Refunds       bool   `json:"refunds"`
}

type OrganizerInfo struct {
	OrganizerID   string `json:"organizerId"`
	OrganizerName string `json:"organizerName"`
}

// FailureInfo is merged onto an existing record when a failure event arrives.
type FailureInfo struct {
	ErrorCode    string    `json:"errorCode"`
	ErrorMessage string    `json:"errorMessage"`
	Timestamp    time.Time `json:"timestamp"`
}

// ScheduleEntry is the derived side record created for payment-origin
// transactions only: the event display fields plus a deep link into the
// ticket wallet.
type ScheduleEntry struct {
	TransactionID string `json:"transactionId"`
	EventID       string `json:"eventId"`
	Name          string `json:"name"`
	Location      string `json:"location"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Image         string `json:"image,omitempty"`
	Link          string `json:"link"`
}

// Retry job kinds. Commit jobs carry a full materialized snapshot; failure
// jobs carry a failure patch; materialize jobs carry the original event so
// session lookup and QR encoding can be re-attempted from scratch.
const (
	JobCommit      = "commit"
	JobFailure     = "failure"
	JobMaterialize = "materialize"
)

// RetryJob is the durable queue payload. Attempts bounds redelivery: the
// worker requeues with attempts+1 until the cap, then dead-letters. Raw is
// set only on dead-lettered deliveries that failed to decode, preserving the
// original bytes for forensics.
type RetryJob struct {
	PaymentIntentID string             `json:"paymentIntentId"`
	Kind            string             `json:"kind"`
	Attempts        int                `json:"attempts"`
	Record          *TransactionRecord `json:"record,omitempty"`
	Failure         *FailureInfo       `json:"failure,omitempty"`
	Event           *InboundEvent      `json:"event,omitempty"`
	Raw             []byte             `json:"raw,omitempty"`
}
