package models

import "time"

// Provider event kinds handled by the router. Anything else is acknowledged
// and dropped so the provider does not redeliver it.
const (
	EventPaymentSucceeded   = "payment_intent.succeeded"
	EventCheckoutCompleted  = "checkout.session.completed"
	EventPaymentFailed      = "payment_intent.payment_failed"
	EventAsyncPaymentFailed = "checkout.session.async_payment_failed"
)

// InboundEvent is a verified provider event with its payload already decoded
// into the kind-specific variant. Exactly one of PaymentIntent/Session is set,
// depending on Kind.
type InboundEvent struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Created time.Time `json:"created"`

	PaymentIntent *PaymentIntent   `json:"paymentIntent,omitempty"`
	Session       *CheckoutSession `json:"session,omitempty"`
}

// PaymentIntent is the data.object payload of payment_intent.* events.
// Amount is in minor currency units as delivered by the provider.
type PaymentIntent struct {
	ID               string        `json:"id"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	Status           string        `json:"status"`
	Created          int64         `json:"created"`
	Charges          ChargeList    `json:"charges"`
	LastPaymentError *PaymentError `json:"last_payment_error"`
}

type ChargeList struct {
	Data []Charge `json:"data"`
}

type Charge struct {
	PaymentMethodDetails PaymentMethodDetails `json:"payment_method_details"`
}

type PaymentMethodDetails struct {
	Card *CardDetails `json:"card"`
}

type CardDetails struct {
	Last4 string `json:"last4"`
	Brand string `json:"brand"`
}

type PaymentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CheckoutSession is the data.object payload of checkout.session.* events and
// the shape returned by the session lookup API. Metadata carries the three
// string-encoded JSON blobs set at checkout creation time.
type CheckoutSession struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	CustomerEmail string            `json:"customer_email"`
	Created       int64             `json:"created"`
	Metadata      map[string]string `json:"metadata"`
}
