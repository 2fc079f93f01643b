package errors

import "errors"

// Failure taxonomy for webhook processing. Handlers decide between rejecting
// the request, dropping the event, and queueing a retry based on these.
var ErrInvalidSignature = errors.New("webhook signature verification failed")
var ErrSessionNotFound = errors.New("no checkout session found for payment intent")
var ErrIncompleteBookingData = errors.New("session metadata is missing user or ticket data")
var ErrQREncoding = errors.New("failed to encode qr payload")
var ErrCommitFailed = errors.New("transaction commit failed")
var ErrUnknownEventKind = errors.New("unhandled event kind")

// Retryable reports whether a failure is transient and worth re-attempting
// through the retry queue. Malformed upstream data is not retryable: no number
// of attempts fixes a checkout that was created without user or ticket
// metadata.
func Retryable(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrQREncoding) ||
		errors.Is(err, ErrCommitFailed)
}

// Is re-exports errors.Is so callers don't need both packages.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
