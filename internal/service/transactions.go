package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "gatepass/internal/errors"
	"gatepass/internal/logger"
	"gatepass/internal/messaging"
	"gatepass/internal/metadata"
	"gatepass/internal/metrics"
	"gatepass/internal/models"
)

// SessionSource resolves the checkout session associated with a payment
// intent.
type SessionSource interface {
	FindSessionByIntent(ctx context.Context, intentID string) (*models.CheckoutSession, error)
}

// QREncoder turns a small JSON-serializable payload into an opaque string.
type QREncoder interface {
	DataURL(v any) (string, error)
}

// Writer is the durable multi-collection commit surface.
type Writer interface {
	Commit(ctx context.Context, record *models.TransactionRecord) error
	ApplyFailure(ctx context.Context, intentID string, failure *models.FailureInfo) error
}

// Queue enqueues retry jobs onto the durable work queue.
type Queue interface {
	Publish(subject string, data interface{}) error
}

type TransactionService struct {
	sessions SessionSource
	qr       QREncoder
	writer   Writer
	queue    Queue

	handlers map[string]func(ctx context.Context, ev *models.InboundEvent) error
}

func NewTransactionService(sessions SessionSource, qr QREncoder, writer Writer, queue Queue) *TransactionService {
	s := &TransactionService{
		sessions: sessions,
		qr:       qr,
		writer:   writer,
		queue:    queue,
	}

	s.handlers = map[string]func(ctx context.Context, ev *models.InboundEvent) error{
		models.EventPaymentSucceeded:   s.handlePaymentSucceeded,
		models.EventCheckoutCompleted:  s.handleCheckoutCompleted,
		models.EventPaymentFailed:      s.handlePaymentFailed,
		models.EventAsyncPaymentFailed: s.handleAsyncPaymentFailed,
	}

	return s
}

// Route dispatches a verified event to its handler. Unrecognized kinds are
// logged and acknowledged: the provider must not redeliver events this
// service intentionally ignores.
func (s *TransactionService) Route(ctx context.Context, ev *models.InboundEvent) error {
	metrics.EventsReceived.WithLabelValues(ev.Kind).Inc()

	handler, ok := s.handlers[ev.Kind]
	if !ok {
		logger.WithEvent(ev.ID, ev.Kind).Warn("Unhandled event kind")
		return nil
	}

	return handler(ctx, ev)
}

func (s *TransactionService) handlePaymentSucceeded(ctx context.Context, ev *models.InboundEvent) error {
	pi := ev.PaymentIntent
	log := logger.WithIntent(pi.ID)

	record, err := s.MaterializePayment(ctx, pi)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrIncompleteBookingData) {
			// Malformed upstream checkout; retrying cannot fix it.
			log.Error("Dropping event with incomplete booking data", "error", err)
			return err
		}
		if apperrors.Retryable(err) {
			log.Error("Materialization failed, queueing for retry", "error", err)
			return s.enqueue(&models.RetryJob{
				PaymentIntentID: pi.ID,
				Kind:            models.JobMaterialize,
				Event:           ev,
			})
		}
		return err
	}

	if err := s.CommitRecord(ctx, record); err != nil {
		log.Error("Commit failed, queueing for retry", "error", err)
		return s.enqueue(&models.RetryJob{
			PaymentIntentID: record.TransactionID,
			Kind:            models.JobCommit,
			Record:          record,
		})
	}

	log.Info("Transaction committed", "session_id", record.SessionID)
	return nil
}

func (s *TransactionService) handleCheckoutCompleted(ctx context.Context, ev *models.InboundEvent) error {
	session := ev.Session
	log := logger.WithIntent(session.PaymentIntent)

	record, err := s.MaterializeCheckout(session)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrIncompleteBookingData) {
			log.Error("Dropping event with incomplete booking data", "error", err)
			return err
		}
		if apperrors.Retryable(err) {
			log.Error("Materialization failed, queueing for retry", "error", err)
			return s.enqueue(&models.RetryJob{
				PaymentIntentID: session.PaymentIntent,
				Kind:            models.JobMaterialize,
				Event:           ev,
			})
		}
		return err
	}

	if err := s.CommitRecord(ctx, record); err != nil {
		log.Error("Commit failed, queueing for retry", "error", err)
		return s.enqueue(&models.RetryJob{
			PaymentIntentID: record.TransactionID,
			Kind:            models.JobCommit,
			Record:          record,
		})
	}

	log.Info("Checkout transaction committed", "session_id", session.ID)
	return nil
}

func (s *TransactionService) handlePaymentFailed(ctx context.Context, ev *models.InboundEvent) error {
	pi := ev.PaymentIntent

	failure := &models.FailureInfo{
		ErrorCode:    "unknown_error",
		ErrorMessage: "Unknown error occurred",
		Timestamp:    time.Now().UTC(),
	}
	if pe := pi.LastPaymentError; pe != nil {
		if pe.Code != "" {
			failure.ErrorCode = pe.Code
		}
		if pe.Message != "" {
			failure.ErrorMessage = pe.Message
		}
	}

	return s.applyFailure(ctx, pi.ID, failure)
}

func (s *TransactionService) handleAsyncPaymentFailed(ctx context.Context, ev *models.InboundEvent) error {
	return s.applyFailure(ctx, ev.Session.PaymentIntent, &models.FailureInfo{
		ErrorCode:    "async_payment_failed",
		ErrorMessage: "Asynchronous payment failed",
		Timestamp:    time.Now().UTC(),
	})
}

func (s *TransactionService) applyFailure(ctx context.Context, intentID string, failure *models.FailureInfo) error {
	if err := s.writer.ApplyFailure(ctx, intentID, failure); err != nil {
		logger.WithIntent(intentID).Error("Failure patch commit failed, queueing for retry", "error", err)
		return s.enqueue(&models.RetryJob{
			PaymentIntentID: intentID,
			Kind:            models.JobFailure,
			Failure:         failure,
		})
	}

	logger.WithIntent(intentID).Info("Failed transaction recorded", "error_code", failure.ErrorCode)
	return nil
}

// qrPayload is the opaque content encoded into the ticket QR code.
type qrPayload struct {
	ID      string          `json:"id"`
	User    string          `json:"user"`
	Tickets []models.Ticket `json:"tickets"`
}

// MaterializePayment builds the canonical transaction record for a
// payment-succeeded event: session lookup, metadata parse, QR encoding and
// ticket issuance. Monetary amounts arrive in minor units and are divided
// into major units here, exactly once.
func (s *TransactionService) MaterializePayment(ctx context.Context, pi *models.PaymentIntent) (*models.TransactionRecord, error) {
	session, err := s.sessions.FindSessionByIntent(ctx, pi.ID)
	if err != nil {
		return nil, err
	}

	md := metadata.Parse(session.Metadata)
	if md.User.IsZero() || len(md.Tickets) == 0 {
		return nil, fmt.Errorf("%w: intent %s", apperrors.ErrIncompleteBookingData, pi.ID)
	}

	qrURL, err := s.qr.DataURL(qrPayload{ID: pi.ID, User: md.User.UID, Tickets: md.Tickets})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQREncoding, err)
	}

	var method models.PaymentMethodInfo
	if charges := pi.Charges.Data; len(charges) > 0 {
		if card := charges[0].PaymentMethodDetails.Card; card != nil {
			method = models.PaymentMethodInfo{Last4: card.Last4, Brand: card.Brand}
		}
	}

	return &models.TransactionRecord{
		TransactionID: pi.ID,
		SessionID:     session.ID,
		UserID:        md.User.UID,
		Origin:        models.OriginPayment,
		Payment: &models.PaymentInfo{
			Amount:        float64(pi.Amount) / 100,
			Currency:      pi.Currency,
			Status:        pi.Status,
			Created:       time.Unix(pi.Created, 0).UTC(),
			PaymentMethod: method,
			Refund:        models.RefundInfo{Status: models.RefundNotRefunded},
		},
		Checkout:     checkoutInfo(session, md.User),
		QRCodeURL:    qrURL,
		EventDetails: eventDetails(md.User),
		Tickets:      issueTickets(md.Tickets),
		Organizer: &models.OrganizerInfo{
			OrganizerID:   md.Organizer.OrganizerID,
			OrganizerName: md.Organizer.Name,
		},
		Status:       models.StatusSucceeded,
		Verified:     false,
		TermsVersion: models.TermsVersion,
	}, nil
}

// MaterializeCheckout builds the record for a checkout-completed event. The
// session payload carries everything needed, so no provider lookup happens;
// the payment sub-object stays absent until the payment event arrives.
func (s *TransactionService) MaterializeCheckout(session *models.CheckoutSession) (*models.TransactionRecord, error) {
	md := metadata.Parse(session.Metadata)
	if md.User.IsZero() || len(md.Tickets) == 0 {
		return nil, fmt.Errorf("%w: session %s", apperrors.ErrIncompleteBookingData, session.ID)
	}

	qrURL, err := s.qr.DataURL(qrPayload{ID: session.PaymentIntent, User: md.User.UID, Tickets: md.Tickets})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQREncoding, err)
	}

	return &models.TransactionRecord{
		TransactionID: session.PaymentIntent,
		SessionID:     session.ID,
		UserID:        md.User.UID,
		Origin:        models.OriginCheckout,
		Checkout:      checkoutInfo(session, md.User),
		QRCodeURL:     qrURL,
		EventDetails:  eventDetails(md.User),
		Tickets:       issueTickets(md.Tickets),
		Organizer: &models.OrganizerInfo{
			OrganizerID:   md.Organizer.OrganizerID,
			OrganizerName: md.Organizer.Name,
		},
		Status:       models.StatusSucceeded,
		Verified:     false,
		TermsVersion: models.TermsVersion,
	}, nil
}

// CommitRecord runs the durable commit with latency and outcome metrics.
func (s *TransactionService) CommitRecord(ctx context.Context, record *models.TransactionRecord) error {
	start := time.Now()
	err := s.writer.Commit(ctx, record)
	metrics.CommitDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.Commits.WithLabelValues("error").Inc()
		return err
	}

	metrics.Commits.WithLabelValues("ok").Inc()
	return nil
}

func (s *TransactionService) enqueue(job *models.RetryJob) error {
	if err := s.queue.Publish(messaging.SubjectRetry, job); err != nil {
		return fmt.Errorf("failed to enqueue retry job for %s: %w", job.PaymentIntentID, err)
	}
	return nil
}

func checkoutInfo(session *models.CheckoutSession, user models.UserRecord) *models.CheckoutInfo {
	return &models.CheckoutInfo{
		AmountTotal:   float64(session.AmountTotal) / 100,
		Currency:      session.Currency,
		Status:        session.PaymentStatus,
		CustomerEmail: session.CustomerEmail,
		CustomerID:    user.UID,
		CustomerName:  user.Name,
		Created:       time.Unix(session.Created, 0).UTC(),
	}
}

func eventDetails(user models.UserRecord) *models.EventDetails {
	return &models.EventDetails{
		EventID:       user.EventID,
		EventTitle:    user.EventTitle,
		EventLocation: user.EventLocation,
		EventDate:     user.EventDate,
		EventTime:     user.EventTime,
		EventImage:    user.EventImage,
		Refunds:       user.Refunds,
	}
}

// issueTickets assigns each ticket a fresh collision-resistant id and marks
// it valid. Ids are assigned once here and never reassigned.
func issueTickets(tickets []models.Ticket) []models.Ticket {
	issued := make([]models.Ticket, len(tickets))
	for i, t := range tickets {
		t.ID = uuid.New().String()
		t.Status = models.TicketValid
		issued[i] = t
	}
	return issued
}
