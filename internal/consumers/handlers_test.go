package consumers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gatepass/internal/errors"
	"gatepass/internal/messaging"
	"gatepass/internal/models"
)

type fakeCommitter struct {
	commitErr  error
	failureErr error

	committed []*models.TransactionRecord
	patched   []string
}

func (f *fakeCommitter) Commit(_ context.Context, record *models.TransactionRecord) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = append(f.committed, record)
	return nil
}

func (f *fakeCommitter) ApplyFailure(_ context.Context, intentID string, _ *models.FailureInfo) error {
	if f.failureErr != nil {
		return f.failureErr
	}
	f.patched = append(f.patched, intentID)
	return nil
}

type fakeMaterializer struct {
	record *models.TransactionRecord
	err    error
}

func (f *fakeMaterializer) MaterializePayment(_ context.Context, pi *models.PaymentIntent) (*models.TransactionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.record != nil {
		return f.record, nil
	}
	return &models.TransactionRecord{TransactionID: pi.ID}, nil
}

func (f *fakeMaterializer) MaterializeCheckout(session *models.CheckoutSession) (*models.TransactionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.TransactionRecord{TransactionID: session.PaymentIntent, SessionID: session.ID}, nil
}

type published struct {
	subject string
	job     *models.RetryJob
}

type fakePublisher struct {
	err  error
	sent []published
}

func (f *fakePublisher) Publish(subject string, data interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{subject: subject, job: data.(*models.RetryJob)})
	return nil
}

func newTestHandlers(c *fakeCommitter, m *fakeMaterializer, p *fakePublisher) *Handlers {
	return NewHandlers(c, m, p, 5)
}

func TestHandleCommitJobSucceeds(t *testing.T) {
	writer := &fakeCommitter{}
	queue := &fakePublisher{}
	h := newTestHandlers(writer, &fakeMaterializer{}, queue)

	job := &models.RetryJob{
		PaymentIntentID: "pi_123",
		Kind:            models.JobCommit,
		Record:          &models.TransactionRecord{TransactionID: "pi_123"},
	}

	assert.True(t, h.handle(context.Background(), job))
	require.Len(t, writer.committed, 1)
	assert.Equal(t, "pi_123", writer.committed[0].TransactionID)
	assert.Empty(t, queue.sent)
}

func TestHandleRetryableFailureRequeuesWithBumpedAttempts(t *testing.T) {
	writer := &fakeCommitter{commitErr: apperrors.ErrCommitFailed}
	queue := &fakePublisher{}
	h := newTestHandlers(writer, &fakeMaterializer{}, queue)

	job := &models.RetryJob{
		PaymentIntentID: "pi_123",
		Kind:            models.JobCommit,
		Attempts:        1,
		Record:          &models.TransactionRecord{TransactionID: "pi_123"},
	}

	assert.True(t, h.handle(context.Background(), job))
	require.Len(t, queue.sent, 1)
	assert.Equal(t, messaging.SubjectRetry, queue.sent[0].subject)
	assert.Equal(t, 2, queue.sent[0].job.Attempts)
	// Original job is not mutated; the requeued copy carries the bump.
	assert.Equal(t, 1, job.Attempts)
}

func TestHandleExhaustedAttemptsDeadLetters(t *testing.T) {
	writer := &fakeCommitter{commitErr: apperrors.ErrCommitFailed}
	queue := &fakePublisher{}
	h := newTestHandlers(writer, &fakeMaterializer{}, queue)

	job := &models.RetryJob{
		PaymentIntentID: "pi_123",
		Kind:            models.JobCommit,
		Attempts:        4,
		Record:          &models.TransactionRecord{TransactionID: "pi_123"},
	}

	assert.True(t, h.handle(context.Background(), job))
	require.Len(t, queue.sent, 1)
	assert.Equal(t, messaging.SubjectDeadLetter, queue.sent[0].subject)
	assert.Equal(t, 4, queue.sent[0].job.Attempts)
}

func TestHandleNonRetryableErrorDeadLettersImmediately(t *testing.T) {
	writer := &fakeCommitter{commitErr: errors.New("malformed record")}
	queue := &fakePublisher{}
	h := newTestHandlers(writer, &fakeMaterializer{}, queue)

	job := &models.RetryJob{
		PaymentIntentID: "pi_123",
		Kind:            models.JobCommit,
		Record:          &models.TransactionRecord{TransactionID: "pi_123"},
	}

	assert.True(t, h.handle(context.Background(), job))
	require.Len(t, queue.sent, 1)
	assert.Equal(t, messaging.SubjectDeadLetter, queue.sent[0].subject)
}

func TestHandleCommitJobWithoutRecordDeadLetters(t *testing.T) {
	queue := &fakePublisher{}
	h := newTestHandlers(&fakeCommitter{}, &fakeMaterializer{}, queue)

	job := &models.RetryJob{PaymentIntentID: "pi_123", Kind: models.JobCommit}

	assert.True(t, h.handle(context.Background(), job))
	require.Len(t, queue.sent, 1)
	assert.Equal(t, messaging.SubjectDeadLetter, queue.sent[0].subject)
}

func TestHandleFailedRequeueLeavesDeliveryUnacked(t *testing.T) {
	writer := &fakeCommitter{commitErr: apperrors.ErrCommitFailed}
	queue := &fakePublisher{err: errors.New("nats down")}
	h := newTestHandlers(writer, &fakeMaterializer{}, queue)

	job := &models.RetryJob{
		PaymentIntentID: "pi_123",
		Kind:            models.JobCommit,
		Record:          &models.TransactionRecord{TransactionID: "pi_123"},
	}

	assert.False(t, h.handle(context.Background(), job))
}

func TestHandleFailedDeadLetterPublishLeavesDeliveryUnacked(t *testing.T) {
	writer := &fakeCommitter{commitErr: apperrors.ErrCommitFailed}
	queue := &fakePublisher{err: errors.New("nats down")}
	h := newTestHandlers(writer, &fakeMaterializer{}, queue)

	job := &models.RetryJob{
		PaymentIntentID: "pi_123",
		Kind:            models.JobCommit,
		Attempts:        10,
		Record:          &models.TransactionRecord{TransactionID: "pi_123"},
	}

	assert.False(t, h.handle(context.Background(), job))
}

func TestHandleFailureJobAppliesPatch(t *testing.T) {
	writer := &fakeCommitter{}
	queue := &fakePublisher{}
	h := newTestHandlers(writer, &fakeMaterializer{}, queue)

	job := &models.RetryJob{
		PaymentIntentID: "pi_456",
		Kind:            models.JobFailure,
		Failure:         &models.FailureInfo{ErrorCode: "card_declined"},
	}

	assert.True(t, h.handle(context.Background(), job))
	assert.Equal(t, []string{"pi_456"}, writer.patched)
}

func TestHandleMaterializeJobRebuildsPaymentRecord(t *testing.T) {
	writer := &fakeCommitter{}
	queue := &fakePublisher{}
	h := newTestHandlers(writer, &fakeMaterializer{}, queue)

	job := &models.RetryJob{
		PaymentIntentID: "pi_789",
		Kind:            models.JobMaterialize,
		Event: &models.InboundEvent{
			ID:            "evt_1",
			Kind:          models.EventPaymentSucceeded,
			PaymentIntent: &models.PaymentIntent{ID: "pi_789"},
		},
	}

	assert.True(t, h.handle(context.Background(), job))
	require.Len(t, writer.committed, 1)
	assert.Equal(t, "pi_789", writer.committed[0].TransactionID)
}

func TestHandleMaterializeJobRebuildsCheckoutRecord(t *testing.T) {
	writer := &fakeCommitter{}
	queue := &fakePublisher{}
	h := newTestHandlers(writer, &fakeMaterializer{}, queue)

	job := &models.RetryJob{
		PaymentIntentID: "pi_789",
		Kind:            models.JobMaterialize,
		Event: &models.InboundEvent{
			ID:   "evt_2",
			Kind: models.EventCheckoutCompleted,
			Session: &models.CheckoutSession{
				ID:            "cs_1",
				PaymentIntent: "pi_789",
			},
		},
	}

	assert.True(t, h.handle(context.Background(), job))
	require.Len(t, writer.committed, 1)
	assert.Equal(t, "cs_1", writer.committed[0].SessionID)
}

func TestHandleMaterializeStillRetryableRequeues(t *testing.T) {
	queue := &fakePublisher{}
	h := newTestHandlers(&fakeCommitter{}, &fakeMaterializer{err: apperrors.ErrSessionNotFound}, queue)

	job := &models.RetryJob{
		PaymentIntentID: "pi_789",
		Kind:            models.JobMaterialize,
		Attempts:        2,
		Event: &models.InboundEvent{
			ID:            "evt_1",
			Kind:          models.EventPaymentSucceeded,
			PaymentIntent: &models.PaymentIntent{ID: "pi_789"},
		},
	}

	assert.True(t, h.handle(context.Background(), job))
	require.Len(t, queue.sent, 1)
	assert.Equal(t, messaging.SubjectRetry, queue.sent[0].subject)
	assert.Equal(t, 3, queue.sent[0].job.Attempts)
}

func TestHandleMaterializeIncompleteDataDeadLetters(t *testing.T) {
	queue := &fakePublisher{}
	h := newTestHandlers(&fakeCommitter{}, &fakeMaterializer{err: apperrors.ErrIncompleteBookingData}, queue)

	job := &models.RetryJob{
		PaymentIntentID: "pi_789",
		Kind:            models.JobMaterialize,
		Event: &models.InboundEvent{
			ID:            "evt_1",
			Kind:          models.EventPaymentSucceeded,
			PaymentIntent: &models.PaymentIntent{ID: "pi_789"},
		},
	}

	assert.True(t, h.handle(context.Background(), job))
	require.Len(t, queue.sent, 1)
	assert.Equal(t, messaging.SubjectDeadLetter, queue.sent[0].subject)
}

func TestMalformedDeliveryDeadLettersWithRawPayload(t *testing.T) {
	queue := &fakePublisher{}
	h := newTestHandlers(&fakeCommitter{}, &fakeMaterializer{}, queue)

	raw := []byte(`{"paymentIntentId": not json`)
	assert.True(t, h.dispatch(context.Background(), raw))

	require.Len(t, queue.sent, 1)
	assert.Equal(t, messaging.SubjectDeadLetter, queue.sent[0].subject)
	assert.Equal(t, raw, queue.sent[0].job.Raw)
}

func TestMalformedDeliveryFailedDeadLetterLeavesUnacked(t *testing.T) {
	queue := &fakePublisher{err: errors.New("nats down")}
	h := newTestHandlers(&fakeCommitter{}, &fakeMaterializer{}, queue)

	assert.False(t, h.dispatch(context.Background(), []byte("garbage")))
}

func TestHandleUnknownJobKindDeadLetters(t *testing.T) {
	queue := &fakePublisher{}
	h := newTestHandlers(&fakeCommitter{}, &fakeMaterializer{}, queue)

	job := &models.RetryJob{PaymentIntentID: "pi_1", Kind: "compact"}

	assert.True(t, h.handle(context.Background(), job))
	require.Len(t, queue.sent, 1)
	assert.Equal(t, messaging.SubjectDeadLetter, queue.sent[0].subject)
}
