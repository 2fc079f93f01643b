package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/stan.go"

	apperrors "gatepass/internal/errors"
	"gatepass/internal/logger"
	"gatepass/internal/messaging"
	"gatepass/internal/metrics"
	"gatepass/internal/models"
)

// Committer is the durable-writer surface the worker re-invokes.
type Committer interface {
	Commit(ctx context.Context, record *models.TransactionRecord) error
	ApplyFailure(ctx context.Context, intentID string, failure *models.FailureInfo) error
}

// Materializer rebuilds a record from the original event for jobs that
// failed before a snapshot existed.
type Materializer interface {
	MaterializePayment(ctx context.Context, pi *models.PaymentIntent) (*models.TransactionRecord, error)
	MaterializeCheckout(session *models.CheckoutSession) (*models.TransactionRecord, error)
}

// Publisher requeues jobs and feeds the dead-letter subject.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

type Handlers struct {
	writer       Committer
	materializer Materializer
	queue        Publisher
	maxAttempts  int
}

func NewHandlers(writer Committer, materializer Materializer, queue Publisher, maxAttempts int) *Handlers {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Handlers{
		writer:       writer,
		materializer: materializer,
		queue:        queue,
		maxAttempts:  maxAttempts,
	}
}

// HandleRetryJob processes one queued delivery. The message is acked only
// once its outcome is durable: a completed commit, a successful requeue with
// a bumped attempt counter, or a successful dead-letter publish. Anything
// else leaves it unacked so the broker redelivers.
func (h *Handlers) HandleRetryJob(m *stan.Msg) {
	if h.dispatch(context.Background(), m.Data) {
		m.Ack()
	}
}

// dispatch decodes and runs one delivery, reporting whether it should be
// acked. An undecodable payload is dead-lettered with the original bytes
// attached so nothing is lost to a poison message.
func (h *Handlers) dispatch(ctx context.Context, data []byte) bool {
	var job models.RetryJob
	if err := json.Unmarshal(data, &job); err != nil {
		slog.Error("Failed to unmarshal retry job", "error", err)
		return h.deadLetter(&models.RetryJob{Raw: data})
	}

	return h.handle(ctx, &job)
}

// handle runs the job and settles its fate, reporting whether the delivery
// should be acked.
func (h *Handlers) handle(ctx context.Context, job *models.RetryJob) bool {
	log := logger.WithIntent(job.PaymentIntentID)

	err := h.process(ctx, job)
	if err == nil {
		log.Info("Retry job completed", "kind", job.Kind, "attempts", job.Attempts)
		metrics.RetryJobs.WithLabelValues(metrics.OutcomeCompleted).Inc()
		return true
	}

	if !apperrors.Retryable(err) {
		log.Error("Retry job failed permanently", "kind", job.Kind, "error", err)
		return h.deadLetter(job)
	}

	if job.Attempts+1 >= h.maxAttempts {
		log.Error("Retry job exhausted attempts", "kind", job.Kind, "attempts", job.Attempts, "error", err)
		return h.deadLetter(job)
	}

	requeued := *job
	requeued.Attempts = job.Attempts + 1
	if pubErr := h.queue.Publish(messaging.SubjectRetry, &requeued); pubErr != nil {
		// Leave unacked; the broker redelivers this attempt.
		log.Error("Failed to requeue retry job", "error", pubErr)
		return false
	}

	log.Warn("Retry job requeued", "kind", job.Kind, "attempts", requeued.Attempts, "error", err)
	metrics.RetryJobs.WithLabelValues(metrics.OutcomeRequeued).Inc()
	return true
}

func (h *Handlers) process(ctx context.Context, job *models.RetryJob) error {
	switch job.Kind {
	case models.JobCommit:
		if job.Record == nil {
			return fmt.Errorf("commit job for %s has no record snapshot", job.PaymentIntentID)
		}
		return h.writer.Commit(ctx, job.Record)

	case models.JobFailure:
		if job.Failure == nil {
			return fmt.Errorf("failure job for %s has no patch", job.PaymentIntentID)
		}
		return h.writer.ApplyFailure(ctx, job.PaymentIntentID, job.Failure)

	case models.JobMaterialize:
		record, err := h.rematerialize(ctx, job)
		if err != nil {
			return err
		}
		return h.writer.Commit(ctx, record)

	default:
		return fmt.Errorf("unknown retry job kind %q", job.Kind)
	}
}

func (h *Handlers) rematerialize(ctx context.Context, job *models.RetryJob) (*models.TransactionRecord, error) {
	ev := job.Event
	if ev == nil {
		return nil, fmt.Errorf("materialize job for %s has no event", job.PaymentIntentID)
	}

	switch {
	case ev.PaymentIntent != nil:
		return h.materializer.MaterializePayment(ctx, ev.PaymentIntent)
	case ev.Session != nil:
		return h.materializer.MaterializeCheckout(ev.Session)
	default:
		return nil, fmt.Errorf("materialize job for %s carries an empty event", job.PaymentIntentID)
	}
}

func (h *Handlers) deadLetter(job *models.RetryJob) bool {
	if err := h.queue.Publish(messaging.SubjectDeadLetter, job); err != nil {
		slog.Error("Failed to dead-letter retry job",
			"payment_intent_id", job.PaymentIntentID, "error", err)
		return false
	}
	metrics.RetryJobs.WithLabelValues(metrics.OutcomeDeadLettered).Inc()
	return true
}
