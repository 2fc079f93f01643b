package repository

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "gatepass/internal/errors"
	"gatepass/internal/models"
)

// Persisted collections. transactions is the primary; payments mirrors it for
// payment-centric reads, checkouts for session-centric reads. schedules holds
// the derived entries behind the ticket-wallet view.
const (
	CollectionTransactions = "transactions"
	CollectionPayments     = "payments"
	CollectionCheckouts    = "checkouts"
	CollectionSchedules    = "schedules"
)

// TransactionWriter commits materialized transaction records across the
// primary and mirror collections in a single atomic batch.
type TransactionWriter struct {
	store Store
}

func NewTransactionWriter(store Store) *TransactionWriter {
	return &TransactionWriter{store: store}
}

// Commit persists the record. The batch merges into transactions and
// payments, merges into checkouts when the session id is known, and creates a
// schedule entry for payment-origin records. A partially applied batch is
// never observable: the store applies all writes in one transaction or none.
// Any store failure surfaces as the retryable commit-failed condition.
func (w *TransactionWriter) Commit(ctx context.Context, record *models.TransactionRecord) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction record: %w", err)
	}

	writes := []Write{
		{Key: Key{CollectionTransactions, record.TransactionID}, Doc: doc, Mode: ModeMerge},
		{Key: Key{CollectionPayments, record.TransactionID}, Doc: doc, Mode: ModeMerge},
	}

	if record.SessionID != "" {
		writes = append(writes, Write{
			Key:  Key{CollectionCheckouts, record.SessionID},
			Doc:  doc,
			Mode: ModeMerge,
		})
	}

	if record.Origin == models.OriginPayment {
		entry, err := json.Marshal(scheduleFromRecord(record))
		if err != nil {
			return fmt.Errorf("failed to marshal schedule entry: %w", err)
		}
		writes = append(writes, Write{
			Key:  Key{CollectionSchedules, record.TransactionID},
			Doc:  entry,
			Mode: ModeCreate,
		})
	}

	if err := w.store.Apply(ctx, writes); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrCommitFailed, err)
	}

	return nil
}

// ApplyFailure merges a failure patch onto an existing record. Only the
// status and failure fields are touched, so earlier success data survives.
func (w *TransactionWriter) ApplyFailure(ctx context.Context, intentID string, failure *models.FailureInfo) error {
	patch, err := json.Marshal(struct {
		Status  string              `json:"status"`
		Failure *models.FailureInfo `json:"failure"`
	}{
		Status:  models.StatusFailed,
		Failure: failure,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal failure patch: %w", err)
	}

	writes := []Write{
		{Key: Key{CollectionTransactions, intentID}, Doc: patch, Mode: ModeMerge},
		{Key: Key{CollectionPayments, intentID}, Doc: patch, Mode: ModeMerge},
	}

	if err := w.store.Apply(ctx, writes); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrCommitFailed, err)
	}

	return nil
}

// GetTransaction reads back the primary record, or nil when absent.
func (w *TransactionWriter) GetTransaction(ctx context.Context, intentID string) (*models.TransactionRecord, error) {
	doc, err := w.store.Get(ctx, Key{CollectionTransactions, intentID})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	var record models.TransactionRecord
	if err := json.Unmarshal(doc, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction %s: %w", intentID, err)
	}

	return &record, nil
}

func scheduleFromRecord(record *models.TransactionRecord) *models.ScheduleEntry {
	entry := &models.ScheduleEntry{
		TransactionID: record.TransactionID,
		Link:          "/account/tickets/" + record.TransactionID,
	}

	if ed := record.EventDetails; ed != nil {
		entry.EventID = ed.EventID
		entry.Name = ed.EventTitle
		entry.Location = ed.EventLocation
		entry.Date = ed.EventDate
		entry.Time = ed.EventTime
		entry.Image = ed.EventImage
	}

	return entry
}
