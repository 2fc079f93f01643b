package consumers

import (
	"context"
	"log/slog"

	"gatepass/internal/config"
	"gatepass/internal/database"
	"gatepass/internal/external"
	"gatepass/internal/messaging"
	"gatepass/internal/qr"
	"gatepass/internal/repository"
	"gatepass/internal/service"
)

type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(); err != nil {
		return nil, err
	}

	// Connect to NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	// The worker shares the materialization path with the API so a
	// session-lookup or QR failure can be re-attempted from scratch.
	stripeClient := external.NewStripeClient(cfg.Stripe)
	writer := repository.NewTransactionWriter(repository.NewDocumentStore(db))
	transactions := service.NewTransactionService(stripeClient, qr.NewGenerator(), writer, natsClient)

	handlers := NewHandlers(writer, transactions, natsClient, cfg.RetryMaxAttempts)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		handlers: handlers,
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting retry queue consumer...")

	_, err := cs.nats.SubscribeQueue(messaging.SubjectRetry, messaging.QueueGroup, cs.handlers.HandleRetryJob)
	if err != nil {
		return err
	}

	slog.Info("Retry queue consumer started")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
