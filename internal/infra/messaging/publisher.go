package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"booking-engine/internal/infra/db"
	"booking-engine/internal/infra/repository"
	"booking-engine/internal/pkg/clock"
	"booking-engine/internal/pkg/config"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxPublishAttempts = 10
	retryDelay         = 30 * time.Second
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TxRunner runs fn inside a read-committed transaction.
type TxRunner interface {
	WithinReadCommitted(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error
}

// Publisher drains notification_jobs to Kafka. A failed publish only
// reschedules the job; booking state is never touched.
type Publisher struct {
	tx        TxRunner
	writer    MessageWriter
	clock     clock.Clock
	logger    *slog.Logger
	pollEvery time.Duration
	batchSize int
	tracer    trace.Tracer
}

func NewKafkaWriter(cfg config.KafkaConfig) MessageWriter {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return nil
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func NewPublisher(tx TxRunner, writer MessageWriter, clk clock.Clock, cfg config.KafkaConfig, logger *slog.Logger) *Publisher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		tx:        tx,
		writer:    writer,
		clock:     clk,
		logger:    logger,
		pollEvery: cfg.PollInterval,
		batchSize: cfg.BatchSize,
		tracer:    otel.Tracer("booking-engine/outbox"),
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if p.writer == nil {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.logger.Warn("failed to close kafka writer", "error", err.Error())
		}
	}()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil {
				p.logger.Error("outbox publish failed", "error", err.Error())
			}
		}
	}
}

// PublishBatch publishes one batch of due jobs and returns how many were sent.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	sent := 0
	err := p.tx.WithinReadCommitted(ctx, func(ctx context.Context, dbtx db.DBTX) error {
		repo := repository.NewNotificationRepository(dbtx, p.logger)
		now := p.clock.Now()
		jobs, err := repo.ClaimDue(ctx, now, p.batchSize)
		if err != nil || len(jobs) == 0 {
			return err
		}

		msgs := make([]kafka.Message, 0, len(jobs))
		ids := make([]uuid.UUID, 0, len(jobs))
		for _, j := range jobs {
			msgs = append(msgs, p.message(ctx, j))
			ids = append(ids, j.ID)
		}

		ctx, span := p.tracer.Start(ctx, "outbox.publish", trace.WithAttributes(attribute.Int("batch.size", len(msgs))))
		defer span.End()

		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			span.RecordError(err)
			p.logger.Warn("kafka write failed, rescheduling jobs", "jobs", len(ids), "error", err.Error())
			return repo.MarkRetry(ctx, ids, err.Error(), now.Add(retryDelay), maxPublishAttempts)
		}
		sent = len(ids)
		return repo.MarkSent(ctx, ids, now)
	})
	return sent, err
}

func (p *Publisher) message(ctx context.Context, j repository.NotificationJob) kafka.Message {
	msg := kafka.Message{
		Topic: j.Topic,
		Key:   aggregateKey(j.Payload, j.ID),
		Value: j.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(j.ID.String())},
			{Key: "event_type", Value: []byte(j.Kind)},
		},
	}
	msg.Headers = InjectTraceHeaders(ctx, msg.Headers)
	return msg
}

// aggregateKey keys messages by booking so one booking's events stay ordered
// within a partition.
func aggregateKey(payload []byte, fallback uuid.UUID) []byte {
	var body struct {
		BookingID string `json:"booking_id"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.BookingID != "" {
		return []byte(body.BookingID)
	}
	return []byte(fallback.String())
}
