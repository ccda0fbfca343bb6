//go:build integration

package messaging_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"booking-engine/internal/infra/messaging"
	"booking-engine/internal/infra/repository"
	"booking-engine/internal/infra/uow"
	"booking-engine/internal/pkg/clock"
	"booking-engine/internal/pkg/config"
	"booking-engine/tests/common/builder"
	"booking-engine/tests/common/containers"
	"booking-engine/tests/common/dbtest"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/suite"
)

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

type PublisherIntegrationSuite struct {
	suite.Suite
	pool   *pgxpool.Pool
	clock  *clock.MockClock
	writer *recordingWriter
	pub    *messaging.Publisher
}

func TestPublisherIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PublisherIntegrationSuite))
}

func (s *PublisherIntegrationSuite) SetupSuite() {
	s.pool, _ = containers.NewDatabase(s.T())
}

func (s *PublisherIntegrationSuite) SetupTest() {
	s.Require().NoError(dbtest.ResetDB(s.pool))
	logger := slog.New(slog.DiscardHandler)
	s.clock = clock.NewMockClock(builder.At(9, 0))
	s.writer = &recordingWriter{}
	cfg := config.KafkaConfig{BatchSize: 10, PollInterval: time.Second}
	s.pub = messaging.NewPublisher(uow.NewPostgresUoW(s.pool, uow.DefaultOptions(), logger), s.writer, s.clock, cfg, logger)
}

func (s *PublisherIntegrationSuite) enqueue(kind string, bookingID uuid.UUID, runAt time.Time) {
	repo := repository.NewNotificationRepository(s.pool, slog.New(slog.DiscardHandler))
	payload := []byte(`{"booking_id":"` + bookingID.String() + `","status":"HELD"}`)
	s.Require().NoError(repo.CreateJob(context.Background(), kind, "booking-events", payload, runAt))
}

func (s *PublisherIntegrationSuite) statuses() map[string]int {
	rows, err := s.pool.Query(context.Background(), `SELECT status, count(*) FROM notification_jobs GROUP BY status`)
	s.Require().NoError(err)
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		s.Require().NoError(rows.Scan(&status, &n))
		out[status] = n
	}
	return out
}

func (s *PublisherIntegrationSuite) TestPublishesDueJobsKeyedByBooking() {
	bookingID := uuid.New()
	s.enqueue("booking.held", bookingID, builder.At(8, 0))
	s.enqueue("booking.confirmed", bookingID, builder.At(8, 30))
	s.enqueue("booking.expired", uuid.New(), builder.At(10, 0)) // not due yet

	sent, err := s.pub.PublishBatch(context.Background())

	s.Require().NoError(err)
	s.Equal(2, sent)
	s.Require().Len(s.writer.msgs, 2)
	for _, m := range s.writer.msgs {
		s.Equal("booking-events", m.Topic)
		s.Equal(bookingID.String(), string(m.Key))
	}
	s.Equal("booking.held", messaging.HeaderValue(s.writer.msgs[0].Headers, "event_type"))
	s.Equal("booking.confirmed", messaging.HeaderValue(s.writer.msgs[1].Headers, "event_type"))
	s.Equal(map[string]int{"sent": 2, "queued": 1}, s.statuses())

	again, err := s.pub.PublishBatch(context.Background())
	s.Require().NoError(err)
	s.Zero(again)
}

func (s *PublisherIntegrationSuite) TestBrokerFailureReschedules() {
	s.enqueue("booking.held", uuid.New(), builder.At(8, 0))
	s.writer.err = errors.New("kafka: leader not available")

	sent, err := s.pub.PublishBatch(context.Background())

	s.Require().NoError(err)
	s.Zero(sent)
	s.Equal(map[string]int{"queued": 1}, s.statuses())

	var (
		attempts int
		runAt    time.Time
		lastErr  string
	)
	s.Require().NoError(s.pool.QueryRow(context.Background(),
		`SELECT attempts, run_at, last_error FROM notification_jobs`).Scan(&attempts, &runAt, &lastErr))
	s.Equal(1, attempts)
	s.True(runAt.After(s.clock.Now()))
	s.Contains(lastErr, "leader not available")

	// The broker recovers once the retry delay has passed.
	s.writer.err = nil
	s.clock.Add(time.Minute)
	sent, err = s.pub.PublishBatch(context.Background())
	s.Require().NoError(err)
	s.Equal(1, sent)
}
