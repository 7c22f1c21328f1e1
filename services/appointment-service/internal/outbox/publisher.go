// Package outbox records appointment events transactionally and relays them to Kafka.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/visitbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/visitbook/libs/otel"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	store     storage.Store
	writer    MessageWriter
	logger    *slog.Logger
	pollEvery time.Duration
	batchSize int
}

type PublisherConfig struct {
	PollEvery time.Duration
	BatchSize int
}

// NewPublisher returns a publisher; a nil writer disables publishing.
func NewPublisher(store storage.Store, writer MessageWriter, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		store:     store,
		writer:    writer,
		logger:    logger,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if p.writer == nil {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil {
				p.logger.Error("outbox publish failed", "err", err)
			}
		}
	}
}

// PublishBatch relays up to one batch of unpublished events and marks them published in
// the same transaction. A write failure leaves the whole batch for the next tick.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	published := 0
	err := p.store.WithTx(ctx, func(repo storage.Repo) error {
		records, err := repo.FetchUnpublished(ctx, p.batchSize)
		if err != nil || len(records) == 0 {
			return err
		}

		msgs := make([]kafka.Message, 0, len(records))
		ids := make([]int64, 0, len(records))
		for _, r := range records {
			msgCtx := otelx.TraceContext{Parent: r.Traceparent, State: r.Tracestate}.Restore(ctx)
			meta := kafkax.EventMeta{EventID: r.EventID, EventType: r.EventType, TenantID: r.OwnerID}
			msgs = append(msgs, kafka.Message{
				Topic:   r.EventType,
				Key:     []byte(r.AggregateID),
				Value:   r.Payload,
				Headers: kafkax.InjectTraceHeaders(msgCtx, meta.Headers()),
			})
			ids = append(ids, r.ID)
		}
		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			return err
		}
		if err := repo.MarkPublished(ctx, ids); err != nil {
			return err
		}
		published = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}
