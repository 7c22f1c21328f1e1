package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/md-rashed-zaman/visitbook/libs/kafkax"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage/storagetest"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func recordEvents(t *testing.T, store storage.Store, n int) {
	t.Helper()
	ctx := context.Background()
	appt := model.Appointment{
		ID:            "appt-1",
		OwnerID:       "owner-1",
		CustomerID:    "cust-1",
		Date:          model.NormalizeDay(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)),
		StartTime:     "09:00",
		Price:         decimal.NewFromInt(100),
		HelperFee:     decimal.NewNullDecimal(decimal.NewFromInt(25)),
		Status:        model.StatusCompleted,
		InvoiceNumber: "INV-20240101-ABCDEF12",
	}
	require.NoError(t, store.WithTx(ctx, func(repo storage.Repo) error {
		for i := 0; i < n; i++ {
			if err := Record(ctx, repo, AppointmentCompleted, appt, time.Now()); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestPublishBatchRelaysAndMarksEvents(t *testing.T) {
	store := storagetest.Open(t)
	recordEvents(t, store, 3)
	writer := &recordingWriter{}
	p := NewPublisher(store, writer, discardLogger(), PublisherConfig{BatchSize: 2})

	n, err := p.PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = p.PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = p.PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	require.Len(t, writer.msgs, 3)
	msg := writer.msgs[0]
	assert.Equal(t, AppointmentCompleted, msg.Topic)
	assert.Equal(t, "appt-1", string(msg.Key))
	assert.Equal(t, AppointmentCompleted, kafkax.HeaderValue(msg.Headers, "event_type"))
	assert.Equal(t, "owner-1", kafkax.HeaderValue(msg.Headers, "tenant_id"))
	assert.NotEmpty(t, kafkax.HeaderValue(msg.Headers, "event_id"))

	var payload AppointmentPayload
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "2024-01-01", payload.Date)
	assert.Equal(t, "25.00", payload.HelperFee)
	assert.Equal(t, "INV-20240101-ABCDEF12", payload.InvoiceNumber)
}

func TestPublishBatchKeepsEventsWhenKafkaFails(t *testing.T) {
	store := storagetest.Open(t)
	recordEvents(t, store, 2)
	writer := &recordingWriter{err: errors.New("broker unavailable")}
	p := NewPublisher(store, writer, discardLogger(), PublisherConfig{})

	_, err := p.PublishBatch(context.Background())
	require.Error(t, err)

	writer.err = nil
	n, err := p.PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunWithoutWriterReturnsImmediately(t *testing.T) {
	store := storagetest.Open(t)
	p := NewPublisher(store, nil, discardLogger(), PublisherConfig{})
	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return without a writer")
	}
}
