package sqlite

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
)

func (r *repo) InsertOutboxEvent(ctx context.Context, evt storage.OutboxEvent) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO outbox_events (event_id, owner_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, evt.EventID, evt.OwnerID, evt.AggregateType, evt.AggregateID, evt.EventType, evt.Payload,
		evt.Traceparent, evt.Tracestate, time.Now().UTC())
	return mapErr(err)
}

func (r *repo) FetchUnpublished(ctx context.Context, limit int) ([]storage.OutboxRecord, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, event_id, owner_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []storage.OutboxRecord
	for rows.Next() {
		var rcd storage.OutboxRecord
		if err := rows.Scan(&rcd.ID, &rcd.EventID, &rcd.OwnerID, &rcd.AggregateType, &rcd.AggregateID, &rcd.EventType,
			&rcd.Payload, &rcd.Traceparent, &rcd.Tracestate, &rcd.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func (r *repo) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, time.Now().UTC())
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := r.tx.ExecContext(ctx, `
		UPDATE outbox_events
		SET published_at = ?
		WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	return err
}
