package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
)

const transactionColumns = `id, owner_id, appointment_id, type, status, amount::text, due_date::text, paid_at, created_at, updated_at`

func (r *repo) UpsertTransaction(ctx context.Context, tx *model.RevenueTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	row := r.tx.QueryRow(ctx, `
		INSERT INTO revenue_transactions (id, owner_id, appointment_id, type, status, amount, due_date, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (appointment_id, type) DO UPDATE
		SET amount = EXCLUDED.amount,
			due_date = EXCLUDED.due_date,
			updated_at = now()
		RETURNING `+transactionColumns,
		tx.ID, tx.OwnerID, storage.NullString(tx.AppointmentID), string(tx.Type), string(tx.Status),
		storage.Money(tx.Amount), model.DayString(tx.DueDate), tx.PaidAt)
	stored, err := storage.ScanTransaction(row)
	if err != nil {
		return mapErr(err)
	}
	*tx = stored
	return nil
}

func (r *repo) DeletePendingTransactions(ctx context.Context, ownerID, appointmentID string) (int64, error) {
	tag, err := r.tx.Exec(ctx, `
		DELETE FROM revenue_transactions
		WHERE owner_id = $1 AND appointment_id = $2 AND status = 'PENDING'
	`, ownerID, appointmentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repo) ListTransactions(ctx context.Context, ownerID, appointmentID string) ([]model.RevenueTransaction, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM revenue_transactions
		WHERE owner_id = $1 AND appointment_id = $2
		ORDER BY type
	`, ownerID, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []model.RevenueTransaction
	for rows.Next() {
		tx, err := storage.ScanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return txs, nil
}

func (r *repo) MarkTransactionsPaid(ctx context.Context, ownerID, appointmentID string, at time.Time) (int64, error) {
	tag, err := r.tx.Exec(ctx, `
		UPDATE revenue_transactions
		SET status = 'PAID', paid_at = $3, updated_at = now()
		WHERE owner_id = $1 AND appointment_id = $2 AND status = 'PENDING'
	`, ownerID, appointmentID, at.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
