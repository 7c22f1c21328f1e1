package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
)

const transactionColumns = `id, owner_id, appointment_id, type, status, amount, due_date, paid_at, created_at, updated_at`

func (r *repo) UpsertTransaction(ctx context.Context, tx *model.RevenueTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO revenue_transactions
			(id, owner_id, appointment_id, type, status, amount, due_date, paid_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (appointment_id, type) DO UPDATE
		SET amount = excluded.amount,
			due_date = excluded.due_date,
			updated_at = excluded.updated_at
	`, tx.ID, tx.OwnerID, storage.NullString(tx.AppointmentID), string(tx.Type), string(tx.Status),
		storage.Money(tx.Amount), model.DayString(tx.DueDate), tx.PaidAt, now, now)
	if err != nil {
		return mapErr(err)
	}
	// Column declared types are lost on RETURNING, so the stored row is read back.
	row := r.tx.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM revenue_transactions
		WHERE appointment_id = ? AND type = ?
	`, tx.AppointmentID, string(tx.Type))
	stored, err := storage.ScanTransaction(row)
	if err != nil {
		return mapErr(err)
	}
	*tx = stored
	return nil
}

func (r *repo) DeletePendingTransactions(ctx context.Context, ownerID, appointmentID string) (int64, error) {
	res, err := r.tx.ExecContext(ctx, `
		DELETE FROM revenue_transactions
		WHERE owner_id = ? AND appointment_id = ? AND status = 'PENDING'
	`, ownerID, appointmentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repo) ListTransactions(ctx context.Context, ownerID, appointmentID string) ([]model.RevenueTransaction, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM revenue_transactions
		WHERE owner_id = ? AND appointment_id = ?
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
	res, err := r.tx.ExecContext(ctx, `
		UPDATE revenue_transactions
		SET status = 'PAID', paid_at = ?, updated_at = ?
		WHERE owner_id = ? AND appointment_id = ? AND status = 'PENDING'
	`, at.UTC(), time.Now().UTC(), ownerID, appointmentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
