// Package ledger keeps revenue entries in step with completed appointments.
package ledger

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
	"github.com/shopspring/decimal"
)

// Synchronizer is stateless; every method runs inside the caller's unit of work.
type Synchronizer struct{}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// UpsertRevenue records the REVENUE entry for an appointment. A new entry starts PENDING;
// an existing one only has its amount and due date refreshed.
func (s *Synchronizer) UpsertRevenue(ctx context.Context, repo storage.LedgerRepo, appointmentID, ownerID string, amount decimal.Decimal, dueDate time.Time) (model.RevenueTransaction, error) {
	tx := model.RevenueTransaction{
		OwnerID:       ownerID,
		AppointmentID: appointmentID,
		Type:          model.TransactionRevenue,
		Status:        model.TransactionPending,
		Amount:        amount,
		DueDate:       model.NormalizeDay(dueDate),
	}
	if err := repo.UpsertTransaction(ctx, &tx); err != nil {
		return model.RevenueTransaction{}, err
	}
	return tx, nil
}

// RetractPending removes the appointment's PENDING entries of any type. PAID entries
// need a manual correction and are left alone.
func (s *Synchronizer) RetractPending(ctx context.Context, repo storage.LedgerRepo, ownerID, appointmentID string) (int64, error) {
	return repo.DeletePendingTransactions(ctx, ownerID, appointmentID)
}

// MarkPaid settles every PENDING entry of the appointment at the given instant.
func (s *Synchronizer) MarkPaid(ctx context.Context, repo storage.LedgerRepo, ownerID, appointmentID string, at time.Time) (int64, error) {
	return repo.MarkTransactionsPaid(ctx, ownerID, appointmentID, at)
}

func (s *Synchronizer) List(ctx context.Context, repo storage.LedgerRepo, ownerID, appointmentID string) ([]model.RevenueTransaction, error) {
	return repo.ListTransactions(ctx, ownerID, appointmentID)
}
