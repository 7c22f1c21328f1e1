package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
)

func (r *repo) ListChecklist(ctx context.Context, appointmentID string) ([]model.ChecklistItem, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, appointment_id, title, sort_order, completed_at, completed_by_id, created_at
		FROM checklist_items
		WHERE appointment_id = ?
		ORDER BY sort_order, created_at
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.ChecklistItem
	for rows.Next() {
		item, err := storage.ScanChecklistItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *repo) DeleteChecklist(ctx context.Context, appointmentID string) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM checklist_items WHERE appointment_id = ?`, appointmentID)
	return err
}

func (r *repo) InsertChecklistItem(ctx context.Context, item *model.ChecklistItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO checklist_items (id, appointment_id, title, sort_order, completed_at, completed_by_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.AppointmentID, item.Title, item.SortOrder, item.CompletedAt, item.CompletedByID, item.CreatedAt)
	return mapErr(err)
}

func (r *repo) GetChecklistItem(ctx context.Context, ownerID, itemID string) (model.ChecklistItem, error) {
	row := r.tx.QueryRowContext(ctx, `
		SELECT c.id, c.appointment_id, c.title, c.sort_order, c.completed_at, c.completed_by_id, c.created_at
		FROM checklist_items c
		JOIN appointments a ON a.id = c.appointment_id
		WHERE c.id = ? AND a.owner_id = ?
	`, itemID, ownerID)
	item, err := storage.ScanChecklistItem(row)
	if err != nil {
		return model.ChecklistItem{}, mapErr(err)
	}
	return item, nil
}

func (r *repo) SetChecklistCompletion(ctx context.Context, itemID string, completedAt *time.Time, completedByID *string) error {
	res, err := r.tx.ExecContext(ctx, `
		UPDATE checklist_items
		SET completed_at = ?, completed_by_id = ?
		WHERE id = ?
	`, completedAt, completedByID, itemID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
