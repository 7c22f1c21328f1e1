package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
)

const appointmentColumns = `
	id, owner_id, customer_id, assigned_helper_id, appointment_date, start_time, end_time,
	estimated_duration_minutes, price, helper_fee, status, started_at, finished_at,
	is_recurring, COALESCE(recurrence_rule, ''), COALESCE(recurrence_series_id, ''), notes,
	checklist_snapshot, COALESCE(invoice_token, ''), COALESCE(invoice_number, ''),
	invoice_sent_at, created_at, updated_at, series_anchor_date`

const insertAppointmentSQL = `
	INSERT INTO appointments
		(id, owner_id, customer_id, assigned_helper_id, appointment_date, start_time, end_time,
		estimated_duration_minutes, price, helper_fee, status, started_at, finished_at,
		is_recurring, recurrence_rule, recurrence_series_id, notes, checklist_snapshot,
		invoice_token, invoice_number, invoice_sent_at, created_at, updated_at, series_anchor_date)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (r *repo) InsertAppointment(ctx context.Context, appt *model.Appointment) error {
	args, err := insertArgs(appt)
	if err != nil {
		return err
	}
	_, err = r.tx.ExecContext(ctx, insertAppointmentSQL, args...)
	return mapErr(err)
}

func (r *repo) InsertOccurrence(ctx context.Context, appt *model.Appointment) (bool, error) {
	args, err := insertArgs(appt)
	if err != nil {
		return false, err
	}
	res, err := r.tx.ExecContext(ctx, insertAppointmentSQL+` ON CONFLICT DO NOTHING`, args...)
	if err != nil {
		return false, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func insertArgs(appt *model.Appointment) ([]any, error) {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	appt.UpdatedAt = appt.CreatedAt
	snapshot, err := storage.EncodeSnapshot(appt.ChecklistSnapshot)
	if err != nil {
		return nil, err
	}
	return []any{
		appt.ID,
		appt.OwnerID,
		appt.CustomerID,
		appt.AssignedHelperID,
		model.DayString(appt.Date),
		appt.StartTime,
		appt.EndTime,
		appt.EstimatedDurationMinutes,
		storage.Money(appt.Price),
		storage.NullMoney(appt.HelperFee),
		string(appt.Status),
		appt.StartedAt,
		appt.FinishedAt,
		appt.IsRecurring,
		storage.NullString(appt.RecurrenceRule),
		storage.NullString(appt.RecurrenceSeriesID),
		appt.Notes,
		snapshot,
		storage.NullString(appt.InvoiceToken),
		storage.NullString(appt.InvoiceNumber),
		appt.InvoiceSentAt,
		appt.CreatedAt,
		appt.UpdatedAt,
		storage.NullDay(appt.SeriesAnchorDate),
	}, nil
}

func (r *repo) UpdateAppointment(ctx context.Context, appt *model.Appointment) error {
	snapshot, err := storage.EncodeSnapshot(appt.ChecklistSnapshot)
	if err != nil {
		return err
	}
	appt.UpdatedAt = time.Now().UTC()
	res, err := r.tx.ExecContext(ctx, `
		UPDATE appointments
		SET customer_id = ?,
			assigned_helper_id = ?,
			appointment_date = ?,
			start_time = ?,
			end_time = ?,
			estimated_duration_minutes = ?,
			price = ?,
			helper_fee = ?,
			status = ?,
			started_at = ?,
			finished_at = ?,
			is_recurring = ?,
			recurrence_rule = ?,
			recurrence_series_id = ?,
			notes = ?,
			checklist_snapshot = ?,
			invoice_token = ?,
			invoice_number = ?,
			invoice_sent_at = ?,
			updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, appt.CustomerID, appt.AssignedHelperID, model.DayString(appt.Date), appt.StartTime, appt.EndTime,
		appt.EstimatedDurationMinutes, storage.Money(appt.Price), storage.NullMoney(appt.HelperFee),
		string(appt.Status), appt.StartedAt, appt.FinishedAt, appt.IsRecurring,
		storage.NullString(appt.RecurrenceRule), storage.NullString(appt.RecurrenceSeriesID), appt.Notes,
		snapshot, storage.NullString(appt.InvoiceToken), storage.NullString(appt.InvoiceNumber),
		appt.InvoiceSentAt, appt.UpdatedAt, appt.ID, appt.OwnerID)
	if err != nil {
		return mapErr(err)
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

func (r *repo) GetAppointment(ctx context.Context, ownerID, id string) (model.Appointment, error) {
	row := r.tx.QueryRowContext(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = ? AND owner_id = ?`, id, ownerID)
	appt, err := storage.ScanAppointment(row)
	if err != nil {
		return model.Appointment{}, mapErr(err)
	}
	return appt, nil
}

// GetAppointmentForUpdate needs no row lock: the IMMEDIATE transaction already holds
// the database write lock.
func (r *repo) GetAppointmentForUpdate(ctx context.Context, ownerID, id string) (model.Appointment, error) {
	return r.GetAppointment(ctx, ownerID, id)
}

func (r *repo) ListAppointments(ctx context.Context, ownerID string, filter storage.AppointmentFilter) ([]model.Appointment, error) {
	where := []string{"owner_id = ?", "appointment_date >= ?", "appointment_date < ?"}
	args := []any{ownerID, model.DayString(filter.From), model.DayString(filter.To)}
	if filter.HelperID != "" {
		where = append(where, "assigned_helper_id = ?")
		args = append(args, filter.HelperID)
	}
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, s := range filter.Statuses {
			args = append(args, string(s))
		}
	}
	return r.queryAppointments(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY appointment_date, start_time, created_at`, args...)
}

func (r *repo) SlotTaken(ctx context.Context, ownerID, customerID string, day time.Time, startTime string) (bool, error) {
	var taken bool
	err := r.tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE owner_id = ? AND customer_id = ? AND appointment_date = ? AND start_time = ?
		)
	`, ownerID, customerID, model.DayString(day), startTime).Scan(&taken)
	return taken, err
}

func (r *repo) ListSeries(ctx context.Context, ownerID, seriesID string) ([]model.Appointment, error) {
	return r.queryAppointments(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE owner_id = ? AND (recurrence_series_id = ? OR id = ?)
		ORDER BY appointment_date, start_time, created_at`, ownerID, seriesID, seriesID)
}

func (r *repo) MatchSeries(ctx context.Context, ownerID string, match storage.SeriesMatch) ([]model.Appointment, error) {
	where := []string{"owner_id = ?", "customer_id = ?", "start_time = ?", "recurrence_series_id IS NULL"}
	args := []any{ownerID, match.CustomerID, match.StartTime}
	if match.RecurrenceRule != nil {
		where = append(where, "recurrence_rule = ?")
		args = append(args, *match.RecurrenceRule)
	}
	if match.Price != nil {
		where = append(where, "price = ?")
		args = append(args, storage.Money(*match.Price))
	}
	if match.Notes != nil {
		where = append(where, "notes = ?")
		args = append(args, *match.Notes)
	}
	if match.IsRecurring != nil {
		where = append(where, "is_recurring = ?")
		args = append(args, *match.IsRecurring)
	}
	return r.queryAppointments(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY appointment_date, start_time`, args...)
}

// LockSeries is a no-op: the IMMEDIATE transaction already serializes writers.
func (r *repo) LockSeries(context.Context, string, string) error {
	return nil
}

func (r *repo) DeleteAppointments(ctx context.Context, ownerID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, ownerID)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := r.tx.ExecContext(ctx, `
		DELETE FROM appointments
		WHERE owner_id = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

func (r *repo) queryAppointments(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := storage.ScanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}
