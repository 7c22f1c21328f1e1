package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
)

const appointmentColumns = `
	id, owner_id, customer_id, assigned_helper_id, appointment_date::text, start_time, end_time,
	estimated_duration_minutes, price::text, helper_fee::text, status, started_at, finished_at,
	is_recurring, COALESCE(recurrence_rule, ''), COALESCE(recurrence_series_id, ''), notes,
	checklist_snapshot::text, COALESCE(invoice_token, ''), COALESCE(invoice_number, ''),
	invoice_sent_at, created_at, updated_at, series_anchor_date::text`

const insertAppointmentSQL = `
	INSERT INTO appointments
		(id, owner_id, customer_id, assigned_helper_id, appointment_date, start_time, end_time,
		estimated_duration_minutes, price, helper_fee, status, started_at, finished_at,
		is_recurring, recurrence_rule, recurrence_series_id, notes, checklist_snapshot,
		invoice_token, invoice_number, invoice_sent_at, created_at, updated_at, series_anchor_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		$19, $20, $21, $22, $23, $24)`

func (r *repo) InsertAppointment(ctx context.Context, appt *model.Appointment) error {
	args, err := insertArgs(appt)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, insertAppointmentSQL, args...)
	return mapErr(err)
}

func (r *repo) InsertOccurrence(ctx context.Context, appt *model.Appointment) (bool, error) {
	args, err := insertArgs(appt)
	if err != nil {
		return false, err
	}
	tag, err := r.tx.Exec(ctx, insertAppointmentSQL+` ON CONFLICT DO NOTHING`, args...)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
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
		jsonArg(snapshot),
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
	tag, err := r.tx.Exec(ctx, `
		UPDATE appointments
		SET customer_id = $3,
			assigned_helper_id = $4,
			appointment_date = $5,
			start_time = $6,
			end_time = $7,
			estimated_duration_minutes = $8,
			price = $9,
			helper_fee = $10,
			status = $11,
			started_at = $12,
			finished_at = $13,
			is_recurring = $14,
			recurrence_rule = $15,
			recurrence_series_id = $16,
			notes = $17,
			checklist_snapshot = $18,
			invoice_token = $19,
			invoice_number = $20,
			invoice_sent_at = $21,
			updated_at = $22
		WHERE id = $1 AND owner_id = $2
	`, appt.ID, appt.OwnerID, appt.CustomerID, appt.AssignedHelperID, model.DayString(appt.Date),
		appt.StartTime, appt.EndTime, appt.EstimatedDurationMinutes, storage.Money(appt.Price),
		storage.NullMoney(appt.HelperFee), string(appt.Status), appt.StartedAt, appt.FinishedAt,
		appt.IsRecurring, storage.NullString(appt.RecurrenceRule), storage.NullString(appt.RecurrenceSeriesID),
		appt.Notes, jsonArg(snapshot), storage.NullString(appt.InvoiceToken), storage.NullString(appt.InvoiceNumber),
		appt.InvoiceSentAt, appt.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *repo) GetAppointment(ctx context.Context, ownerID, id string) (model.Appointment, error) {
	return r.getAppointment(ctx, ownerID, id, "")
}

func (r *repo) GetAppointmentForUpdate(ctx context.Context, ownerID, id string) (model.Appointment, error) {
	return r.getAppointment(ctx, ownerID, id, "FOR UPDATE")
}

func (r *repo) getAppointment(ctx context.Context, ownerID, id, lock string) (model.Appointment, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND owner_id = $2
		`+lock, id, ownerID)
	appt, err := storage.ScanAppointment(row)
	if err != nil {
		return model.Appointment{}, mapErr(err)
	}
	return appt, nil
}

func (r *repo) ListAppointments(ctx context.Context, ownerID string, filter storage.AppointmentFilter) ([]model.Appointment, error) {
	where := []string{"owner_id = $1", "appointment_date >= $2", "appointment_date < $3"}
	args := []any{ownerID, model.DayString(filter.From), model.DayString(filter.To)}
	if filter.HelperID != "" {
		args = append(args, filter.HelperID)
		where = append(where, fmt.Sprintf("assigned_helper_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	return r.queryAppointments(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY appointment_date, start_time, created_at`, args...)
}

func (r *repo) SlotTaken(ctx context.Context, ownerID, customerID string, day time.Time, startTime string) (bool, error) {
	var taken bool
	err := r.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE owner_id = $1 AND customer_id = $2 AND appointment_date = $3 AND start_time = $4
		)
	`, ownerID, customerID, model.DayString(day), startTime).Scan(&taken)
	return taken, err
}

func (r *repo) ListSeries(ctx context.Context, ownerID, seriesID string) ([]model.Appointment, error) {
	return r.queryAppointments(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE owner_id = $1 AND (recurrence_series_id = $2 OR id = $2)
		ORDER BY appointment_date, start_time, created_at`, ownerID, seriesID)
}

func (r *repo) MatchSeries(ctx context.Context, ownerID string, match storage.SeriesMatch) ([]model.Appointment, error) {
	where := []string{"owner_id = $1", "customer_id = $2", "start_time = $3", "recurrence_series_id IS NULL"}
	args := []any{ownerID, match.CustomerID, match.StartTime}
	add := func(column string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if match.RecurrenceRule != nil {
		add("recurrence_rule", *match.RecurrenceRule)
	}
	if match.Price != nil {
		add("price", storage.Money(*match.Price))
	}
	if match.Notes != nil {
		add("notes", *match.Notes)
	}
	if match.IsRecurring != nil {
		add("is_recurring", *match.IsRecurring)
	}
	return r.queryAppointments(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY appointment_date, start_time`, args...)
}

// LockSeries takes a transaction-scoped advisory lock keyed by tenant and series.
func (r *repo) LockSeries(ctx context.Context, ownerID, seriesID string) error {
	_, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ownerID+":"+seriesID)
	return err
}

func (r *repo) DeleteAppointments(ctx context.Context, ownerID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.tx.Exec(ctx, `
		DELETE FROM appointments
		WHERE owner_id = $1 AND id = ANY($2)
	`, ownerID, ids)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

func (r *repo) queryAppointments(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.tx.Query(ctx, query, args...)
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

// jsonArg passes already-encoded JSON as raw bytes so the jsonb codec does not marshal
// it a second time.
func jsonArg(raw *string) any {
	if raw == nil {
		return nil
	}
	return []byte(*raw)
}
