package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/shopspring/decimal"
)

// Row is satisfied by both pgx.Row and *sql.Row / *sql.Rows.
type Row interface {
	Scan(dest ...any) error
}

// ScanAppointment reads the canonical appointment column list. Backends select dates,
// amounts and the checklist snapshot as text so one scanner serves both.
//
//	id, owner_id, customer_id, assigned_helper_id, appointment_date, start_time, end_time,
//	estimated_duration_minutes, price, helper_fee, status, started_at, finished_at,
//	is_recurring, recurrence_rule, recurrence_series_id, notes, checklist_snapshot,
//	invoice_token, invoice_number, invoice_sent_at, created_at, updated_at, series_anchor_date
func ScanAppointment(row Row) (model.Appointment, error) {
	var (
		appt     model.Appointment
		day      string
		price    string
		fee      *string
		status   string
		snapshot *string
		anchor   *string
	)
	err := row.Scan(
		&appt.ID,
		&appt.OwnerID,
		&appt.CustomerID,
		&appt.AssignedHelperID,
		&day,
		&appt.StartTime,
		&appt.EndTime,
		&appt.EstimatedDurationMinutes,
		&price,
		&fee,
		&status,
		&appt.StartedAt,
		&appt.FinishedAt,
		&appt.IsRecurring,
		&appt.RecurrenceRule,
		&appt.RecurrenceSeriesID,
		&appt.Notes,
		&snapshot,
		&appt.InvoiceToken,
		&appt.InvoiceNumber,
		&appt.InvoiceSentAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
		&anchor,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.Status(status)
	if appt.Date, err = model.ParseDay(day); err != nil {
		return model.Appointment{}, err
	}
	if anchor != nil {
		if appt.SeriesAnchorDate, err = model.ParseDay(*anchor); err != nil {
			return model.Appointment{}, fmt.Errorf("appointment %s series anchor date: %w", appt.ID, err)
		}
	}
	if appt.Price, err = decimal.NewFromString(price); err != nil {
		return model.Appointment{}, fmt.Errorf("appointment %s price: %w", appt.ID, err)
	}
	if fee != nil {
		d, err := decimal.NewFromString(*fee)
		if err != nil {
			return model.Appointment{}, fmt.Errorf("appointment %s helper fee: %w", appt.ID, err)
		}
		appt.HelperFee = decimal.NewNullDecimal(d)
	}
	if appt.ChecklistSnapshot, err = DecodeSnapshot(snapshot); err != nil {
		return model.Appointment{}, fmt.Errorf("appointment %s checklist snapshot: %w", appt.ID, err)
	}
	return appt, nil
}

//	id, appointment_id, title, sort_order, completed_at, completed_by_id, created_at
func ScanChecklistItem(row Row) (model.ChecklistItem, error) {
	var item model.ChecklistItem
	err := row.Scan(
		&item.ID,
		&item.AppointmentID,
		&item.Title,
		&item.SortOrder,
		&item.CompletedAt,
		&item.CompletedByID,
		&item.CreatedAt,
	)
	return item, err
}

//	id, owner_id, appointment_id, type, status, amount, due_date, paid_at, created_at, updated_at
func ScanTransaction(row Row) (model.RevenueTransaction, error) {
	var (
		tx            model.RevenueTransaction
		appointmentID *string
		txType        string
		status        string
		amount        string
		due           string
	)
	err := row.Scan(
		&tx.ID,
		&tx.OwnerID,
		&appointmentID,
		&txType,
		&status,
		&amount,
		&due,
		&tx.PaidAt,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return model.RevenueTransaction{}, err
	}
	if appointmentID != nil {
		tx.AppointmentID = *appointmentID
	}
	tx.Type = model.TransactionType(txType)
	tx.Status = model.TransactionStatus(status)
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return model.RevenueTransaction{}, fmt.Errorf("transaction %s amount: %w", tx.ID, err)
	}
	if tx.DueDate, err = model.ParseDay(due); err != nil {
		return model.RevenueTransaction{}, err
	}
	return tx, nil
}

// Money renders an amount the way both backends store it.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func NullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := Money(d.Decimal)
	return &s
}

// NullDay stores a zero day as NULL.
func NullDay(day time.Time) *string {
	if day.IsZero() {
		return nil
	}
	s := model.DayString(day)
	return &s
}

func NullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// EncodeSnapshot stores nil as NULL and anything else, including an empty list, as JSON.
func EncodeSnapshot(titles []string) (*string, error) {
	if titles == nil {
		return nil, nil
	}
	raw, err := json.Marshal(titles)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}

func DecodeSnapshot(raw *string) ([]string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	var titles []string
	if err := json.Unmarshal([]byte(*raw), &titles); err != nil {
		return nil, err
	}
	return titles, nil
}
