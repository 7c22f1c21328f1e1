package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	otelx "github.com/md-rashed-zaman/visitbook/libs/otel"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
)

// Event types double as Kafka topic names.
const (
	AppointmentCreated           = "appointment.created.v1"
	AppointmentCompleted         = "appointment.completed.v1"
	AppointmentCancelled         = "appointment.cancelled.v1"
	AppointmentDeleted           = "appointment.deleted.v1"
	AppointmentOccurrenceCreated = "appointment.occurrence.created.v1"
)

const aggregateAppointment = "appointment"

// AppointmentPayload is the JSON body shared by all appointment events.
type AppointmentPayload struct {
	AppointmentID string    `json:"appointment_id"`
	OwnerID       string    `json:"owner_id"`
	CustomerID    string    `json:"customer_id"`
	HelperID      string    `json:"helper_id,omitempty"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	Status        string    `json:"status"`
	SeriesID      string    `json:"series_id,omitempty"`
	Price         string    `json:"price"`
	HelperFee     string    `json:"helper_fee,omitempty"`
	InvoiceToken  string    `json:"invoice_token,omitempty"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewAppointmentEvent builds an outbox row for appt, capturing the trace context of ctx
// so the publisher can continue the trace.
func NewAppointmentEvent(ctx context.Context, eventType string, appt model.Appointment, at time.Time) (storage.OutboxEvent, error) {
	payload := AppointmentPayload{
		AppointmentID: appt.ID,
		OwnerID:       appt.OwnerID,
		CustomerID:    appt.CustomerID,
		HelperID:      appt.HelperID(),
		Date:          model.DayString(appt.Date),
		StartTime:     appt.StartTime,
		Status:        string(appt.Status),
		SeriesID:      appt.RecurrenceSeriesID,
		Price:         storage.Money(appt.Price),
		InvoiceToken:  appt.InvoiceToken,
		InvoiceNumber: appt.InvoiceNumber,
		OccurredAt:    at.UTC(),
	}
	if appt.HelperFee.Valid {
		payload.HelperFee = storage.Money(appt.HelperFee.Decimal)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return storage.OutboxEvent{}, err
	}
	tc := otelx.CaptureTraceContext(ctx)
	return storage.OutboxEvent{
		EventID:       uuid.NewString(),
		OwnerID:       appt.OwnerID,
		AggregateType: aggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       raw,
		Traceparent:   tc.Parent,
		Tracestate:    tc.State,
	}, nil
}

// Record writes an appointment event in the caller's unit of work.
func Record(ctx context.Context, repo storage.OutboxRepo, eventType string, appt model.Appointment, at time.Time) error {
	evt, err := NewAppointmentEvent(ctx, eventType, appt, at)
	if err != nil {
		return err
	}
	return repo.InsertOutboxEvent(ctx, evt)
}
