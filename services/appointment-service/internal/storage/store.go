// Package storage defines the persistence contract shared by the Postgres and SQLite
// backends. Every query is scoped by owner id.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a unique constraint violation other than the occurrence
	// slot index, which InsertOccurrence absorbs.
	ErrConflict = errors.New("conflict")
)

// Store hands out transactional units of work.
type Store interface {
	// WithTx runs fn against a Repo bound to one transaction, committing only when fn
	// returns nil.
	WithTx(ctx context.Context, fn func(Repo) error) error
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// AppointmentFilter selects appointments by calendar day range. From is inclusive,
// To exclusive. Empty HelperID and Statuses match everything.
type AppointmentFilter struct {
	From     time.Time
	To       time.Time
	HelperID string
	Statuses []model.Status
}

// SeriesMatch is the attribute set used to find members of legacy series that were
// stored without a series id. Nil fields are not compared.
type SeriesMatch struct {
	CustomerID     string
	StartTime      string
	RecurrenceRule *string
	Price          *decimal.Decimal
	Notes          *string
	IsRecurring    *bool
}

type Repo interface {
	DirectoryRepo
	AppointmentRepo
	ChecklistRepo
	LedgerRepo
	OutboxRepo
}

// DirectoryRepo reads the customer and worker directories. The Save methods exist for
// seeding; the directories are owned by other collaborators.
type DirectoryRepo interface {
	GetCustomer(ctx context.Context, ownerID, customerID string) (model.Customer, error)
	// ResolveHelper looks the id up among the owner's team members and the owner
	// account in a single query and returns the normalized Helper.
	ResolveHelper(ctx context.Context, ownerID, helperID string) (model.Helper, error)
	SaveOwner(ctx context.Context, owner model.Helper) error
	SaveTeamMember(ctx context.Context, ownerID string, member model.Helper) error
	SaveCustomer(ctx context.Context, customer model.Customer) error
}

type AppointmentRepo interface {
	InsertAppointment(ctx context.Context, appt *model.Appointment) error
	// InsertOccurrence inserts a generated series member unless an appointment already
	// holds the same (owner, customer, day, start time) slot. It reports whether a row
	// was written.
	InsertOccurrence(ctx context.Context, appt *model.Appointment) (bool, error)
	UpdateAppointment(ctx context.Context, appt *model.Appointment) error
	GetAppointment(ctx context.Context, ownerID, id string) (model.Appointment, error)
	// GetAppointmentForUpdate is GetAppointment holding a row lock where the backend
	// supports one.
	GetAppointmentForUpdate(ctx context.Context, ownerID, id string) (model.Appointment, error)
	ListAppointments(ctx context.Context, ownerID string, filter AppointmentFilter) ([]model.Appointment, error)
	SlotTaken(ctx context.Context, ownerID, customerID string, day time.Time, startTime string) (bool, error)
	ListSeries(ctx context.Context, ownerID, seriesID string) ([]model.Appointment, error)
	MatchSeries(ctx context.Context, ownerID string, match SeriesMatch) ([]model.Appointment, error)
	// LockSeries serializes series generation for seriesID until the unit ends.
	LockSeries(ctx context.Context, ownerID, seriesID string) error
	DeleteAppointments(ctx context.Context, ownerID string, ids []string) (int64, error)
}

type ChecklistRepo interface {
	ListChecklist(ctx context.Context, appointmentID string) ([]model.ChecklistItem, error)
	DeleteChecklist(ctx context.Context, appointmentID string) error
	InsertChecklistItem(ctx context.Context, item *model.ChecklistItem) error
	GetChecklistItem(ctx context.Context, ownerID, itemID string) (model.ChecklistItem, error)
	SetChecklistCompletion(ctx context.Context, itemID string, completedAt *time.Time, completedByID *string) error
}

type LedgerRepo interface {
	// UpsertTransaction inserts tx or, when an entry for (AppointmentID, Type) exists,
	// updates its amount and due date only. tx is refreshed from the stored row.
	UpsertTransaction(ctx context.Context, tx *model.RevenueTransaction) error
	DeletePendingTransactions(ctx context.Context, ownerID, appointmentID string) (int64, error)
	ListTransactions(ctx context.Context, ownerID, appointmentID string) ([]model.RevenueTransaction, error)
	MarkTransactionsPaid(ctx context.Context, ownerID, appointmentID string, at time.Time) (int64, error)
}

type OutboxRepo interface {
	InsertOutboxEvent(ctx context.Context, evt OutboxEvent) error
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

// OutboxEvent is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type OutboxEvent struct {
	EventID       string
	OwnerID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Traceparent   string
	Tracestate    string
}

type OutboxRecord struct {
	ID int64
	OutboxEvent
	CreatedAt time.Time
}
