// Package lifecycle is the appointment state machine. It owns status transitions and
// tenant checks and drives the payout, ledger, checklist and recurrence components
// inside one unit of work per operation.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/apperr"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/checklist"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/ledger"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/outbox"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/payout"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/recurrence"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	// Location decides which calendar day "today" is for the auto-finish sweep.
	Location  *time.Location
	Templates checklist.Templates
	Now       func() time.Time
}

type Service struct {
	store     storage.Store
	ledger    *ledger.Synchronizer
	checklist *checklist.Synchronizer
	generator *recurrence.Generator
	logger    *slog.Logger
	tracer    trace.Tracer
	loc       *time.Location
	now       func() time.Time
}

func NewService(store storage.Store, logger *slog.Logger, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Templates.Generic == nil {
		cfg.Templates = checklist.DefaultTemplates()
	}
	return &Service{
		store:     store,
		ledger:    ledger.NewSynchronizer(),
		checklist: checklist.NewSynchronizer(cfg.Templates),
		generator: recurrence.NewGenerator(),
		logger:    logger,
		tracer:    otel.Tracer("visitbook/appointment-service/lifecycle"),
		loc:       cfg.Location,
		now:       cfg.Now,
	}
}

// CreateInput is a new appointment as submitted by a client. Date accepts a bare day or
// a timestamp; only its calendar day is kept.
type CreateInput struct {
	CustomerID               string
	AssignedHelperID         string
	Date                     string
	StartTime                string
	EndTime                  string
	EstimatedDurationMinutes int
	Price                    decimal.Decimal
	// HelperFee left invalid is computed from the helper's payout config.
	HelperFee         decimal.NullDecimal
	Status            model.Status
	IsRecurring       bool
	RecurrenceRule    string
	Notes             string
	ChecklistSnapshot []string
}

// UpdateInput is a partial update; nil fields are left unchanged. An empty
// AssignedHelperID clears the helper. HelperFee set to an invalid NullDecimal asks for
// the fee to be recomputed.
type UpdateInput struct {
	CustomerID               *string
	AssignedHelperID         *string
	Date                     *string
	StartTime                *string
	EndTime                  *string
	EstimatedDurationMinutes *int
	Price                    *decimal.Decimal
	HelperFee                *decimal.NullDecimal
	Notes                    *string
	ChecklistSnapshot        *[]string
}

func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (appt model.Appointment, err error) {
	ctx, span := s.span(ctx, "create", ownerID, "")
	defer func() { err = s.done(span, "create", ownerID, appt.ID, err) }()

	if err := requireOwner(ownerID); err != nil {
		return model.Appointment{}, err
	}
	day, err := parseDay(in.Date)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := validateSchedule(in.StartTime, in.EndTime, in.EstimatedDurationMinutes); err != nil {
		return model.Appointment{}, err
	}
	if in.Price.IsNegative() {
		return model.Appointment{}, apperr.InvalidInput("price must not be negative")
	}
	if in.HelperFee.Valid && in.HelperFee.Decimal.IsNegative() {
		return model.Appointment{}, apperr.InvalidInput("helper fee must not be negative")
	}
	status := in.Status
	switch status {
	case "":
		status = model.StatusScheduled
	case model.StatusScheduled, model.StatusInProgress:
	default:
		return model.Appointment{}, apperr.InvalidInput("new appointments start as %s or %s", model.StatusScheduled, model.StatusInProgress)
	}
	if strings.TrimSpace(in.CustomerID) == "" {
		return model.Appointment{}, apperr.InvalidInput("customer id is required")
	}

	now := s.now().UTC()
	appt = model.Appointment{
		ID:                       uuid.NewString(),
		OwnerID:                  ownerID,
		CustomerID:               strings.TrimSpace(in.CustomerID),
		Date:                     day,
		StartTime:                strings.TrimSpace(in.StartTime),
		EndTime:                  strings.TrimSpace(in.EndTime),
		EstimatedDurationMinutes: in.EstimatedDurationMinutes,
		Price:                    in.Price,
		HelperFee:                in.HelperFee,
		Status:                   status,
		IsRecurring:              in.IsRecurring,
		RecurrenceRule:           recurrence.Normalize(in.RecurrenceRule),
		Notes:                    in.Notes,
		ChecklistSnapshot:        checklist.CleanTitles(in.ChecklistSnapshot),
		CreatedAt:                now,
	}
	if appt.IsRecurring {
		appt.RecurrenceSeriesID = appt.ID
		appt.SeriesAnchorDate = day
	}
	if status == model.StatusInProgress {
		appt.StartedAt = &now
	}

	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		if _, err := s.customer(ctx, repo, ownerID, appt.CustomerID); err != nil {
			return err
		}
		if helperID := strings.TrimSpace(in.AssignedHelperID); helperID != "" {
			helper, err := s.helper(ctx, repo, ownerID, helperID)
			if err != nil {
				return err
			}
			appt.AssignedHelperID = &helper.ID
			if !appt.HelperFee.Valid {
				appt.HelperFee = decimal.NewNullDecimal(payout.ForHelper(appt.Price, helper))
			}
		}

		if err := repo.InsertAppointment(ctx, &appt); err != nil {
			return slotErr(err, appt)
		}
		if _, err := s.checklist.ReplaceFromSnapshot(ctx, repo, appt.ID, appt.ChecklistSnapshot); err != nil {
			return err
		}
		if err := outbox.Record(ctx, repo, outbox.AppointmentCreated, appt, now); err != nil {
			return err
		}
		if appt.IsRecurring {
			occurrences, err := s.generator.Seed(ctx, repo, appt)
			if err != nil {
				return err
			}
			if err := s.afterGenerate(ctx, repo, occurrences, now); err != nil {
				return err
			}
		}
		appt, err = s.detail(ctx, repo, appt)
		return err
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (s *Service) Update(ctx context.Context, ownerID, id string, in UpdateInput) (appt model.Appointment, err error) {
	ctx, span := s.span(ctx, "update", ownerID, id)
	defer func() { err = s.done(span, "update", ownerID, id, err) }()

	if err := requireOwner(ownerID); err != nil {
		return model.Appointment{}, err
	}
	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		current, err := s.lockAppointment(ctx, repo, ownerID, id)
		if err != nil {
			return err
		}
		next := current

		if in.CustomerID != nil && strings.TrimSpace(*in.CustomerID) != current.CustomerID {
			customer, err := s.customer(ctx, repo, ownerID, strings.TrimSpace(*in.CustomerID))
			if err != nil {
				return err
			}
			next.CustomerID = customer.ID
		}

		var helper *model.Helper
		helperChanged := false
		if in.AssignedHelperID != nil {
			helperID := strings.TrimSpace(*in.AssignedHelperID)
			switch {
			case helperID == "":
				helperChanged = current.AssignedHelperID != nil
				next.AssignedHelperID = nil
			case helperID != current.HelperID():
				h, err := s.helper(ctx, repo, ownerID, helperID)
				if err != nil {
					return err
				}
				helper, helperChanged = &h, true
				next.AssignedHelperID = &h.ID
			}
		}

		if in.Date != nil {
			day, err := parseDay(*in.Date)
			if err != nil {
				return err
			}
			next.Date = day
		}
		if in.StartTime != nil {
			next.StartTime = strings.TrimSpace(*in.StartTime)
		}
		if in.EndTime != nil {
			next.EndTime = strings.TrimSpace(*in.EndTime)
		}
		if in.EstimatedDurationMinutes != nil {
			next.EstimatedDurationMinutes = *in.EstimatedDurationMinutes
		}
		if err := validateSchedule(next.StartTime, next.EndTime, next.EstimatedDurationMinutes); err != nil {
			return err
		}
		priceChanged := false
		if in.Price != nil {
			if in.Price.IsNegative() {
				return apperr.InvalidInput("price must not be negative")
			}
			priceChanged = !in.Price.Equal(current.Price)
			next.Price = *in.Price
		}
		if in.Notes != nil {
			next.Notes = *in.Notes
		}

		recompute := false
		switch {
		case in.HelperFee != nil && in.HelperFee.Valid:
			if in.HelperFee.Decimal.IsNegative() {
				return apperr.InvalidInput("helper fee must not be negative")
			}
			next.HelperFee = *in.HelperFee
		case in.HelperFee != nil:
			next.HelperFee = decimal.NullDecimal{}
			recompute = next.AssignedHelperID != nil
		case next.AssignedHelperID == nil:
			if helperChanged {
				next.HelperFee = decimal.NullDecimal{}
			}
		default:
			recompute = priceChanged || helperChanged
		}
		if recompute {
			if helper == nil {
				h, err := s.helper(ctx, repo, ownerID, next.HelperID())
				if err != nil {
					return err
				}
				helper = &h
			}
			next.HelperFee = decimal.NewNullDecimal(payout.ForHelper(next.Price, *helper))
		}

		if in.ChecklistSnapshot != nil {
			next.ChecklistSnapshot = checklist.CleanTitles(*in.ChecklistSnapshot)
			if next.ChecklistSnapshot == nil {
				next.ChecklistSnapshot = []string{}
			}
		}
		if err := repo.UpdateAppointment(ctx, &next); err != nil {
			return slotErr(err, next)
		}
		if in.ChecklistSnapshot != nil {
			if _, err := s.checklist.ReplaceFromSnapshot(ctx, repo, next.ID, next.ChecklistSnapshot); err != nil {
				return err
			}
		}
		appt, err = s.detail(ctx, repo, next)
		return err
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// afterGenerate gives generated occurrences their checklist and announces them.
func (s *Service) afterGenerate(ctx context.Context, repo storage.Repo, occurrences []model.Appointment, at time.Time) error {
	for _, occ := range occurrences {
		if _, err := s.checklist.ReplaceFromSnapshot(ctx, repo, occ.ID, occ.ChecklistSnapshot); err != nil {
			return err
		}
		if err := outbox.Record(ctx, repo, outbox.AppointmentOccurrenceCreated, occ, at); err != nil {
			return err
		}
	}
	return nil
}

// detail attaches the response relations. Directory rows that have since disappeared are
// left out rather than failing the operation.
func (s *Service) detail(ctx context.Context, repo storage.Repo, appt model.Appointment) (model.Appointment, error) {
	customer, err := repo.GetCustomer(ctx, appt.OwnerID, appt.CustomerID)
	switch {
	case err == nil:
		appt.Customer = &customer
	case !errors.Is(err, storage.ErrNotFound):
		return model.Appointment{}, err
	}
	if appt.AssignedHelperID != nil {
		helper, err := repo.ResolveHelper(ctx, appt.OwnerID, *appt.AssignedHelperID)
		switch {
		case err == nil:
			appt.Helper = &helper
		case !errors.Is(err, storage.ErrNotFound):
			return model.Appointment{}, err
		}
	}
	if appt.Checklist, err = repo.ListChecklist(ctx, appt.ID); err != nil {
		return model.Appointment{}, err
	}
	if appt.Transactions, err = s.ledger.List(ctx, repo, appt.OwnerID, appt.ID); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (s *Service) customer(ctx context.Context, repo storage.DirectoryRepo, ownerID, customerID string) (model.Customer, error) {
	c, err := repo.GetCustomer(ctx, ownerID, customerID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Customer{}, apperr.CustomerNotFound(customerID)
	}
	return c, err
}

func (s *Service) helper(ctx context.Context, repo storage.DirectoryRepo, ownerID, helperID string) (model.Helper, error) {
	h, err := repo.ResolveHelper(ctx, ownerID, helperID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Helper{}, apperr.HelperNotFound(helperID)
	}
	return h, err
}

func (s *Service) lockAppointment(ctx context.Context, repo storage.AppointmentRepo, ownerID, id string) (model.Appointment, error) {
	appt, err := repo.GetAppointmentForUpdate(ctx, ownerID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Appointment{}, apperr.AppointmentNotFound(id)
	}
	return appt, err
}

func (s *Service) span(ctx context.Context, op, ownerID, appointmentID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("owner.id", ownerID)}
	if appointmentID != "" {
		attrs = append(attrs, attribute.String("appointment.id", appointmentID))
	}
	return s.tracer.Start(ctx, "lifecycle."+op, trace.WithAttributes(attrs...))
}

// done ends span and hides unclassified errors behind UNEXPECTED after logging them.
func (s *Service) done(span trace.Span, op, ownerID, appointmentID string, err error) error {
	defer span.End()
	if err == nil {
		return nil
	}
	span.RecordError(err)
	if apperr.KindOf(err) != apperr.KindUnexpected {
		return err
	}
	span.SetStatus(codes.Error, op)
	s.logger.Error("appointment operation failed",
		"op", op,
		"owner_id", ownerID,
		"appointment_id", appointmentID,
		"err", err,
	)
	return apperr.Unexpected(op, err)
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return apperr.InvalidInput("owner id is required")
	}
	return nil
}

func parseDay(raw string) (time.Time, error) {
	day, err := model.ParseDay(raw)
	if err != nil {
		return time.Time{}, apperr.InvalidDate(raw)
	}
	return day, nil
}

func validateSchedule(startTime, endTime string, durationMinutes int) error {
	if _, _, err := model.ParseClock(startTime); err != nil {
		return apperr.InvalidInput("start time: %v", err)
	}
	if strings.TrimSpace(endTime) != "" {
		if _, _, err := model.ParseClock(endTime); err != nil {
			return apperr.InvalidInput("end time: %v", err)
		}
	}
	if durationMinutes < 0 {
		return apperr.InvalidInput("estimated duration must not be negative")
	}
	return nil
}

func slotErr(err error, appt model.Appointment) error {
	if errors.Is(err, storage.ErrConflict) {
		return apperr.SlotTaken(model.DayString(appt.Date), appt.StartTime)
	}
	return err
}
