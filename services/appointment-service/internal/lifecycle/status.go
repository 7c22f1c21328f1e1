package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/apperr"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/outbox"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
)

// SetStatus moves an appointment to status. SCHEDULED and NOT_CONFIRMED toggle
// confirmation; the other statuses run Start, Finish or Cancel.
func (s *Service) SetStatus(ctx context.Context, ownerID, id string, status model.Status) (model.Appointment, error) {
	if !status.Valid() {
		return model.Appointment{}, apperr.InvalidInput("unknown status %q", status)
	}
	switch status {
	case model.StatusInProgress:
		return s.Start(ctx, ownerID, id)
	case model.StatusCompleted:
		return s.Finish(ctx, ownerID, id)
	case model.StatusCancelled:
		return s.Cancel(ctx, ownerID, id)
	}
	return s.confirm(ctx, ownerID, id, status)
}

func (s *Service) confirm(ctx context.Context, ownerID, id string, status model.Status) (appt model.Appointment, err error) {
	ctx, span := s.span(ctx, "set_status", ownerID, id)
	defer func() { err = s.done(span, "set_status", ownerID, id, err) }()

	if err := requireOwner(ownerID); err != nil {
		return model.Appointment{}, err
	}
	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		current, err := s.lockAppointment(ctx, repo, ownerID, id)
		if err != nil {
			return err
		}
		if current.Status != status {
			from := model.StatusNotConfirmed
			if status == model.StatusNotConfirmed {
				from = model.StatusScheduled
			}
			if current.Status != from {
				return apperr.InvalidTransition(string(current.Status), string(status))
			}
			current.Status = status
			if err := repo.UpdateAppointment(ctx, &current); err != nil {
				return err
			}
		}
		appt, err = s.detail(ctx, repo, current)
		return err
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// Start marks work as begun. Starting an in-progress appointment changes nothing and a
// completed one is returned as is.
func (s *Service) Start(ctx context.Context, ownerID, id string) (appt model.Appointment, err error) {
	ctx, span := s.span(ctx, "start", ownerID, id)
	defer func() { err = s.done(span, "start", ownerID, id, err) }()

	if err := requireOwner(ownerID); err != nil {
		return model.Appointment{}, err
	}
	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		current, err := s.lockAppointment(ctx, repo, ownerID, id)
		if err != nil {
			return err
		}
		switch current.Status {
		case model.StatusCompleted:
		case model.StatusScheduled, model.StatusInProgress:
			if current.Status != model.StatusInProgress || current.StartedAt == nil {
				current.Status = model.StatusInProgress
				if current.StartedAt == nil {
					now := s.now().UTC()
					current.StartedAt = &now
				}
				if err := repo.UpdateAppointment(ctx, &current); err != nil {
					return err
				}
			}
		default:
			return apperr.InvalidTransition(string(current.Status), string(model.StatusInProgress))
		}
		appt, err = s.detail(ctx, repo, current)
		return err
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// Finish completes an appointment. The first completion issues the invoice; every call
// refreshes the revenue entry and tops up the series.
func (s *Service) Finish(ctx context.Context, ownerID, id string) (appt model.Appointment, err error) {
	ctx, span := s.span(ctx, "finish", ownerID, id)
	defer func() { err = s.done(span, "finish", ownerID, id, err) }()

	if err := requireOwner(ownerID); err != nil {
		return model.Appointment{}, err
	}
	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		current, err := s.lockAppointment(ctx, repo, ownerID, id)
		if err != nil {
			return err
		}
		finished, err := s.finish(ctx, repo, current)
		if err != nil {
			return err
		}
		appt, err = s.detail(ctx, repo, finished)
		return err
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// finish is the completion path shared by Finish and the sweep. appt must be locked in
// repo's unit of work.
func (s *Service) finish(ctx context.Context, repo storage.Repo, appt model.Appointment) (model.Appointment, error) {
	if appt.Status == model.StatusCancelled {
		return model.Appointment{}, apperr.InvalidTransition(string(appt.Status), string(model.StatusCompleted))
	}
	now := s.now().UTC()
	first := appt.Status != model.StatusCompleted
	if first {
		appt.Status = model.StatusCompleted
		// StartedAt is never rewritten; FinishedAt moves up to it instead.
		finishedAt := now
		if appt.FinishedAt != nil {
			finishedAt = *appt.FinishedAt
		}
		if appt.StartedAt != nil && appt.StartedAt.After(finishedAt) {
			finishedAt = *appt.StartedAt
		}
		appt.FinishedAt = &finishedAt
		if appt.InvoiceToken == "" {
			appt.InvoiceToken = uuid.NewString()
			appt.InvoiceNumber = invoiceNumber(appt.Date, appt.InvoiceToken)
			appt.InvoiceSentAt = &now
		}
		if err := repo.UpdateAppointment(ctx, &appt); err != nil {
			return model.Appointment{}, err
		}
	}

	if _, err := s.ledger.UpsertRevenue(ctx, repo, appt.ID, appt.OwnerID, appt.Price, appt.Date); err != nil {
		return model.Appointment{}, err
	}
	occurrences, err := s.generator.TopUp(ctx, repo, appt)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := s.afterGenerate(ctx, repo, occurrences, now); err != nil {
		return model.Appointment{}, err
	}
	if first {
		if err := outbox.Record(ctx, repo, outbox.AppointmentCompleted, appt, now); err != nil {
			return model.Appointment{}, err
		}
	}
	return appt, nil
}

// Cancel calls an appointment off and retracts its pending revenue.
func (s *Service) Cancel(ctx context.Context, ownerID, id string) (appt model.Appointment, err error) {
	ctx, span := s.span(ctx, "cancel", ownerID, id)
	defer func() { err = s.done(span, "cancel", ownerID, id, err) }()

	if err := requireOwner(ownerID); err != nil {
		return model.Appointment{}, err
	}
	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		current, err := s.lockAppointment(ctx, repo, ownerID, id)
		if err != nil {
			return err
		}
		switch {
		case current.Status == model.StatusCancelled:
		case current.Status.Terminal():
			return apperr.InvalidTransition(string(current.Status), string(model.StatusCancelled))
		default:
			current.Status = model.StatusCancelled
			if err := repo.UpdateAppointment(ctx, &current); err != nil {
				return err
			}
			if _, err := s.ledger.RetractPending(ctx, repo, ownerID, current.ID); err != nil {
				return err
			}
			if err := outbox.Record(ctx, repo, outbox.AppointmentCancelled, current, s.now().UTC()); err != nil {
				return err
			}
		}
		appt, err = s.detail(ctx, repo, current)
		return err
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// invoiceNumber is INV-<appointment day>-<token prefix>, e.g. INV-20240101-1A2B3C4D.
func invoiceNumber(day time.Time, token string) string {
	prefix := strings.ReplaceAll(token, "-", "")
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("INV-%s-%s", day.Format("20060102"), strings.ToUpper(prefix))
}
