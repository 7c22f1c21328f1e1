package lifecycle

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
)

var sweepStatuses = []model.Status{model.StatusScheduled, model.StatusInProgress}

// AutoFinish completes every scheduled or in-progress appointment in [from, to) whose
// end has passed, using the service time zone to decide what "today" is. Each
// appointment is finished in its own unit of work; failures are logged and skipped. It
// returns how many were finished.
func (s *Service) AutoFinish(ctx context.Context, ownerID string, from, to time.Time) (finished int, err error) {
	ctx, span := s.span(ctx, "auto_finish", ownerID, "")
	defer func() { err = s.done(span, "auto_finish", ownerID, "", err) }()

	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	now := s.now().In(s.loc)
	today := model.NormalizeDay(now)
	from, to = model.NormalizeDay(from), model.NormalizeDay(to)
	if limit := model.AddDays(today, 1); to.After(limit) {
		to = limit
	}
	if !from.Before(to) {
		return 0, nil
	}

	var candidates []model.Appointment
	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		var err error
		candidates, err = repo.ListAppointments(ctx, ownerID, storage.AppointmentFilter{
			From:     from,
			To:       to,
			Statuses: sweepStatuses,
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	for _, appt := range candidates {
		if !s.overdue(appt, today, now) {
			continue
		}
		ok, err := s.finishOverdue(ctx, ownerID, appt.ID, today, now)
		if err != nil {
			s.logger.Warn("auto-finish skipped appointment",
				"owner_id", ownerID,
				"appointment_id", appt.ID,
				"err", err,
			)
			continue
		}
		if ok {
			finished++
		}
	}
	if finished > 0 {
		s.logger.Info("auto-finished appointments", "owner_id", ownerID, "count", finished)
	}
	return finished, nil
}

func (s *Service) finishOverdue(ctx context.Context, ownerID, id string, today, now time.Time) (bool, error) {
	done := false
	err := s.store.WithTx(ctx, func(repo storage.Repo) error {
		appt, err := s.lockAppointment(ctx, repo, ownerID, id)
		if err != nil {
			return err
		}
		// Another writer may have moved it since the candidate list was read.
		if (appt.Status != model.StatusScheduled && appt.Status != model.StatusInProgress) || !s.overdue(appt, today, now) {
			return nil
		}
		if _, err := s.finish(ctx, repo, appt); err != nil {
			return err
		}
		done = true
		return nil
	})
	return done, err
}

// overdue reports whether appt's scheduled end is at or before now. Appointments on
// earlier days are always overdue; today's need a parseable end or start time.
func (s *Service) overdue(appt model.Appointment, today, now time.Time) bool {
	day := model.NormalizeDay(appt.Date)
	if day.Before(today) {
		return true
	}
	if day.After(today) {
		return false
	}
	end, ok := s.scheduledEnd(appt)
	return ok && !end.After(now)
}

func (s *Service) scheduledEnd(appt model.Appointment) (time.Time, bool) {
	if appt.EndTime != "" {
		if end, err := model.At(appt.Date, appt.EndTime, s.loc); err == nil {
			return end, true
		}
	}
	start, err := model.At(appt.Date, appt.StartTime, s.loc)
	if err != nil {
		return time.Time{}, false
	}
	return start.Add(time.Duration(appt.EstimatedDurationMinutes) * time.Minute), true
}

// sweepQuietly runs AutoFinish for a read. A failing sweep never fails the read.
func (s *Service) sweepQuietly(ctx context.Context, ownerID string, from, to time.Time) {
	if _, err := s.AutoFinish(ctx, ownerID, from, to); err != nil {
		s.logger.Warn("auto-finish sweep failed", "owner_id", ownerID, "err", err)
	}
}
