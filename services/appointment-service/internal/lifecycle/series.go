package lifecycle

import (
	"context"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/outbox"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
)

// DeleteOne removes a single appointment and returns it as it was.
func (s *Service) DeleteOne(ctx context.Context, ownerID, id string) (appt model.Appointment, err error) {
	ctx, span := s.span(ctx, "delete_one", ownerID, id)
	defer func() { err = s.done(span, "delete_one", ownerID, id, err) }()

	if err := requireOwner(ownerID); err != nil {
		return model.Appointment{}, err
	}
	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		target, err := s.lockAppointment(ctx, repo, ownerID, id)
		if err != nil {
			return err
		}
		if err := s.remove(ctx, repo, ownerID, []model.Appointment{target}); err != nil {
			return err
		}
		appt = target
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// DeleteSeries removes every member of the series the appointment belongs to. Members are
// found by series id; appointments stored before series ids existed are matched on
// their schedule attributes instead. When nothing matches only the appointment itself is
// removed.
func (s *Service) DeleteSeries(ctx context.Context, ownerID, id string) (deleted []model.Appointment, err error) {
	ctx, span := s.span(ctx, "delete_series", ownerID, id)
	defer func() { err = s.done(span, "delete_series", ownerID, id, err) }()

	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		target, err := s.lockAppointment(ctx, repo, ownerID, id)
		if err != nil {
			return err
		}
		members, err := s.seriesMembers(ctx, repo, target)
		if err != nil {
			return err
		}
		if err := s.remove(ctx, repo, ownerID, members); err != nil {
			return err
		}
		deleted = members
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (s *Service) seriesMembers(ctx context.Context, repo storage.AppointmentRepo, target model.Appointment) ([]model.Appointment, error) {
	var members []model.Appointment
	byID, err := repo.ListSeries(ctx, target.OwnerID, target.SeriesKey())
	if err != nil {
		return nil, err
	}
	switch {
	case len(byID) > 1 || target.RecurrenceSeriesID != "":
		members = byID
	case target.RecurrenceRule != "":
		rule := target.RecurrenceRule
		members, err = repo.MatchSeries(ctx, target.OwnerID, storage.SeriesMatch{
			CustomerID:     target.CustomerID,
			StartTime:      target.StartTime,
			RecurrenceRule: &rule,
		})
	default:
		price, notes, recurring := target.Price, target.Notes, target.IsRecurring
		members, err = repo.MatchSeries(ctx, target.OwnerID, storage.SeriesMatch{
			CustomerID:  target.CustomerID,
			StartTime:   target.StartTime,
			Price:       &price,
			Notes:       &notes,
			IsRecurring: &recurring,
		})
	}
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.ID == target.ID {
			return members, nil
		}
	}
	return append(members, target), nil
}

// remove retracts pending revenue, announces the deletions and deletes the rows. Paid
// revenue stays with its appointment reference cleared by the foreign key.
func (s *Service) remove(ctx context.Context, repo storage.Repo, ownerID string, appts []model.Appointment) error {
	now := s.now().UTC()
	ids := make([]string, 0, len(appts))
	for _, appt := range appts {
		if _, err := s.ledger.RetractPending(ctx, repo, ownerID, appt.ID); err != nil {
			return err
		}
		if err := outbox.Record(ctx, repo, outbox.AppointmentDeleted, appt, now); err != nil {
			return err
		}
		ids = append(ids, appt.ID)
	}
	_, err := repo.DeleteAppointments(ctx, ownerID, ids)
	return err
}
