package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/apperr"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
)

// Range is a calendar view: appointments dated in [From, To).
type Range struct {
	From         time.Time
	To           time.Time
	Appointments []model.Appointment
}

func (s *Service) Day(ctx context.Context, ownerID, date string) (Range, error) {
	day, err := parseDay(date)
	if err != nil {
		return Range{}, err
	}
	return s.view(ctx, "day", ownerID, day, model.AddDays(day, 1))
}

// Week returns the Monday-based week containing date.
func (s *Service) Week(ctx context.Context, ownerID, date string) (Range, error) {
	day, err := parseDay(date)
	if err != nil {
		return Range{}, err
	}
	start := model.WeekStart(day)
	return s.view(ctx, "week", ownerID, start, model.AddDays(start, 7))
}

// Month takes a YYYY-MM month.
func (s *Service) Month(ctx context.Context, ownerID, month string) (Range, error) {
	first, err := time.Parse("2006-01", strings.TrimSpace(month))
	if err != nil {
		return Range{}, apperr.InvalidDate(month)
	}
	start := model.NormalizeDay(first)
	return s.view(ctx, "month", ownerID, start, model.NormalizeDay(first.AddDate(0, 1, 0)))
}

func (s *Service) view(ctx context.Context, op, ownerID string, from, to time.Time) (out Range, err error) {
	if err := requireOwner(ownerID); err != nil {
		return Range{}, err
	}
	s.sweepQuietly(ctx, ownerID, from, to)

	ctx, span := s.span(ctx, op, ownerID, "")
	defer func() { err = s.done(span, op, ownerID, "", err) }()

	out = Range{From: from, To: to}
	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		appts, err := repo.ListAppointments(ctx, ownerID, storage.AppointmentFilter{From: from, To: to})
		if err != nil {
			return err
		}
		out.Appointments, err = s.withDirectory(ctx, repo, appts)
		return err
	})
	if err != nil {
		return Range{}, err
	}
	return out, nil
}

// withDirectory attaches customer and helper to each appointment, reading each directory
// row once.
func (s *Service) withDirectory(ctx context.Context, repo storage.DirectoryRepo, appts []model.Appointment) ([]model.Appointment, error) {
	customers := map[string]*model.Customer{}
	helpers := map[string]*model.Helper{}
	for i := range appts {
		a := &appts[i]
		c, seen := customers[a.CustomerID]
		if !seen {
			found, err := repo.GetCustomer(ctx, a.OwnerID, a.CustomerID)
			switch {
			case err == nil:
				c = &found
			case !errors.Is(err, storage.ErrNotFound):
				return nil, err
			}
			customers[a.CustomerID] = c
		}
		a.Customer = c
		if a.AssignedHelperID == nil {
			continue
		}
		h, seen := helpers[*a.AssignedHelperID]
		if !seen {
			found, err := repo.ResolveHelper(ctx, a.OwnerID, *a.AssignedHelperID)
			switch {
			case err == nil:
				h = &found
			case !errors.Is(err, storage.ErrNotFound):
				return nil, err
			}
			helpers[*a.AssignedHelperID] = h
		}
		a.Helper = h
	}
	return appts, nil
}

// Get returns one appointment with its relations. Its day is swept first and an empty
// checklist is seeded from the defaults.
func (s *Service) Get(ctx context.Context, ownerID, id string) (appt model.Appointment, err error) {
	if err := requireOwner(ownerID); err != nil {
		return model.Appointment{}, err
	}
	var day time.Time
	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		found, err := repo.GetAppointment(ctx, ownerID, id)
		day = found.Date
		return err
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return model.Appointment{}, apperr.AppointmentNotFound(id)
	case err == nil:
		s.sweepQuietly(ctx, ownerID, day, model.AddDays(day, 1))
	}

	ctx, span := s.span(ctx, "get", ownerID, id)
	defer func() { err = s.done(span, "get", ownerID, id, err) }()
	if err != nil {
		return model.Appointment{}, err
	}

	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		current, err := repo.GetAppointment(ctx, ownerID, id)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.AppointmentNotFound(id)
		}
		if err != nil {
			return err
		}
		var customer *model.Customer
		if c, err := repo.GetCustomer(ctx, ownerID, current.CustomerID); err == nil {
			customer = &c
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if _, err := s.checklist.EnsureDefault(ctx, repo, current, customer); err != nil {
			return err
		}
		appt, err = s.detail(ctx, repo, current)
		return err
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}
