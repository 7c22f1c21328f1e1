package recurrence

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
)

const (
	// LookAhead is the most occurrences a series keeps ahead of its latest completion.
	LookAhead = 4
	// HorizonDays bounds every occurrence to the anchor date plus one year.
	HorizonDays = 365
)

// Generator materializes a rolling window of series occurrences. It writes through the
// caller's unit of work, so a seed batch commits or rolls back as a whole.
type Generator struct {
	lookAhead   int
	horizonDays int
}

func NewGenerator() *Generator {
	return &Generator{lookAhead: LookAhead, horizonDays: HorizonDays}
}

// Seed creates up to LookAhead occurrences after a newly created anchor, skipping
// slots that are already taken. It returns the occurrences it wrote.
func (g *Generator) Seed(ctx context.Context, repo storage.AppointmentRepo, anchor model.Appointment) ([]model.Appointment, error) {
	interval, ok := IntervalDays(anchor.RecurrenceRule)
	if !ok {
		return nil, nil
	}
	seriesID := anchor.SeriesKey()
	if err := repo.LockSeries(ctx, anchor.OwnerID, seriesID); err != nil {
		return nil, err
	}

	anchorDay := anchor.SeriesAnchorDate
	if anchorDay.IsZero() {
		anchorDay = anchor.Date
	}
	horizon := model.AddDays(anchorDay, g.horizonDays)
	var created []model.Appointment
	for i := 1; i <= g.lookAhead; i++ {
		day := model.AddDays(anchor.Date, i*interval)
		if day.After(horizon) {
			break
		}
		occ, ok, err := g.createIfAbsent(ctx, repo, anchor, seriesID, anchorDay, day)
		if err != nil {
			return created, err
		}
		if ok {
			created = append(created, occ)
		}
	}
	return created, nil
}

// TopUp runs after a series member completes. When fewer than LookAhead members lie
// after it, one more occurrence is added one interval past the latest of them. Spacing
// is measured from that latest date so the cadence never drifts.
func (g *Generator) TopUp(ctx context.Context, repo storage.AppointmentRepo, completed model.Appointment) ([]model.Appointment, error) {
	if completed.RecurrenceSeriesID == "" || completed.RecurrenceRule == "" {
		return nil, nil
	}
	interval, ok := IntervalDays(completed.RecurrenceRule)
	if !ok {
		return nil, nil
	}
	seriesID := completed.RecurrenceSeriesID
	if err := repo.LockSeries(ctx, completed.OwnerID, seriesID); err != nil {
		return nil, err
	}

	members, err := repo.ListSeries(ctx, completed.OwnerID, seriesID)
	if err != nil {
		return nil, err
	}
	ahead := 0
	latest := completed.Date
	for _, m := range members {
		if m.Date.After(completed.Date) {
			ahead++
			if m.Date.After(latest) {
				latest = m.Date
			}
		}
	}
	if ahead >= g.lookAhead {
		return nil, nil
	}

	next := model.AddDays(latest, interval)
	anchorDay := anchorDate(members, seriesID, completed)
	if next.After(model.AddDays(anchorDay, g.horizonDays)) {
		return nil, nil
	}
	occ, ok, err := g.createIfAbsent(ctx, repo, completed, seriesID, anchorDay, next)
	if err != nil || !ok {
		return nil, err
	}
	return []model.Appointment{occ}, nil
}

// anchorDate finds the date the series started from. The stamped SeriesAnchorDate wins
// and survives deletion of the anchor row; rows written before it existed fall back to
// the row whose id is the series id, else the recurring anchor, else the earliest member.
func anchorDate(members []model.Appointment, seriesID string, fallback model.Appointment) time.Time {
	if !fallback.SeriesAnchorDate.IsZero() {
		return fallback.SeriesAnchorDate
	}
	for _, m := range members {
		if !m.SeriesAnchorDate.IsZero() {
			return m.SeriesAnchorDate
		}
	}
	for _, m := range members {
		if m.ID == seriesID {
			return m.Date
		}
	}
	for _, m := range members {
		if m.IsRecurring {
			return m.Date
		}
	}
	earliest := fallback.Date
	for _, m := range members {
		if m.Date.Before(earliest) {
			earliest = m.Date
		}
	}
	return earliest
}

func (g *Generator) createIfAbsent(ctx context.Context, repo storage.AppointmentRepo, src model.Appointment, seriesID string, anchorDay, day time.Time) (model.Appointment, bool, error) {
	taken, err := repo.SlotTaken(ctx, src.OwnerID, src.CustomerID, day, src.StartTime)
	if err != nil || taken {
		return model.Appointment{}, false, err
	}
	occ := occurrenceOf(src, seriesID, anchorDay, day)
	created, err := repo.InsertOccurrence(ctx, &occ)
	if err != nil || !created {
		return model.Appointment{}, false, err
	}
	return occ, true, nil
}

// occurrenceOf copies the schedule-defining fields of src onto a new unconfirmed member.
func occurrenceOf(src model.Appointment, seriesID string, anchorDay, day time.Time) model.Appointment {
	occ := model.Appointment{
		OwnerID:                  src.OwnerID,
		CustomerID:               src.CustomerID,
		Date:                     model.NormalizeDay(day),
		StartTime:                src.StartTime,
		EndTime:                  src.EndTime,
		EstimatedDurationMinutes: src.EstimatedDurationMinutes,
		Price:                    src.Price,
		HelperFee:                src.HelperFee,
		Status:                   model.StatusNotConfirmed,
		IsRecurring:              false,
		RecurrenceRule:           src.RecurrenceRule,
		RecurrenceSeriesID:       seriesID,
		SeriesAnchorDate:         model.NormalizeDay(anchorDay),
		Notes:                    src.Notes,
	}
	if src.AssignedHelperID != nil {
		helper := *src.AssignedHelperID
		occ.AssignedHelperID = &helper
	}
	if src.ChecklistSnapshot != nil {
		occ.ChecklistSnapshot = append([]string{}, src.ChecklistSnapshot...)
	}
	return occ
}
