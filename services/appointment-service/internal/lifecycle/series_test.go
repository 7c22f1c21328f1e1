package lifecycle_test

import (
	"context"
	"testing"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/outbox"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteSeriesKeepsPaidRevenue(t *testing.T) {
	f := beforeWork(t)
	ctx := context.Background()
	anchor := f.create(t, weeklyAnchor())
	members := f.series(t, anchor.ID)

	_, err := f.svc.Finish(ctx, owner, anchor.ID)
	require.NoError(t, err)
	paid, err := f.svc.MarkRevenuePaid(ctx, owner, anchor.ID)
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, model.TransactionPaid, paid[0].Status)

	_, err = f.svc.Finish(ctx, owner, memberOn(t, members, "2024-01-08").ID)
	require.NoError(t, err)
	require.Len(t, f.series(t, anchor.ID), 6)

	deleted, err := f.svc.DeleteSeries(ctx, owner, memberOn(t, members, "2024-01-22").ID)
	require.NoError(t, err)
	assert.Len(t, deleted, 6)
	assert.Empty(t, f.series(t, anchor.ID))

	var orphanedPaid, total int
	require.NoError(t, f.store.DB().QueryRow(`
		SELECT COUNT(*) FROM revenue_transactions WHERE appointment_id IS NULL AND status = 'PAID'`).Scan(&orphanedPaid))
	require.NoError(t, f.store.DB().QueryRow(`SELECT COUNT(*) FROM revenue_transactions`).Scan(&total))
	assert.Equal(t, 1, orphanedPaid)
	assert.Equal(t, 1, total)

	var checklistRows int
	require.NoError(t, f.store.DB().QueryRow(`SELECT COUNT(*) FROM checklist_items`).Scan(&checklistRows))
	assert.Zero(t, checklistRows)

	deletedEvents := 0
	for _, evt := range f.events(t) {
		if evt == outbox.AppointmentDeleted {
			deletedEvents++
		}
	}
	assert.Equal(t, 6, deletedEvents)
}

func TestDeleteOneLeavesSeries(t *testing.T) {
	f := beforeWork(t)
	anchor := f.create(t, weeklyAnchor())
	target := f.series(t, anchor.ID)[2]

	deleted, err := f.svc.DeleteOne(context.Background(), owner, target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, deleted.ID)
	assert.Len(t, f.series(t, anchor.ID), 4)
}

func TestHorizonOutlivesDeletedAnchor(t *testing.T) {
	f := beforeWork(t)
	ctx := context.Background()
	anchor := f.create(t, weeklyAnchor())
	_, err := f.svc.DeleteOne(ctx, owner, anchor.ID)
	require.NoError(t, err)

	// Finish members front to back until top-up stops adding new ones.
	for i := 0; i < 80; i++ {
		var next *model.Appointment
		for _, m := range f.series(t, anchor.ID) {
			if m.Status != model.StatusCompleted {
				next = &m
				break
			}
		}
		if next == nil {
			break
		}
		_, err := f.svc.Finish(ctx, owner, next.ID)
		require.NoError(t, err)
	}

	members := f.series(t, anchor.ID)
	horizon := model.AddDays(anchor.Date, 365)
	for _, m := range members {
		assert.Equal(t, model.StatusCompleted, m.Status)
		assert.False(t, m.Date.After(horizon), "occurrence %s beyond 2024-12-31", model.DayString(m.Date))
		assert.Equal(t, "2024-01-01", model.DayString(m.SeriesAnchorDate))
	}
	assert.Equal(t, "2024-12-30", model.DayString(members[len(members)-1].Date))
	assert.Len(t, members, 52)
}

// insertLegacy stores an appointment the way rows looked before series ids were kept.
func insertLegacy(t *testing.T, f *fixture, id, day, start, rule string, recurring bool) {
	t.Helper()
	d, err := model.ParseDay(day)
	require.NoError(t, err)
	appt := model.Appointment{
		ID:             id,
		OwnerID:        owner,
		CustomerID:     "cust-1",
		Date:           d,
		StartTime:      start,
		Price:          decimal.NewFromInt(90),
		Status:         model.StatusScheduled,
		IsRecurring:    recurring,
		RecurrenceRule: rule,
		Notes:          "legacy",
	}
	require.NoError(t, f.store.WithTx(context.Background(), func(repo storage.Repo) error {
		return repo.InsertAppointment(context.Background(), &appt)
	}))
}

func remaining(t *testing.T, f *fixture) []string {
	t.Helper()
	month, err := f.svc.Month(context.Background(), owner, "2024-01")
	require.NoError(t, err)
	ids := make([]string, 0, len(month.Appointments))
	for _, a := range month.Appointments {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestDeleteSeriesMatchesLegacyRowsByRule(t *testing.T) {
	f := beforeWork(t)
	insertLegacy(t, f, "legacy-1", "2024-01-03", "10:00", "FREQ=WEEKLY", true)
	insertLegacy(t, f, "legacy-2", "2024-01-10", "10:00", "FREQ=WEEKLY", false)
	insertLegacy(t, f, "other-time", "2024-01-17", "14:00", "FREQ=WEEKLY", false)
	insertLegacy(t, f, "no-rule", "2024-01-24", "10:00", "", false)

	deleted, err := f.svc.DeleteSeries(context.Background(), owner, "legacy-2")
	require.NoError(t, err)
	assert.Len(t, deleted, 2)
	assert.ElementsMatch(t, []string{"other-time", "no-rule"}, remaining(t, f))
}

func TestDeleteSeriesMatchesLegacyRowsByAttributes(t *testing.T) {
	f := beforeWork(t)
	insertLegacy(t, f, "plain-1", "2024-01-03", "10:00", "", false)
	insertLegacy(t, f, "plain-2", "2024-01-10", "10:00", "", false)
	insertLegacy(t, f, "flagged", "2024-01-17", "10:00", "", true)

	deleted, err := f.svc.DeleteSeries(context.Background(), owner, "plain-1")
	require.NoError(t, err)
	assert.Len(t, deleted, 2)
	assert.Equal(t, []string{"flagged"}, remaining(t, f))
}

func TestDeleteSeriesOfSeriesMemberIgnoresLegacyRows(t *testing.T) {
	f := beforeWork(t)
	anchor := f.create(t, weeklyAnchor())
	insertLegacy(t, f, "legacy", "2024-01-02", "09:00", "FREQ=WEEKLY", true)

	deleted, err := f.svc.DeleteSeries(context.Background(), owner, anchor.ID)
	require.NoError(t, err)
	assert.Len(t, deleted, 5)
	assert.Equal(t, []string{"legacy"}, remaining(t, f))
}
