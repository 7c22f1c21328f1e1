package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusOf(t *testing.T, f *fixture, id string) model.Status {
	t.Helper()
	var status model.Status
	require.NoError(t, f.store.DB().QueryRow(`SELECT status FROM appointments WHERE id = ?`, id).Scan(&status))
	return status
}

func TestAutoFinishOverdueAppointments(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), time.UTC)
	ctx := context.Background()

	yesterday := f.create(t, oneOff("2024-01-09", "09:00"))
	endedThisMorning := oneOff("2024-01-10", "09:00")
	endedThisMorning.EndTime = "11:00"
	ended := f.create(t, endedThisMorning)
	later := f.create(t, oneOff("2024-01-10", "13:00"))
	byDuration := oneOff("2024-01-10", "11:00")
	byDuration.EstimatedDurationMinutes = 60
	endsNow := f.create(t, byDuration)
	tomorrow := f.create(t, oneOff("2024-01-11", "08:00"))
	called := f.create(t, oneOff("2024-01-09", "15:00"))
	_, err := f.svc.Cancel(ctx, owner, called.ID)
	require.NoError(t, err)

	n, err := f.svc.AutoFinish(ctx, owner, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, id := range []string{yesterday.ID, ended.ID, endsNow.ID} {
		assert.Equal(t, model.StatusCompleted, statusOf(t, f, id))
	}
	assert.Equal(t, model.StatusScheduled, statusOf(t, f, later.ID))
	assert.Equal(t, model.StatusScheduled, statusOf(t, f, tomorrow.ID))
	assert.Equal(t, model.StatusCancelled, statusOf(t, f, called.ID))

	got, err := f.svc.Get(ctx, owner, yesterday.ID)
	require.NoError(t, err)
	require.Len(t, got.Transactions, 1)
	assert.Equal(t, model.TransactionPending, got.Transactions[0].Status)
	assert.NotEmpty(t, got.InvoiceNumber)

	n, err = f.svc.AutoFinish(ctx, owner, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAutoFinishUsesServiceTimeZone(t *testing.T) {
	// 03:00 UTC on the 11th is still the evening of the 10th five hours west.
	loc := time.FixedZone("UTC-5", -5*60*60)
	f := newFixture(t, time.Date(2024, 1, 11, 3, 0, 0, 0, time.UTC), loc)

	evening := oneOff("2024-01-10", "21:00")
	evening.EndTime = "21:30"
	done := f.create(t, evening)
	lateNight := f.create(t, oneOff("2024-01-10", "23:00"))
	nextDay := f.create(t, oneOff("2024-01-11", "01:00"))

	n, err := f.svc.AutoFinish(context.Background(), owner, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, model.StatusCompleted, statusOf(t, f, done.ID))
	assert.Equal(t, model.StatusScheduled, statusOf(t, f, lateNight.ID))
	assert.Equal(t, model.StatusScheduled, statusOf(t, f, nextDay.ID))
}

func TestReadsSweepTheirRange(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), time.UTC)
	ctx := context.Background()
	overdue := f.create(t, oneOff("2024-01-08", "09:00"))
	elsewhere := f.create(t, oneOff("2024-01-02", "09:00"))

	week, err := f.svc.Week(ctx, owner, "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-08", model.DayString(week.From))
	assert.Equal(t, "2024-01-15", model.DayString(week.To))
	require.Len(t, week.Appointments, 1)
	assert.Equal(t, model.StatusCompleted, week.Appointments[0].Status)
	assert.Equal(t, overdue.ID, week.Appointments[0].ID)

	// Outside the week, so untouched until read.
	assert.Equal(t, model.StatusScheduled, statusOf(t, f, elsewhere.ID))
	got, err := f.svc.Get(ctx, owner, elsewhere.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
}
