package postgres_test

import (
	"context"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/visitbook/libs/db"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage/postgres"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage/storagetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openStore migrates a fresh schema on TEST_DATABASE_URL and drops it on cleanup.
func openStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	schema := "visitbook_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	admin, err := db.Open(ctx, dsn, db.PoolOptions{MaxConns: 1})
	require.NoError(t, err)
	t.Cleanup(admin.Close)
	_, err = admin.Exec(ctx, `CREATE SCHEMA `+schema)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = admin.Exec(context.Background(), `DROP SCHEMA `+schema+` CASCADE`) })

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	pool, err := db.Open(ctx, u.String(), db.PoolOptions{MaxConns: 4})
	require.NoError(t, err)
	store := postgres.New(pool)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))
	storagetest.Seed(t, store, storagetest.DefaultTenant())
	return store
}

func day(s string) time.Time {
	d, err := model.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func occurrence(seriesID, date string) *model.Appointment {
	return &model.Appointment{
		OwnerID:            "owner-1",
		CustomerID:         "cust-1",
		Date:               day(date),
		StartTime:          "09:00",
		Price:              decimal.NewFromInt(100),
		Status:             model.StatusNotConfirmed,
		RecurrenceRule:     "FREQ=WEEKLY",
		RecurrenceSeriesID: seriesID,
		SeriesAnchorDate:   day("2024-01-01"),
	}
}

func TestPostgresAppointmentRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2024, time.January, 1, 9, 5, 0, 0, time.UTC)
	helper := "helper-1"
	in := occurrence("series-1", "2024-01-01")
	in.AssignedHelperID = &helper
	in.Price = decimal.RequireFromString("149.5")
	in.HelperFee = decimal.NewNullDecimal(decimal.RequireFromString("37.38"))
	in.Status = model.StatusInProgress
	in.StartedAt = &started
	in.IsRecurring = true
	in.ChecklistSnapshot = []string{"Kitchen", "Bathrooms"}

	var got model.Appointment
	require.NoError(t, store.WithTx(ctx, func(repo storage.Repo) error {
		if err := repo.InsertAppointment(ctx, in); err != nil {
			return err
		}
		var err error
		got, err = repo.GetAppointmentForUpdate(ctx, "owner-1", in.ID)
		return err
	}))
	assert.Equal(t, "2024-01-01", model.DayString(got.Date))
	assert.Equal(t, "2024-01-01", model.DayString(got.SeriesAnchorDate))
	assert.Equal(t, "149.50", got.Price.StringFixed(2))
	require.True(t, got.HelperFee.Valid)
	assert.Equal(t, "37.38", got.HelperFee.Decimal.StringFixed(2))
	assert.Equal(t, "helper-1", got.HelperID())
	assert.Equal(t, []string{"Kitchen", "Bathrooms"}, got.ChecklistSnapshot)
	require.NotNil(t, got.StartedAt)
	assert.True(t, got.StartedAt.Equal(started))

	require.NoError(t, store.WithTx(ctx, func(repo storage.Repo) error {
		_, err := repo.GetAppointment(ctx, "owner-2", in.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	}))
}

func TestPostgresSeriesSlotIsUnique(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.WithTx(ctx, func(repo storage.Repo) error {
		created, err := repo.InsertOccurrence(ctx, occurrence("series-1", "2024-01-08"))
		require.NoError(t, err)
		assert.True(t, created)
		created, err = repo.InsertOccurrence(ctx, occurrence("series-1", "2024-01-08"))
		require.NoError(t, err)
		assert.False(t, created)
		return nil
	}))

	err := store.WithTx(ctx, func(repo storage.Repo) error {
		return repo.InsertAppointment(ctx, occurrence("series-2", "2024-01-08"))
	})
	require.ErrorIs(t, err, storage.ErrConflict)
	assert.True(t, postgres.IsUniqueViolation(err))

	// One-off rows and cancelled series rows sit outside the index.
	require.NoError(t, store.WithTx(ctx, func(repo storage.Repo) error {
		if err := repo.InsertAppointment(ctx, occurrence("", "2024-01-08")); err != nil {
			return err
		}
		cancelled := occurrence("series-3", "2024-01-08")
		cancelled.Status = model.StatusCancelled
		return repo.InsertAppointment(ctx, cancelled)
	}))
}

func TestPostgresUpsertTransactionKeepsSingleEntryAndStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	appt := occurrence("", "2024-01-08")

	require.NoError(t, store.WithTx(ctx, func(repo storage.Repo) error {
		require.NoError(t, repo.InsertAppointment(ctx, appt))
		first := &model.RevenueTransaction{
			OwnerID: "owner-1", AppointmentID: appt.ID, Type: model.TransactionRevenue,
			Status: model.TransactionPending, Amount: decimal.NewFromInt(100), DueDate: day("2024-01-08"),
		}
		require.NoError(t, repo.UpsertTransaction(ctx, first))
		_, err := repo.MarkTransactionsPaid(ctx, "owner-1", appt.ID, time.Date(2024, time.January, 9, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		second := &model.RevenueTransaction{
			OwnerID: "owner-1", AppointmentID: appt.ID, Type: model.TransactionRevenue,
			Status: model.TransactionPending, Amount: decimal.NewFromInt(120), DueDate: day("2024-01-10"),
		}
		require.NoError(t, repo.UpsertTransaction(ctx, second))
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, model.TransactionPaid, second.Status)
		assert.Equal(t, "120.00", second.Amount.StringFixed(2))
		assert.Equal(t, "2024-01-10", model.DayString(second.DueDate))

		txs, err := repo.ListTransactions(ctx, "owner-1", appt.ID)
		require.NoError(t, err)
		assert.Len(t, txs, 1)
		return nil
	}))
}

func TestPostgresLockSeriesSerializesWriters(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	acquired := make(chan struct{})
	var wg sync.WaitGroup

	require.NoError(t, store.WithTx(ctx, func(repo storage.Repo) error {
		require.NoError(t, repo.LockSeries(ctx, "owner-1", "series-1"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.WithTx(ctx, func(repo storage.Repo) error {
				if err := repo.LockSeries(ctx, "owner-1", "series-1"); err != nil {
					return err
				}
				close(acquired)
				return nil
			}))
		}()

		// A different series is not blocked.
		require.NoError(t, store.WithTx(ctx, func(other storage.Repo) error {
			return other.LockSeries(ctx, "owner-1", "series-2")
		}))

		select {
		case <-acquired:
			t.Fatal("second writer took the series lock while it was held")
		case <-time.After(200 * time.Millisecond):
		}
		return nil
	}))

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("second writer never took the series lock")
	}
	wg.Wait()
}
