// Package storagetest opens throwaway SQLite stores and seeds directory rows for tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Open returns a migrated store in t's temp dir, closed on cleanup.
func Open(t testing.TB) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "visitbook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Tenant is a directory fixture: the owner account, its team and its customers.
type Tenant struct {
	Owner     model.Helper
	Members   []model.Helper
	Customers []model.Customer
}

func (tn Tenant) OwnerID() string { return tn.Owner.ID }

// Seed writes the tenant's directory rows.
func Seed(t testing.TB, store storage.Store, tn Tenant) {
	t.Helper()
	err := store.WithTx(context.Background(), func(repo storage.Repo) error {
		if err := repo.SaveOwner(context.Background(), tn.Owner); err != nil {
			return err
		}
		for _, m := range tn.Members {
			if err := repo.SaveTeamMember(context.Background(), tn.Owner.ID, m); err != nil {
				return err
			}
		}
		for _, c := range tn.Customers {
			c.OwnerID = tn.Owner.ID
			if err := repo.SaveCustomer(context.Background(), c); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// DefaultTenant is owner-1 (FIXED 0) with a PERCENTAGE/25 member helper-1, a FIXED/35
// member helper-2 and customers cust-1 (weekly service) and cust-2.
func DefaultTenant() Tenant {
	return Tenant{
		Owner: model.Helper{
			ID:     "owner-1",
			Name:   "Olive Owner",
			Kind:   model.HelperOwner,
			Payout: model.HelperPayoutConfig{Mode: model.PayoutFixed, Value: decimal.Zero},
		},
		Members: []model.Helper{
			{
				ID:     "helper-1",
				Name:   "Hana Helper",
				Kind:   model.HelperMember,
				Payout: model.HelperPayoutConfig{Mode: model.PayoutPercentage, Value: decimal.NewFromInt(25)},
			},
			{
				ID:     "helper-2",
				Name:   "Hugo Helper",
				Kind:   model.HelperMember,
				Payout: model.HelperPayoutConfig{Mode: model.PayoutFixed, Value: decimal.NewFromInt(35)},
			},
		},
		Customers: []model.Customer{
			{ID: "cust-1", Name: "Casey Customer", ServiceType: "Weekly clean"},
			{ID: "cust-2", Name: "Drew Customer", Notes: "- Water the plants\n- Feed the cat"},
		},
	}
}

// OtherTenant shares no rows with DefaultTenant.
func OtherTenant() Tenant {
	return Tenant{
		Owner: model.Helper{
			ID:     "owner-2",
			Name:   "Other Owner",
			Kind:   model.HelperOwner,
			Payout: model.HelperPayoutConfig{Mode: model.PayoutFixed, Value: decimal.NewFromInt(10)},
		},
		Members: []model.Helper{
			{ID: "helper-9", Name: "Ivy", Kind: model.HelperMember, Payout: model.HelperPayoutConfig{Mode: model.PayoutFixed, Value: decimal.NewFromInt(5)}},
		},
		Customers: []model.Customer{{ID: "cust-9", Name: "Foreign Customer"}},
	}
}
