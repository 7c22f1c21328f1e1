package main

import (
	"context"
	"testing"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `
owner:
  id: owner-9
  name: Nora
members:
  - id: helper-9
    name: Ivo
    payout:
      mode: percentage
      value: "30"
customers:
  - id: cust-9
    name: Mr Park
    notes: Spare key under the mat
    service_type: Biweekly clean
`

func TestParseDirectory(t *testing.T) {
	dir, err := parseDirectory([]byte(fixture))
	require.NoError(t, err)

	assert.Equal(t, model.HelperOwner, dir.Owner.Kind)
	assert.Equal(t, model.PayoutFixed, dir.Owner.Payout.Mode)
	assert.True(t, dir.Owner.Payout.Value.IsZero())

	require.Len(t, dir.Members, 1)
	assert.Equal(t, model.PayoutPercentage, dir.Members[0].Payout.Mode)
	assert.Equal(t, "30", dir.Members[0].Payout.Value.String())

	require.Len(t, dir.Customers, 1)
	assert.Equal(t, "owner-9", dir.Customers[0].OwnerID)
	assert.Equal(t, "Biweekly clean", dir.Customers[0].ServiceType)
}

func TestParseDirectoryRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"missing owner": "members: []\n",
		"bad mode":      "owner: {id: o, payout: {mode: hourly}}\n",
		"bad value":     "owner: {id: o, payout: {mode: fixed, value: ten}}\n",
		"customer id":   "owner: {id: o}\ncustomers: [{name: x}]\n",
		"not yaml":      "owner: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseDirectory([]byte(raw)); err == nil {
				t.Fatalf("expected error for %q", raw)
			}
		})
	}
}

func TestSaveDirectory(t *testing.T) {
	ctx := context.Background()
	store := storagetest.Open(t)
	dir, err := parseDirectory([]byte(fixture))
	require.NoError(t, err)
	require.NoError(t, saveDirectory(ctx, store, dir))

	err = store.WithTx(ctx, func(repo storage.Repo) error {
		c, err := repo.GetCustomer(ctx, "owner-9", "cust-9")
		if err != nil {
			return err
		}
		assert.Equal(t, "Spare key under the mat", c.Notes)

		h, err := repo.ResolveHelper(ctx, "owner-9", "helper-9")
		if err != nil {
			return err
		}
		assert.Equal(t, model.HelperMember, h.Kind)

		owner, err := repo.ResolveHelper(ctx, "owner-9", "owner-9")
		if err != nil {
			return err
		}
		assert.Equal(t, model.HelperOwner, owner.Kind)
		return nil
	})
	require.NoError(t, err)
}
