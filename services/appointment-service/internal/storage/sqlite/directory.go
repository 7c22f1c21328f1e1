package sqlite

import (
	"context"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
	"github.com/shopspring/decimal"
)

func (r *repo) GetCustomer(ctx context.Context, ownerID, customerID string) (model.Customer, error) {
	var c model.Customer
	err := r.tx.QueryRowContext(ctx, `
		SELECT id, owner_id, name, notes, service_type
		FROM customers
		WHERE id = ? AND owner_id = ?
	`, customerID, ownerID).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Notes, &c.ServiceType)
	if err != nil {
		return model.Customer{}, mapErr(err)
	}
	return c, nil
}

func (r *repo) ResolveHelper(ctx context.Context, ownerID, helperID string) (model.Helper, error) {
	var (
		h           model.Helper
		kind, mode  string
		payoutValue string
	)
	err := r.tx.QueryRowContext(ctx, `
		SELECT id, name, 'member', payout_mode, payout_value
		FROM team_members
		WHERE owner_id = ?1 AND id = ?2
		UNION ALL
		SELECT id, name, 'owner', payout_mode, payout_value
		FROM owners
		WHERE id = ?1 AND id = ?2
		LIMIT 1
	`, ownerID, helperID).Scan(&h.ID, &h.Name, &kind, &mode, &payoutValue)
	if err != nil {
		return model.Helper{}, mapErr(err)
	}
	h.Kind = model.HelperKind(kind)
	h.Payout.Mode = model.PayoutMode(mode)
	if h.Payout.Value, err = decimal.NewFromString(payoutValue); err != nil {
		return model.Helper{}, err
	}
	return h, nil
}

func (r *repo) SaveOwner(ctx context.Context, owner model.Helper) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO owners (id, name, payout_mode, payout_value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name, payout_mode = excluded.payout_mode, payout_value = excluded.payout_value
	`, owner.ID, owner.Name, string(payoutMode(owner.Payout.Mode)), owner.Payout.Value.String())
	return mapErr(err)
}

func (r *repo) SaveTeamMember(ctx context.Context, ownerID string, member model.Helper) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO team_members (id, owner_id, name, payout_mode, payout_value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name, payout_mode = excluded.payout_mode, payout_value = excluded.payout_value
		WHERE team_members.owner_id = excluded.owner_id
	`, member.ID, ownerID, member.Name, string(payoutMode(member.Payout.Mode)), member.Payout.Value.String())
	return mapErr(err)
}

func (r *repo) SaveCustomer(ctx context.Context, c model.Customer) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO customers (id, owner_id, name, notes, service_type)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name, notes = excluded.notes, service_type = excluded.service_type
		WHERE customers.owner_id = excluded.owner_id
	`, c.ID, c.OwnerID, c.Name, c.Notes, c.ServiceType)
	return mapErr(err)
}

func payoutMode(m model.PayoutMode) model.PayoutMode {
	if m == "" {
		return model.PayoutFixed
	}
	return m
}

var _ storage.DirectoryRepo = (*repo)(nil)
