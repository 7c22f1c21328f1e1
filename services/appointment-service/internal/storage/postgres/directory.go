package postgres

import (
	"context"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/shopspring/decimal"
)

func (r *repo) GetCustomer(ctx context.Context, ownerID, customerID string) (model.Customer, error) {
	var c model.Customer
	err := r.tx.QueryRow(ctx, `
		SELECT id, owner_id, name, notes, service_type
		FROM customers
		WHERE id = $1 AND owner_id = $2
	`, customerID, ownerID).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Notes, &c.ServiceType)
	if err != nil {
		return model.Customer{}, mapErr(err)
	}
	return c, nil
}

func (r *repo) ResolveHelper(ctx context.Context, ownerID, helperID string) (model.Helper, error) {
	var (
		h                  model.Helper
		kind, mode, amount string
	)
	err := r.tx.QueryRow(ctx, `
		SELECT id, name, 'member', payout_mode, payout_value::text
		FROM team_members
		WHERE owner_id = $1 AND id = $2
		UNION ALL
		SELECT id, name, 'owner', payout_mode, payout_value::text
		FROM owners
		WHERE id = $1 AND id = $2
		LIMIT 1
	`, ownerID, helperID).Scan(&h.ID, &h.Name, &kind, &mode, &amount)
	if err != nil {
		return model.Helper{}, mapErr(err)
	}
	h.Kind = model.HelperKind(kind)
	h.Payout.Mode = model.PayoutMode(mode)
	if h.Payout.Value, err = decimal.NewFromString(amount); err != nil {
		return model.Helper{}, err
	}
	return h, nil
}

func (r *repo) SaveOwner(ctx context.Context, owner model.Helper) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO owners (id, name, payout_mode, payout_value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, payout_mode = EXCLUDED.payout_mode, payout_value = EXCLUDED.payout_value
	`, owner.ID, owner.Name, string(payoutMode(owner.Payout.Mode)), owner.Payout.Value.String())
	return mapErr(err)
}

func (r *repo) SaveTeamMember(ctx context.Context, ownerID string, member model.Helper) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO team_members (id, owner_id, name, payout_mode, payout_value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, payout_mode = EXCLUDED.payout_mode, payout_value = EXCLUDED.payout_value
		WHERE team_members.owner_id = EXCLUDED.owner_id
	`, member.ID, ownerID, member.Name, string(payoutMode(member.Payout.Mode)), member.Payout.Value.String())
	return mapErr(err)
}

func (r *repo) SaveCustomer(ctx context.Context, c model.Customer) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO customers (id, owner_id, name, notes, service_type)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, notes = EXCLUDED.notes, service_type = EXCLUDED.service_type
		WHERE customers.owner_id = EXCLUDED.owner_id
	`, c.ID, c.OwnerID, c.Name, c.Notes, c.ServiceType)
	return mapErr(err)
}

func payoutMode(m model.PayoutMode) model.PayoutMode {
	if m == "" {
		return model.PayoutFixed
	}
	return m
}
