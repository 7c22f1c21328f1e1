package lifecycle

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/apperr"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/checklist"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
)

func (s *Service) AddChecklistItem(ctx context.Context, ownerID, appointmentID, title string) (item model.ChecklistItem, err error) {
	ctx, span := s.span(ctx, "add_checklist_item", ownerID, appointmentID)
	defer func() { err = s.done(span, "add_checklist_item", ownerID, appointmentID, err) }()

	if err := requireOwner(ownerID); err != nil {
		return model.ChecklistItem{}, err
	}
	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		if _, err := s.lockAppointment(ctx, repo, ownerID, appointmentID); err != nil {
			return err
		}
		item, err = s.checklist.AddItem(ctx, repo, appointmentID, title)
		if errors.Is(err, checklist.ErrEmptyTitle) {
			return apperr.InvalidInput("checklist item title is required")
		}
		return err
	})
	if err != nil {
		return model.ChecklistItem{}, err
	}
	return item, nil
}

// ToggleChecklistItem flips an item's completion, recording userID as the completer.
func (s *Service) ToggleChecklistItem(ctx context.Context, ownerID, itemID, userID string) (item model.ChecklistItem, err error) {
	ctx, span := s.span(ctx, "toggle_checklist_item", ownerID, "")
	defer func() { err = s.done(span, "toggle_checklist_item", ownerID, "", err) }()

	if err := requireOwner(ownerID); err != nil {
		return model.ChecklistItem{}, err
	}
	if userID == "" {
		userID = ownerID
	}
	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		item, err = s.checklist.Toggle(ctx, repo, ownerID, itemID, userID, s.now())
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.ChecklistItemNotFound(itemID)
		}
		return err
	})
	if err != nil {
		return model.ChecklistItem{}, err
	}
	return item, nil
}

// MarkRevenuePaid settles the appointment's pending ledger entries and returns the
// resulting entries.
func (s *Service) MarkRevenuePaid(ctx context.Context, ownerID, appointmentID string) (txs []model.RevenueTransaction, err error) {
	ctx, span := s.span(ctx, "mark_revenue_paid", ownerID, appointmentID)
	defer func() { err = s.done(span, "mark_revenue_paid", ownerID, appointmentID, err) }()

	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		if _, err := s.lockAppointment(ctx, repo, ownerID, appointmentID); err != nil {
			return err
		}
		if _, err := s.ledger.MarkPaid(ctx, repo, ownerID, appointmentID, s.now().UTC()); err != nil {
			return err
		}
		txs, err = s.ledger.List(ctx, repo, ownerID, appointmentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}
