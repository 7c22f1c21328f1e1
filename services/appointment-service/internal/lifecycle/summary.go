package lifecycle

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/apperr"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/payout"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
	"github.com/shopspring/decimal"
)

// DaySummary is a helper's workload for one day. Scheduled includes unconfirmed
// appointments. TotalFees covers every appointment that is not cancelled.
type DaySummary struct {
	HelperID      string
	Date          time.Time
	Scheduled     int
	InProgress    int
	Completed     int
	Cancelled     int
	TotalFees     decimal.Decimal
	CompletedFees decimal.Decimal
}

func (s *Service) DaySummary(ctx context.Context, ownerID, helperID, date string) (sum DaySummary, err error) {
	if err := requireOwner(ownerID); err != nil {
		return DaySummary{}, err
	}
	day, err := parseDay(date)
	if err != nil {
		return DaySummary{}, err
	}
	s.sweepQuietly(ctx, ownerID, day, model.AddDays(day, 1))

	ctx, span := s.span(ctx, "day_summary", ownerID, "")
	defer func() { err = s.done(span, "day_summary", ownerID, "", err) }()

	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		helper, err := s.helper(ctx, repo, ownerID, helperID)
		if err != nil {
			return err
		}
		appts, err := repo.ListAppointments(ctx, ownerID, storage.AppointmentFilter{
			From:     day,
			To:       model.AddDays(day, 1),
			HelperID: helper.ID,
		})
		if err != nil {
			return err
		}
		sum = summarize(helper.ID, day, appts)
		return nil
	})
	if err != nil {
		return DaySummary{}, err
	}
	return sum, nil
}

// QuoteFee previews what helperID would earn for an appointment priced at price. Nothing is
// stored. A price that is NaN or infinite is rejected.
func (s *Service) QuoteFee(ctx context.Context, ownerID, helperID string, price float64) (fee decimal.Decimal, err error) {
	if err := requireOwner(ownerID); err != nil {
		return decimal.Decimal{}, err
	}

	ctx, span := s.span(ctx, "quote_fee", ownerID, "")
	defer func() { err = s.done(span, "quote_fee", ownerID, "", err) }()

	err = s.store.WithTx(ctx, func(repo storage.Repo) error {
		helper, err := s.helper(ctx, repo, ownerID, helperID)
		if err != nil {
			return err
		}
		value, _ := helper.Payout.Value.Float64()
		quoted, ok := payout.ComputeFee(price, helper.Payout.Mode, value)
		if !ok {
			return apperr.InvalidInput("price must be a finite number")
		}
		fee = quoted
		return nil
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return fee, nil
}

func summarize(helperID string, day time.Time, appts []model.Appointment) DaySummary {
	sum := DaySummary{HelperID: helperID, Date: day, TotalFees: decimal.Zero, CompletedFees: decimal.Zero}
	for _, a := range appts {
		fee := decimal.Zero
		if a.HelperFee.Valid {
			fee = a.HelperFee.Decimal
		}
		switch a.Status {
		case model.StatusScheduled, model.StatusNotConfirmed:
			sum.Scheduled++
		case model.StatusInProgress:
			sum.InProgress++
		case model.StatusCompleted:
			sum.Completed++
			sum.CompletedFees = sum.CompletedFees.Add(fee)
		case model.StatusCancelled:
			sum.Cancelled++
			continue
		}
		sum.TotalFees = sum.TotalFees.Add(fee)
	}
	return sum
}
