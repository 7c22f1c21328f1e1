package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/visitbook/libs/config"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/lifecycle"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var ownerID, from, to string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Auto-finish a tenant's overdue appointments in a date range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ownerID == "" {
				return errors.New("--owner is required")
			}
			loc, err := config.Location("APP_TIMEZONE")
			if err != nil {
				return err
			}
			start, err := model.ParseDay(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end := model.AddDays(model.NormalizeDay(time.Now().In(loc)), 1)
			if to != "" {
				if end, err = model.ParseDay(to); err != nil {
					return fmt.Errorf("--to: %w", err)
				}
			}

			logger := loggerFor(cmd)
			store, err := openStore(cmd.Context(), cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			svc := lifecycle.NewService(store, logger, lifecycle.Config{Location: loc})
			n, err := svc.AutoFinish(cmd.Context(), ownerID, start, end)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "finished %d appointments\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&ownerID, "owner", "", "tenant owner id")
	cmd.Flags().StringVar(&from, "from", time.Now().AddDate(0, 0, -30).Format(model.DayLayout), "first day to sweep (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "day after the last one to sweep; defaults to tomorrow")
	return cmd
}
