package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// directoryFile is the on-disk shape of a tenant directory fixture.
type directoryFile struct {
	Owner     helperEntry     `yaml:"owner"`
	Members   []helperEntry   `yaml:"members"`
	Customers []customerEntry `yaml:"customers"`
}

type helperEntry struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Payout struct {
		Mode  string `yaml:"mode"`
		Value string `yaml:"value"`
	} `yaml:"payout"`
}

type customerEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Notes       string `yaml:"notes"`
	ServiceType string `yaml:"service_type"`
}

type directory struct {
	Owner     model.Helper
	Members   []model.Helper
	Customers []model.Customer
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load owners, team members and customers from a YAML fixture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := loggerFor(cmd)
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			dir, err := parseDirectory(raw)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			if err := saveDirectory(ctx, store, dir); err != nil {
				return err
			}
			logger.Info("directory seeded", "owner_id", dir.Owner.ID, "members", len(dir.Members), "customers", len(dir.Customers))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML directory fixture")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseDirectory(raw []byte) (directory, error) {
	var f directoryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return directory{}, fmt.Errorf("parse seed file: %w", err)
	}
	if strings.TrimSpace(f.Owner.ID) == "" {
		return directory{}, errors.New("seed file: owner.id is required")
	}

	owner, err := f.Owner.helper(model.HelperOwner)
	if err != nil {
		return directory{}, err
	}
	dir := directory{Owner: owner}
	for _, m := range f.Members {
		h, err := m.helper(model.HelperMember)
		if err != nil {
			return directory{}, err
		}
		dir.Members = append(dir.Members, h)
	}
	for _, c := range f.Customers {
		if strings.TrimSpace(c.ID) == "" {
			return directory{}, errors.New("seed file: customer id is required")
		}
		dir.Customers = append(dir.Customers, model.Customer{
			ID:          c.ID,
			OwnerID:     owner.ID,
			Name:        c.Name,
			Notes:       c.Notes,
			ServiceType: c.ServiceType,
		})
	}
	return dir, nil
}

func (e helperEntry) helper(kind model.HelperKind) (model.Helper, error) {
	if strings.TrimSpace(e.ID) == "" {
		return model.Helper{}, fmt.Errorf("seed file: %s id is required", kind)
	}
	mode := model.PayoutMode(strings.ToUpper(strings.TrimSpace(e.Payout.Mode)))
	switch mode {
	case "":
		mode = model.PayoutFixed
	case model.PayoutFixed, model.PayoutPercentage:
	default:
		return model.Helper{}, fmt.Errorf("seed file: %s %s: unknown payout mode %q", kind, e.ID, e.Payout.Mode)
	}
	value := decimal.Zero
	if v := strings.TrimSpace(e.Payout.Value); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return model.Helper{}, fmt.Errorf("seed file: %s %s: payout value: %w", kind, e.ID, err)
		}
		value = d
	}
	return model.Helper{
		ID:     e.ID,
		Name:   e.Name,
		Kind:   kind,
		Payout: model.HelperPayoutConfig{Mode: mode, Value: value},
	}, nil
}

func saveDirectory(ctx context.Context, store storage.Store, dir directory) error {
	return store.WithTx(ctx, func(repo storage.Repo) error {
		if err := repo.SaveOwner(ctx, dir.Owner); err != nil {
			return err
		}
		for _, m := range dir.Members {
			if err := repo.SaveTeamMember(ctx, dir.Owner.ID, m); err != nil {
				return err
			}
		}
		for _, c := range dir.Customers {
			if err := repo.SaveCustomer(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
}
