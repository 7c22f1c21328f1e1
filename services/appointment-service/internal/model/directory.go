package model

import "github.com/shopspring/decimal"

// Customer is the slice of the customer directory the engine reads.
type Customer struct {
	ID          string
	OwnerID     string
	Name        string
	Notes       string
	ServiceType string
}

type PayoutMode string

const (
	PayoutFixed      PayoutMode = "FIXED"
	PayoutPercentage PayoutMode = "PERCENTAGE"
)

type HelperPayoutConfig struct {
	Mode  PayoutMode
	Value decimal.Decimal
}

type HelperKind string

const (
	HelperOwner  HelperKind = "owner"
	HelperMember HelperKind = "member"
)

// Helper is a worker that can be assigned to an appointment: either the tenant owner
// or one of their team members, both carrying a payout config.
type Helper struct {
	ID     string
	Name   string
	Kind   HelperKind
	Payout HelperPayoutConfig
}
