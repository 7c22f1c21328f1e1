package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionRevenue TransactionType = "REVENUE"
	TransactionExpense TransactionType = "EXPENSE"
	TransactionTip     TransactionType = "TIP"
)

type TransactionStatus string

const (
	TransactionPending TransactionStatus = "PENDING"
	TransactionPaid    TransactionStatus = "PAID"
)

// RevenueTransaction is a ledger entry. There is at most one per (AppointmentID, Type).
type RevenueTransaction struct {
	ID            string
	OwnerID       string
	AppointmentID string
	Type          TransactionType
	Status        TransactionStatus
	Amount        decimal.Decimal
	DueDate       time.Time
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
