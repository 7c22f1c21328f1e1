package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusNotConfirmed Status = "NOT_CONFIRMED"
	StatusScheduled    Status = "SCHEDULED"
	StatusInProgress   Status = "IN_PROGRESS"
	StatusCompleted    Status = "COMPLETED"
	StatusCancelled    Status = "CANCELLED"
)

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusNotConfirmed, StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID                       string
	OwnerID                  string
	CustomerID               string
	AssignedHelperID         *string
	Date                     time.Time
	StartTime                string
	EndTime                  string
	EstimatedDurationMinutes int
	Price                    decimal.Decimal
	HelperFee                decimal.NullDecimal
	Status                   Status
	StartedAt                *time.Time
	FinishedAt               *time.Time
	IsRecurring              bool
	RecurrenceRule           string
	RecurrenceSeriesID       string
	// SeriesAnchorDate is the anchor's calendar day, copied onto every member when it is
	// generated. Zero on one-off appointments and legacy rows.
	SeriesAnchorDate         time.Time
	Notes                    string
	ChecklistSnapshot        []string
	InvoiceToken             string
	InvoiceNumber            string
	InvoiceSentAt            *time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time

	// Relations, populated on detail reads only.
	Customer     *Customer
	Helper       *Helper
	Checklist    []ChecklistItem
	Transactions []RevenueTransaction
}

// SeriesKey is the id shared by an anchor and its occurrences.
func (a Appointment) SeriesKey() string {
	if a.RecurrenceSeriesID != "" {
		return a.RecurrenceSeriesID
	}
	return a.ID
}

func (a Appointment) HelperID() string {
	if a.AssignedHelperID == nil {
		return ""
	}
	return *a.AssignedHelperID
}

type ChecklistItem struct {
	ID            string
	AppointmentID string
	Title         string
	SortOrder     int
	CompletedAt   *time.Time
	CompletedByID *string
	CreatedAt     time.Time
}

func (c ChecklistItem) Done() bool {
	return c.CompletedAt != nil
}
