package handlers

import (
	"time"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/lifecycle"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/shopspring/decimal"
)

type createAppointmentRequest struct {
	CustomerID               string           `json:"customer_id"`
	AssignedHelperID         string           `json:"assigned_helper_id"`
	Date                     string           `json:"date"`
	StartTime                string           `json:"start_time"`
	EndTime                  string           `json:"end_time"`
	EstimatedDurationMinutes int              `json:"estimated_duration_minutes"`
	Price                    decimal.Decimal  `json:"price"`
	HelperFee                *decimal.Decimal `json:"helper_fee"`
	Status                   string           `json:"status"`
	IsRecurring              bool             `json:"is_recurring"`
	RecurrenceRule           string           `json:"recurrence_rule"`
	Notes                    string           `json:"notes"`
	ChecklistSnapshot        []string         `json:"checklist_snapshot"`
}

func (req createAppointmentRequest) input() lifecycle.CreateInput {
	in := lifecycle.CreateInput{
		CustomerID:               req.CustomerID,
		AssignedHelperID:         req.AssignedHelperID,
		Date:                     req.Date,
		StartTime:                req.StartTime,
		EndTime:                  req.EndTime,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		Price:                    req.Price,
		Status:                   model.Status(req.Status),
		IsRecurring:              req.IsRecurring,
		RecurrenceRule:           req.RecurrenceRule,
		Notes:                    req.Notes,
		ChecklistSnapshot:        req.ChecklistSnapshot,
	}
	if req.HelperFee != nil {
		in.HelperFee = decimal.NewNullDecimal(*req.HelperFee)
	}
	return in
}

// optionalFee tells an absent helper_fee from an explicit null, which asks for the fee
// to be recomputed.
type optionalFee struct {
	Set   bool
	Value decimal.NullDecimal
}

func (f *optionalFee) UnmarshalJSON(b []byte) error {
	f.Set = true
	return f.Value.UnmarshalJSON(b)
}

type updateAppointmentRequest struct {
	CustomerID               *string          `json:"customer_id"`
	AssignedHelperID         *string          `json:"assigned_helper_id"`
	Date                     *string          `json:"date"`
	StartTime                *string          `json:"start_time"`
	EndTime                  *string          `json:"end_time"`
	EstimatedDurationMinutes *int             `json:"estimated_duration_minutes"`
	Price                    *decimal.Decimal `json:"price"`
	HelperFee                optionalFee      `json:"helper_fee"`
	Notes                    *string          `json:"notes"`
	ChecklistSnapshot        *[]string        `json:"checklist_snapshot"`
}

func (req updateAppointmentRequest) input() lifecycle.UpdateInput {
	in := lifecycle.UpdateInput{
		CustomerID:               req.CustomerID,
		AssignedHelperID:         req.AssignedHelperID,
		Date:                     req.Date,
		StartTime:                req.StartTime,
		EndTime:                  req.EndTime,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		Price:                    req.Price,
		Notes:                    req.Notes,
		ChecklistSnapshot:        req.ChecklistSnapshot,
	}
	if req.HelperFee.Set {
		fee := req.HelperFee.Value
		in.HelperFee = &fee
	}
	return in
}

type customerResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ServiceType string `json:"service_type,omitempty"`
}

type helperResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type checklistItemResponse struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	SortOrder     int        `json:"sort_order"`
	CompletedAt   *time.Time `json:"completed_at"`
	CompletedByID *string    `json:"completed_by_id"`
}

type transactionResponse struct {
	ID      string     `json:"id"`
	Type    string     `json:"type"`
	Status  string     `json:"status"`
	Amount  string     `json:"amount"`
	DueDate string     `json:"due_date"`
	PaidAt  *time.Time `json:"paid_at,omitempty"`
}

type appointmentResponse struct {
	ID                       string                  `json:"id"`
	CustomerID               string                  `json:"customer_id"`
	AssignedHelperID         *string                 `json:"assigned_helper_id"`
	Date                     string                  `json:"date"`
	StartTime                string                  `json:"start_time"`
	EndTime                  string                  `json:"end_time,omitempty"`
	EstimatedDurationMinutes int                     `json:"estimated_duration_minutes"`
	Price                    string                  `json:"price"`
	HelperFee                *string                 `json:"helper_fee"`
	Status                   string                  `json:"status"`
	StartedAt                *time.Time              `json:"started_at,omitempty"`
	FinishedAt               *time.Time              `json:"finished_at,omitempty"`
	IsRecurring              bool                    `json:"is_recurring"`
	RecurrenceRule           string                  `json:"recurrence_rule,omitempty"`
	RecurrenceSeriesID       string                  `json:"recurrence_series_id,omitempty"`
	Notes                    string                  `json:"notes,omitempty"`
	ChecklistSnapshot        []string                `json:"checklist_snapshot,omitempty"`
	InvoiceToken             string                  `json:"invoice_token,omitempty"`
	InvoiceNumber            string                  `json:"invoice_number,omitempty"`
	InvoiceSentAt            *time.Time              `json:"invoice_sent_at,omitempty"`
	Customer                 *customerResponse       `json:"customer,omitempty"`
	Helper                   *helperResponse         `json:"helper,omitempty"`
	Checklist                []checklistItemResponse `json:"checklist,omitempty"`
	Transactions             []transactionResponse   `json:"transactions,omitempty"`
	CreatedAt                time.Time               `json:"created_at"`
	UpdatedAt                time.Time               `json:"updated_at"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toAppointment(a model.Appointment) appointmentResponse {
	resp := appointmentResponse{
		ID:                       a.ID,
		CustomerID:               a.CustomerID,
		AssignedHelperID:         a.AssignedHelperID,
		Date:                     model.DayString(a.Date),
		StartTime:                a.StartTime,
		EndTime:                  a.EndTime,
		EstimatedDurationMinutes: a.EstimatedDurationMinutes,
		Price:                    money(a.Price),
		Status:                   string(a.Status),
		StartedAt:                a.StartedAt,
		FinishedAt:               a.FinishedAt,
		IsRecurring:              a.IsRecurring,
		RecurrenceRule:           a.RecurrenceRule,
		RecurrenceSeriesID:       a.RecurrenceSeriesID,
		Notes:                    a.Notes,
		ChecklistSnapshot:        a.ChecklistSnapshot,
		InvoiceToken:             a.InvoiceToken,
		InvoiceNumber:            a.InvoiceNumber,
		InvoiceSentAt:            a.InvoiceSentAt,
		CreatedAt:                a.CreatedAt,
		UpdatedAt:                a.UpdatedAt,
	}
	if a.HelperFee.Valid {
		fee := money(a.HelperFee.Decimal)
		resp.HelperFee = &fee
	}
	if a.Customer != nil {
		resp.Customer = &customerResponse{ID: a.Customer.ID, Name: a.Customer.Name, ServiceType: a.Customer.ServiceType}
	}
	if a.Helper != nil {
		resp.Helper = &helperResponse{ID: a.Helper.ID, Name: a.Helper.Name, Kind: string(a.Helper.Kind)}
	}
	for _, item := range a.Checklist {
		resp.Checklist = append(resp.Checklist, toChecklistItem(item))
	}
	resp.Transactions = toTransactions(a.Transactions)
	return resp
}

func toAppointments(appts []model.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointment(a))
	}
	return out
}

func toChecklistItem(item model.ChecklistItem) checklistItemResponse {
	return checklistItemResponse{
		ID:            item.ID,
		Title:         item.Title,
		SortOrder:     item.SortOrder,
		CompletedAt:   item.CompletedAt,
		CompletedByID: item.CompletedByID,
	}
}

func toTransactions(txs []model.RevenueTransaction) []transactionResponse {
	var out []transactionResponse
	for _, tx := range txs {
		out = append(out, transactionResponse{
			ID:      tx.ID,
			Type:    string(tx.Type),
			Status:  string(tx.Status),
			Amount:  money(tx.Amount),
			DueDate: model.DayString(tx.DueDate),
			PaidAt:  tx.PaidAt,
		})
	}
	return out
}

type rangeResponse struct {
	From         string                `json:"from"`
	To           string                `json:"to"`
	Appointments []appointmentResponse `json:"appointments"`
}

func toRange(r lifecycle.Range) rangeResponse {
	return rangeResponse{
		From:         model.DayString(r.From),
		To:           model.DayString(r.To),
		Appointments: toAppointments(r.Appointments),
	}
}

type feeQuoteResponse struct {
	HelperID  string `json:"helper_id"`
	Price     string `json:"price"`
	HelperFee string `json:"helper_fee"`
}

type summaryResponse struct {
	HelperID      string `json:"helper_id"`
	Date          string `json:"date"`
	Scheduled     int    `json:"scheduled"`
	InProgress    int    `json:"in_progress"`
	Completed     int    `json:"completed"`
	Cancelled     int    `json:"cancelled"`
	TotalFees     string `json:"total_fees"`
	CompletedFees string `json:"completed_fees"`
}
