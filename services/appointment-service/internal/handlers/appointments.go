// Package handlers exposes the appointment engine over HTTP. Every route is tenant
// scoped by the owner id the auth middleware places on the request.
package handlers

import (
	"context"
	"net/http"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/lifecycle"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
)

type Handler struct {
	svc *lifecycle.Service
}

func New(svc *lifecycle.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/appointments", h.Create)
	mux.HandleFunc("GET /api/v1/appointments/{id}", h.Get)
	mux.HandleFunc("PATCH /api/v1/appointments/{id}", h.Update)
	mux.HandleFunc("DELETE /api/v1/appointments/{id}", h.DeleteOne)
	mux.HandleFunc("DELETE /api/v1/appointments/{id}/series", h.DeleteSeries)
	mux.HandleFunc("POST /api/v1/appointments/{id}/status", h.SetStatus)
	mux.HandleFunc("POST /api/v1/appointments/{id}/start", h.transition(h.svc.Start))
	mux.HandleFunc("POST /api/v1/appointments/{id}/finish", h.transition(h.svc.Finish))
	mux.HandleFunc("POST /api/v1/appointments/{id}/cancel", h.transition(h.svc.Cancel))
	mux.HandleFunc("POST /api/v1/appointments/{id}/checklist", h.AddChecklistItem)
	mux.HandleFunc("POST /api/v1/appointments/{id}/ledger/paid", h.MarkPaid)
	mux.HandleFunc("POST /api/v1/checklist/{itemId}/toggle", h.ToggleChecklistItem)
	mux.HandleFunc("GET /api/v1/calendar/day", h.Day)
	mux.HandleFunc("GET /api/v1/calendar/week", h.Week)
	mux.HandleFunc("GET /api/v1/calendar/month", h.Month)
	mux.HandleFunc("GET /api/v1/helpers/{id}/summary", h.Summary)
	mux.HandleFunc("GET /api/v1/helpers/{id}/fee", h.QuoteFee)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	appt, err := h.svc.Create(r.Context(), ownerID(r), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointment(appt))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Get(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointment(appt))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	appt, err := h.svc.Update(r.Context(), ownerID(r), r.PathValue("id"), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointment(appt))
}

func (h *Handler) DeleteOne(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.DeleteOne(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": []string{appt.ID}})
}

func (h *Handler) DeleteSeries(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteSeries(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	ids := make([]string, 0, len(deleted))
	for _, appt := range deleted {
		ids = append(ids, appt.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": ids})
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	appt, err := h.svc.SetStatus(r.Context(), ownerID(r), r.PathValue("id"), model.Status(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointment(appt))
}

type transitionFunc func(ctx context.Context, ownerID, id string) (model.Appointment, error)

func (h *Handler) transition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := fn(r.Context(), ownerID(r), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointment(appt))
	}
}

func (h *Handler) AddChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	item, err := h.svc.AddChecklistItem(r.Context(), ownerID(r), r.PathValue("id"), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChecklistItem(item))
}

func (h *Handler) ToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.ToggleChecklistItem(r.Context(), ownerID(r), r.PathValue("itemId"), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChecklistItem(item))
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.MarkRevenuePaid(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": toTransactions(txs)})
}
