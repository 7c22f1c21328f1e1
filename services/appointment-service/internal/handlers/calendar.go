package handlers

import (
	"net/http"
	"strconv"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/apperr"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
)

func (h *Handler) Day(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Day(r.Context(), ownerID(r), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRange(view))
}

func (h *Handler) Week(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Week(r.Context(), ownerID(r), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRange(view))
}

func (h *Handler) Month(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Month(r.Context(), ownerID(r), r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRange(view))
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.DaySummary(r.Context(), ownerID(r), r.PathValue("id"), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		HelperID:      sum.HelperID,
		Date:          model.DayString(sum.Date),
		Scheduled:     sum.Scheduled,
		InProgress:    sum.InProgress,
		Completed:     sum.Completed,
		Cancelled:     sum.Cancelled,
		TotalFees:     money(sum.TotalFees),
		CompletedFees: money(sum.CompletedFees),
	})
}

func (h *Handler) QuoteFee(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("price")
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(w, apperr.InvalidInput("price %q is not a number", raw))
		return
	}
	fee, err := h.svc.QuoteFee(r.Context(), ownerID(r), r.PathValue("id"), price)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feeQuoteResponse{HelperID: r.PathValue("id"), Price: raw, HelperFee: money(fee)})
}
