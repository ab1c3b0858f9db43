package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/solenne-institute/booking/internal/booking"
	"github.com/solenne-institute/booking/internal/storage"
)

type AppointmentHandler struct {
	engine *booking.Engine
	store  *storage.Store
	logger *slog.Logger
}

func NewAppointmentHandler(engine *booking.Engine, store *storage.Store, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{engine: engine, store: store, logger: logger}
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Reason = strings.TrimSpace(req.Reason)

	if err := h.engine.Cancel(r.Context(), req.AppointmentID, req.Reason); err != nil {
		if !booking.IsInvalidInput(err) {
			h.logger.Error("cancel failed", "appointment_id", req.AppointmentID, "err", err)
		}
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"appointment_id": req.AppointmentID,
		"status":         "cancelled",
	})
}

type rescheduleRequest struct {
	AppointmentID string `json:"appointment_id"`
	StartsAt      string `json:"starts_at"`
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	newStart, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartsAt))
	if err != nil {
		http.Error(w, "invalid starts_at", http.StatusBadRequest)
		return
	}

	if err := h.engine.Reschedule(r.Context(), req.AppointmentID, newStart); err != nil {
		if !booking.IsInvalidInput(err) {
			h.logger.Error("reschedule failed", "appointment_id", req.AppointmentID, "err", err)
		}
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"appointment_id": req.AppointmentID,
		"starts_at":      newStart.UTC().Format(time.RFC3339),
	})
}

type appointmentItem struct {
	AppointmentID  string `json:"appointment_id"`
	PractitionerID string `json:"practitioner_id"`
	StartsAt       string `json:"starts_at"`
	EndsAt         string `json:"ends_at"`
	Status         string `json:"status"`
	CancelledAt    string `json:"cancelled_at,omitempty"`
	CancelReason   string `json:"cancel_reason,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	appts, err := h.store.ListAppointments(r.Context(), limit)
	if err != nil {
		h.logger.Error("list appointments failed", "err", err)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		item := appointmentItem{
			AppointmentID:  a.ID,
			PractitionerID: a.PractitionerID,
			StartsAt:       a.StartsAt.UTC().Format(time.RFC3339),
			EndsAt:         a.EndsAt.UTC().Format(time.RFC3339),
			Status:         string(a.Status),
			CancelReason:   a.CancelReason,
			CreatedAt:      a.CreatedAt.UTC().Format(time.RFC3339),
		}
		if a.CancelledAt != nil {
			item.CancelledAt = a.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}
