package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/solenne-institute/booking/internal/booking"
)

type PublicHandler struct {
	engine *booking.Engine
	logger *slog.Logger
}

func NewPublicHandler(engine *booking.Engine, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{engine: engine, logger: logger}
}

type serviceOptionItem struct {
	ServiceID           string `json:"service_id"`
	Name                string `json:"name"`
	DurationMinutes     int    `json:"duration_minutes"`
	Eligible            bool   `json:"eligible"`
	EffectivePriceCents int64  `json:"effective_price_cents"`
	Reason              string `json:"reason,omitempty"`
	BestPractitionerID  string `json:"best_practitioner_id,omitempty"`
}

func (h *PublicHandler) EligibleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	startRaw := strings.TrimSpace(r.URL.Query().Get("start"))
	if startRaw == "" {
		http.Error(w, "start is required", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	practitionerID := strings.TrimSpace(r.URL.Query().Get("practitioner_id"))

	options, err := h.engine.EligibleServices(r.Context(), start, practitionerID)
	if err != nil {
		h.logger.Error("eligible services lookup failed", "err", err)
		writeEngineError(w, err)
		return
	}

	items := make([]serviceOptionItem, 0, len(options))
	for _, opt := range options {
		items = append(items, serviceOptionItem{
			ServiceID:           opt.Service.ID,
			Name:                opt.Service.Name,
			DurationMinutes:     opt.Service.DurationMinutes,
			Eligible:            opt.Eligible,
			EffectivePriceCents: opt.EffectivePriceCents,
			Reason:              opt.Reason,
			BestPractitionerID:  opt.BestPractitionerID,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type freeStartItem struct {
	StartsAt        string   `json:"starts_at"`
	MaxFreeMinutes  int      `json:"max_free_minutes"`
	PractitionerIDs []string `json:"practitioner_ids"`
}

func (h *PublicHandler) FreeStarts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dateRaw := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateRaw == "" {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}
	day, err := time.ParseInLocation("2006-01-02", dateRaw, h.engine.Location())
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	serviceIDs := splitIDs(r.URL.Query().Get("service_ids"))
	if len(serviceIDs) == 0 {
		http.Error(w, "service_ids is required", http.StatusBadRequest)
		return
	}
	practitionerID := strings.TrimSpace(r.URL.Query().Get("practitioner_id"))

	starts, err := h.engine.FreeStarts(r.Context(), day, serviceIDs, practitionerID)
	if err != nil {
		if !booking.IsInvalidInput(err) {
			h.logger.Error("free starts lookup failed", "err", err)
		}
		writeEngineError(w, err)
		return
	}

	items := make([]freeStartItem, 0, len(starts))
	for _, fs := range starts {
		items = append(items, freeStartItem{
			StartsAt:        fs.StartsAt.UTC().Format(time.RFC3339),
			MaxFreeMinutes:  fs.MaxFreeMinutes,
			PractitionerIDs: fs.PractitionerIDs,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type bookRequest struct {
	StartsAt       string   `json:"starts_at"`
	ServiceIDs     []string `json:"service_ids"`
	PractitionerID string   `json:"practitioner_id"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Notes          string   `json:"notes"`
}

type bookResponse struct {
	AppointmentID    string `json:"appointment_id"`
	StartsAt         string `json:"starts_at"`
	EndsAt           string `json:"ends_at"`
	PractitionerName string `json:"practitioner_name"`
	Services         string `json:"services"`
}

func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartsAt))
	if err != nil {
		http.Error(w, "invalid starts_at", http.StatusBadRequest)
		return
	}

	result, err := h.engine.Book(r.Context(), booking.BookRequest{
		StartsAt:       startsAt,
		ServiceIDs:     trimAll(req.ServiceIDs),
		PractitionerID: strings.TrimSpace(req.PractitionerID),
		Client: booking.ClientInfo{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
		},
		Notes: strings.TrimSpace(req.Notes),
	})
	if err != nil {
		if !booking.IsInvalidInput(err) {
			h.logger.Error("booking failed", "err", err)
		}
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookResponse{
		AppointmentID:    result.AppointmentID,
		StartsAt:         result.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:           result.EndsAt.UTC().Format(time.RFC3339),
		PractitionerName: result.PractitionerName,
		Services:         result.ServiceSummary,
	})
}

func splitIDs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
