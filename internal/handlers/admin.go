package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/solenne-institute/booking/internal/model"
	"github.com/solenne-institute/booking/internal/schedule"
	"github.com/solenne-institute/booking/internal/storage"
)

// AdminHandler manages the catalog and the schedule. These endpoints sit
// behind the operator's network boundary; they carry no auth of their own.
type AdminHandler struct {
	store    *storage.Store
	resolver *schedule.Resolver
	logger   *slog.Logger
}

func NewAdminHandler(store *storage.Store, resolver *schedule.Resolver, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{store: store, resolver: resolver, logger: logger}
}

type createServiceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	BasePriceCents  int64  `json:"base_price_cents"`
}

func (h *AdminHandler) Services(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		services, err := h.store.ListActiveServices(r.Context())
		if err != nil {
			h.logger.Error("list services failed", "err", err)
			http.Error(w, "failed to list services", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, services)
	case http.MethodPost:
		var req createServiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || req.DurationMinutes <= 0 || req.BasePriceCents < 0 {
			http.Error(w, "name, positive duration_minutes and non-negative base_price_cents required", http.StatusBadRequest)
			return
		}
		id, err := h.store.CreateService(r.Context(), req.Name, req.DurationMinutes, req.BasePriceCents)
		if err != nil {
			h.logger.Error("create service failed", "err", err)
			http.Error(w, "failed to create service", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"service_id": id})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createPractitionerRequest struct {
	DisplayName string `json:"display_name"`
}

func (h *AdminHandler) Practitioners(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		practitioners, err := h.store.ListActivePractitioners(r.Context())
		if err != nil {
			h.logger.Error("list practitioners failed", "err", err)
			http.Error(w, "failed to list practitioners", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, practitioners)
	case http.MethodPost:
		var req createPractitionerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.DisplayName = strings.TrimSpace(req.DisplayName)
		if req.DisplayName == "" {
			http.Error(w, "display_name required", http.StatusBadRequest)
			return
		}
		id, err := h.store.CreatePractitioner(r.Context(), req.DisplayName)
		if err != nil {
			h.logger.Error("create practitioner failed", "err", err)
			http.Error(w, "failed to create practitioner", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"practitioner_id": id})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type upsertLinkRequest struct {
	ServiceID          string `json:"service_id"`
	PractitionerID     string `json:"practitioner_id"`
	PriceCentsOverride *int64 `json:"price_cents_override"`
	DiscountPercent    *int   `json:"discount_percent"`
}

func (h *AdminHandler) Links(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req upsertLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.PractitionerID = strings.TrimSpace(req.PractitionerID)
	if req.ServiceID == "" || req.PractitionerID == "" {
		http.Error(w, "service_id and practitioner_id required", http.StatusBadRequest)
		return
	}
	if req.PriceCentsOverride != nil && req.DiscountPercent != nil {
		http.Error(w, "price_cents_override and discount_percent are mutually exclusive", http.StatusBadRequest)
		return
	}
	if req.PriceCentsOverride != nil && *req.PriceCentsOverride < 0 {
		http.Error(w, "price_cents_override must be non-negative", http.StatusBadRequest)
		return
	}
	if req.DiscountPercent != nil && (*req.DiscountPercent <= 0 || *req.DiscountPercent > 100) {
		http.Error(w, "discount_percent must be in 1..100", http.StatusBadRequest)
		return
	}

	if err := h.store.UpsertLink(r.Context(), req.ServiceID, req.PractitionerID, req.PriceCentsOverride, req.DiscountPercent); err != nil {
		h.logger.Error("upsert link failed", "err", err)
		http.Error(w, "failed to save link", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

type upsertRuleRequest struct {
	ID             string `json:"id"`
	PractitionerID string `json:"practitioner_id"`
	Weekday        int    `json:"weekday"`
	StartMinute    int    `json:"start_minute"`
	EndMinute      int    `json:"end_minute"`
	Active         *bool  `json:"active"`
	EffectiveFrom  string `json:"effective_from"`
	EffectiveTo    string `json:"effective_to"`
}

func (h *AdminHandler) Rules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rules, err := h.store.ListRules(r.Context())
		if err != nil {
			h.logger.Error("list rules failed", "err", err)
			http.Error(w, "failed to list rules", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rules)
	case http.MethodPost:
		var req upsertRuleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		if req.Weekday < 0 || req.Weekday > 6 {
			http.Error(w, "weekday must be in 0..6 (Sunday=0)", http.StatusBadRequest)
			return
		}
		if req.StartMinute < 0 || req.EndMinute > 24*60 || req.EndMinute <= req.StartMinute {
			http.Error(w, "start_minute and end_minute must form a window inside the day", http.StatusBadRequest)
			return
		}

		rule := schedule.WeeklyRule{
			ID:             strings.TrimSpace(req.ID),
			PractitionerID: strings.TrimSpace(req.PractitionerID),
			Weekday:        time.Weekday(req.Weekday),
			StartMinute:    req.StartMinute,
			EndMinute:      req.EndMinute,
			Active:         true,
		}
		if req.Active != nil {
			rule.Active = *req.Active
		}
		var err error
		if rule.EffectiveFrom, err = parseOptionalDate(req.EffectiveFrom); err != nil {
			http.Error(w, "invalid effective_from", http.StatusBadRequest)
			return
		}
		if rule.EffectiveTo, err = parseOptionalDate(req.EffectiveTo); err != nil {
			http.Error(w, "invalid effective_to", http.StatusBadRequest)
			return
		}

		id, err := h.store.UpsertRule(r.Context(), rule)
		if err != nil {
			h.logger.Error("upsert rule failed", "err", err)
			http.Error(w, "failed to save rule", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"rule_id": id})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createTimeOffRequest struct {
	PractitionerID string `json:"practitioner_id"`
	StartsAt       string `json:"starts_at"`
	EndsAt         string `json:"ends_at"`
	AllDay         bool   `json:"all_day"`
	Reason         string `json:"reason"`
}

func (h *AdminHandler) TimeOff(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createTimeOffRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.PractitionerID = strings.TrimSpace(req.PractitionerID)
		if req.PractitionerID == "" {
			http.Error(w, "practitioner_id required", http.StatusBadRequest)
			return
		}
		startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartsAt))
		if err != nil {
			http.Error(w, "invalid starts_at", http.StatusBadRequest)
			return
		}
		endsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndsAt))
		if err != nil {
			http.Error(w, "invalid ends_at", http.StatusBadRequest)
			return
		}
		if !endsAt.After(startsAt) {
			http.Error(w, "ends_at must be after starts_at", http.StatusBadRequest)
			return
		}
		if req.AllDay {
			startsAt, endsAt = allDayBounds(h.resolver, startsAt, endsAt)
		}

		id, err := h.store.CreateTimeOff(r.Context(), model.TimeOff{
			PractitionerID: req.PractitionerID,
			StartsAt:       startsAt,
			EndsAt:         endsAt,
			AllDay:         req.AllDay,
			Reason:         strings.TrimSpace(req.Reason),
		})
		if err != nil {
			h.logger.Error("create time off failed", "err", err)
			http.Error(w, "failed to create time off", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"time_off_id": id})
	case http.MethodDelete:
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			http.Error(w, "id required", http.StatusBadRequest)
			return
		}
		if err := h.store.DeleteTimeOff(r.Context(), id); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "time off not found", http.StatusNotFound)
				return
			}
			h.logger.Error("delete time off failed", "err", err)
			http.Error(w, "failed to delete time off", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// allDayBounds widens an all-day blackout to whole civil days in the
// institute timezone, so the stored window blocks the full day regardless of
// the instants the operator sent. An end landing exactly on midnight keeps
// that midnight; anything later rounds up to the next one.
func allDayBounds(r *schedule.Resolver, startsAt, endsAt time.Time) (time.Time, time.Time) {
	loc := r.Location()
	dayStart, _ := r.DayBounds(startsAt.In(loc))
	_, dayEnd := r.DayBounds(endsAt.Add(-time.Nanosecond).In(loc))
	return dayStart, dayEnd
}

func parseOptionalDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
