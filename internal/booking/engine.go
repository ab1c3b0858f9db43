// Package booking orchestrates the transactional reservation path: it is
// the only write path into the appointment tables.
package booking

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/solenne-institute/booking/internal/eligibility"
	"github.com/solenne-institute/booking/internal/interval"
	"github.com/solenne-institute/booking/internal/model"
	"github.com/solenne-institute/booking/internal/outbox"
	"github.com/solenne-institute/booking/internal/schedule"
	"github.com/solenne-institute/booking/internal/storage"
)

type Engine struct {
	store    *storage.Store
	resolver *schedule.Resolver
	outbox   *outbox.Repository
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time
}

type Config struct {
	// Timeout bounds one booking attempt's wall clock, store round trips
	// included. The transaction aborts rather than hang the caller.
	Timeout time.Duration
	// Now is overridable in tests.
	Now func() time.Time
}

func NewEngine(store *storage.Store, resolver *schedule.Resolver, outboxRepo *outbox.Repository, logger *slog.Logger, cfg Config) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		store:    store,
		resolver: resolver,
		outbox:   outboxRepo,
		logger:   logger,
		timeout:  cfg.Timeout,
		now:      cfg.Now,
	}
}

// Location exposes the institute timezone for callers parsing civil dates.
func (e *Engine) Location() *time.Location {
	return e.resolver.Location()
}

type ClientInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

type BookRequest struct {
	StartsAt       time.Time
	ServiceIDs     []string
	PractitionerID string // empty = let the engine choose
	Client         ClientInfo
	Notes          string
}

type BookResult struct {
	AppointmentID    string
	StartsAt         time.Time
	EndsAt           time.Time
	PractitionerName string
	ServiceSummary   string
}

// Book runs one booking attempt inside a single serializable transaction.
// Two concurrent attempts on overlapping slots for the same practitioner
// cannot both commit: the store aborts one with a serialization error,
// surfaced here as ErrSlotConflict and never retried silently.
func (e *Engine) Book(ctx context.Context, req BookRequest) (BookResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tx, err := e.store.BeginBooking(ctx)
	if err != nil {
		return BookResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	services, err := e.validate(ctx, tx, req)
	if err != nil {
		return BookResult{}, err
	}

	candidateIDs, prices, err := e.resolveCandidates(ctx, tx, req, services)
	if err != nil {
		return BookResult{}, err
	}

	requiredMinutes := 0
	for _, id := range req.ServiceIDs {
		requiredMinutes += services[id].DurationMinutes
	}

	winner, err := e.checkAvailability(ctx, tx, req, candidateIDs, prices, requiredMinutes)
	if err != nil {
		return BookResult{}, err
	}

	clientID, err := e.resolveClient(ctx, tx, req.Client)
	if err != nil {
		return BookResult{}, err
	}

	endsAt := req.StartsAt.Add(time.Duration(requiredMinutes) * time.Minute)
	appt := &model.Appointment{
		ClientID:       clientID,
		PractitionerID: winner,
		StartsAt:       req.StartsAt,
		EndsAt:         endsAt,
		Status:         model.StatusConfirmed,
		Notes:          req.Notes,
	}
	for i, id := range req.ServiceIDs {
		appt.Items = append(appt.Items, model.AppointmentItem{
			ServiceID:       id,
			Position:        i,
			DurationMinutes: services[id].DurationMinutes,
			PriceCents:      prices[winner][id],
		})
	}

	apptID, err := e.store.InsertAppointment(ctx, tx, appt)
	if err != nil {
		return BookResult{}, e.classify(err)
	}

	practitioner, err := e.store.PractitionerByID(ctx, tx, winner)
	if err != nil {
		return BookResult{}, err
	}

	if err := e.writeBookedEvent(ctx, tx, apptID, appt); err != nil {
		return BookResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return BookResult{}, e.classify(err)
	}

	e.logger.Info("appointment booked",
		"appointment_id", apptID,
		"practitioner_id", winner,
		"starts_at", appt.StartsAt,
		"services", len(appt.Items),
	)

	return BookResult{
		AppointmentID:    apptID,
		StartsAt:         appt.StartsAt,
		EndsAt:           appt.EndsAt,
		PractitionerName: practitioner.DisplayName,
		ServiceSummary:   serviceSummary(req.ServiceIDs, services),
	}, nil
}

// validate checks the request against the catalog: all services exist and
// are active, and a pinned practitioner exists and is active.
func (e *Engine) validate(ctx context.Context, tx pgx.Tx, req BookRequest) (map[string]model.Service, error) {
	if req.StartsAt.IsZero() {
		return nil, invalidInput("start instant is required")
	}
	if len(req.ServiceIDs) == 0 {
		return nil, invalidInput("at least one service is required")
	}
	seen := map[string]bool{}
	for _, id := range req.ServiceIDs {
		if id == "" {
			return nil, invalidInput("empty service id")
		}
		if seen[id] {
			return nil, invalidInput("duplicate service id %s", id)
		}
		seen[id] = true
	}

	loaded, err := e.store.ServicesByIDs(ctx, tx, req.ServiceIDs)
	if err != nil {
		return nil, err
	}
	services := make(map[string]model.Service, len(loaded))
	for _, svc := range loaded {
		services[svc.ID] = svc
	}
	for _, id := range req.ServiceIDs {
		svc, ok := services[id]
		if !ok {
			return nil, invalidInput("unknown service %s", id)
		}
		if !svc.Active {
			return nil, invalidInput("service %s is not bookable", id)
		}
	}

	if req.PractitionerID != "" {
		p, err := e.store.PractitionerByID(ctx, tx, req.PractitionerID)
		if storage.IsNotFound(err) {
			return nil, invalidInput("unknown practitioner %s", req.PractitionerID)
		}
		if err != nil {
			return nil, err
		}
		if !p.Active {
			return nil, invalidInput("practitioner %s is not active", req.PractitionerID)
		}
	}
	return services, nil
}

// resolveCandidates builds the candidate pool: practitioners linked to
// every requested service, with snapshotted effective prices per service.
func (e *Engine) resolveCandidates(ctx context.Context, tx pgx.Tx, req BookRequest, services map[string]model.Service) ([]string, map[string]map[string]int64, error) {
	links, err := e.store.LinksForServices(ctx, tx, req.ServiceIDs)
	if err != nil {
		return nil, nil, err
	}

	candidates, prices := candidatesFromLinks(req.ServiceIDs, services, links)

	if req.PractitionerID != "" {
		if _, ok := prices[req.PractitionerID]; !ok {
			return nil, nil, ErrNoEligiblePractitioner
		}
		return []string{req.PractitionerID}, prices, nil
	}
	if len(candidates) == 0 {
		return nil, nil, ErrNoEligiblePractitioner
	}
	return candidates, prices, nil
}

// candidatesFromLinks intersects service links across all requested
// services. A practitioner missing even one link is excluded before any
// interval math runs.
func candidatesFromLinks(serviceIDs []string, services map[string]model.Service, links []model.ServiceLink) ([]string, map[string]map[string]int64) {
	perPractitioner := map[string]map[string]int64{}
	for _, l := range links {
		svc, ok := services[l.ServiceID]
		if !ok {
			continue
		}
		m := perPractitioner[l.PractitionerID]
		if m == nil {
			m = map[string]int64{}
			perPractitioner[l.PractitionerID] = m
		}
		m[l.ServiceID] = l.EffectivePriceCents(svc.BasePriceCents)
	}

	var candidates []string
	prices := map[string]map[string]int64{}
	for id, m := range perPractitioner {
		if len(m) != len(serviceIDs) {
			continue
		}
		candidates = append(candidates, id)
		prices[id] = m
	}
	sort.Strings(candidates)
	return candidates, prices
}

// checkAvailability resolves the day's work windows inside the transaction
// and runs eligibility and ranking over the candidate pool.
func (e *Engine) checkAvailability(ctx context.Context, tx pgx.Tx, req BookRequest, candidateIDs []string, prices map[string]map[string]int64, requiredMinutes int) (string, error) {
	day := req.StartsAt.In(e.resolver.Location())
	dayStart, dayEnd := e.resolver.DayBounds(day)

	rules, err := e.store.RulesFor(ctx, tx, candidateIDs)
	if err != nil {
		return "", err
	}
	work := e.resolver.ResolveDay(day, rules, candidateIDs)

	timeOff, err := e.store.TimeOffBetween(ctx, tx, candidateIDs, dayStart, dayEnd)
	if err != nil {
		return "", err
	}
	appts, err := e.store.BlockingAppointments(ctx, tx, candidateIDs, dayStart, dayEnd)
	if err != nil {
		return "", err
	}

	blocked := map[string][]interval.Interval{}
	for _, t := range timeOff {
		blocked[t.PractitionerID] = append(blocked[t.PractitionerID], interval.Interval{Start: t.StartsAt, End: t.EndsAt})
	}
	for _, a := range appts {
		blocked[a.PractitionerID] = append(blocked[a.PractitionerID], interval.Interval{Start: a.StartsAt, End: a.EndsAt})
	}

	candidates := make([]eligibility.Candidate, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		var total int64
		for _, cents := range prices[id] {
			total += cents
		}
		candidates = append(candidates, eligibility.Candidate{
			PractitionerID:  id,
			Work:            work[id],
			Blocked:         blocked[id],
			TotalPriceCents: total,
		})
	}

	winner, ok := eligibility.Pick(req.StartsAt, requiredMinutes, candidates, req.PractitionerID)
	if !ok {
		return "", ErrSlotConflict
	}
	return winner.PractitionerID, nil
}

// resolveClient looks up the client by normalized email and phone
// independently. Two distinct matches abort the booking instead of
// silently merging identities.
func (e *Engine) resolveClient(ctx context.Context, tx pgx.Tx, info ClientInfo) (string, error) {
	email := NormalizeEmail(info.Email)
	phone := NormalizePhone(info.Phone)
	if email == "" && phone == "" {
		return "", invalidInput("client email or phone is required")
	}

	byEmail, foundEmail, err := e.store.FindClientByEmail(ctx, tx, email)
	if err != nil {
		return "", err
	}
	byPhone, foundPhone, err := e.store.FindClientByPhone(ctx, tx, phone)
	if err != nil {
		return "", err
	}

	if foundEmail && foundPhone && byEmail.ID != byPhone.ID {
		return "", ErrIdentityConflict
	}

	resolved := model.Client{
		FirstName: strings.TrimSpace(info.FirstName),
		LastName:  strings.TrimSpace(info.LastName),
		Email:     email,
		Phone:     phone,
	}

	var existing model.Client
	found := false
	switch {
	case foundEmail:
		existing, found = byEmail, true
	case foundPhone:
		existing, found = byPhone, true
	}

	if !found {
		id, err := e.store.InsertClient(ctx, tx, resolved)
		if err != nil {
			return "", e.classify(err)
		}
		return id, nil
	}

	// Prefer values already on file when the request omits a field.
	resolved.ID = existing.ID
	if resolved.FirstName == "" {
		resolved.FirstName = existing.FirstName
	}
	if resolved.LastName == "" {
		resolved.LastName = existing.LastName
	}
	if resolved.Email == "" {
		resolved.Email = existing.Email
	}
	if resolved.Phone == "" {
		resolved.Phone = existing.Phone
	}
	if err := e.store.UpdateClient(ctx, tx, resolved); err != nil {
		return "", err
	}
	return resolved.ID, nil
}

func (e *Engine) writeBookedEvent(ctx context.Context, tx pgx.Tx, apptID string, appt *model.Appointment) error {
	payload, err := json.Marshal(map[string]any{
		"appointment_id":  apptID,
		"practitioner_id": appt.PractitionerID,
		"client_id":       appt.ClientID,
		"starts_at":       appt.StartsAt.UTC().Format(time.RFC3339),
		"ends_at":         appt.EndsAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return e.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   apptID,
		EventType:     "booking.appointment.booked.v1",
		Payload:       payload,
	})
}

// classify translates store-level conflicts into the engine taxonomy.
// Unique violations are races with a concurrent booking (same client row,
// same slot); like serialization failures they are retryable, so both map to
// the retry-after-refresh conflict rather than the manual-reconciliation one.
func (e *Engine) classify(err error) error {
	if storage.IsSerializationConflict(err) || storage.IsUniqueViolation(err) {
		return ErrSlotConflict
	}
	return err
}

func serviceSummary(serviceIDs []string, services map[string]model.Service) string {
	names := make([]string, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		names = append(names, services[id].Name)
	}
	return strings.Join(names, ", ")
}

// NormalizeEmail lowercases and trims; empty stays empty.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips formatting characters so the same number always
// resolves to the same client record.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		switch r {
		case ' ', '-', '(', ')', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
