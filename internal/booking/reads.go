package booking

import (
	"context"
	"sort"
	"time"

	"github.com/solenne-institute/booking/internal/eligibility"
	"github.com/solenne-institute/booking/internal/interval"
	"github.com/solenne-institute/booking/internal/model"
)

// GridStepMinutes is the spacing of the advisory free-start grid. Booking
// itself accepts any instant; the grid only shapes what the public UI offers.
const GridStepMinutes = 15

// ServiceOption is one active service's eligibility verdict at a given
// instant. Every active service produces an entry; Reason explains an
// ineligible one. For eligible services the price and practitioner come from
// the same ranking the booking path uses, so the quote matches what a
// subsequent Book would pick.
type ServiceOption struct {
	Service             model.Service
	Eligible            bool
	Reason              string
	EffectivePriceCents int64
	BestPractitionerID  string
}

const (
	reasonNoPractitioner = "no practitioner offers this service"
	reasonNoFreeSlot     = "no practitioner is free at this time"
)

// FreeStart is one offerable start instant on the grid.
type FreeStart struct {
	StartsAt        time.Time
	MaxFreeMinutes  int
	PractitionerIDs []string
}

// dayState is everything needed to answer availability questions for one
// civil day, loaded once outside any transaction. These reads are advisory:
// the serializable booking transaction re-checks everything, so a slightly
// stale snapshot here costs a 409 at worst, never a double booking.
type dayState struct {
	work    map[string][]interval.Interval
	blocked map[string][]interval.Interval
}

func (e *Engine) loadDayState(ctx context.Context, day time.Time, practitionerIDs []string) (*dayState, error) {
	pool := e.store.Pool()
	dayStart, dayEnd := e.resolver.DayBounds(day)

	rules, err := e.store.RulesFor(ctx, pool, practitionerIDs)
	if err != nil {
		return nil, err
	}
	work := e.resolver.ResolveDay(day, rules, practitionerIDs)

	timeOff, err := e.store.TimeOffBetween(ctx, pool, practitionerIDs, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	appts, err := e.store.BlockingAppointments(ctx, pool, practitionerIDs, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	blocked := map[string][]interval.Interval{}
	for _, t := range timeOff {
		blocked[t.PractitionerID] = append(blocked[t.PractitionerID], interval.Interval{Start: t.StartsAt, End: t.EndsAt})
	}
	for _, a := range appts {
		blocked[a.PractitionerID] = append(blocked[a.PractitionerID], interval.Interval{Start: a.StartsAt, End: a.EndsAt})
	}
	return &dayState{work: work, blocked: blocked}, nil
}

// EligibleServices returns a verdict for every active service at the given
// instant: eligible services carry the ranked best practitioner and that
// practitioner's effective price, ineligible ones carry the reason.
// practitionerID narrows the pool to one person when set.
func (e *Engine) EligibleServices(ctx context.Context, start time.Time, practitionerID string) ([]ServiceOption, error) {
	pool := e.store.Pool()

	services, err := e.store.ListActiveServices(ctx)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, nil
	}
	byID := make(map[string]model.Service, len(services))
	ids := make([]string, 0, len(services))
	for _, svc := range services {
		byID[svc.ID] = svc
		ids = append(ids, svc.ID)
	}

	links, err := e.store.LinksForServices(ctx, pool, ids)
	if err != nil {
		return nil, err
	}

	// service id -> practitioner id -> effective price
	linked := map[string]map[string]int64{}
	allPractitioners := map[string]bool{}
	for _, l := range links {
		svc, ok := byID[l.ServiceID]
		if !ok {
			continue
		}
		if practitionerID != "" && l.PractitionerID != practitionerID {
			continue
		}
		m := linked[l.ServiceID]
		if m == nil {
			m = map[string]int64{}
			linked[l.ServiceID] = m
		}
		m[l.PractitionerID] = l.EffectivePriceCents(svc.BasePriceCents)
		allPractitioners[l.PractitionerID] = true
	}

	candidateIDs := make([]string, 0, len(allPractitioners))
	for id := range allPractitioners {
		candidateIDs = append(candidateIDs, id)
	}
	sort.Strings(candidateIDs)

	day := start.In(e.resolver.Location())
	state, err := e.loadDayState(ctx, day, candidateIDs)
	if err != nil {
		return nil, err
	}

	out := make([]ServiceOption, 0, len(services))
	for _, svc := range services {
		out = append(out, evaluateServiceOption(start, svc, linked[svc.ID], state))
	}
	return out, nil
}

// evaluateServiceOption runs the booking-path ranking over one service's
// linked practitioners and condenses it into a single advisory verdict.
func evaluateServiceOption(start time.Time, svc model.Service, prices map[string]int64, state *dayState) ServiceOption {
	opt := ServiceOption{Service: svc, EffectivePriceCents: svc.BasePriceCents}
	if len(prices) == 0 {
		opt.Reason = reasonNoPractitioner
		return opt
	}

	results := make([]eligibility.Result, 0, len(prices))
	cheapest := int64(-1)
	for pid, price := range prices {
		if cheapest < 0 || price < cheapest {
			cheapest = price
		}
		results = append(results, eligibility.Evaluate(start, svc.DurationMinutes, eligibility.Candidate{
			PractitionerID:  pid,
			Work:            state.work[pid],
			Blocked:         state.blocked[pid],
			TotalPriceCents: price,
		}))
	}

	ranked := eligibility.Rank(results)
	if len(ranked) == 0 {
		opt.Reason = reasonNoFreeSlot
		opt.EffectivePriceCents = cheapest
		return opt
	}
	opt.Eligible = true
	opt.BestPractitionerID = ranked[0].PractitionerID
	opt.EffectivePriceCents = ranked[0].TotalPriceCents
	return opt
}

// FreeStarts walks the grid over one civil day and returns every instant at
// which the requested service bundle could start. Instants already in the
// past are skipped. Each start carries the union of practitioners available
// then, deduplicated per instant regardless of who could take it.
func (e *Engine) FreeStarts(ctx context.Context, day time.Time, serviceIDs []string, practitionerID string) ([]FreeStart, error) {
	if len(serviceIDs) == 0 {
		return nil, invalidInput("at least one service is required")
	}
	pool := e.store.Pool()

	loaded, err := e.store.ServicesByIDs(ctx, pool, serviceIDs)
	if err != nil {
		return nil, err
	}
	services := make(map[string]model.Service, len(loaded))
	for _, svc := range loaded {
		services[svc.ID] = svc
	}
	requiredMinutes := 0
	for _, id := range serviceIDs {
		svc, ok := services[id]
		if !ok || !svc.Active {
			return nil, invalidInput("unknown or inactive service %s", id)
		}
		requiredMinutes += svc.DurationMinutes
	}

	links, err := e.store.LinksForServices(ctx, pool, serviceIDs)
	if err != nil {
		return nil, err
	}
	candidateIDs, _ := candidatesFromLinks(serviceIDs, services, links)
	if practitionerID != "" {
		found := false
		for _, id := range candidateIDs {
			if id == practitionerID {
				found = true
				break
			}
		}
		if !found {
			return nil, nil
		}
		candidateIDs = []string{practitionerID}
	}
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	civilDay := day.In(e.resolver.Location())
	state, err := e.loadDayState(ctx, civilDay, candidateIDs)
	if err != nil {
		return nil, err
	}

	// Precompute free intervals per candidate once; the grid walk only does
	// containment checks against them.
	free := make(map[string][]interval.Interval, len(candidateIDs))
	for _, id := range candidateIDs {
		free[id] = interval.Subtract(state.work[id], state.blocked[id])
	}

	now := e.now()
	dayStart, dayEnd := e.resolver.DayBounds(civilDay)
	step := GridStepMinutes * time.Minute
	need := time.Duration(requiredMinutes) * time.Minute

	var out []FreeStart
	for at := dayStart; at.Before(dayEnd); at = at.Add(step) {
		if at.Before(now) {
			continue
		}
		var fs FreeStart
		for _, id := range candidateIDs {
			for _, iv := range free[id] {
				if !iv.Contains(at) {
					continue
				}
				slack := iv.End.Sub(at)
				if slack < need {
					break
				}
				fs.PractitionerIDs = append(fs.PractitionerIDs, id)
				if m := int(slack / time.Minute); m > fs.MaxFreeMinutes {
					fs.MaxFreeMinutes = m
				}
				break
			}
		}
		if len(fs.PractitionerIDs) == 0 {
			continue
		}
		fs.StartsAt = at
		out = append(out, fs)
	}
	return out, nil
}
