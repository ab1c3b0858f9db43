package model

import (
	"math"
	"time"
)

type Service struct {
	ID              string
	Name            string
	DurationMinutes int
	BasePriceCents  int64
	Active          bool
}

type Practitioner struct {
	ID          string
	DisplayName string
	Active      bool
}

// ServiceLink pairs a service with a practitioner able to perform it.
// PriceCentsOverride and DiscountPercent are mutually exclusive; the
// override wins if both are somehow present.
type ServiceLink struct {
	ServiceID          string
	PractitionerID     string
	PriceCentsOverride *int64
	DiscountPercent    *int
}

// EffectivePriceCents computes the price actually charged for this
// (service, practitioner) pair. The result is snapshotted into the
// appointment item at booking time and never recomputed afterwards.
func (l ServiceLink) EffectivePriceCents(basePriceCents int64) int64 {
	if l.PriceCentsOverride != nil {
		return *l.PriceCentsOverride
	}
	if l.DiscountPercent != nil {
		pct := *l.DiscountPercent
		if pct > 0 && pct <= 100 {
			return int64(math.Round(float64(basePriceCents) * (1 - float64(pct)/100)))
		}
	}
	return basePriceCents
}

type Client struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	CreatedAt time.Time
}

type TimeOff struct {
	ID             string
	PractitionerID string
	StartsAt       time.Time
	EndsAt         time.Time
	AllDay         bool
	Reason         string
	CreatedAt      time.Time
}
